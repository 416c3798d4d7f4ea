// Package scene defines the externally selected simulation mode and the
// optional scene configuration (palette, force overrides, target shape)
// supplied by the host. Both are read-only inputs to the simulation.
package scene

import (
	"fmt"
	"strings"
)

// Mode selects which force-field branches are active for a tick.
type Mode uint8

const (
	ModePlayground Mode = iota // Default: hand forces plus home/shape return
	ModeDrawing                // No return pull; pinching hands grab particles
	ModeSilhouette             // Particles settle onto smoothed hand landmarks
	ModeAudio                  // Audio-driven jitter and drift, bouncy walls
	ModeConfigured             // Like playground, driven by an applied scene config
)

var modeNames = [...]string{
	ModePlayground: "playground",
	ModeDrawing:    "drawing",
	ModeSilhouette: "silhouette",
	ModeAudio:      "audio",
	ModeConfigured: "configured",
}

// String returns the wire name of the mode.
func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode maps a wire name to a Mode. Unknown names are an error; callers
// treating input defensively should keep the current mode instead.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return ModePlayground, fmt.Errorf("unknown mode %q", s)
}

// WantsReturn reports whether the mode pulls particles back toward their
// home positions (or an active shape).
func (m Mode) WantsReturn() bool {
	return m == ModePlayground || m == ModeConfigured
}
