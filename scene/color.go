package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a normalized RGB triple. Channels live in [0,1].
type Color struct {
	R float32
	G float32
	B float32
}

// Lerp interpolates toward o by t in [0,1].
func (c Color) Lerp(o Color, t float32) Color {
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
	}
}

// Clamped returns the color with every channel forced into [0,1].
// NaN channels become zero.
func (c Color) Clamped() Color {
	return Color{clampChannel(c.R), clampChannel(c.G), clampChannel(c.B)}
}

func clampChannel(v float32) float32 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	cl := c.Clamped()
	return fmt.Sprintf("#%02x%02x%02x",
		uint8(cl.R*255+0.5), uint8(cl.G*255+0.5), uint8(cl.B*255+0.5))
}

// ParseHexColor reads "#rrggbb" or "rrggbb". Short form "#rgb" is accepted
// and expanded per CSS rules.
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6:
	default:
		return Color{}, fmt.Errorf("hex color %q: want 3 or 6 digits", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("hex color %q: %w", s, err)
	}
	return Color{
		R: float32(v>>16&0xff) / 255,
		G: float32(v>>8&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}
