package telemetry

import (
	"log/slog"

	"github.com/pthm-cable/driftfield/input"
)

// HandSession tracks one hand slot's statistics from enter to exit.
type HandSession struct {
	Slot      int
	StartTick int32
	EndTick   int32

	// Frame counts while present
	Frames      int
	OpenFrames  int
	PinchFrames int

	// Frames spent holding each gesture label
	GestureFrames [input.GestureCount]int
}

// DurationSec returns the session length in simulation seconds.
func (s *HandSession) DurationSec(dt float32) float32 {
	return float32(s.EndTick-s.StartTick+1) * dt
}

// LogSession logs the completed session using slog.
func (s *HandSession) LogSession(dt float32) {
	slog.Info("hand_session",
		"slot", s.Slot,
		"start_tick", s.StartTick,
		"end_tick", s.EndTick,
		"duration_sec", s.DurationSec(dt),
		"frames", s.Frames,
		"open_frames", s.OpenFrames,
		"pinch_frames", s.PinchFrames,
		"peace_frames", s.GestureFrames[input.GesturePeace],
		"rock_frames", s.GestureFrames[input.GestureRock],
		"thumbs_up_frames", s.GestureFrames[input.GestureThumbsUp],
		"pointer_frames", s.GestureFrames[input.GesturePointer],
		"ok_frames", s.GestureFrames[input.GestureOK],
	)
}

// SessionTracker manages per-slot hand presence sessions.
type SessionTracker struct {
	slots [input.MaxHands]*HandSession
}

// NewSessionTracker creates a new session tracker.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{}
}

// Observe updates sessions from the current tick's hand poses and returns any
// sessions that ended this tick. Slot i corresponds to hands[i].
func (st *SessionTracker) Observe(tick int32, hands []input.HandPose) []HandSession {
	var ended []HandSession

	for i := 0; i < input.MaxHands; i++ {
		if i < len(hands) {
			h := hands[i]
			s := st.slots[i]
			if s == nil {
				s = &HandSession{Slot: i, StartTick: tick}
				st.slots[i] = s
			}
			s.EndTick = tick
			s.Frames++
			if h.IsOpen {
				s.OpenFrames++
			}
			if h.IsPinching {
				s.PinchFrames++
			}
			if int(h.Gesture) < len(s.GestureFrames) {
				s.GestureFrames[h.Gesture]++
			}
			continue
		}

		if s := st.slots[i]; s != nil {
			ended = append(ended, *s)
			st.slots[i] = nil
		}
	}

	return ended
}

// Get returns the active session for a slot, or nil if the slot is empty.
func (st *SessionTracker) Get(slot int) *HandSession {
	if slot < 0 || slot >= len(st.slots) {
		return nil
	}
	return st.slots[slot]
}

// ActiveCount returns the number of slots with an active session.
func (st *SessionTracker) ActiveCount() int {
	n := 0
	for _, s := range st.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// Drain ends all active sessions and returns them, oldest slot first.
// Used at shutdown so in-progress sessions still get logged.
func (st *SessionTracker) Drain() []HandSession {
	var ended []HandSession
	for i, s := range st.slots {
		if s != nil {
			ended = append(ended, *s)
			st.slots[i] = nil
		}
	}
	return ended
}
