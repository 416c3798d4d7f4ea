// Package telemetry provides interaction stats, moment detection, and snapshots.
package telemetry

import (
	"fmt"

	"github.com/pthm-cable/driftfield/input"
)

// EventType identifies telemetry events.
type EventType uint8

const (
	EventHandEnter EventType = iota
	EventHandExit
	EventGestureChange
	EventModeChange
	EventSceneApplied
	EventSceneCleared
	EventHeal
)

var eventNames = [...]string{
	EventHandEnter:     "hand_enter",
	EventHandExit:      "hand_exit",
	EventGestureChange: "gesture_change",
	EventModeChange:    "mode_change",
	EventSceneApplied:  "scene_applied",
	EventSceneCleared:  "scene_cleared",
	EventHeal:          "heal",
}

// String returns the log name of the event type.
func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return fmt.Sprintf("EventType(%d)", uint8(t))
}

// Event represents a single telemetry event.
type Event struct {
	Type EventType
	Tick int32

	// Optional fields depending on event type
	Slot    int           // hand slot for enter/exit/gesture events
	Gesture input.Gesture // new gesture for gesture change events
	Mode    string        // new mode for mode change events
	Count   int           // components healed for heal events
}

// NewHandEnterEvent creates an event for a hand slot becoming occupied.
func NewHandEnterEvent(tick int32, slot int) Event {
	return Event{
		Type: EventHandEnter,
		Tick: tick,
		Slot: slot,
	}
}

// NewHandExitEvent creates an event for a hand slot going empty.
func NewHandExitEvent(tick int32, slot int) Event {
	return Event{
		Type: EventHandExit,
		Tick: tick,
		Slot: slot,
	}
}

// NewGestureChangeEvent creates an event for a hand's gesture label changing.
func NewGestureChangeEvent(tick int32, slot int, gesture input.Gesture) Event {
	return Event{
		Type:    EventGestureChange,
		Tick:    tick,
		Slot:    slot,
		Gesture: gesture,
	}
}

// NewModeChangeEvent creates an event for an interaction mode switch.
func NewModeChangeEvent(tick int32, mode string) Event {
	return Event{
		Type: EventModeChange,
		Tick: tick,
		Mode: mode,
	}
}

// NewSceneAppliedEvent creates an event for a scene configuration taking effect.
func NewSceneAppliedEvent(tick int32) Event {
	return Event{
		Type: EventSceneApplied,
		Tick: tick,
	}
}

// NewSceneClearedEvent creates an event for a scene configuration being removed.
func NewSceneClearedEvent(tick int32) Event {
	return Event{
		Type: EventSceneCleared,
		Tick: tick,
	}
}

// NewHealEvent creates an event for non-finite components zeroed during a tick.
func NewHealEvent(tick int32, count int) Event {
	return Event{
		Type:  EventHeal,
		Tick:  tick,
		Count: count,
	}
}
