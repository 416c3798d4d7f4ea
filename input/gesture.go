package input

import (
	"fmt"
	"strings"
)

// Gesture is a recognized hand gesture label from the external recognizer.
type Gesture uint8

const (
	GestureNone     Gesture = iota // No recognized gesture
	GesturePeace                   // Index+middle V: slow motion
	GestureRock                    // Horns: chaos
	GestureThumbsUp                // Grid alignment
	GesturePointer                 // Index extended: focused attraction
	GestureOK                      // Thumb+index ring
)

var gestureNames = [...]string{
	GestureNone:     "NONE",
	GesturePeace:    "PEACE",
	GestureRock:     "ROCK",
	GestureThumbsUp: "THUMBS_UP",
	GesturePointer:  "POINTER",
	GestureOK:       "OK",
}

// GestureCount is the number of defined gesture labels, including NONE.
const GestureCount = len(gestureNames)

// String returns the wire name of the gesture.
func (g Gesture) String() string {
	if int(g) < len(gestureNames) {
		return gestureNames[g]
	}
	return fmt.Sprintf("Gesture(%d)", uint8(g))
}

// ParseGesture maps a wire name to a Gesture. Unknown names are an error;
// callers treating input defensively should fall back to GestureNone.
func ParseGesture(s string) (Gesture, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range gestureNames {
		if n == name {
			return Gesture(i), nil
		}
	}
	return GestureNone, fmt.Errorf("unknown gesture %q", s)
}

// Handedness identifies which hand the recognizer matched.
type Handedness uint8

const (
	HandUnknown Handedness = iota
	HandLeft
	HandRight
)

var handednessNames = [...]string{
	HandUnknown: "UNKNOWN",
	HandLeft:    "LEFT",
	HandRight:   "RIGHT",
}

// String returns the wire name of the handedness flag.
func (h Handedness) String() string {
	if int(h) < len(handednessNames) {
		return handednessNames[h]
	}
	return fmt.Sprintf("Handedness(%d)", uint8(h))
}

// ParseHandedness maps a wire name to a Handedness value.
func ParseHandedness(s string) (Handedness, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range handednessNames {
		if n == name {
			return Handedness(i), nil
		}
	}
	return HandUnknown, fmt.Errorf("unknown handedness %q", s)
}
