// Package input defines the hand-pose contract consumed by the simulation:
// per-frame snapshots of detected hands, the normalized-to-simulation space
// transform, and landmark smoothing for silhouette tracking.
package input

// NumLandmarks is the landmark count per detected hand (wrist, finger joints
// and tips, as emitted by the external recognizer).
const NumLandmarks = 21

// MaxHands is the most hands a frame may carry.
const MaxHands = 2

// Vec3 is a point in either normalized input space or simulation space,
// depending on where it appears; the transform in this package converts
// between the two.
type Vec3 struct {
	X, Y, Z float32
}

// HandPose is one detected hand within a frame.
type HandPose struct {
	Landmarks  [NumLandmarks]Vec3 // Joint points in normalized input space
	Palm       Vec3               // Representative interaction origin
	IsOpen     bool               // Fingers extended
	IsPinching bool               // Thumb+index pinch engaged
	Handedness Handedness
	Gesture    Gesture
}

// Frame is an immutable per-frame snapshot of zero, one, or two hands.
// Produced externally once per detection update; the simulation reuses the
// last frame until a new one arrives and never mutates it.
type Frame struct {
	Hands []HandPose
}

// Clip returns a copy of the frame limited to MaxHands entries, dropping any
// surplus the recognizer should not have produced.
func (f Frame) Clip() Frame {
	if len(f.Hands) <= MaxHands {
		return f
	}
	return Frame{Hands: f.Hands[:MaxHands]}
}

// DerivePalm computes a palm point from landmarks: the mean of the wrist and
// the four finger knuckles. Used when a pose arrives without a palm point.
func DerivePalm(landmarks [NumLandmarks]Vec3) Vec3 {
	var p Vec3
	for _, i := range [...]int{0, 5, 9, 13, 17} {
		p.X += landmarks[i].X
		p.Y += landmarks[i].Y
		p.Z += landmarks[i].Z
	}
	p.X /= 5
	p.Y /= 5
	p.Z /= 5
	return p
}
