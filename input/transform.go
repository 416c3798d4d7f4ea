package input

// ToSim maps a point from normalized input space into simulation space:
// x is mirrored about the input center, y is flipped (input y grows
// downward), and z is scaled into world depth. Pure function, no state.
func ToSim(v Vec3, scaleX, scaleY, scaleZ float32) Vec3 {
	return Vec3{
		X: (0.5 - v.X) * scaleX,
		Y: (0.5 - v.Y) * scaleY,
		Z: -v.Z * scaleZ,
	}
}

// PoseToSim returns a copy of the pose with palm and landmarks transformed
// into simulation space. A zero-valued palm is first derived from the
// landmarks so malformed input still yields a usable interaction origin.
func PoseToSim(p HandPose, scaleX, scaleY, scaleZ float32) HandPose {
	out := p
	palm := p.Palm
	if palm == (Vec3{}) {
		palm = DerivePalm(p.Landmarks)
	}
	out.Palm = ToSim(palm, scaleX, scaleY, scaleZ)
	for i, lm := range p.Landmarks {
		out.Landmarks[i] = ToSim(lm, scaleX, scaleY, scaleZ)
	}
	return out
}

// Smoother carries frame-to-frame smoothed landmarks per hand slot for
// silhouette tracking. Raw landmarks jitter at detection rate; the tracked
// positions interpolate toward each new frame instead of jumping, except
// when a hand first appears, which snaps to avoid a fly-in from stale state.
type Smoother struct {
	landmarks [MaxHands][NumLandmarks]Vec3
	present   [MaxHands]bool
}

// NewSmoother returns an empty smoother.
func NewSmoother() *Smoother {
	return &Smoother{}
}

// Update advances the smoothed landmarks toward the hands of the given
// frame, which must already be in simulation space. rate is the per-frame
// interpolation factor in (0,1].
func (s *Smoother) Update(hands []HandPose, rate float32) {
	for slot := 0; slot < MaxHands; slot++ {
		if slot >= len(hands) {
			s.present[slot] = false
			continue
		}
		raw := &hands[slot].Landmarks
		if !s.present[slot] {
			s.landmarks[slot] = *raw
			s.present[slot] = true
			continue
		}
		sm := &s.landmarks[slot]
		for i := range sm {
			sm[i].X += (raw[i].X - sm[i].X) * rate
			sm[i].Y += (raw[i].Y - sm[i].Y) * rate
			sm[i].Z += (raw[i].Z - sm[i].Z) * rate
		}
	}
}

// Landmarks returns the smoothed landmarks for a hand slot and whether the
// slot currently holds a hand.
func (s *Smoother) Landmarks(slot int) ([NumLandmarks]Vec3, bool) {
	if slot < 0 || slot >= MaxHands {
		return [NumLandmarks]Vec3{}, false
	}
	return s.landmarks[slot], s.present[slot]
}

// PresentCount returns how many slots hold a hand.
func (s *Smoother) PresentCount() int {
	n := 0
	for _, p := range s.present {
		if p {
			n++
		}
	}
	return n
}

// Reset clears all slots, as on a mode change that should not inherit
// tracked positions.
func (s *Smoother) Reset() {
	*s = Smoother{}
}
