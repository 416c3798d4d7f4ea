package input

import (
	"testing"
)

func TestToSimMirrorsAndFlips(t *testing.T) {
	cases := []struct {
		name string
		in   Vec3
		want Vec3
	}{
		{"origin corner", Vec3{X: 0, Y: 0, Z: 0}, Vec3{X: 8, Y: 8, Z: 0}},
		{"far corner", Vec3{X: 1, Y: 1, Z: 0.5}, Vec3{X: -8, Y: -8, Z: -4}},
		{"center", Vec3{X: 0.5, Y: 0.5, Z: 0}, Vec3{}},
		{"right of center mirrors left", Vec3{X: 0.75, Y: 0.5, Z: 0}, Vec3{X: -4, Y: 0, Z: 0}},
		{"below center flips up", Vec3{X: 0.5, Y: 0.75, Z: 0}, Vec3{X: 0, Y: -4, Z: 0}},
	}

	for _, tc := range cases {
		got := ToSim(tc.in, 16, 16, 8)
		if got != tc.want {
			t.Errorf("%s: ToSim(%+v) = %+v, want %+v", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestDerivePalm(t *testing.T) {
	var lms [NumLandmarks]Vec3
	// Wrist and the four knuckles all at the same point
	for _, i := range []int{0, 5, 9, 13, 17} {
		lms[i] = Vec3{X: 1, Y: 2, Z: 3}
	}
	// Fingertips far away must not contribute
	lms[4] = Vec3{X: 100, Y: 100, Z: 100}
	lms[8] = Vec3{X: -100, Y: -100, Z: -100}

	palm := DerivePalm(lms)
	if palm != (Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("palm = %+v, want {1 2 3}", palm)
	}
}

func TestPoseToSimDerivesZeroPalm(t *testing.T) {
	var pose HandPose
	for i := range pose.Landmarks {
		pose.Landmarks[i] = Vec3{X: 0.25, Y: 0.5, Z: 0}
	}

	out := PoseToSim(pose, 16, 16, 8)
	if out.Palm != (Vec3{X: 4, Y: 0, Z: 0}) {
		t.Errorf("derived palm = %+v, want {4 0 0}", out.Palm)
	}
	if out.Landmarks[0] != (Vec3{X: 4, Y: 0, Z: 0}) {
		t.Errorf("landmark 0 = %+v, want {4 0 0}", out.Landmarks[0])
	}

	// An explicit palm passes through the transform untouched by derivation.
	pose.Palm = Vec3{X: 0.75, Y: 0.5, Z: 0}
	out = PoseToSim(pose, 16, 16, 8)
	if out.Palm != (Vec3{X: -4, Y: 0, Z: 0}) {
		t.Errorf("explicit palm = %+v, want {-4 0 0}", out.Palm)
	}
}

func handAtX(x float32) HandPose {
	var p HandPose
	for i := range p.Landmarks {
		p.Landmarks[i] = Vec3{X: x}
	}
	return p
}

func TestSmootherSnapsThenLerps(t *testing.T) {
	s := NewSmoother()

	// First appearance snaps
	s.Update([]HandPose{handAtX(1)}, 0.25)
	lms, ok := s.Landmarks(0)
	if !ok {
		t.Fatal("slot 0 not present after update")
	}
	if lms[0].X != 1 {
		t.Fatalf("first frame x = %v, want snap to 1", lms[0].X)
	}

	// Subsequent frames interpolate
	s.Update([]HandPose{handAtX(2)}, 0.25)
	lms, _ = s.Landmarks(0)
	if lms[0].X != 1.25 {
		t.Errorf("second frame x = %v, want 1.25", lms[0].X)
	}
	s.Update([]HandPose{handAtX(2)}, 0.25)
	lms, _ = s.Landmarks(0)
	if lms[0].X != 1.4375 {
		t.Errorf("third frame x = %v, want 1.4375", lms[0].X)
	}

	if n := s.PresentCount(); n != 1 {
		t.Errorf("present count = %d, want 1", n)
	}
	if _, ok := s.Landmarks(1); ok {
		t.Error("empty slot 1 reported present")
	}
}

func TestSmootherReappearanceSnaps(t *testing.T) {
	s := NewSmoother()
	s.Update([]HandPose{handAtX(1)}, 0.5)

	// Hand leaves
	s.Update(nil, 0.5)
	if _, ok := s.Landmarks(0); ok {
		t.Fatal("slot 0 still present after empty frame")
	}

	// Reappearing far away must snap, not glide from the stale position
	s.Update([]HandPose{handAtX(9)}, 0.5)
	lms, ok := s.Landmarks(0)
	if !ok {
		t.Fatal("slot 0 not present after reappearance")
	}
	if lms[0].X != 9 {
		t.Errorf("reappearance x = %v, want snap to 9", lms[0].X)
	}
}

func TestSmootherReset(t *testing.T) {
	s := NewSmoother()
	s.Update([]HandPose{handAtX(3), handAtX(4)}, 0.5)
	if n := s.PresentCount(); n != 2 {
		t.Fatalf("present count = %d, want 2", n)
	}

	s.Reset()
	if n := s.PresentCount(); n != 0 {
		t.Errorf("present count after reset = %d, want 0", n)
	}
	if lms, ok := s.Landmarks(0); ok || lms[0].X != 0 {
		t.Error("reset kept stale landmarks")
	}
}

func TestSmootherSlotBounds(t *testing.T) {
	s := NewSmoother()
	if _, ok := s.Landmarks(-1); ok {
		t.Error("negative slot reported present")
	}
	if _, ok := s.Landmarks(MaxHands); ok {
		t.Error("out of range slot reported present")
	}
}

func TestFrameClip(t *testing.T) {
	f := Frame{Hands: []HandPose{handAtX(1), handAtX(2), handAtX(3)}}
	clipped := f.Clip()
	if len(clipped.Hands) != MaxHands {
		t.Errorf("clipped to %d hands, want %d", len(clipped.Hands), MaxHands)
	}
	if clipped.Hands[1].Landmarks[0].X != 2 {
		t.Error("clip did not keep the first hands")
	}

	small := Frame{Hands: []HandPose{handAtX(1)}}
	if got := small.Clip(); len(got.Hands) != 1 {
		t.Errorf("clip of small frame = %d hands, want 1", len(got.Hands))
	}
}
