package field

import (
	"math"
	"testing"

	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
	"github.com/pthm-cable/driftfield/telemetry"
)

func init() {
	config.MustInit("")
}

// newTestField builds a small field with file output disabled.
func newTestField(t *testing.T, opts Options) *Field {
	t.Helper()
	if opts.Particles == 0 {
		opts.Particles = 256
	}
	f, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

// poseAt returns a pose whose palm lands at the given simulation-space point
// after the input transform.
func poseAt(sim input.Vec3) input.HandPose {
	d := &config.Cfg().Derived
	return input.HandPose{Palm: input.Vec3{
		X: 0.5 - sim.X/d.InputScaleX32,
		Y: 0.5 - sim.Y/d.InputScaleY32,
		Z: -sim.Z / d.InputScaleZ32,
	}}
}

func dist(a, b input.Vec3) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	dz := float64(a.Z - b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func TestNewFieldSpawnsCloud(t *testing.T) {
	f := newTestField(t, Options{Seed: 42})

	if f.Count() != 256 {
		t.Fatalf("Count() = %d, want 256", f.Count())
	}
	if len(f.Positions()) != 256*3 {
		t.Errorf("positions buffer = %d floats, want %d", len(f.Positions()), 256*3)
	}
	if len(f.Colors()) != 256*3 {
		t.Errorf("colors buffer = %d floats, want %d", len(f.Colors()), 256*3)
	}
	if len(f.Sizes()) != 256 {
		t.Errorf("sizes buffer = %d floats, want 256", len(f.Sizes()))
	}

	radius := float64(config.Cfg().Derived.SpawnRadius32)
	for i := 0; i < f.Count(); i++ {
		p, ok := f.Probe(i)
		if !ok {
			t.Fatalf("Probe(%d) failed", i)
		}
		if d := dist(p.Position, input.Vec3{}); d > radius+1e-4 {
			t.Fatalf("particle %d spawned %.3f from origin, want <= %.1f", i, d, radius)
		}
		if p.Position != p.Home {
			t.Fatalf("particle %d spawned away from its home anchor", i)
		}
		if p.Velocity != (input.Vec3{}) {
			t.Fatalf("particle %d spawned moving", i)
		}
	}

	if _, ok := f.Probe(-1); ok {
		t.Error("Probe(-1) succeeded")
	}
	if _, ok := f.Probe(256); ok {
		t.Error("Probe(Count()) succeeded")
	}
}

func TestFieldIdleSettlesHome(t *testing.T) {
	f := newTestField(t, Options{Seed: 7})

	// Displace the whole cloud, then let the home spring pull it back.
	snap := f.Snapshot()
	for i := range snap.Particles {
		snap.Particles[i].X += 0.5
	}
	if err := f.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	for i := 0; i < 240; i++ {
		f.Step(DT)
	}

	var worst float64
	for i := 0; i < f.Count(); i++ {
		p, _ := f.Probe(i)
		if d := dist(p.Position, p.Home); d > worst {
			worst = d
		}
	}
	if worst > 0.05 {
		t.Errorf("worst home distance %.4f after settling, want < 0.05", worst)
	}
}

func TestFieldOpenHandAttracts(t *testing.T) {
	// Disable the home spring so attraction acts alone.
	cfg := *config.Cfg()
	cfg.Forces.ReturnHome = 0
	if err := cfg.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	f := newTestField(t, Options{Config: &cfg, Seed: 11})

	start, _ := f.Probe(0)
	palm := input.Vec3{X: start.Position.X + 6, Y: start.Position.Y, Z: start.Position.Z}
	pose := poseAt(palm)
	pose.IsOpen = true
	f.SetHands(input.Frame{Hands: []input.HandPose{pose}})

	prev := dist(start.Position, palm)
	for i := 0; i < 60; i++ {
		f.Step(DT)
		p, _ := f.Probe(0)
		d := dist(p.Position, palm)
		if i < 30 && d >= prev {
			t.Fatalf("distance %.4f did not shrink at tick %d (was %.4f)", d, i+1, prev)
		}
		prev = d
	}

	if prev > 3.5 {
		t.Errorf("particle %.2f from palm after 60 ticks, want < 3.5 (started at 6)", prev)
	}
}

func TestFieldPeaceSlowsTime(t *testing.T) {
	f := newTestField(t, Options{Seed: 3})

	pose := poseAt(input.Vec3{X: 2, Y: 2, Z: 0})
	pose.Gesture = input.GesturePeace
	f.SetHands(input.Frame{Hands: []input.HandPose{pose}})

	for i := 0; i < 120; i++ {
		f.Step(DT)
	}
	if ts := f.Params().TimeScale; ts > 0.1 {
		t.Errorf("time scale %.3f after 120 peace ticks, want < 0.1", ts)
	}

	// Releasing the gesture blends back toward real time.
	f.SetHands(input.Frame{})
	for i := 0; i < 120; i++ {
		f.Step(DT)
	}
	if ts := f.Params().TimeScale; ts < 0.9 {
		t.Errorf("time scale %.3f after release, want > 0.9", ts)
	}
}

func TestFieldSceneBlendsFriction(t *testing.T) {
	f := newTestField(t, Options{Seed: 5})

	f.ApplyScene(scene.Config{
		Primary:      scene.Color{R: 1, G: 0.2, B: 0.1},
		Secondary:    scene.Color{R: 0.1, G: 1, B: 0.2},
		Accent:       scene.Color{R: 0.2, G: 0.1, B: 1},
		Friction:     0.8,
		AttractForce: 0.006,
		RepelForce:   0.01,
		MaxSpeed:     0.5,
		ParticleSize: 1.5,
	})
	if !f.SceneActive() {
		t.Fatal("scene not active after ApplyScene")
	}

	f.Step(DT)
	after1 := f.Params().Friction
	if after1 <= 0.8 || after1 >= 0.95 {
		t.Errorf("friction %.4f one tick after apply, want strictly between 0.8 and 0.95", after1)
	}

	for i := 0; i < 240; i++ {
		f.Step(DT)
	}
	if got := f.Params().Friction; math.Abs(float64(got)-0.8) > 0.01 {
		t.Errorf("friction %.4f after blending, want ~0.8", got)
	}

	f.ClearScene()
	if f.SceneActive() {
		t.Fatal("scene still active after ClearScene")
	}
	for i := 0; i < 240; i++ {
		f.Step(DT)
	}
	if got := f.Params().Friction; math.Abs(float64(got)-0.95) > 0.01 {
		t.Errorf("friction %.4f after clearing, want ~0.95", got)
	}
}

func TestFieldColorChangeBounded(t *testing.T) {
	f := newTestField(t, Options{Seed: 31})

	// A saturated palette far from the resting color makes the targets jump.
	// The displayed channels still move by at most the smoothing rate per tick.
	f.ApplyScene(scene.Config{
		Primary:      scene.Color{R: 1, G: 0, B: 0},
		Secondary:    scene.Color{R: 0, G: 0, B: 1},
		Accent:       scene.Color{R: 0, G: 1, B: 0},
		Friction:     0.9,
		AttractForce: 0.004,
		RepelForce:   0.01,
		MaxSpeed:     0.6,
		ParticleSize: 1.2,
	})

	rate := float64(config.Cfg().Derived.ColorRate32)
	before := make([]float32, len(f.Colors()))

	for tick := 0; tick < 30; tick++ {
		copy(before, f.Colors())
		f.Step(DT)
		for i, c := range f.Colors() {
			if d := math.Abs(float64(c - before[i])); d > rate+1e-4 {
				t.Fatalf("color[%d] moved %.4f in one tick, want <= %.2f", i, d, rate)
			}
		}
	}
}

func TestFieldCompressionWindow(t *testing.T) {
	var windows []telemetry.WindowStats
	f := newTestField(t, Options{
		Seed:           9,
		StatsWindowSec: 0.5,
		StatsCallback:  func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	// Two palms 3.0 apart, below the 3.5 compression threshold.
	left := poseAt(input.Vec3{X: -1.5, Y: 0, Z: 0})
	right := poseAt(input.Vec3{X: 1.5, Y: 0, Z: 0})
	f.SetHands(input.Frame{Hands: []input.HandPose{left, right}})

	for i := 0; i < 31; i++ {
		f.Step(DT)
	}

	if len(windows) != 1 {
		t.Fatalf("got %d stats windows, want 1", len(windows))
	}
	w := windows[0]
	if w.Frames != 30 {
		t.Errorf("Frames = %d, want 30", w.Frames)
	}
	if w.TwoHandFrames != 30 {
		t.Errorf("TwoHandFrames = %d, want 30", w.TwoHandFrames)
	}
	if w.CompressionFrames != 30 {
		t.Errorf("CompressionFrames = %d, want 30", w.CompressionFrames)
	}
	if w.SpeedMean <= 0 {
		t.Error("cloud did not move under compression")
	}
}

func TestFieldAudioModeStaysBounded(t *testing.T) {
	bounces := 0
	f := newTestField(t, Options{
		Seed:           13,
		Mode:           scene.ModeAudio,
		StatsWindowSec: 0.5,
		StatsCallback:  func(s telemetry.WindowStats) { bounces += s.Bounces },
	})

	pose := poseAt(input.Vec3{X: 1, Y: 1, Z: 0})
	pose.Gesture = input.GestureRock
	f.SetHands(input.Frame{Hands: []input.HandPose{pose}})
	f.SetAudioLevel(1)

	limit := config.Cfg().Derived.Bounds32 + 1e-3
	for i := 0; i < 200; i++ {
		f.Step(DT)
		for _, v := range f.Positions() {
			if v > limit || v < -limit {
				t.Fatalf("coordinate %.4f outside the boundary at tick %d", v, i)
			}
		}
	}
	if bounces == 0 {
		t.Error("no boundary bounces recorded despite full audio drive")
	}
}

func TestFieldHealsInjectedNaN(t *testing.T) {
	f := newTestField(t, Options{Seed: 17, Particles: 128})

	snap := f.Snapshot()
	snap.Particles[0].X = float32(math.NaN())
	snap.Particles[0].VY = float32(math.NaN())
	snap.Particles[5].VZ = float32(math.Inf(1))
	if err := f.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	f.Step(DT)

	for i := 0; i < f.Count(); i++ {
		p, _ := f.Probe(i)
		for _, v := range [...]float32{
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Velocity.X, p.Velocity.Y, p.Velocity.Z,
		} {
			f64 := float64(v)
			if math.IsNaN(f64) || math.IsInf(f64, 0) {
				t.Fatalf("particle %d carries non-finite state after the heal tick", i)
			}
		}
	}
}

func TestFieldDeterministicReplay(t *testing.T) {
	run := func() []float32 {
		f := newTestField(t, Options{Seed: 99, Particles: 9000, Mode: scene.ModeAudio})

		pose := poseAt(input.Vec3{X: 2, Y: 1, Z: 0})
		pose.IsOpen = true
		pose.Gesture = input.GestureRock
		f.SetHands(input.Frame{Hands: []input.HandPose{pose}})
		f.SetAudioLevel(0.7)

		for i := 0; i < 30; i++ {
			f.Step(DT)
		}
		out := make([]float32, len(f.Positions()))
		copy(out, f.Positions())
		return out
	}

	a := run()
	b := run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position[%d] differs between identical runs: %g vs %g", i, a[i], b[i])
		}
	}
}

func TestFieldSnapshotRestoreContinuity(t *testing.T) {
	a := newTestField(t, Options{Seed: 21})
	a.ApplyScene(scene.Config{
		Primary:      scene.Color{R: 0.9, G: 0.1, B: 0.1},
		Secondary:    scene.Color{R: 0.1, G: 0.9, B: 0.1},
		Accent:       scene.Color{R: 0.1, G: 0.1, B: 0.9},
		Friction:     0.9,
		AttractForce: 0.004,
		RepelForce:   0.01,
		MaxSpeed:     0.6,
		ParticleSize: 1.2,
		ShapeVertices: []input.Vec3{
			{X: 3, Y: 0, Z: 0},
			{X: -3, Y: 0, Z: 0},
			{X: 0, Y: 3, Z: 0},
		},
	})
	for i := 0; i < 20; i++ {
		a.Step(DT)
	}
	snap := a.Snapshot()

	b := newTestField(t, Options{Seed: snap.Seed})
	if err := b.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if b.Tick() != a.Tick() {
		t.Fatalf("restored tick %d, want %d", b.Tick(), a.Tick())
	}
	if !b.SceneActive() {
		t.Fatal("restored field lost the active scene")
	}

	for i := 0; i < 15; i++ {
		a.Step(DT)
		b.Step(DT)
	}

	pa, pb := a.Positions(), b.Positions()
	for i := range pa {
		if pa[i] != pb[i] {
			t.Fatalf("position[%d] diverged after restore: %g vs %g", i, pa[i], pb[i])
		}
	}
	ca, cb := a.Colors(), b.Colors()
	for i := range ca {
		if ca[i] != cb[i] {
			t.Fatalf("color[%d] diverged after restore: %g vs %g", i, ca[i], cb[i])
		}
	}
}

func TestFieldRestoreRejectsMismatch(t *testing.T) {
	f := newTestField(t, Options{Seed: 23, Particles: 64})
	snap := f.Snapshot()

	snap.Version++
	if err := f.Restore(snap); err == nil {
		t.Error("Restore accepted a version mismatch")
	}
	snap.Version--

	snap.Particles = snap.Particles[:32]
	if err := f.Restore(snap); err == nil {
		t.Error("Restore accepted a particle count mismatch")
	}
}

func TestFieldClipsExtraHands(t *testing.T) {
	var windows []telemetry.WindowStats
	f := newTestField(t, Options{
		Seed:           27,
		StatsWindowSec: 0.5,
		StatsCallback:  func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	f.SetHands(input.Frame{Hands: []input.HandPose{
		poseAt(input.Vec3{X: -4, Y: 0, Z: 0}),
		poseAt(input.Vec3{X: 4, Y: 0, Z: 0}),
		poseAt(input.Vec3{X: 0, Y: 4, Z: 0}),
	}})

	for i := 0; i < 31; i++ {
		f.Step(DT)
	}

	if len(windows) != 1 {
		t.Fatalf("got %d stats windows, want 1", len(windows))
	}
	if windows[0].TwoHandFrames != 30 {
		t.Errorf("TwoHandFrames = %d, want 30 (third hand should be dropped)", windows[0].TwoHandFrames)
	}
}

func TestFieldModeSwitchCounted(t *testing.T) {
	var windows []telemetry.WindowStats
	f := newTestField(t, Options{
		Seed:           29,
		StatsWindowSec: 0.5,
		StatsCallback:  func(s telemetry.WindowStats) { windows = append(windows, s) },
	})

	f.SetMode(scene.ModeDrawing)
	f.SetMode(scene.ModeDrawing) // repeat is a no-op
	if f.Mode() != scene.ModeDrawing {
		t.Fatalf("Mode() = %v, want drawing", f.Mode())
	}

	for i := 0; i < 31; i++ {
		f.Step(DT)
	}

	if len(windows) != 1 {
		t.Fatalf("got %d stats windows, want 1", len(windows))
	}
	if windows[0].ModeSwitches != 1 {
		t.Errorf("ModeSwitches = %d, want 1", windows[0].ModeSwitches)
	}
	if windows[0].Mode != "drawing" {
		t.Errorf("Mode = %q, want %q", windows[0].Mode, "drawing")
	}
}
