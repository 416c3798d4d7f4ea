// Package field runs the particle simulation: a fixed cloud of particles in
// an ECS world, advanced at a nominal 60 Hz by hand poses, gestures, audio
// level, and scene configuration. The field owns the worker pool, the
// parameter blender, and the telemetry pipeline; hosts feed it inputs
// between ticks and read the flat render buffers after each Step.
package field

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/driftfield/components"
	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
	"github.com/pthm-cable/driftfield/systems"
	"github.com/pthm-cable/driftfield/telemetry"
)

// DT is the nominal tick length in seconds.
const DT = 1.0 / 60.0

// maxDT caps the wall-clock delta fed into a tick. A host stalled for a
// second must not inject a second-long integration step.
const maxDT = 0.1

// Options configures a new field. Zero values fall back to the loaded
// config.
type Options struct {
	Config    *config.Config
	Seed      int64
	Particles int
	Mode      scene.Mode

	// LogStats emits window stats and perf summaries to the logger.
	LogStats bool

	// StatsWindowSec overrides telemetry.stats_window when positive.
	StatsWindowSec float64

	// OutputDir enables CSV telemetry output when non-empty.
	OutputDir string

	// SnapshotDir enables snapshot capture on detected moments.
	SnapshotDir string

	// StatsCallback receives every flushed stats window.
	StatsCallback func(telemetry.WindowStats)
}

// Field is the running simulation.
type Field struct {
	world *ecs.World
	cfg   *config.Config
	rng   *rand.Rand
	seed  int64

	particleMapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Home,
		components.ShapeTarget,
		components.Tint,
		components.Size,
	]
	particleFilter *ecs.Filter6[
		components.Position,
		components.Velocity,
		components.Home,
		components.ShapeTarget,
		components.Tint,
		components.Size,
	]

	posMap  *ecs.Map1[components.Position]
	velMap  *ecs.Map1[components.Velocity]
	homeMap *ecs.Map1[components.Home]
	tintMap *ecs.Map1[components.Tint]
	sizeMap *ecs.Map1[components.Size]

	// entities is indexed by particle index; the cloud never grows or
	// shrinks after spawn.
	entities []ecs.Entity

	// Inputs applied at tick boundaries, already in simulation space.
	hands   []input.HandPose
	present [input.MaxHands]bool
	audio   float32
	mode    scene.Mode
	scn     *scene.Config

	lastGesture input.Gesture

	smoother   *input.Smoother
	blender    *systems.Blender
	flow       *systems.FlowField
	baseTuning systems.Tuning

	// Per-tick scratch, reused to keep the hot path allocation-free.
	tuning  systems.Tuning
	ctx     systems.ForceContext
	handCtx []systems.HandContext
	track   []input.Vec3

	tick    int32
	elapsed float32

	// Flat render buffers, refreshed every tick.
	positions []float32
	colors    []float32
	sizes     []float32

	parallel *parallelState

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	moments   *telemetry.MomentDetector
	sessions  *telemetry.SessionTracker
	output    *telemetry.OutputManager

	logStats      bool
	snapshotDir   string
	statsCallback func(telemetry.WindowStats)
}

// New builds a field and spawns its particle cloud.
func New(opts Options) (*Field, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}

	count := opts.Particles
	if count <= 0 {
		count = cfg.Particles.Count
	}
	if count < 1 {
		return nil, fmt.Errorf("particle count %d, want at least 1", count)
	}

	windowSec := opts.StatsWindowSec
	if windowSec <= 0 {
		windowSec = cfg.Telemetry.StatsWindow
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output manager: %w", err)
	}
	if output != nil {
		if err := output.WriteConfig(cfg); err != nil {
			slog.Warn("failed to write config copy", "error", err)
		}
	}

	world := ecs.NewWorld()
	d := &cfg.Derived

	f := &Field{
		world: world,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		seed:  opts.Seed,
		mode:  opts.Mode,

		particleMapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Home,
			components.ShapeTarget,
			components.Tint,
			components.Size,
		](world),
		particleFilter: ecs.NewFilter6[
			components.Position,
			components.Velocity,
			components.Home,
			components.ShapeTarget,
			components.Tint,
			components.Size,
		](world),
		posMap:  ecs.NewMap1[components.Position](world),
		velMap:  ecs.NewMap1[components.Velocity](world),
		homeMap: ecs.NewMap1[components.Home](world),
		tintMap: ecs.NewMap1[components.Tint](world),
		sizeMap: ecs.NewMap1[components.Size](world),

		entities:  make([]ecs.Entity, 0, count),
		positions: make([]float32, count*3),
		colors:    make([]float32, count*3),
		sizes:     make([]float32, count),

		smoother: input.NewSmoother(),
		flow:     systems.NewFlowField(opts.Seed, d.FlowScale32),

		parallel: newParallelState(count),

		collector: telemetry.NewCollector(windowSec, DT),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		moments:   telemetry.NewMomentDetector(cfg.Telemetry.MomentHistorySize, cfg.Moments),
		sessions:  telemetry.NewSessionTracker(),
		output:    output,

		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
	}

	f.baseTuning = systems.TuningFromConfig(d)
	f.blender = systems.NewBlender(d.BlendRate32, systems.BlendedParams{
		Friction:  d.Friction32,
		Attract:   d.AttractStrength32,
		TimeScale: 1,
		Chaos:     0,
		Align:     0,
	})

	f.spawnParticles(count)

	slog.Info("field ready",
		"particles", count,
		"seed", opts.Seed,
		"mode", f.mode.String(),
		"workers", f.parallel.numWorkers,
	)
	return f, nil
}

// spawnParticles fills the world with the particle cloud. Each particle's
// home anchor is its spawn position inside the spawn ball.
func (f *Field) spawnParticles(count int) {
	d := &f.cfg.Derived
	r0, g0, b0 := systems.BaseColor(&f.baseTuning)

	for i := 0; i < count; i++ {
		p := f.randomInBall(d.SpawnRadius32)

		pos := components.Position{X: p.X, Y: p.Y, Z: p.Z}
		vel := components.Velocity{}
		home := components.Home{X: p.X, Y: p.Y, Z: p.Z}
		st := components.ShapeTarget{Index: uint32(i)}
		tint := components.Tint{R: r0, G: g0, B: b0}
		size := components.Size{Value: d.BaseSize32}

		entity := f.particleMapper.NewEntity(&pos, &vel, &home, &st, &tint, &size)
		f.entities = append(f.entities, entity)

		k := i * 3
		f.positions[k] = pos.X
		f.positions[k+1] = pos.Y
		f.positions[k+2] = pos.Z
		f.colors[k] = tint.R
		f.colors[k+1] = tint.G
		f.colors[k+2] = tint.B
		f.sizes[i] = size.Value
	}
}

// randomInBall returns a point uniformly distributed inside a sphere of the
// given radius, by rejection sampling.
func (f *Field) randomInBall(radius float32) input.Vec3 {
	for {
		x := f.rng.Float32()*2 - 1
		y := f.rng.Float32()*2 - 1
		z := f.rng.Float32()*2 - 1
		if x*x+y*y+z*z <= 1 {
			return input.Vec3{X: x * radius, Y: y * radius, Z: z * radius}
		}
	}
}

// SetHands replaces the detected hands used from the next tick on. Poses
// arrive in normalized capture space and are clipped and transformed into
// simulation space here, so the per-tick path never touches raw input.
func (f *Field) SetHands(frame input.Frame) {
	frame = frame.Clip()
	d := &f.cfg.Derived

	f.hands = f.hands[:0]
	for _, h := range frame.Hands {
		f.hands = append(f.hands, input.PoseToSim(h, d.InputScaleX32, d.InputScaleY32, d.InputScaleZ32))
	}
}

// SetAudioLevel replaces the audio level used from the next tick on.
// Non-finite values become silence.
func (f *Field) SetAudioLevel(level float32) {
	v, _ := systems.Sanitize(level)
	f.audio = systems.Clamp01(v)
}

// SetMode switches the interaction mode. The landmark smoother resets so a
// later silhouette does not lerp from stale positions.
func (f *Field) SetMode(m scene.Mode) {
	if m == f.mode {
		return
	}
	f.mode = m
	f.smoother.Reset()
	f.recordEvent(telemetry.NewModeChangeEvent(f.tick, m.String()))
}

// ApplyScene installs a scene configuration. Malformed fields are replaced
// with config defaults; friction, attraction, and the palette reach the
// simulation through the blender rather than jumping.
func (f *Field) ApplyScene(sc scene.Config) {
	clean := sc.Sanitized(f.cfg)
	f.scn = &clean

	f.blender.SetMotionTargets(float32(clean.Friction), float32(clean.AttractForce))

	r, g, b := systems.BaseColor(&f.baseTuning)
	f.blender.ActivatePalette(clean.Primary, clean.Secondary, clean.Accent, scene.Color{R: r, G: g, B: b})

	f.recordEvent(telemetry.NewSceneAppliedEvent(f.tick))
}

// ClearScene removes the active scene and retargets the blender at the
// config defaults. A no-op when no scene is active.
func (f *Field) ClearScene() {
	if f.scn == nil {
		return
	}
	f.scn = nil

	d := &f.cfg.Derived
	f.blender.SetMotionTargets(d.Friction32, d.AttractStrength32)
	f.blender.DeactivatePalette()

	f.recordEvent(telemetry.NewSceneClearedEvent(f.tick))
}

// Step advances the simulation one tick. dt is wall seconds since the last
// call and only drives the elapsed clock used by wave and spin phases; the
// particle math itself is per-tick.
func (f *Field) Step(dt float32) {
	if dt != dt || dt <= 0 {
		dt = DT
	} else if dt > maxDT {
		dt = maxDT
	}

	f.perf.StartTick()

	f.perf.StartPhase(telemetry.PhaseInput)
	f.observeInputs()

	f.perf.StartPhase(telemetry.PhaseBlend)
	f.blender.SetGesture(f.lastGesture)
	f.blender.Step()
	f.smoother.Update(f.hands, f.cfg.Derived.SilhouetteSmoothing32)
	ctx := f.buildContext()

	f.perf.StartPhase(telemetry.PhaseCompute)
	n := f.snapshotParticles()
	f.computeParticles(n, ctx)

	f.perf.StartPhase(telemetry.PhaseApply)
	heals, bounces := f.applyIntents()

	f.perf.StartPhase(telemetry.PhaseOutput)
	f.fillOutputs()

	f.perf.StartPhase(telemetry.PhaseTelemetry)
	// Flush before recording so each window holds exactly one window's
	// worth of frames.
	f.flushTelemetry()
	if heals > 0 {
		f.recordEvent(telemetry.NewHealEvent(f.tick, heals))
	}
	f.collector.RecordFrame(telemetry.FrameSample{
		HandCount:   len(f.hands),
		Gesture:     f.lastGesture,
		TwoHands:    len(f.hands) == 2,
		Compressing: ctx.Compressing,
		Audio:       f.audio,
		Heals:       heals,
		Bounces:     bounces,
	})

	f.perf.EndTick()

	f.tick++
	f.elapsed += dt
}

// observeInputs updates hand sessions, presence edges, and the resolved
// gesture before the tick's parameters are built.
func (f *Field) observeInputs() {
	for _, s := range f.sessions.Observe(f.tick, f.hands) {
		s.LogSession(DT)
	}

	for i := 0; i < input.MaxHands; i++ {
		present := i < len(f.hands)
		if present && !f.present[i] {
			f.recordEvent(telemetry.NewHandEnterEvent(f.tick, i))
		} else if !present && f.present[i] {
			f.recordEvent(telemetry.NewHandExitEvent(f.tick, i))
		}
		f.present[i] = present
	}

	// First non-idle gesture wins when both hands signal at once.
	resolved := input.GestureNone
	slot := 0
	for i := range f.hands {
		if g := f.hands[i].Gesture; g != input.GestureNone {
			resolved = g
			slot = i
			break
		}
	}
	if resolved != f.lastGesture {
		f.recordEvent(telemetry.NewGestureChangeEvent(f.tick, slot, resolved))
		f.lastGesture = resolved
	}
}

// buildContext assembles the read-only per-tick context shared by all
// workers. The tuning copy picks up the mode's boundary policy and any
// active scene overrides without touching the base table.
func (f *Field) buildContext() *systems.ForceContext {
	d := &f.cfg.Derived

	f.tuning = f.baseTuning
	f.tuning.Reflect = systems.ReflectFor(d, f.mode)
	if f.scn != nil {
		f.tuning.ApplyScene(f.scn)
	}

	f.handCtx = f.handCtx[:0]
	for i := range f.hands {
		h := &f.hands[i]
		f.handCtx = append(f.handCtx, systems.HandContext{
			Palm:       h.Palm,
			IsOpen:     h.IsOpen,
			IsPinching: h.IsPinching,
			Gesture:    h.Gesture,
		})
	}

	var compressing bool
	var mid input.Vec3
	var handDist float32
	if len(f.hands) == 2 {
		p0 := f.hands[0].Palm
		p1 := f.hands[1].Palm
		dx := p1.X - p0.X
		dy := p1.Y - p0.Y
		dz := p1.Z - p0.Z
		handDist = float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
		if handDist < f.tuning.CompThreshold {
			compressing = true
			mid = input.Vec3{
				X: (p0.X + p1.X) * 0.5,
				Y: (p0.Y + p1.Y) * 0.5,
				Z: (p0.Z + p1.Z) * 0.5,
			}
		}
	}

	f.track = f.track[:0]
	if f.mode == scene.ModeSilhouette {
		for slot := 0; slot < input.MaxHands; slot++ {
			if lms, ok := f.smoother.Landmarks(slot); ok {
				f.track = append(f.track, lms[:]...)
			}
		}
	}

	var shape []input.Vec3
	if f.scn != nil && len(f.scn.ShapeVertices) > 0 {
		shape = f.scn.ShapeVertices
	}

	primary, secondary, accent, active := f.blender.Palette()

	f.ctx = systems.ForceContext{
		Tuning: &f.tuning,
		Params: f.blender.Current(),
		Mode:   f.mode,

		Hands:       f.handCtx,
		Compressing: compressing,
		Mid:         mid,
		HandDist:    handDist,

		Track: f.track,
		Shape: shape,

		Palette: systems.ScenePalette{
			Primary:   primary,
			Secondary: secondary,
			Accent:    accent,
			Active:    active,
		},
		Audio:   f.audio,
		Elapsed: f.elapsed,
		Flow:    f.flow,
	}
	return &f.ctx
}

// recordEvent routes an event to the window collector and the logger.
func (f *Field) recordEvent(ev telemetry.Event) {
	f.collector.Record(ev)

	switch ev.Type {
	case telemetry.EventModeChange:
		slog.Info("mode change", "tick", ev.Tick, "mode", ev.Mode)
	case telemetry.EventSceneApplied, telemetry.EventSceneCleared:
		slog.Info(ev.Type.String(), "tick", ev.Tick)
	case telemetry.EventGestureChange:
		slog.Debug("gesture change", "tick", ev.Tick, "slot", ev.Slot, "gesture", ev.Gesture.String())
	case telemetry.EventHeal:
		slog.Debug("healed non-finite values", "tick", ev.Tick, "count", ev.Count)
	default:
		slog.Debug(ev.Type.String(), "tick", ev.Tick, "slot", ev.Slot)
	}
}

// Positions returns the flat [x y z] render buffer, refreshed every tick.
// The slice is valid until the next Step; callers must not mutate it.
func (f *Field) Positions() []float32 { return f.positions }

// Colors returns the flat [r g b] render buffer.
func (f *Field) Colors() []float32 { return f.colors }

// Sizes returns the per-particle size buffer.
func (f *Field) Sizes() []float32 { return f.sizes }

// Count returns the particle count, fixed for the field's lifetime.
func (f *Field) Count() int { return len(f.entities) }

// Tick returns the current tick number.
func (f *Field) Tick() int32 { return f.tick }

// Elapsed returns the accumulated simulated seconds.
func (f *Field) Elapsed() float32 { return f.elapsed }

// Mode returns the active interaction mode.
func (f *Field) Mode() scene.Mode { return f.mode }

// Seed returns the run seed.
func (f *Field) Seed() int64 { return f.seed }

// Params returns the blended parameter values as of the last tick.
func (f *Field) Params() systems.BlendedParams { return f.blender.Current() }

// SceneActive reports whether a scene configuration is installed.
func (f *Field) SceneActive() bool { return f.scn != nil }

// ParticleProbe is a readback of one particle's full state.
type ParticleProbe struct {
	Index    int
	Position input.Vec3
	Velocity input.Vec3
	Home     input.Vec3
	Color    scene.Color
	Size     float32
}

// Probe returns one particle's state by index for debugging hosts.
func (f *Field) Probe(i int) (ParticleProbe, bool) {
	if i < 0 || i >= len(f.entities) {
		return ParticleProbe{}, false
	}

	e := f.entities[i]
	pos := f.posMap.Get(e)
	vel := f.velMap.Get(e)
	home := f.homeMap.Get(e)
	tint := f.tintMap.Get(e)
	size := f.sizeMap.Get(e)
	if pos == nil || vel == nil || home == nil || tint == nil || size == nil {
		return ParticleProbe{}, false
	}

	return ParticleProbe{
		Index:    i,
		Position: input.Vec3{X: pos.X, Y: pos.Y, Z: pos.Z},
		Velocity: input.Vec3{X: vel.X, Y: vel.Y, Z: vel.Z},
		Home:     input.Vec3{X: home.X, Y: home.Y, Z: home.Z},
		Color:    scene.Color{R: tint.R, G: tint.G, B: tint.B},
		Size:     size.Value,
	}, true
}

// Close stops the worker pool, logs any open hand sessions, and flushes
// output files.
func (f *Field) Close() error {
	f.parallel.stopWorkers()
	for _, s := range f.sessions.Drain() {
		s.LogSession(DT)
	}
	return f.output.Close()
}
