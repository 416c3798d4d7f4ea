package field

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/driftfield/components"
	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
	"github.com/pthm-cable/driftfield/systems"
	"github.com/pthm-cable/driftfield/telemetry"
)

// flushTelemetry closes the current stats window when due: samples motion
// distributions, flushes the collector, writes output files, and runs
// moment detection.
func (f *Field) flushTelemetry() {
	if !f.collector.ShouldFlush(f.tick) {
		return
	}

	speeds, homeDists := f.sampleMotionStats()

	stats := f.collector.Flush(f.tick, len(f.entities), f.mode.String(), speeds, homeDists)
	perfStats := f.perf.Stats()

	if f.statsCallback != nil {
		f.statsCallback(stats)
	}

	if f.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if f.output != nil {
		if err := f.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := f.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf stats", "error", err)
		}
	}

	for _, m := range f.moments.Check(stats) {
		if f.logStats {
			m.LogMoment()
		}
		if f.output != nil {
			if err := f.output.WriteMoment(m); err != nil {
				slog.Error("failed to write moment", "error", err)
			}
		}
		if f.snapshotDir != "" {
			f.saveSnapshot(&m)
		}
	}
}

// sampleMotionStats gathers per-particle speed and home-anchor distance,
// sampling every Nth particle per the configured stride.
func (f *Field) sampleMotionStats() (speeds, homeDists []float64) {
	stride := f.cfg.Telemetry.SpeedSampleStride
	if stride < 1 {
		stride = 1
	}

	n := len(f.entities)
	speeds = make([]float64, 0, n/stride+1)
	homeDists = make([]float64, 0, n/stride+1)

	for i := 0; i < n; i += stride {
		e := f.entities[i]
		pos := f.posMap.Get(e)
		vel := f.velMap.Get(e)
		home := f.homeMap.Get(e)
		if pos == nil || vel == nil || home == nil {
			continue
		}

		speeds = append(speeds,
			math.Sqrt(float64(vel.X*vel.X+vel.Y*vel.Y+vel.Z*vel.Z)))

		dx := float64(pos.X - home.X)
		dy := float64(pos.Y - home.Y)
		dz := float64(pos.Z - home.Z)
		homeDists = append(homeDists, math.Sqrt(dx*dx+dy*dy+dz*dz))
	}
	return speeds, homeDists
}

// saveSnapshot writes a moment-tagged snapshot to the snapshot directory.
func (f *Field) saveSnapshot(m *telemetry.Moment) {
	path, err := telemetry.SaveSnapshot(f.buildSnapshot(m), f.snapshotDir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "tick", f.tick, "moment", string(m.Type))
}

// Snapshot captures the complete field state.
func (f *Field) Snapshot() *telemetry.Snapshot {
	return f.buildSnapshot(nil)
}

func (f *Field) buildSnapshot(m *telemetry.Moment) *telemetry.Snapshot {
	cur := f.blender.Current()
	primary, secondary, accent, active := f.blender.Palette()

	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Seed:    f.seed,
		Tick:    f.tick,
		Elapsed: f.elapsed,
		Mode:    f.mode.String(),
		Audio:   f.audio,
		Blend: telemetry.BlendState{
			Friction:  cur.Friction,
			Attract:   cur.Attract,
			TimeScale: cur.TimeScale,
			Chaos:     cur.Chaos,
			Align:     cur.Align,
			Palette: [3][3]float32{
				{primary.R, primary.G, primary.B},
				{secondary.R, secondary.G, secondary.B},
				{accent.R, accent.G, accent.B},
			},
			PaletteActive: active,
		},
		Moment: m,
	}

	if f.scn != nil {
		snap.Scene = sceneToState(f.scn)
	}

	snap.Particles = make([]telemetry.ParticleState, 0, len(f.entities))
	for _, e := range f.entities {
		pos := f.posMap.Get(e)
		vel := f.velMap.Get(e)
		home := f.homeMap.Get(e)
		tint := f.tintMap.Get(e)
		size := f.sizeMap.Get(e)
		if pos == nil || vel == nil || home == nil || tint == nil || size == nil {
			continue
		}
		snap.Particles = append(snap.Particles, telemetry.ParticleState{
			X: pos.X, Y: pos.Y, Z: pos.Z,
			VX: vel.X, VY: vel.Y, VZ: vel.Z,
			HX: home.X, HY: home.Y, HZ: home.Z,
			R: tint.R, G: tint.G, B: tint.B,
			Size: size.Value,
		})
	}
	return snap
}

// Restore rewinds the field to a previously captured snapshot. The particle
// count must match the running field. Blend state is restored exactly, so a
// resumed run continues its transition curves instead of snapping.
func (f *Field) Restore(snap *telemetry.Snapshot) error {
	if snap.Version != telemetry.SnapshotVersion {
		return fmt.Errorf("snapshot version %d, want %d", snap.Version, telemetry.SnapshotVersion)
	}
	if len(snap.Particles) != len(f.entities) {
		return fmt.Errorf("snapshot has %d particles, field has %d", len(snap.Particles), len(f.entities))
	}

	mode, err := scene.ParseMode(snap.Mode)
	if err != nil {
		return fmt.Errorf("restore mode: %w", err)
	}

	f.tick = snap.Tick
	f.elapsed = snap.Elapsed
	f.mode = mode
	f.audio = snap.Audio
	f.hands = f.hands[:0]
	f.present = [input.MaxHands]bool{}
	f.lastGesture = input.GestureNone
	f.smoother.Reset()

	f.blender.SetCurrent(systems.BlendedParams{
		Friction:  snap.Blend.Friction,
		Attract:   snap.Blend.Attract,
		TimeScale: snap.Blend.TimeScale,
		Chaos:     snap.Blend.Chaos,
		Align:     snap.Blend.Align,
	})
	f.blender.SetPaletteState([3]scene.Color{
		{R: snap.Blend.Palette[0][0], G: snap.Blend.Palette[0][1], B: snap.Blend.Palette[0][2]},
		{R: snap.Blend.Palette[1][0], G: snap.Blend.Palette[1][1], B: snap.Blend.Palette[1][2]},
		{R: snap.Blend.Palette[2][0], G: snap.Blend.Palette[2][1], B: snap.Blend.Palette[2][2]},
	}, snap.Blend.PaletteActive)

	if snap.Scene != nil {
		sc := stateToScene(snap.Scene)
		f.scn = &sc
		// Re-arm the blend targets the scene had set; the running values
		// stay where the snapshot put them.
		f.blender.SetMotionTargets(float32(sc.Friction), float32(sc.AttractForce))
		f.blender.ActivatePalette(sc.Primary, sc.Secondary, sc.Accent, sc.Primary)
	} else {
		f.scn = nil
	}

	for i, e := range f.entities {
		ps := &snap.Particles[i]
		if pos := f.posMap.Get(e); pos != nil {
			*pos = components.Position{X: ps.X, Y: ps.Y, Z: ps.Z}
		}
		if vel := f.velMap.Get(e); vel != nil {
			*vel = components.Velocity{X: ps.VX, Y: ps.VY, Z: ps.VZ}
		}
		if home := f.homeMap.Get(e); home != nil {
			*home = components.Home{X: ps.HX, Y: ps.HY, Z: ps.HZ}
		}
		if tint := f.tintMap.Get(e); tint != nil {
			*tint = components.Tint{R: ps.R, G: ps.G, B: ps.B}
		}
		if size := f.sizeMap.Get(e); size != nil {
			*size = components.Size{Value: ps.Size}
		}

		k := i * 3
		f.positions[k] = ps.X
		f.positions[k+1] = ps.Y
		f.positions[k+2] = ps.Z
		f.colors[k] = ps.R
		f.colors[k+1] = ps.G
		f.colors[k+2] = ps.B
		f.sizes[i] = ps.Size
	}
	return nil
}

func sceneToState(sc *scene.Config) *telemetry.SceneState {
	st := &telemetry.SceneState{
		Primary:   [3]float32{sc.Primary.R, sc.Primary.G, sc.Primary.B},
		Secondary: [3]float32{sc.Secondary.R, sc.Secondary.G, sc.Secondary.B},
		Accent:    [3]float32{sc.Accent.R, sc.Accent.G, sc.Accent.B},

		Friction:     sc.Friction,
		AttractForce: sc.AttractForce,
		RepelForce:   sc.RepelForce,
		MaxSpeed:     sc.MaxSpeed,
		ParticleSize: sc.ParticleSize,
	}
	for _, v := range sc.ShapeVertices {
		st.ShapeVertices = append(st.ShapeVertices, [3]float32{v.X, v.Y, v.Z})
	}
	return st
}

func stateToScene(st *telemetry.SceneState) scene.Config {
	sc := scene.Config{
		Primary:   scene.Color{R: st.Primary[0], G: st.Primary[1], B: st.Primary[2]},
		Secondary: scene.Color{R: st.Secondary[0], G: st.Secondary[1], B: st.Secondary[2]},
		Accent:    scene.Color{R: st.Accent[0], G: st.Accent[1], B: st.Accent[2]},

		Friction:     st.Friction,
		AttractForce: st.AttractForce,
		RepelForce:   st.RepelForce,
		MaxSpeed:     st.MaxSpeed,
		ParticleSize: st.ParticleSize,
	}
	for _, v := range st.ShapeVertices {
		sc.ShapeVertices = append(sc.ShapeVertices, input.Vec3{X: v[0], Y: v[1], Z: v[2]})
	}
	return sc
}
