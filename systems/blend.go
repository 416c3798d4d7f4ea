package systems

import (
	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
)

// BlendedParams are the simulation scalars that never jump: every change of
// target (gesture, scene apply/clear) reaches the running values only
// through per-frame interpolation.
type BlendedParams struct {
	Friction  float32 // Per-tick velocity multiplier
	Attract   float32 // Open-hand attraction gain
	TimeScale float32 // Multiplier on per-tick displacement
	Chaos     float32 // Chaos jitter level in [0,1]
	Align     float32 // Grid alignment level in [0,1]
}

// GestureTargets returns the time-scale, chaos, and alignment targets a
// gesture requests. Gestures outside the table request the defaults.
func GestureTargets(g input.Gesture) (timeScale, chaos, align float32) {
	switch g {
	case input.GesturePeace:
		return 0.08, 0, 0
	case input.GestureRock:
		return 1, 1, 0
	case input.GestureThumbsUp:
		return 1, 0, 1
	default:
		return 1, 0, 0
	}
}

// Blender interpolates the blended parameters and the active scene palette
// toward their targets by a fixed per-frame factor. Targets may be reset
// every tick; the running values converge exponentially.
type Blender struct {
	cur  BlendedParams
	tgt  BlendedParams
	rate float32

	palette    [3]scene.Color // primary, secondary, accent
	paletteTgt [3]scene.Color
	paletteOn  bool
}

// NewBlender starts with current values equal to the defaults. This is the
// one permitted discontinuity, at initialization.
func NewBlender(rate float32, defaults BlendedParams) *Blender {
	return &Blender{cur: defaults, tgt: defaults, rate: rate}
}

// SetGesture retargets the gesture-driven scalars.
func (b *Blender) SetGesture(g input.Gesture) {
	b.tgt.TimeScale, b.tgt.Chaos, b.tgt.Align = GestureTargets(g)
}

// SetMotionTargets retargets friction and attraction strength, as when a
// scene configuration is applied or cleared.
func (b *Blender) SetMotionTargets(friction, attract float32) {
	b.tgt.Friction = friction
	b.tgt.Attract = attract
}

// ActivatePalette begins blending the palette channels toward a scene's
// colors. seed is the color the running palette starts from when no palette
// was active, so activation itself does not jump.
func (b *Blender) ActivatePalette(primary, secondary, accent, seed scene.Color) {
	if !b.paletteOn {
		b.palette = [3]scene.Color{seed, seed, seed}
		b.paletteOn = true
	}
	b.paletteTgt = [3]scene.Color{primary, secondary, accent}
}

// DeactivatePalette stops palette blending. Per-particle color smoothing
// carries the visual transition back to the computed colors.
func (b *Blender) DeactivatePalette() {
	b.paletteOn = false
}

// Step advances every running value toward its target by the blend rate.
func (b *Blender) Step() {
	b.cur.Friction = Lerp(b.cur.Friction, b.tgt.Friction, b.rate)
	b.cur.Attract = Lerp(b.cur.Attract, b.tgt.Attract, b.rate)
	b.cur.TimeScale = Lerp(b.cur.TimeScale, b.tgt.TimeScale, b.rate)
	b.cur.Chaos = Lerp(b.cur.Chaos, b.tgt.Chaos, b.rate)
	b.cur.Align = Lerp(b.cur.Align, b.tgt.Align, b.rate)
	if b.paletteOn {
		for i := range b.palette {
			b.palette[i] = b.palette[i].Lerp(b.paletteTgt[i], b.rate)
		}
	}
}

// Current returns the running parameter values.
func (b *Blender) Current() BlendedParams {
	return b.cur
}

// Targets returns the current targets.
func (b *Blender) Targets() BlendedParams {
	return b.tgt
}

// Palette returns the running palette channels and whether a palette is
// active.
func (b *Blender) Palette() (primary, secondary, accent scene.Color, active bool) {
	return b.palette[0], b.palette[1], b.palette[2], b.paletteOn
}

// SetCurrent overwrites the running values, used when restoring a snapshot.
func (b *Blender) SetCurrent(p BlendedParams) {
	b.cur = p
	b.tgt = p
}

// SetPaletteState overwrites the running palette, used when restoring a
// snapshot taken mid-blend.
func (b *Blender) SetPaletteState(palette [3]scene.Color, active bool) {
	b.palette = palette
	b.paletteTgt = palette
	b.paletteOn = active
}
