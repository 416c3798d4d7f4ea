package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
)

// minDist guards force normalization. A particle closer to a source than
// this contributes no directed force that tick instead of dividing by zero.
const minDist = 1e-4

// Tuning holds the force, motion, and color constants for a tick as flat
// float32 values. It is copied from the loaded config once and adjusted for
// the active scene and mode, so workers never touch the config itself.
type Tuning struct {
	Bounds float32

	AttractFalloff   float32
	AttractFalloffSq float32
	PointerMult      float32
	RepelFalloff     float32
	RepelFalloffSq   float32
	RepelStrength    float32
	ReturnHome       float32
	ShapeGain        float32

	SilStrength float32
	SilDamping  float32

	CompThreshold float32
	CompRadius    float32
	CompRadiusSq  float32
	CompStrength  float32
	CompSpin      float32
	CompDamping   float32

	ChaosAmplitude float32
	ChaosMinLevel  float32

	AlignCell     float32
	AlignRate     float32
	AlignMinLevel float32

	AudioNoise    float32
	AudioWave     float32
	AudioWaveFreq float32
	FlowGain      float32

	MaxSpeed   float32
	MaxSpeedSq float32
	Reflect    float32

	BaseSize float32

	BaseHue        float32
	HueSpeedRange  float32
	AudioHueShift  float32
	Saturation     float32
	Lightness      float32
	LightnessSpeed float32
	SceneBlend     float32
	AccentAudio    float32
	SizeHandBoost  float32
	SizeAudioBoost float32
	ColorRate      float32
}

// TuningFromConfig builds a Tuning from the derived config mirrors, with
// the playground reflection coefficient as the starting boundary policy.
func TuningFromConfig(d *config.DerivedConfig) Tuning {
	return Tuning{
		Bounds: d.Bounds32,

		AttractFalloff:   d.AttractFalloff32,
		AttractFalloffSq: d.AttractFalloffSq32,
		PointerMult:      d.PointerMult32,
		RepelFalloff:     d.RepelFalloff32,
		RepelFalloffSq:   d.RepelFalloffSq32,
		RepelStrength:    d.RepelStrength32,
		ReturnHome:       d.ReturnHome32,
		ShapeGain:        d.Shape32,

		SilStrength: d.SilhouetteStrength32,
		SilDamping:  d.SilhouetteDamping32,

		CompThreshold: d.CompThreshold32,
		CompRadius:    d.CompRadius32,
		CompRadiusSq:  d.CompRadiusSq32,
		CompStrength:  d.CompStrength32,
		CompSpin:      d.CompSpin32,
		CompDamping:   d.CompDamping32,

		ChaosAmplitude: d.Chaos32,
		ChaosMinLevel:  d.ChaosMinLevel32,

		AlignCell:     d.AlignCell32,
		AlignRate:     d.AlignRate32,
		AlignMinLevel: d.AlignMinLevel32,

		AudioNoise:    d.AudioNoise32,
		AudioWave:     d.AudioWave32,
		AudioWaveFreq: d.AudioWaveFreq32,
		FlowGain:      d.FlowGain32,

		MaxSpeed:   d.MaxSpeed32,
		MaxSpeedSq: d.MaxSpeedSq32,
		Reflect:    d.ReflectPlayground32,

		BaseSize: d.BaseSize32,

		BaseHue:        d.BaseHue32,
		HueSpeedRange:  d.HueSpeedRange32,
		AudioHueShift:  d.AudioHueShift32,
		Saturation:     d.Saturation32,
		Lightness:      d.Lightness32,
		LightnessSpeed: d.LightnessSpeed32,
		SceneBlend:     d.SceneBlend32,
		AccentAudio:    d.AccentAudio32,
		SizeHandBoost:  d.SizeHandBoost32,
		SizeAudioBoost: d.SizeAudioBoost32,
		ColorRate:      d.ColorRate32,
	}
}

// ApplyScene overrides the scalars a scene configuration replaces directly.
// Friction and attraction strength route through the blender instead so
// they transition smoothly.
func (t *Tuning) ApplyScene(sc *scene.Config) {
	if sc == nil {
		return
	}
	t.RepelStrength = float32(sc.RepelForce)
	t.MaxSpeed = float32(sc.MaxSpeed)
	t.MaxSpeedSq = t.MaxSpeed * t.MaxSpeed
	t.BaseSize = float32(sc.ParticleSize)
}

// ReflectFor returns the boundary reflection coefficient for a mode.
func ReflectFor(d *config.DerivedConfig, m scene.Mode) float32 {
	switch m {
	case scene.ModeDrawing:
		return d.ReflectDrawing32
	case scene.ModeSilhouette:
		return d.ReflectSilhouette32
	case scene.ModeAudio:
		return d.ReflectAudio32
	case scene.ModeConfigured:
		return d.ReflectConfigured32
	default:
		return d.ReflectPlayground32
	}
}

// HandContext is one hand in simulation space with its force gates.
type HandContext struct {
	Palm       input.Vec3
	IsOpen     bool
	IsPinching bool
	Gesture    input.Gesture
}

// ScenePalette is the blender's running palette for the color mapping.
type ScenePalette struct {
	Primary   scene.Color
	Secondary scene.Color
	Accent    scene.Color
	Active    bool
}

// ForceContext carries every per-tick shared input the particle math needs.
// It is built once per tick and read-only during the compute phase, so
// workers share it without locks.
type ForceContext struct {
	Tuning *Tuning
	Params BlendedParams
	Mode   scene.Mode

	Hands       []HandContext
	Compressing bool       // Two palms closer than the compression threshold
	Mid         input.Vec3 // Midpoint of the two palms while compressing
	HandDist    float32    // Palm-to-palm distance while compressing

	Track []input.Vec3 // Flattened smoothed landmarks for silhouette mode
	Shape []input.Vec3 // Scene shape vertices, nil when no shape is active

	Palette ScenePalette
	Audio   float32
	Elapsed float32
	Flow    *FlowField
}

// ForceResult is the outcome of force accumulation for one particle.
type ForceResult struct {
	AX, AY, AZ  float32
	Damp        float32 // Extra velocity multiplier from vortex or silhouette damping
	NearestHand float32 // Distance to the closest palm; +Inf with no hands
}

// AccumulateForces sums every active force source into one acceleration for
// the particle at (px,py,pz) with home (hx,hy,hz). index selects the
// particle's shape vertex or tracked landmark. rng drives the jitter terms
// and must be owned by the calling worker.
func AccumulateForces(ctx *ForceContext, index uint32, px, py, pz, hx, hy, hz float32, rng *rand.Rand) ForceResult {
	t := ctx.Tuning
	res := ForceResult{Damp: 1, NearestHand: float32(math.Inf(1))}

	nearestSq := float32(math.Inf(1))
	for i := range ctx.Hands {
		h := &ctx.Hands[i]
		dx := h.Palm.X - px
		dy := h.Palm.Y - py
		dz := h.Palm.Z - pz
		dSq := distanceSq(dx, dy, dz)
		if dSq < nearestSq {
			nearestSq = dSq
		}

		attracting := h.IsOpen || h.Gesture == input.GesturePointer ||
			(ctx.Mode == scene.ModeDrawing && h.IsPinching)
		if attracting && dSq < t.AttractFalloffSq {
			if d := fastSqrt(dSq); d > minDist {
				mag := (t.AttractFalloff - d) * ctx.Params.Attract
				if h.Gesture == input.GesturePointer {
					mag *= t.PointerMult
				}
				inv := mag / d
				res.AX += dx * inv
				res.AY += dy * inv
				res.AZ += dz * inv
			}
		}

		if !h.IsPinching && dSq < t.RepelFalloffSq {
			if d := fastSqrt(dSq); d > minDist {
				inv := (t.RepelFalloff - d) * t.RepelStrength / d
				res.AX -= dx * inv
				res.AY -= dy * inv
				res.AZ -= dz * inv
			}
		}
	}
	if nearestSq < float32(math.Inf(1)) {
		res.NearestHand = fastSqrt(nearestSq)
	}

	if ctx.Compressing {
		dx := ctx.Mid.X - px
		dy := ctx.Mid.Y - py
		dz := ctx.Mid.Z - pz
		dSq := distanceSq(dx, dy, dz)
		if dSq < t.CompRadiusSq {
			if d := fastSqrt(dSq); d > minDist {
				squeeze := (t.CompThreshold - ctx.HandDist) * (t.CompRadius - d) * t.CompStrength
				inv := squeeze / d
				res.AX += dx * inv
				res.AY += dy * inv
				res.AZ += dz * inv
			}
			phase := ctx.Elapsed*2 + px*0.5
			res.AX += fastSin(phase) * t.CompSpin
			res.AZ += fastCos(phase) * t.CompSpin
			res.Damp *= t.CompDamping
		}
	}

	switch {
	case ctx.Mode == scene.ModeSilhouette:
		if n := len(ctx.Track); n > 0 {
			lm := ctx.Track[int(index)%n]
			res.AX += (lm.X - px) * t.SilStrength
			res.AY += (lm.Y - py) * t.SilStrength
			res.AZ += (lm.Z - pz) * t.SilStrength
			res.Damp *= t.SilDamping
		} else {
			// Nothing to trace; settle back toward home.
			res.AX += (hx - px) * t.ReturnHome
			res.AY += (hy - py) * t.ReturnHome
			res.AZ += (hz - pz) * t.ReturnHome
		}
	case ctx.Mode.WantsReturn():
		if n := len(ctx.Shape); n > 0 {
			v := ctx.Shape[int(index)%n]
			res.AX += (v.X - px) * t.ShapeGain
			res.AY += (v.Y - py) * t.ShapeGain
			res.AZ += (v.Z - pz) * t.ShapeGain
		} else {
			res.AX += (hx - px) * t.ReturnHome
			res.AY += (hy - py) * t.ReturnHome
			res.AZ += (hz - pz) * t.ReturnHome
		}
	}

	if ctx.Params.Chaos > t.ChaosMinLevel {
		amp := t.ChaosAmplitude * ctx.Params.Chaos
		res.AX += (rng.Float32()*2 - 1) * amp
		res.AY += (rng.Float32()*2 - 1) * amp
		res.AZ += (rng.Float32()*2 - 1) * amp
	}

	if ctx.Mode == scene.ModeAudio && ctx.Audio > 0 {
		level := ctx.Audio
		if amp := t.AudioNoise * level; amp > 0 {
			res.AX += (rng.Float32()*2 - 1) * amp
			res.AY += (rng.Float32()*2 - 1) * amp
			res.AZ += (rng.Float32()*2 - 1) * amp
		}
		wave := t.AudioWave * level
		res.AX += fastSin(ctx.Elapsed*t.AudioWaveFreq+py*0.5) * wave
		res.AY += fastSin(ctx.Elapsed*t.AudioWaveFreq*1.3+px*0.5) * wave
		res.AZ += fastCos(ctx.Elapsed*t.AudioWaveFreq+px*0.5) * wave
		if ctx.Flow != nil && t.FlowGain > 0 {
			fx, fy, fz := ctx.Flow.At(px, py, pz, ctx.Elapsed)
			gain := t.FlowGain * level
			res.AX += fx * gain
			res.AY += fy * gain
			res.AZ += fz * gain
		}
	}

	return res
}
