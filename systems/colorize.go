package systems

import (
	"math"

	"github.com/pthm-cable/driftfield/components"
	"github.com/pthm-cable/driftfield/scene"
)

// HSLToRGB converts hue, saturation, and lightness in [0,1] to RGB channels
// in [0,1]. Hue wraps around.
func HSLToRGB(h, s, l float32) (r, g, b float32) {
	h -= float32(math.Floor(float64(h)))
	c := (1 - absf(2*l-1)) * s
	hp := h * 6
	x := c * (1 - absf(float32(math.Mod(float64(hp), 2))-1))
	m := l - c/2

	switch int(hp) % 6 {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

// ColorTarget computes the color and size targets for one particle. The
// displayed values move toward these by the color smoothing rate each tick,
// so targets may jump; displayed colors never do.
//
// Hue rises with speed and audio level, lightness with speed. An active
// palette pulls the computed color toward the scene primary, toward the
// secondary in proportion to speed, and toward the accent in proportion to
// audio level in the audio-driven and configured modes.
func ColorTarget(ctx *ForceContext, vel components.Velocity, nearestHand float32) (r, g, b, size float32) {
	t := ctx.Tuning
	speed := magnitude(vel.X, vel.Y, vel.Z)
	speedF := Clamp01(speed * 2)

	hue := t.BaseHue + speedF*t.HueSpeedRange + ctx.Audio*t.AudioHueShift
	light := t.Lightness + speedF*t.LightnessSpeed
	r, g, b = HSLToRGB(hue, t.Saturation, light)

	if ctx.Palette.Active {
		p := &ctx.Palette
		r = Lerp(r, p.Primary.R, t.SceneBlend)
		g = Lerp(g, p.Primary.G, t.SceneBlend)
		b = Lerp(b, p.Primary.B, t.SceneBlend)

		w := t.SceneBlend * speedF
		r = Lerp(r, p.Secondary.R, w)
		g = Lerp(g, p.Secondary.G, w)
		b = Lerp(b, p.Secondary.B, w)

		if ctx.Mode == scene.ModeAudio || ctx.Mode == scene.ModeConfigured {
			aw := t.AccentAudio * ctx.Audio
			r = Lerp(r, p.Accent.R, aw)
			g = Lerp(g, p.Accent.G, aw)
			b = Lerp(b, p.Accent.B, aw)
		}
	}

	size = t.BaseSize + t.SizeAudioBoost*ctx.Audio
	if prox := Clamp01(1 - nearestHand/t.AttractFalloff); prox > 0 {
		size += t.SizeHandBoost * prox
	}
	return r, g, b, size
}

// BaseColor is the color of a particle at rest with no audio and no palette,
// used to seed spawned particles and palette activation.
func BaseColor(t *Tuning) (r, g, b float32) {
	return HSLToRGB(t.BaseHue, t.Saturation, t.Lightness)
}
