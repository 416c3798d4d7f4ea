package systems

import (
	"math"
	"testing"

	"github.com/pthm-cable/driftfield/components"
	"github.com/pthm-cable/driftfield/scene"
)

func TestHSLToRGBKnownValues(t *testing.T) {
	tests := []struct {
		name    string
		h, s, l float32
		r, g, b float32
	}{
		{"red", 0, 1, 0.5, 1, 0, 0},
		{"green", 1.0 / 3, 1, 0.5, 0, 1, 0},
		{"blue", 2.0 / 3, 1, 0.5, 0, 0, 1},
		{"cyan", 0.5, 1, 0.5, 0, 1, 1},
		{"yellow", 1.0 / 6, 1, 0.5, 1, 1, 0},
		{"gray", 0.25, 0, 0.3, 0.3, 0.3, 0.3},
		{"white", 0.8, 1, 1, 1, 1, 1},
		{"black", 0.1, 1, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := HSLToRGB(tt.h, tt.s, tt.l)
		if math.Abs(float64(r-tt.r)) > 0.001 ||
			math.Abs(float64(g-tt.g)) > 0.001 ||
			math.Abs(float64(b-tt.b)) > 0.001 {
			t.Errorf("%s: HSLToRGB(%g, %g, %g) = (%g, %g, %g), want (%g, %g, %g)",
				tt.name, tt.h, tt.s, tt.l, r, g, b, tt.r, tt.g, tt.b)
		}
	}
}

func TestHSLToRGBHueWraps(t *testing.T) {
	r1, g1, b1 := HSLToRGB(0.55, 0.75, 0.5)
	r2, g2, b2 := HSLToRGB(1.55, 0.75, 0.5)
	if math.Abs(float64(r1-r2)) > 1e-5 ||
		math.Abs(float64(g1-g2)) > 1e-5 ||
		math.Abs(float64(b1-b2)) > 1e-5 {
		t.Errorf("hue 0.55 gives (%g,%g,%g) but 1.55 gives (%g,%g,%g)", r1, g1, b1, r2, g2, b2)
	}
}

func TestColorTargetSpeedShiftsHueAndLightness(t *testing.T) {
	tn := testTuning()
	ctx := testCtx(tn, scene.ModePlayground)

	r0, g0, b0, _ := ColorTarget(ctx, components.Velocity{}, float32(math.Inf(1)))
	wr, wg, wb := HSLToRGB(0.55, 0.75, 0.5)
	if math.Abs(float64(r0-wr)) > 1e-4 || math.Abs(float64(g0-wg)) > 1e-4 || math.Abs(float64(b0-wb)) > 1e-4 {
		t.Errorf("rest color = (%g,%g,%g), want (%g,%g,%g)", r0, g0, b0, wr, wg, wb)
	}

	// At half max speed the factor saturates: min(0.5*2, 1) = 1.
	rf, gf, bf, _ := ColorTarget(ctx, components.Velocity{X: 0.5}, float32(math.Inf(1)))
	wr, wg, wb = HSLToRGB(0.55+0.25, 0.75, 0.5+0.15)
	if math.Abs(float64(rf-wr)) > 2e-3 || math.Abs(float64(gf-wg)) > 2e-3 || math.Abs(float64(bf-wb)) > 2e-3 {
		t.Errorf("fast color = (%g,%g,%g), want (%g,%g,%g)", rf, gf, bf, wr, wg, wb)
	}
}

func TestColorTargetAudioShiftsHue(t *testing.T) {
	tn := testTuning()
	ctx := testCtx(tn, scene.ModePlayground)
	ctx.Audio = 1

	r, g, b, _ := ColorTarget(ctx, components.Velocity{}, float32(math.Inf(1)))
	wr, wg, wb := HSLToRGB(0.55+0.1, 0.75, 0.5)
	if math.Abs(float64(r-wr)) > 1e-4 || math.Abs(float64(g-wg)) > 1e-4 || math.Abs(float64(b-wb)) > 1e-4 {
		t.Errorf("audio color = (%g,%g,%g), want (%g,%g,%g)", r, g, b, wr, wg, wb)
	}
}

func TestColorTargetPaletteBlend(t *testing.T) {
	tn := testTuning()
	ctx := testCtx(tn, scene.ModeConfigured)
	ctx.Palette = ScenePalette{
		Primary:   scene.Color{R: 1, G: 0, B: 0},
		Secondary: scene.Color{R: 0, G: 0, B: 1},
		Active:    true,
	}

	// At rest only the primary blend applies.
	r, g, b, _ := ColorTarget(ctx, components.Velocity{}, float32(math.Inf(1)))
	br, bg, bb := BaseColor(tn)
	wantR := Lerp(br, 1, 0.5)
	wantG := Lerp(bg, 0, 0.5)
	wantB := Lerp(bb, 0, 0.5)
	if math.Abs(float64(r-wantR)) > 1e-4 || math.Abs(float64(g-wantG)) > 1e-4 || math.Abs(float64(b-wantB)) > 1e-4 {
		t.Errorf("rest palette color = (%g,%g,%g), want (%g,%g,%g)", r, g, b, wantR, wantG, wantB)
	}

	// At the speed cap the secondary pulls in with the full blend weight.
	r, g, b, _ = ColorTarget(ctx, components.Velocity{X: 0.6}, float32(math.Inf(1)))
	hr, hg, hb := HSLToRGB(0.55+0.25, 0.75, 0.5+0.15)
	wantR = Lerp(Lerp(hr, 1, 0.5), 0, 0.5)
	wantG = Lerp(Lerp(hg, 0, 0.5), 0, 0.5)
	wantB = Lerp(Lerp(hb, 0, 0.5), 1, 0.5)
	if math.Abs(float64(r-wantR)) > 2e-3 || math.Abs(float64(g-wantG)) > 2e-3 || math.Abs(float64(b-wantB)) > 2e-3 {
		t.Errorf("fast palette color = (%g,%g,%g), want (%g,%g,%g)", r, g, b, wantR, wantG, wantB)
	}
}

func TestColorTargetAccentModes(t *testing.T) {
	tn := testTuning()
	palette := ScenePalette{
		Primary:   scene.Color{R: 0.5, G: 0.5, B: 0.5},
		Secondary: scene.Color{R: 0.5, G: 0.5, B: 0.5},
		Accent:    scene.Color{R: 1, G: 1, B: 1},
		Active:    true,
	}

	ctxAudio := testCtx(tn, scene.ModeAudio)
	ctxAudio.Palette = palette
	ctxAudio.Audio = 1
	ctxPlay := testCtx(tn, scene.ModePlayground)
	ctxPlay.Palette = palette
	ctxPlay.Audio = 1

	ra, _, _, _ := ColorTarget(ctxAudio, components.Velocity{}, float32(math.Inf(1)))
	rp, _, _, _ := ColorTarget(ctxPlay, components.Velocity{}, float32(math.Inf(1)))
	if ra <= rp {
		t.Errorf("accent did not brighten audio mode: audio %g vs playground %g", ra, rp)
	}
}

func TestColorTargetSizeBoosts(t *testing.T) {
	tn := testTuning()
	ctx := testCtx(tn, scene.ModePlayground)

	_, _, _, size := ColorTarget(ctx, components.Velocity{}, float32(math.Inf(1)))
	if math.Abs(float64(size)-1.0) > 1e-5 {
		t.Errorf("rest size = %g, want base 1.0", size)
	}

	_, _, _, size = ColorTarget(ctx, components.Velocity{}, 0)
	if math.Abs(float64(size)-1.5) > 1e-5 {
		t.Errorf("size at zero hand distance = %g, want 1.5", size)
	}

	_, _, _, size = ColorTarget(ctx, components.Velocity{}, 4)
	if math.Abs(float64(size)-1.25) > 1e-5 { // proximity (1 - 4/8) = 0.5
		t.Errorf("size at distance 4 = %g, want 1.25", size)
	}

	ctx.Audio = 1
	_, _, _, size = ColorTarget(ctx, components.Velocity{}, float32(math.Inf(1)))
	if math.Abs(float64(size)-1.5) > 1e-5 {
		t.Errorf("size at full audio = %g, want 1.5", size)
	}
}
