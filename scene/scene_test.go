package scene

import (
	"math"
	"reflect"
	"testing"

	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/input"
)

func init() {
	config.MustInit("")
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"playground", ModePlayground, true},
		{"drawing", ModeDrawing, true},
		{"SILHOUETTE", ModeSilhouette, true},
		{" audio ", ModeAudio, true},
		{"configured", ModeConfigured, true},
		{"dancing", ModePlayground, false},
		{"", ModePlayground, false},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseMode(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModeRoundTrip(t *testing.T) {
	for m := ModePlayground; m <= ModeConfigured; m++ {
		got, err := ParseMode(m.String())
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", m.String(), err)
		}
		if got != m {
			t.Errorf("round trip %v -> %q -> %v", m, m.String(), got)
		}
	}
}

func TestWantsReturn(t *testing.T) {
	want := map[Mode]bool{
		ModePlayground: true,
		ModeDrawing:    false,
		ModeSilhouette: false,
		ModeAudio:      false,
		ModeConfigured: true,
	}
	for m, w := range want {
		if got := m.WantsReturn(); got != w {
			t.Errorf("%v.WantsReturn() = %v, want %v", m, got, w)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in   string
		want Color
		ok   bool
	}{
		{"#ff0000", Color{1, 0, 0}, true},
		{"00ff00", Color{0, 1, 0}, true},
		{"#0000FF", Color{0, 0, 1}, true},
		{"#fff", Color{1, 1, 1}, true},
		{"#808080", Color{128.0 / 255, 128.0 / 255, 128.0 / 255}, true},
		{"#12345", Color{}, false},
		{"#zzzzzz", Color{}, false},
		{"", Color{}, false},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if (err == nil) != tt.ok {
			t.Errorf("ParseHexColor(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
			continue
		}
		if !tt.ok {
			continue
		}
		if colorDist(got, tt.want) > 0.001 {
			t.Errorf("ParseHexColor(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestColorHexRoundTrip(t *testing.T) {
	orig := Color{0.2, 0.5, 0.9}
	parsed, err := ParseHexColor(orig.Hex())
	if err != nil {
		t.Fatalf("ParseHexColor(%q): %v", orig.Hex(), err)
	}
	if colorDist(parsed, orig) > 1.0/255+0.001 {
		t.Errorf("round trip %+v -> %q -> %+v", orig, orig.Hex(), parsed)
	}
}

func TestColorLerp(t *testing.T) {
	a := Color{0, 0, 0}
	b := Color{1, 0.5, 0.2}
	mid := a.Lerp(b, 0.5)
	want := Color{0.5, 0.25, 0.1}
	if colorDist(mid, want) > 0.001 {
		t.Errorf("Lerp midpoint = %+v, want %+v", mid, want)
	}
	if got := a.Lerp(b, 0); got != a {
		t.Errorf("Lerp(0) = %+v, want %+v", got, a)
	}
	if got := a.Lerp(b, 1); colorDist(got, b) > 0.001 {
		t.Errorf("Lerp(1) = %+v, want %+v", got, b)
	}
}

func TestSanitizedFillsDefaults(t *testing.T) {
	cfg := config.Cfg()
	got := Config{}.Sanitized(cfg)

	if got.Friction != cfg.Motion.Friction {
		t.Errorf("Friction = %g, want default %g", got.Friction, cfg.Motion.Friction)
	}
	if got.AttractForce != cfg.Forces.AttractStrength {
		t.Errorf("AttractForce = %g, want default %g", got.AttractForce, cfg.Forces.AttractStrength)
	}
	if got.RepelForce != cfg.Forces.RepelStrength {
		t.Errorf("RepelForce = %g, want default %g", got.RepelForce, cfg.Forces.RepelStrength)
	}
	if got.MaxSpeed != cfg.Motion.MaxSpeed {
		t.Errorf("MaxSpeed = %g, want default %g", got.MaxSpeed, cfg.Motion.MaxSpeed)
	}
	if got.ParticleSize != cfg.Particles.BaseSize {
		t.Errorf("ParticleSize = %g, want default %g", got.ParticleSize, cfg.Particles.BaseSize)
	}
}

func TestSanitizedRejectsMalformed(t *testing.T) {
	cfg := config.Cfg()
	nan := math.NaN()
	in := Config{
		Primary:      Color{2, -1, float32(nan)},
		Friction:     1.5,
		AttractForce: nan,
		RepelForce:   -3,
		MaxSpeed:     math.Inf(1),
		ParticleSize: 0,
	}
	got := in.Sanitized(cfg)

	if got.Primary != (Color{1, 0, 0}) {
		t.Errorf("Primary = %+v, want clamped {1 0 0}", got.Primary)
	}
	if got.Friction != cfg.Motion.Friction {
		t.Errorf("Friction = %g, want default", got.Friction)
	}
	if got.AttractForce != cfg.Forces.AttractStrength {
		t.Errorf("AttractForce = %g, want default", got.AttractForce)
	}
	if got.RepelForce != cfg.Forces.RepelStrength {
		t.Errorf("RepelForce = %g, want default", got.RepelForce)
	}
	if got.MaxSpeed != cfg.Motion.MaxSpeed {
		t.Errorf("MaxSpeed = %g, want default", got.MaxSpeed)
	}
	if got.ParticleSize != cfg.Particles.BaseSize {
		t.Errorf("ParticleSize = %g, want default", got.ParticleSize)
	}
}

func TestSanitizedKeepsValidOverrides(t *testing.T) {
	cfg := config.Cfg()
	in := Config{
		Friction:     0.9,
		AttractForce: 0.01,
		RepelForce:   0.02,
		MaxSpeed:     1.5,
		ParticleSize: 2.0,
	}
	got := in.Sanitized(cfg)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("Sanitized changed valid config: got %+v, want %+v", got, in)
	}
}

func TestSanitizedDropsBadVertices(t *testing.T) {
	nan := float32(math.NaN())
	in := Config{
		ShapeVertices: []input.Vec3{
			{X: 1, Y: 2, Z: 3},
			{X: nan, Y: 0, Z: 0},
			{X: 0, Y: float32(math.Inf(1)), Z: 0},
			{X: -4, Y: 5, Z: -6},
		},
	}
	got := in.Sanitized(config.Cfg())
	if len(got.ShapeVertices) != 2 {
		t.Fatalf("kept %d vertices, want 2", len(got.ShapeVertices))
	}
	if got.ShapeVertices[0] != (input.Vec3{X: 1, Y: 2, Z: 3}) {
		t.Errorf("vertex 0 = %+v", got.ShapeVertices[0])
	}
	if got.ShapeVertices[1] != (input.Vec3{X: -4, Y: 5, Z: -6}) {
		t.Errorf("vertex 1 = %+v", got.ShapeVertices[1])
	}

	allBad := Config{ShapeVertices: []input.Vec3{{X: nan}}}
	if got := allBad.Sanitized(config.Cfg()); got.ShapeVertices != nil {
		t.Errorf("all-bad vertex list should sanitize to nil, got %v", got.ShapeVertices)
	}
}

func colorDist(a, b Color) float64 {
	dr := float64(a.R - b.R)
	dg := float64(a.G - b.G)
	db := float64(a.B - b.B)
	return math.Max(math.Abs(dr), math.Max(math.Abs(dg), math.Abs(db)))
}
