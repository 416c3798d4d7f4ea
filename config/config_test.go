package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if cfg.Particles.Count != 30000 {
		t.Errorf("expected default particle count 30000, got %d", cfg.Particles.Count)
	}
	if math.Abs(cfg.Motion.Friction-0.95) > 1e-9 {
		t.Errorf("expected default friction 0.95, got %g", cfg.Motion.Friction)
	}
	if math.Abs(cfg.Forces.ReturnHome-0.02) > 1e-9 {
		t.Errorf("expected default return_home 0.02, got %g", cfg.Forces.ReturnHome)
	}
	if math.Abs(cfg.Forces.Compression.Threshold-3.5) > 1e-9 {
		t.Errorf("expected compression threshold 3.5, got %g", cfg.Forces.Compression.Threshold)
	}
}

func TestLoad_DerivedMirrors(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	d := cfg.Derived
	if math.Abs(float64(d.Friction32)-cfg.Motion.Friction) > 1e-6 {
		t.Errorf("Friction32 mirror mismatch: %g vs %g", d.Friction32, cfg.Motion.Friction)
	}
	wantSq := float32(cfg.Forces.AttractFalloff * cfg.Forces.AttractFalloff)
	if math.Abs(float64(d.AttractFalloffSq32-wantSq)) > 1e-4 {
		t.Errorf("AttractFalloffSq32 = %g, want %g", d.AttractFalloffSq32, wantSq)
	}
	if d.MaxSpeedSq32 != d.MaxSpeed32*d.MaxSpeed32 {
		t.Errorf("MaxSpeedSq32 not consistent with MaxSpeed32")
	}
}

func TestLoad_UserFileMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "particles:\n  count: 500\nmotion:\n  friction: 0.9\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Particles.Count != 500 {
		t.Errorf("user count not applied: got %d", cfg.Particles.Count)
	}
	if math.Abs(cfg.Motion.Friction-0.9) > 1e-9 {
		t.Errorf("user friction not applied: got %g", cfg.Motion.Friction)
	}
	// Untouched fields keep defaults
	if math.Abs(cfg.Forces.AttractFalloff-8.0) > 1e-9 {
		t.Errorf("default attract_falloff lost in merge: got %g", cfg.Forces.AttractFalloff)
	}
}

func TestApplyPreset(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	if err := cfg.ApplyPreset("classic"); err != nil {
		t.Fatalf("ApplyPreset classic: %v", err)
	}

	if math.Abs(cfg.Motion.Friction-0.94) > 1e-9 {
		t.Errorf("preset friction not applied: got %g", cfg.Motion.Friction)
	}
	if math.Abs(cfg.Forces.AttractFalloff-10.0) > 1e-9 {
		t.Errorf("preset attract_falloff not applied: got %g", cfg.Forces.AttractFalloff)
	}
	// Fields the preset does not mention keep the canonical values
	if cfg.Particles.Count != 30000 {
		t.Errorf("preset should not change particle count: got %d", cfg.Particles.Count)
	}
	// Derived mirrors must be recomputed
	if math.Abs(float64(cfg.Derived.AttractFalloffSq32)-100.0) > 1e-3 {
		t.Errorf("derived falloff sq not recomputed: got %g", cfg.Derived.AttractFalloffSq32)
	}
}

func TestApplyPreset_Unknown(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if err := cfg.ApplyPreset("no-such-preset"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"zero particles", "particles:\n  count: 0\n"},
		{"friction above one", "motion:\n  friction: 1.5\n"},
		{"negative bounds", "world:\n  bounds: -3\n"},
		{"reflection out of range", "motion:\n  reflection:\n    drawing: 1.4\n"},
	}

	dir := t.TempDir()
	for _, tc := range cases {
		path := filepath.Join(dir, tc.name+".yaml")
		if err := os.WriteFile(path, []byte(tc.body), 0644); err != nil {
			t.Fatalf("write temp config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestWriteYAML_Roundtrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}

	path := filepath.Join(t.TempDir(), "dump.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load dumped config: %v", err)
	}
	if back.Particles.Count != cfg.Particles.Count {
		t.Errorf("roundtrip count mismatch: %d vs %d", back.Particles.Count, cfg.Particles.Count)
	}
	if math.Abs(back.Motion.Friction-cfg.Motion.Friction) > 1e-9 {
		t.Errorf("roundtrip friction mismatch: %g vs %g", back.Motion.Friction, cfg.Motion.Friction)
	}
}
