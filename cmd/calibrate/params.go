// Package main provides CMA-ES calibration for field force parameters.
package main

import (
	"github.com/pthm-cable/driftfield/config"
)

// ParamSpec defines a single calibratable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all calibratable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of calibratable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Forces (pointer_multiplier locked at 4.0)
			{Name: "attract_strength", Path: "forces.attract_strength", Min: 0.001, Max: 0.012, Default: 0.003},
			{Name: "attract_falloff", Path: "forces.attract_falloff", Min: 4.0, Max: 16.0, Default: 8.0},
			{Name: "repel_strength", Path: "forces.repel_strength", Min: 0.004, Max: 0.03, Default: 0.012},
			{Name: "repel_falloff", Path: "forces.repel_falloff", Min: 2.0, Max: 8.0, Default: 4.0},
			{Name: "return_home", Path: "forces.return_home", Min: 0.005, Max: 0.08, Default: 0.02},
			{Name: "shape", Path: "forces.shape", Min: 0.01, Max: 0.12, Default: 0.04},
			{Name: "chaos_amplitude", Path: "forces.chaos_amplitude", Min: 0.02, Max: 0.2, Default: 0.08},
			// Compression (threshold and radius locked; they define the
			// gesture, not the response)
			{Name: "compression_strength", Path: "forces.compression.strength", Min: 0.0005, Max: 0.006, Default: 0.002},
			{Name: "compression_spin", Path: "forces.compression.spin", Min: 0.004, Max: 0.04, Default: 0.012},
			// Audio
			{Name: "audio_noise", Path: "forces.audio.noise", Min: 0.01, Max: 0.15, Default: 0.05},
			{Name: "audio_flow_gain", Path: "forces.audio.flow_gain", Min: 0.01, Max: 0.2, Default: 0.06},
			// Motion (blend_rate and color_rate locked; they shape
			// transitions, not steady-state feel)
			{Name: "friction", Path: "motion.friction", Min: 0.90, Max: 0.99, Default: 0.95},
			{Name: "max_speed", Path: "motion.max_speed", Min: 0.3, Max: 1.6, Default: 0.8},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct and recomputes
// the derived float32 mirrors the hot paths read.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Apply each parameter to the config
	// Order must match Specs order
	i := 0

	cfg.Forces.AttractStrength = clamped[i]; i++
	cfg.Forces.AttractFalloff = clamped[i]; i++
	cfg.Forces.RepelStrength = clamped[i]; i++
	cfg.Forces.RepelFalloff = clamped[i]; i++
	cfg.Forces.ReturnHome = clamped[i]; i++
	cfg.Forces.Shape = clamped[i]; i++
	cfg.Forces.ChaosAmplitude = clamped[i]; i++

	cfg.Forces.Compression.Strength = clamped[i]; i++
	cfg.Forces.Compression.Spin = clamped[i]; i++

	cfg.Forces.Audio.Noise = clamped[i]; i++
	cfg.Forces.Audio.FlowGain = clamped[i]; i++

	cfg.Motion.Friction = clamped[i]; i++
	cfg.Motion.MaxSpeed = clamped[i]

	return cfg.Refresh()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Forces.AttractStrength,
		cfg.Forces.AttractFalloff,
		cfg.Forces.RepelStrength,
		cfg.Forces.RepelFalloff,
		cfg.Forces.ReturnHome,
		cfg.Forces.Shape,
		cfg.Forces.ChaosAmplitude,
		cfg.Forces.Compression.Strength,
		cfg.Forces.Compression.Spin,
		cfg.Forces.Audio.Noise,
		cfg.Forces.Audio.FlowGain,
		cfg.Motion.Friction,
		cfg.Motion.MaxSpeed,
	}
}
