// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Particles ParticlesConfig `yaml:"particles"`
	Forces    ForcesConfig    `yaml:"forces"`
	Motion    MotionConfig    `yaml:"motion"`
	Color     ColorConfig     `yaml:"color"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Moments   MomentsConfig   `yaml:"moments"`

	// Presets are partial config fragments applied over the defaults by name.
	// Kept as raw nodes so a preset only overrides the fields it mentions.
	Presets map[string]yaml.Node `yaml:"presets"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the simulation volume and the input-space transform.
type WorldConfig struct {
	Bounds      float64 `yaml:"bounds"`        // Half-extent of the cubic boundary in world units
	InputScaleX float64 `yaml:"input_scale_x"` // Normalized-input x span mapped to world units (mirrored)
	InputScaleY float64 `yaml:"input_scale_y"` // Normalized-input y span mapped to world units (flipped)
	InputScaleZ float64 `yaml:"input_scale_z"` // Depth scale for landmark z
}

// ParticlesConfig holds particle population parameters.
type ParticlesConfig struct {
	Count       int     `yaml:"count"`        // Fixed particle count for the process lifetime
	SpawnRadius float64 `yaml:"spawn_radius"` // Radius of the spherical home cloud
	BaseSize    float64 `yaml:"base_size"`    // Displayed size before hand/audio boosts
}

// ForcesConfig holds the force-source constants.
type ForcesConfig struct {
	AttractFalloff    float64 `yaml:"attract_falloff"`    // Open-hand attraction radius
	AttractStrength   float64 `yaml:"attract_strength"`   // Gain per unit of falloff excess
	PointerMultiplier float64 `yaml:"pointer_multiplier"` // Attraction multiplier for the pointer gesture
	RepelFalloff      float64 `yaml:"repel_falloff"`      // Non-pinching hand repulsion radius
	RepelStrength     float64 `yaml:"repel_strength"`     // Repulsion gain (larger than attraction)
	ReturnHome        float64 `yaml:"return_home"`        // Spring gain toward homePosition
	Shape             float64 `yaml:"shape"`              // Spring gain toward an assigned shape vertex

	Silhouette  SilhouetteConfig  `yaml:"silhouette"`
	Compression CompressionConfig `yaml:"compression"`

	ChaosAmplitude float64     `yaml:"chaos_amplitude"` // Jitter scale at full chaos level
	Align          AlignConfig `yaml:"align"`
	Audio          AudioConfig `yaml:"audio"`
}

// SilhouetteConfig holds silhouette-tracking parameters.
type SilhouetteConfig struct {
	Strength  float64 `yaml:"strength"`  // Pull gain toward the assigned landmark
	Damping   float64 `yaml:"damping"`   // Extra velocity damping while tracking
	Smoothing float64 `yaml:"smoothing"` // Per-frame landmark interpolation factor
}

// CompressionConfig holds two-hand vortex parameters.
type CompressionConfig struct {
	Threshold float64 `yaml:"threshold"` // Palm distance below which compression engages
	Radius    float64 `yaml:"radius"`    // Midpoint radius affected by the vortex
	Strength  float64 `yaml:"strength"`  // Inward force gain
	Spin      float64 `yaml:"spin"`      // Tangential swirl gain
	Damping   float64 `yaml:"damping"`   // Velocity multiplier while compressing
}

// AlignConfig holds grid-alignment snap parameters.
type AlignConfig struct {
	Cell     float64 `yaml:"cell"`      // Grid cell size
	Rate     float64 `yaml:"rate"`      // Positional lerp rate at full alignment level
	MinLevel float64 `yaml:"min_level"` // Blended level below which the snap is skipped
}

// AudioConfig holds audio-reactive force parameters.
type AudioConfig struct {
	Noise     float64 `yaml:"noise"`      // Uniform jitter scale per unit audio level
	Wave      float64 `yaml:"wave"`       // Sinusoidal term scale per unit audio level
	WaveFreq  float64 `yaml:"wave_freq"`  // Sinusoid frequency over elapsed seconds
	FlowScale float64 `yaml:"flow_scale"` // Spatial frequency of the smooth flow field
	FlowGain  float64 `yaml:"flow_gain"`  // Flow field contribution per unit audio level
}

// MotionConfig holds integrator and smoothing parameters.
type MotionConfig struct {
	Friction  float64 `yaml:"friction"`   // Per-tick velocity multiplier
	MaxSpeed  float64 `yaml:"max_speed"`  // Velocity magnitude clamp
	BlendRate float64 `yaml:"blend_rate"` // Parameter blender interpolation factor per frame
	ColorRate float64 `yaml:"color_rate"` // Color/size smoothing factor per frame

	ChaosMinLevel float64 `yaml:"chaos_min_level"` // Blended chaos below this is ignored

	Reflection ReflectionConfig `yaml:"reflection"`
}

// ReflectionConfig holds per-mode boundary reflection coefficients.
type ReflectionConfig struct {
	Playground float64 `yaml:"playground"`
	Drawing    float64 `yaml:"drawing"`
	Silhouette float64 `yaml:"silhouette"`
	Audio      float64 `yaml:"audio"`
	Configured float64 `yaml:"configured"`
}

// ColorConfig holds the visual-attribute mapping parameters.
type ColorConfig struct {
	BaseHue        float64 `yaml:"base_hue"`         // Hue at zero speed, in [0,1)
	HueSpeedRange  float64 `yaml:"hue_speed_range"`  // Hue added at the speed cap
	AudioHueShift  float64 `yaml:"audio_hue_shift"`  // Hue added at full audio level
	Saturation     float64 `yaml:"saturation"`
	Lightness      float64 `yaml:"lightness"`
	LightnessSpeed float64 `yaml:"lightness_speed"` // Lightness added at the speed cap
	SceneBlend     float64 `yaml:"scene_blend"`     // Weight toward the scene primary color
	AccentAudio    float64 `yaml:"accent_audio"`    // Accent tint weight per unit audio level
	SizeHandBoost  float64 `yaml:"size_hand_boost"` // Size added at zero hand distance
	SizeAudioBoost float64 `yaml:"size_audio_boost"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow       float64 `yaml:"stats_window"`        // Window length in simulated seconds
	MomentHistorySize int     `yaml:"moment_history_size"` // Rolling window count for moment detection
	PerfWindow        int     `yaml:"perf_window"`         // Samples kept per perf phase
	SpeedSampleStride int     `yaml:"speed_sample_stride"` // Sample every Nth particle for speed stats
}

// MomentsConfig holds moment detection thresholds.
type MomentsConfig struct {
	BurstMultiplier float64 `yaml:"burst_multiplier"` // Speed p90 vs rolling average
	BurstMinSpeed   float64 `yaml:"burst_min_speed"`
	CalmSpeed       float64 `yaml:"calm_speed"`       // Mean speed below this counts as calm
	CalmWindows     int     `yaml:"calm_windows"`     // Consecutive calm windows to trigger
	SqueezeFraction float64 `yaml:"squeeze_fraction"` // Fraction of window frames under compression
}

// DerivedConfig holds computed values derived from the loaded config.
// Hot paths read these float32 mirrors instead of converting per particle.
type DerivedConfig struct {
	Bounds32      float32
	InputScaleX32 float32
	InputScaleY32 float32
	InputScaleZ32 float32
	SpawnRadius32 float32
	BaseSize32    float32

	AttractFalloff32   float32
	AttractFalloffSq32 float32
	AttractStrength32  float32
	PointerMult32      float32
	RepelFalloff32     float32
	RepelFalloffSq32   float32
	RepelStrength32    float32
	ReturnHome32       float32
	Shape32            float32

	SilhouetteStrength32  float32
	SilhouetteDamping32   float32
	SilhouetteSmoothing32 float32

	CompThreshold32 float32
	CompRadius32    float32
	CompRadiusSq32  float32
	CompStrength32  float32
	CompSpin32      float32
	CompDamping32   float32

	Chaos32         float32
	ChaosMinLevel32 float32
	AlignCell32     float32
	AlignRate32     float32
	AlignMinLevel32 float32

	AudioNoise32    float32
	AudioWave32     float32
	AudioWaveFreq32 float32
	FlowScale32     float32
	FlowGain32      float32

	Friction32   float32
	MaxSpeed32   float32
	MaxSpeedSq32 float32
	BlendRate32  float32
	ColorRate32  float32

	ReflectPlayground32 float32
	ReflectDrawing32    float32
	ReflectSilhouette32 float32
	ReflectAudio32      float32
	ReflectConfigured32 float32

	BaseHue32        float32
	HueSpeedRange32  float32
	AudioHueShift32  float32
	Saturation32     float32
	Lightness32      float32
	LightnessSpeed32 float32
	SceneBlend32     float32
	AccentAudio32    float32
	SizeHandBoost32  float32
	SizeAudioBoost32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Compute derived values
	cfg.computeDerived()

	return cfg, nil
}

// ApplyPreset overlays the named preset fragment onto the config and recomputes
// derived values. Fields the preset does not mention keep their current values.
func (c *Config) ApplyPreset(name string) error {
	node, ok := c.Presets[name]
	if !ok {
		return fmt.Errorf("unknown preset %q", name)
	}
	if err := node.Decode(c); err != nil {
		return fmt.Errorf("applying preset %q: %w", name, err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("preset %q: %w", name, err)
	}
	c.computeDerived()
	return nil
}

// Refresh revalidates the configuration and recomputes derived values after
// fields have been modified in place.
func (c *Config) Refresh() error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.computeDerived()
	return nil
}

// PresetNames returns the configured preset names.
func (c *Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for name := range c.Presets {
		names = append(names, name)
	}
	return names
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	if c.Particles.Count <= 0 {
		return fmt.Errorf("particles.count must be positive, got %d", c.Particles.Count)
	}
	if c.World.Bounds <= 0 {
		return fmt.Errorf("world.bounds must be positive, got %g", c.World.Bounds)
	}
	if c.Motion.Friction <= 0 || c.Motion.Friction > 1 {
		return fmt.Errorf("motion.friction must be in (0,1], got %g", c.Motion.Friction)
	}
	if c.Motion.MaxSpeed <= 0 {
		return fmt.Errorf("motion.max_speed must be positive, got %g", c.Motion.MaxSpeed)
	}
	if c.Motion.BlendRate <= 0 || c.Motion.BlendRate >= 1 {
		return fmt.Errorf("motion.blend_rate must be in (0,1), got %g", c.Motion.BlendRate)
	}
	if c.Motion.ColorRate <= 0 || c.Motion.ColorRate >= 1 {
		return fmt.Errorf("motion.color_rate must be in (0,1), got %g", c.Motion.ColorRate)
	}
	if c.Forces.AttractFalloff <= 0 || c.Forces.RepelFalloff <= 0 {
		return fmt.Errorf("force falloff radii must be positive")
	}
	if c.Forces.Compression.Threshold <= 0 || c.Forces.Compression.Radius <= 0 {
		return fmt.Errorf("compression threshold and radius must be positive")
	}
	for _, r := range []float64{
		c.Motion.Reflection.Playground,
		c.Motion.Reflection.Drawing,
		c.Motion.Reflection.Silhouette,
		c.Motion.Reflection.Audio,
		c.Motion.Reflection.Configured,
	} {
		if r < 0 || r > 1 {
			return fmt.Errorf("reflection coefficients must be in [0,1], got %g", r)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	d := &c.Derived

	d.Bounds32 = float32(c.World.Bounds)
	d.InputScaleX32 = float32(c.World.InputScaleX)
	d.InputScaleY32 = float32(c.World.InputScaleY)
	d.InputScaleZ32 = float32(c.World.InputScaleZ)
	d.SpawnRadius32 = float32(c.Particles.SpawnRadius)
	d.BaseSize32 = float32(c.Particles.BaseSize)

	d.AttractFalloff32 = float32(c.Forces.AttractFalloff)
	d.AttractFalloffSq32 = float32(c.Forces.AttractFalloff * c.Forces.AttractFalloff)
	d.AttractStrength32 = float32(c.Forces.AttractStrength)
	d.PointerMult32 = float32(c.Forces.PointerMultiplier)
	d.RepelFalloff32 = float32(c.Forces.RepelFalloff)
	d.RepelFalloffSq32 = float32(c.Forces.RepelFalloff * c.Forces.RepelFalloff)
	d.RepelStrength32 = float32(c.Forces.RepelStrength)
	d.ReturnHome32 = float32(c.Forces.ReturnHome)
	d.Shape32 = float32(c.Forces.Shape)

	d.SilhouetteStrength32 = float32(c.Forces.Silhouette.Strength)
	d.SilhouetteDamping32 = float32(c.Forces.Silhouette.Damping)
	d.SilhouetteSmoothing32 = float32(c.Forces.Silhouette.Smoothing)

	d.CompThreshold32 = float32(c.Forces.Compression.Threshold)
	d.CompRadius32 = float32(c.Forces.Compression.Radius)
	d.CompRadiusSq32 = float32(c.Forces.Compression.Radius * c.Forces.Compression.Radius)
	d.CompStrength32 = float32(c.Forces.Compression.Strength)
	d.CompSpin32 = float32(c.Forces.Compression.Spin)
	d.CompDamping32 = float32(c.Forces.Compression.Damping)

	d.Chaos32 = float32(c.Forces.ChaosAmplitude)
	d.ChaosMinLevel32 = float32(c.Motion.ChaosMinLevel)
	d.AlignCell32 = float32(c.Forces.Align.Cell)
	d.AlignRate32 = float32(c.Forces.Align.Rate)
	d.AlignMinLevel32 = float32(c.Forces.Align.MinLevel)

	d.AudioNoise32 = float32(c.Forces.Audio.Noise)
	d.AudioWave32 = float32(c.Forces.Audio.Wave)
	d.AudioWaveFreq32 = float32(c.Forces.Audio.WaveFreq)
	d.FlowScale32 = float32(c.Forces.Audio.FlowScale)
	d.FlowGain32 = float32(c.Forces.Audio.FlowGain)

	d.Friction32 = float32(c.Motion.Friction)
	d.MaxSpeed32 = float32(c.Motion.MaxSpeed)
	d.MaxSpeedSq32 = float32(c.Motion.MaxSpeed * c.Motion.MaxSpeed)
	d.BlendRate32 = float32(c.Motion.BlendRate)
	d.ColorRate32 = float32(c.Motion.ColorRate)

	d.ReflectPlayground32 = float32(c.Motion.Reflection.Playground)
	d.ReflectDrawing32 = float32(c.Motion.Reflection.Drawing)
	d.ReflectSilhouette32 = float32(c.Motion.Reflection.Silhouette)
	d.ReflectAudio32 = float32(c.Motion.Reflection.Audio)
	d.ReflectConfigured32 = float32(c.Motion.Reflection.Configured)

	d.BaseHue32 = float32(c.Color.BaseHue)
	d.HueSpeedRange32 = float32(c.Color.HueSpeedRange)
	d.AudioHueShift32 = float32(c.Color.AudioHueShift)
	d.Saturation32 = float32(c.Color.Saturation)
	d.Lightness32 = float32(c.Color.Lightness)
	d.LightnessSpeed32 = float32(c.Color.LightnessSpeed)
	d.SceneBlend32 = float32(c.Color.SceneBlend)
	d.AccentAudio32 = float32(c.Color.AccentAudio)
	d.SizeHandBoost32 = float32(c.Color.SizeHandBoost)
	d.SizeAudioBoost32 = float32(c.Color.SizeAudioBoost)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
