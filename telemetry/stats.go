package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats holds aggregated interaction statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-" json:"-"`
	WindowEndTick   int32   `csv:"window_end" json:"window_end"`
	SimTimeSec      float64 `csv:"sim_time" json:"sim_time"`

	// Field state at window end
	Particles int    `csv:"particles" json:"particles"`
	Mode      string `csv:"mode" json:"mode"`

	// Frame counts during window
	Frames            int `csv:"frames" json:"frames"`
	HandFrames        int `csv:"hand_frames" json:"hand_frames"`
	TwoHandFrames     int `csv:"two_hand_frames" json:"two_hand_frames"`
	CompressionFrames int `csv:"compression_frames" json:"compression_frames"`

	// Gesture frame counts
	PeaceFrames    int `csv:"peace_frames" json:"peace_frames"`
	RockFrames     int `csv:"rock_frames" json:"rock_frames"`
	ThumbsUpFrames int `csv:"thumbs_up_frames" json:"thumbs_up_frames"`
	PointerFrames  int `csv:"pointer_frames" json:"pointer_frames"`
	OKFrames       int `csv:"ok_frames" json:"ok_frames"`

	// State transitions during window
	ModeSwitches int `csv:"mode_switches" json:"mode_switches"`
	SceneSwaps   int `csv:"scene_swaps" json:"scene_swaps"`

	// Audio level averaged over frames
	AudioMean float64 `csv:"audio_mean" json:"audio_mean"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean" json:"speed_mean"`
	SpeedP10  float64 `csv:"speed_p10" json:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50" json:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90" json:"speed_p90"`

	// Distance from home anchors (sampled at window end)
	HomeDistMean float64 `csv:"home_dist_mean" json:"home_dist_mean"`
	HomeDistP90  float64 `csv:"home_dist_p90" json:"home_dist_p90"`

	// Numeric hygiene during window
	Heals   int `csv:"heals" json:"heals"`
	Bounces int `csv:"bounces" json:"bounces"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean and percentiles from sampled values.
// Used for both particle speeds and home-anchor distances.
func ComputeSpeedStats(values []float64) (mean, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0
	}

	// Calculate mean
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(n)

	// Sort for percentiles
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.String("mode", s.Mode),
		slog.Int("frames", s.Frames),
		slog.Int("hand_frames", s.HandFrames),
		slog.Int("two_hand_frames", s.TwoHandFrames),
		slog.Int("compression_frames", s.CompressionFrames),
		slog.Int("peace_frames", s.PeaceFrames),
		slog.Int("rock_frames", s.RockFrames),
		slog.Int("thumbs_up_frames", s.ThumbsUpFrames),
		slog.Int("pointer_frames", s.PointerFrames),
		slog.Int("ok_frames", s.OKFrames),
		slog.Int("mode_switches", s.ModeSwitches),
		slog.Int("scene_swaps", s.SceneSwaps),
		slog.Float64("audio_mean", s.AudioMean),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("home_dist_mean", s.HomeDistMean),
		slog.Float64("home_dist_p90", s.HomeDistP90),
		slog.Int("heals", s.Heals),
		slog.Int("bounces", s.Bounces),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"mode", s.Mode,
		"frames", s.Frames,
		"hand_frames", s.HandFrames,
		"two_hand_frames", s.TwoHandFrames,
		"compression_frames", s.CompressionFrames,
		"peace_frames", s.PeaceFrames,
		"rock_frames", s.RockFrames,
		"thumbs_up_frames", s.ThumbsUpFrames,
		"pointer_frames", s.PointerFrames,
		"ok_frames", s.OKFrames,
		"mode_switches", s.ModeSwitches,
		"scene_swaps", s.SceneSwaps,
		"audio_mean", s.AudioMean,
		"speed_mean", s.SpeedMean,
		"speed_p10", s.SpeedP10,
		"speed_p50", s.SpeedP50,
		"speed_p90", s.SpeedP90,
		"home_dist_mean", s.HomeDistMean,
		"home_dist_p90", s.HomeDistP90,
		"heals", s.Heals,
		"bounces", s.Bounces,
	)
}
