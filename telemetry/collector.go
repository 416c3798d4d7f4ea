package telemetry

import (
	"math"

	"github.com/pthm-cable/driftfield/input"
)

// FrameSample carries the per-tick facts the collector aggregates.
type FrameSample struct {
	HandCount   int
	Gesture     input.Gesture
	TwoHands    bool
	Compressing bool
	Audio       float32
	Heals       int
	Bounces     int
}

// Collector accumulates frame samples and events within time windows and
// produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	// Frame counters for current window
	frames            int
	handFrames        int
	twoHandFrames     int
	compressionFrames int
	gestureFrames     [input.GestureCount]int
	heals             int
	bounces           int
	audioSum          float64

	// Transition counters for current window
	modeSwitches int
	sceneSwaps   int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	// Round, don't truncate: 5.0s at a float32 1/60 dt is 299.9999 ticks.
	ticksPerWindow := int32(math.Round(windowDurationSec / float64(dt)))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartTick:     0,
	}
}

// RecordFrame accumulates one tick's interaction facts.
func (c *Collector) RecordFrame(s FrameSample) {
	c.frames++
	if s.HandCount > 0 {
		c.handFrames++
	}
	if s.TwoHands {
		c.twoHandFrames++
	}
	if s.Compressing {
		c.compressionFrames++
	}
	if int(s.Gesture) < len(c.gestureFrames) {
		c.gestureFrames[s.Gesture]++
	}
	c.heals += s.Heals
	c.bounces += s.Bounces
	c.audioSum += float64(s.Audio)
}

// Record counts state-transition events. Frame-level facts arrive through
// RecordFrame; only transitions are counted here.
func (c *Collector) Record(ev Event) {
	switch ev.Type {
	case EventModeChange:
		c.modeSwitches++
	case EventSceneApplied, EventSceneCleared:
		c.sceneSwaps++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// The caller must provide:
// - currentTick: the current simulation tick
// - particles: current particle count
// - mode: the active interaction mode name
// - speeds, homeDists: sampled per-particle values for percentile calculation
func (c *Collector) Flush(
	currentTick int32,
	particles int,
	mode string,
	speeds, homeDists []float64,
) WindowStats {
	var audioMean float64
	if c.frames > 0 {
		audioMean = c.audioSum / float64(c.frames)
	}

	speedMean, speedP10, speedP50, speedP90 := ComputeSpeedStats(speeds)
	homeMean, _, _, homeP90 := ComputeSpeedStats(homeDists)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Particles: particles,
		Mode:      mode,

		Frames:            c.frames,
		HandFrames:        c.handFrames,
		TwoHandFrames:     c.twoHandFrames,
		CompressionFrames: c.compressionFrames,

		PeaceFrames:    c.gestureFrames[input.GesturePeace],
		RockFrames:     c.gestureFrames[input.GestureRock],
		ThumbsUpFrames: c.gestureFrames[input.GestureThumbsUp],
		PointerFrames:  c.gestureFrames[input.GesturePointer],
		OKFrames:       c.gestureFrames[input.GestureOK],

		ModeSwitches: c.modeSwitches,
		SceneSwaps:   c.sceneSwaps,

		AudioMean: audioMean,

		SpeedMean: speedMean,
		SpeedP10:  speedP10,
		SpeedP50:  speedP50,
		SpeedP90:  speedP90,

		HomeDistMean: homeMean,
		HomeDistP90:  homeP90,

		Heals:   c.heals,
		Bounces: c.bounces,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.frames = 0
	c.handFrames = 0
	c.twoHandFrames = 0
	c.compressionFrames = 0
	c.gestureFrames = [input.GestureCount]int{}
	c.heals = 0
	c.bounces = 0
	c.audioSum = 0
	c.modeSwitches = 0
	c.sceneSwaps = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
