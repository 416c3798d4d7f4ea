package main

import (
	"log"
	"math"
	"sync"

	"github.com/pthm-cable/driftfield/config"
	"github.com/pthm-cable/driftfield/field"
	"github.com/pthm-cable/driftfield/input"
	"github.com/pthm-cable/driftfield/scene"
	"github.com/pthm-cable/driftfield/telemetry"
)

// Scenario timing. Each scenario runs long enough to flush six one-second
// stats windows; the flush happens on the step after the window boundary,
// hence the extra tick.
const (
	scenarioSeconds = 6.0
	windowSeconds   = 1.0
	scenarioTicks   = int(scenarioSeconds/field.DT) + 1
)

// Quality component weights.
const (
	weightSettle    = 0.25
	weightGrab      = 0.25
	weightPulse     = 0.20
	weightSqueeze   = 0.15
	weightStability = 0.15
)

// ScenarioScores breaks quality down per scenario, each in [0,1].
type ScenarioScores struct {
	Settle    float64 `json:"settle"`
	Grab      float64 `json:"grab"`
	Pulse     float64 `json:"pulse"`
	Squeeze   float64 `json:"squeeze"`
	Stability float64 `json:"stability"`
	Quality   float64 `json:"quality"`
}

// Evaluator runs headless scenario batteries and computes fitness.
type Evaluator struct {
	params     *ParamVector
	seeds      []int64
	baseConfig *config.Config
	particles  int

	// Best run tracking
	mu          sync.Mutex
	bestFitness float64
	bestScores  *ScenarioScores
	lastQuality float64 // quality from most recent Evaluate call
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(params *ParamVector, seeds []int64, baseCfg *config.Config, particles int) *Evaluator {
	return &Evaluator{
		params:      params,
		seeds:       seeds,
		baseConfig:  baseCfg,
		particles:   particles,
		bestFitness: math.Inf(1),
	}
}

// BestScores returns the per-scenario breakdown from the best evaluation.
func (ev *Evaluator) BestScores() *ScenarioScores {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.bestScores
}

// LastQuality returns the quality score from the most recent evaluation.
func (ev *Evaluator) LastQuality() float64 {
	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.lastQuality
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness float64
	scores  ScenarioScores
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative quality: a better-feeling field scores lower.
func (ev *Evaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(ev.seeds))
	var wg sync.WaitGroup

	for i, seed := range ev.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = ev.runSeed(x, s)
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedScores *ScenarioScores

	for i := range results {
		totalFitness += results[i].fitness
		totalQuality += results[i].scores.Quality
		if results[i].fitness < bestSeedFitness {
			bestSeedFitness = results[i].fitness
			bestSeedScores = &results[i].scores
		}
	}

	n := float64(len(ev.seeds))
	avgFitness := totalFitness / n

	// Update best tracking
	ev.mu.Lock()
	if avgFitness < ev.bestFitness {
		ev.bestFitness = avgFitness
		ev.bestScores = bestSeedScores
	}
	ev.lastQuality = totalQuality / n
	ev.mu.Unlock()

	return avgFitness
}

// runSeed applies the parameters to a fresh config copy and runs the full
// scenario battery under one seed. Failures score worst rather than abort
// the optimization.
func (ev *Evaluator) runSeed(x []float64, seed int64) seedResult {
	cfg := *ev.baseConfig
	if err := ev.params.ApplyToConfig(&cfg, x); err != nil {
		log.Printf("seed %d: apply params: %v", seed, err)
		return seedResult{}
	}

	scores, err := ev.runScenarios(&cfg, seed)
	if err != nil {
		log.Printf("seed %d: %v", seed, err)
		return seedResult{}
	}
	return seedResult{fitness: -scores.Quality, scores: scores}
}

func (ev *Evaluator) runScenarios(cfg *config.Config, seed int64) (ScenarioScores, error) {
	var s ScenarioScores

	openHand := simPose(cfg, input.Vec3{X: 4}, true)
	leftFist := simPose(cfg, input.Vec3{X: -1.4}, false)
	rightFist := simPose(cfg, input.Vec3{X: 1.4}, false)

	// Settle: an open hand pulls for two seconds, then vanishes. The cloud
	// must be back on its home anchors by the end.
	handTicks := int(2.0 / field.DT)
	settle, err := ev.runScenario(cfg, seed, func(f *field.Field, tick int) {
		if tick < handTicks {
			f.SetHands(input.Frame{Hands: []input.HandPose{openHand}})
		} else {
			f.SetHands(input.Frame{})
		}
	})
	if err != nil {
		return s, err
	}
	s.Settle = scoreSettle(settle)

	// Grab: an open hand held off-center must pull the cloud a visible
	// distance without scattering it.
	grab, err := ev.runScenario(cfg, seed, func(f *field.Field, tick int) {
		f.SetHands(input.Frame{Hands: []input.HandPose{openHand}})
	})
	if err != nil {
		return s, err
	}
	s.Grab = scoreGrab(grab)

	// Pulse: sustained loud audio must keep the field alive but finite.
	pulse, err := ev.runScenario(cfg, seed, func(f *field.Field, tick int) {
		if tick == 0 {
			f.SetMode(scene.ModeAudio)
		}
		f.SetAudioLevel(0.9)
	})
	if err != nil {
		return s, err
	}
	s.Pulse = scorePulse(pulse)
	s.Stability = scoreStability(pulse)

	// Squeeze: two close palms must engage compression and drive a
	// contained swirl.
	squeeze, err := ev.runScenario(cfg, seed, func(f *field.Field, tick int) {
		f.SetHands(input.Frame{Hands: []input.HandPose{leftFist, rightFist}})
	})
	if err != nil {
		return s, err
	}
	s.Squeeze = scoreSqueeze(squeeze)

	s.Quality = clamp01(weightSettle*s.Settle +
		weightGrab*s.Grab +
		weightPulse*s.Pulse +
		weightSqueeze*s.Squeeze +
		weightStability*s.Stability)
	return s, nil
}

// runScenario executes one scripted headless run and returns its stats
// windows. The script runs before every step.
func (ev *Evaluator) runScenario(cfg *config.Config, seed int64, script func(f *field.Field, tick int)) ([]telemetry.WindowStats, error) {
	var windows []telemetry.WindowStats

	f, err := field.New(field.Options{
		Config:         cfg,
		Seed:           seed,
		Particles:      ev.particles,
		StatsWindowSec: windowSeconds,
		StatsCallback: func(ws telemetry.WindowStats) {
			windows = append(windows, ws)
		},
	})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for tick := 0; tick < scenarioTicks; tick++ {
		script(f, tick)
		f.Step(field.DT)
	}
	return windows, nil
}

// simPose builds a hand pose whose palm lands on the given simulation-space
// point once the input transform runs.
func simPose(cfg *config.Config, sim input.Vec3, open bool) input.HandPose {
	d := &cfg.Derived
	return input.HandPose{
		Palm: input.Vec3{
			X: 0.5 - sim.X/d.InputScaleX32,
			Y: 0.5 - sim.Y/d.InputScaleY32,
			Z: -sim.Z / d.InputScaleZ32,
		},
		IsOpen: open,
	}
}

// scoreSettle rewards a cloud that is back near its home anchors in the
// final window, four seconds after the hand left.
func scoreSettle(windows []telemetry.WindowStats) float64 {
	if len(windows) == 0 {
		return 0
	}
	hd := windows[len(windows)-1].HomeDistMean
	return math.Exp(-(hd / 0.3) * (hd / 0.3))
}

// scoreGrab rewards steady-state displacement in a band around two world
// units: visibly pulled, not flung.
func scoreGrab(windows []telemetry.WindowStats) float64 {
	if len(windows) < 3 {
		return 0
	}
	var sum float64
	steady := windows[2:]
	for _, w := range steady {
		sum += w.HomeDistMean
	}
	hd := sum / float64(len(steady))
	z := (hd - 2.0) / 1.2
	return math.Exp(-z * z)
}

// scorePulse rewards lively but finite motion under loud audio. Any heal
// means the integrator produced a non-finite value, which collapses the
// score.
func scorePulse(windows []telemetry.WindowStats) float64 {
	if len(windows) < 3 {
		return 0
	}
	var speedSum float64
	heals := 0
	steady := windows[2:]
	for _, w := range steady {
		speedSum += w.SpeedMean
		heals += w.Heals
	}
	sm := speedSum / float64(len(steady))
	z := (sm - 0.12) / 0.10
	return math.Exp(-z*z) * math.Exp(-float64(heals))
}

// scoreSqueeze rewards compression that actually engages and drives a
// contained swirl.
func scoreSqueeze(windows []telemetry.WindowStats) float64 {
	if len(windows) < 2 {
		return 0
	}
	var compFrac, speedSum float64
	steady := windows[1:]
	for _, w := range steady {
		if w.Frames > 0 {
			compFrac += float64(w.CompressionFrames) / float64(w.Frames)
		}
		speedSum += w.SpeedMean
	}
	n := float64(len(steady))
	compFrac /= n
	sm := speedSum / n
	z := (sm - 0.10) / 0.10
	return compFrac * math.Exp(-z*z)
}

// scoreStability rewards a flat speed profile across the pulse windows.
func scoreStability(windows []telemetry.WindowStats) float64 {
	if len(windows) < 4 {
		return 0
	}
	speeds := make([]float64, 0, len(windows)-2)
	for _, w := range windows[2:] {
		speeds = append(speeds, w.SpeedMean)
	}
	c := cv(speeds)
	return math.Exp(-4 * c * c)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
