package telemetry

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/driftfield/config"
)

// MomentType identifies the type of detected moment.
type MomentType string

const (
	MomentSpeedBurst    MomentType = "speed_burst"
	MomentSustainedCalm MomentType = "sustained_calm"
	MomentSqueeze       MomentType = "squeeze"
	MomentHandsReturn   MomentType = "hands_return"
)

// Moment represents an automatically flagged interaction moment.
type Moment struct {
	Type        MomentType `csv:"type" json:"type"`
	Tick        int32      `csv:"tick" json:"tick"`
	Description string     `csv:"description" json:"description"`
}

// LogMoment logs the moment using slog.
func (m Moment) LogMoment() {
	slog.Info("moment",
		"type", string(m.Type),
		"tick", m.Tick,
		"description", m.Description,
	)
}

// MomentDetector detects notable interaction moments from window stats.
type MomentDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// Thresholds
	burstMultiplier float64
	burstMinSpeed   float64
	calmSpeed       float64
	calmWindows     int
	squeezeFraction float64

	// State tracking
	calmCount   int  // consecutive windows below the calm speed
	idleWindows int  // consecutive windows without hand frames
	squeezing   bool // squeeze already flagged for the current hold
}

// NewMomentDetector creates a detector with the given history size and
// configured thresholds.
func NewMomentDetector(historySize int, cfg config.MomentsConfig) *MomentDetector {
	if historySize < 5 {
		historySize = 5 // minimum for rolling-average detection
	}
	return &MomentDetector{
		history:         make([]WindowStats, historySize),
		historySize:     historySize,
		burstMultiplier: cfg.BurstMultiplier,
		burstMinSpeed:   cfg.BurstMinSpeed,
		calmSpeed:       cfg.CalmSpeed,
		calmWindows:     cfg.CalmWindows,
		squeezeFraction: cfg.SqueezeFraction,
	}
}

// Check analyzes the latest stats and returns any triggered moments.
func (md *MomentDetector) Check(stats WindowStats) []Moment {
	var moments []Moment

	// Speed burst: p90 speed well above the rolling average
	if m := md.checkSpeedBurst(stats); m != nil {
		moments = append(moments, *m)
	}

	// Sustained calm: mean speed near zero over consecutive windows
	if m := md.checkSustainedCalm(stats); m != nil {
		moments = append(moments, *m)
	}

	// Squeeze: compression held for most of a window
	if m := md.checkSqueeze(stats); m != nil {
		moments = append(moments, *m)
	}

	// Hands return: hand frames after two or more idle windows
	if m := md.checkHandsReturn(stats); m != nil {
		moments = append(moments, *m)
	}

	// Update history
	md.addToHistory(stats)

	return moments
}

func (md *MomentDetector) addToHistory(stats WindowStats) {
	md.history[md.historyIdx] = stats
	md.historyIdx = (md.historyIdx + 1) % md.historySize
	if md.historyIdx == 0 {
		md.historyFull = true
	}
}

func (md *MomentDetector) getHistory() []WindowStats {
	if md.historyFull {
		return md.history
	}
	return md.history[:md.historyIdx]
}

func (md *MomentDetector) checkSpeedBurst(stats WindowStats) *Moment {
	history := md.getHistory()
	if len(history) < 3 {
		return nil
	}

	// Calculate rolling average p90 speed
	var total float64
	for _, h := range history {
		total += h.SpeedP90
	}
	avg := total / float64(len(history))

	if avg == 0 {
		return nil
	}

	if stats.SpeedP90 > avg*md.burstMultiplier && stats.SpeedP90 > md.burstMinSpeed {
		return &Moment{
			Type:        MomentSpeedBurst,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Speed p90 %.3f is %.1fx the rolling average (%.3f)", stats.SpeedP90, stats.SpeedP90/avg, avg),
		}
	}

	return nil
}

func (md *MomentDetector) checkSustainedCalm(stats WindowStats) *Moment {
	if stats.SpeedMean >= md.calmSpeed {
		md.calmCount = 0
		return nil
	}

	md.calmCount++
	if md.calmCount == md.calmWindows { // trigger exactly once per calm stretch
		return &Moment{
			Type:        MomentSustainedCalm,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Mean speed %.4f below %.4f for %d windows", stats.SpeedMean, md.calmSpeed, md.calmWindows),
		}
	}

	return nil
}

func (md *MomentDetector) checkSqueeze(stats WindowStats) *Moment {
	if stats.Frames == 0 {
		return nil
	}

	frac := float64(stats.CompressionFrames) / float64(stats.Frames)
	if frac <= md.squeezeFraction {
		md.squeezing = false
		return nil
	}
	if md.squeezing {
		return nil
	}

	// Rising edge of a sustained squeeze
	md.squeezing = true
	return &Moment{
		Type:        MomentSqueeze,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Compression held for %.0f%% of the window", frac*100),
	}
}

func (md *MomentDetector) checkHandsReturn(stats WindowStats) *Moment {
	if stats.HandFrames == 0 {
		md.idleWindows++
		return nil
	}

	idle := md.idleWindows
	md.idleWindows = 0
	if idle < 2 {
		return nil
	}

	return &Moment{
		Type:        MomentHandsReturn,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Hands returned after %d idle windows", idle),
	}
}
