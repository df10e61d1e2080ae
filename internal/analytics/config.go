// Package analytics turns dose and check-in history into carryover scores,
// detected patterns and per-batch threshold ranges.
//
// Every function here is a pure computation over the slices it is given. No
// input is modified and the only outside dependency is the engine's clock.
package analytics

import (
	"time"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// Tier boundaries are fixed contract points and are not part of Config.
const (
	mildThreshold     = 25.0
	moderateThreshold = 50.0
	highThreshold     = 75.0
)

// Config contains every tunable policy constant used by the engine.
type Config struct {
	// Carryover decay
	WindowDays        int     // doses older than this contribute nothing (14)
	HalfLifeHours     float64 // active-phase half-life (24)
	TailHalfLifeHours float64 // slow tolerance tail half-life (120)
	TailWeight        float64 // share of a dose's load that decays on the tail (0.05)
	SaturationLoad    float64 // load at which the score reaches ~63 (1.5)

	// Units of a "typical" microdose per substance, used to normalise amounts.
	TypicalDose map[internal.Substance]float64

	// Personal weighting
	SensitivityStep float64 // per point of bodyAwareness/emotionalReactivity away from 3
	CaffeineStep    float64 // per point of caffeine sensitivity, caffeinated doses only
	MultiplierFloor float64 // effective-dose multiplier at score 100

	// Pattern detection
	MinSamples         int     // observations required per detector and per winning bucket
	SignificanceMargin float64 // minimum positive deviation on the 1–5 scale
	AntiPatternMargin  float64 // minimum negative deviation on the 1–5 scale
	LinkWindowHours    float64 // how far after a dose an unlinked check-in can attach
	FloorPenalty       float64 // subtracted from a check-in outcome when a signal is 1

	// Threshold range
	MinBatchDoses     int
	MinLinkedCheckIns int
	MinEffectOutcome  float64 // mean outcome an amount needs to count as effective
	DegradationMargin float64 // drop from the sweet-spot outcome that marks the high end

	// Location is used for weekday bucketing.
	Location *time.Location
}

// DefaultConfig returns the design defaults.
func DefaultConfig() Config {
	return Config{
		WindowDays:        14,
		HalfLifeHours:     24,
		TailHalfLifeHours: 120,
		TailWeight:        0.05,
		SaturationLoad:    1.5,
		TypicalDose: map[internal.Substance]float64{
			internal.SubstancePsilocybin: 125,  // 50–200 mg
			internal.SubstanceLSD:        12.5, // 5–20 µg
		},
		SensitivityStep:    0.10,
		CaffeineStep:       0.05,
		MultiplierFloor:    0.5,
		MinSamples:         8,
		SignificanceMargin: 0.75,
		AntiPatternMargin:  0.75,
		LinkWindowHours:    48,
		FloorPenalty:       0.5,
		MinBatchDoses:      5,
		MinLinkedCheckIns:  5,
		MinEffectOutcome:   3.5,
		DegradationMargin:  1.0,
		Location:           time.UTC,
	}
}

// Engine runs the three analyses. It holds no mutable state and can be shared.
type Engine struct {
	cfg   Config
	clock func() time.Time
}

func New(cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{cfg: cfg, clock: time.Now}
}

// WithClock returns a copy of the engine that reads "now" from fn.
func (e *Engine) WithClock(fn func() time.Time) *Engine {
	cp := *e
	cp.clock = fn
	return &cp
}

// WithConfig returns a copy of the engine using cfg.
func (e *Engine) WithConfig(cfg Config) *Engine {
	cp := *e
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	cp.cfg = cfg
	return &cp
}

func (e *Engine) Config() Config { return e.cfg }

// Now reads the engine clock.
func (e *Engine) Now() time.Time { return e.clock() }

// FixedClock returns a clock that always reports t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
