package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

var recommendations = map[internal.CarryoverTier]string{
	internal.TierClear:    "Clear to proceed. Residual load from recent doses is minimal.",
	internal.TierMild:     "Proceed mindfully. Some residual load remains, so expect a slightly softer effect.",
	internal.TierModerate: "Consider waiting. Carryover is building and a dose now will register weaker.",
	internal.TierHigh:     "Consider waiting. Tolerance is elevated; a rest day or two will reset your baseline.",
}

// TierForScore maps a 0–100 carryover score onto its tier.
func TierForScore(score float64) internal.CarryoverTier {
	switch {
	case score < mildThreshold:
		return internal.TierClear
	case score < moderateThreshold:
		return internal.TierMild
	case score < highThreshold:
		return internal.TierModerate
	default:
		return internal.TierHigh
	}
}

// Recommendation returns the fixed guidance text for a tier.
func Recommendation(tier internal.CarryoverTier) string {
	return recommendations[tier]
}

// EffectiveDose scales a logged amount by the carryover multiplier in effect when it was taken.
func EffectiveDose(amount float64, c internal.CarryoverResult) float64 {
	return amount * c.EffectiveDoseMultiplier
}

// Carryover estimates the residual load left by history and what it means for the next dose.
// history is expected to be the trailing window; older doses decay to zero anyway.
func (e *Engine) Carryover(history []internal.DoseLog, user internal.User) internal.CarryoverResult {
	score := e.CarryoverScore(history, user)
	return e.resultForScore(score)
}

// CarryoverScore returns the raw 0–100 score without tier or recommendation.
func (e *Engine) CarryoverScore(history []internal.DoseLog, user internal.User) float64 {
	load := e.load(history, user, e.Now())
	if load <= 0 {
		return 0
	}
	score := 100 * (1 - math.Exp(-load/e.cfg.SaturationLoad))
	return math.Min(100, score)
}

func (e *Engine) resultForScore(score float64) internal.CarryoverResult {
	score = math.Max(0, math.Min(100, score))
	tier := TierForScore(score)
	return internal.CarryoverResult{
		Score:                   score,
		Tier:                    tier,
		Recommendation:          Recommendation(tier),
		EffectiveDoseMultiplier: e.multiplier(score),
	}
}

// ResultForScore builds a full result from an externally supplied score.
func (e *Engine) ResultForScore(score float64) internal.CarryoverResult {
	return e.resultForScore(score)
}

func (e *Engine) multiplier(score float64) float64 {
	floor := e.cfg.MultiplierFloor
	if floor <= 0 || floor > 1 {
		floor = 0.5
	}
	return 1 - (1-floor)*(score/100)
}

func (e *Engine) load(history []internal.DoseLog, user internal.User, now time.Time) float64 {
	if len(history) == 0 {
		return 0
	}
	unit := e.normalisationUnit(history, user.PrimarySubstance)
	personal := e.personalMultiplier(user.Sensitivity)
	caffeine := 1 + e.cfg.CaffeineStep*float64(clampSensitivity(user.Sensitivity.Caffeine))

	// Summing in a fixed order keeps the float result identical for shuffled input.
	contributions := make([]float64, 0, len(history))
	for _, d := range history {
		decay := e.decay(now.Sub(d.Timestamp))
		if decay == 0 {
			continue
		}
		c := (d.Amount / unit) * decay * personal
		if caffeinated(d) {
			c *= caffeine
		}
		contributions = append(contributions, c)
	}
	sort.Float64s(contributions)
	total := 0.0
	for _, c := range contributions {
		total += c
	}
	return total
}

// decay is the share of a dose's load still present after elapsed.
func (e *Engine) decay(elapsed time.Duration) float64 {
	hours := elapsed.Hours()
	if hours < 0 {
		hours = 0
	}
	if hours > float64(e.cfg.WindowDays*24) {
		return 0
	}
	active := math.Exp2(-hours / e.cfg.HalfLifeHours)
	tail := math.Exp2(-hours / e.cfg.TailHalfLifeHours)
	return (1-e.cfg.TailWeight)*active + e.cfg.TailWeight*tail
}

func (e *Engine) normalisationUnit(history []internal.DoseLog, substance internal.Substance) float64 {
	if unit, ok := e.cfg.TypicalDose[substance]; ok && unit > 0 {
		return unit
	}
	// Unknown substance: the user's own mean amount is the typical dose.
	total := 0.0
	for _, d := range history {
		total += d.Amount
	}
	if total <= 0 {
		return 1
	}
	return total / float64(len(history))
}

func (e *Engine) personalMultiplier(s internal.Sensitivity) float64 {
	body := float64(clampSensitivity(s.BodyAwareness) - 3)
	emotional := float64(clampSensitivity(s.EmotionalReactivity) - 3)
	return 1 + e.cfg.SensitivityStep*body + e.cfg.SensitivityStep*emotional
}

// clampSensitivity treats an unset or out-of-range value as the neutral midpoint.
func clampSensitivity(v int) int {
	if v < 1 || v > 5 {
		return 3
	}
	return v
}

func caffeinated(d internal.DoseLog) bool {
	if d.CaffeineMg != nil && *d.CaffeineMg > 0 {
		return true
	}
	return d.CaffeineTiming != nil && *d.CaffeineTiming != "" && *d.CaffeineTiming != internal.CaffeineNone
}

// RecentDoses returns the doses inside the carryover window ending at now, newest first.
func RecentDoses(doses []internal.DoseLog, now time.Time, windowDays int) []internal.DoseLog {
	cutoff := now.AddDate(0, 0, -windowDays)
	out := make([]internal.DoseLog, 0, len(doses))
	for _, d := range doses {
		if d.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
