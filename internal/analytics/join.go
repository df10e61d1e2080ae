package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// joinedDose is a dose together with the check-ins attributed to it.
type joinedDose struct {
	dose     internal.DoseLog
	checkIns []internal.CheckIn
}

func (j joinedDose) outcome(penalty float64) float64 {
	total := 0.0
	for _, c := range j.checkIns {
		total += checkInOutcome(c, penalty)
	}
	return total / float64(len(j.checkIns))
}

// checkInOutcome collapses the three signals into one 1–5 score. A signal at its
// floor marks an overshoot or adverse effect and costs penalty.
func checkInOutcome(c internal.CheckIn, penalty float64) float64 {
	s := c.Signals
	score := float64(s.Energy+s.Clarity+s.Stability) / 3
	if s.Energy <= 1 || s.Clarity <= 1 || s.Stability <= 1 {
		score -= penalty
	}
	return math.Max(1, score)
}

// sortedDoses copies doses into timestamp order, id breaking ties.
func sortedDoses(doses []internal.DoseLog) []internal.DoseLog {
	out := make([]internal.DoseLog, len(doses))
	copy(out, doses)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sortedCheckIns(checkIns []internal.CheckIn) []internal.CheckIn {
	out := make([]internal.CheckIn, len(checkIns))
	copy(out, checkIns)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// join attributes check-ins to doses. A check-in naming a dose_id joins that dose
// when present; one without a dose_id joins the latest dose at or before it,
// provided the gap is within the link window. Anything else is dropped.
// The result is in dose timestamp order and contains every dose.
func (e *Engine) join(doses []internal.DoseLog, checkIns []internal.CheckIn) []joinedDose {
	ordered := sortedDoses(doses)
	joined := make([]joinedDose, len(ordered))
	byID := make(map[string]int, len(ordered))
	for i, d := range ordered {
		joined[i] = joinedDose{dose: d}
		if _, dup := byID[d.ID]; !dup {
			byID[d.ID] = i
		}
	}

	window := time.Duration(e.cfg.LinkWindowHours * float64(time.Hour))
	for _, c := range sortedCheckIns(checkIns) {
		if c.DoseID != nil && *c.DoseID != "" {
			if i, ok := byID[*c.DoseID]; ok {
				joined[i].checkIns = append(joined[i].checkIns, c)
			}
			continue
		}
		i := latestAtOrBefore(ordered, c.Timestamp)
		if i < 0 || c.Timestamp.Sub(ordered[i].Timestamp) > window {
			continue
		}
		joined[i].checkIns = append(joined[i].checkIns, c)
	}
	return joined
}

// latestAtOrBefore returns the index of the last dose not after t, or -1.
func latestAtOrBefore(ordered []internal.DoseLog, t time.Time) int {
	i := sort.Search(len(ordered), func(i int) bool {
		return ordered[i].Timestamp.After(t)
	})
	return i - 1
}

// withCheckIns keeps only doses that have at least one attributed check-in.
func withCheckIns(joined []joinedDose) []joinedDose {
	out := make([]joinedDose, 0, len(joined))
	for _, j := range joined {
		if len(j.checkIns) > 0 {
			out = append(out, j)
		}
	}
	return out
}
