package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

type amountStat struct {
	amount float64
	count  int
	mean   float64
}

// InsufficientDoses is the abstention returned when a batch has too few doses.
func (e *Engine) InsufficientDoses(have int) internal.ThresholdRange {
	return internal.ThresholdRange{
		Message: fmt.Sprintf("Log at least %d doses from this batch to estimate your range (%d so far).", e.cfg.MinBatchDoses, have),
		Reason:  internal.AbstainInsufficientDoses,
	}
}

func (e *Engine) insufficientCheckIns(doses, linked int) internal.ThresholdRange {
	return internal.ThresholdRange{
		Message: fmt.Sprintf(
			"You have %d doses from this batch but only %d check-ins linked to them. Check in after dosing; at least %d linked check-ins are needed to estimate your range.",
			doses, linked, e.cfg.MinLinkedCheckIns),
		Reason: internal.AbstainInsufficientCheckIns,
	}
}

// ThresholdRange infers the low, sweet-spot and high amounts for one batch from
// outcome history. Potency differs between batches, so only batchID's doses count.
func (e *Engine) ThresholdRange(doses []internal.DoseLog, checkIns []internal.CheckIn, batchID string) internal.ThresholdRange {
	// Join against everything so an unlinked check-in following another batch's
	// dose is not pulled onto an earlier dose from this batch.
	var batch []joinedDose
	for _, j := range e.join(doses, checkIns) {
		if j.dose.BatchID == batchID {
			batch = append(batch, j)
		}
	}
	if len(batch) < e.cfg.MinBatchDoses {
		return e.InsufficientDoses(len(batch))
	}

	linked := 0
	for _, j := range batch {
		linked += len(j.checkIns)
	}
	if linked < e.cfg.MinLinkedCheckIns {
		return e.insufficientCheckIns(len(batch), linked)
	}

	stats := e.amountStats(withCheckIns(batch))
	sweetIdx := sweetSpot(stats)
	sweet := stats[sweetIdx]

	low := stats[0]
	for _, s := range stats {
		if s.mean >= e.cfg.MinEffectOutcome-tieEpsilon {
			low = s
			break
		}
	}

	high := stats[len(stats)-1]
	for i := sweetIdx + 1; i < len(stats); i++ {
		if sweet.mean-stats[i].mean > e.cfg.DegradationMargin+tieEpsilon {
			high = stats[i-1]
			break
		}
	}

	return internal.ThresholdRange{
		Range: &internal.DoseRange{
			Low:   internal.ThresholdPoint{Dose: low.amount, Confidence: pointConfidence(low.count)},
			Sweet: internal.ThresholdPoint{Dose: sweet.amount, Confidence: pointConfidence(sweet.count)},
			High:  internal.ThresholdPoint{Dose: high.amount, Confidence: pointConfidence(high.count)},
		},
		Message: fmt.Sprintf("Range based on %d doses and %d check-ins from this batch.", len(batch), linked),
	}
}

// amountStats groups doses by amount, ascending.
func (e *Engine) amountStats(joined []joinedDose) []amountStat {
	sums := map[float64]float64{}
	counts := map[float64]int{}
	for _, j := range joined {
		sums[j.dose.Amount] += j.outcome(e.cfg.FloorPenalty)
		counts[j.dose.Amount]++
	}
	stats := make([]amountStat, 0, len(counts))
	for amount, n := range counts {
		stats = append(stats, amountStat{amount: amount, count: n, mean: sums[amount] / float64(n)})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].amount < stats[j].amount })
	return stats
}

// sweetSpot returns the index of the best mean outcome. Ties go to the larger
// sample, then the smaller amount.
func sweetSpot(stats []amountStat) int {
	best := 0
	for i := 1; i < len(stats); i++ {
		s, b := stats[i], stats[best]
		switch {
		case s.mean > b.mean+tieEpsilon:
			best = i
		case math.Abs(s.mean-b.mean) <= tieEpsilon && s.count > b.count:
			best = i
		}
	}
	return best
}

func pointConfidence(count int) float64 {
	return math.Min(100, float64(20+16*count))
}
