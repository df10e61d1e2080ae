package service

import (
	"context"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/analytics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/metrics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

// DetectPatterns runs the detector over the user's full history.
func DetectPatterns(ctx context.Context, doses storage.DoseRepository, checkIns storage.CheckInRepository, engine *analytics.Engine, user *internal.User) ([]internal.Pattern, error) {
	ds, err := doses.ListDoses(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	cs, err := checkIns.ListCheckIns(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	patterns := engine.DetectPatterns(*user, ds, cs)
	for _, p := range patterns {
		metrics.PatternsEmitted.WithLabelValues(string(p.Type)).Inc()
	}
	return patterns, nil
}

// BatchThreshold estimates the range for one of the user's batches. An unknown
// batch returns storage.ErrNotFound. When the stored counter already shows too
// few doses the history is not loaded.
func BatchThreshold(ctx context.Context, doses storage.DoseRepository, checkIns storage.CheckInRepository, batches storage.BatchRepository, engine *analytics.Engine, user *internal.User, batchID string) (internal.ThresholdRange, error) {
	batch, err := batches.GetBatch(ctx, user.ID, batchID)
	if err != nil {
		return internal.ThresholdRange{}, err
	}

	var result internal.ThresholdRange
	if batch.DosesLogged < engine.Config().MinBatchDoses {
		result = engine.InsufficientDoses(batch.DosesLogged)
	} else {
		ds, err := doses.ListDoses(ctx, user.ID)
		if err != nil {
			return internal.ThresholdRange{}, err
		}
		cs, err := checkIns.ListCheckIns(ctx, user.ID)
		if err != nil {
			return internal.ThresholdRange{}, err
		}
		result = engine.ThresholdRange(ds, cs, batchID)
	}

	if result.Range == nil {
		metrics.ThresholdAbstentions.WithLabelValues(result.Reason).Inc()
	}
	return result, nil
}
