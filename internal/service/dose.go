package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/analytics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/metrics"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

var validate = validator.New()

type DoseRequest struct {
	BatchID        string                   `json:"batch_id" validate:"required"`
	Amount         float64                  `json:"amount" validate:"required,gt=0"`
	FoodState      internal.FoodState       `json:"food_state" validate:"required,oneof=empty light full"`
	Intention      string                   `json:"intention" validate:"required,max=500"`
	SleepHours     *float64                 `json:"sleep_hours,omitempty" validate:"omitempty,gte=0,lte=24"`
	SleepQuality   *int                     `json:"sleep_quality,omitempty" validate:"omitempty,gte=1,lte=5"`
	StressLevel    *int                     `json:"stress_level,omitempty" validate:"omitempty,gte=1,lte=5"`
	CaffeineMg     *float64                 `json:"caffeine_mg,omitempty" validate:"omitempty,gte=0"`
	CaffeineTiming *internal.CaffeineTiming `json:"caffeine_timing,omitempty" validate:"omitempty,oneof=none before with after"`
	Environment    *string                  `json:"environment,omitempty" validate:"omitempty,max=100"`
	Cannabis       *bool                    `json:"cannabis,omitempty"`
	CycleDay       *int                     `json:"cycle_day,omitempty" validate:"omitempty,gte=1,lte=60"`
	Exercise       *string                  `json:"exercise,omitempty" validate:"omitempty,max=100"`
	Notes          *string                  `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func ValidateDoseRequest(body *DoseRequest) error {
	return validate.Struct(body)
}

// CreateDose snapshots carryover from the last 14 days, stores the dose with
// its effective amount and bumps the batch counter. A failed counter update
// does not fail the dose.
func CreateDose(ctx context.Context, doses storage.DoseRepository, batches storage.BatchRepository, engine *analytics.Engine, logger internal.Logger, user *internal.User, body *DoseRequest) (*internal.DoseLog, error) {
	now := engine.Now()
	windowDays := engine.Config().WindowDays
	recent, err := doses.ListDosesSince(ctx, user.ID, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return nil, err
	}

	carryover := engine.Carryover(analytics.RecentDoses(recent, now, windowDays), *user)
	metrics.CarryoverTiers.WithLabelValues(string(carryover.Tier)).Inc()

	dose := &internal.DoseLog{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		BatchID:        body.BatchID,
		Amount:         body.Amount,
		Timestamp:      now,
		FoodState:      body.FoodState,
		Intention:      body.Intention,
		EffectiveDose:  analytics.EffectiveDose(body.Amount, carryover),
		Carryover:      &carryover,
		SleepHours:     body.SleepHours,
		SleepQuality:   body.SleepQuality,
		StressLevel:    body.StressLevel,
		CaffeineMg:     body.CaffeineMg,
		CaffeineTiming: body.CaffeineTiming,
		Environment:    body.Environment,
		Cannabis:       body.Cannabis,
		CycleDay:       body.CycleDay,
		Exercise:       body.Exercise,
		Notes:          body.Notes,
		Tags:           []string{},
		CreatedAt:      time.Now(),
	}
	if err := doses.SaveDose(ctx, dose); err != nil {
		return nil, err
	}

	if err := batches.IncrementBatchDoses(ctx, user.ID, body.BatchID); err != nil {
		logger.Warnf("dose %s saved but batch %s counter not updated: %v", dose.ID, body.BatchID, err)
	}
	return dose, nil
}

// Page slices a newest-first list. A non-positive limit means 50.
func Page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func ListDoses(ctx context.Context, doses storage.DoseRepository, user *internal.User, limit, offset int) ([]internal.DoseLog, error) {
	all, err := doses.ListDoses(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return Page(all, limit, offset), nil
}

// CurrentCarryover is the carryover a dose logged right now would see.
func CurrentCarryover(ctx context.Context, doses storage.DoseRepository, engine *analytics.Engine, user *internal.User) (internal.CarryoverResult, error) {
	now := engine.Now()
	windowDays := engine.Config().WindowDays
	recent, err := doses.ListDosesSince(ctx, user.ID, now.AddDate(0, 0, -windowDays))
	if err != nil {
		return internal.CarryoverResult{}, err
	}
	return engine.Carryover(analytics.RecentDoses(recent, now, windowDays), *user), nil
}
