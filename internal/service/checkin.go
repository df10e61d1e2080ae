package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

type ConditionsRequest struct {
	Load     internal.ConditionLevel `json:"load" validate:"required,oneof=low med high mixed"`
	Noise    internal.ConditionLevel `json:"noise" validate:"required,oneof=low med high mixed"`
	Schedule internal.ConditionLevel `json:"schedule" validate:"required,oneof=low med high mixed"`
}

type SignalsRequest struct {
	Energy    int `json:"energy" validate:"required,gte=1,lte=5"`
	Clarity   int `json:"clarity" validate:"required,gte=1,lte=5"`
	Stability int `json:"stability" validate:"required,gte=1,lte=5"`
}

type CheckInRequest struct {
	DoseID     *string            `json:"dose_id,omitempty" validate:"omitempty,min=1"`
	Phase      internal.Phase     `json:"phase" validate:"required,oneof=pre active integration follow_up"`
	Conditions *ConditionsRequest `json:"conditions" validate:"required"`
	Signals    *SignalsRequest    `json:"signals" validate:"required"`
	BodyMap    []string           `json:"body_map,omitempty" validate:"max=32,dive,required,max=50"`
	Notes      *string            `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

func ValidateCheckInRequest(body *CheckInRequest) error {
	return validate.Struct(body)
}

func CreateCheckIn(ctx context.Context, checkIns storage.CheckInRepository, user *internal.User, body *CheckInRequest) (*internal.CheckIn, error) {
	bodyMap := body.BodyMap
	if bodyMap == nil {
		bodyMap = []string{}
	}
	now := time.Now()
	checkIn := &internal.CheckIn{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		DoseID:    body.DoseID,
		Timestamp: now,
		Phase:     body.Phase,
		Conditions: internal.Conditions{
			Load:     body.Conditions.Load,
			Noise:    body.Conditions.Noise,
			Schedule: body.Conditions.Schedule,
		},
		Signals: internal.Signals{
			Energy:    body.Signals.Energy,
			Clarity:   body.Signals.Clarity,
			Stability: body.Signals.Stability,
		},
		BodyMap:   bodyMap,
		Notes:     body.Notes,
		CreatedAt: now,
	}
	if err := checkIns.SaveCheckIn(ctx, checkIn); err != nil {
		return nil, err
	}
	return checkIn, nil
}

// ListCheckIns returns the newest check-ins first, optionally only those for doseID.
func ListCheckIns(ctx context.Context, checkIns storage.CheckInRepository, user *internal.User, doseID string, limit, offset int) ([]internal.CheckIn, error) {
	all, err := checkIns.ListCheckIns(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if doseID != "" {
		filtered := make([]internal.CheckIn, 0, len(all))
		for _, c := range all {
			if c.DoseID != nil && *c.DoseID == doseID {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}
	return Page(all, limit, offset), nil
}
