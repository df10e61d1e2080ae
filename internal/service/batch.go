package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

type BatchRequest struct {
	Name      string             `json:"name" validate:"required,max=100"`
	Substance internal.Substance `json:"substance" validate:"required,oneof=psilocybin lsd"`
}

func ValidateBatchRequest(body *BatchRequest) error {
	return validate.Struct(body)
}

func CreateBatch(ctx context.Context, batches storage.BatchRepository, user *internal.User, body *BatchRequest) (*internal.Batch, error) {
	batch := &internal.Batch{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      body.Name,
		Substance: body.Substance,
		IsActive:  true,
		CreatedAt: time.Now(),
	}
	if err := batches.SaveBatch(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}
