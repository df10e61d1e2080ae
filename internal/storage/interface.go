package storage

import (
	"context"
	"errors"
	"time"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// ErrNotFound is returned when a looked-up record does not exist or belongs to another user.
var ErrNotFound = errors.New("storage: not found")

// DoseRepository lists doses newest first.
type DoseRepository interface {
	SaveDose(ctx context.Context, dose *internal.DoseLog) error
	ListDoses(ctx context.Context, userID string) ([]internal.DoseLog, error)
	ListDosesSince(ctx context.Context, userID string, since time.Time) ([]internal.DoseLog, error)
}

// CheckInRepository lists check-ins newest first.
type CheckInRepository interface {
	SaveCheckIn(ctx context.Context, checkIn *internal.CheckIn) error
	ListCheckIns(ctx context.Context, userID string) ([]internal.CheckIn, error)
}

type BatchRepository interface {
	SaveBatch(ctx context.Context, batch *internal.Batch) error
	GetBatch(ctx context.Context, userID, id string) (*internal.Batch, error)
	ListBatches(ctx context.Context, userID string) ([]internal.Batch, error)
	IncrementBatchDoses(ctx context.Context, userID, id string) error
}

type UserRepository interface {
	SaveUser(ctx context.Context, user *internal.User) error
	GetUser(ctx context.Context, id string) (*internal.User, error)
	GetUserByToken(ctx context.Context, token string) (*internal.User, error)
}

// Repositories bundles one backend's repositories with its shutdown hook.
type Repositories struct {
	Doses    DoseRepository
	CheckIns CheckInRepository
	Batches  BatchRepository
	Users    UserRepository
	Close    func() error
}
