package storage

import (
	"context"
	"fmt"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

func NewFileRepositories(dataDir string, logger internal.Logger) (*Repositories, error) {
	s, err := NewFileStorage(dataDir, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Doses: s, CheckIns: s, Batches: s, Users: s, Close: s.Close}, nil
}

// NewPostgresRepositories connects and migrates before returning.
func NewPostgresRepositories(ctx context.Context, dsn string, logger internal.Logger) (*Repositories, error) {
	s, err := NewPostgresStorage(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return &Repositories{Doses: s, CheckIns: s, Batches: s, Users: s, Close: s.Close}, nil
}

// Open picks a backend by name.
func Open(ctx context.Context, backend, dataDir, dsn string, logger internal.Logger) (*Repositories, error) {
	switch backend {
	case "file":
		return NewFileRepositories(dataDir, logger)
	case "postgres":
		return NewPostgresRepositories(ctx, dsn, logger)
	}
	return nil, fmt.Errorf("storage: unknown backend %q", backend)
}
