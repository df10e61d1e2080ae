package auth

import (
	"context"
	"errors"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
)

// ErrInvalidToken is returned for any bearer token that does not identify a user.
var ErrInvalidToken = errors.New("auth: invalid token")

type Provider interface {
	Authenticate(ctx context.Context, token string) (*internal.User, error)
}
