package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

// TokenAuthProvider resolves opaque tokens stored on the user record.
type TokenAuthProvider struct {
	users  storage.UserRepository
	logger internal.Logger
}

func NewTokenAuthProvider(users storage.UserRepository, logger internal.Logger) *TokenAuthProvider {
	return &TokenAuthProvider{users: users, logger: logger}
}

func (a *TokenAuthProvider) Authenticate(ctx context.Context, token string) (*internal.User, error) {
	user, err := a.users.GetUserByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		a.logger.Warnf("invalid token")
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup token: %w", err)
	}
	return user, nil
}

var _ Provider = (*TokenAuthProvider)(nil)
