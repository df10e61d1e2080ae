package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/taylorsterlingwrites/threshold-compass/internal"
	"github.com/taylorsterlingwrites/threshold-compass/internal/storage"
)

// JWTAuthProvider accepts HS256 tokens whose subject is the user id. A subject
// with no stored profile gets the default onboarding profile.
type JWTAuthProvider struct {
	secret []byte
	users  storage.UserRepository
	logger internal.Logger
}

func NewJWTAuthProvider(secret string, users storage.UserRepository, logger internal.Logger) *JWTAuthProvider {
	return &JWTAuthProvider{secret: []byte(secret), users: users, logger: logger}
}

func (a *JWTAuthProvider) Authenticate(ctx context.Context, token string) (*internal.User, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		a.logger.Warnf("rejected jwt: %v", err)
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := a.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		u := internal.DefaultUser(claims.Subject)
		return &u, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: load user: %w", err)
	}
	return user, nil
}

// IssueToken signs a token for userID valid for ttl.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

var _ Provider = (*JWTAuthProvider)(nil)
