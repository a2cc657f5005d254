package labapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource yields the bearer token sent with each request. An empty
// token means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

const (
	serviceSubject  = "labdesk"
	serviceTokenTTL = 5 * time.Minute
)

// SignedToken mints short-lived HS256 service tokens and reuses each one
// until it is close to expiry.
type SignedToken struct {
	key []byte
	now func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewSignedToken(key []byte) *SignedToken {
	return &SignedToken{key: key, now: time.Now}
}

func (s *SignedToken) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.token != "" && now.Add(30*time.Second).Before(s.expires) {
		return s.token, nil
	}

	expires := now.Add(serviceTokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   serviceSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign service token: %w", err)
	}
	s.token, s.expires = signed, expires
	return signed, nil
}
