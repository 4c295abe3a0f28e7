package api

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired is returned when the bearer token's exp claim has passed
var ErrTokenExpired = errors.New("bearer token expired")

// TokenSource supplies the bearer token for each request. An empty token
// sends the request unauthenticated.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken holds a token obtained out of band (env var, file or login).
// JWTs are inspected, without verifying the signature, so an expired token
// fails locally instead of costing a round trip.
type StaticToken struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewStaticToken wraps token
func NewStaticToken(token string) *StaticToken {
	return &StaticToken{token: token, now: time.Now}
}

// Token returns the current token
func (s *StaticToken) Token() (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", nil
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		// Not a JWT, hand it over as an opaque token.
		return token, nil
	}
	if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}
	return token, nil
}

// Set replaces the token, e.g. after login
func (s *StaticToken) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Invalidate drops the token after the server rejected it
func (s *StaticToken) Invalidate() {
	s.Set("")
}
