// Package auth handles console sign-in against the SLA API and the
// session lifecycle around it.
package auth

import (
	"context"
	"log/slog"

	"github.com/sla-console/sla-console/internal/slaapi"
)

// API is the slice of the SLA client the auth flow needs.
type API interface {
	Login(ctx context.Context, username, password string) (slaapi.Token, error)
	Logout(ctx context.Context, token string) error
}

// Service exchanges credentials for API tokens.
type Service struct {
	logger *slog.Logger
	api    API
}

// NewService constructs the auth service.
func NewService(logger *slog.Logger, api API) *Service {
	return &Service{logger: logger, api: api}
}

// Authenticate trades credentials for a bearer token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (slaapi.Token, error) {
	return s.api.Login(ctx, username, password)
}

// Revoke invalidates the token upstream. Best effort: the session is
// destroyed locally regardless, so a failure only shortens the courtesy.
func (s *Service) Revoke(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.api.Logout(ctx, token); err != nil {
		s.logger.Warn("api logout", slog.Any("error", err))
	}
}
