// Package session manages the signed-in identity: credential exchange with
// the backend, local persistence of the token pair, and Google sign-in.
package session

import (
	"context"

	"calotrack/internal/backend"
	"calotrack/internal/netclient"
	"calotrack/internal/shared/telemetry"
)

// Service wraps the auth operations of the backend client and the local
// token store into session-level operations.
type Service struct {
	Backend *backend.Client
	Tokens  *netclient.TokenStore
}

// State describes the current session.
type State struct {
	SignedIn bool   `json:"signedIn"`
	UserID   string `json:"userId,omitempty"`
}

// SignIn exchanges credentials for a token pair. The pair is persisted by
// the backend client on success.
func (s *Service) SignIn(ctx context.Context, email, password string) (backend.TokenPair, error) {
	pair, err := s.Backend.SignIn(ctx, email, password)
	if err != nil {
		return backend.TokenPair{}, err
	}
	telemetry.Info("session.signed_in", map[string]any{"user_id": pair.UserID})
	return pair, nil
}

// SignUp creates an account and signs in.
func (s *Service) SignUp(ctx context.Context, email, password string) (backend.TokenPair, error) {
	pair, err := s.Backend.SignUp(ctx, email, password)
	if err != nil {
		return backend.TokenPair{}, err
	}
	telemetry.Info("session.signed_up", map[string]any{"user_id": pair.UserID})
	return pair, nil
}

// SignOut drops the stored credentials. Local log data is untouched.
func (s *Service) SignOut(ctx context.Context) {
	userID := s.Tokens.UserID()
	s.Tokens.Clear(ctx)
	telemetry.Info("session.signed_out", map[string]any{"user_id": userID})
}

// Current reports whether a session exists. Validity is not checked here;
// an expired access token surfaces as a refresh on the next backend call.
func (s *Service) Current() State {
	access := s.Tokens.AccessToken()
	if access == "" {
		return State{}
	}
	return State{SignedIn: true, UserID: s.Tokens.UserID()}
}
