package netclient

import (
	"context"
	"errors"
	"sync"

	"calotrack/internal/shared/storage/kv"
	"calotrack/internal/shared/telemetry"
)

// Fixed blob-store keys for the persisted credential state.
const (
	keyAccessToken  = "auth.access_token"
	keyRefreshToken = "auth.refresh_token"
	keyUserID       = "auth.user_id"
)

// TokenStore holds the access/refresh token pair and user id, persisted
// under fixed keys so a restart keeps the session.
type TokenStore struct {
	blobs kv.Store

	mu      sync.RWMutex
	access  string
	refresh string
	userID  string
}

// NewTokenStore constructs a TokenStore, loading any persisted pair.
func NewTokenStore(ctx context.Context, blobs kv.Store) *TokenStore {
	t := &TokenStore{blobs: blobs}
	t.access = t.loadKey(ctx, keyAccessToken)
	t.refresh = t.loadKey(ctx, keyRefreshToken)
	t.userID = t.loadKey(ctx, keyUserID)
	return t
}

func (t *TokenStore) loadKey(ctx context.Context, key string) string {
	data, err := t.blobs.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			telemetry.Warn("tokens.load_failed", map[string]any{"key": key, "error": err.Error()})
		}
		return ""
	}
	return string(data)
}

// AccessToken returns the current access token, empty if signed out.
func (t *TokenStore) AccessToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.access
}

// RefreshToken returns the current refresh token, empty if signed out.
func (t *TokenStore) RefreshToken() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.refresh
}

// UserID returns the signed-in user id, empty if signed out.
func (t *TokenStore) UserID() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.userID
}

// SetPair replaces the stored credentials and persists them. Persistence is
// best-effort; the in-memory pair is authoritative for the running process.
func (t *TokenStore) SetPair(ctx context.Context, access, refresh, userID string) {
	t.mu.Lock()
	t.access = access
	t.refresh = refresh
	if userID != "" {
		t.userID = userID
	}
	userID = t.userID
	t.mu.Unlock()

	t.persist(ctx, keyAccessToken, access)
	t.persist(ctx, keyRefreshToken, refresh)
	t.persist(ctx, keyUserID, userID)
}

// Clear drops the credentials, in memory and persisted.
func (t *TokenStore) Clear(ctx context.Context) {
	t.mu.Lock()
	t.access = ""
	t.refresh = ""
	t.userID = ""
	t.mu.Unlock()

	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUserID} {
		if err := t.blobs.Delete(ctx, key); err != nil {
			telemetry.Warn("tokens.clear_failed", map[string]any{"key": key, "error": err.Error()})
		}
	}
}

func (t *TokenStore) persist(ctx context.Context, key, value string) {
	if err := t.blobs.Set(ctx, key, []byte(value)); err != nil {
		telemetry.Warn("tokens.persist_failed", map[string]any{"key": key, "error": err.Error()})
	}
}
