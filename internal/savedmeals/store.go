// Package savedmeals keeps reusable meal templates so a frequent meal can be
// logged again without re-running analysis.
package savedmeals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"calotrack/internal/logs"
	"calotrack/internal/shared/storage/kv"
	"calotrack/internal/shared/telemetry"
)

const (
	blobKey      = "meals.saved"
	defaultEmoji = "🍽️"
)

// Meal is one saved template. Nutrition values are copied into a log entry
// when the template is logged.
type Meal struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Emoji     string           `json:"emoji"`
	Nutrition logs.MealPayload `json:"nutrition"`
	Image     []byte           `json:"image,omitempty"`
}

// Store holds the saved meal list in insertion order, persisted as one blob.
// Safe for concurrent use.
type Store struct {
	blobs kv.Store

	mu    sync.Mutex
	meals []Meal
}

// NewStore constructs a Store, loading any persisted list. A missing or
// undecodable blob yields an empty list.
func NewStore(ctx context.Context, blobs kv.Store) *Store {
	s := &Store{blobs: blobs}
	s.load(ctx)
	return s
}

// All returns the saved meals in insertion order.
func (s *Store) All() []Meal {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Meal, len(s.meals))
	copy(out, s.meals)
	return out
}

// Get returns the saved meal with the given id, if present.
func (s *Store) Get(id string) (Meal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meals {
		if m.ID == id {
			return m, true
		}
	}
	return Meal{}, false
}

// Add appends a template and returns its assigned id. The name is required;
// a missing emoji gets the default.
func (s *Store) Add(ctx context.Context, m Meal) (string, error) {
	if m.Name == "" {
		return "", fmt.Errorf("name is required")
	}
	m.ID = uuid.NewString()
	if m.Emoji == "" {
		m.Emoji = defaultEmoji
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meals = append(s.meals, m)
	s.persistLocked(ctx)
	return m.ID, nil
}

// Update replaces the template with the given id in place, preserving the
// id and position. Returns false if the id is not present.
func (s *Store) Update(ctx context.Context, id string, m Meal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.meals {
		if s.meals[i].ID != id {
			continue
		}
		m.ID = id
		if m.Emoji == "" {
			m.Emoji = defaultEmoji
		}
		s.meals[i] = m
		s.persistLocked(ctx)
		return true
	}
	return false
}

// Remove deletes the template. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.meals {
		if s.meals[i].ID != id {
			continue
		}
		s.meals = append(s.meals[:i:i], s.meals[i+1:]...)
		s.persistLocked(ctx)
		return true
	}
	return false
}

// IsSaved reports whether a template with the given name exists.
func (s *Store) IsSaved(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.meals {
		if m.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.meals)
	if err != nil {
		telemetry.Warn("savedmeals.persist.marshal_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.blobs.Set(ctx, blobKey, data); err != nil {
		telemetry.Warn("savedmeals.persist.write_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Store) load(ctx context.Context) {
	data, err := s.blobs.Get(ctx, blobKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			telemetry.Warn("savedmeals.load.read_failed", map[string]any{"error": err.Error()})
		}
		return
	}
	if err := json.Unmarshal(data, &s.meals); err != nil {
		telemetry.Warn("savedmeals.load.decode_failed", map[string]any{"error": err.Error()})
		s.meals = nil
	}
}
