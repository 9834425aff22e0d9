// Package water tracks per-day water intake. Unlike the entry logs, water
// is a single mutable amount per day rather than an ordered list of records.
package water

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"calotrack/internal/logs"
	"calotrack/internal/shared/storage/kv"
	"calotrack/internal/shared/telemetry"
)

const (
	// GlassSizeML is the amount one glass represents.
	GlassSizeML = 250
	// DefaultGoalML is the daily goal used when no goal is given.
	DefaultGoalML = 2000

	retentionDays = 30
	blobKey       = "logs.water"
)

// Store holds the per-day amounts, persisted as one blob. Days older than
// the retention window are pruned on write. Safe for concurrent use.
type Store struct {
	blobs kv.Store

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	amounts map[logs.DayKey]int
}

// NewStore constructs a Store, loading any persisted amounts. A missing or
// undecodable blob yields an empty map.
func NewStore(ctx context.Context, blobs kv.Store) *Store {
	s := &Store{
		blobs:   blobs,
		Now:     time.Now,
		amounts: make(map[logs.DayKey]int),
	}
	s.load(ctx)
	return s
}

// Amount returns the day's intake in milliliters, zero when unrecorded.
func (s *Store) Amount(day logs.DayKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.amounts[day]
}

// SetAmount replaces the day's intake. Negative values clamp to zero.
func (s *Store) SetAmount(ctx context.Context, day logs.DayKey, ml int) {
	if ml < 0 {
		ml = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ml == 0 {
		delete(s.amounts, day)
	} else {
		s.amounts[day] = ml
	}
	s.persistLocked(ctx)
}

// Add increases the day's intake and returns the new amount.
func (s *Store) Add(ctx context.Context, day logs.DayKey, ml int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amounts[day] += ml
	total := s.amounts[day]
	s.persistLocked(ctx)
	return total
}

// Remove decreases the day's intake, flooring at zero, and returns the new
// amount.
func (s *Store) Remove(ctx context.Context, day logs.DayKey, ml int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := s.amounts[day] - ml
	if total <= 0 {
		total = 0
		delete(s.amounts, day)
	} else {
		s.amounts[day] = total
	}
	s.persistLocked(ctx)
	return total
}

// Glasses returns the day's intake in whole glasses.
func (s *Store) Glasses(day logs.DayKey) int {
	return s.Amount(day) / GlassSizeML
}

// SetGlasses replaces the day's intake expressed as glasses.
func (s *Store) SetGlasses(ctx context.Context, day logs.DayKey, count int) {
	s.SetAmount(ctx, day, count*GlassSizeML)
}

// Progress returns the fraction of the goal reached, capped at 1. A goal of
// zero or less uses the default.
func (s *Store) Progress(day logs.DayKey, goalML int) float64 {
	if goalML <= 0 {
		goalML = DefaultGoalML
	}
	p := float64(s.Amount(day)) / float64(goalML)
	if p > 1 {
		p = 1
	}
	return p
}

// persistLocked prunes stale days and writes the full map. Write errors are
// logged and swallowed; in-memory state stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	cutoff := logs.DayOf(s.now().AddDate(0, 0, -retentionDays))
	for day := range s.amounts {
		if day < cutoff {
			delete(s.amounts, day)
		}
	}
	data, err := json.Marshal(s.amounts)
	if err != nil {
		telemetry.Warn("water.persist.marshal_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.blobs.Set(ctx, blobKey, data); err != nil {
		telemetry.Warn("water.persist.write_failed", map[string]any{"error": err.Error()})
	}
}

func (s *Store) load(ctx context.Context) {
	data, err := s.blobs.Get(ctx, blobKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			telemetry.Warn("water.load.read_failed", map[string]any{"error": err.Error()})
		}
		return
	}
	if err := json.Unmarshal(data, &s.amounts); err != nil {
		telemetry.Warn("water.load.decode_failed", map[string]any{"error": err.Error()})
		s.amounts = make(map[logs.DayKey]int)
	}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
