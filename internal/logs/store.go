package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"calotrack/internal/shared/storage/kv"
	"calotrack/internal/shared/telemetry"
)

// ErrDuplicateID is returned when an entry id is inserted twice. Ids are
// assigned at creation, so a duplicate is a programming error.
var ErrDuplicateID = errors.New("duplicate entry id")

// Store is the authoritative, persisted record of all log entries for one
// kind, partitioned by day. Safe for concurrent use. The whole collection
// is written to the blob store on every mutation; write failures are logged
// and swallowed, so in-memory state stays authoritative for the running
// process.
type Store struct {
	kind  Kind
	key   string
	blobs kv.Store

	mu    sync.RWMutex
	days  map[DayKey][]Entry
	index map[string]DayKey
}

// NewStore constructs a Store for one kind, loading any persisted
// collection. A missing or undecodable blob yields an empty collection.
func NewStore(ctx context.Context, kind Kind, blobs kv.Store) *Store {
	s := &Store{
		kind:  kind,
		key:   "logs." + string(kind),
		blobs: blobs,
		days:  make(map[DayKey][]Entry),
		index: make(map[string]DayKey),
	}
	s.load(ctx)
	return s
}

// Kind returns the log kind this store holds.
func (s *Store) Kind() Kind {
	return s.kind
}

// EntriesForDay returns the day's entries in insertion order. Empty slice
// if the day has none.
func (s *Store) EntriesForDay(day DayKey) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.days[day]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// HasEntries reports whether the day has at least one entry.
func (s *Store) HasEntries(day DayKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.days[day]) > 0
}

// Days returns all days with entries, ascending.
func (s *Store) Days() []DayKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DayKey, 0, len(s.days))
	for day := range s.days {
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns the entry with the given id, if present.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	for _, e := range s.days[day] {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Insert appends the entry to its day's bucket.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.index[e.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, e.ID)
	}
	s.days[e.DayKey] = append(s.days[e.DayKey], e)
	s.index[e.ID] = e.DayKey
	s.persistLocked(ctx)
	return nil
}

// Update locates the entry by id and replaces it in place, preserving its
// position within the day. The mutator may not change identity fields or
// revert a terminal status; such changes are discarded. Returns false if
// the id is not present, which callers must tolerate: the entry may have
// been deleted concurrently.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Entry)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	day, ok := s.index[id]
	if !ok {
		return false
	}
	entries := s.days[day]
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		updated := entries[i]
		mutate(&updated)
		updated.ID = entries[i].ID
		updated.Kind = entries[i].Kind
		updated.DayKey = entries[i].DayKey
		updated.CreatedAt = entries[i].CreatedAt
		if !ValidTransition(entries[i].Status, updated.Status) {
			telemetry.Warn("logs.update.invalid_transition", map[string]any{
				"kind": s.kind, "entry_id": id,
				"from": entries[i].Status, "to": updated.Status,
			})
			updated.Status = entries[i].Status
		}
		entries[i] = updated
		s.persistLocked(ctx)
		return true
	}
	return false
}

// Remove deletes the entry wherever it is found. Removing an absent id is
// a no-op; this is what lets deletion win races against late resolutions.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	day, ok := s.index[id]
	if !ok {
		return false
	}
	entries := s.days[day]
	for i := range entries {
		if entries[i].ID != id {
			continue
		}
		s.days[day] = append(entries[:i:i], entries[i+1:]...)
		if len(s.days[day]) == 0 {
			delete(s.days, day)
		}
		delete(s.index, id)
		s.persistLocked(ctx)
		return true
	}
	return false
}

// Analyzing returns every entry still in the analyzing state, across all
// days. Used by sweeps that watch for stuck analyses.
func (s *Store) Analyzing() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, entries := range s.days {
		for _, e := range entries {
			if e.Status == StatusAnalyzing {
				out = append(out, e)
			}
		}
	}
	return out
}

// Totals reduces the day's completed entries into aggregate sums.
func (s *Store) Totals(day DayKey) Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var t Totals
	for _, e := range s.days[day] {
		t.add(e)
	}
	return t
}

func (s *Store) persistLocked(ctx context.Context) {
	data, err := json.Marshal(s.days)
	if err != nil {
		telemetry.Warn("logs.persist.marshal_failed", map[string]any{
			"kind": s.kind, "error": err.Error(),
		})
		return
	}
	if err := s.blobs.Set(ctx, s.key, data); err != nil {
		telemetry.Warn("logs.persist.write_failed", map[string]any{
			"kind": s.kind, "error": err.Error(),
		})
	}
}

func (s *Store) load(ctx context.Context) {
	data, err := s.blobs.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			telemetry.Warn("logs.load.read_failed", map[string]any{
				"kind": s.kind, "error": err.Error(),
			})
		}
		return
	}
	var days map[DayKey][]Entry
	if err := json.Unmarshal(data, &days); err != nil {
		telemetry.Warn("logs.load.decode_failed", map[string]any{
			"kind": s.kind, "error": err.Error(),
		})
		return
	}
	for day, entries := range days {
		for _, e := range entries {
			s.days[day] = append(s.days[day], e)
			s.index[e.ID] = day
		}
	}
}
