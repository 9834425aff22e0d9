package logs

import (
	"context"
	"errors"
	"testing"
	"time"

	"calotrack/internal/shared/storage/kv"
)

func newTestStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	blobs := kv.NewMemory()
	return NewStore(context.Background(), KindMeal, blobs), blobs
}

func mealEntry(id string, day DayKey) Entry {
	return Entry{
		ID:        id,
		Kind:      KindMeal,
		DayKey:    day,
		CreatedAt: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Status:    StatusAnalyzing,
	}
}

func TestStoreInsertAndQuery(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	day := DayKey("2025-06-15")

	if s.HasEntries(day) {
		t.Fatal("empty store should have no entries")
	}

	if err := s.Insert(ctx, mealEntry("a", day)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, mealEntry("b", day)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Insert(ctx, mealEntry("c", "2025-06-16")); err != nil {
		t.Fatalf("insert: %v", err)
	}

	entries := s.EntriesForDay(day)
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].ID != "a" || entries[1].ID != "b" {
		t.Errorf("insertion order broken: %s, %s", entries[0].ID, entries[1].ID)
	}

	if !s.HasEntries(day) {
		t.Error("HasEntries should report true")
	}
	if got, ok := s.Get("c"); !ok || got.DayKey != "2025-06-16" {
		t.Errorf("Get(c) = %+v, %v", got, ok)
	}

	days := s.Days()
	if len(days) != 2 || days[0] != "2025-06-15" || days[1] != "2025-06-16" {
		t.Errorf("Days() = %v", days)
	}
}

func TestStoreInsertDuplicateID(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.Insert(ctx, mealEntry("a", "2025-06-15")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	err := s.Insert(ctx, mealEntry("a", "2025-06-16"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	day := DayKey("2025-06-15")

	e := mealEntry("a", day)
	if err := s.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found := s.Update(ctx, "a", func(e *Entry) {
		e.Status = StatusComplete
		e.Name = "Chicken salad"
		e.Meal = &MealPayload{Calories: 450}
	})
	if !found {
		t.Fatal("update should find the entry")
	}

	got, _ := s.Get("a")
	if got.Status != StatusComplete || got.Name != "Chicken salad" || got.Meal.Calories != 450 {
		t.Errorf("updated entry = %+v", got)
	}
}

func TestStoreUpdatePreservesIdentity(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	e := mealEntry("a", "2025-06-15")
	if err := s.Insert(ctx, e); err != nil {
		t.Fatalf("insert: %v", err)
	}

	s.Update(ctx, "a", func(e *Entry) {
		e.ID = "hijacked"
		e.DayKey = "2099-01-01"
		e.Kind = KindWeight
		e.CreatedAt = time.Now()
	})

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("entry should still be addressable by original id")
	}
	if got.DayKey != "2025-06-15" || got.Kind != KindMeal || !got.CreatedAt.Equal(e.CreatedAt) {
		t.Errorf("identity fields changed: %+v", got)
	}
}

func TestStoreUpdateRejectsStatusRevert(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	if err := s.Insert(ctx, mealEntry("a", "2025-06-15")); err != nil {
		t.Fatalf("insert: %v", err)
	}
	s.Update(ctx, "a", func(e *Entry) { e.Status = StatusComplete })

	// Completed entries never go back to analyzing.
	s.Update(ctx, "a", func(e *Entry) { e.Status = StatusAnalyzing })

	got, _ := s.Get("a")
	if got.Status != StatusComplete {
		t.Fatalf("status = %s, want complete", got.Status)
	}
}

func TestStoreUpdateMissingIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	if s.Update(context.Background(), "ghost", func(e *Entry) { e.Status = StatusComplete }) {
		t.Fatal("update of missing id should return false")
	}
}

func TestStoreRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	day := DayKey("2025-06-15")

	s.Insert(ctx, mealEntry("a", day))
	s.Insert(ctx, mealEntry("b", day))

	if !s.Remove(ctx, "a") {
		t.Fatal("remove should report true")
	}
	if _, ok := s.Get("a"); ok {
		t.Fatal("removed entry still present")
	}
	if len(s.EntriesForDay(day)) != 1 {
		t.Fatal("day should have one entry left")
	}

	if s.Remove(ctx, "a") {
		t.Fatal("second remove should be a no-op")
	}

	s.Remove(ctx, "b")
	if s.HasEntries(day) {
		t.Fatal("day bucket should be gone after last removal")
	}
}

func TestStoreAnalyzing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Insert(ctx, mealEntry("a", "2025-06-15"))
	s.Insert(ctx, mealEntry("b", "2025-06-16"))
	s.Update(ctx, "b", func(e *Entry) { e.Status = StatusComplete })

	analyzing := s.Analyzing()
	if len(analyzing) != 1 || analyzing[0].ID != "a" {
		t.Fatalf("Analyzing() = %+v", analyzing)
	}
}

func TestStorePersistsAcrossReload(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()

	s := NewStore(ctx, KindMeal, blobs)
	s.Insert(ctx, mealEntry("a", "2025-06-15"))
	s.Update(ctx, "a", func(e *Entry) {
		e.Status = StatusComplete
		e.Name = "Ramen"
		e.Meal = &MealPayload{Calories: 520}
	})

	reloaded := NewStore(ctx, KindMeal, blobs)
	got, ok := reloaded.Get("a")
	if !ok {
		t.Fatal("entry lost across reload")
	}
	if got.Status != StatusComplete || got.Name != "Ramen" || got.Meal.Calories != 520 {
		t.Errorf("reloaded entry = %+v", got)
	}
}

func TestStoreLoadsCorruptBlobAsEmpty(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()
	if err := blobs.Set(ctx, "logs.meal", []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStore(ctx, KindMeal, blobs)
	if len(s.Days()) != 0 {
		t.Fatal("corrupt blob should load as empty collection")
	}
	// And the store must still accept writes.
	if err := s.Insert(ctx, mealEntry("a", "2025-06-15")); err != nil {
		t.Fatalf("insert after corrupt load: %v", err)
	}
}

// failingKV rejects all writes after arming, simulating a full disk.
type failingKV struct {
	kv.Store
	fail bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Store.Set(ctx, key, value)
}

func TestStoreWriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	blobs := &failingKV{Store: kv.NewMemory()}
	ctx := context.Background()
	s := NewStore(ctx, KindMeal, blobs)

	blobs.fail = true
	if err := s.Insert(ctx, mealEntry("a", "2025-06-15")); err != nil {
		t.Fatalf("insert must succeed despite persistence failure: %v", err)
	}
	if _, ok := s.Get("a"); !ok {
		t.Fatal("entry missing from memory after failed persist")
	}

	// Once writes recover, the next mutation persists the full collection.
	blobs.fail = false
	s.Update(ctx, "a", func(e *Entry) { e.Status = StatusComplete })

	reloaded := NewStore(ctx, KindMeal, blobs)
	if e, ok := reloaded.Get("a"); !ok || e.Status != StatusComplete {
		t.Fatalf("recovered persist lost the entry: %+v, %v", e, ok)
	}
}

func TestStoreLoadsBlobWithMissingFields(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()

	// A blob written before newer payload fields existed.
	old := `{"2025-06-15":[{"id":"a","kind":"meal","dayKey":"2025-06-15",` +
		`"createdAt":"2025-06-15T12:00:00Z","status":"complete",` +
		`"meal":{"calories":400}}]}`
	if err := blobs.Set(ctx, "logs.meal", []byte(old)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStore(ctx, KindMeal, blobs)
	e, ok := s.Get("a")
	if !ok {
		t.Fatal("old-format entry not loaded")
	}
	if e.Meal == nil || e.Meal.Calories != 400 || e.Meal.Sodium != 0 {
		t.Fatalf("entry = %+v", e.Meal)
	}
}

func TestStoreKindsAreIsolated(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()

	meals := NewStore(ctx, KindMeal, blobs)
	exercises := NewStore(ctx, KindExercise, blobs)

	meals.Insert(ctx, mealEntry("a", "2025-06-15"))

	if exercises.HasEntries("2025-06-15") {
		t.Fatal("exercise store should not see meal entries")
	}

	reloaded := NewStore(ctx, KindExercise, blobs)
	if reloaded.HasEntries("2025-06-15") {
		t.Fatal("exercise store picked up meal blob on reload")
	}
}
