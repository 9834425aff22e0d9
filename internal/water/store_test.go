package water

import (
	"context"
	"testing"
	"time"

	"calotrack/internal/logs"
	"calotrack/internal/shared/storage/kv"
)

const day = logs.DayKey("2025-06-15")

func newTestStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	blobs := kv.NewMemory()
	s := NewStore(context.Background(), blobs)
	s.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	return s, blobs
}

func TestWaterSetAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if got := s.Amount(day); got != 0 {
		t.Fatalf("unrecorded day amount = %d, want 0", got)
	}

	s.SetAmount(ctx, day, 750)
	if got := s.Amount(day); got != 750 {
		t.Fatalf("amount = %d, want 750", got)
	}

	s.SetAmount(ctx, day, 500)
	if got := s.Amount(day); got != 500 {
		t.Fatalf("overwrite amount = %d, want 500", got)
	}

	s.SetAmount(ctx, day, -100)
	if got := s.Amount(day); got != 0 {
		t.Fatalf("negative set should clamp to 0, got %d", got)
	}
}

func TestWaterAddAndRemove(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if got := s.Add(ctx, day, 250); got != 250 {
		t.Fatalf("add = %d, want 250", got)
	}
	if got := s.Add(ctx, day, 250); got != 500 {
		t.Fatalf("add = %d, want 500", got)
	}
	if got := s.Remove(ctx, day, 200); got != 300 {
		t.Fatalf("remove = %d, want 300", got)
	}
	// Removing more than recorded floors at zero.
	if got := s.Remove(ctx, day, 1000); got != 0 {
		t.Fatalf("remove = %d, want 0", got)
	}
}

func TestWaterGlasses(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.SetAmount(ctx, day, 600)
	if got := s.Glasses(day); got != 2 {
		t.Fatalf("glasses = %d, want 2", got)
	}

	s.SetGlasses(ctx, day, 3)
	if got := s.Amount(day); got != 750 {
		t.Fatalf("3 glasses = %dml, want 750", got)
	}
}

func TestWaterProgress(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.SetAmount(ctx, day, 1000)
	if got := s.Progress(day, 2000); got != 0.5 {
		t.Fatalf("progress = %v, want 0.5", got)
	}
	if got := s.Progress(day, 0); got != 0.5 {
		t.Fatalf("zero goal should use the default, got %v", got)
	}

	s.SetAmount(ctx, day, 5000)
	if got := s.Progress(day, 2000); got != 1 {
		t.Fatalf("progress past the goal should cap at 1, got %v", got)
	}
}

func TestWaterPersistsAcrossReload(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()

	s := NewStore(ctx, blobs)
	s.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	s.SetAmount(ctx, day, 1250)

	reloaded := NewStore(ctx, blobs)
	if got := reloaded.Amount(day); got != 1250 {
		t.Fatalf("reloaded amount = %d, want 1250", got)
	}
}

func TestWaterPrunesOldDaysOnWrite(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	old := logs.DayOf(now.AddDate(0, 0, -40))
	recent := logs.DayOf(now.AddDate(0, 0, -5))
	seed := `{"` + string(old) + `":500,"` + string(recent) + `":750}`
	if err := blobs.Set(ctx, "logs.water", []byte(seed)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStore(ctx, blobs)
	s.Now = func() time.Time { return now }
	if got := s.Amount(old); got != 500 {
		t.Fatalf("old day should load as-is: %d", got)
	}

	// The next write prunes anything past the retention window.
	s.SetAmount(ctx, day, 250)
	if got := s.Amount(old); got != 0 {
		t.Fatalf("old day survived pruning: %d", got)
	}
	if got := s.Amount(recent); got != 750 {
		t.Fatalf("recent day pruned: %d", got)
	}

	reloaded := NewStore(ctx, blobs)
	if got := reloaded.Amount(old); got != 0 {
		t.Fatal("old day persisted despite pruning")
	}
}

func TestWaterLoadsCorruptBlobAsEmpty(t *testing.T) {
	blobs := kv.NewMemory()
	ctx := context.Background()
	if err := blobs.Set(ctx, "logs.water", []byte("{not json")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	s := NewStore(ctx, blobs)
	s.Now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	if got := s.Amount(day); got != 0 {
		t.Fatalf("corrupt blob should load as empty, got %d", got)
	}
	s.SetAmount(ctx, day, 300)
	if got := s.Amount(day); got != 300 {
		t.Fatal("store must accept writes after corrupt load")
	}
}
