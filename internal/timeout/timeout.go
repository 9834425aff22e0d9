// Package timeout watches analyzing entries and flags the ones that have
// waited too long. It is purely observational: it never mutates entries or
// cancels jobs, so a slow result that eventually arrives still lands.
package timeout

import (
	"context"
	"time"

	"calotrack/internal/logs"
	"calotrack/internal/shared/telemetry"
)

// Monitor periodically sweeps the given stores for entries whose analysis
// has exceeded Threshold, calling Notify once per entry. The flag clears
// itself: once the entry resolves or is deleted it drops out of the sweep
// and its notification state is forgotten.
type Monitor struct {
	Stores    []*logs.Store
	Threshold time.Duration
	Interval  time.Duration
	Notify    func(kind logs.Kind, id string)

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	notified map[string]struct{}
}

// Run sweeps at the configured interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	interval := m.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep examines all analyzing entries once. Exported so tests and callers
// can drive the monitor without the ticker.
func (m *Monitor) Sweep() {
	if m.notified == nil {
		m.notified = make(map[string]struct{})
	}
	now := m.now()
	seen := make(map[string]struct{})
	for _, store := range m.Stores {
		for _, e := range store.Analyzing() {
			seen[e.ID] = struct{}{}
			if !e.TimedOut(now, m.Threshold) {
				continue
			}
			if _, done := m.notified[e.ID]; done {
				continue
			}
			m.notified[e.ID] = struct{}{}
			telemetry.Warn("analysis.timed_out", map[string]any{
				"kind": e.Kind, "entry_id": e.ID,
				"waited_ms": now.Sub(e.CreatedAt).Milliseconds(),
			})
			if m.Notify != nil {
				m.Notify(e.Kind, e.ID)
			}
		}
	}
	// Forget entries that resolved or were deleted so a reused sweep state
	// does not grow without bound.
	for id := range m.notified {
		if _, still := seen[id]; !still {
			delete(m.notified, id)
		}
	}
}

func (m *Monitor) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
