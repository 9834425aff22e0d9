// Package analysis orchestrates the provisional-entry -> background-call ->
// resolution flow. An entry is inserted in the analyzing state before the
// network is touched, so totals and lists can always show work in progress,
// and every started analysis converges to a complete entry unless the user
// deletes it first.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"calotrack/internal/backend"
	"calotrack/internal/logs"
	"calotrack/internal/shared/config"
	"calotrack/internal/shared/metrics"
	"calotrack/internal/shared/telemetry"
)

// Coordinator owns the analysis lifecycle for all log kinds. Jobs are
// independent and keyed by entry id; only the latest job id per kind is
// tracked for UI correlation.
type Coordinator struct {
	Meals     *logs.Store
	Exercises *logs.Store
	Weights   *logs.Store
	Backend   backend.AnalysisClient
	Fallback  config.FallbackRanges

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time

	mu             sync.Mutex
	activeMeal     string
	activeExercise string
	cancels        map[string]context.CancelFunc
	subs           []chan Event
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(meals, exercises, weights *logs.Store, be backend.AnalysisClient, fallback config.FallbackRanges) *Coordinator {
	return &Coordinator{
		Meals:     meals,
		Exercises: exercises,
		Weights:   weights,
		Backend:   be,
		Fallback:  fallback,
		Now:       time.Now,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// StartMealImageAnalysis records an analyzing meal entry for the image and
// dispatches the backend call. Returns the entry id immediately.
func (c *Coordinator) StartMealImageAnalysis(ctx context.Context, image []byte, day logs.DayKey) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("image is required")
	}
	entry := c.newEntry(logs.KindMeal, day)
	entry.SourceImage = image
	if err := c.Meals.Insert(ctx, entry); err != nil {
		return "", err
	}
	c.startJob(entry.ID, logs.KindMeal, func(jobCtx context.Context) {
		result, err := c.Backend.AnalyzeMealImage(jobCtx, image)
		c.resolveMeal(jobCtx, entry.ID, "", result, err)
	})
	return entry.ID, nil
}

// StartMealTextAnalysis records an analyzing meal entry for the description
// and dispatches the backend call. Returns the entry id immediately.
func (c *Coordinator) StartMealTextAnalysis(ctx context.Context, description string, day logs.DayKey) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("description is required")
	}
	entry := c.newEntry(logs.KindMeal, day)
	entry.SourceDescription = description
	if err := c.Meals.Insert(ctx, entry); err != nil {
		return "", err
	}
	c.startJob(entry.ID, logs.KindMeal, func(jobCtx context.Context) {
		result, err := c.Backend.AnalyzeMealText(jobCtx, description)
		c.resolveMeal(jobCtx, entry.ID, description, result, err)
	})
	return entry.ID, nil
}

// StartExerciseAnalysis records an analyzing exercise entry and dispatches
// the backend call. Returns the entry id immediately.
func (c *Coordinator) StartExerciseAnalysis(ctx context.Context, description string, durationMinutes int, day logs.DayKey) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", fmt.Errorf("description is required")
	}
	if durationMinutes <= 0 {
		return "", fmt.Errorf("duration must be positive")
	}
	entry := c.newEntry(logs.KindExercise, day)
	entry.Name = description
	entry.SourceDescription = description
	if err := c.Exercises.Insert(ctx, entry); err != nil {
		return "", err
	}
	c.startJob(entry.ID, logs.KindExercise, func(jobCtx context.Context) {
		result, err := c.Backend.AnalyzeExercise(jobCtx, description, durationMinutes)
		c.resolveExercise(jobCtx, entry.ID, description, durationMinutes, result, err)
	})
	return entry.ID, nil
}

// Cancel aborts the in-flight call for id if one exists and removes the
// entry. The deletion wins any race with a late result: once the entry is
// gone, the resolution's store update is a no-op. Safe to call after the
// job already completed.
func (c *Coordinator) Cancel(ctx context.Context, id string) bool {
	c.mu.Lock()
	cancel := c.cancels[id]
	delete(c.cancels, id)
	if c.activeMeal == id {
		c.activeMeal = ""
	}
	if c.activeExercise == id {
		c.activeExercise = ""
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	removed := false
	var kind logs.Kind
	for _, store := range []*logs.Store{c.Meals, c.Exercises, c.Weights} {
		if store == nil {
			continue
		}
		if store.Remove(ctx, id) {
			removed = true
			kind = store.Kind()
			break
		}
	}
	if removed && cancel != nil {
		metrics.IncAnalysisCancelled()
		telemetry.Info("analysis.cancelled", map[string]any{"entry_id": id, "kind": kind})
		c.publish(Event{EntryID: id, Kind: kind, Outcome: OutcomeCancelled})
	}
	return removed
}

// SaveMealInstantly records a completed meal entry without an analysis job.
func (c *Coordinator) SaveMealInstantly(ctx context.Context, name string, payload logs.MealPayload, day logs.DayKey) (string, error) {
	entry := c.newEntry(logs.KindMeal, day)
	entry.Status = logs.StatusComplete
	entry.Name = name
	entry.Emoji = emojiFor(name)
	entry.Meal = &payload
	if err := c.Meals.Insert(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// SaveExerciseInstantly records a completed exercise entry without an
// analysis job.
func (c *Coordinator) SaveExerciseInstantly(ctx context.Context, name string, payload logs.ExercisePayload, day logs.DayKey) (string, error) {
	entry := c.newEntry(logs.KindExercise, day)
	entry.Status = logs.StatusComplete
	entry.Name = name
	entry.Exercise = &payload
	if err := c.Exercises.Insert(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// SaveWeightInstantly records a weight entry. Weight has no analysis path.
func (c *Coordinator) SaveWeightInstantly(ctx context.Context, weightKg float64, day logs.DayKey) (string, error) {
	if weightKg <= 0 {
		return "", fmt.Errorf("weight must be positive")
	}
	entry := c.newEntry(logs.KindWeight, day)
	entry.Status = logs.StatusComplete
	entry.Weight = &logs.WeightPayload{WeightKg: weightKg}
	if err := c.Weights.Insert(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// ActiveMealID returns the latest meal job's entry id, empty when none.
func (c *Coordinator) ActiveMealID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeMeal
}

// ActiveExerciseID returns the latest exercise job's entry id, empty when
// none.
func (c *Coordinator) ActiveExerciseID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeExercise
}

func (c *Coordinator) newEntry(kind logs.Kind, day logs.DayKey) logs.Entry {
	return logs.Entry{
		ID:        uuid.NewString(),
		Kind:      kind,
		DayKey:    day,
		CreatedAt: c.now(),
		Status:    logs.StatusAnalyzing,
	}
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// startJob registers the job as the latest for its kind and runs it on its
// own cancellable context, detached from the caller's request lifetime.
func (c *Coordinator) startJob(id string, kind logs.Kind, run func(ctx context.Context)) {
	jobCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.cancels[id] = cancel
	switch kind {
	case logs.KindMeal:
		c.activeMeal = id
	case logs.KindExercise:
		c.activeExercise = id
	}
	c.mu.Unlock()

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.started", map[string]any{"entry_id": id, "kind": kind})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("analysis.panic", map[string]any{"entry_id": id, "error": fmt.Sprint(r)})
				if store := c.storeFor(kind); store != nil {
					store.Update(context.Background(), id, func(e *logs.Entry) {
						e.Status = logs.StatusError
					})
				}
				c.finishJob(id, kind, "", "", OutcomeError)
			}
		}()
		run(jobCtx)
	}()
}

func (c *Coordinator) resolveMeal(ctx context.Context, id, description string, result backend.MealAnalysis, callErr error) {
	// Cancellation observed before applying the result: no writes at all.
	if ctx.Err() != nil {
		return
	}

	outcome := OutcomeCompleted
	var name, comment string
	var payload logs.MealPayload
	if callErr != nil {
		telemetry.Warn("analysis.backend_failed", map[string]any{
			"entry_id": id, "kind": logs.KindMeal, "error": callErr.Error(),
		})
		name, payload = fallbackMeal(c.Fallback, description)
		outcome = OutcomeFallback
	} else {
		name = mealName(result)
		comment = result.CharacterComment
		payload = logs.MealPayload{
			Calories: result.TotalCalories,
			Protein:  int(result.TotalProtein),
			Fat:      int(result.TotalFat),
			Carbs:    int(result.TotalCarbs),
			Sugar:    int(result.TotalSugar),
			Fiber:    int(result.TotalFiber),
			Sodium:   int(result.TotalSodium),
		}
	}

	found := c.Meals.Update(ctx, id, func(e *logs.Entry) {
		e.Status = logs.StatusComplete
		e.Name = name
		e.Emoji = emojiFor(name)
		e.Meal = &payload
	})
	if !found {
		// Deleted while in flight; deletion wins, silently.
		c.dropJob(id, logs.KindMeal)
		return
	}
	c.finishJob(id, logs.KindMeal, name, comment, outcome)
}

func (c *Coordinator) resolveExercise(ctx context.Context, id, description string, durationMinutes int, result backend.ExerciseAnalysis, callErr error) {
	if ctx.Err() != nil {
		return
	}

	outcome := OutcomeCompleted
	burned := result.CaloriesBurned
	if callErr != nil {
		telemetry.Warn("analysis.backend_failed", map[string]any{
			"entry_id": id, "kind": logs.KindExercise, "error": callErr.Error(),
		})
		burned = fallbackExercise(c.Fallback, durationMinutes)
		outcome = OutcomeFallback
	}

	found := c.Exercises.Update(ctx, id, func(e *logs.Entry) {
		e.Status = logs.StatusComplete
		e.Exercise = &logs.ExercisePayload{
			DurationMinutes: durationMinutes,
			CaloriesBurned:  burned,
		}
	})
	if !found {
		c.dropJob(id, logs.KindExercise)
		return
	}
	c.finishJob(id, logs.KindExercise, description, "", outcome)
}

// finishJob clears job bookkeeping and signals completion exactly once.
func (c *Coordinator) finishJob(id string, kind logs.Kind, name, comment string, outcome Outcome) {
	start := c.dropJob(id, kind)

	switch outcome {
	case OutcomeCompleted:
		metrics.IncAnalysisCompleted()
	case OutcomeFallback:
		metrics.IncAnalysisFallback()
	}
	fields := map[string]any{"entry_id": id, "kind": kind, "outcome": outcome}
	if !start.IsZero() {
		durationMs := float64(c.now().Sub(start).Microseconds()) / 1000.0
		fields["duration_ms"] = durationMs
		metrics.ObserveAnalysisDurationMs(durationMs)
	}
	telemetry.Info("analysis.resolved", fields)
	c.publish(Event{EntryID: id, Kind: kind, Outcome: outcome, Name: name, Comment: comment})
}

func (c *Coordinator) storeFor(kind logs.Kind) *logs.Store {
	switch kind {
	case logs.KindMeal:
		return c.Meals
	case logs.KindExercise:
		return c.Exercises
	case logs.KindWeight:
		return c.Weights
	}
	return nil
}

// dropJob removes cancel bookkeeping and the active-id marker if this job
// still owns it. Returns the entry's creation time when known.
func (c *Coordinator) dropJob(id string, kind logs.Kind) time.Time {
	c.mu.Lock()
	if cancel, ok := c.cancels[id]; ok {
		delete(c.cancels, id)
		defer cancel()
	}
	if c.activeMeal == id {
		c.activeMeal = ""
	}
	if c.activeExercise == id {
		c.activeExercise = ""
	}
	c.mu.Unlock()

	if store := c.storeFor(kind); store != nil {
		if e, ok := store.Get(id); ok {
			return e.CreatedAt
		}
	}
	return time.Time{}
}

func mealName(result backend.MealAnalysis) string {
	switch len(result.FoodItems) {
	case 0:
		return "Meal"
	case 1:
		return result.FoodItems[0].Name
	default:
		return result.FoodItems[0].Name + ", " + result.FoodItems[1].Name
	}
}
