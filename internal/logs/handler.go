package logs

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calotrack/internal/shared/server/respond"
)

// Canceller aborts any in-flight analysis for an entry before removal.
type Canceller interface {
	Cancel(ctx context.Context, id string) bool
}

// Handler wires the read side of the log collections, plus entry deletion,
// to HTTP.
type Handler struct {
	stores    map[Kind]*Store
	canceller Canceller
	threshold time.Duration
	now       func() time.Time
}

// NewHandler constructs a Handler over the per-kind stores. threshold is
// the analyzing wait beyond which entries are reported as timed out.
func NewHandler(meals, exercises, weights *Store, canceller Canceller, threshold time.Duration) *Handler {
	return &Handler{
		stores: map[Kind]*Store{
			KindMeal:     meals,
			KindExercise: exercises,
			KindWeight:   weights,
		},
		canceller: canceller,
		threshold: threshold,
		now:       time.Now,
	}
}

// RegisterRoutes attaches log routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/logs/:kind/entries", h.entries)
	rg.GET("/logs/:kind/totals", h.totals)
	rg.GET("/logs/:kind/has", h.hasEntries)
	rg.GET("/logs/:kind/days", h.days)
	rg.DELETE("/entries/:id", h.deleteEntry)
}

// entryResponse is an Entry plus the derived timed-out flag. Source inputs
// are withheld from list responses.
type entryResponse struct {
	ID        string           `json:"id"`
	Kind      Kind             `json:"kind"`
	DayKey    DayKey           `json:"dayKey"`
	CreatedAt time.Time        `json:"createdAt"`
	Status    Status           `json:"status"`
	Name      string           `json:"name,omitempty"`
	Emoji     string           `json:"emoji,omitempty"`
	Meal      *MealPayload     `json:"meal,omitempty"`
	Exercise  *ExercisePayload `json:"exercise,omitempty"`
	Weight    *WeightPayload   `json:"weight,omitempty"`
	TimedOut  bool             `json:"timedOut"`
}

func (h *Handler) toResponse(e Entry) entryResponse {
	return entryResponse{
		ID:        e.ID,
		Kind:      e.Kind,
		DayKey:    e.DayKey,
		CreatedAt: e.CreatedAt,
		Status:    e.Status,
		Name:      e.Name,
		Emoji:     e.Emoji,
		Meal:      e.Meal,
		Exercise:  e.Exercise,
		Weight:    e.Weight,
		TimedOut:  e.TimedOut(h.now(), h.threshold),
	}
}

func (h *Handler) entries(c *gin.Context) {
	store, day, ok := h.storeAndDay(c)
	if !ok {
		return
	}
	entries := store.EntriesForDay(day)
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, h.toResponse(e))
	}
	respond.OK(c, gin.H{"entries": out})
}

func (h *Handler) totals(c *gin.Context) {
	store, day, ok := h.storeAndDay(c)
	if !ok {
		return
	}
	respond.OK(c, store.Totals(day))
}

func (h *Handler) hasEntries(c *gin.Context) {
	store, day, ok := h.storeAndDay(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"hasEntries": store.HasEntries(day)})
}

func (h *Handler) days(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"days": store.Days()})
}

func (h *Handler) deleteEntry(c *gin.Context) {
	id := c.Param("id")
	c.Set("entryId", id)
	if !h.canceller.Cancel(c.Request.Context(), id) {
		respond.Error(c, http.StatusNotFound, "not_found", "entry not found", nil)
		return
	}
	respond.OK(c, gin.H{"ok": true})
}

func (h *Handler) store(c *gin.Context) (*Store, bool) {
	kind, err := ParseKind(c.Param("kind"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return nil, false
	}
	c.Set("logKind", string(kind))
	return h.stores[kind], true
}

func (h *Handler) storeAndDay(c *gin.Context) (*Store, DayKey, bool) {
	store, ok := h.store(c)
	if !ok {
		return nil, "", false
	}
	raw := c.Query("day")
	if raw == "" {
		return store, DayOf(h.now()), true
	}
	day, err := ParseDayKey(raw)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return nil, "", false
	}
	return store, day, true
}
