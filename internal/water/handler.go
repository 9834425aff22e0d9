package water

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calotrack/internal/logs"
	"calotrack/internal/shared/server/respond"
)

// Handler wires water intake to HTTP.
type Handler struct {
	store *Store
	now   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{store: store, now: time.Now}
}

// RegisterRoutes attaches water routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/water", h.get)
	rg.PUT("/water", h.set)
	rg.POST("/water/add", h.add)
	rg.POST("/water/remove", h.remove)
}

type waterRequest struct {
	Day      string `json:"day"`
	AmountML int    `json:"amount_ml"`
}

func (h *Handler) get(c *gin.Context) {
	day, ok := h.day(c, c.Query("day"))
	if !ok {
		return
	}
	h.respond(c, day)
}

func (h *Handler) set(c *gin.Context) {
	var req waterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}
	if req.AmountML < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "amount_ml must not be negative", nil)
		return
	}
	h.store.SetAmount(c.Request.Context(), day, req.AmountML)
	h.respond(c, day)
}

func (h *Handler) add(c *gin.Context) {
	req, day, ok := h.adjustment(c)
	if !ok {
		return
	}
	h.store.Add(c.Request.Context(), day, req.AmountML)
	h.respond(c, day)
}

func (h *Handler) remove(c *gin.Context) {
	req, day, ok := h.adjustment(c)
	if !ok {
		return
	}
	h.store.Remove(c.Request.Context(), day, req.AmountML)
	h.respond(c, day)
}

func (h *Handler) adjustment(c *gin.Context) (waterRequest, logs.DayKey, bool) {
	var req waterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return req, "", false
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return req, "", false
	}
	if req.AmountML <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "amount_ml must be positive", nil)
		return req, "", false
	}
	return req, day, true
}

// day resolves an optional day string, defaulting to today.
func (h *Handler) day(c *gin.Context, raw string) (logs.DayKey, bool) {
	if raw == "" {
		return logs.DayOf(h.now()), true
	}
	day, err := logs.ParseDayKey(raw)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return "", false
	}
	return day, true
}

func (h *Handler) respond(c *gin.Context, day logs.DayKey) {
	respond.OK(c, gin.H{
		"day":      day,
		"amountMl": h.store.Amount(day),
		"glasses":  h.store.Glasses(day),
		"progress": h.store.Progress(day, DefaultGoalML),
	})
}
