package savedmeals

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calotrack/internal/logs"
	"calotrack/internal/shared/server/respond"
)

const maxImageSize = 10 << 20 // 10MB decoded

// Saver records a completed meal entry directly, bypassing analysis.
type Saver interface {
	SaveMealInstantly(ctx context.Context, name string, payload logs.MealPayload, day logs.DayKey) (string, error)
}

// Handler wires saved meal templates to HTTP.
type Handler struct {
	store *Store
	saver Saver
	now   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(store *Store, saver Saver) *Handler {
	return &Handler{store: store, saver: saver, now: time.Now}
}

// RegisterRoutes attaches saved meal routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/meals/saved", h.list)
	rg.POST("/meals/saved", h.create)
	rg.PUT("/meals/saved/:id", h.update)
	rg.DELETE("/meals/saved/:id", h.remove)
	rg.POST("/meals/saved/:id/log", h.log)
}

type savedMealRequest struct {
	Name        string `json:"name" binding:"required"`
	Calories    int    `json:"calories"`
	Protein     int    `json:"protein"`
	Fat         int    `json:"fat"`
	Carbs       int    `json:"carbs"`
	Sugar       int    `json:"sugar"`
	Fiber       int    `json:"fiber"`
	Sodium      int    `json:"sodium"`
	Emoji       string `json:"emoji"`
	ImageBase64 string `json:"image_base64"`
}

func (h *Handler) list(c *gin.Context) {
	meals := h.store.All()
	out := make([]gin.H, 0, len(meals))
	for _, m := range meals {
		out = append(out, gin.H{
			"id":        m.ID,
			"name":      m.Name,
			"emoji":     m.Emoji,
			"nutrition": m.Nutrition,
			"hasImage":  len(m.Image) > 0,
		})
	}
	respond.OK(c, gin.H{"meals": out})
}

func (h *Handler) create(c *gin.Context) {
	m, ok := h.parse(c)
	if !ok {
		return
	}
	id, err := h.store.Add(c.Request.Context(), m)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) update(c *gin.Context) {
	m, ok := h.parse(c)
	if !ok {
		return
	}
	if !h.store.Update(c.Request.Context(), c.Param("id"), m) {
		respond.Error(c, http.StatusNotFound, "not_found", "saved meal not found", nil)
		return
	}
	respond.OK(c, gin.H{"id": c.Param("id")})
}

func (h *Handler) remove(c *gin.Context) {
	if !h.store.Remove(c.Request.Context(), c.Param("id")) {
		respond.Error(c, http.StatusNotFound, "not_found", "saved meal not found", nil)
		return
	}
	respond.OK(c, gin.H{"deleted": true})
}

type logSavedMealRequest struct {
	Day string `json:"day"`
}

// log copies the template into the meal log as a completed entry.
func (h *Handler) log(c *gin.Context) {
	m, ok := h.store.Get(c.Param("id"))
	if !ok {
		respond.Error(c, http.StatusNotFound, "not_found", "saved meal not found", nil)
		return
	}
	// The body is optional; an absent one logs to today.
	var req logSavedMealRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}

	id, err := h.saver.SaveMealInstantly(c.Request.Context(), m.Name, m.Nutrition, day)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to log saved meal", nil)
		return
	}
	c.Set("entryId", id)
	respond.JSON(c, http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) parse(c *gin.Context) (Meal, bool) {
	var req savedMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return Meal{}, false
	}
	if req.Calories < 0 || req.Protein < 0 || req.Fat < 0 || req.Carbs < 0 ||
		req.Sugar < 0 || req.Fiber < 0 || req.Sodium < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "nutrient values must not be negative", nil)
		return Meal{}, false
	}
	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "image_base64 is not valid base64", nil)
			return Meal{}, false
		}
		if len(decoded) > maxImageSize {
			respond.Error(c, http.StatusBadRequest, "validation_error", "image too large", nil)
			return Meal{}, false
		}
		image = decoded
	}
	return Meal{
		Name:  req.Name,
		Emoji: req.Emoji,
		Nutrition: logs.MealPayload{
			Calories: req.Calories,
			Protein:  req.Protein,
			Fat:      req.Fat,
			Carbs:    req.Carbs,
			Sugar:    req.Sugar,
			Fiber:    req.Fiber,
			Sodium:   req.Sodium,
		},
		Image: image,
	}, true
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
