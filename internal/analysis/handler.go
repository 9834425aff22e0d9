package analysis

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calotrack/internal/logs"
	"calotrack/internal/shared/server/respond"
)

const maxImageSize = 10 << 20 // 10MB decoded

// Handler wires the write side, analysis dispatch and instant saves, to
// HTTP.
type Handler struct {
	coord *Coordinator
	now   func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(coord *Coordinator) *Handler {
	return &Handler{coord: coord, now: time.Now}
}

// RegisterRoutes attaches analysis and save routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/meals/analyze", h.analyzeMeal)
	rg.POST("/exercises/analyze", h.analyzeExercise)
	rg.POST("/meals", h.saveMeal)
	rg.POST("/exercises", h.saveExercise)
	rg.POST("/weights", h.saveWeight)
	rg.GET("/analysis/active", h.active)
}

type analyzeMealRequest struct {
	ImageBase64 string `json:"image_base64"`
	Description string `json:"description"`
	Day         string `json:"day"`
}

func (h *Handler) analyzeMeal(c *gin.Context) {
	var req analyzeMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}

	var id string
	switch {
	case req.ImageBase64 != "":
		image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "image_base64 is not valid base64", nil)
			return
		}
		if len(image) > maxImageSize {
			respond.Error(c, http.StatusBadRequest, "validation_error", "image too large", nil)
			return
		}
		id, err = h.coord.StartMealImageAnalysis(c.Request.Context(), image, day)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
	case req.Description != "":
		var err error
		id, err = h.coord.StartMealTextAnalysis(c.Request.Context(), req.Description, day)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
			return
		}
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "image_base64 or description is required", nil)
		return
	}

	c.Set("entryId", id)
	respond.Accepted(c, gin.H{"id": id, "status": logs.StatusAnalyzing})
}

type analyzeExerciseRequest struct {
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	Day             string `json:"day"`
}

func (h *Handler) analyzeExercise(c *gin.Context) {
	var req analyzeExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}

	id, err := h.coord.StartExerciseAnalysis(c.Request.Context(), req.Description, req.DurationMinutes, day)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	c.Set("entryId", id)
	respond.Accepted(c, gin.H{"id": id, "status": logs.StatusAnalyzing})
}

type saveMealRequest struct {
	Name     string `json:"name" binding:"required"`
	Calories int    `json:"calories"`
	Protein  int    `json:"protein"`
	Fat      int    `json:"fat"`
	Carbs    int    `json:"carbs"`
	Day      string `json:"day"`
}

func (h *Handler) saveMeal(c *gin.Context) {
	var req saveMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}
	if req.Calories < 0 || req.Protein < 0 || req.Fat < 0 || req.Carbs < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "nutrient values must not be negative", nil)
		return
	}

	id, err := h.coord.SaveMealInstantly(c.Request.Context(), req.Name, logs.MealPayload{
		Calories: req.Calories,
		Protein:  req.Protein,
		Fat:      req.Fat,
		Carbs:    req.Carbs,
	}, day)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to save meal", nil)
		return
	}

	c.Set("entryId", id)
	respond.JSON(c, http.StatusCreated, gin.H{"id": id})
}

type saveExerciseRequest struct {
	Name            string `json:"name" binding:"required"`
	DurationMinutes int    `json:"duration_minutes"`
	CaloriesBurned  int    `json:"calories_burned"`
	Day             string `json:"day"`
}

func (h *Handler) saveExercise(c *gin.Context) {
	var req saveExerciseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "name is required", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}
	if req.DurationMinutes <= 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "duration_minutes must be positive", nil)
		return
	}
	if req.CaloriesBurned < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "calories_burned must not be negative", nil)
		return
	}

	id, err := h.coord.SaveExerciseInstantly(c.Request.Context(), req.Name, logs.ExercisePayload{
		DurationMinutes: req.DurationMinutes,
		CaloriesBurned:  req.CaloriesBurned,
	}, day)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal", "failed to save exercise", nil)
		return
	}

	c.Set("entryId", id)
	respond.JSON(c, http.StatusCreated, gin.H{"id": id})
}

type saveWeightRequest struct {
	WeightKg float64 `json:"weight_kg"`
	Day      string  `json:"day"`
}

func (h *Handler) saveWeight(c *gin.Context) {
	var req saveWeightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	day, ok := h.day(c, req.Day)
	if !ok {
		return
	}

	id, err := h.coord.SaveWeightInstantly(c.Request.Context(), req.WeightKg, day)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}

	c.Set("entryId", id)
	respond.JSON(c, http.StatusCreated, gin.H{"id": id})
}

func (h *Handler) active(c *gin.Context) {
	respond.OK(c, gin.H{
		"mealId":     h.coord.ActiveMealID(),
		"exerciseId": h.coord.ActiveExerciseID(),
	})
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
