package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"calotrack/internal/netclient"
	"calotrack/internal/shared/server/respond"
)

// Handler exposes the session operations over HTTP.
type Handler struct {
	svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes attaches session routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/signin", h.signIn)
	rg.POST("/auth/signup", h.signUp)
	rg.POST("/auth/signout", h.signOut)
	rg.GET("/auth/session", h.current)
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "email and password are required", nil)
		return
	}
	pair, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	respond.OK(c, gin.H{"userId": pair.UserID})
}

func (h *Handler) signUp(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "email and password are required", nil)
		return
	}
	pair, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, gin.H{"userId": pair.UserID})
}

func (h *Handler) signOut(c *gin.Context) {
	h.svc.SignOut(c.Request.Context())
	respond.OK(c, gin.H{"ok": true})
}

func (h *Handler) current(c *gin.Context) {
	respond.OK(c, h.svc.Current())
}

func respondAuthError(c *gin.Context, err error) {
	var srvErr *netclient.ServerError
	switch {
	case errors.Is(err, netclient.ErrUnauthorized):
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	case errors.As(err, &srvErr):
		respond.Error(c, http.StatusBadGateway, "backend_error", srvErr.Message, nil)
	default:
		respond.Error(c, http.StatusBadGateway, "backend_unavailable", "authentication service unavailable", nil)
	}
}
