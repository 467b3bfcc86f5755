package handler

import (
	"net/http"

	"consultancy_backend/internal/scoring/service"
	"consultancy_backend/internal/scoring/transport"
	"consultancy_backend/platform/httpkit"
	"consultancy_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for lead scoring.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new scoring handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterStudentRoutes mounts per-student score routes under /students.
func (h *Handler) RegisterStudentRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/score", h.Compute)
	rg.POST("/:id/score", h.ComputeAndPersist)
}

// RegisterRoutes mounts /scoring routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/leaderboard", h.Leaderboard)
}

// RegisterAdminRoutes mounts admin-only scoring routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/recalculate", h.RecalculateAll)
}

func (h *Handler) Compute(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Compute(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ComputeAndPersist(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.ComputeAndPersist(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) RecalculateAll(c *gin.Context) {
	result, err := h.svc.RecalculateAll(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Leaderboard(c *gin.Context) {
	var req transport.LeaderboardRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Leaderboard(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": result})
}
