package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rxvxrsx/revgrab/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	controller *app.SessionController
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(controller *app.SessionController) *HealthHandler {
	return &HealthHandler{
		controller: controller,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Session struct {
		Active bool `json:"active"`
	} `json:"session"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Session.Active = h.controller.Current() != nil

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
