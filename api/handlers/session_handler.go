package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/app"
	"github.com/rxvxrsx/revgrab/internal/domain"
)

// SessionHandler exposes download sessions over HTTP
type SessionHandler struct {
	controller *app.SessionController
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(controller *app.SessionController, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		controller: controller,
		logger:     logger,
	}
}

// StartSessionRequest represents a request to start a download session
type StartSessionRequest struct {
	URL     string                  `json:"url" binding:"required"`
	Options *domain.DownloadOptions `json:"options,omitempty"`
}

// StartSession handles POST /api/v1/sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := domain.DefaultDownloadOptions()
	if req.Options != nil {
		opts = *req.Options
	}

	sessionID, err := h.controller.StartSession(req.URL, opts)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrInvalidURL),
			errors.Is(err, domain.ErrDRMUnsupported):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrAlreadyDownloading),
			errors.Is(err, domain.ErrTooSoon):
			status = http.StatusConflict
		case errors.Is(err, domain.ErrInsufficientDiskSpace):
			status = http.StatusInsufficientStorage
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": sessionID,
		"platform":   domain.DetectPlatform(req.URL),
	})
}

// GetSession handles GET /api/v1/sessions/current
func (h *SessionHandler) GetSession(c *gin.Context) {
	session := h.controller.Current()
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// CancelSession handles POST /api/v1/sessions/current/cancel
func (h *SessionHandler) CancelSession(c *gin.Context) {
	session := h.controller.Current()
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}
	h.controller.Cancel()
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "status": "cancelling"})
}
