package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/infrastructure"
)

// HistoryHandler exposes finished-session history over HTTP
type HistoryHandler struct {
	store  *infrastructure.SQLiteHistoryStore
	logger *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store *infrastructure.SQLiteHistoryStore, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: logger,
	}
}

// ListSessions handles GET /api/v1/history
func (h *HistoryHandler) ListSessions(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}

	records, err := h.store.Recent(limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetSession handles GET /api/v1/history/:id
func (h *HistoryHandler) GetSession(c *gin.Context) {
	record, err := h.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}
