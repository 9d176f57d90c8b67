package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"keyhaven/internal/models"
	"keyhaven/internal/repository"
)

// LogHandler serves read-only access to RequestLog rows.
type LogHandler struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewLogHandler creates a new log handler.
func NewLogHandler(store *repository.Store, logger *zap.Logger) *LogHandler {
	return &LogHandler{store: store, logger: logger}
}

// List returns filtered, paginated request logs.
func (h *LogHandler) List(c *gin.Context) {
	var filters models.LogFilters

	if q := c.Query("channelId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid channelId")
			return
		}
		filters.ChannelID = &id
	}
	if q := c.Query("status"); q != "" {
		status, err := strconv.Atoi(q)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid status")
			return
		}
		filters.Status = &status
	}
	if q := c.Query("startTime"); q != "" {
		ms, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid startTime")
			return
		}
		t := time.UnixMilli(ms)
		filters.StartTime = &t
	}
	if q := c.Query("endTime"); q != "" {
		ms, err := strconv.ParseInt(q, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid endTime")
			return
		}
		t := time.UnixMilli(ms)
		filters.EndTime = &t
	}

	filters.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	filters.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, total, err := h.store.QueryLogs(c.Request.Context(), filters)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, http.StatusOK, gin.H{"logs": logs, "total": total})
}
