package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyhaven/internal/models"
	"keyhaven/internal/repository"
)

// StatsHandler serves the read-only dashboard aggregation.
type StatsHandler struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store *repository.Store, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{store: store, logger: logger}
}

// DashboardStats is the aggregation surfaced at GET /api/stats.
type DashboardStats struct {
	TotalChannels    int     `json:"totalChannels"`
	EnabledChannels  int     `json:"enabledChannels"`
	TotalKeys        int     `json:"totalKeys"`
	ActiveKeys       int     `json:"activeKeys"`
	InvalidKeys      int     `json:"invalidKeys"`
	QuotaExceededKeys int    `json:"quotaExceededKeys"`
	TotalRequests24h int64   `json:"totalRequests24h"`
	ErrorRate24h     float64 `json:"errorRate24h"`
	AvgLatencyMS24h  float64 `json:"avgLatencyMs24h"`
}

// Get computes DashboardStats from current channel/key state and the
// last 24 hours of request logs.
func (h *StatsHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	channels, err := h.store.ListChannels(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	keys, err := h.store.ListKeys(ctx, nil)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	logs, err := h.store.LogsSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	ok(c, http.StatusOK, computeDashboardStats(channels, keys, logs))
}

func computeDashboardStats(channels []models.Channel, keys []models.ApiKey, logs []models.RequestLog) DashboardStats {
	stats := DashboardStats{TotalChannels: len(channels), TotalKeys: len(keys)}
	for _, ch := range channels {
		if ch.Enabled {
			stats.EnabledChannels++
		}
	}
	for _, k := range keys {
		switch k.Status {
		case models.KeyStatusActive:
			stats.ActiveKeys++
		case models.KeyStatusInvalid:
			stats.InvalidKeys++
		case models.KeyStatusQuotaExceeded:
			stats.QuotaExceededKeys++
		}
	}

	stats.TotalRequests24h = int64(len(logs))
	if len(logs) > 0 {
		var errCount int
		var latencySum int64
		for _, l := range logs {
			if l.Status < 200 || l.Status >= 300 {
				errCount++
			}
			latencySum += l.Latency
		}
		stats.ErrorRate24h = float64(errCount) / float64(len(logs))
		stats.AvgLatencyMS24h = float64(latencySum) / float64(len(logs))
	}

	return stats
}
