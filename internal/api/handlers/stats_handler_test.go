package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"keyhaven/internal/models"
)

func TestComputeDashboardStatsCountsByStatus(t *testing.T) {
	channels := []models.Channel{
		{Enabled: true},
		{Enabled: true},
		{Enabled: false},
	}
	keys := []models.ApiKey{
		{Status: models.KeyStatusActive},
		{Status: models.KeyStatusActive},
		{Status: models.KeyStatusInvalid},
		{Status: models.KeyStatusQuotaExceeded},
	}
	logs := []models.RequestLog{
		{Status: 200, Latency: 100},
		{Status: 200, Latency: 200},
		{Status: 500, Latency: 300},
	}

	stats := computeDashboardStats(channels, keys, logs)

	assert.Equal(t, 3, stats.TotalChannels)
	assert.Equal(t, 2, stats.EnabledChannels)
	assert.Equal(t, 4, stats.TotalKeys)
	assert.Equal(t, 2, stats.ActiveKeys)
	assert.Equal(t, 1, stats.InvalidKeys)
	assert.Equal(t, 1, stats.QuotaExceededKeys)
	assert.Equal(t, int64(3), stats.TotalRequests24h)
	assert.InDelta(t, 1.0/3.0, stats.ErrorRate24h, 0.0001)
	assert.InDelta(t, 200.0, stats.AvgLatencyMS24h, 0.0001)
}

func TestComputeDashboardStatsHandlesNoLogs(t *testing.T) {
	stats := computeDashboardStats(nil, nil, nil)

	assert.Equal(t, int64(0), stats.TotalRequests24h)
	assert.Zero(t, stats.ErrorRate24h)
	assert.Zero(t, stats.AvgLatencyMS24h)
}
