package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTimeUntilNextHour(t *testing.T) {
	now := time.Date(2026, 8, 6, 14, 17, 30, 0, time.UTC)
	wait := timeUntilNextHour(now)
	assert.Equal(t, 42*time.Minute+30*time.Second, wait)
}

func TestTimeUntilNextHourExactlyOnTheHour(t *testing.T) {
	now := time.Date(2026, 8, 6, 14, 0, 0, 0, time.UTC)
	wait := timeUntilNextHour(now)
	assert.Equal(t, time.Hour, wait)
}

func TestStartStopIsIdempotent(t *testing.T) {
	s := New(nil, nil, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Start(ctx)
	s.Start(ctx) // second Start before Stop must be a no-op, not a double-register

	assert.True(t, s.running)

	s.Stop()
	s.Stop() // second Stop must not panic on an already-closed channel

	assert.False(t, s.running)
}
