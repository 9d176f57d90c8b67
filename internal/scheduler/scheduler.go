// Package scheduler drives periodic and on-demand credential health checks.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"keyhaven/internal/keychecker"
	"keyhaven/internal/models"
	"keyhaven/internal/repository"
)

// interChannelPace is the extra delay applied between channels only on the
// scheduler-driven path, per the spec's resolution of the ambiguous source:
// serial-with-500ms for the timer job, batched-only for management triggers.
const interChannelPace = 500 * time.Millisecond

// Scheduler owns a cron-like schedule that drives KeyChecker.CheckBatch
// across every enabled channel's non-disabled keys.
type Scheduler struct {
	store   *repository.Store
	checker *keychecker.KeyChecker
	logger  *zap.Logger

	mu       sync.Mutex
	stopCh   chan struct{}
	running  bool
	schedule string
}

// New creates a Scheduler whose schedule is fixed at "0 * * * *": the loop
// fires at the top of every hour, and there is no way to change the cadence.
func New(store *repository.Store, checker *keychecker.KeyChecker, logger *zap.Logger) *Scheduler {
	return &Scheduler{store: store, checker: checker, logger: logger, schedule: "0 * * * *"}
}

// Start registers the trigger. Idempotent: calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.running = true
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.loop(ctx, stopCh)
}

// Stop cancels the trigger idempotently, so no new sweep starts. A sweep
// already in progress is not interrupted: it runs through all its
// remaining channels and batches.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

func (s *Scheduler) loop(ctx context.Context, stopCh chan struct{}) {
	for {
		wait := timeUntilNextHour(time.Now())
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			if err := s.CheckAll(ctx, true); err != nil {
				s.logger.Error("scheduled checkAll failed", zap.Error(err))
			}
		case <-stopCh:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func timeUntilNextHour(now time.Time) time.Duration {
	next := now.Truncate(time.Hour).Add(time.Hour)
	return next.Sub(now)
}

// CheckOne looks up the channel owning keyID and invokes KeyChecker once.
func (s *Scheduler) CheckOne(ctx context.Context, keyID uuid.UUID) error {
	key, err := s.store.GetKey(ctx, keyID)
	if err != nil || key == nil {
		return err
	}

	ch, err := s.store.GetChannel(ctx, key.ChannelID)
	if err != nil || ch == nil {
		return err
	}

	proxy, err := s.resolveProxy(ctx, ch)
	if err != nil {
		return err
	}

	result := s.checker.Check(ctx, ch, key, proxy)
	return s.applyResult(ctx, key.ID, result.Status, result.Balance)
}

// CheckAll iterates enabled channels and their non-disabled keys. When
// paced is true (the scheduler-driven path) an extra 500ms delay is
// inserted between channels; the management-triggered on-demand path
// (paced=false) relies solely on KeyChecker's internal batch pacing.
// It returns the first channel/key listing failure it hits; per-key apply
// failures are logged and otherwise skipped so one bad key doesn't stop
// the rest of the sweep.
func (s *Scheduler) CheckAll(ctx context.Context, paced bool) error {
	channels, err := s.store.ListChannels(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for i, ch := range channels {
		if !ch.Enabled {
			continue
		}
		if err := s.checkChannel(ctx, &channels[i]); err != nil {
			s.logger.Error("checkAll: channel check failed", zap.String("channel", ch.ID.String()), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}

		if paced && i < len(channels)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interChannelPace):
			}
		}
	}

	return firstErr
}

func (s *Scheduler) checkChannel(ctx context.Context, ch *models.Channel) error {
	keys, err := s.store.ListKeys(ctx, &ch.ID)
	if err != nil {
		return err
	}

	var checkable []models.ApiKey
	for _, k := range keys {
		if k.Status != models.KeyStatusDisabled {
			checkable = append(checkable, k)
		}
	}
	if len(checkable) == 0 {
		return nil
	}

	proxy, err := s.resolveProxy(ctx, ch)
	if err != nil {
		return err
	}

	updates := s.checker.CheckBatch(ctx, ch, checkable, proxy)
	for _, u := range updates {
		id, err := uuid.Parse(u.KeyID)
		if err != nil {
			continue
		}
		if err := s.applyResult(ctx, id, u.Status, u.Balance); err != nil {
			s.logger.Error("checkAll: apply result failed", zap.String("key", u.KeyID), zap.Error(err))
		}
	}
	return nil
}

func (s *Scheduler) resolveProxy(ctx context.Context, ch *models.Channel) (*models.Proxy, error) {
	if ch.ProxyID == nil {
		return nil, nil
	}
	return s.store.GetProxy(ctx, *ch.ProxyID)
}

// applyResult writes status/balance/lastChecked/errorCount atomically per key.
func (s *Scheduler) applyResult(ctx context.Context, keyID uuid.UUID, status models.KeyStatus, balance *float64) error {
	key, err := s.store.GetKey(ctx, keyID)
	if err != nil || key == nil {
		return err
	}

	errorCount := key.ErrorCount + 1
	if status == models.KeyStatusActive {
		errorCount = 0
	}

	patch := map[string]interface{}{
		"status":       status,
		"last_checked": time.Now(),
		"error_count":  errorCount,
	}
	if balance != nil {
		patch["balance"] = *balance
	}

	_, err = s.store.UpdateKey(ctx, keyID, patch)
	return err
}
