// Package keychecker executes single health probes against provider
// credentials and drives batched checks across a channel's keys.
package keychecker

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"keyhaven/internal/models"
	"keyhaven/internal/provideradapter"
	"keyhaven/internal/proxydialer"
)

const (
	probeTimeout  = 30 * time.Second
	batchSize     = 5
	interBatchGap = 1 * time.Second
)

// Result is the outcome of a single probe.
type Result struct {
	Status  models.KeyStatus
	Balance *float64
	Error   string
}

// KeyChecker executes probes using a shared proxy transport cache.
type KeyChecker struct {
	proxies *proxydialer.Cache
	logger  *zap.Logger
}

// New creates a KeyChecker.
func New(proxies *proxydialer.Cache, logger *zap.Logger) *KeyChecker {
	return &KeyChecker{proxies: proxies, logger: logger}
}

// Check executes exactly one HTTP probe using the channel's adapter,
// testMethod, and proxy (if any). Reports exactly one of
// {active, invalid, quota_exceeded} — never disabled/unknown.
func (c *KeyChecker) Check(ctx context.Context, ch *models.Channel, key *models.ApiKey, proxy *models.Proxy) Result {
	adapter, err := provideradapter.For(ch.Type)
	if err != nil {
		return Result{Status: models.KeyStatusInvalid, Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := provideradapter.NewProbeRequest(ctx, adapter, ch, key.Key)
	if err != nil {
		return Result{Status: models.KeyStatusInvalid, Error: err.Error()}
	}

	transport, err := c.proxies.Transport(proxy)
	if err != nil {
		return Result{Status: models.KeyStatusInvalid, Error: err.Error()}
	}

	client := &http.Client{Transport: transport, Timeout: probeTimeout}

	resp, err := client.Do(req)
	if err != nil {
		status, msg := provideradapter.Classify(nil, err)
		return Result{Status: status, Error: msg}
	}
	defer resp.Body.Close()

	status, msg := provideradapter.Classify(resp, nil)

	var balance *float64
	if status == models.KeyStatusActive {
		balance = provideradapter.ExtractBalance(ch, resp)
	}

	return Result{Status: status, Balance: balance, Error: msg}
}

// KeyUpdate carries the field values a batched check applies to one key.
type KeyUpdate struct {
	KeyID   string
	Status  models.KeyStatus
	Balance *float64
	Error   string
}

// CheckBatch probes all keys under one channel in batches of 5 concurrent
// probes with a 1s delay between batches, per the spec's checkAll pacing.
// It does not itself write to the Store; callers apply the returned
// updates atomically per key.
func (c *KeyChecker) CheckBatch(ctx context.Context, ch *models.Channel, keys []models.ApiKey, proxy *models.Proxy) []KeyUpdate {
	updates := make([]KeyUpdate, len(keys))

	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}

		batch := keys[start:end]
		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			i := i
			key := batch[i]
			g.Go(func() error {
				result := c.Check(gctx, ch, &key, proxy)
				updates[start+i] = KeyUpdate{KeyID: key.ID.String(), Status: result.Status, Balance: result.Balance, Error: result.Error}
				return nil
			})
		}
		_ = g.Wait()

		if end < len(keys) {
			select {
			case <-ctx.Done():
				return updates
			case <-time.After(interBatchGap):
			}
		}
	}

	return updates
}
