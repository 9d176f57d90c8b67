// Package loadbalancer picks one key from a channel's active key set
// according to the channel's configured strategy. Round-robin cursor state
// is process-local and non-durable by design.
package loadbalancer

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/google/uuid"

	"keyhaven/internal/models"
)

// LoadBalancer holds the process-local round-robin cursors, one per channel.
type LoadBalancer struct {
	mu      sync.Mutex
	cursors map[uuid.UUID]int
}

// New creates an empty LoadBalancer.
func New() *LoadBalancer {
	return &LoadBalancer{cursors: make(map[uuid.UUID]int)}
}

// Select picks one key from keys (assumed pre-filtered to status=active)
// under the given strategy for channelID. Returns nil if keys is empty.
func (lb *LoadBalancer) Select(keys []models.ApiKey, strategy models.LoadBalanceStrategy, channelID uuid.UUID) *models.ApiKey {
	if len(keys) == 0 {
		return nil
	}

	switch strategy {
	case models.StrategyWeighted:
		return selectWeighted(keys)
	case models.StrategyPriority:
		return selectPriority(keys)
	case models.StrategyLeastUsed:
		return selectLeastUsed(keys)
	default: // round-robin, and the safe fallback for unknown strategies
		return lb.selectRoundRobin(keys, channelID)
	}
}

// selectRoundRobin advances a per-channel cursor modulo the current key
// count; the cursor survives edits to the key list, reinterpreted modulo
// the new count (accepted skew).
func (lb *LoadBalancer) selectRoundRobin(keys []models.ApiKey, channelID uuid.UUID) *models.ApiKey {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	cursor := lb.cursors[channelID] % len(keys)
	if cursor < 0 {
		cursor += len(keys)
	}
	selected := keys[cursor]
	lb.cursors[channelID] = (cursor + 1) % len(keys)
	return &selected
}

func selectWeighted(keys []models.ApiKey) *models.ApiKey {
	total := 0
	for _, k := range keys {
		total += k.Weight
	}
	if total <= 0 {
		idx := secureRandomInt(len(keys))
		return &keys[idx]
	}

	roll := secureRandomInt(total)
	cumulative := 0
	for i := range keys {
		cumulative += keys[i].Weight
		if roll < cumulative {
			return &keys[i]
		}
	}
	return &keys[len(keys)-1]
}

// selectPriority picks the highest priority key; ties broken by lowest
// errorCount, then by stable original order.
func selectPriority(keys []models.ApiKey) *models.ApiKey {
	best := 0
	for i := 1; i < len(keys); i++ {
		switch {
		case keys[i].Priority > keys[best].Priority:
			best = i
		case keys[i].Priority == keys[best].Priority && keys[i].ErrorCount < keys[best].ErrorCount:
			best = i
		}
	}
	return &keys[best]
}

// selectLeastUsed picks the lowest totalRequests key; ties broken by
// original order.
func selectLeastUsed(keys []models.ApiKey) *models.ApiKey {
	best := 0
	for i := 1; i < len(keys); i++ {
		if keys[i].TotalRequests < keys[best].TotalRequests {
			best = i
		}
	}
	return &keys[best]
}

// secureRandomInt returns a uniform random int in [0, n) using crypto/rand,
// matching the base repo's avoidance of math/rand for selection.
func secureRandomInt(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}
