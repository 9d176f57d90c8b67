// Package apiauth implements AuthGate: bearer-token validation, per-token
// rate limiting, and attaching a typed Token to the request context.
package apiauth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"keyhaven/internal/models"
	"keyhaven/internal/repository"
)

type contextKey struct{}

var tokenContextKey = contextKey{}

// TokenFromContext returns the Token AuthGate attached, if any.
func TokenFromContext(ctx context.Context) (*models.Token, bool) {
	t, ok := ctx.Value(tokenContextKey).(*models.Token)
	return t, ok
}

// window is one token's fixed-window rate-limit counter.
type window struct {
	count   int
	resetAt time.Time
}

// AuthGate runs before every /v1/* handler.
type AuthGate struct {
	store  *repository.Store
	logger *zap.Logger

	mu      sync.Mutex
	windows map[string]*window
}

// New creates an AuthGate.
func New(store *repository.Store, logger *zap.Logger) *AuthGate {
	return &AuthGate{store: store, logger: logger, windows: make(map[string]*window)}
}

// Middleware returns the gin handler implementing the full AuthGate flow.
func (g *AuthGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) || len(header) <= len(prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		value := strings.TrimPrefix(header, prefix)

		token, err := g.store.TokenByValue(c.Request.Context(), value)
		if err != nil {
			g.logger.Error("token lookup failed", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": map[string]string{"message": "internal error", "type": "server_error"}})
			return
		}
		if token == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}
		if !token.Enabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Token is disabled"})
			return
		}

		go g.touchLastUsed(token.ID.String())

		ctx := context.WithValue(c.Request.Context(), tokenContextKey, token)
		c.Request = c.Request.WithContext(ctx)

		if token.RateLimit != nil {
			if !g.allow(token.ID.String(), *token.RateLimit) {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error": gin.H{"message": "Rate limit exceeded", "type": "rate_limit_error"},
				})
				return
			}
		}

		c.Next()
	}
}

func (g *AuthGate) touchLastUsed(tokenID string) {
	// best-effort, fire-and-forget: the caller does not wait on this.
	id, err := uuid.Parse(tokenID)
	if err != nil {
		return
	}
	if _, err := g.store.UpdateToken(context.Background(), id, map[string]interface{}{"last_used": time.Now()}); err != nil {
		g.logger.Warn("touch lastUsed failed", zap.String("token", tokenID), zap.Error(err))
	}
}

// allow applies the fixed-60s-window counter for tokenID; returns false
// once the (rateLimit+1)-th request in the window arrives.
func (g *AuthGate) allow(tokenID string, rateLimit int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	w, ok := g.windows[tokenID]
	now := time.Now()
	if !ok || now.After(w.resetAt) || now.Equal(w.resetAt) {
		w = &window{count: 0, resetAt: now.Add(60 * time.Second)}
		g.windows[tokenID] = w
	}

	w.count++
	return w.count <= rateLimit
}
