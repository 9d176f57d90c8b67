package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyhaven/internal/apiauth"
	"keyhaven/internal/router"
)

// ModelsHandler serves GET /v1/models.
type ModelsHandler struct {
	router *router.Router
	logger *zap.Logger
}

// NewModelsHandler creates a new models handler.
func NewModelsHandler(r *router.Router, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{router: r, logger: logger}
}

// List enumerates the declared model table, including only models with
// at least one eligible backing channel for the caller's token.
func (h *ModelsHandler) List(c *gin.Context) {
	token, ok := apiauth.TokenFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	now := time.Now().Unix()
	data := make([]gin.H, 0)

	for _, entry := range router.KnownModels() {
		eligible, ownerType, err := h.router.EligibleChannelsForType(c.Request.Context(), entry.Types, token)
		if err != nil {
			h.logger.Error("model eligibility check failed", zap.Error(err))
			continue
		}
		if !eligible {
			continue
		}
		data = append(data, gin.H{
			"id":       entry.Model,
			"object":   "model",
			"created":  now,
			"owned_by": string(ownerType),
		})
	}

	c.JSON(http.StatusOK, gin.H{"object": "list", "data": data})
}
