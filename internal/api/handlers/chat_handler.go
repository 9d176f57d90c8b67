package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"keyhaven/internal/apiauth"
	"keyhaven/internal/router"
)

// ChatHandler serves the OpenAI-compatible /v1/* surface.
type ChatHandler struct {
	router *router.Router
	logger *zap.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(r *router.Router, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{router: r, logger: logger}
}

// ChatCompletion handles POST /v1/chat/completions.
func (h *ChatHandler) ChatCompletion(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	var probe struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid JSON body", "type": "invalid_request_error"}})
		return
	}
	if probe.Model == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "model is required", "type": "invalid_request_error"}})
		return
	}

	token, ok := apiauth.TokenFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	err = h.router.ChatCompletion(c.Request.Context(), token, probe.Model, probe.Stream, body, c.Writer)
	if err != nil {
		var relayErr *router.ChatCompletionError
		if errors.As(err, &relayErr) {
			c.JSON(relayErr.Status, gin.H{"error": gin.H{"message": relayErr.Message, "type": relayErr.Type}})
			return
		}
		h.logger.Error("chat completion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "internal error", "type": "server_error"}})
	}
}

// Embeddings is a stub: not part of the hard core, kept for surface
// completeness so clients probing the endpoint get a typed 501 response
// rather than a 404. The request is not relayed upstream.
func (h *ChatHandler) Embeddings(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": gin.H{"message": "embeddings are not implemented", "type": "server_error"}})
}

// ImagesGenerations is a 501 stub; see Embeddings.
func (h *ChatHandler) ImagesGenerations(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": gin.H{"message": "image generation is not implemented", "type": "server_error"}})
}
