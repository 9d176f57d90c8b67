package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"keyhaven/internal/models"
	"keyhaven/internal/repository"
)

// TokenHandler handles CRUD of gateway-issued bearer Token entities.
type TokenHandler struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewTokenHandler creates a new token handler.
func NewTokenHandler(store *repository.Store, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{store: store, logger: logger}
}

type maskedToken struct {
	ID              uuid.UUID                     `json:"id"`
	Name            string                        `json:"name"`
	Token           string                        `json:"token"`
	AllowedChannels datatypes.JSONSlice[uuid.UUID] `json:"allowedChannels"`
	RateLimit       *int                           `json:"rateLimit,omitempty"`
	Enabled         bool                           `json:"enabled"`
	LastUsed        *time.Time                     `json:"lastUsed,omitempty"`
	CreatedAt       time.Time                      `json:"createdAt"`
	UpdatedAt       time.Time                      `json:"updatedAt"`
}

func maskTokenRecord(t models.Token) maskedToken {
	return maskedToken{
		ID:              t.ID,
		Name:            t.Name,
		Token:           maskToken(t.Token),
		AllowedChannels: t.AllowedChannels,
		RateLimit:       t.RateLimit,
		Enabled:         t.Enabled,
		LastUsed:        t.LastUsed,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// generateTokenValue produces "kh-" followed by 48 lowercase hex chars
// derived from 24 cryptographically random bytes.
func generateTokenValue() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "kh-" + hex.EncodeToString(buf), nil
}

// List returns all tokens, masked.
func (h *TokenHandler) List(c *gin.Context) {
	tokens, err := h.store.ListTokens(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	masked := make([]maskedToken, len(tokens))
	for i, t := range tokens {
		masked[i] = maskTokenRecord(t)
	}
	ok(c, http.StatusOK, masked)
}

// TokenRequest is the create/update payload for a Token.
type TokenRequest struct {
	Name            string      `json:"name"`
	AllowedChannels []uuid.UUID `json:"allowedChannels"`
	RateLimit       *int        `json:"rateLimit"`
	Enabled         *bool       `json:"enabled"`
}

// Create issues a new token and returns the raw value once.
func (h *TokenHandler) Create(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateName(req.Name); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	value, err := generateTokenValue()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	t := &models.Token{
		Name:            req.Name,
		Token:           value,
		AllowedChannels: datatypes.JSONSlice[uuid.UUID](req.AllowedChannels),
		RateLimit:       req.RateLimit,
		Enabled:         true,
	}
	if req.Enabled != nil {
		t.Enabled = *req.Enabled
	}

	if err := h.store.CreateToken(c.Request.Context(), t); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	// creation response returns the raw token once, per masking rules.
	resp := maskTokenRecord(*t)
	resp.Token = value
	ok(c, http.StatusCreated, resp)
}

// Update patches a token.
func (h *TokenHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := map[string]interface{}{}
	if req.Name != "" {
		patch["name"] = req.Name
	}
	if req.AllowedChannels != nil {
		patch["allowed_channels"] = datatypes.JSONSlice[uuid.UUID](req.AllowedChannels)
	}
	if req.RateLimit != nil {
		patch["rate_limit"] = *req.RateLimit
	}
	if req.Enabled != nil {
		patch["enabled"] = *req.Enabled
	}

	t, err := h.store.UpdateToken(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if t == nil {
		fail(c, http.StatusNotFound, "token not found")
		return
	}
	ok(c, http.StatusOK, maskTokenRecord(*t))
}

// Delete removes a token.
func (h *TokenHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.DeleteToken(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	okMessage(c, "token deleted")
}
