package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"keyhaven/internal/models"
	"keyhaven/internal/proxydialer"
	"keyhaven/internal/repository"
)

// ChannelHandler handles CRUD of Channel entities.
type ChannelHandler struct {
	store   *repository.Store
	proxies *proxydialer.Cache
	logger  *zap.Logger
}

// NewChannelHandler creates a new channel handler.
func NewChannelHandler(store *repository.Store, proxies *proxydialer.Cache, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{store: store, proxies: proxies, logger: logger}
}

// List returns all channels.
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.store.ListChannels(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, http.StatusOK, channels)
}

// Get returns one channel.
func (h *ChannelHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	ch, err := h.store.GetChannel(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if ch == nil {
		fail(c, http.StatusNotFound, "channel not found")
		return
	}
	ok(c, http.StatusOK, ch)
}

// ChannelRequest is the create/update payload for a Channel.
type ChannelRequest struct {
	Name                string                     `json:"name"`
	Type                models.ChannelType         `json:"type"`
	BaseURL             string                     `json:"baseUrl"`
	TestMethod          models.TestMethod          `json:"testMethod"`
	TestModel           string                     `json:"testModel"`
	ProxyID             *uuid.UUID                 `json:"proxyId"`
	LoadBalanceStrategy models.LoadBalanceStrategy `json:"loadBalanceStrategy"`
	Enabled             *bool                      `json:"enabled"`
}

func (r *ChannelRequest) validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if err := validateChannelType(r.Type); err != nil {
		return err
	}
	if err := validateBaseURL(r.BaseURL); err != nil {
		return err
	}
	if r.TestMethod == "" {
		r.TestMethod = models.TestMethodChat
	}
	if err := validateTestMethod(r.TestMethod); err != nil {
		return err
	}
	if r.LoadBalanceStrategy == "" {
		r.LoadBalanceStrategy = models.StrategyRoundRobin
	}
	if err := validateStrategy(r.LoadBalanceStrategy); err != nil {
		return err
	}
	return nil
}

// Create creates a channel.
func (h *ChannelHandler) Create(c *gin.Context) {
	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	ch := &models.Channel{
		Name:                req.Name,
		Type:                req.Type,
		BaseURL:             req.BaseURL,
		TestMethod:          req.TestMethod,
		TestModel:           req.TestModel,
		ProxyID:             req.ProxyID,
		LoadBalanceStrategy: req.LoadBalanceStrategy,
		Enabled:             enabled,
	}

	if err := h.store.CreateChannel(c.Request.Context(), ch); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, http.StatusCreated, ch)
}

// Update patches a channel.
func (h *ChannelHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	var req ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := map[string]interface{}{
		"name":                  req.Name,
		"type":                  req.Type,
		"base_url":              req.BaseURL,
		"test_method":           req.TestMethod,
		"test_model":            req.TestModel,
		"proxy_id":              req.ProxyID,
		"load_balance_strategy": req.LoadBalanceStrategy,
	}
	if req.Enabled != nil {
		patch["enabled"] = *req.Enabled
	}

	ch, err := h.store.UpdateChannel(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if ch == nil {
		fail(c, http.StatusNotFound, "channel not found")
		return
	}
	ok(c, http.StatusOK, ch)
}

// Delete removes a channel and cascades to its keys.
func (h *ChannelHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.DeleteChannel(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	okMessage(c, "channel deleted")
}
