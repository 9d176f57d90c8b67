package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"keyhaven/internal/models"
	"keyhaven/internal/repository"
	"keyhaven/internal/scheduler"
)

// KeyHandler handles CRUD and health-check triggers for ApiKey entities.
type KeyHandler struct {
	store     *repository.Store
	scheduler *scheduler.Scheduler
	logger    *zap.Logger
}

// NewKeyHandler creates a new key handler.
func NewKeyHandler(store *repository.Store, sched *scheduler.Scheduler, logger *zap.Logger) *KeyHandler {
	return &KeyHandler{store: store, scheduler: sched, logger: logger}
}

// maskedKey is the outbound shape of an ApiKey with its secret masked.
type maskedKey struct {
	models.ApiKey
	Key string `json:"key"`
}

func maskAPIKey(k models.ApiKey) maskedKey {
	m := maskedKey{ApiKey: k}
	m.Key = maskKey(k.Key)
	return m
}

// List returns keys, optionally filtered by channelId.
func (h *KeyHandler) List(c *gin.Context) {
	var channelID *uuid.UUID
	if q := c.Query("channelId"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			fail(c, http.StatusBadRequest, "invalid channelId")
			return
		}
		channelID = &id
	}

	keys, err := h.store.ListKeys(c.Request.Context(), channelID)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	masked := make([]maskedKey, len(keys))
	for i, k := range keys {
		masked[i] = maskAPIKey(k)
	}
	ok(c, http.StatusOK, masked)
}

// Get returns one key.
func (h *KeyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	k, err := h.store.GetKey(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if k == nil {
		fail(c, http.StatusNotFound, "key not found")
		return
	}
	ok(c, http.StatusOK, maskAPIKey(*k))
}

// KeyRequest is the create/update payload for an ApiKey.
type KeyRequest struct {
	ChannelID uuid.UUID `json:"channelId"`
	Key       string    `json:"key"`
	Alias     string    `json:"alias"`
	Priority  *int      `json:"priority"`
	Weight    *int      `json:"weight"`
}

func validateRange(name string, v int) error {
	if v < 1 || v > 100 {
		return &rangeError{name}
	}
	return nil
}

type rangeError struct{ field string }

func (e *rangeError) Error() string { return e.field + " must be in [1,100]" }

// Create creates a key.
func (h *KeyHandler) Create(c *gin.Context) {
	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		fail(c, http.StatusBadRequest, "key is required")
		return
	}

	priority, weight := 50, 50
	if req.Priority != nil {
		priority = *req.Priority
	}
	if req.Weight != nil {
		weight = *req.Weight
	}
	if err := validateRange("priority", priority); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateRange("weight", weight); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	k := &models.ApiKey{
		ChannelID: req.ChannelID,
		Key:       req.Key,
		Alias:     req.Alias,
		Status:    models.KeyStatusUnknown,
		Priority:  priority,
		Weight:    weight,
	}

	if err := h.store.CreateKey(c.Request.Context(), k); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, http.StatusCreated, maskAPIKey(*k))
}

// Update patches a key.
func (h *KeyHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	var req KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := map[string]interface{}{}
	if req.Key != "" {
		patch["key"] = req.Key
	}
	if req.Alias != "" {
		patch["alias"] = req.Alias
	}
	if req.Priority != nil {
		if err := validateRange("priority", *req.Priority); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		patch["priority"] = *req.Priority
	}
	if req.Weight != nil {
		if err := validateRange("weight", *req.Weight); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		patch["weight"] = *req.Weight
	}

	k, err := h.store.UpdateKey(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if k == nil {
		fail(c, http.StatusNotFound, "key not found")
		return
	}
	ok(c, http.StatusOK, maskAPIKey(*k))
}

// Delete removes a key.
func (h *KeyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.DeleteKey(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	okMessage(c, "key deleted")
}

// ImportRequest is the payload for POST /api/keys/import.
type ImportRequest struct {
	ChannelID uuid.UUID `json:"channelId"`
	Keys      string    `json:"keys"`
	Delimiter string    `json:"delimiter"`
}

// Import splits a raw blob of keys and atomically creates them all with
// default priority/weight/status.
func (h *KeyHandler) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	delim := req.Delimiter
	if delim == "" {
		delim = "\n"
	}

	raw := strings.Split(req.Keys, delim)
	keys := make([]models.ApiKey, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		keys = append(keys, models.ApiKey{
			ChannelID: req.ChannelID,
			Key:       v,
			Status:    models.KeyStatusUnknown,
			Priority:  50,
			Weight:    50,
		})
	}

	if len(keys) == 0 {
		fail(c, http.StatusBadRequest, "no keys to import")
		return
	}

	if err := h.store.CreateKeys(c.Request.Context(), keys); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	masked := make([]maskedKey, len(keys))
	for i, k := range keys {
		masked[i] = maskAPIKey(k)
	}
	ok(c, http.StatusCreated, gin.H{"imported": len(masked), "keys": masked})
}

// Check triggers a single on-demand probe.
func (h *KeyHandler) Check(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.scheduler.CheckOne(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	okMessage(c, "check completed")
}

// CheckAll triggers a background check of every enabled channel's keys,
// batched, and returns immediately; the caller must poll key records to
// observe the outcome.
func (h *KeyHandler) CheckAll(c *gin.Context) {
	go func() {
		if err := h.scheduler.CheckAll(context.Background(), false); err != nil {
			h.logger.Warn("check-all failed", zap.Error(err))
		}
	}()
	okMessage(c, "check initiated for all channels")
}
