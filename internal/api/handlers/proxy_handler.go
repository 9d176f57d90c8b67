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

// ProxyHandler handles CRUD and connectivity tests for Proxy entities.
type ProxyHandler struct {
	store   *repository.Store
	proxies *proxydialer.Cache
	logger  *zap.Logger
}

// NewProxyHandler creates a new proxy handler.
func NewProxyHandler(store *repository.Store, proxies *proxydialer.Cache, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{store: store, proxies: proxies, logger: logger}
}

type maskedProxy struct {
	models.Proxy
	Password string `json:"password,omitempty"`
}

func maskProxyRecord(p models.Proxy) maskedProxy {
	m := maskedProxy{Proxy: p}
	m.Password = maskPassword(p.Password)
	return m
}

// List returns all proxies.
func (h *ProxyHandler) List(c *gin.Context) {
	proxies, err := h.store.ListProxies(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	masked := make([]maskedProxy, len(proxies))
	for i, p := range proxies {
		masked[i] = maskProxyRecord(p)
	}
	ok(c, http.StatusOK, masked)
}

// Get returns one proxy.
func (h *ProxyHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.store.GetProxy(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "proxy not found")
		return
	}
	ok(c, http.StatusOK, maskProxyRecord(*p))
}

// ProxyRequest is the create/update payload for a Proxy.
type ProxyRequest struct {
	Name     string           `json:"name"`
	Type     models.ProxyType `json:"type"`
	Host     string           `json:"host"`
	Port     int              `json:"port"`
	Username string           `json:"username"`
	Password string           `json:"password"`
	Enabled  *bool            `json:"enabled"`
}

func (r *ProxyRequest) validate() error {
	if err := validateName(r.Name); err != nil {
		return err
	}
	if err := validateProxyType(r.Type); err != nil {
		return err
	}
	if err := validatePort(r.Port); err != nil {
		return err
	}
	return nil
}

// Create creates a proxy.
func (h *ProxyHandler) Create(c *gin.Context) {
	var req ProxyRequest
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

	p := &models.Proxy{
		Name:     req.Name,
		Type:     req.Type,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Enabled:  enabled,
	}

	if err := h.store.CreateProxy(c.Request.Context(), p); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	ok(c, http.StatusCreated, maskProxyRecord(*p))
}

// Update patches a proxy and invalidates its cached transport.
func (h *ProxyHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}

	var req ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := map[string]interface{}{
		"name":     req.Name,
		"type":     req.Type,
		"host":     req.Host,
		"port":     req.Port,
		"username": req.Username,
	}
	if req.Password != "" {
		patch["password"] = req.Password
	}
	if req.Enabled != nil {
		patch["enabled"] = *req.Enabled
	}

	p, err := h.store.UpdateProxy(c.Request.Context(), id, patch)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "proxy not found")
		return
	}
	h.proxies.Invalidate(id.String())
	ok(c, http.StatusOK, maskProxyRecord(*p))
}

// Delete removes a proxy, clearing proxyId on every referencing channel.
func (h *ProxyHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.store.DeleteProxy(c.Request.Context(), id); err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	h.proxies.Invalidate(id.String())
	okMessage(c, "proxy deleted")
}

// Test performs a connectivity probe through the proxy.
func (h *ProxyHandler) Test(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "invalid id")
		return
	}
	p, err := h.store.GetProxy(c.Request.Context(), id)
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		fail(c, http.StatusNotFound, "proxy not found")
		return
	}

	testOK, latencyMS, testErr := proxydialer.TestProxy(c.Request.Context(), p)
	resp := gin.H{"ok": testOK, "latencyMs": latencyMS}
	if testErr != nil {
		resp["error"] = testErr.Error()
	}
	ok(c, http.StatusOK, resp)
}
