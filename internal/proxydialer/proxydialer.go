// Package proxydialer builds outbound HTTP transports that route through a
// configured Proxy, or the process default dialer when none applies.
package proxydialer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"keyhaven/internal/models"
)

// Cache caches built transports per Proxy id to amortise connection
// pooling; invalidated on Proxy update or delete.
type Cache struct {
	mu         sync.RWMutex
	transports map[string]http.RoundTripper
}

// NewCache creates an empty transport cache.
func NewCache() *Cache {
	return &Cache{transports: make(map[string]http.RoundTripper)}
}

// Invalidate drops the cached transport for a proxy id, if any.
func (c *Cache) Invalidate(proxyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.transports, proxyID)
}

// Transport returns a cached or freshly-built http.RoundTripper for p. A
// nil or disabled proxy yields the process default transport.
func (c *Cache) Transport(p *models.Proxy) (http.RoundTripper, error) {
	if p == nil || !p.Enabled {
		return http.DefaultTransport, nil
	}

	key := p.ID.String()

	c.mu.RLock()
	if t, ok := c.transports[key]; ok {
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.transports[key]; ok {
		return t, nil
	}

	t, err := Build(p)
	if err != nil {
		return nil, err
	}
	c.transports[key] = t
	return t, nil
}

// Build constructs a transport-level dialer for a Proxy. For socks5/socks5h
// it builds a SOCKS dialer (the "h" variant defers DNS resolution to the
// proxy). For http/https it builds an HTTP CONNECT tunnel via the
// transport's Proxy field.
func Build(p *models.Proxy) (http.RoundTripper, error) {
	switch p.Type {
	case models.ProxySOCKS5, models.ProxySOCKS5H:
		return buildSOCKS5(p)
	case models.ProxyHTTP, models.ProxyHTTPS:
		return buildHTTPConnect(p)
	default:
		return nil, fmt.Errorf("unsupported proxy type %q", p.Type)
	}
}

func buildSOCKS5(p *models.Proxy) (http.RoundTripper, error) {
	addr := net.JoinHostPort(p.Host, fmt.Sprintf("%d", p.Port))

	var auth *proxy.Auth
	if p.Username != "" {
		auth = &proxy.Auth{User: p.Username, Password: p.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("build socks5 dialer: %w", err)
	}

	contextDialer, ok := dialer.(proxy.ContextDialer)
	if !ok {
		// proxy.SOCKS5 always returns a ContextDialer in practice; this
		// branch only guards against future library changes.
		return &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}, nil
	}

	transport := &http.Transport{
		DialContext:         contextDialer.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
	if p.Type == models.ProxySOCKS5H {
		// DNS resolution is left to the proxy: DialContext already receives
		// the unresolved host, so no local resolution step is added here.
		transport.DialContext = contextDialer.DialContext
	}
	return transport, nil
}

func buildHTTPConnect(p *models.Proxy) (http.RoundTripper, error) {
	u := &url.URL{
		Scheme: string(p.Type),
		Host:   net.JoinHostPort(p.Host, fmt.Sprintf("%d", p.Port)),
	}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}

	return &http.Transport{
		Proxy:               http.ProxyURL(u),
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
	}, nil
}

// TestProxy performs the standard health probe: HEAD against a stable
// upstream endpoint through the given proxy, with a 10s overall budget.
func TestProxy(ctx context.Context, p *models.Proxy) (ok bool, latencyMS int64, err error) {
	transport, err := Build(p)
	if err != nil {
		return false, 0, err
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   10 * time.Second,
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "https://api.openai.com/v1/models", nil)
	if err != nil {
		return false, 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return false, latency, err
	}
	defer resp.Body.Close()

	return true, latency, nil
}
