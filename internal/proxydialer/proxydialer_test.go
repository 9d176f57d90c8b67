package proxydialer

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyhaven/internal/models"
)

func TestTransportNilProxyUsesDefault(t *testing.T) {
	c := NewCache()
	transport, err := c.Transport(nil)
	require.NoError(t, err)
	assert.Equal(t, http.DefaultTransport, transport)
}

func TestTransportDisabledProxyUsesDefault(t *testing.T) {
	c := NewCache()
	p := &models.Proxy{Type: models.ProxyHTTP, Host: "proxy.example.com", Port: 8080, Enabled: false}
	transport, err := c.Transport(p)
	require.NoError(t, err)
	assert.Equal(t, http.DefaultTransport, transport)
}

func TestTransportCachesByProxyID(t *testing.T) {
	c := NewCache()
	id := uuid.New()
	p := &models.Proxy{BaseModel: models.BaseModel{ID: id}, Type: models.ProxyHTTP, Host: "proxy.example.com", Port: 8080, Enabled: true}

	first, err := c.Transport(p)
	require.NoError(t, err)
	second, err := c.Transport(p)
	require.NoError(t, err)

	assert.Same(t, first, second, "a repeated Transport call for the same proxy id must reuse the cached transport")
}

func TestInvalidateDropsCachedTransport(t *testing.T) {
	c := NewCache()
	id := uuid.New()
	p := &models.Proxy{BaseModel: models.BaseModel{ID: id}, Type: models.ProxyHTTP, Host: "proxy.example.com", Port: 8080, Enabled: true}

	first, err := c.Transport(p)
	require.NoError(t, err)
	c.Invalidate(id.String())
	second, err := c.Transport(p)
	require.NoError(t, err)

	assert.NotSame(t, first, second, "after Invalidate, the next Transport call must build a fresh transport")
}

func TestBuildHTTPConnectSetsProxyURL(t *testing.T) {
	p := &models.Proxy{Type: models.ProxyHTTP, Host: "proxy.example.com", Port: 3128, Username: "user", Password: "pass"}
	rt, err := Build(p)
	require.NoError(t, err)

	transport, ok := rt.(*http.Transport)
	require.True(t, ok)
	require.NotNil(t, transport.Proxy)

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	proxyURL, err := transport.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "proxy.example.com:3128", proxyURL.Host)
	assert.Equal(t, "user", proxyURL.User.Username())
}

func TestBuildSOCKS5(t *testing.T) {
	p := &models.Proxy{Type: models.ProxySOCKS5, Host: "127.0.0.1", Port: 1080}
	rt, err := Build(p)
	require.NoError(t, err)
	assert.NotNil(t, rt)
}

func TestBuildUnsupportedType(t *testing.T) {
	p := &models.Proxy{Type: models.ProxyType("bogus")}
	_, err := Build(p)
	assert.Error(t, err)
}
