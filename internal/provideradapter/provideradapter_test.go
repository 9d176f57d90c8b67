package provideradapter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyhaven/internal/models"
)

func TestForUnknownType(t *testing.T) {
	_, err := For(models.ChannelType("unknown"))
	assert.Error(t, err)
}

func TestOpenAIChatEndpoint(t *testing.T) {
	a, err := For(models.ChannelOpenAI)
	require.NoError(t, err)
	assert.Equal(t, "https://api.openai.com/v1/chat/completions", a.ChatEndpoint("https://api.openai.com/", "sk-x", "gpt-4o"))
}

func TestOpenAIApplyAuth(t *testing.T) {
	a, _ := For(models.ChannelOpenAI)
	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	a.ApplyAuth(req, "sk-test")
	assert.Equal(t, "Bearer sk-test", req.Header.Get("Authorization"))
}

func TestAnthropicApplyAuth(t *testing.T) {
	a, _ := For(models.ChannelAnthropic)
	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	a.ApplyAuth(req, "key-123")
	assert.Equal(t, "key-123", req.Header.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", req.Header.Get("anthropic-version"))
}

func TestGeminiChatEndpointEmbedsKeyInQuery(t *testing.T) {
	a, _ := For(models.ChannelGemini)
	endpoint := a.ChatEndpoint("https://generativelanguage.googleapis.com", "my-key", "gemini-pro")
	assert.Contains(t, endpoint, "key=my-key")
	assert.Contains(t, endpoint, "gemini-pro:generateContent")
}

func TestGeminiApplyAuthIsNoop(t *testing.T) {
	a, _ := For(models.ChannelGemini)
	req := httptest.NewRequest(http.MethodPost, "http://example.com", nil)
	a.ApplyAuth(req, "my-key")
	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestClassifyTransportError(t *testing.T) {
	status, msg := Classify(nil, errors.New("dial tcp: connection refused"))
	assert.Equal(t, models.KeyStatusInvalid, status)
	assert.Contains(t, msg, "connection refused")
}

func TestClassifyUnauthorized(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(bytes.NewReader(nil))}
	status, _ := Classify(resp, nil)
	assert.Equal(t, models.KeyStatusInvalid, status)
}

func TestClassifyTooManyRequests(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Body: io.NopCloser(bytes.NewReader(nil))}
	status, _ := Classify(resp, nil)
	assert.Equal(t, models.KeyStatusQuotaExceeded, status)
}

func TestClassifySuccess(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil))}
	status, msg := Classify(resp, nil)
	assert.Equal(t, models.KeyStatusActive, status)
	assert.Empty(t, msg)
}

func TestClassifyOtherErrorIncludesBody(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(bytes.NewReader([]byte("boom")))}
	status, msg := Classify(resp, nil)
	assert.Equal(t, models.KeyStatusInvalid, status)
	assert.Contains(t, msg, "boom")
	assert.Contains(t, msg, "500")
}

func TestNewProbeRequestChat(t *testing.T) {
	a, _ := For(models.ChannelOpenAI)
	ch := &models.Channel{BaseURL: "https://api.openai.com", TestMethod: models.TestMethodChat}
	req, err := NewProbeRequest(context.Background(), a, ch, "sk-test")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
}

func TestNewProbeRequestModelsDefault(t *testing.T) {
	a, _ := For(models.ChannelOpenAI)
	ch := &models.Channel{BaseURL: "https://api.openai.com", TestMethod: models.TestMethodModels}
	req, err := NewProbeRequest(context.Background(), a, ch, "sk-test")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Contains(t, req.URL.String(), "/v1/models")
}

func TestNewProbeRequestBalanceFallsBackToModels(t *testing.T) {
	a, _ := For(models.ChannelAnthropic)
	ch := &models.Channel{BaseURL: "https://api.anthropic.com", TestMethod: models.TestMethodBalance}
	req, err := NewProbeRequest(context.Background(), a, ch, "key")
	require.NoError(t, err)
	assert.Contains(t, req.URL.String(), "/v1/models", "anthropic has no balance endpoint so the probe falls back to listing models")
}

func TestExtractBalanceParsesTotalAvailable(t *testing.T) {
	ch := &models.Channel{TestMethod: models.TestMethodBalance}
	resp := &http.Response{Body: io.NopCloser(bytes.NewReader([]byte(`{"total_granted":100,"total_used":10,"total_available":90}`)))}

	balance := ExtractBalance(ch, resp)

	require.NotNil(t, balance)
	assert.Equal(t, 90.0, *balance)
}

func TestExtractBalanceIgnoresNonBalanceProbes(t *testing.T) {
	ch := &models.Channel{TestMethod: models.TestMethodModels}
	resp := &http.Response{Body: io.NopCloser(bytes.NewReader([]byte(`{"total_available":90}`)))}

	assert.Nil(t, ExtractBalance(ch, resp))
}

func TestExtractBalanceReturnsNilWhenFieldAbsent(t *testing.T) {
	ch := &models.Channel{TestMethod: models.TestMethodBalance}
	resp := &http.Response{Body: io.NopCloser(bytes.NewReader([]byte(`{"data":[{"id":"claude-3-haiku"}]}`)))}

	assert.Nil(t, ExtractBalance(ch, resp))
}

func TestExtractBalanceReturnsNilOnUnparseableBody(t *testing.T) {
	ch := &models.Channel{TestMethod: models.TestMethodBalance}
	resp := &http.Response{Body: io.NopCloser(bytes.NewReader([]byte("not json")))}

	assert.Nil(t, ExtractBalance(ch, resp))
}
