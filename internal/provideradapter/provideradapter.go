// Package provideradapter implements the per-Channel.type dialect: auth
// header injection, endpoint composition, probe body shape, and
// HTTP-status-based error classification.
package provideradapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"keyhaven/internal/models"
)

// Adapter is one per Channel.type.
type Adapter interface {
	// ChatEndpoint returns the full URL for a chat completion request.
	ChatEndpoint(baseURL, key, model string) string
	// ModelsEndpoint returns the full URL for a model-listing request.
	ModelsEndpoint(baseURL, key string) string
	// BalanceEndpoint returns the full URL for a balance probe, or "" if unsupported.
	BalanceEndpoint(baseURL, key string) string
	// ApplyAuth sets auth headers on req (URL-embedded auth is handled by the endpoint builders).
	ApplyAuth(req *http.Request, key string)
	// ProbeChatBody returns the minimal request body used to probe key health.
	ProbeChatBody(model string) []byte
	// DefaultProbeModel is the model name used when a channel has no testModel set.
	DefaultProbeModel() string
}

// For gets the adapter for a channel type.
func For(t models.ChannelType) (Adapter, error) {
	switch t {
	case models.ChannelOpenAI, models.ChannelOpenAICompatible:
		return openAIAdapter{}, nil
	case models.ChannelAnthropic:
		return anthropicAdapter{}, nil
	case models.ChannelGemini:
		return geminiAdapter{}, nil
	default:
		return nil, fmt.Errorf("no adapter for channel type %q", t)
	}
}

// trimBase strips trailing slashes before composition, per the dialect table.
func trimBase(base string) string {
	return strings.TrimRight(base, "/")
}

// --- openai / openai-compatible -----------------------------------------

type openAIAdapter struct{}

func (openAIAdapter) ChatEndpoint(base, _, _ string) string {
	return trimBase(base) + "/v1/chat/completions"
}

func (openAIAdapter) ModelsEndpoint(base, _ string) string {
	return trimBase(base) + "/v1/models"
}

func (openAIAdapter) BalanceEndpoint(base, _ string) string {
	return trimBase(base) + "/dashboard/billing/credit_grants"
}

func (openAIAdapter) ApplyAuth(req *http.Request, key string) {
	req.Header.Set("Authorization", "Bearer "+key)
}

func (openAIAdapter) ProbeChatBody(model string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": "hi"},
		},
		"max_tokens": 1,
	})
	return body
}

func (openAIAdapter) DefaultProbeModel() string { return "gpt-3.5-turbo" }

// --- anthropic ------------------------------------------------------------

type anthropicAdapter struct{}

func (anthropicAdapter) ChatEndpoint(base, _, _ string) string {
	return trimBase(base) + "/v1/messages"
}

func (anthropicAdapter) ModelsEndpoint(base, _ string) string {
	return trimBase(base) + "/v1/models"
}

func (anthropicAdapter) BalanceEndpoint(_, _ string) string { return "" }

func (anthropicAdapter) ApplyAuth(req *http.Request, key string) {
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", "2023-06-01")
}

func (anthropicAdapter) ProbeChatBody(model string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": "hi"},
		},
		"max_tokens": 1,
	})
	return body
}

func (anthropicAdapter) DefaultProbeModel() string { return "claude-3-haiku-20240307" }

// --- gemini -----------------------------------------------------------------

type geminiAdapter struct{}

func (geminiAdapter) ChatEndpoint(base, key, model string) string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", trimBase(base), model, key)
}

func (geminiAdapter) ModelsEndpoint(base, key string) string {
	return fmt.Sprintf("%s/v1beta/models?key=%s", trimBase(base), key)
}

func (geminiAdapter) BalanceEndpoint(_, _ string) string { return "" }

func (geminiAdapter) ApplyAuth(*http.Request, string) {
	// auth is embedded in the URL query string by the endpoint builders.
}

func (geminiAdapter) ProbeChatBody(string) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": "hi"}}},
		},
		"generationConfig": map[string]int{"maxOutputTokens": 1},
	})
	return body
}

func (geminiAdapter) DefaultProbeModel() string { return "gemini-pro" }

// Classify maps an upstream HTTP response (or transport error) to a
// KeyStatus and an optional error detail, per the classification table.
// This is the only place a key's status is derived from a relay/probe
// outcome.
func Classify(resp *http.Response, transportErr error) (models.KeyStatus, string) {
	if transportErr != nil {
		return models.KeyStatusInvalid, transportErr.Error()
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.KeyStatusInvalid, ""
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.KeyStatusQuotaExceeded, ""
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return models.KeyStatusActive, ""
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return models.KeyStatusInvalid, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))
	}
}

// ExtractBalance parses the `total_available` field out of a balance-probe
// response body. It only applies to channels whose testMethod is "balance";
// for every other probe, or a body that doesn't decode or carry the field,
// it returns nil.
func ExtractBalance(ch *models.Channel, resp *http.Response) *float64 {
	if ch.TestMethod != models.TestMethodBalance {
		return nil
	}

	var payload struct {
		TotalAvailable *float64 `json:"total_available"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil
	}
	return payload.TotalAvailable
}

// NewProbeRequest builds the HTTP request for a single health probe
// according to the channel's testMethod.
func NewProbeRequest(ctx context.Context, adapter Adapter, ch *models.Channel, key string) (*http.Request, error) {
	model := ch.TestModel
	if model == "" {
		model = adapter.DefaultProbeModel()
	}

	var (
		method = http.MethodGet
		url    string
		body   io.Reader
	)

	switch ch.TestMethod {
	case models.TestMethodBalance:
		url = adapter.BalanceEndpoint(ch.BaseURL, key)
		if url == "" {
			url = adapter.ModelsEndpoint(ch.BaseURL, key)
		}
	case models.TestMethodChat:
		url = adapter.ChatEndpoint(ch.BaseURL, key, model)
		method = http.MethodPost
		body = bytes.NewReader(adapter.ProbeChatBody(model))
	default: // models
		url = adapter.ModelsEndpoint(ch.BaseURL, key)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	adapter.ApplyAuth(req, key)
	return req, nil
}
