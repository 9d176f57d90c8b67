// Package router implements the end-to-end handling of /v1/*: model
// resolution, channel/key selection, dialect translation, relay (unary and
// streaming), bookkeeping, and logging.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"keyhaven/internal/loadbalancer"
	"keyhaven/internal/metrics"
	"keyhaven/internal/models"
	"keyhaven/internal/provideradapter"
	"keyhaven/internal/proxydialer"
	"keyhaven/internal/repository"
	"keyhaven/internal/tokencount"
)

// modelPrefix maps a model-name prefix to the channel types eligible to
// serve it. Matched longest-prefix-first; the fallback entry (empty
// prefix) covers anything unmatched.
type modelPrefix struct {
	prefix string
	types  []models.ChannelType
}

var modelTable = []modelPrefix{
	{"gpt-4o-mini", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"gpt-4o", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"gpt-4-turbo", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"gpt-4", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"gpt-3.5-turbo", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"o1-mini", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"o1-preview", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"o1", []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}},
	{"claude-3.5-sonnet", []models.ChannelType{models.ChannelAnthropic}},
	{"claude-3-5-sonnet", []models.ChannelType{models.ChannelAnthropic}},
	{"claude-3-opus", []models.ChannelType{models.ChannelAnthropic}},
	{"claude-3-sonnet", []models.ChannelType{models.ChannelAnthropic}},
	{"claude-3-haiku", []models.ChannelType{models.ChannelAnthropic}},
	{"gemini-1.5-pro", []models.ChannelType{models.ChannelGemini}},
	{"gemini-1.5-flash", []models.ChannelType{models.ChannelGemini}},
	{"gemini-pro", []models.ChannelType{models.ChannelGemini}},
}

var fallbackTypes = []models.ChannelType{models.ChannelOpenAI, models.ChannelOpenAICompatible}

// resolveModelTypes returns the eligible channel types for a model via
// longest-prefix match; falls back to openai/openai-compatible.
func resolveModelTypes(model string) []models.ChannelType {
	bestLen := -1
	var best []models.ChannelType
	for _, m := range modelTable {
		if strings.HasPrefix(model, m.prefix) && len(m.prefix) > bestLen {
			bestLen = len(m.prefix)
			best = m.types
		}
	}
	if best == nil {
		return fallbackTypes
	}
	return best
}

// KnownModels lists the declared model table, for GET /v1/models.
func KnownModels() []struct {
	Model string
	Types []models.ChannelType
} {
	out := make([]struct {
		Model string
		Types []models.ChannelType
	}, 0, len(modelTable))
	for _, m := range modelTable {
		out = append(out, struct {
			Model string
			Types []models.ChannelType
		}{Model: m.prefix, Types: m.types})
	}
	return out
}

// Router wires together the Store, LoadBalancer, ProviderAdapter dialects,
// and ProxyDialer to serve /v1/chat/completions and /v1/models.
type Router struct {
	store   *repository.Store
	lb      *loadbalancer.LoadBalancer
	proxies *proxydialer.Cache
	metrics *metrics.Registry
	tracer  trace.Tracer
	logger  *zap.Logger
	client  *http.Client
}

// New creates a Router.
func New(store *repository.Store, lb *loadbalancer.LoadBalancer, proxies *proxydialer.Cache, m *metrics.Registry, tracer trace.Tracer, logger *zap.Logger) *Router {
	return &Router{
		store:   store,
		lb:      lb,
		proxies: proxies,
		metrics: m,
		tracer:  tracer,
		logger:  logger,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// ChatCompletionError is a structured relay-level error the HTTP handler
// translates into the JSON envelope in §7.
type ChatCompletionError struct {
	Status  int
	Message string
	Type    string
}

func (e *ChatCompletionError) Error() string { return e.Message }

// candidate is a (channel, key) pair chosen for a relay attempt.
type candidate struct {
	channel *models.Channel
	key     *models.ApiKey
}

// selectCandidate implements step 2-3 of §4.8: resolve model to eligible
// types, filter to enabled channels (intersected with the token's allowed
// channels when non-empty), and ask the LoadBalancer for a key from each
// in insertion order until one succeeds.
func (r *Router) selectCandidate(ctx context.Context, model string, token *models.Token) (*candidate, error) {
	types := resolveModelTypes(model)
	typeSet := make(map[models.ChannelType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	allowed := make(map[uuid.UUID]bool)
	for _, id := range token.AllowedChannels {
		allowed[id] = true
	}

	channels, err := r.store.ListChannels(ctx)
	if err != nil {
		return nil, err
	}

	for i := range channels {
		ch := &channels[i]
		if !ch.Enabled || !typeSet[ch.Type] {
			continue
		}
		if len(allowed) > 0 && !allowed[ch.ID] {
			continue
		}

		keys, err := r.store.ActiveKeysFor(ctx, ch.ID)
		if err != nil {
			return nil, err
		}
		key := r.lb.Select(keys, ch.LoadBalanceStrategy, ch.ID)
		if key != nil {
			return &candidate{channel: ch, key: key}, nil
		}
	}

	return nil, nil
}

// EligibleChannelsForType is used by GET /v1/models to decide whether a
// declared model has any usable backing channel.
func (r *Router) EligibleChannelsForType(ctx context.Context, types []models.ChannelType, token *models.Token) (bool, models.ChannelType, error) {
	typeSet := make(map[models.ChannelType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	allowed := make(map[uuid.UUID]bool)
	for _, id := range token.AllowedChannels {
		allowed[id] = true
	}

	channels, err := r.store.ListChannels(ctx)
	if err != nil {
		return false, "", err
	}
	for _, ch := range channels {
		if !ch.Enabled || !typeSet[ch.Type] {
			continue
		}
		if len(allowed) > 0 && !allowed[ch.ID] {
			continue
		}
		return true, ch.Type, nil
	}
	return false, "", nil
}

// ChatCompletion executes one relay of POST /v1/chat/completions. body is
// the raw client JSON, already validated to contain a "model" field.
// stream indicates whether the client requested SSE relay.
func (r *Router) ChatCompletion(ctx context.Context, token *models.Token, model string, stream bool, body []byte, w http.ResponseWriter) error {
	ctx, span := r.tracer.Start(ctx, "router.chat_completion", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("stream", stream),
	))
	defer span.End()

	start := time.Now()

	cand, err := r.selectCandidate(ctx, model, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if cand == nil {
		return &ChatCompletionError{Status: http.StatusServiceUnavailable, Message: "No available API keys for this model", Type: "server_error"}
	}

	adapter, err := provideradapter.For(cand.channel.Type)
	if err != nil {
		return err
	}

	upstreamURL := adapter.ChatEndpoint(cand.channel.BaseURL, cand.key.Key, model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	adapter.ApplyAuth(req, cand.key.Key)

	var proxy *models.Proxy
	if cand.channel.ProxyID != nil {
		proxy, err = r.store.GetProxy(ctx, *cand.channel.ProxyID)
		if err != nil {
			return err
		}
		if proxy != nil && !proxy.Enabled {
			proxy = nil
		}
	}

	transport, err := r.proxies.Transport(proxy)
	if err != nil {
		return err
	}
	client := &http.Client{Transport: transport, Timeout: 5 * time.Minute}

	resp, transportErr := client.Do(req)

	logEntry := &models.RequestLog{
		Timestamp: time.Now(),
		TokenID:   &token.ID,
		ChannelID: cand.channel.ID,
		KeyID:     cand.key.ID,
		Model:     model,
		Path:      "/v1/chat/completions",
		Method:    http.MethodPost,
		Streaming: stream,
	}

	if transportErr != nil {
		logEntry.Status = http.StatusInternalServerError
		logEntry.Error = transportErr.Error()
		logEntry.Latency = time.Since(start).Milliseconds()
		r.bookkeep(ctx, cand.key.ID, false, true)
		r.finishLog(ctx, logEntry)
		r.observe(cand.channel.Name, logEntry.Status, time.Since(start))
		span.RecordError(transportErr)
		span.SetStatus(codes.Error, transportErr.Error())
		return &ChatCompletionError{Status: http.StatusInternalServerError, Message: "upstream request failed", Type: "server_error"}
	}
	defer resp.Body.Close()

	if stream {
		return r.relayStream(ctx, resp, w, logEntry, cand, start)
	}
	return r.relayUnary(ctx, resp, w, logEntry, cand, start)
}

func (r *Router) relayUnary(ctx context.Context, resp *http.Response, w http.ResponseWriter, logEntry *models.RequestLog, cand *candidate, start time.Time) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	logEntry.Status = resp.StatusCode
	logEntry.Latency = time.Since(start).Milliseconds()
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		logEntry.Error = string(data)
	} else {
		extractUsage(data, logEntry)
	}

	r.bookkeep(ctx, cand.key.ID, ok, false)
	r.finishLog(ctx, logEntry)
	r.observe(cand.channel.Name, logEntry.Status, time.Since(start))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(data)
	return nil
}

func (r *Router) relayStream(ctx context.Context, resp *http.Response, w http.ResponseWriter, logEntry *models.RequestLog, cand *candidate, start time.Time) error {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(resp.StatusCode)

	flusher, canFlush := w.(http.Flusher)

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				break
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if readErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			readErr = ctx.Err()
		default:
		}
		if readErr != nil {
			break
		}
	}

	logEntry.Status = resp.StatusCode
	logEntry.Latency = time.Since(start).Milliseconds()
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	r.bookkeep(ctx, cand.key.ID, ok, false)
	r.finishLog(ctx, logEntry)
	r.observe(cand.channel.Name, logEntry.Status, time.Since(start))
	return nil
}

// bookkeep applies the always-applied per-key updates from §4.8 point 8.
func (r *Router) bookkeep(ctx context.Context, keyID uuid.UUID, upstream2xx bool, transportFailure bool) {
	key, err := r.store.GetKey(ctx, keyID)
	if err != nil || key == nil {
		return
	}

	patch := map[string]interface{}{}
	if !transportFailure {
		patch["last_used"] = time.Now()
		patch["total_requests"] = key.TotalRequests + 1
	}
	if upstream2xx {
		patch["error_count"] = 0
	} else {
		patch["error_count"] = key.ErrorCount + 1
	}

	if _, err := r.store.UpdateKey(ctx, keyID, patch); err != nil {
		r.logger.Warn("bookkeeping update failed", zap.String("key", keyID.String()), zap.Error(err))
	}
}

func (r *Router) finishLog(ctx context.Context, log *models.RequestLog) {
	settings, err := r.store.GetSettings(ctx)
	retention := int64(604800000)
	if err == nil && settings != nil {
		retention = settings.MaxLogsRetention
	}
	if err := r.store.AppendLog(ctx, log, retention); err != nil {
		r.logger.Warn("append log failed", zap.Error(err))
	}
}

func (r *Router) observe(channelName string, status int, latency time.Duration) {
	if r.metrics != nil {
		r.metrics.Observe(channelName, status, latency)
	}
}

// extractUsage best-effort parses prompt/completion token counts from a
// standard OpenAI-shaped usage object; falls back to a tiktoken estimate
// of the whole response body as output tokens when usage is absent, since some
// openai-compatible backends omit it.
func extractUsage(body []byte, log *models.RequestLog) {
	var parsed struct {
		Usage *struct {
			PromptTokens     *int `json:"prompt_tokens"`
			CompletionTokens *int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Usage != nil {
		log.InputTokens = parsed.Usage.PromptTokens
		log.OutputTokens = parsed.Usage.CompletionTokens
		return
	}

	estimate := tokencount.Estimate(string(body))
	log.OutputTokens = &estimate
}
