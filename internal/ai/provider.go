// Package ai routes enrichment work (summaries, explanations, embeddings)
// across a failover chain of LLM backends, ending in deterministic fallbacks
// so enrichment never blocks on any backend being reachable.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var _ ChatProvider = (*HTTPProvider)(nil)

// ChatProvider is one LLM backend in a chain.
type ChatProvider interface {
	Name() string
	// Available reports whether the provider is configured and callable.
	Available() bool
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to an AI provider.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
}

// Response is the AI provider's response.
type Response struct {
	Content string
	Model   string
}

// ProviderConfig defines how to talk to one LLM API. The request/response
// shapes differ per vendor, so each config carries its own builder and parser.
type ProviderConfig struct {
	Name         string
	Endpoint     string
	APIKey       string
	Model        string
	AuthHeader   string            // "x-api-key" or "Authorization"
	AuthPrefix   string            // "" or "Bearer "
	ExtraHeaders map[string]string // e.g. anthropic-version

	BuildBody     func(cfg *ProviderConfig, req Request) map[string]any
	ParseResponse func(body []byte) (content, model string, err error)
}

// HTTPProvider is a generic HTTP-based LLM provider.
type HTTPProvider struct {
	config *ProviderConfig
	client *http.Client
}

func NewHTTPProvider(cfg *ProviderConfig) *HTTPProvider {
	return &HTTPProvider{
		config: cfg,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithProviderHTTPClient swaps the HTTP client, used by tests.
func (p *HTTPProvider) WithProviderHTTPClient(client *http.Client) *HTTPProvider {
	p.client = client
	return p
}

func (p *HTTPProvider) Name() string {
	return p.config.Name
}

func (p *HTTPProvider) Available() bool {
	return p.config.APIKey != ""
}

func (p *HTTPProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !p.Available() {
		return Response{}, fmt.Errorf("%s provider not configured", p.config.Name)
	}

	slog.Debug("AI provider request", "provider", p.config.Name, "model", p.config.Model)

	body := p.config.BuildBody(p.config, req)
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("AI provider error", "provider", p.config.Name, "status", resp.StatusCode)
		return Response{}, fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	content, model, err := p.config.ParseResponse(respBody)
	if err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}

	slog.Debug("AI provider response", "provider", p.config.Name, "model", model, "content_len", len(content))

	return Response{Content: content, Model: model}, nil
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")

	if p.config.AuthHeader != "" && p.config.APIKey != "" {
		req.Header.Set(p.config.AuthHeader, p.config.AuthPrefix+p.config.APIKey)
	}

	for k, v := range p.config.ExtraHeaders {
		req.Header.Set(k, v)
	}
}
