package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

const (
	PurposeSummarize = "summarize"
	PurposeExplain   = "explain"
	PurposeEmbed     = "embed"
)

// DefaultCallTimeout bounds one backend call inside a chain walk.
const DefaultCallTimeout = 45 * time.Second

// Embedder is the real embedding backend ahead of the pseudo-embedding
// fallback in the "embed" chain.
type Embedder interface {
	Name() string
	Available() bool
	EmbedArticle(ctx context.Context, article domain.Article) ([]float32, error)
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Router walks an ordered provider chain per purpose, guarded by the same
// circuit breakers the news providers use. Every chain ends in a
// deterministic fallback, so Summarize, Explain and Embed always return a
// usable result.
type Router struct {
	providers   map[string]ChatProvider
	chains      map[string][]string
	breakers    *breaker.Registry
	embedder    Embedder
	callTimeout time.Duration
}

type RouterOption func(*Router)

func WithChain(purpose string, names ...string) RouterOption {
	return func(r *Router) { r.chains[purpose] = names }
}

func WithEmbedder(e Embedder) RouterOption {
	return func(r *Router) { r.embedder = e }
}

func WithCallTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.callTimeout = d }
}

func WithBreakerOptions(opts ...breaker.Option) RouterOption {
	return func(r *Router) { r.breakers = breaker.NewRegistry(opts...) }
}

func NewRouter(providers []ChatProvider, opts ...RouterOption) *Router {
	r := &Router{
		providers: make(map[string]ChatProvider, len(providers)),
		chains: map[string][]string{
			PurposeSummarize: {"anthropic", "openai", "gemini"},
			PurposeExplain:   {"anthropic", "openai", "gemini"},
		},
		breakers:    breaker.NewRegistry(),
		callTimeout: DefaultCallTimeout,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type enrichmentPayload struct {
	Summary     string              `json:"summary"`
	KeyPoints   []string            `json:"key_points"`
	Entities    map[string][]string `json:"entities"`
	WhyTrending string              `json:"why_trending"`
	Tags        []string            `json:"tags"`
}

func (p enrichmentPayload) validate() error {
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("missing summary")
	}
	if len(p.KeyPoints) == 0 {
		return fmt.Errorf("missing key points")
	}
	return nil
}

type explanationPayload struct {
	Explanation string   `json:"explanation"`
	KeyPoints   []string `json:"key_points"`
	Timeline    []struct {
		Time  string `json:"time"`
		Event string `json:"event"`
	} `json:"timeline"`
	Sources []string `json:"sources"`
}

func (p explanationPayload) validate() error {
	if strings.TrimSpace(p.Explanation) == "" {
		return fmt.Errorf("missing explanation")
	}
	return nil
}

// Summarize enriches a cluster from its member articles. The returned
// provider name is FallbackProviderName when every backend was exhausted.
func (r *Router) Summarize(ctx context.Context, cluster domain.Cluster, members []domain.Article) (domain.Enrichment, string) {
	var payload enrichmentPayload
	provider, ok := r.complete(ctx, PurposeSummarize, Request{
		SystemPrompt: summarizeSystem,
		UserPrompt:   summarizePrompt(cluster, members),
	}, func(content string) error {
		payload = enrichmentPayload{}
		if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
			return err
		}
		return payload.validate()
	})
	if !ok {
		return fallbackEnrichment(cluster, members), FallbackProviderName
	}

	return domain.Enrichment{
		Summary:     payload.Summary,
		KeyPoints:   payload.KeyPoints,
		Entities:    payload.Entities,
		WhyTrending: payload.WhyTrending,
		Tags:        payload.Tags,
		AIGenerated: true,
	}, provider
}

// Explain produces the story-detail background block.
func (r *Router) Explain(ctx context.Context, cluster domain.Cluster, members []domain.Article) domain.Explanation {
	var payload explanationPayload
	provider, ok := r.complete(ctx, PurposeExplain, Request{
		SystemPrompt: explainSystem,
		UserPrompt:   explainPrompt(cluster, members),
	}, func(content string) error {
		payload = explanationPayload{}
		if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
			return err
		}
		return payload.validate()
	})
	if !ok {
		return fallbackExplanation(cluster, members)
	}

	timeline := make([]domain.TimelineEntry, 0, len(payload.Timeline))
	for _, t := range payload.Timeline {
		timeline = append(timeline, domain.TimelineEntry{Time: t.Time, Event: t.Event})
	}
	sources := payload.Sources
	if len(sources) == 0 {
		sources = cluster.Sources
	}
	return domain.Explanation{
		Explanation: payload.Explanation,
		KeyPoints:   payload.KeyPoints,
		Timeline:    timeline,
		Sources:     sources,
		AIGenerated: true,
		Provider:    provider,
	}
}

// Embed returns a vector for the text, from the real embedder when its
// breaker admits the call, else the hash-bucket pseudo-embedding.
func (r *Router) Embed(ctx context.Context, text string) ([]float32, string) {
	return r.embed(ctx, text, func(callCtx context.Context) ([]float32, error) {
		return r.embedder.EmbedText(callCtx, text)
	})
}

// EmbedArticle embeds what clustering compares: an article's title and
// snippet. The pseudo-embedding fallback hashes the title alone, since its
// bag-of-words has no use for prose.
func (r *Router) EmbedArticle(ctx context.Context, article domain.Article) ([]float32, string) {
	return r.embed(ctx, article.Title, func(callCtx context.Context) ([]float32, error) {
		return r.embedder.EmbedArticle(callCtx, article)
	})
}

func (r *Router) embed(ctx context.Context, fallbackText string, call func(context.Context) ([]float32, error)) ([]float32, string) {
	if r.embedder != nil && r.embedder.Available() {
		br := r.breakers.Get(r.embedder.Name(), PurposeEmbed)
		if br.Allow() {
			callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
			vec, err := call(callCtx)
			cancel()
			if err == nil && len(vec) > 0 {
				br.Record(true, "")
				return vec, r.embedder.Name()
			}
			summary := "empty embedding"
			if err != nil {
				summary = err.Error()
			}
			br.Record(false, summary)
			slog.Warn("Embedding backend failed, using pseudo-embedding",
				"provider", r.embedder.Name(), "error", summary)
		}
	}
	return PseudoEmbedding(fallbackText), FallbackProviderName
}

// Statuses exposes the AI-side breaker states for the health endpoint.
func (r *Router) Statuses() map[string]breaker.Status {
	return r.breakers.Statuses()
}

// complete walks the purpose's chain. parse both unmarshals and validates
// the structured response; a validation failure gets exactly one retry with
// a stricter instruction on the same provider before the walk moves on.
func (r *Router) complete(ctx context.Context, purpose string, req Request, parse func(content string) error) (string, bool) {
	for _, name := range r.chains[purpose] {
		p, ok := r.providers[name]
		if !ok || !p.Available() {
			continue
		}

		br := r.breakers.Get(name, purpose)
		if !br.Allow() {
			slog.Debug("Skipping AI provider, circuit open", "provider", name, "purpose", purpose)
			continue
		}

		resp, err := r.call(ctx, p, req)
		if err != nil {
			br.Record(false, err.Error())
			slog.Warn("AI provider failed", "provider", name, "purpose", purpose, "error", err)
			continue
		}

		parseErr := parse(resp.Content)
		if parseErr != nil {
			slog.Warn("Malformed structured response, retrying stricter",
				"provider", name, "purpose", purpose, "error", parseErr)

			retryReq := req
			retryReq.SystemPrompt += stricterInstruction
			resp, err = r.call(ctx, p, retryReq)
			if err != nil {
				br.Record(false, err.Error())
				continue
			}
			if parseErr = parse(resp.Content); parseErr != nil {
				br.Record(false, "invalid structured response: "+parseErr.Error())
				continue
			}
		}

		br.Record(true, "")
		return name, true
	}
	return "", false
}

func (r *Router) call(ctx context.Context, p ChatProvider, req Request) (Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return p.Generate(callCtx, req)
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object, which several backends add despite instructions.
func extractJSON(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return content
	}
	return content[start : end+1]
}
