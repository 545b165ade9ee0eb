package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/apperr"
	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

const defaultCallTimeout = 12 * time.Second

// Router walks a configured priority chain of providers per purpose,
// consulting each provider's circuit breaker before calling it.
// Skipped providers (unconfigured or open-circuited) carry no penalty; failed
// calls are recorded on the breaker and the router falls through to the next
// chain link.
type Router struct {
	providers   map[string]Provider
	chains      map[Purpose][]string
	breakers    *breaker.Registry
	callTimeout time.Duration
}

type RouterOption func(*Router)

func WithCallTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.callTimeout = d }
}

// WithChain overrides the provider order for one purpose.
func WithChain(purpose Purpose, names []string) RouterOption {
	return func(r *Router) { r.chains[purpose] = names }
}

func NewRouter(providers []Provider, breakers *breaker.Registry, opts ...RouterOption) *Router {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	r := &Router{
		providers: byName,
		chains: map[Purpose][]string{
			// NewsAPI has the best per-country headline coverage; the wire
			// feeds surface global movement first, which suits trending.
			PurposeHeadlines: {"newsapi", "guardian", "rss"},
			PurposeTrending:  {"rss", "guardian", "newsapi"},
		},
		breakers:    breakers,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch walks the purpose's chain and returns the first provider's non-empty
// normalized result set. If every provider was skipped or failed it returns a
// ChainExhaustedError, never an empty success.
func (r *Router) Fetch(ctx context.Context, purpose Purpose, q Query) ([]domain.Article, string, error) {
	chain, ok := r.chains[purpose]
	if !ok {
		return nil, "", apperr.NewValidation("unknown provider purpose: " + string(purpose))
	}

	var attempts []error
	for _, name := range chain {
		p, ok := r.providers[name]
		if !ok || !p.Configured() {
			continue
		}

		b := r.breakers.Get(name, string(purpose))
		if !b.Allow() {
			slog.Warn("Circuit open, skipping provider", "provider", name, "purpose", purpose)
			continue
		}

		articles, err := r.call(ctx, p, q)
		if err != nil {
			b.Record(false, err.Error())
			attempts = append(attempts, apperr.NewProvider(name, string(purpose), err))
			slog.Error("Provider failed in chain", "provider", name, "purpose", purpose, "error", err)
			continue
		}

		b.Record(true, "")
		if len(articles) == 0 {
			// An empty 200 means the provider has nothing for this slice,
			// not that it is broken. Keep walking the chain.
			continue
		}
		return articles, name, nil
	}

	return nil, "", apperr.NewChainExhausted(string(purpose), attempts)
}

// FetchAll aggregates across every available provider for maximum coverage.
// Used by the ingest worker, where breadth matters more than latency.
func (r *Router) FetchAll(ctx context.Context, q Query) ([]domain.Article, []string) {
	var (
		all  []domain.Article
		used []string
	)

	for name, p := range r.providers {
		if !p.Configured() {
			continue
		}

		b := r.breakers.Get(name, string(PurposeHeadlines))
		if !b.Allow() {
			slog.Warn("Circuit open, skipping provider", "provider", name)
			continue
		}

		articles, err := r.call(ctx, p, q)
		if err != nil {
			b.Record(false, err.Error())
			slog.Error("Provider failed during aggregate fetch", "provider", name, "error", err)
			continue
		}

		b.Record(true, "")
		all = append(all, articles...)
		used = append(used, name)
	}

	return all, used
}

func (r *Router) call(ctx context.Context, p Provider, q Query) ([]domain.Article, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return p.FetchHeadlines(callCtx, q)
}

// Statuses exposes every breaker's state for the health endpoint.
func (r *Router) Statuses() map[string]breaker.Status {
	return r.breakers.Statuses()
}
