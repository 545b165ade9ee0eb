// Package clustering assigns freshly ingested articles to story clusters.
package clustering

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage"
)

const (
	// DefaultWindow bounds the candidate search to recent clusters.
	DefaultWindow = 24 * time.Hour
	// DefaultCandidateLimit caps how many clusters one assignment scans.
	DefaultCandidateLimit = 100
)

// Engine matches each unclustered article against recent clusters in the same
// category. Embedding similarity is preferred when the article carries a
// vector; lexical title similarity is the always-available fallback, so an
// embedding-provider outage never defers clustering.
type Engine struct {
	store    storage.ClusterStorer
	lexical  Similarity
	semantic Similarity
	window   time.Duration
	limit    int
	now      func() time.Time

	// Assignment is serialized per category: two concurrent assignments of
	// the same story must not both miss the candidate scan and create
	// duplicate clusters. Different categories proceed in parallel.
	mu       sync.Mutex
	catLocks map[string]*sync.Mutex
}

type EngineOption func(*Engine)

func WithWindow(d time.Duration) EngineOption {
	return func(e *Engine) { e.window = d }
}

func WithCandidateLimit(n int) EngineOption {
	return func(e *Engine) { e.limit = n }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithSimilarities overrides both strategies, used by tests.
func WithSimilarities(lexical, semantic Similarity) EngineOption {
	return func(e *Engine) {
		e.lexical = lexical
		e.semantic = semantic
	}
}

func NewEngine(store storage.ClusterStorer, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    store,
		lexical:  NewLexicalSimilarity(),
		semantic: NewEmbeddingSimilarity(),
		window:   DefaultWindow,
		limit:    DefaultCandidateLimit,
		now:      time.Now,
		catLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Assign attaches the article to the best-matching cluster or creates a new
// one with the article as its canonical member. Returns the cluster id.
// First match wins: articles are never reassigned later.
func (e *Engine) Assign(ctx context.Context, article domain.Article) (int64, error) {
	if article.ClusterID != nil {
		return *article.ClusterID, nil
	}

	lock := e.categoryLock(article.Category)
	lock.Lock()
	defer lock.Unlock()

	cutoff := e.now().Add(-e.window)
	candidates, err := e.store.ClustersByCategorySince(ctx, article.Category, cutoff, e.limit)
	if err != nil {
		return 0, fmt.Errorf("load candidate clusters: %w", err)
	}

	match, score, strategy := e.bestMatch(article, candidates)
	if match == nil {
		cluster := &domain.Cluster{
			CanonicalTitle: article.Title,
			CanonicalURL:   article.URL,
			TopCountry:     article.Country,
			TopCategory:    article.Category,
			LastUpdated:    e.now().UTC(),
		}
		if len(article.Embedding) > 0 {
			cluster.Centroid = IncrementalCentroid(nil, article.Embedding, 0)
		}
		if err := e.store.CreateCluster(ctx, cluster); err != nil {
			return 0, fmt.Errorf("create cluster: %w", err)
		}
		if err := e.store.AppendMember(ctx, cluster.ID, article); err != nil {
			return 0, fmt.Errorf("append canonical member: %w", err)
		}
		slog.Debug("Created cluster", "cluster", cluster.ID, "title", article.Title)
		return cluster.ID, nil
	}

	if err := e.store.AppendMember(ctx, match.ID, article); err != nil {
		return 0, fmt.Errorf("append member: %w", err)
	}
	if len(article.Embedding) > 0 {
		centroid := IncrementalCentroid(match.Centroid, article.Embedding, match.ArticleCount)
		if err := e.store.UpdateClusterCentroid(ctx, match.ID, centroid); err != nil {
			return 0, fmt.Errorf("update centroid: %w", err)
		}
	}

	slog.Debug("Matched cluster", "cluster", match.ID, "strategy", strategy, "similarity", score)
	return match.ID, nil
}

func (e *Engine) categoryLock(category string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock, ok := e.catLocks[category]
	if !ok {
		lock = &sync.Mutex{}
		e.catLocks[category] = lock
	}
	return lock
}

// bestMatch scans candidates with the semantic strategy first, then lexical.
// Ties above the threshold resolve to the highest score, then lowest id.
func (e *Engine) bestMatch(article domain.Article, candidates []domain.Cluster) (*domain.Cluster, float64, string) {
	for _, strategy := range []Similarity{e.semantic, e.lexical} {
		if strategy == nil {
			continue
		}

		var (
			best      *domain.Cluster
			bestScore float64
			tied      bool
		)
		for i := range candidates {
			c := &candidates[i]
			score, ok := strategy.Score(article, *c)
			if !ok || score < strategy.Threshold() {
				continue
			}
			switch {
			case best == nil || score > bestScore:
				best, bestScore, tied = c, score, false
			case score == bestScore:
				tied = true
				if c.ID < best.ID {
					best = c
				}
			}
		}

		if best != nil {
			if tied {
				slog.Info("Ambiguous cluster match, picked lowest id",
					"article", article.Hash, "cluster", best.ID, "similarity", bestScore)
			}
			return best, bestScore, strategy.Name()
		}
	}
	return nil, 0, ""
}
