// Package feed builds the cached read models the API serves. Both the HTTP
// handlers and the ingestion cycle go through it, so a freshly primed feed
// and an on-demand load produce the same shape.
package feed

import (
	"context"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/cache"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/dto"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage"
	"github.com/DjordjeVuckovic/news-pulse/internal/stream"
)

// DefaultPageSize caps feed responses.
const DefaultPageSize = 20

type Service struct {
	store storage.FeedReader
	cache *cache.Cache[dto.FeedResponse]
	bus   *stream.Bus
	limit int
	now   func() time.Time
}

type ServiceOption func(*Service)

func WithCache(c *cache.Cache[dto.FeedResponse]) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func WithPageSize(n int) ServiceOption {
	return func(s *Service) { s.limit = n }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.FeedReader, bus *stream.Bus, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		cache: cache.New[dto.FeedResponse](),
		bus:   bus,
		limit: DefaultPageSize,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get serves one feed slice through the cache. Cached and Degraded flags on
// the response reflect how the payload was obtained.
func (s *Service) Get(ctx context.Context, q domain.FeedQuery) (dto.FeedResponse, error) {
	res, err := s.cache.GetOrRefresh(ctx, q.Fingerprint(), func(ctx context.Context) (dto.FeedResponse, error) {
		return s.Build(ctx, q)
	})
	if err != nil {
		return dto.FeedResponse{}, err
	}

	payload := res.Payload
	payload.Cached = res.Cached
	payload.Degraded = res.Degraded
	payload.StreamPosition = s.bus.Head(q.Channel())
	return payload, nil
}

// Build reads the slice straight from storage, bypassing the cache.
func (s *Service) Build(ctx context.Context, q domain.FeedQuery) (dto.FeedResponse, error) {
	resp := dto.FeedResponse{
		Mode:          string(q.Mode),
		Country:       q.Country,
		Category:      q.Category,
		GeneratedAt:   s.now().UTC(),
		StreamChannel: q.Channel(),
	}

	category := q.Category
	if category == "general" {
		// The general slice aggregates every category.
		category = ""
	}

	switch q.Mode {
	case domain.ModeLatest:
		articles, err := s.store.LatestArticles(ctx, q.Country, category, s.limit)
		if err != nil {
			return dto.FeedResponse{}, err
		}
		resp.Articles = make([]dto.ArticleItem, 0, len(articles))
		for _, a := range articles {
			resp.Articles = append(resp.Articles, dto.FromArticle(a))
		}
	default:
		clusters, err := s.store.TopClustersByScore(ctx, q.Country, category, s.limit)
		if err != nil {
			return dto.FeedResponse{}, err
		}
		resp.Stories = make([]dto.StoryItem, 0, len(clusters))
		for _, c := range clusters {
			resp.Stories = append(resp.Stories, dto.FromCluster(c))
		}
	}
	return resp, nil
}

// Prime rebuilds the slice and installs it fresh, then announces the update
// on the slice's stream channel.
func (s *Service) Prime(ctx context.Context, q domain.FeedQuery) error {
	payload, err := s.Build(ctx, q)
	if err != nil {
		return err
	}
	s.cache.Prime(q.Fingerprint(), payload)
	s.bus.Publish(q.Channel(), stream.EventTypeFeedUpdate, payload)
	return nil
}

// Invalidate drops the slice's freshness so the next read refreshes.
func (s *Service) Invalidate(q domain.FeedQuery) {
	s.cache.Invalidate(q.Fingerprint())
}
