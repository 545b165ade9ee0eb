package feed

import (
	"context"
	"strconv"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/ai"
	"github.com/DjordjeVuckovic/news-pulse/internal/cache"
	"github.com/DjordjeVuckovic/news-pulse/internal/dto"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage"
)

const storyMemberLimit = 50

// StoryService serves single-story detail and on-demand explanations, each
// behind its own cache so enrichment work is not repeated per reader.
type StoryService struct {
	store        storage.Store
	ai           *ai.Router
	detailCache  *cache.Cache[dto.StoryResponse]
	explainCache *cache.Cache[dto.ExplanationResponse]
}

func NewStoryService(store storage.Store, router *ai.Router) *StoryService {
	return &StoryService{
		store:       store,
		ai:          router,
		detailCache: cache.New[dto.StoryResponse](),
		// Explanations change slowly; keep them serveable much longer.
		explainCache: cache.New[dto.ExplanationResponse](
			cache.WithTTLs[dto.ExplanationResponse](10*time.Minute, time.Hour)),
	}
}

func (s *StoryService) Get(ctx context.Context, id int64) (dto.StoryResponse, error) {
	res, err := s.detailCache.GetOrRefresh(ctx, storyKey(id), func(ctx context.Context) (dto.StoryResponse, error) {
		cluster, err := s.store.GetCluster(ctx, id)
		if err != nil {
			return dto.StoryResponse{}, err
		}
		members, err := s.store.ArticlesByCluster(ctx, id, storyMemberLimit)
		if err != nil {
			return dto.StoryResponse{}, err
		}
		return dto.NewStoryResponse(*cluster, members), nil
	})
	if err != nil {
		return dto.StoryResponse{}, err
	}

	payload := res.Payload
	payload.Cached = res.Cached
	payload.Degraded = res.Degraded
	return payload, nil
}

func (s *StoryService) Explain(ctx context.Context, id int64) (dto.ExplanationResponse, error) {
	res, err := s.explainCache.GetOrRefresh(ctx, storyKey(id), func(ctx context.Context) (dto.ExplanationResponse, error) {
		cluster, err := s.store.GetCluster(ctx, id)
		if err != nil {
			return dto.ExplanationResponse{}, err
		}
		members, err := s.store.ArticlesByCluster(ctx, id, storyMemberLimit)
		if err != nil {
			return dto.ExplanationResponse{}, err
		}
		explanation := s.ai.Explain(ctx, *cluster, members)
		return dto.NewExplanationResponse(id, explanation), nil
	})
	if err != nil {
		return dto.ExplanationResponse{}, err
	}

	payload := res.Payload
	payload.Cached = res.Cached
	return payload, nil
}

// InvalidateStory expires the cached detail after enrichment lands.
func (s *StoryService) InvalidateStory(id int64) {
	s.detailCache.Invalidate(storyKey(id))
}

func storyKey(id int64) string {
	return "story:" + strconv.FormatInt(id, 10)
}
