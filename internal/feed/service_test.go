package feed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/news-pulse/internal/stream"
)

func seedClusters(t *testing.T, store *in_mem.Store, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		cluster := &domain.Cluster{
			CanonicalTitle: "Story",
			TopCountry:     "US",
			TopCategory:    "technology",
			Score:          float64(n - i),
			LastUpdated:    time.Now().UTC(),
		}
		require.NoError(t, store.CreateCluster(ctx, cluster))
	}
}

func TestService_GetCachesSecondRead(t *testing.T) {
	store := in_mem.NewStore()
	seedClusters(t, store, 3)
	svc := NewService(store, stream.NewBus())

	q := domain.FeedQuery{Country: "US", Category: "technology", Mode: domain.ModeTrending}

	first, err := svc.Get(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Len(t, first.Stories, 3)
	assert.Equal(t, q.Channel(), first.StreamChannel)

	second, err := svc.Get(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Len(t, second.Stories, 3)
}

func TestService_GeneralAggregatesAllCategories(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()
	for _, category := range []string{"technology", "business"} {
		require.NoError(t, store.CreateCluster(ctx, &domain.Cluster{
			CanonicalTitle: "Story",
			TopCountry:     "US",
			TopCategory:    category,
			Score:          1,
			LastUpdated:    time.Now().UTC(),
		}))
	}
	svc := NewService(store, stream.NewBus())

	resp, err := svc.Get(ctx, domain.FeedQuery{Country: "US", Category: "general", Mode: domain.ModeTrending})
	require.NoError(t, err)
	assert.Len(t, resp.Stories, 2)
}

func TestService_PageSizeCapsStories(t *testing.T) {
	store := in_mem.NewStore()
	seedClusters(t, store, 5)
	svc := NewService(store, stream.NewBus(), WithPageSize(2))

	resp, err := svc.Get(context.Background(), domain.FeedQuery{Country: "US", Category: "technology", Mode: domain.ModeTrending})
	require.NoError(t, err)
	assert.Len(t, resp.Stories, 2)
}

func TestService_PrimePublishesAndCaches(t *testing.T) {
	store := in_mem.NewStore()
	seedClusters(t, store, 1)
	bus := stream.NewBus()
	svc := NewService(store, bus)

	q := domain.FeedQuery{Country: "US", Category: "technology", Mode: domain.ModeTrending}
	require.NoError(t, svc.Prime(context.Background(), q))

	assert.Equal(t, uint64(1), bus.Head(q.Channel()), "prime announces the update")

	resp, err := svc.Get(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, resp.Cached, "primed slice serves from cache")
	assert.Equal(t, uint64(1), resp.StreamPosition)
}

func TestFeedResponseTruncate(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()
	for _, title := range []string{"One", "Two", "Three"} {
		_, _, err := store.UpsertArticle(ctx, domain.Article{
			Title: title, Source: "Test Wire", Country: "US", Category: "technology",
		})
		require.NoError(t, err)
	}
	svc := NewService(store, stream.NewBus())

	resp, err := svc.Build(ctx, domain.FeedQuery{Country: "US", Category: "general", Mode: domain.ModeLatest})
	require.NoError(t, err)
	require.Len(t, resp.Articles, 3)

	resp.Truncate(2)
	assert.Len(t, resp.Articles, 2)

	resp.Truncate(0)
	assert.Len(t, resp.Articles, 2, "zero limit keeps the page as-is")
}
