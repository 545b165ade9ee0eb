// Package ingest runs the background pipeline: pull articles from the
// provider chains, cluster them, rescore trending, refresh the feed caches
// and announce updates on the stream bus. Enrichment runs on its own slower
// cadence so a stuck AI backend never delays ingestion.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DjordjeVuckovic/news-pulse/internal/ai"
	"github.com/DjordjeVuckovic/news-pulse/internal/clustering"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/dto"
	"github.com/DjordjeVuckovic/news-pulse/internal/feed"
	"github.com/DjordjeVuckovic/news-pulse/internal/provider"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage"
	"github.com/DjordjeVuckovic/news-pulse/internal/stream"
	"github.com/DjordjeVuckovic/news-pulse/internal/trending"
)

const (
	// DefaultIngestInterval paces full ingestion cycles.
	DefaultIngestInterval = 5 * time.Minute
	// DefaultRescoreInterval paces recency-decay rescoring between cycles.
	DefaultRescoreInterval = 2 * time.Minute
	// DefaultEnrichInterval paces the AI enrichment worker.
	DefaultEnrichInterval = 3 * time.Minute

	// sliceConcurrency bounds how many feed slices ingest in parallel.
	sliceConcurrency = 4
	// enrichBatch bounds clusters enriched per worker pass.
	enrichBatch = 5
	// rescoreWindow bounds which clusters the decay pass touches.
	rescoreWindow = 48 * time.Hour
	rescoreLimit  = 500
)

// Slices are the feed query shapes the pipeline keeps warm. Reads outside
// this set still work, they just load on demand.
func DefaultSlices() []domain.FeedQuery {
	return []domain.FeedQuery{
		{Country: "US", Category: "general", Mode: domain.ModeTrending},
		{Country: "US", Category: "general", Mode: domain.ModeLatest},
		{Country: "US", Category: "technology", Mode: domain.ModeTrending},
		{Country: "US", Category: "business", Mode: domain.ModeTrending},
		{Country: "GB", Category: "general", Mode: domain.ModeTrending},
	}
}

type Coordinator struct {
	store     storage.Store
	providers *provider.Router
	engine    *clustering.Engine
	scorer    *trending.Scorer
	ai        *ai.Router
	feeds     *feed.Service
	stories   *feed.StoryService
	bus       *stream.Bus

	slices          []domain.FeedQuery
	ingestInterval  time.Duration
	rescoreInterval time.Duration
	enrichInterval  time.Duration
	now             func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithSlices(slices []domain.FeedQuery) CoordinatorOption {
	return func(c *Coordinator) { c.slices = slices }
}

func WithIntervals(ingest, rescore, enrich time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.ingestInterval = ingest
		c.rescoreInterval = rescore
		c.enrichInterval = enrich
	}
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(
	store storage.Store,
	providers *provider.Router,
	engine *clustering.Engine,
	scorer *trending.Scorer,
	aiRouter *ai.Router,
	feeds *feed.Service,
	stories *feed.StoryService,
	bus *stream.Bus,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		store:           store,
		providers:       providers,
		engine:          engine,
		scorer:          scorer,
		ai:              aiRouter,
		feeds:           feeds,
		stories:         stories,
		bus:             bus,
		slices:          DefaultSlices(),
		ingestInterval:  DefaultIngestInterval,
		rescoreInterval: DefaultRescoreInterval,
		enrichInterval:  DefaultEnrichInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts the three worker loops and blocks until the context ends. The
// first ingestion cycle runs immediately so a cold start has data before the
// first tick.
func (c *Coordinator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.RunCycle(ctx)
		return c.loop(ctx, c.ingestInterval, c.RunCycle)
	})
	g.Go(func() error {
		return c.loop(ctx, c.rescoreInterval, c.rescorePass)
	})
	g.Go(func() error {
		return c.loop(ctx, c.enrichInterval, c.enrichPass)
	})
	g.Go(func() error {
		c.bus.Run(ctx)
		return nil
	})

	return g.Wait()
}

func (c *Coordinator) loop(ctx context.Context, interval time.Duration, pass func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pass(ctx)
		}
	}
}

// RunCycle is one full ingestion pass over every configured slice.
// Clustering always completes before scoring, and caches are re-primed only
// after scores are written, so a freshly primed feed never shows a cluster
// with a stale score.
func (c *Coordinator) RunCycle(ctx context.Context) {
	started := c.now()
	slog.Info("Ingestion cycle started", "slices", len(c.slices))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sliceConcurrency)

	for _, q := range c.slices {
		if q.Mode != domain.ModeTrending {
			continue // latest slices share the trending slices' articles
		}
		g.Go(func() error {
			c.ingestSlice(gctx, q)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("Ingestion cycle aborted", "error", err)
		return
	}

	c.catchUp(ctx)

	for _, q := range c.slices {
		c.feeds.Invalidate(q)
		if err := c.feeds.Prime(ctx, q); err != nil {
			slog.Warn("Failed to prime feed", "channel", q.Channel(), "error", err)
		}
	}

	slog.Info("Ingestion cycle finished", "took", c.now().Sub(started))
}

// ingestSlice pulls one slice from the provider chain and runs every new
// article through embedding, clustering and scoring.
func (c *Coordinator) ingestSlice(ctx context.Context, q domain.FeedQuery) {
	pq := provider.Query{
		Country:  q.Country,
		Category: q.Category,
	}

	var (
		articles []domain.Article
		used     []string
	)
	if q.Category == "general" || q.Category == "" {
		// The general slice aggregates every provider for coverage; the
		// category slices walk the failover chain.
		articles, used = c.providers.FetchAll(ctx, pq)
		if len(articles) == 0 {
			slog.Warn("Slice fetch returned nothing", "channel", q.Channel())
			return
		}
	} else {
		fetched, providerName, err := c.providers.Fetch(ctx, provider.PurposeHeadlines, pq)
		if err != nil {
			slog.Warn("Slice fetch failed", "channel", q.Channel(), "error", err)
			return
		}
		articles, used = fetched, []string{providerName}
	}
	slog.Debug("Slice fetched", "channel", q.Channel(), "providers", used, "articles", len(articles))

	touched := make(map[int64]struct{})
	for _, article := range articles {
		stored, created, err := c.store.UpsertArticle(ctx, article)
		if err != nil {
			slog.Warn("Failed to upsert article", "title", article.Title, "error", err)
			continue
		}
		if !created {
			continue // re-ingesting a known hash only refreshes FetchedAt
		}

		vec, embedProvider := c.ai.EmbedArticle(ctx, stored)
		if embedProvider != ai.FallbackProviderName {
			if err := c.store.UpdateArticleEmbedding(ctx, stored.ID, vec); err != nil {
				slog.Warn("Failed to store embedding", "article", stored.ID, "error", err)
			}
		}
		stored.Embedding = vec

		clusterID, err := c.engine.Assign(ctx, stored)
		if err != nil {
			slog.Warn("Failed to cluster article", "article", stored.ID, "error", err)
			continue
		}
		touched[clusterID] = struct{}{}
	}

	for clusterID := range touched {
		if err := c.rescoreCluster(ctx, clusterID); err != nil {
			slog.Warn("Failed to rescore cluster", "cluster", clusterID, "error", err)
			continue
		}
		c.stories.InvalidateStory(clusterID)
		c.bus.Publish(q.Channel(), stream.EventTypeStoryUpdate, map[string]int64{"storyId": clusterID})
	}
}

// catchUp clusters articles a previous cycle left behind, e.g. after a
// crash between upsert and assignment.
func (c *Coordinator) catchUp(ctx context.Context) {
	articles, err := c.store.UnclusteredArticles(ctx, c.now().Add(-clustering.DefaultWindow), 200)
	if err != nil {
		slog.Warn("Catch-up pass failed to list articles", "error", err)
		return
	}

	for _, article := range articles {
		clusterID, err := c.engine.Assign(ctx, article)
		if err != nil {
			slog.Warn("Failed to cluster article", "article", article.ID, "error", err)
			continue
		}
		if err := c.rescoreCluster(ctx, clusterID); err != nil {
			slog.Warn("Failed to rescore cluster", "cluster", clusterID, "error", err)
		}
	}
	if len(articles) > 0 {
		slog.Info("Caught up unclustered articles", "count", len(articles))
	}
}

func (c *Coordinator) rescoreCluster(ctx context.Context, id int64) error {
	cluster, err := c.store.GetCluster(ctx, id)
	if err != nil {
		return err
	}
	members, err := c.store.ArticlesByCluster(ctx, id, 0)
	if err != nil {
		return err
	}

	score := c.scorer.Score(len(cluster.Sources), memberTimes(members), c.now().UTC())
	return c.store.UpdateClusterScore(ctx, id, score)
}

// rescorePass reapplies recency decay to recently active clusters so
// rankings drift down between ingestion cycles even with no new members.
func (c *Coordinator) rescorePass(ctx context.Context) {
	since := c.now().Add(-rescoreWindow)
	clusters, err := c.store.ActiveClusters(ctx, since, rescoreLimit)
	if err != nil {
		slog.Warn("Rescore pass failed to list clusters", "error", err)
		return
	}

	for _, cluster := range clusters {
		if err := c.rescoreCluster(ctx, cluster.ID); err != nil {
			slog.Warn("Failed to rescore cluster", "cluster", cluster.ID, "error", err)
		}
	}

	for _, q := range c.slices {
		if q.Mode != domain.ModeTrending {
			continue
		}
		c.feeds.Invalidate(q)
	}
	slog.Debug("Rescore pass finished", "clusters", len(clusters))
}

// enrichPass summarizes a batch of clusters that have no AI fields yet.
func (c *Coordinator) enrichPass(ctx context.Context) {
	clusters, err := c.store.ClustersMissingEnrichment(ctx, enrichBatch)
	if err != nil {
		slog.Warn("Enrichment pass failed to list clusters", "error", err)
		return
	}

	for _, cluster := range clusters {
		members, err := c.store.ArticlesByCluster(ctx, cluster.ID, 0)
		if err != nil {
			slog.Warn("Failed to load cluster members", "cluster", cluster.ID, "error", err)
			continue
		}

		enrichment, providerName := c.ai.Summarize(ctx, cluster, members)
		if err := c.store.UpdateClusterEnrichment(ctx, cluster.ID, enrichment); err != nil {
			slog.Warn("Failed to store enrichment", "cluster", cluster.ID, "error", err)
			continue
		}
		cluster.AISummary = enrichment.Summary
		cluster.WhyTrending = enrichment.WhyTrending
		cluster.AIGenerated = enrichment.AIGenerated

		c.stories.InvalidateStory(cluster.ID)
		c.bus.Publish(
			domain.FeedQuery{Country: cluster.TopCountry, Category: cluster.TopCategory, Mode: domain.ModeTrending}.Channel(),
			stream.EventTypeStoryUpdate,
			dto.FromCluster(cluster),
		)
		slog.Debug("Cluster enriched", "cluster", cluster.ID, "provider", providerName)
	}
}

func memberTimes(members []domain.Article) []time.Time {
	times := make([]time.Time, 0, len(members))
	for _, m := range members {
		if m.PublishedAt != nil {
			times = append(times, *m.PublishedAt)
			continue
		}
		times = append(times, m.FetchedAt)
	}
	return times
}
