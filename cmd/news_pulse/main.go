// Package main News Pulse API
// @title News Pulse API
// @version 1.0
// @description Aggregated breaking-news feeds with story clustering, trending ranking and live updates
// @termsOfService http://swagger.io/terms/
// @contact.name API Support
// @contact.email support@newspulse.dev
// @license.name Apache 2.0
// @license.url https://opensource.org/licenses/Apache-2.0
// @BasePath /
package main

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/DjordjeVuckovic/news-pulse/internal/ai"
	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
	"github.com/DjordjeVuckovic/news-pulse/internal/clustering"
	"github.com/DjordjeVuckovic/news-pulse/internal/embedding"
	"github.com/DjordjeVuckovic/news-pulse/internal/feed"
	"github.com/DjordjeVuckovic/news-pulse/internal/ingest"
	"github.com/DjordjeVuckovic/news-pulse/internal/provider"
	"github.com/DjordjeVuckovic/news-pulse/internal/router"
	"github.com/DjordjeVuckovic/news-pulse/internal/server"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-pulse/internal/stream"
	"github.com/DjordjeVuckovic/news-pulse/internal/trending"
	pkgserver "github.com/DjordjeVuckovic/news-pulse/pkg/server"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)

	appSettings := NewAppConfig()
	cfg, err := appSettings.Load()
	if err != nil {
		slog.Error("Failed to load app configuration", "error", err)
		os.Exit(1)
	}

	sCfg, err := server.LoadConfig("cmd/news_pulse/.env")
	if err != nil {
		slog.Error("Failed to load server config", "error", err)
		os.Exit(1)
	}

	s := server.New(sCfg, pkgserver.NewOkHealthChecker()).
		SetupMiddlewares().
		SetupErrorHandler().
		SetupHealthChecks("/health").
		SetupOpenApi("/swagger/*")

	store, healthChecker, err := factory.NewStore(s.Context(), &cfg.StorageConfig)
	if err != nil {
		slog.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}

	s.Echo.GET("/", func(c echo.Context) error {
		return c.String(200, "News Pulse API is running")
	})

	providers := []provider.Provider{
		provider.NewNewsAPIProvider(os.Getenv("NEWSAPI_KEY")),
		provider.NewGuardianProvider(os.Getenv("GUARDIAN_KEY")),
		provider.NewRSSProvider(),
	}

	var providerOpts []provider.RouterOption
	if chain := cfg.Pipeline.Chains.Headlines; len(chain) > 0 {
		providerOpts = append(providerOpts, provider.WithChain(provider.PurposeHeadlines, chain))
	}
	if chain := cfg.Pipeline.Chains.Trending; len(chain) > 0 {
		providerOpts = append(providerOpts, provider.WithChain(provider.PurposeTrending, chain))
	}
	providerRouter := provider.NewRouter(providers, breaker.NewRegistry(), providerOpts...)

	aiOpts := aiRouterOptions(cfg)
	aiRouter := ai.NewRouter(ai.ChatProviders(), aiOpts...)

	engine := clustering.NewEngine(store)
	scorer := trending.NewScorer(cfg.ScorerOptions()...)
	bus := stream.NewBus()

	feeds := feed.NewService(store, bus)
	stories := feed.NewStoryService(store, aiRouter)

	ingestI, rescoreI, enrichI := cfg.Intervals()
	coordinator := ingest.NewCoordinator(
		store,
		providerRouter,
		engine,
		scorer,
		aiRouter,
		feeds,
		stories,
		bus,
		ingest.WithSlices(cfg.FeedSlices()),
		ingest.WithIntervals(ingestI, rescoreI, enrichI),
	)

	router.NewFeedRouter(s.Echo, feeds, stories).Bind()
	router.NewStreamRouter(s.Echo, bus).Bind()
	router.NewMetaRouter(s.Echo).Bind()
	router.NewHealthRouter(s.Echo, healthChecker, providerRouter, aiRouter).Bind()

	go func() {
		if err := coordinator.Run(s.Context()); err != nil {
			slog.Error("Pipeline stopped", "error", err)
		}
	}()

	go func() {
		<-s.ShutdownSignal()
		slog.Info("Shutdown started, cleaning up resources...")
	}()

	err = s.Start()
	if err != nil {
		s.Echo.Logger.Error("Failed to start server: ", err)
		os.Exit(1)
	}
}

func aiRouterOptions(cfg *NewsPulseConfig) []ai.RouterOption {
	var opts []ai.RouterOption

	if chain := cfg.Pipeline.Chains.Summarize; len(chain) > 0 {
		opts = append(opts, ai.WithChain(ai.PurposeSummarize, chain...))
	}
	if chain := cfg.Pipeline.Chains.Explain; len(chain) > 0 {
		opts = append(opts, ai.WithChain(ai.PurposeExplain, chain...))
	}

	if cfg.EmbeddingConfig.Enabled {
		client, err := embedding.NewOllamaClient(cfg.EmbeddingConfig.BaseURL)
		if err != nil {
			slog.Error("Failed to create embedding client", "error", err)
			os.Exit(1)
		}
		embedderOpts := []embedding.EmbedderOption{embedding.WithModel(cfg.EmbeddingConfig.Model)}
		if cfg.EmbeddingConfig.MaxLength != nil {
			embedderOpts = append(embedderOpts, embedding.WithMaxLength(*cfg.EmbeddingConfig.MaxLength))
		}
		opts = append(opts, ai.WithEmbedder(embedding.NewEmbedder(client, embedderOpts...)))
		slog.Info("Semantic clustering enabled", "model", cfg.EmbeddingConfig.Model)
	} else {
		slog.Info("Semantic clustering disabled, using lexical similarity")
	}

	return opts
}
