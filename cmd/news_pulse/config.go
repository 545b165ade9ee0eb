package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/embedding"
	"github.com/DjordjeVuckovic/news-pulse/internal/ingest"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage/factory"
	"github.com/DjordjeVuckovic/news-pulse/internal/trending"
	"github.com/DjordjeVuckovic/news-pulse/pkg/config/env"
)

type AppConfig struct {
	ENV string
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		ENV: os.Getenv("ENV"),
	}
}

type NewsPulseConfig struct {
	StorageConfig   factory.StorageConfig
	EmbeddingConfig embedding.Config
	Pipeline        PipelineConfig
}

// PipelineConfig is the YAML-tunable pipeline behavior: ranking weights,
// worker cadences, the warm feed slices and the provider chain orders.
type PipelineConfig struct {
	Trending struct {
		Weights        trending.Weights `yaml:"weights"`
		Horizon        string           `yaml:"horizon"`
		VelocityWindow string           `yaml:"velocityWindow"`
	} `yaml:"trending"`
	Intervals struct {
		Ingest  string `yaml:"ingest"`
		Rescore string `yaml:"rescore"`
		Enrich  string `yaml:"enrich"`
	} `yaml:"intervals"`
	Slices []struct {
		Country  string `yaml:"country"`
		Category string `yaml:"category"`
		Mode     string `yaml:"mode"`
	} `yaml:"slices"`
	Chains struct {
		Headlines []string `yaml:"headlines"`
		Trending  []string `yaml:"trending"`
		Summarize []string `yaml:"summarize"`
		Explain   []string `yaml:"explain"`
	} `yaml:"chains"`
}

func (as *AppConfig) Load() (*NewsPulseConfig, error) {
	if err := env.LoadDotEnv("cmd/news_pulse/.env"); err != nil {
		slog.Info("Failed to load .env, continuing with existing environment variables", "error", err)
	}

	storageCfg, err := factory.LoadEnv()
	if err != nil {
		slog.Error("Failed to load storage configuration from environment", "error", err)
		return nil, err
	}

	cfg := &NewsPulseConfig{
		StorageConfig:   *storageCfg,
		EmbeddingConfig: embedding.LoadConfigFromEnv(),
	}
	cfg.Pipeline.Trending.Weights = trending.DefaultWeights()

	if path := env.GetOrDefault("PIPELINE_CONFIG", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read pipeline config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg.Pipeline); err != nil {
			return nil, fmt.Errorf("failed to parse pipeline config: %w", err)
		}
		slog.Info("Loaded pipeline config", "path", path)
	}

	return cfg, nil
}

func (c *NewsPulseConfig) ScorerOptions() []trending.ScorerOption {
	opts := []trending.ScorerOption{trending.WithWeights(c.Pipeline.Trending.Weights)}
	if d, ok := parseDuration(c.Pipeline.Trending.Horizon); ok {
		opts = append(opts, trending.WithHorizon(d))
	}
	if d, ok := parseDuration(c.Pipeline.Trending.VelocityWindow); ok {
		opts = append(opts, trending.WithVelocityWindow(d))
	}
	return opts
}

func (c *NewsPulseConfig) Intervals() (ingestI, rescore, enrich time.Duration) {
	ingestI, rescore, enrich = ingest.DefaultIngestInterval, ingest.DefaultRescoreInterval, ingest.DefaultEnrichInterval
	if d, ok := parseDuration(c.Pipeline.Intervals.Ingest); ok {
		ingestI = d
	}
	if d, ok := parseDuration(c.Pipeline.Intervals.Rescore); ok {
		rescore = d
	}
	if d, ok := parseDuration(c.Pipeline.Intervals.Enrich); ok {
		enrich = d
	}
	return ingestI, rescore, enrich
}

func (c *NewsPulseConfig) FeedSlices() []domain.FeedQuery {
	if len(c.Pipeline.Slices) == 0 {
		return ingest.DefaultSlices()
	}
	slices := make([]domain.FeedQuery, 0, len(c.Pipeline.Slices))
	for _, s := range c.Pipeline.Slices {
		slices = append(slices, domain.FeedQuery{
			Country:  s.Country,
			Category: s.Category,
			Mode:     domain.FeedMode(s.Mode),
		})
	}
	return slices
}

func parseDuration(raw string) (time.Duration, bool) {
	if raw == "" {
		return 0, false
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		slog.Warn("Ignoring invalid duration in pipeline config", "value", raw)
		return 0, false
	}
	return d, true
}
