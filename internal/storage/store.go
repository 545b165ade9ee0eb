// Package storage defines the persistence capabilities the pipeline needs,
// mirrored by a Postgres and an in-memory backend behind a factory.
package storage

import (
	"context"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

// ArticleStorer owns the article rows. Upsert is keyed by identity hash:
// re-ingesting a known hash refreshes FetchedAt and never duplicates.
type ArticleStorer interface {
	// UpsertArticle stores the article, returning the stored row and whether
	// it was newly created.
	UpsertArticle(ctx context.Context, article domain.Article) (domain.Article, bool, error)
	GetArticle(ctx context.Context, id int64) (*domain.Article, error)
	// UnclusteredArticles lists articles without a cluster fetched since the cutoff.
	UnclusteredArticles(ctx context.Context, since time.Time, limit int) ([]domain.Article, error)
	ArticlesByCluster(ctx context.Context, clusterID int64, limit int) ([]domain.Article, error)
	UpdateArticleEmbedding(ctx context.Context, id int64, embedding []float32) error
}

// ClusterStorer owns the story clusters. AppendMember must be atomic per
// cluster: concurrent appends to the same cluster serialize, different
// clusters proceed in parallel.
type ClusterStorer interface {
	CreateCluster(ctx context.Context, cluster *domain.Cluster) error
	GetCluster(ctx context.Context, id int64) (*domain.Cluster, error)
	// AppendMember attaches the article to the cluster and refreshes the
	// cluster's member count, source list and last-updated timestamp.
	AppendMember(ctx context.Context, clusterID int64, article domain.Article) error
	// ClustersByCategorySince lists candidate clusters for the clustering engine.
	ClustersByCategorySince(ctx context.Context, category string, since time.Time, limit int) ([]domain.Cluster, error)
	// ActiveClusters lists clusters updated since the cutoff, for rescoring.
	ActiveClusters(ctx context.Context, since time.Time, limit int) ([]domain.Cluster, error)
	// ClustersMissingEnrichment lists clusters without AI fields, newest first.
	ClustersMissingEnrichment(ctx context.Context, limit int) ([]domain.Cluster, error)
	UpdateClusterScore(ctx context.Context, id int64, score float64) error
	UpdateClusterEnrichment(ctx context.Context, id int64, enrichment domain.Enrichment) error
	UpdateClusterCentroid(ctx context.Context, id int64, centroid []float32) error
}

// FeedReader serves the read paths behind the cache layer.
type FeedReader interface {
	// TopClustersByScore returns the ranked trending clusters for a slice.
	// Country may be empty for a global read.
	TopClustersByScore(ctx context.Context, country, category string, limit int) ([]domain.Cluster, error)
	// LatestArticles returns the newest articles for a slice by publish time.
	LatestArticles(ctx context.Context, country, category string, limit int) ([]domain.Article, error)
}

// Store is the full persistence surface, what the workers are wired with.
type Store interface {
	ArticleStorer
	ClusterStorer
	FeedReader
}

type Type string

const (
	PG    Type = "pg"
	InMem Type = "in_mem"
)
