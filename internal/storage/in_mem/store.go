// Package in_mem is the map-backed storage backend. It keeps the whole
// dataset under one RWMutex, which is plenty for tests and local runs.
package in_mem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/apperr"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	articles map[int64]*domain.Article
	byHash   map[string]int64
	clusters map[int64]*domain.Cluster

	nextArticleID int64
	nextClusterID int64
}

func NewStore() *Store {
	return &Store{
		articles: make(map[int64]*domain.Article),
		byHash:   make(map[string]int64),
		clusters: make(map[int64]*domain.Cluster),
	}
}

func (s *Store) UpsertArticle(_ context.Context, article domain.Article) (domain.Article, bool, error) {
	article.EnsureHash()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byHash[article.Hash]; ok {
		existing := s.articles[id]
		existing.FetchedAt = article.FetchedAt
		if existing.FetchedAt.IsZero() {
			existing.FetchedAt = time.Now().UTC()
		}
		return *existing, false, nil
	}

	s.nextArticleID++
	article.ID = s.nextArticleID
	if article.FetchedAt.IsZero() {
		article.FetchedAt = time.Now().UTC()
	}
	stored := article
	s.articles[stored.ID] = &stored
	s.byHash[stored.Hash] = stored.ID
	return stored, true, nil
}

func (s *Store) GetArticle(_ context.Context, id int64) (*domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	article, ok := s.articles[id]
	if !ok {
		return nil, apperr.NewNotFound("article", id)
	}
	copied := *article
	return &copied, nil
}

func (s *Store) UnclusteredArticles(_ context.Context, since time.Time, limit int) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Article
	for _, article := range s.articles {
		if article.ClusterID == nil && !article.FetchedAt.Before(since) {
			out = append(out, *article)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.Before(out[j].FetchedAt) })
	return capSlice(out, limit), nil
}

func (s *Store) ArticlesByCluster(_ context.Context, clusterID int64, limit int) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Article
	for _, article := range s.articles {
		if article.ClusterID != nil && *article.ClusterID == clusterID {
			out = append(out, *article)
		}
	}
	sort.Slice(out, func(i, j int) bool { return publishedOrFetched(out[i]).After(publishedOrFetched(out[j])) })
	return capSlice(out, limit), nil
}

func (s *Store) UpdateArticleEmbedding(_ context.Context, id int64, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	article, ok := s.articles[id]
	if !ok {
		return apperr.NewNotFound("article", id)
	}
	article.Embedding = append([]float32(nil), embedding...)
	return nil
}

func (s *Store) CreateCluster(_ context.Context, cluster *domain.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextClusterID++
	cluster.ID = s.nextClusterID
	if cluster.LastUpdated.IsZero() {
		cluster.LastUpdated = time.Now().UTC()
	}
	stored := *cluster
	s.clusters[stored.ID] = &stored
	return nil
}

func (s *Store) GetCluster(_ context.Context, id int64) (*domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cluster, ok := s.clusters[id]
	if !ok {
		return nil, apperr.NewNotFound("cluster", id)
	}
	copied := *cluster
	return &copied, nil
}

func (s *Store) AppendMember(_ context.Context, clusterID int64, article domain.Article) error {
	article.EnsureHash()

	s.mu.Lock()
	defer s.mu.Unlock()

	cluster, ok := s.clusters[clusterID]
	if !ok {
		return apperr.NewNotFound("cluster", clusterID)
	}

	id, known := s.byHash[article.Hash]
	if !known {
		s.nextArticleID++
		article.ID = s.nextArticleID
		if article.FetchedAt.IsZero() {
			article.FetchedAt = time.Now().UTC()
		}
		stored := article
		s.articles[stored.ID] = &stored
		s.byHash[stored.Hash] = stored.ID
		id = stored.ID
	}
	s.articles[id].ClusterID = &clusterID

	s.refreshClusterLocked(cluster)
	return nil
}

// refreshClusterLocked recomputes the denormalized member fields. Caller
// holds the write lock.
func (s *Store) refreshClusterLocked(cluster *domain.Cluster) {
	count := 0
	seen := make(map[string]struct{})
	var sources []string
	for _, article := range s.articles {
		if article.ClusterID == nil || *article.ClusterID != cluster.ID {
			continue
		}
		count++
		if _, dup := seen[article.Source]; !dup && article.Source != "" {
			seen[article.Source] = struct{}{}
			sources = append(sources, article.Source)
		}
	}
	sort.Strings(sources)
	cluster.ArticleCount = count
	cluster.Sources = sources
	cluster.LastUpdated = time.Now().UTC()
}

func (s *Store) ClustersByCategorySince(_ context.Context, category string, since time.Time, limit int) ([]domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Cluster
	for _, cluster := range s.clusters {
		if cluster.TopCategory == category && !cluster.LastUpdated.Before(since) {
			out = append(out, *cluster)
		}
	}
	sortByLastUpdated(out)
	return capSlice(out, limit), nil
}

func (s *Store) ActiveClusters(_ context.Context, since time.Time, limit int) ([]domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Cluster
	for _, cluster := range s.clusters {
		if !cluster.LastUpdated.Before(since) {
			out = append(out, *cluster)
		}
	}
	sortByLastUpdated(out)
	return capSlice(out, limit), nil
}

func (s *Store) ClustersMissingEnrichment(_ context.Context, limit int) ([]domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Cluster
	for _, cluster := range s.clusters {
		if cluster.AISummary == "" {
			out = append(out, *cluster)
		}
	}
	sortByLastUpdated(out)
	return capSlice(out, limit), nil
}

func (s *Store) UpdateClusterScore(_ context.Context, id int64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cluster, ok := s.clusters[id]
	if !ok {
		return apperr.NewNotFound("cluster", id)
	}
	cluster.Score = score
	return nil
}

func (s *Store) UpdateClusterEnrichment(_ context.Context, id int64, enrichment domain.Enrichment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cluster, ok := s.clusters[id]
	if !ok {
		return apperr.NewNotFound("cluster", id)
	}
	cluster.AISummary = enrichment.Summary
	cluster.AIKeyPoints = enrichment.KeyPoints
	cluster.AIEntities = enrichment.Entities
	cluster.WhyTrending = enrichment.WhyTrending
	if len(enrichment.Tags) > 0 {
		cluster.Tags = enrichment.Tags
	}
	cluster.AIGenerated = enrichment.AIGenerated
	return nil
}

func (s *Store) UpdateClusterCentroid(_ context.Context, id int64, centroid []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cluster, ok := s.clusters[id]
	if !ok {
		return apperr.NewNotFound("cluster", id)
	}
	cluster.Centroid = append([]float32(nil), centroid...)
	return nil
}

func (s *Store) TopClustersByScore(_ context.Context, country, category string, limit int) ([]domain.Cluster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Cluster
	for _, cluster := range s.clusters {
		if country != "" && cluster.TopCountry != country {
			continue
		}
		if category != "" && cluster.TopCategory != category {
			continue
		}
		out = append(out, *cluster)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return capSlice(out, limit), nil
}

func (s *Store) LatestArticles(_ context.Context, country, category string, limit int) ([]domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Article
	for _, article := range s.articles {
		if country != "" && article.Country != country {
			continue
		}
		if category != "" && article.Category != category {
			continue
		}
		out = append(out, *article)
	}
	sort.Slice(out, func(i, j int) bool { return publishedOrFetched(out[i]).After(publishedOrFetched(out[j])) })
	return capSlice(out, limit), nil
}

func publishedOrFetched(a domain.Article) time.Time {
	if a.PublishedAt != nil {
		return *a.PublishedAt
	}
	return a.FetchedAt
}

func sortByLastUpdated(clusters []domain.Cluster) {
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].LastUpdated.Equal(clusters[j].LastUpdated) {
			return clusters[i].ID < clusters[j].ID
		}
		return clusters[i].LastUpdated.After(clusters[j].LastUpdated)
	})
}

func capSlice[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
