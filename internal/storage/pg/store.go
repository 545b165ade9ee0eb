package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/apperr"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres persistence backend.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(pool *ConnectionPool) (*Store, error) {
	return &Store{db: pool.GetConn()}, nil
}

const articleColumns = `id, hash, provider, source, title, url, published_at, country, category, image_url, raw_snippet, cluster_id, fetched_at, embedding`

func scanArticle(row pgx.Row) (domain.Article, error) {
	var a domain.Article
	err := row.Scan(
		&a.ID, &a.Hash, &a.Provider, &a.Source, &a.Title, &a.URL, &a.PublishedAt,
		&a.Country, &a.Category, &a.ImageURL, &a.RawSnippet, &a.ClusterID, &a.FetchedAt, &a.Embedding,
	)
	return a, err
}

func (s *Store) UpsertArticle(ctx context.Context, article domain.Article) (domain.Article, bool, error) {
	article.EnsureHash()
	if article.FetchedAt.IsZero() {
		article.FetchedAt = time.Now().UTC()
	}

	cmd := `
        INSERT INTO articles (hash, provider, source, title, url, published_at, country, category, image_url, raw_snippet, fetched_at, embedding)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (hash) DO UPDATE SET fetched_at = EXCLUDED.fetched_at
        RETURNING ` + articleColumns + `, (xmax = 0) AS inserted;
    `
	var a domain.Article
	var inserted bool
	err := s.db.QueryRow(
		ctx, cmd,
		article.Hash, article.Provider, article.Source, article.Title, article.URL,
		article.PublishedAt, article.Country, article.Category, article.ImageURL,
		article.RawSnippet, article.FetchedAt, article.Embedding,
	).Scan(
		&a.ID, &a.Hash, &a.Provider, &a.Source, &a.Title, &a.URL, &a.PublishedAt,
		&a.Country, &a.Category, &a.ImageURL, &a.RawSnippet, &a.ClusterID, &a.FetchedAt, &a.Embedding,
		&inserted,
	)
	if err != nil {
		return domain.Article{}, false, fmt.Errorf("failed to upsert article: %w", err)
	}
	return a, inserted, nil
}

func (s *Store) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	a, err := scanArticle(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NewNotFound("article", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &a, nil
}

func (s *Store) UnclusteredArticles(ctx context.Context, since time.Time, limit int) ([]domain.Article, error) {
	query := `
        SELECT ` + articleColumns + ` FROM articles
        WHERE cluster_id IS NULL AND fetched_at >= $1
        ORDER BY fetched_at ASC
        LIMIT $2`
	return s.queryArticles(ctx, query, since, limit)
}

func (s *Store) ArticlesByCluster(ctx context.Context, clusterID int64, limit int) ([]domain.Article, error) {
	query := `
        SELECT ` + articleColumns + ` FROM articles
        WHERE cluster_id = $1
        ORDER BY COALESCE(published_at, fetched_at) DESC
        LIMIT NULLIF($2, 0)`
	return s.queryArticles(ctx, query, clusterID, limit)
}

func (s *Store) UpdateArticleEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tag, err := s.db.Exec(ctx, `UPDATE articles SET embedding = $2 WHERE id = $1`, id, embedding)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("article", id)
	}
	return nil
}

func (s *Store) queryArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const clusterColumns = `id, canonical_title, canonical_url, top_country, top_category, tags, ai_summary, ai_key_points, ai_entities, why_trending, ai_generated, score, last_updated, article_count, sources, centroid`

func scanCluster(row pgx.Row) (domain.Cluster, error) {
	var c domain.Cluster
	var entities []byte
	err := row.Scan(
		&c.ID, &c.CanonicalTitle, &c.CanonicalURL, &c.TopCountry, &c.TopCategory, &c.Tags,
		&c.AISummary, &c.AIKeyPoints, &entities, &c.WhyTrending, &c.AIGenerated,
		&c.Score, &c.LastUpdated, &c.ArticleCount, &c.Sources, &c.Centroid,
	)
	if err != nil {
		return c, err
	}
	if len(entities) > 0 {
		if err := json.Unmarshal(entities, &c.AIEntities); err != nil {
			return c, fmt.Errorf("failed to unmarshal entities: %w", err)
		}
	}
	return c, nil
}

func (s *Store) CreateCluster(ctx context.Context, cluster *domain.Cluster) error {
	if cluster.LastUpdated.IsZero() {
		cluster.LastUpdated = time.Now().UTC()
	}

	cmd := `
        INSERT INTO clusters (canonical_title, canonical_url, top_country, top_category, tags, last_updated, centroid)
        VALUES ($1, $2, $3, $4, COALESCE($5, '{}'), $6, $7)
        RETURNING id;
    `
	err := s.db.QueryRow(
		ctx, cmd,
		cluster.CanonicalTitle, cluster.CanonicalURL, cluster.TopCountry,
		cluster.TopCategory, cluster.Tags, cluster.LastUpdated, cluster.Centroid,
	).Scan(&cluster.ID)
	if err != nil {
		return fmt.Errorf("failed to insert cluster: %w", err)
	}
	return nil
}

func (s *Store) GetCluster(ctx context.Context, id int64) (*domain.Cluster, error) {
	query := `SELECT ` + clusterColumns + ` FROM clusters WHERE id = $1`
	c, err := scanCluster(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NewNotFound("cluster", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cluster: %w", err)
	}
	return &c, nil
}

// AppendMember runs in a transaction holding the cluster row lock, so
// concurrent appends to one cluster serialize while other clusters proceed.
func (s *Store) AppendMember(ctx context.Context, clusterID int64, article domain.Article) error {
	article.EnsureHash()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT true FROM clusters WHERE id = $1 FOR UPDATE`, clusterID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NewNotFound("cluster", clusterID)
		}
		return fmt.Errorf("failed to lock cluster: %w", err)
	}

	if article.ID != 0 {
		_, err = tx.Exec(ctx, `UPDATE articles SET cluster_id = $1 WHERE id = $2`, clusterID, article.ID)
	} else {
		_, err = tx.Exec(ctx, `UPDATE articles SET cluster_id = $1 WHERE hash = $2`, clusterID, article.Hash)
	}
	if err != nil {
		return fmt.Errorf("failed to attach member: %w", err)
	}

	cmd := `
        UPDATE clusters c SET
            article_count = sub.cnt,
            sources = sub.srcs,
            last_updated = now()
        FROM (
            SELECT count(*) AS cnt,
                   COALESCE(array_agg(DISTINCT source) FILTER (WHERE source <> ''), '{}') AS srcs
            FROM articles WHERE cluster_id = $1
        ) sub
        WHERE c.id = $1`
	if _, err := tx.Exec(ctx, cmd, clusterID); err != nil {
		return fmt.Errorf("failed to refresh cluster counts: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) ClustersByCategorySince(ctx context.Context, category string, since time.Time, limit int) ([]domain.Cluster, error) {
	query := `
        SELECT ` + clusterColumns + ` FROM clusters
        WHERE top_category = $1 AND last_updated >= $2
        ORDER BY last_updated DESC
        LIMIT $3`
	return s.queryClusters(ctx, query, category, since, limit)
}

func (s *Store) ActiveClusters(ctx context.Context, since time.Time, limit int) ([]domain.Cluster, error) {
	query := `
        SELECT ` + clusterColumns + ` FROM clusters
        WHERE last_updated >= $1
        ORDER BY last_updated DESC
        LIMIT $2`
	return s.queryClusters(ctx, query, since, limit)
}

func (s *Store) ClustersMissingEnrichment(ctx context.Context, limit int) ([]domain.Cluster, error) {
	query := `
        SELECT ` + clusterColumns + ` FROM clusters
        WHERE ai_summary = ''
        ORDER BY last_updated DESC
        LIMIT $1`
	return s.queryClusters(ctx, query, limit)
}

func (s *Store) UpdateClusterScore(ctx context.Context, id int64, score float64) error {
	tag, err := s.db.Exec(ctx, `UPDATE clusters SET score = $2 WHERE id = $1`, id, score)
	if err != nil {
		return fmt.Errorf("failed to update score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("cluster", id)
	}
	return nil
}

func (s *Store) UpdateClusterEnrichment(ctx context.Context, id int64, enrichment domain.Enrichment) error {
	entities, err := json.Marshal(enrichment.Entities)
	if err != nil {
		return fmt.Errorf("failed to marshal entities: %w", err)
	}

	cmd := `
        UPDATE clusters SET
            ai_summary = $2,
            ai_key_points = COALESCE($3, '{}'),
            ai_entities = $4,
            why_trending = $5,
            tags = CASE WHEN $6::text[] IS NULL OR cardinality($6::text[]) = 0 THEN tags ELSE $6 END,
            ai_generated = $7
        WHERE id = $1`
	tag, err := s.db.Exec(ctx, cmd, id,
		enrichment.Summary, enrichment.KeyPoints, entities,
		enrichment.WhyTrending, enrichment.Tags, enrichment.AIGenerated,
	)
	if err != nil {
		return fmt.Errorf("failed to update enrichment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("cluster", id)
	}
	return nil
}

func (s *Store) UpdateClusterCentroid(ctx context.Context, id int64, centroid []float32) error {
	tag, err := s.db.Exec(ctx, `UPDATE clusters SET centroid = $2 WHERE id = $1`, id, centroid)
	if err != nil {
		return fmt.Errorf("failed to update centroid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NewNotFound("cluster", id)
	}
	return nil
}

func (s *Store) TopClustersByScore(ctx context.Context, country, category string, limit int) ([]domain.Cluster, error) {
	query := `
        SELECT ` + clusterColumns + ` FROM clusters
        WHERE ($1 = '' OR top_country = $1)
          AND ($2 = '' OR top_category = $2)
        ORDER BY score DESC, last_updated DESC
        LIMIT $3`
	return s.queryClusters(ctx, query, country, category, limit)
}

func (s *Store) LatestArticles(ctx context.Context, country, category string, limit int) ([]domain.Article, error) {
	query := `
        SELECT ` + articleColumns + ` FROM articles
        WHERE ($1 = '' OR country = $1)
          AND ($2 = '' OR category = $2)
        ORDER BY COALESCE(published_at, fetched_at) DESC
        LIMIT $3`
	return s.queryArticles(ctx, query, country, category, limit)
}

func (s *Store) queryClusters(ctx context.Context, query string, args ...any) ([]domain.Cluster, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	var out []domain.Cluster
	for rows.Next() {
		c, err := scanCluster(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
