package pg

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS clusters (
    id             BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    canonical_title TEXT NOT NULL,
    canonical_url  TEXT NOT NULL DEFAULT '',
    top_country    TEXT NOT NULL DEFAULT '',
    top_category   TEXT NOT NULL DEFAULT '',
    tags           TEXT[] NOT NULL DEFAULT '{}',
    ai_summary     TEXT NOT NULL DEFAULT '',
    ai_key_points  TEXT[] NOT NULL DEFAULT '{}',
    ai_entities    JSONB NOT NULL DEFAULT '{}',
    why_trending   TEXT NOT NULL DEFAULT '',
    ai_generated   BOOLEAN NOT NULL DEFAULT FALSE,
    score          DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_updated   TIMESTAMPTZ NOT NULL DEFAULT now(),
    article_count  INT NOT NULL DEFAULT 0,
    sources        TEXT[] NOT NULL DEFAULT '{}',
    centroid       REAL[]
);

CREATE TABLE IF NOT EXISTS articles (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    hash         TEXT NOT NULL UNIQUE,
    provider     TEXT NOT NULL,
    source       TEXT NOT NULL DEFAULT '',
    title        TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    published_at TIMESTAMPTZ,
    country      TEXT NOT NULL DEFAULT '',
    category     TEXT NOT NULL DEFAULT '',
    image_url    TEXT NOT NULL DEFAULT '',
    raw_snippet  TEXT NOT NULL DEFAULT '',
    cluster_id   BIGINT REFERENCES clusters(id),
    fetched_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    embedding    REAL[]
);

CREATE INDEX IF NOT EXISTS idx_articles_cluster ON articles (cluster_id);
CREATE INDEX IF NOT EXISTS idx_articles_unclustered ON articles (fetched_at) WHERE cluster_id IS NULL;
CREATE INDEX IF NOT EXISTS idx_articles_feed ON articles (country, category, published_at DESC);
CREATE INDEX IF NOT EXISTS idx_clusters_candidates ON clusters (top_category, last_updated DESC);
CREATE INDEX IF NOT EXISTS idx_clusters_feed ON clusters (top_country, top_category, score DESC);
`

// EnsureSchema creates the tables and indexes if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.GetConn().Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
