// Package dto holds the wire shapes of the read API.
package dto

import (
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/pkg/utils"
)

// StoryItem is one ranked cluster in a trending feed.
type StoryItem struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	URL          string    `json:"url,omitempty"`
	Score        float64   `json:"score"`
	Sources      []string  `json:"sources"`
	ArticleCount int       `json:"articleCount"`
	Country      string    `json:"country,omitempty"`
	Category     string    `json:"category,omitempty"`
	Tags         []string  `json:"tags,omitempty"`
	Summary      string    `json:"summary,omitempty"`
	WhyTrending  string    `json:"whyTrending,omitempty"`
	AIGenerated  bool      `json:"aiGenerated"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// ArticleItem is one entry in a latest feed.
type ArticleItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url,omitempty"`
	Source      string     `json:"source"`
	Provider    string     `json:"provider"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Country     string     `json:"country,omitempty"`
	Category    string     `json:"category,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	Snippet     string     `json:"snippet,omitempty"`
	ClusterID   *int64     `json:"clusterId,omitempty"`
}

// FeedResponse answers /api/feed. Exactly one of Stories or Articles is
// populated, depending on the mode.
type FeedResponse struct {
	Mode        string        `json:"mode"`
	Country     string        `json:"country"`
	Category    string        `json:"category"`
	Stories     []StoryItem   `json:"stories,omitempty"`
	Articles    []ArticleItem `json:"articles,omitempty"`
	Cached      bool          `json:"cached"`
	Degraded    bool          `json:"degraded"`
	GeneratedAt time.Time     `json:"generatedAt"`
	// StreamChannel and StreamPosition let a client open /api/stream and
	// resume from the state this response reflects.
	StreamChannel  string `json:"streamChannel"`
	StreamPosition uint64 `json:"streamPosition"`
}

// Truncate trims the response to at most limit entries. limit <= 0 keeps the
// full page. Safe on cached copies because the slices are shared read-only.
func (r *FeedResponse) Truncate(limit int) {
	if limit <= 0 {
		return
	}
	if len(r.Stories) > limit {
		r.Stories = r.Stories[:limit]
	}
	if len(r.Articles) > limit {
		r.Articles = r.Articles[:limit]
	}
}

func FromCluster(c domain.Cluster) StoryItem {
	return StoryItem{
		ID:           c.ID,
		Title:        c.CanonicalTitle,
		URL:          c.CanonicalURL,
		Score:        utils.RoundDecimal(c.Score, 3),
		Sources:      c.Sources,
		ArticleCount: c.ArticleCount,
		Country:      c.TopCountry,
		Category:     c.TopCategory,
		Tags:         c.Tags,
		Summary:      c.AISummary,
		WhyTrending:  c.WhyTrending,
		AIGenerated:  c.AIGenerated,
		LastUpdated:  c.LastUpdated,
	}
}

func FromArticle(a domain.Article) ArticleItem {
	return ArticleItem{
		ID:          a.ID,
		Title:       a.Title,
		URL:         a.URL,
		Source:      a.Source,
		Provider:    a.Provider,
		PublishedAt: a.PublishedAt,
		Country:     a.Country,
		Category:    a.Category,
		ImageURL:    a.ImageURL,
		Snippet:     a.RawSnippet,
		ClusterID:   a.ClusterID,
	}
}
