package domain

import "time"

// Cluster is a story: the group of articles users actually read.
// CanonicalTitle is fixed to the first member's title; counts and score
// track current membership.
type Cluster struct {
	ID             int64               `json:"id"`
	CanonicalTitle string              `json:"canonicalTitle"`
	CanonicalURL   string              `json:"canonicalUrl,omitempty"`
	TopCountry     string              `json:"topCountry"`
	TopCategory    string              `json:"topCategory"`
	Tags           []string            `json:"tags,omitempty"`
	AISummary      string              `json:"aiSummary,omitempty"`
	AIKeyPoints    []string            `json:"aiKeyPoints,omitempty"`
	AIEntities     map[string][]string `json:"aiEntities,omitempty"`
	WhyTrending    string              `json:"whyTrending,omitempty"`
	AIGenerated    bool                `json:"aiGenerated"`
	Score          float64             `json:"score"`
	LastUpdated    time.Time           `json:"lastUpdated"`
	ArticleCount   int                 `json:"articleCount"`
	Sources        []string            `json:"sources,omitempty"`

	// Centroid is the running mean of member embeddings, nil until the
	// enrichment path has embedded at least one member.
	Centroid []float32 `json:"-"`
}

// Enrichment holds the AI fields produced for a cluster in one enrichment pass.
type Enrichment struct {
	Summary     string
	KeyPoints   []string
	Entities    map[string][]string
	WhyTrending string
	Tags        []string
	AIGenerated bool
}

// Explanation is the structured deep-context answer for a single story.
type Explanation struct {
	Explanation string          `json:"explanation"`
	KeyPoints   []string        `json:"key_points"`
	Timeline    []TimelineEntry `json:"timeline"`
	Sources     []string        `json:"sources"`
	AIGenerated bool            `json:"-"`
	Provider    string          `json:"-"`
}

type TimelineEntry struct {
	Time  string `json:"time"`
	Event string `json:"event"`
}
