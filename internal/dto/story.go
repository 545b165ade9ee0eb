package dto

import (
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

// StoryResponse answers /api/story/:id with the full cluster detail.
type StoryResponse struct {
	Story     StoryItem           `json:"story"`
	KeyPoints []string            `json:"keyPoints,omitempty"`
	Entities  map[string][]string `json:"entities,omitempty"`
	Members   []ArticleItem       `json:"members"`
	Cached    bool                `json:"cached"`
	Degraded  bool                `json:"degraded"`
}

// ExplanationResponse answers /api/story/:id/explain.
type ExplanationResponse struct {
	StoryID     int64                  `json:"storyId"`
	Explanation string                 `json:"explanation"`
	KeyPoints   []string               `json:"keyPoints,omitempty"`
	Timeline    []domain.TimelineEntry `json:"timeline,omitempty"`
	Sources     []string               `json:"sources,omitempty"`
	AIGenerated bool                   `json:"aiGenerated"`
	Provider    string                 `json:"provider"`
	Cached      bool                   `json:"cached"`
}

func NewStoryResponse(c domain.Cluster, members []domain.Article) StoryResponse {
	items := make([]ArticleItem, 0, len(members))
	for _, m := range members {
		items = append(items, FromArticle(m))
	}
	return StoryResponse{
		Story:     FromCluster(c),
		KeyPoints: c.AIKeyPoints,
		Entities:  c.AIEntities,
		Members:   items,
	}
}

func NewExplanationResponse(id int64, e domain.Explanation) ExplanationResponse {
	return ExplanationResponse{
		StoryID:     id,
		Explanation: e.Explanation,
		KeyPoints:   e.KeyPoints,
		Timeline:    e.Timeline,
		Sources:     e.Sources,
		AIGenerated: e.AIGenerated,
		Provider:    e.Provider,
	}
}
