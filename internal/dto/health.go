package dto

import (
	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
)

// HealthResponse answers /api/health with the storage probe and every
// circuit's state, news and AI side.
type HealthResponse struct {
	Status   string                    `json:"status"`
	Storage  bool                      `json:"storage"`
	Breakers map[string]breaker.Status `json:"breakers"`
}

// MetaResponse answers the /api/meta endpoints.
type MetaResponse struct {
	Countries  map[string]string `json:"countries,omitempty"`
	Categories []string          `json:"categories,omitempty"`
}
