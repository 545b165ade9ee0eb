// Package provider contains the news provider backends and the priority-chain
// router that fronts them. Every backend normalizes its wire format into
// domain.Article so the router and everything downstream stay backend-agnostic.
package provider

import (
	"context"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

// Purpose is the logical query intent a chain is configured for.
type Purpose string

const (
	PurposeHeadlines Purpose = "headlines"
	PurposeTrending  Purpose = "trending"
)

// Query is one headlines request shape.
type Query struct {
	Country  string
	Category string
	PageSize int
}

func (q Query) withDefaults() Query {
	if q.Country == "" {
		q.Country = "US"
	}
	if q.Category == "" {
		q.Category = "general"
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	return q
}

// Provider is one news backend. FetchHeadlines returns normalized articles or
// an error; rate limits, auth failures and malformed payloads all surface as
// errors so the router can record them on the breaker.
type Provider interface {
	Name() string
	Configured() bool
	FetchHeadlines(ctx context.Context, q Query) ([]domain.Article, error)
}
