package domain

import "fmt"

type FeedMode string

const (
	ModeTrending FeedMode = "trending"
	ModeLatest   FeedMode = "latest"
)

// FeedQuery identifies one feed slice. Country may be empty for a global feed.
type FeedQuery struct {
	Country  string
	Category string
	Mode     FeedMode
}

// Channel is the stream channel key for this slice, e.g. "US:technology:trending".
func (q FeedQuery) Channel() string {
	country := q.Country
	if country == "" {
		country = "GLOBAL"
	}
	return fmt.Sprintf("%s:%s:%s", country, q.Category, q.Mode)
}

// Fingerprint is the cache key for this slice.
func (q FeedQuery) Fingerprint() string {
	return "feed:" + q.Channel()
}

func (q FeedQuery) Validate() error {
	if q.Category == "" {
		return fmt.Errorf("category is required")
	}
	if q.Mode != ModeTrending && q.Mode != ModeLatest {
		return fmt.Errorf("unknown feed mode %q", q.Mode)
	}
	return nil
}
