package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

// Article is a single headline as delivered by one provider. Articles are
// deduplicated by Hash: re-ingesting the same hash refreshes FetchedAt and
// never creates a second row.
type Article struct {
	ID          int64      `json:"id"`
	Hash        string     `json:"hash"`
	Provider    string     `json:"provider"`
	Source      string     `json:"source"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Country     string     `json:"country"`
	Category    string     `json:"category"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	RawSnippet  string     `json:"rawSnippet,omitempty"`
	ClusterID   *int64     `json:"clusterId,omitempty"`
	FetchedAt   time.Time  `json:"fetchedAt"`

	// Embedding is populated lazily by the enrichment path and may be nil.
	Embedding []float32 `json:"-"`
}

// NormalizeTitle lowercases a title, strips punctuation and collapses
// whitespace so near-identical headlines hash and compare equal.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// MakeArticleHash derives the dedup identity from normalized title + source.
func MakeArticleHash(title, source string) string {
	sum := sha256.Sum256([]byte(NormalizeTitle(title) + "|" + source))
	return hex.EncodeToString(sum[:])[:32]
}

// EnsureHash fills Hash if the provider mapping left it empty.
func (a *Article) EnsureHash() {
	if a.Hash == "" {
		a.Hash = MakeArticleHash(a.Title, a.Source)
	}
}
