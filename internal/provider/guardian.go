package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"golang.org/x/time/rate"
)

const guardianBase = "https://content.guardianapis.com"

// guardianSections maps our category tags onto Guardian section ids.
var guardianSections = map[string]string{
	"general":       "news",
	"world":         "world",
	"politics":      "politics",
	"economy":       "business",
	"business":      "business",
	"finance":       "business",
	"technology":    "technology",
	"science":       "science",
	"space":         "science",
	"cybersecurity": "technology",
	"startups":      "technology",
	"crypto":        "technology",
	"gaming":        "technology",
	"ai":            "technology",
	"health":        "society",
	"education":     "education",
	"environment":   "environment",
	"sports":        "sport",
	"entertainment": "culture",
	"energy":        "environment",
	"defense":       "world",
	"media":         "media",
	"weather":       "news",
}

type GuardianProvider struct {
	apiKey  string
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

type GuardianOption func(*GuardianProvider)

func WithGuardianHTTPClient(client *http.Client) GuardianOption {
	return func(p *GuardianProvider) { p.http = client }
}

func WithGuardianBaseURL(base string) GuardianOption {
	return func(p *GuardianProvider) { p.base = base }
}

func NewGuardianProvider(apiKey string, opts ...GuardianOption) *GuardianProvider {
	p := &GuardianProvider{
		apiKey:  apiKey,
		base:    guardianBase,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GuardianProvider) Name() string { return "guardian" }

func (p *GuardianProvider) Configured() bool { return p.apiKey != "" }

func (p *GuardianProvider) FetchHeadlines(ctx context.Context, q Query) ([]domain.Article, error) {
	q = q.withDefaults()
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("guardian rate limit wait: %w", err)
	}

	section, ok := guardianSections[q.Category]
	if !ok {
		section = "news"
	}

	params := url.Values{}
	params.Set("section", section)
	params.Set("page-size", strconv.Itoa(min(q.PageSize, 50)))
	params.Set("order-by", "newest")
	params.Set("show-fields", "trailText,thumbnail")
	params.Set("api-key", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("guardian request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("guardian read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guardian status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		Response struct {
			Status  string `json:"status"`
			Results []struct {
				WebTitle           string `json:"webTitle"`
				WebURL             string `json:"webUrl"`
				WebPublicationDate string `json:"webPublicationDate"`
				Fields             struct {
					TrailText string `json:"trailText"`
					Thumbnail string `json:"thumbnail"`
				} `json:"fields"`
			} `json:"results"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("guardian decode: %w", err)
	}
	if payload.Response.Status != "ok" {
		return nil, fmt.Errorf("guardian error status %q", payload.Response.Status)
	}

	articles := make([]domain.Article, 0, len(payload.Response.Results))
	now := time.Now().UTC()
	for _, item := range payload.Response.Results {
		if item.WebTitle == "" {
			continue
		}
		a := domain.Article{
			Provider:   p.Name(),
			Source:     "The Guardian",
			Title:      item.WebTitle,
			URL:        item.WebURL,
			Country:    strings.ToUpper(q.Country),
			Category:   q.Category,
			ImageURL:   item.Fields.Thumbnail,
			RawSnippet: stripTags(item.Fields.TrailText),
			FetchedAt:  now,
		}
		if ts, err := time.Parse(time.RFC3339, item.WebPublicationDate); err == nil {
			a.PublishedAt = &ts
		}
		a.EnsureHash()
		articles = append(articles, a)
	}
	return articles, nil
}

// stripTags removes the simple inline markup Guardian puts in trail texts.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
