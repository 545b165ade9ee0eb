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

const newsAPIBase = "https://newsapi.org/v2"

// newsAPICategories are the categories /top-headlines supports natively;
// everything else goes through /everything with a keyword search.
var newsAPICategories = map[string]bool{
	"general": true, "business": true, "entertainment": true,
	"health": true, "science": true, "sports": true, "technology": true,
}

var newsAPIKeywords = map[string]string{
	"politics":      "politics OR government OR election OR policy",
	"world":         "international OR global OR geopolitics OR diplomacy",
	"economy":       "economy OR GDP OR inflation OR recession",
	"finance":       "stock market OR investment OR banking OR IPO",
	"space":         "space OR NASA OR SpaceX OR satellite OR rocket launch",
	"cybersecurity": "cybersecurity OR hacking OR data breach OR ransomware",
	"startups":      "startup OR venture capital OR funding OR seed round",
	"crypto":        "cryptocurrency OR bitcoin OR ethereum OR blockchain",
	"gaming":        "video game OR gaming OR esports",
	"ai":            "artificial intelligence OR machine learning OR LLM",
	"education":     "education OR university OR school OR curriculum",
	"environment":   "climate change OR renewable energy OR sustainability",
	"energy":        "energy OR oil OR gas OR solar OR nuclear",
	"defense":       "military OR defense OR NATO OR weapons",
	"media":         "media OR journalism OR press OR broadcasting",
	"weather":       "weather OR storm OR hurricane OR flood OR drought",
}

type NewsAPIProvider struct {
	apiKey  string
	base    string
	http    *http.Client
	limiter *rate.Limiter
}

type NewsAPIOption func(*NewsAPIProvider)

func WithNewsAPIHTTPClient(client *http.Client) NewsAPIOption {
	return func(p *NewsAPIProvider) { p.http = client }
}

func WithNewsAPIBaseURL(base string) NewsAPIOption {
	return func(p *NewsAPIProvider) { p.base = base }
}

func NewNewsAPIProvider(apiKey string, opts ...NewsAPIOption) *NewsAPIProvider {
	p := &NewsAPIProvider{
		apiKey: apiKey,
		base:   newsAPIBase,
		http:   &http.Client{Timeout: 15 * time.Second},
		// NewsAPI free tier allows ~1 request/sec sustained.
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *NewsAPIProvider) Name() string { return "newsapi" }

func (p *NewsAPIProvider) Configured() bool { return p.apiKey != "" }

func (p *NewsAPIProvider) FetchHeadlines(ctx context.Context, q Query) ([]domain.Article, error) {
	q = q.withDefaults()
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("newsapi rate limit wait: %w", err)
	}

	var (
		endpoint string
		params   = url.Values{}
	)
	if newsAPICategories[q.Category] {
		endpoint = "/top-headlines"
		params.Set("country", strings.ToLower(q.Country))
		params.Set("category", q.Category)
	} else {
		keywords, ok := newsAPIKeywords[q.Category]
		if !ok {
			keywords = q.Category
		}
		endpoint = "/everything"
		params.Set("q", keywords)
		params.Set("language", "en")
		params.Set("sortBy", "publishedAt")
	}
	params.Set("pageSize", strconv.Itoa(min(q.PageSize, 100)))
	params.Set("apiKey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("newsapi read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newsapi status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var payload struct {
		Status   string `json:"status"`
		Articles []struct {
			Source      struct{ Name string } `json:"source"`
			Title       string                `json:"title"`
			URL         string                `json:"url"`
			Description string                `json:"description"`
			URLToImage  string                `json:"urlToImage"`
			PublishedAt string                `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("newsapi decode: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi error status %q", payload.Status)
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	now := time.Now().UTC()
	for _, item := range payload.Articles {
		if item.Title == "" || item.Title == "[Removed]" {
			continue
		}
		a := domain.Article{
			Provider:   p.Name(),
			Source:     valueOr(item.Source.Name, "Unknown"),
			Title:      item.Title,
			URL:        item.URL,
			Country:    strings.ToUpper(q.Country),
			Category:   q.Category,
			ImageURL:   item.URLToImage,
			RawSnippet: item.Description,
			FetchedAt:  now,
		}
		if ts, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
			a.PublishedAt = &ts
		}
		a.EnsureHash()
		articles = append(articles, a)
	}
	return articles, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
