package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

// defaultFeeds are keyless wire feeds used when no explicit feed map is
// configured. The RSS provider is the chain's last resort for ingest coverage:
// it needs no API key, so it keeps the pipeline alive when the paid providers
// are rate limited or down.
var defaultFeeds = map[string][]string{
	"general":    {"https://feeds.bbci.co.uk/news/rss.xml", "https://rss.nytimes.com/services/xml/rss/nyt/HomePage.xml"},
	"world":      {"https://feeds.bbci.co.uk/news/world/rss.xml"},
	"business":   {"https://feeds.bbci.co.uk/news/business/rss.xml"},
	"technology": {"https://feeds.bbci.co.uk/news/technology/rss.xml", "https://feeds.arstechnica.com/arstechnica/index"},
	"science":    {"https://feeds.bbci.co.uk/news/science_and_environment/rss.xml"},
	"health":     {"https://feeds.bbci.co.uk/news/health/rss.xml"},
	"sports":     {"https://feeds.bbci.co.uk/sport/rss.xml"},
}

type RSSProvider struct {
	feeds   map[string][]string
	parser  *gofeed.Parser
	limiter *rate.Limiter
}

type RSSOption func(*RSSProvider)

// WithFeeds replaces the default category -> feed URL map.
func WithFeeds(feeds map[string][]string) RSSOption {
	return func(p *RSSProvider) { p.feeds = feeds }
}

func NewRSSProvider(opts ...RSSOption) *RSSProvider {
	parser := gofeed.NewParser()
	parser.UserAgent = "news-pulse/1.0"

	p := &RSSProvider{
		feeds:   defaultFeeds,
		parser:  parser,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RSSProvider) Name() string { return "rss" }

// Configured is always true: RSS feeds need no credentials.
func (p *RSSProvider) Configured() bool { return len(p.feeds) > 0 }

func (p *RSSProvider) FetchHeadlines(ctx context.Context, q Query) ([]domain.Article, error) {
	q = q.withDefaults()

	urls, ok := p.feeds[q.Category]
	if !ok {
		urls = p.feeds["general"]
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("rss: no feeds configured for category %q", q.Category)
	}

	var (
		articles []domain.Article
		lastErr  error
	)
	now := time.Now().UTC()

	for _, feedURL := range urls {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rss rate limit wait: %w", err)
		}

		feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			lastErr = fmt.Errorf("rss parse %s: %w", feedURL, err)
			continue
		}

		source := feed.Title
		if source == "" {
			source = feedURL
		}

		for _, item := range feed.Items {
			if item.Title == "" {
				continue
			}
			a := domain.Article{
				Provider:   p.Name(),
				Source:     source,
				Title:      item.Title,
				URL:        item.Link,
				Country:    strings.ToUpper(q.Country),
				Category:   q.Category,
				RawSnippet: stripTags(item.Description),
				FetchedAt:  now,
			}
			if item.PublishedParsed != nil {
				ts := item.PublishedParsed.UTC()
				a.PublishedAt = &ts
			}
			if item.Image != nil {
				a.ImageURL = item.Image.URL
			}
			a.EnsureHash()
			articles = append(articles, a)
			if len(articles) >= q.PageSize {
				return articles, nil
			}
		}
	}

	if len(articles) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return articles, nil
}
