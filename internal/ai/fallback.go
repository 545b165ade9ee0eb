package ai

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

// FallbackProviderName marks enrichment produced without any AI backend.
const FallbackProviderName = "deterministic"

// PseudoEmbeddingDim is the vector size of the hash-bucket fallback.
const PseudoEmbeddingDim = 128

// fallbackEnrichment builds an extractive enrichment from the member
// articles alone. It cannot fail, which is what keeps the enrichment chain
// total.
func fallbackEnrichment(cluster domain.Cluster, members []domain.Article) domain.Enrichment {
	return domain.Enrichment{
		Summary:     extractiveSummary(cluster, members, 3),
		KeyPoints:   distinctTitles(members, 5),
		WhyTrending: whyTrendingTemplate(cluster),
		Tags:        fallbackTags(cluster),
		AIGenerated: false,
	}
}

func fallbackExplanation(cluster domain.Cluster, members []domain.Article) domain.Explanation {
	return domain.Explanation{
		Explanation: extractiveSummary(cluster, members, 4),
		KeyPoints:   distinctTitles(members, 5),
		Timeline:    fallbackTimeline(members),
		Sources:     cluster.Sources,
		AIGenerated: false,
		Provider:    FallbackProviderName,
	}
}

// extractiveSummary takes the first sentences of the longest available
// snippet, falling back to the canonical title.
func extractiveSummary(cluster domain.Cluster, members []domain.Article, sentences int) string {
	var longest string
	for _, m := range members {
		if snippet := strings.TrimSpace(m.RawSnippet); len(snippet) > len(longest) {
			longest = snippet
		}
	}
	if longest == "" {
		return cluster.CanonicalTitle
	}
	return firstSentences(longest, sentences)
}

func firstSentences(text string, n int) string {
	var b strings.Builder
	count := 0
	for i, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			count++
			if count >= n {
				return strings.TrimSpace(text[:i+1])
			}
		}
	}
	return strings.TrimSpace(text)
}

func distinctTitles(members []domain.Article, limit int) []string {
	seen := make(map[string]struct{})
	var titles []string
	for _, m := range members {
		key := domain.NormalizeTitle(m.Title)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		seen[key] = struct{}{}
		titles = append(titles, m.Title)
		if len(titles) >= limit {
			break
		}
	}
	return titles
}

func whyTrendingTemplate(cluster domain.Cluster) string {
	switch {
	case len(cluster.Sources) > 1:
		return fmt.Sprintf("Covered by %d outlets including %s.", len(cluster.Sources), cluster.Sources[0])
	case len(cluster.Sources) == 1:
		return fmt.Sprintf("Reported by %s.", cluster.Sources[0])
	default:
		return "Recently reported story."
	}
}

func fallbackTags(cluster domain.Cluster) []string {
	if cluster.TopCategory == "" {
		return nil
	}
	return []string{cluster.TopCategory}
}

func fallbackTimeline(members []domain.Article) []domain.TimelineEntry {
	var timeline []domain.TimelineEntry
	for _, m := range members {
		if m.PublishedAt == nil {
			continue
		}
		timeline = append(timeline, domain.TimelineEntry{
			Time:  m.PublishedAt.Format("2006-01-02 15:04"),
			Event: m.Title,
		})
	}
	return timeline
}

// PseudoEmbedding is the terminal "embed" fallback: a hash-bucket bag of
// words, L2-normalized. Deterministic for a given text and never fails. It
// only has to be good enough for near-duplicate titles to land close.
func PseudoEmbedding(text string) []float32 {
	vec := make([]float32, PseudoEmbeddingDim)
	for _, token := range strings.Fields(domain.NormalizeTitle(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%PseudoEmbeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
