package ai

import (
	"fmt"
	"strings"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

const summarizeSystem = `You are a news analyst. You are given several headlines covering the same story.
Respond with a single JSON object and nothing else, shaped exactly like:
{"summary": "...", "key_points": ["...", "..."], "entities": {"people": [], "orgs": [], "places": []}, "why_trending": "...", "tags": ["..."]}
summary is 2-3 sentences. key_points holds 3-5 short bullet strings. tags are lowercase topic words.`

const explainSystem = `You are a news analyst. You are given the headlines of one developing story.
Respond with a single JSON object and nothing else, shaped exactly like:
{"explanation": "...", "key_points": ["..."], "timeline": [{"time": "...", "event": "..."}], "sources": ["..."]}
explanation is a short paragraph of background a reader needs to understand the story.`

// stricterInstruction is appended on the single retry after a malformed
// structured response.
const stricterInstruction = `

IMPORTANT: the previous response was not valid. Output ONLY the JSON object, with no prose, no markdown fences, and every required field present and non-empty.`

func summarizePrompt(cluster domain.Cluster, members []domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s\nCategory: %s\n\nHeadlines:\n", cluster.CanonicalTitle, cluster.TopCategory)
	writeHeadlines(&b, members)
	return b.String()
}

func explainPrompt(cluster domain.Cluster, members []domain.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story: %s\n\nHeadlines in publish order:\n", cluster.CanonicalTitle)
	writeHeadlines(&b, members)
	b.WriteString("\nExplain the background of this story.")
	return b.String()
}

func writeHeadlines(b *strings.Builder, members []domain.Article) {
	for _, m := range members {
		fmt.Fprintf(b, "- [%s] %s", m.Source, m.Title)
		if m.PublishedAt != nil {
			fmt.Fprintf(b, " (%s)", m.PublishedAt.Format("2006-01-02 15:04"))
		}
		b.WriteByte('\n')
		if snippet := strings.TrimSpace(m.RawSnippet); snippet != "" {
			fmt.Fprintf(b, "  %s\n", snippet)
		}
	}
}
