package ai

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatProvider struct {
	name      string
	available bool
	responses []string // consumed in order; sticky on the last one
	err       error
	calls     int
	prompts   []Request
}

func (f *fakeChatProvider) Name() string    { return f.name }
func (f *fakeChatProvider) Available() bool { return f.available }

func (f *fakeChatProvider) Generate(_ context.Context, req Request) (Response, error) {
	f.calls++
	f.prompts = append(f.prompts, req)
	if f.err != nil {
		return Response{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return Response{Content: f.responses[idx], Model: f.name + "-model"}, nil
}

const validEnrichment = `{"summary": "Two outlets report the budget bill passed.",
"key_points": ["Bill passed 52-48", "Veto unlikely"],
"entities": {"orgs": ["Senate"]},
"why_trending": "Major legislative milestone.",
"tags": ["politics"]}`

func testCluster() (domain.Cluster, []domain.Article) {
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cluster := domain.Cluster{
		ID:             1,
		CanonicalTitle: "Senate Passes Budget Bill",
		TopCategory:    "politics",
		Sources:        []string{"Test Wire", "Other Wire"},
	}
	members := []domain.Article{
		{Title: "Senate Passes Budget Bill", Source: "Test Wire", PublishedAt: &ts,
			RawSnippet: "The Senate approved the budget. The vote was 52-48. A veto is unlikely."},
		{Title: "Senate passes the budget bill", Source: "Other Wire", PublishedAt: &ts},
	}
	return cluster, members
}

func TestSummarize_FirstProviderWins(t *testing.T) {
	first := &fakeChatProvider{name: "anthropic", available: true, responses: []string{validEnrichment}}
	second := &fakeChatProvider{name: "openai", available: true, responses: []string{validEnrichment}}
	r := NewRouter([]ChatProvider{first, second})

	cluster, members := testCluster()
	enrichment, provider := r.Summarize(context.Background(), cluster, members)

	assert.Equal(t, "anthropic", provider)
	assert.True(t, enrichment.AIGenerated)
	assert.Equal(t, "Two outlets report the budget bill passed.", enrichment.Summary)
	assert.Len(t, enrichment.KeyPoints, 2)
	assert.Zero(t, second.calls)
}

func TestSummarize_MalformedResponseRetriesStricterThenFallsThrough(t *testing.T) {
	broken := &fakeChatProvider{name: "anthropic", available: true,
		responses: []string{"so, about that story...", `{"summary": ""}`}}
	healthy := &fakeChatProvider{name: "openai", available: true, responses: []string{validEnrichment}}
	r := NewRouter([]ChatProvider{broken, healthy})

	cluster, members := testCluster()
	enrichment, provider := r.Summarize(context.Background(), cluster, members)

	assert.Equal(t, 2, broken.calls, "exactly one stricter retry before moving on")
	require.Len(t, broken.prompts, 2)
	assert.NotContains(t, broken.prompts[0].SystemPrompt, "IMPORTANT")
	assert.Contains(t, broken.prompts[1].SystemPrompt, "IMPORTANT")

	assert.Equal(t, "openai", provider)
	assert.True(t, enrichment.AIGenerated)
}

func TestSummarize_AllBackendsDownYieldsDeterministicFallback(t *testing.T) {
	down := &fakeChatProvider{name: "anthropic", available: true, err: errors.New("overloaded")}
	r := NewRouter([]ChatProvider{down})

	cluster, members := testCluster()
	enrichment, provider := r.Summarize(context.Background(), cluster, members)

	assert.Equal(t, FallbackProviderName, provider)
	assert.False(t, enrichment.AIGenerated)
	assert.NotEmpty(t, enrichment.Summary)
	assert.NotEmpty(t, enrichment.KeyPoints)
	assert.NotEmpty(t, enrichment.WhyTrending)
}

func TestSummarize_UnconfiguredProviderSkippedWithoutPenalty(t *testing.T) {
	unconfigured := &fakeChatProvider{name: "anthropic", available: false}
	healthy := &fakeChatProvider{name: "openai", available: true, responses: []string{validEnrichment}}
	r := NewRouter([]ChatProvider{unconfigured, healthy})

	cluster, members := testCluster()
	_, provider := r.Summarize(context.Background(), cluster, members)

	assert.Equal(t, "openai", provider)
	assert.Zero(t, unconfigured.calls)
	assert.NotContains(t, r.Statuses(), "anthropic/summarize")
}

func TestSummarize_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	flaky := &fakeChatProvider{name: "anthropic", available: true, err: errors.New("rate limited")}
	healthy := &fakeChatProvider{name: "openai", available: true, responses: []string{validEnrichment}}
	r := NewRouter([]ChatProvider{flaky, healthy})

	cluster, members := testCluster()
	for range 5 {
		_, provider := r.Summarize(context.Background(), cluster, members)
		assert.Equal(t, "openai", provider)
	}

	// Three real failures trip the circuit; the remaining walks skip it.
	assert.Equal(t, 3, flaky.calls)
}

func TestSummarize_FencedJSONAccepted(t *testing.T) {
	fenced := &fakeChatProvider{name: "anthropic", available: true,
		responses: []string{"```json\n" + validEnrichment + "\n```"}}
	r := NewRouter([]ChatProvider{fenced})

	cluster, members := testCluster()
	enrichment, provider := r.Summarize(context.Background(), cluster, members)

	assert.Equal(t, "anthropic", provider)
	assert.True(t, enrichment.AIGenerated)
	assert.Equal(t, 1, fenced.calls)
}

func TestExplain_FallbackCarriesTimelineAndSources(t *testing.T) {
	r := NewRouter(nil)

	cluster, members := testCluster()
	explanation := r.Explain(context.Background(), cluster, members)

	assert.False(t, explanation.AIGenerated)
	assert.Equal(t, FallbackProviderName, explanation.Provider)
	assert.NotEmpty(t, explanation.Explanation)
	assert.Len(t, explanation.Timeline, 2)
	assert.Equal(t, cluster.Sources, explanation.Sources)
}

type fakeEmbedder struct {
	vec          []float32
	err          error
	lastArticle  domain.Article
	articleCalls int
}

func (f *fakeEmbedder) Name() string    { return "ollama" }
func (f *fakeEmbedder) Available() bool { return true }

func (f *fakeEmbedder) EmbedArticle(_ context.Context, article domain.Article) ([]float32, error) {
	f.lastArticle = article
	f.articleCalls++
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

func TestEmbed_UsesRealEmbedderWhenHealthy(t *testing.T) {
	r := NewRouter(nil, WithEmbedder(&fakeEmbedder{vec: []float32{0.1, 0.2}}))

	vec, provider := r.Embed(context.Background(), "Senate Passes Budget Bill")

	assert.Equal(t, "ollama", provider)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestEmbed_FailureDegradesToPseudoEmbedding(t *testing.T) {
	r := NewRouter(nil, WithEmbedder(&fakeEmbedder{err: errors.New("model not loaded")}))

	vec, provider := r.Embed(context.Background(), "Senate Passes Budget Bill")

	assert.Equal(t, FallbackProviderName, provider)
	assert.Len(t, vec, PseudoEmbeddingDim)
}

type blockingProvider struct {
	calls int
}

func (b *blockingProvider) Name() string    { return "anthropic" }
func (b *blockingProvider) Available() bool { return true }

func (b *blockingProvider) Generate(ctx context.Context, _ Request) (Response, error) {
	b.calls++
	<-ctx.Done()
	return Response{}, ctx.Err()
}

func TestSummarize_CallTimeoutBoundsHangingProvider(t *testing.T) {
	hung := &blockingProvider{}
	r := NewRouter([]ChatProvider{hung}, WithCallTimeout(20*time.Millisecond))

	cluster, members := testCluster()
	enrichment, provider := r.Summarize(context.Background(), cluster, members)

	assert.Equal(t, FallbackProviderName, provider)
	assert.False(t, enrichment.AIGenerated)
	assert.Equal(t, 1, hung.calls, "a timeout is a hard failure, not a malformed response to retry")
}

func TestSummarize_BreakerOptionsTuneTripThreshold(t *testing.T) {
	flaky := &fakeChatProvider{name: "anthropic", available: true, err: errors.New("upstream 500")}
	r := NewRouter([]ChatProvider{flaky}, WithBreakerOptions(breaker.WithThreshold(1)))

	cluster, members := testCluster()

	_, provider := r.Summarize(context.Background(), cluster, members)
	assert.Equal(t, FallbackProviderName, provider)
	assert.Equal(t, 1, flaky.calls)

	_, provider = r.Summarize(context.Background(), cluster, members)
	assert.Equal(t, FallbackProviderName, provider)
	assert.Equal(t, 1, flaky.calls, "single failure opened the circuit, second walk skips the provider")
}

func TestEmbedArticle_PassesFullArticleToBackend(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2}}
	r := NewRouter(nil, WithEmbedder(embedder))

	a := domain.Article{
		Title:      "Senate Passes Budget Bill",
		RawSnippet: "The Senate approved the budget. The vote was close.",
	}
	vec, provider := r.EmbedArticle(context.Background(), a)

	assert.Equal(t, "ollama", provider)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, 1, embedder.articleCalls)
	assert.Equal(t, a.RawSnippet, embedder.lastArticle.RawSnippet, "backend sees the snippet, not just the title")
}

func TestEmbedArticle_FallbackHashesTitleOnly(t *testing.T) {
	r := NewRouter(nil) // no embedder configured

	a := domain.Article{
		Title:      "Senate Passes Budget Bill",
		RawSnippet: "The Senate approved the budget.",
	}
	vec, provider := r.EmbedArticle(context.Background(), a)

	assert.Equal(t, FallbackProviderName, provider)
	assert.Equal(t, PseudoEmbedding(a.Title), vec)
}

func TestPseudoEmbedding_DeterministicAndNormalized(t *testing.T) {
	a := PseudoEmbedding("Senate Passes Budget Bill")
	b := PseudoEmbedding("Senate Passes Budget Bill")
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	assert.Len(t, PseudoEmbedding(""), PseudoEmbeddingDim)
}

func TestFirstSentences(t *testing.T) {
	text := "One. Two! Three? Four."
	assert.Equal(t, "One. Two!", firstSentences(text, 2))
	assert.Equal(t, text, firstSentences(text, 10))
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("Sure thing:\n```json\n{\"a\":1}\n```\ndone"))
	assert.Equal(t, "no json here", extractJSON("no json here"))
}

func TestDistinctTitles_DedupsNormalizedDuplicates(t *testing.T) {
	_, members := testCluster()
	titles := distinctTitles(members, 5)
	assert.Len(t, titles, 2, "titles differing only by stop words are still distinct strings")
	assert.True(t, strings.HasPrefix(titles[0], "Senate"))
}
