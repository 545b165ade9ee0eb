package clustering

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
	"github.com/DjordjeVuckovic/news-pulse/internal/storage/in_mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCSRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "senate passes budget bill", b: "senate passes budget bill", want: 1.0},
		{name: "empty both", a: "", b: "", want: 1.0},
		{name: "one empty", a: "headline", b: "", want: 0.0},
		{name: "disjoint", a: "zzzz", b: "qqqq", want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, lcsRatio(tt.a, tt.b), 1e-9)
		})
	}
}

func TestLexicalSimilarity_CaseAndPunctuationInsensitive(t *testing.T) {
	s := NewLexicalSimilarity()

	article := domain.Article{Title: "Senate passes the budget bill"}
	cluster := domain.Cluster{CanonicalTitle: "Senate Passes Budget Bill"}

	score, ok := s.Score(article, cluster)
	require.True(t, ok)
	assert.Greater(t, score, 0.9, "near-identical headlines must score well above threshold")
	assert.GreaterOrEqual(t, score, s.Threshold())
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1.0},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0.0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1.0},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0.0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func TestIncrementalCentroid(t *testing.T) {
	first := IncrementalCentroid(nil, []float32{2, 4}, 0)
	assert.Equal(t, []float32{2, 4}, first)

	second := IncrementalCentroid(first, []float32{4, 8}, 1)
	assert.Equal(t, []float32{3, 6}, second)
}

func newTestEngine(t *testing.T, opts ...EngineOption) (*Engine, *in_mem.Store) {
	t.Helper()
	store := in_mem.NewStore()
	return NewEngine(store, opts...), store
}

func article(title, category string) domain.Article {
	ts := time.Now().UTC()
	a := domain.Article{
		Source:      "Test Wire",
		Provider:    "test",
		Title:       title,
		Category:    category,
		Country:     "US",
		PublishedAt: &ts,
		FetchedAt:   ts,
	}
	a.EnsureHash()
	return a
}

func TestEngine_SimilarTitlesShareCluster(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Assign(ctx, article("Senate Passes Budget Bill", "politics"))
	require.NoError(t, err)

	a2 := article("Senate passes the budget bill", "politics")
	a2.Source = "Other Wire"
	second, err := engine.Assign(ctx, a2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_ConcurrentAssignsOfSameStoryShareCluster(t *testing.T) {
	ctx := context.Background()

	for round := 0; round < 50; round++ {
		engine, store := newTestEngine(t)

		a1 := article("Senate Passes Budget Bill", "general")
		a2 := article("Senate passes the budget bill", "general")
		a2.Source = "Other Wire"

		start := make(chan struct{})
		ids := make(chan int64, 2)
		var wg sync.WaitGroup
		for _, a := range []domain.Article{a1, a2} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				id, err := engine.Assign(ctx, a)
				assert.NoError(t, err)
				ids <- id
			}()
		}
		close(start)
		wg.Wait()
		close(ids)

		first := <-ids
		assert.Equal(t, first, <-ids, "round %d: same story split into two clusters", round)

		clusters, err := store.ClustersByCategorySince(ctx, "general", time.Time{}, 0)
		require.NoError(t, err)
		assert.Len(t, clusters, 1, "round %d", round)
	}
}

func TestEngine_DifferentStoriesGetDifferentClusters(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Assign(ctx, article("Senate Passes Budget Bill", "politics"))
	require.NoError(t, err)

	second, err := engine.Assign(ctx, article("Volcano Erupts in Iceland Overnight", "politics"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEngine_CategoryRestrictsCandidates(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Assign(ctx, article("Senate Passes Budget Bill", "politics"))
	require.NoError(t, err)

	second, err := engine.Assign(ctx, article("Senate Passes Budget Bill", "economy"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "same headline in another category is another story slot")
}

func TestEngine_CanonicalTitleFirstSeenWins(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	id, err := engine.Assign(ctx, article("Senate Passes Budget Bill", "politics"))
	require.NoError(t, err)
	_, err = engine.Assign(ctx, article("Senate passes the budget bill today", "politics"))
	require.NoError(t, err)

	cluster, err := store.GetCluster(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Senate Passes Budget Bill", cluster.CanonicalTitle)
	assert.Equal(t, 2, cluster.ArticleCount)
}

// thresholdSimilarity pins scores so the inclusive-threshold boundary and
// tie-breaking can be tested exactly.
type thresholdSimilarity struct {
	scores map[int64]float64
}

func (s *thresholdSimilarity) Name() string       { return "pinned" }
func (s *thresholdSimilarity) Threshold() float64 { return 0.75 }

func (s *thresholdSimilarity) Score(_ domain.Article, c domain.Cluster) (float64, bool) {
	score, ok := s.scores[c.ID]
	return score, ok
}

func TestEngine_ThresholdIsInclusive(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()

	seed := &domain.Cluster{CanonicalTitle: "Seed", TopCategory: "general", LastUpdated: time.Now().UTC()}
	require.NoError(t, store.CreateCluster(ctx, seed))
	require.NoError(t, store.AppendMember(ctx, seed.ID, article("Seed", "general")))

	pinned := &thresholdSimilarity{scores: map[int64]float64{seed.ID: 0.75}}
	engine := NewEngine(store, WithSimilarities(pinned, nil))

	id, err := engine.Assign(ctx, article("Exactly at threshold", "general"))
	require.NoError(t, err)
	assert.Equal(t, seed.ID, id, "a score exactly at the threshold is a match")
}

func TestEngine_TieBreaksToLowestClusterID(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"First", "Second"} {
		c := &domain.Cluster{CanonicalTitle: title, TopCategory: "general", LastUpdated: time.Now().UTC()}
		require.NoError(t, store.CreateCluster(ctx, c))
		require.NoError(t, store.AppendMember(ctx, c.ID, article(title, "general")))
		ids = append(ids, c.ID)
	}

	pinned := &thresholdSimilarity{scores: map[int64]float64{ids[0]: 0.9, ids[1]: 0.9}}
	engine := NewEngine(store, WithSimilarities(pinned, nil))

	id, err := engine.Assign(ctx, article("Tied article", "general"))
	require.NoError(t, err)
	assert.Equal(t, ids[0], id)
}

func TestEngine_EmbeddingPreferredOverLexical(t *testing.T) {
	store := in_mem.NewStore()
	ctx := context.Background()

	// Lexically distant cluster that is embedding-close.
	c := &domain.Cluster{
		CanonicalTitle: "Completely different words here",
		TopCategory:    "general",
		LastUpdated:    time.Now().UTC(),
		Centroid:       []float32{1, 0, 0},
	}
	require.NoError(t, store.CreateCluster(ctx, c))
	require.NoError(t, store.AppendMember(ctx, c.ID, article("Completely different words here", "general")))

	engine := NewEngine(store)

	a := article("Senate Passes Budget Bill", "general")
	a.Embedding = []float32{0.99, 0.01, 0}

	id, err := engine.Assign(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, c.ID, id)
}

func TestEngine_FallsBackToLexicalWithoutEmbedding(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	// No embeddings anywhere: assignments must still cluster lexically.
	first, err := engine.Assign(ctx, article("Markets Rally After Rate Cut", "finance"))
	require.NoError(t, err)
	second, err := engine.Assign(ctx, article("Markets rally after rate cut!", "finance"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
