package clustering

import (
	"math"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

// Similarity scores how well an article fits an existing cluster. The two
// implementations (lexical titles, embedding centroids) are interchangeable;
// the engine picks whichever the article's data supports.
type Similarity interface {
	Name() string
	// Score returns the similarity and whether this strategy applies to the
	// pair at all (embeddings may be missing).
	Score(article domain.Article, cluster domain.Cluster) (float64, bool)
	// Threshold is the inclusive match cutoff tuned for this metric.
	Threshold() float64
}

const (
	// LexicalThreshold matches near-identical headlines from different outlets.
	LexicalThreshold = 0.75
	// EmbeddingThreshold is tuned for cosine over title+snippet embeddings.
	EmbeddingThreshold = 0.82
)

// LexicalSimilarity compares normalized titles by longest-common-subsequence
// ratio: 2*LCS(a,b) / (len(a)+len(b)).
type LexicalSimilarity struct {
	threshold float64
}

func NewLexicalSimilarity() *LexicalSimilarity {
	return &LexicalSimilarity{threshold: LexicalThreshold}
}

func (s *LexicalSimilarity) Name() string { return "lexical" }

func (s *LexicalSimilarity) Threshold() float64 { return s.threshold }

func (s *LexicalSimilarity) Score(article domain.Article, cluster domain.Cluster) (float64, bool) {
	a := domain.NormalizeTitle(article.Title)
	b := domain.NormalizeTitle(cluster.CanonicalTitle)
	return lcsRatio(a, b), true
}

// lcsRatio computes 2*LCS/(len(a)+len(b)) over runes. Titles are short, so
// the quadratic table stays small.
func lcsRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		if len(ra) == 0 && len(rb) == 0 {
			return 1.0
		}
		return 0.0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(rb)]
	return float64(2*lcs) / float64(len(ra)+len(rb))
}

// EmbeddingSimilarity compares an article's embedding against the cluster
// centroid by cosine similarity. Applies only when both vectors exist.
type EmbeddingSimilarity struct {
	threshold float64
}

func NewEmbeddingSimilarity() *EmbeddingSimilarity {
	return &EmbeddingSimilarity{threshold: EmbeddingThreshold}
}

func (s *EmbeddingSimilarity) Name() string { return "embedding" }

func (s *EmbeddingSimilarity) Threshold() float64 { return s.threshold }

func (s *EmbeddingSimilarity) Score(article domain.Article, cluster domain.Cluster) (float64, bool) {
	if len(article.Embedding) == 0 || len(cluster.Centroid) == 0 {
		return 0, false
	}
	return CosineSimilarity(article.Embedding, cluster.Centroid), true
}

// CosineSimilarity computes similarity between two embeddings.
// Returns 0 for mismatched lengths or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// IncrementalCentroid computes (old*n + v) / (n+1), the running-mean update
// applied when a cluster gains a member with an embedding.
func IncrementalCentroid(old, v []float32, n int) []float32 {
	if n <= 0 || len(old) == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	result := make([]float32, len(old))
	nf := float32(n)
	for i := range old {
		result[i] = (old[i]*nf + v[i]) / (nf + 1)
	}
	return result
}
