// Package embedding turns articles into fixed-dimension vectors for the
// semantic clustering strategy, backed by a local Ollama model.
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

type Embedder struct {
	maxLength *int
	model     string

	client Client
}

type EmbedderOption func(*Embedder)

func NewEmbedder(client Client, opts ...EmbedderOption) *Embedder {
	base := &Embedder{
		model:  defaultModel,
		client: client,
	}

	for _, opt := range opts {
		opt(base)
	}

	return base
}

func WithModel(model string) EmbedderOption {
	return func(e *Embedder) {
		e.model = model
	}
}

func WithMaxLength(length int) EmbedderOption {
	return func(e *Embedder) {
		e.maxLength = &length
	}
}

func (e *Embedder) Name() string { return "ollama" }

func (e *Embedder) Available() bool { return e.client != nil }

// EmbedArticle embeds the article's title and snippet.
func (e *Embedder) EmbedArticle(ctx context.Context, ar domain.Article) ([]float32, error) {
	slog.Debug("Embedding article", "title", ar.Title)
	return e.EmbedText(ctx, articlePrompt(ar))
}

func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	embed, err := e.client.Generate(ctx, Request{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, err
	}

	vec := embed.Embedding
	if e.maxLength != nil && len(vec) > *e.maxLength {
		vec = vec[:*e.maxLength]
	}

	slog.Debug("Generated embedding", "embedding_length", len(vec), "model", e.model)
	return vec, nil
}

func articlePrompt(ar domain.Article) string {
	snippet, title := strings.TrimSpace(ar.RawSnippet), strings.TrimSpace(ar.Title)
	// prop with higher weight must be at the end (qwen)
	return fmt.Sprintf("%s\n%s", snippet, title)
}
