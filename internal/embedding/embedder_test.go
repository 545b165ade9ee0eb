package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/news-pulse/internal/domain"
)

type fakeClient struct {
	lastReq  Request
	response Response
}

func (f *fakeClient) Generate(_ context.Context, req Request) (*Response, error) {
	f.lastReq = req
	return &f.response, nil
}

func TestEmbedArticle_PromptPutsTitleLast(t *testing.T) {
	client := &fakeClient{response: Response{Embedding: []float32{0.1, 0.2}}}
	embedder := NewEmbedder(client, WithModel("test-model"))

	_, err := embedder.EmbedArticle(context.Background(), domain.Article{
		Title:      "Senate Passes Budget Bill",
		RawSnippet: "The Senate approved the budget.",
	})
	require.NoError(t, err)

	assert.Equal(t, "test-model", client.lastReq.Model)
	assert.Equal(t, "The Senate approved the budget.\nSenate Passes Budget Bill", client.lastReq.Prompt)
}

func TestEmbedText_TruncatesToMaxLength(t *testing.T) {
	client := &fakeClient{response: Response{Embedding: []float32{1, 2, 3, 4}}}
	embedder := NewEmbedder(client, WithMaxLength(2))

	vec, err := embedder.EmbedText(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, []float32{1, 2}, vec)
}
