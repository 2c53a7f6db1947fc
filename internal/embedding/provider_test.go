package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type countingProvider struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (p *countingProvider) Name() string { return "fake" }

func (p *countingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]string(nil), texts...))
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func TestCachedOnlyRequestsMisses(t *testing.T) {
	t.Parallel()

	next := &countingProvider{}
	cached := NewCached(next, 0)

	first, err := cached.Embed(context.Background(), []string{"a", "bb"})
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := cached.Embed(context.Background(), []string{"bb", "ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 1}, second[0])
	assert.Equal(t, []float32{3, 1}, second[1])
	assert.Equal(t, []float32{1, 1}, second[2])

	require.Len(t, next.calls, 2)
	assert.Equal(t, []string{"ccc"}, next.calls[1])
	assert.Equal(t, 3, cached.Len())
}

func TestCachedPropagatesErrors(t *testing.T) {
	t.Parallel()

	next := &countingProvider{err: errors.New("boom")}
	_, err := NewCached(next, 0).Embed(context.Background(), []string{"a"})
	assert.EqualError(t, err, "boom")
}

func TestLimitedHonoursContext(t *testing.T) {
	t.Parallel()

	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	limited := NewLimited(&countingProvider{}, limiter)

	_, err := limited.Embed(context.Background(), []string{"a"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = limited.Embed(ctx, []string{"b"})
	assert.Error(t, err)
}

func TestEmbedOne(t *testing.T) {
	t.Parallel()

	v, err := EmbedOne(context.Background(), &countingProvider{}, "abcd")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 1}, v)
}

func TestOpenAIProviderEmbed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultOpenAIModel, req["model"])

		_ = json.NewEncoder(w).Encode(openai.EmbeddingResponse{
			Object: "list",
			Data: []openai.Embedding{
				{Object: "embedding", Index: 1, Embedding: []float32{0, 1}},
				{Object: "embedding", Index: 0, Embedding: []float32{1, 0}},
			},
			Model: openai.SmallEmbedding3,
		})
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})
	require.NoError(t, err)

	vectors, err := p.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestOpenAIProviderRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIProvider(OpenAIConfig{})
	assert.Error(t, err)
}

func TestNewUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Provider: "word2vec"})
	assert.Error(t, err)

	p, err := New(Config{Provider: "http", Endpoint: "http://localhost:1"})
	require.NoError(t, err)
	assert.Equal(t, "http", p.Name())
}
