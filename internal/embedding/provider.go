package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderHTTP   = "http"

	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "nomic-embed-text:latest"
)

var ErrEmptyInput = errors.New("embedding input is empty")

// Provider turns texts into vectors, one per input, in input order.
type Provider interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne is a convenience for single-text requests.
func EmbedOne(ctx context.Context, p Provider, text string) ([]float32, error) {
	if p == nil {
		return nil, fmt.Errorf("embedding provider is nil")
	}
	vectors, err := p.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding response count mismatch: requested=1 returned=%d", len(vectors))
	}
	return vectors[0], nil
}

func checkResponse(requested int, vectors [][]float32) error {
	if len(vectors) != requested {
		return fmt.Errorf("embedding response count mismatch: requested=%d returned=%d", requested, len(vectors))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("embedding %d is empty", i)
		}
		for j, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return fmt.Errorf("embedding %d has non-finite value at index %d", i, j)
			}
		}
	}
	return nil
}

func validateInput(texts []string) error {
	if len(texts) == 0 {
		return ErrEmptyInput
	}
	return nil
}
