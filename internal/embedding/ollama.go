package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms/ollama"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type OllamaProvider struct {
	llm   *ollama.LLM
	model string
}

func NewOllamaProvider(cfg OllamaConfig) (*OllamaProvider, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOllamaModel
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("initialize ollama embedder: %w", err)
	}

	return &OllamaProvider{
		llm:   llm,
		model: model,
	}, nil
}

func (p *OllamaProvider) Name() string {
	return ProviderOllama + ":" + p.model
}

func (p *OllamaProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInput(texts); err != nil {
		return nil, err
	}
	vectors, err := p.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings request: %w", err)
	}
	if err := checkResponse(len(texts), vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}
