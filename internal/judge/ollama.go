package judge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	lcschema "github.com/tmc/langchaingo/schema"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OllamaJudge struct {
	llm     llms.Model
	model   string
	timeout time.Duration
}

func NewOllamaJudge(cfg OllamaConfig) (*OllamaJudge, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOllamaModel
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = DefaultOllamaBaseURL
	}

	llm, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize ollama judge: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OllamaJudge{
		llm:     llm,
		model:   model,
		timeout: timeout,
	}, nil
}

func (j *OllamaJudge) Name() string {
	return ProviderOllama + ":" + j.model
}

func (j *OllamaJudge) Choose(ctx context.Context, req Request) (Verdict, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Verdict{}, err
	}

	content := []llms.MessageContent{
		llms.TextParts(lcschema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(lcschema.ChatMessageTypeHuman, prompt),
	}
	requestCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	resp, err := j.llm.GenerateContent(requestCtx, content, llms.WithTemperature(0))
	if err != nil {
		return Verdict{}, fmt.Errorf("ollama chat: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: no choices in response", ErrMalformedVerdict)
	}

	return ParseVerdict(resp.Choices[0].Content, len(req.Candidates))
}
