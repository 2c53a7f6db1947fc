package judge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type OpenAIJudge struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIJudge(cfg OpenAIConfig) (*OpenAIJudge, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIJudge{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
	}, nil
}

func (j *OpenAIJudge) Name() string {
	return ProviderOpenAI + ":" + j.model
}

func (j *OpenAIJudge) Choose(ctx context.Context, req Request) (Verdict, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return Verdict{}, err
	}

	requestCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	resp, err := j.client.CreateChatCompletion(requestCtx, openai.ChatCompletionRequest{
		Model: j.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("OpenAI chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: no choices in response", ErrMalformedVerdict)
	}

	return ParseVerdict(resp.Choices[0].Message.Content, len(req.Candidates))
}
