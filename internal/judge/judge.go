package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderNone   = "none"

	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3.1"
)

var (
	ErrMalformedVerdict = errors.New("malformed judge verdict")
	ErrIndexOutOfRange  = errors.New("judge index out of range")
	ErrNoCandidates     = errors.New("judge request has no candidates")
)

type Candidate struct {
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type Request struct {
	ItemID     string
	Text       string
	Candidates []Candidate
}

type Verdict struct {
	Index      int
	Confidence float64
	Reason     string
}

// Judge picks the candidate that best explains a text.
type Judge interface {
	Name() string
	Choose(ctx context.Context, req Request) (Verdict, error)
}

type Config struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	OllamaBaseURL string
	Timeout       time.Duration
	Limiter       *rate.Limiter
}

// New returns the configured judge, or nil when judging is disabled.
func New(cfg Config) (Judge, error) {
	var (
		j   Judge
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderNone:
		return nil, nil
	case "", ProviderOpenAI:
		j, err = NewOpenAIJudge(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case ProviderOllama:
		j, err = NewOllamaJudge(OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown judge provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Limiter != nil {
		j = &limited{next: j, limiter: cfg.Limiter}
	}
	return j, nil
}

type limited struct {
	next    Judge
	limiter *rate.Limiter
}

func (l *limited) Name() string {
	return l.next.Name()
}

func (l *limited) Choose(ctx context.Context, req Request) (Verdict, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return Verdict{}, fmt.Errorf("judge rate limiter: %w", err)
	}
	return l.next.Choose(ctx, req)
}
