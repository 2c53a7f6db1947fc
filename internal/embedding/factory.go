package embedding

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	OllamaBaseURL string
	Endpoint      string
	Timeout       time.Duration
	CacheTTL      time.Duration
	Limiter       *rate.Limiter
}

// New builds the configured provider wrapped with rate limiting and caching.
func New(cfg Config) (Provider, error) {
	var (
		base Provider
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		base, err = NewOpenAIProvider(OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case ProviderOllama:
		base, err = NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.OllamaBaseURL,
			Model:   cfg.Model,
		})
	case ProviderHTTP:
		base = NewHTTPProvider(HTTPConfig{
			Endpoint: cfg.Endpoint,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewCached(NewLimited(base, cfg.Limiter), cfg.CacheTTL), nil
}
