package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	DefaultHTTPEndpoint  = "http://127.0.0.1:8844/embed"
	DefaultHTTPMaxLength = 512
)

type HTTPConfig struct {
	Endpoint  string
	Model     string
	MaxLength int
	Timeout   time.Duration
	Client    *http.Client
}

// HTTPProvider talks to a self-hosted embedding server exposing either
// POST /embed {texts} or an OpenAI-compatible POST /v1/embeddings {input}.
type HTTPProvider struct {
	endpoint  string
	model     string
	maxLength int
	timeout   time.Duration
	client    *http.Client
}

type httpEmbedRequest struct {
	Texts     []string `json:"texts,omitempty"`
	Input     []string `json:"input,omitempty"`
	Model     string   `json:"model,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
}

type httpEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Data       []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	maxLength := cfg.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultHTTPMaxLength
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProvider{
		endpoint:  normalizeEndpoint(cfg.Endpoint),
		model:     strings.TrimSpace(cfg.Model),
		maxLength: maxLength,
		timeout:   timeout,
		client:    client,
	}
}

func (p *HTTPProvider) Name() string {
	if p.model == "" {
		return ProviderHTTP
	}
	return ProviderHTTP + ":" + p.model
}

func (p *HTTPProvider) Endpoint() string {
	return p.endpoint
}

func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateInput(texts); err != nil {
		return nil, err
	}

	payload := httpEmbedRequest{
		Texts:     texts,
		MaxLength: p.maxLength,
	}
	if isOpenAICompatible(p.endpoint) {
		payload = httpEmbedRequest{
			Input: texts,
			Model: p.model,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding service status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed httpEmbedResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	vectors := parsed.Embeddings
	if len(vectors) == 0 && len(parsed.Data) > 0 {
		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		vectors = make([][]float32, 0, len(parsed.Data))
		for _, row := range parsed.Data {
			vectors = append(vectors, row.Embedding)
		}
	}
	if err := checkResponse(len(texts), vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func isOpenAICompatible(endpoint string) bool {
	parsed, err := url.Parse(endpoint)
	return err == nil && strings.HasSuffix(parsed.Path, "/v1/embeddings")
}

func normalizeEndpoint(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DefaultHTTPEndpoint
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/embed"
	}
	return parsed.String()
}
