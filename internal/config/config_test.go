package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		DatabaseURL:               "postgres://localhost/worldview",
		DBMinConns:                1,
		DBMaxConns:                4,
		OpenAIAPIKey:              "sk-test",
		EmbeddingProvider:         "openai",
		JudgeProvider:             "openai",
		ProviderRequestsPerSecond: 5,
		ProviderBurst:             5,
		ProviderTimeout:           30 * time.Second,
		SimilarityThreshold:       0.5,
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cases := map[string]func(*Config){
		"missing database":   func(c *Config) { c.DatabaseURL = " " },
		"min over max":       func(c *Config) { c.DBMinConns = 9 },
		"unknown embedder":   func(c *Config) { c.EmbeddingProvider = "word2vec" },
		"unknown judge":      func(c *Config) { c.JudgeProvider = "oracle" },
		"missing openai key": func(c *Config) { c.OpenAIAPIKey = "" },
		"threshold zero":     func(c *Config) { c.SimilarityThreshold = 0 },
		"threshold above 1":  func(c *Config) { c.SimilarityThreshold = 1.2 },
		"zero burst":         func(c *Config) { c.ProviderBurst = 0 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestValidateOllamaWithoutKey(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.OpenAIAPIKey = ""
	cfg.EmbeddingProvider = "Ollama"
	cfg.JudgeProvider = "none"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected ollama config without key to validate, got %v", err)
	}
}

func TestParseTuning(t *testing.T) {
	t.Parallel()

	raw := []byte(`
hierarchy:
  subject_weight: 0.5
  object_credit: 0.2
  top_n: 5
cluster:
  strategy: keyword
  min_shared_keywords: 3
`)
	tuning, err := ParseTuning(raw)
	if err != nil {
		t.Fatalf("parse tuning: %v", err)
	}
	if tuning.Hierarchy.SubjectWeight != 0.5 || tuning.Hierarchy.TopN != 5 {
		t.Fatalf("unexpected hierarchy tuning: %+v", tuning.Hierarchy)
	}
	if tuning.Cluster.Strategy != "keyword" || tuning.Cluster.MinSharedKeywords != 3 {
		t.Fatalf("unexpected cluster tuning: %+v", tuning.Cluster)
	}

	if _, err := ParseTuning([]byte("hierarchy:\n  subject_wieght: 1\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := ParseTuning([]byte("hierarchy:\n  object_credit: 3\n")); err == nil {
		t.Fatalf("expected range error")
	}
	if _, err := ParseTuning(nil); err != nil {
		t.Fatalf("expected empty tuning to parse, got %v", err)
	}
}

func TestLoadTuning(t *testing.T) {
	t.Parallel()

	if tuning, err := LoadTuning(""); err != nil || tuning != (Tuning{}) {
		t.Fatalf("expected zero tuning for empty path, got %+v %v", tuning, err)
	}

	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("cluster:\n  threshold: 0.55\n"), 0o600); err != nil {
		t.Fatalf("write tuning: %v", err)
	}
	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if tuning.Cluster.Threshold != 0.55 {
		t.Fatalf("unexpected threshold %f", tuning.Cluster.Threshold)
	}
}
