package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/philo-kim/moniterdc-sub001/internal/cli"
	"github.com/philo-kim/moniterdc-sub001/internal/config"
	"github.com/philo-kim/moniterdc-sub001/internal/db"
	"github.com/philo-kim/moniterdc-sub001/internal/embedding"
	"github.com/philo-kim/moniterdc-sub001/internal/judge"
	"github.com/philo-kim/moniterdc-sub001/internal/logging"
	"github.com/philo-kim/moniterdc-sub001/internal/pipeline"
)

// runtime is what every batch command sets up before doing work.
type runtime struct {
	cfg    *config.Config
	tuning config.Tuning
	logger zerolog.Logger
	pool   *db.Pool
}

func (r *runtime) Close() {
	if r != nil && r.pool != nil {
		_ = r.pool.Close()
	}
}

// bootstrap loads .env, config, the tuning file, and the logger, then
// connects to the database. Errors are already printed.
func bootstrap(ctx context.Context, command string, envLoader *cli.EnvLoader) (*runtime, bool) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, false
	}

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load tuning file: %v\n", err)
		return nil, false
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return nil, false
	}
	logger = logger.With().Str("command", command).Logger()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return nil, false
	}

	return &runtime{cfg: cfg, tuning: tuning, logger: logger, pool: pool}, true
}

// providers builds the embedding provider and judge from config. Both share
// one limiter so the combined request rate stays within PROVIDER_* limits.
func providers(cfg *config.Config, withJudge bool) (embedding.Provider, judge.Judge, error) {
	limiter := embedding.NewLimiter(cfg.ProviderRequestsPerSecond, cfg.ProviderBurst)

	embedder, err := embedding.New(embedding.Config{
		Provider:      cfg.EmbeddingProviderName(),
		Model:         cfg.EmbeddingModel,
		APIKey:        cfg.OpenAIAPIKey,
		BaseURL:       cfg.OpenAIBaseURL,
		OllamaBaseURL: cfg.OllamaBaseURL,
		Endpoint:      cfg.EmbeddingEndpoint,
		Timeout:       cfg.ProviderTimeout,
		CacheTTL:      cfg.EmbeddingCacheTTL,
		Limiter:       limiter,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("embedding provider: %w", err)
	}
	if !withJudge {
		return embedder, nil, nil
	}

	j, err := judge.New(judge.Config{
		Provider:      cfg.JudgeProviderName(),
		Model:         cfg.JudgeModel,
		APIKey:        cfg.OpenAIAPIKey,
		BaseURL:       cfg.OpenAIBaseURL,
		OllamaBaseURL: cfg.OllamaBaseURL,
		Timeout:       cfg.ProviderTimeout,
		Limiter:       limiter,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("judge provider: %w", err)
	}
	return embedder, j, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// progressFunc returns a pipeline.Progress drawing a bar on stderr, or nil
// when disabled. The bar is created lazily because totals are only known
// once the run has loaded its rows.
func progressFunc(enabled bool, description string) (pipeline.Progress, func()) {
	if !enabled {
		return nil, func() {}
	}
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil || bar.GetMax() != total {
			bar = getProgressBar(total, description)
		}
		_ = bar.Set(done)
	}
	finish := func() {
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}
	}
	return progress, finish
}

func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

