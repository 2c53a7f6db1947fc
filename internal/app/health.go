package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/philo-kim/moniterdc-sub001/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 5*time.Second, "Database ping timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, ok := bootstrap(ctx, "health", envLoader)
	if !ok {
		return 1
	}
	defer rt.Close()

	var vectorVersion string
	if err := rt.pool.QueryRow(ctx, `SELECT extversion FROM pg_extension WHERE extname = 'vector'`).Scan(&vectorVersion); err != nil {
		rt.logger.Error().Err(err).Msg("pgvector extension check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: pgvector extension missing: %v\n", err)
		return 1
	}

	rt.logger.Info().
		Dur("timeout", *timeout).
		Str("pgvector", vectorVersion).
		Str("embedding_provider", rt.cfg.EmbeddingProviderName()).
		Str("judge_provider", rt.cfg.JudgeProviderName()).
		Msg("database health check passed")
	fmt.Printf("ok: database ping successful pgvector=%s\n", vectorVersion)
	return 0
}
