package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/philo-kim/moniterdc-sub001/internal/cli"
	"github.com/philo-kim/moniterdc-sub001/internal/cluster"
	"github.com/philo-kim/moniterdc-sub001/internal/config"
	"github.com/philo-kim/moniterdc-sub001/internal/hierarchy"
	"github.com/philo-kim/moniterdc-sub001/internal/pipeline"
)

func runEmbed(args []string) int {
	fs := flag.NewFlagSet("embed", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	targets := fs.String("targets", string(pipeline.TargetWorldviews), "Comma-separated targets: worldviews, perceptions, logic")
	limit := fs.Int("limit", 0, "Maximum rows to embed per target (0 = all)")
	batchSize := fs.Int("batch-size", pipeline.DefaultEmbedBatchSize, "Embedding request batch size")
	showProgress := fs.Bool("progress", false, "Draw a progress bar on stderr")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
		return 2
	}
	if *batchSize <= 0 {
		fmt.Fprintln(os.Stderr, "--batch-size must be > 0")
		return 2
	}
	parsedTargets, err := pipeline.ParseTargets(*targets)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, ok := bootstrap(ctx, "embed", envLoader)
	if !ok {
		return 1
	}
	defer rt.Close()

	embedder, _, err := providers(rt.cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure providers: %v\n", err)
		return 1
	}

	progress, finish := progressFunc(*showProgress, "embedding")
	svc := pipeline.NewService(rt.pool, embedder, nil, rt.logger)
	result, err := svc.EmbedPending(ctx, pipeline.EmbedOptions{
		Targets:   parsedTargets,
		Limit:     *limit,
		BatchSize: *batchSize,
		Progress:  progress,
	})
	finish()
	if err != nil {
		rt.logger.Error().Err(err).Msg("embed failed")
		fmt.Fprintf(os.Stderr, "Embed failed: %v\n", err)
		return 1
	}

	rt.logger.Info().
		Str("targets", *targets).
		Str("provider", embedder.Name()).
		Int("processed", result.Processed).
		Int("embedded", result.Embedded).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("embed completed")
	fmt.Printf(
		"embed processed=%d embedded=%d skipped=%d failed=%d targets=%s provider=%s\n",
		result.Processed,
		result.Embedded,
		result.Skipped,
		result.Failed,
		*targets,
		embedder.Name(),
	)
	return 0
}

func runMatch(args []string) int {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum perceptions to match (0 = all)")
	threshold := fs.Float64("threshold", 0, "Similarity threshold; 0 uses SIMILARITY_THRESHOLD")
	allWorldviews := fs.Bool("all-worldviews", false, "Match against every non-archived worldview, not only \"parent > child\" titles")
	dryRun := fs.Bool("dry-run", false, "Compute matches without writing links or embeddings")
	showProgress := fs.Bool("progress", false, "Draw a progress bar on stderr")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit < 0 {
		fmt.Fprintln(os.Stderr, "--limit must be >= 0")
		return 2
	}
	if *threshold < 0 || *threshold > 1 {
		fmt.Fprintln(os.Stderr, "--threshold must be within [0,1]")
		return 2
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, ok := bootstrap(ctx, "match", envLoader)
	if !ok {
		return 1
	}
	defer rt.Close()

	embedder, j, err := providers(rt.cfg, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure providers: %v\n", err)
		return 1
	}

	effective := *threshold
	if effective == 0 {
		effective = rt.cfg.SimilarityThreshold
	}

	progress, finish := progressFunc(*showProgress, "matching")
	svc := pipeline.NewService(rt.pool, embedder, j, rt.logger)
	result, err := svc.MatchPending(ctx, pipeline.MatchOptions{
		AllWorldviews: *allWorldviews,
		Limit:         *limit,
		Threshold:     effective,
		DryRun:        *dryRun,
		Progress:      progress,
	})
	finish()
	if err != nil {
		rt.logger.Error().Err(err).Msg("match failed")
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		return 1
	}

	rt.logger.Info().
		Int("perceptions", result.Perceptions).
		Int("worldviews", result.Worldviews).
		Int("embedding_resolved", result.EmbeddingResolved).
		Int("judge_resolved", result.JudgeResolved).
		Int("judge_fallback", result.JudgeFallback).
		Int("failed", result.Failed).
		Int64("links", result.LinksWritten).
		Int("embeddings_stored", result.EmbeddingsStored).
		Float64("threshold", result.Threshold).
		Bool("dry_run", result.DryRun).
		Dur("duration", result.Duration).
		Msg("match completed")
	fmt.Printf(
		"match perceptions=%d worldviews=%d embedding=%d judge=%d judge_fallback=%d failed=%d links=%d threshold=%.3f dry_run=%t\n",
		result.Perceptions,
		result.Worldviews,
		result.EmbeddingResolved,
		result.JudgeResolved,
		result.JudgeFallback,
		result.Failed,
		result.LinksWritten,
		result.Threshold,
		result.DryRun,
	)
	return 0
}

func runHierarchy(args []string) int {
	fs := flag.NewFlagSet("hierarchy", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	limit := fs.Int("limit", 0, "Maximum perceptions to score (0 = all)")
	version := fs.Int("version", pipeline.DefaultHierarchyVersion, "Worldview version to match against")
	minScore := fs.Float64("min-score", 0, "Minimum score; 0 uses the tuning file or default")
	topN := fs.Int("top", 0, "Links kept per perception; 0 uses the tuning file or default")
	dryRun := fs.Bool("dry-run", false, "Score without writing links")
	showProgress := fs.Bool("progress", false, "Draw a progress bar on stderr")
	format := fs.String("format", outputFormatTable, "Breakdown output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *limit < 0 || *topN < 0 {
		fmt.Fprintln(os.Stderr, "--limit and --top must be >= 0")
		return 2
	}
	if *minScore < 0 || *minScore > 1 {
		fmt.Fprintln(os.Stderr, "--min-score must be within [0,1]")
		return 2
	}
	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, ok := bootstrap(ctx, "hierarchy", envLoader)
	if !ok {
		return 1
	}
	defer rt.Close()

	opts := hierarchyOptions(rt.tuning.Hierarchy)
	if *minScore > 0 {
		opts.MinScore = *minScore
	}
	if *topN > 0 {
		opts.TopN = *topN
	}

	progress, finish := progressFunc(*showProgress, "scoring")
	svc := pipeline.NewService(rt.pool, nil, nil, rt.logger)
	result, err := svc.HierarchyPending(ctx, pipeline.HierarchyOptions{
		Matcher:  opts,
		Version:  *version,
		Limit:    *limit,
		DryRun:   *dryRun,
		Progress: progress,
	})
	finish()
	if err != nil {
		rt.logger.Error().Err(err).Msg("hierarchy failed")
		fmt.Fprintf(os.Stderr, "Hierarchy failed: %v\n", err)
		return 1
	}

	rt.logger.Info().
		Int("perceptions", result.Perceptions).
		Int("parents", result.Parents).
		Int("children", result.Children).
		Int("matched", result.Matched).
		Int("unmatched", result.Unmatched).
		Int64("links", result.LinksWritten).
		Float64("links_per_perception", result.LinksPerPerception()).
		Bool("dry_run", result.DryRun).
		Msg("hierarchy completed")

	if outputFormat == outputFormatJSON {
		if err := printJSON(result.Breakdown); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
	} else if err := writeHierarchyTable(result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render breakdown: %v\n", err)
		return 1
	}

	fmt.Printf(
		"hierarchy perceptions=%d parents=%d children=%d matched=%d unmatched=%d links=%d links_per_perception=%.2f dry_run=%t\n",
		result.Perceptions,
		result.Parents,
		result.Children,
		result.Matched,
		result.Unmatched,
		result.LinksWritten,
		result.LinksPerPerception(),
		result.DryRun,
	)
	return 0
}

// hierarchyOptions overlays the tuning file on the default weights; zero
// fields keep their default.
func hierarchyOptions(t config.HierarchyTuning) hierarchy.Options {
	weights := hierarchy.DefaultWeights()
	if t.SubjectWeight > 0 {
		weights.Subject = t.SubjectWeight
	}
	if t.ActionWeight > 0 {
		weights.Action = t.ActionWeight
	}
	if t.ObjectWeight > 0 {
		weights.Object = t.ObjectWeight
	}
	if t.ObjectCredit > 0 {
		weights.ObjectCredit = t.ObjectCredit
	}
	return hierarchy.Options{Weights: weights, MinScore: t.MinScore, TopN: t.TopN}
}

func writeHierarchyTable(result pipeline.HierarchyResult) error {
	rows := make([][]string, 0, len(result.Breakdown)*4)
	for _, parent := range result.Breakdown {
		rows = append(rows, []string{truncateForTable(parent.Title, 60), "", fmt.Sprintf("%d", parent.Links)})
		for _, child := range parent.Children {
			rows = append(rows, []string{"", truncateForTable(child.Title, 50), fmt.Sprintf("%d", child.Links)})
		}
	}
	return writeTable([]string{"parent", "child", "links"}, rows)
}

func runCluster(args []string) int {
	fs := flag.NewFlagSet("cluster", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	strategy := fs.String("strategy", "", "Clustering strategy: keyword or vector (default from tuning file, else vector)")
	threshold := fs.Float64("threshold", 0, "Vector similarity threshold; 0 derives it from the data")
	minShared := fs.Int("min-shared", 0, "Keywords two entries must share; 0 uses the tuning file or default")
	limit := fs.Int("limit", 0, "Maximum logic entries to cluster (0 = all)")
	analyze := fs.Bool("analyze", false, "Report similarity distribution and cluster sizes without writing")
	dryRun := fs.Bool("dry-run", false, "Cluster without writing")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *threshold < 0 || *threshold > 1 {
		fmt.Fprintln(os.Stderr, "--threshold must be within [0,1]")
		return 2
	}
	if *limit < 0 || *minShared < 0 {
		fmt.Fprintln(os.Stderr, "--limit and --min-shared must be >= 0")
		return 2
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	rt, ok := bootstrap(ctx, "cluster", envLoader)
	if !ok {
		return 1
	}
	defer rt.Close()

	opts := clusterOptions(rt.tuning.Cluster)
	if strings.TrimSpace(*strategy) != "" {
		opts.Strategy = cluster.Strategy(*strategy)
	}
	if *threshold > 0 {
		opts.Threshold = *threshold
	}
	if *minShared > 0 {
		opts.MinSharedKeywords = *minShared
	}
	if _, err := cluster.ParseStrategy(string(opts.Strategy)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	svc := pipeline.NewService(rt.pool, nil, nil, rt.logger)
	result, err := svc.ClusterPending(ctx, pipeline.ClusterOptions{
		Builder: opts,
		Limit:   *limit,
		DryRun:  *dryRun,
		Analyze: *analyze,
	})
	if err != nil {
		rt.logger.Error().Err(err).Msg("cluster failed")
		fmt.Fprintf(os.Stderr, "Cluster failed: %v\n", err)
		return 1
	}

	event := rt.logger.Info().
		Str("strategy", string(result.Strategy)).
		Int("entries", result.Entries).
		Int("clusters", result.Clusters).
		Int("singletons", result.Singletons).
		Int("largest", result.Largest).
		Int("skipped", result.Skipped).
		Float64("threshold", result.Threshold).
		Bool("threshold_derived", result.ThresholdDerived).
		Int("written", result.Written).
		Bool("dry_run", result.DryRun)
	if result.Distribution != nil {
		event = event.
			Int("pairs", result.Distribution.Count).
			Float64("similarity_mean", result.Distribution.Mean).
			Float64("similarity_std", result.Distribution.StdDev)
	}
	event.Msg("cluster completed")

	if result.Distribution != nil {
		d := result.Distribution
		fmt.Printf("similarity pairs=%d mean=%.4f std=%.4f min=%.4f max=%.4f\n", d.Count, d.Mean, d.StdDev, d.Min, d.Max)
		fmt.Printf("cluster sizes=%s\n", formatSizes(result.Sizes))
	}
	fmt.Printf(
		"cluster strategy=%s entries=%d clusters=%d singletons=%d largest=%d skipped=%d threshold=%.4f derived=%t written=%d dry_run=%t\n",
		result.Strategy,
		result.Entries,
		result.Clusters,
		result.Singletons,
		result.Largest,
		result.Skipped,
		result.Threshold,
		result.ThresholdDerived,
		result.Written,
		result.DryRun,
	)
	return 0
}

func clusterOptions(t config.ClusterTuning) cluster.Options {
	return cluster.Options{
		Strategy:          cluster.Strategy(t.Strategy),
		MinSharedKeywords: t.MinSharedKeywords,
		Threshold:         t.Threshold,
		ThresholdFraction: t.ThresholdFraction,
	}
}

func formatSizes(sizes []int) string {
	parts := make([]string, 0, len(sizes))
	for _, size := range sizes {
		parts = append(parts, fmt.Sprintf("%d", size))
	}
	return strings.Join(parts, ",")
}
