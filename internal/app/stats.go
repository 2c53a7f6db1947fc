package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/philo-kim/moniterdc-sub001/internal/cli"
	"github.com/philo-kim/moniterdc-sub001/internal/globaltime"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	top := fs.Int("top", 10, "Worldviews to list by linked perceptions")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}
	if *top <= 0 {
		fmt.Fprintln(os.Stderr, "--top must be > 0")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.QueryWorldviewStats(ctx, globaltime.UTC(), *top)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	totals := stats.Totals
	totalRows := [][]string{
		{"perceptions", fmt.Sprintf("%d", totals.Perceptions)},
		{"perceptions_embedded", fmt.Sprintf("%d", totals.PerceptionsEmbedded)},
		{"worldviews", fmt.Sprintf("%d", totals.Worldviews)},
		{"worldviews_embedded", fmt.Sprintf("%d", totals.WorldviewsEmbedded)},
		{"links", fmt.Sprintf("%d", totals.Links)},
		{"linked_perceptions", fmt.Sprintf("%d", totals.LinkedPerceptions)},
		{"logic_entries", fmt.Sprintf("%d", totals.LogicEntries)},
		{"clusters", fmt.Sprintf("%d", totals.Clusters)},
	}
	if err := writeTable([]string{"metric", "value"}, totalRows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render totals table: %v\n", err)
		return 1
	}

	if len(stats.Methods) > 0 {
		fmt.Println()
		methodRows := make([][]string, 0, len(stats.Methods))
		for _, row := range stats.Methods {
			methodRows = append(methodRows, []string{
				row.Method,
				fmt.Sprintf("%d", row.Links),
				fmt.Sprintf("%.3f", row.AvgScore),
			})
		}
		if err := writeTable([]string{"method", "links", "avg_score"}, methodRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render method table: %v\n", err)
			return 1
		}
	}

	if len(stats.TopWorldviews) > 0 {
		fmt.Println()
		topRows := make([][]string, 0, len(stats.TopWorldviews))
		for _, row := range stats.TopWorldviews {
			topRows = append(topRows, []string{
				truncateForTable(row.Title, 60),
				fmt.Sprintf("%d", row.Level),
				fmt.Sprintf("%d", row.Perceptions),
			})
		}
		if err := writeTable([]string{"worldview", "level", "perceptions"}, topRows); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render worldview table: %v\n", err)
			return 1
		}
	}

	return 0
}
