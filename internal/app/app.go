package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "import":
		return runImport(args[1:])
	case "embed":
		return runEmbed(args[1:])
	case "match":
		return runMatch(args[1:])
	case "hierarchy":
		return runHierarchy(args[1:])
	case "cluster":
		return runCluster(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "worldview CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  worldview <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  validate   Validate perception or worldview JSON/JSONL files")
	fmt.Fprintln(os.Stderr, "  import     Upsert perception or worldview JSON/JSONL files")
	fmt.Fprintln(os.Stderr, "  embed      Generate missing embeddings")
	fmt.Fprintln(os.Stderr, "  match      Link perceptions to worldviews (embedding + judge)")
	fmt.Fprintln(os.Stderr, "  hierarchy  Link perceptions to child worldviews by frame scoring")
	fmt.Fprintln(os.Stderr, "  cluster    Regroup logic entries into clusters")
	fmt.Fprintln(os.Stderr, "  stats      Show perception, worldview, and link counts")
	fmt.Fprintln(os.Stderr, "  serve      Start Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"worldview <command> -h\" for command-specific flags.")
}
