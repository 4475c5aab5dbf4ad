package main

import (
	"fmt"
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsage)
	}

	switch cmd := os.Args[1]; cmd {
	case "build", "serve", "watch":
		f, err := parseFlags(cmd, os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			printUsage()
			os.Exit(exitCodeFor(err))
		}
		setMaxProcs(f.verbose)
		if err := run(cmd, f); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitCodeFor(err))
		}
	case "version":
		fmt.Printf("sitegen %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(ExitUsage)
	}
}

// setMaxProcs matches GOMAXPROCS to the container CPU quota. It only fails
// on an invalid GOMAXPROCS variable, in which case the runtime default stays.
func setMaxProcs(verbose bool) {
	if verbose {
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}))
		return
	}
	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
}

func printUsage() {
	fmt.Println(`sitegen - Social preview images for a Markdown blog

Usage:
  sitegen <command> [flags]

Commands:
  build         Generate every preview once
  serve         Serve previews on demand with the admin dashboard
  watch         Rebuild changed previews whenever the blog changes
  version       Print the sitegen version
  help          Show this help message

Flags:
  -c, --config string    Config file (default "sitegen.yaml")
      --content string   Content directory (overrides contentDir)
  -o, --out string       Output directory (overrides outputDir)
      --db string        Manifest database (overrides databasePath)
      --addr string      Listen address for serve (overrides addr)
  -w, --workers int      Concurrent previews (0 picks from GOMAXPROCS)
      --fail-fast        Stop at the first failed preview
  -i, --incremental      Reuse previews whose post did not change
      --prune            Remove stored previews of deleted posts (default true)
  -v, --verbose          Log debug output
  -q, --quiet            Log errors only

Examples:
  sitegen build
  sitegen build --incremental -w 8 -o public
  sitegen serve --addr :8080
  sitegen watch --config site.yaml`)
}
