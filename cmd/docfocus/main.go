// Command docfocus analyzes every Collection* folder under a base directory
// and writes challenge1b_output.json into each.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"github.com/dgallion1/docfocus/internal/config"
	"github.com/dgallion1/docfocus/internal/logging"
	"github.com/dgallion1/docfocus/internal/pipeline"
)

func main() {
	base := flag.String("base", ".", "directory containing Collection* folders")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		color.Red("invalid configuration: %v", err)
		os.Exit(1)
	}

	// Logs go to stderr so the summary on stdout stays readable.
	log, closeLog := logging.Default(os.Stderr, logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	summaries, err := pipeline.NewAnalyzer(cfg, log).ProcessAll(ctx, *base)
	printSummary(summaries)
	if err != nil {
		color.Red("run stopped: %v", err)
		os.Exit(1)
	}
	if len(summaries) == 0 {
		color.Yellow("no Collection* folders found under %s", *base)
		return
	}
	color.Cyan("processed %d collection(s) in %s", len(summaries), time.Since(start).Round(time.Millisecond))
}

func printSummary(summaries []pipeline.Summary) {
	for _, s := range summaries {
		switch s.Outcome {
		case "completed":
			color.Green("✔ %s: %d section(s)", s.Name, s.Sections)
		case "skipped":
			color.Yellow("- %s: skipped (%v)", s.Name, s.Err)
		default:
			color.Red("✘ %s: %v", s.Name, s.Err)
		}
	}
	if len(summaries) > 0 {
		fmt.Println()
	}
}
