// Command feedhawk discovers syndication feeds from seed URLs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/feedhawk/feedhawk/internal/config"
	"github.com/feedhawk/feedhawk/internal/fetcher"
	"github.com/feedhawk/feedhawk/internal/spider"
	"github.com/feedhawk/feedhawk/internal/urlutil"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "feedhawk <setup_type> <url1> [url2...]",
		Short: "FeedHawk — concurrent syndication feed discovery",
		Long: `FeedHawk crawls a set of seed URLs, following links and probe paths to
discover RSS, Atom, and JSON Feed documents, scoring and ranking every
feed it finds.

setup_type selects a preset:
  1  shallow crawl  (fast, shallow, stop at first feed per host)
  2  deep crawl     (exhaustive, deeper, keeps crawling every host)`,
		Args: cobra.MinimumNArgs(2),
		RunE: runCrawl,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	setupType, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("setup_type must be an integer: %w", err)
	}
	cfg, ok := config.Preset(setupType)
	if !ok {
		return fmt.Errorf("unknown setup_type %d", setupType)
	}

	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seeds := make([]string, 0, len(args)-1)
	for _, raw := range args[1:] {
		seeds = append(seeds, urlutil.Coerce(raw))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received interrupt, cancelling crawl")
		cancel()
	}()

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}

	s := spider.New(cfg, httpFetcher, logger)
	feeds, summary := s.Crawl(ctx, seeds)

	logger.Info("crawl complete",
		"feeds_found", len(feeds),
		"requests_added", summary.RequestsAdded,
		"requests_successful", summary.RequestsSuccessful,
		"requests_failed", summary.RequestsFailed,
		"elapsed", summary.Elapsed,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(feeds)
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
