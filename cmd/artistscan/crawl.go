package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/nao1215/artistscan/internal/backoff"
	"github.com/nao1215/artistscan/internal/batch"
	"github.com/nao1215/artistscan/internal/config"
	"github.com/nao1215/artistscan/internal/crawler"
	"github.com/nao1215/artistscan/internal/database"
	"github.com/nao1215/artistscan/internal/dedup"
	"github.com/nao1215/artistscan/internal/model"
	"github.com/nao1215/artistscan/internal/report"
	"github.com/nao1215/artistscan/internal/score"
	"github.com/nao1215/artistscan/internal/spotify"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the API and write unique artists to CSV",
		Long: `Crawl starts from the genre seed list and the browse categories and follows
playlists, tracks, albums and related artists. Each artist is written to the
output file exactly once, and artists written by earlier runs are skipped
unless --fresh is given.

Examples:
  # Crawl until 1000 unique artists have been written
  artistscan crawl -n 1000

  # Start over, discarding the visited set and truncating the output
  artistscan crawl --fresh -o out/artists.csv

  # Keep the visited set in Redis and write a Markdown run summary
  artistscan crawl --cache redis --summary summary.md

Configuration file (.artistscan) example:
  credentials:
    client_id: "your-client-id"
    client_secret: "your-client-secret"
  crawl:
    max_artists: 5000
  tiers:
    album: primary`,
		Args: cobra.NoArgs,
		RunE: runCrawlCmd,
	}

	// Crawl scope
	cmd.Flags().IntP("max-artists", "n", 0,
		"Stop after this many unique artists (0 crawls until no work is left)")
	cmd.Flags().BoolP("fresh", "f", false,
		"Discard the visited set and truncate the output before crawling")
	cmd.Flags().IntP("workers", "w", 0,
		"Number of concurrent workers (0 derives it from --max-artists)")

	// Output
	cmd.Flags().StringP("output", "o", config.DefaultOutput,
		"Artist CSV output path (creates directories if needed)")
	cmd.Flags().String("summary", "",
		"Write a Markdown run summary to this path")
	cmd.Flags().BoolP("json", "j", false,
		"Print the run summary as JSON")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .artistscan in current or home directory)")

	cmd.Flags().String("db-dir", "",
		"Directory of the state database (default: XDG data directory)")

	// Crawl engine tuning
	cmd.Flags().String("cache", config.DefaultCacheBackend,
		"Visited set backend: "+strings.Join(dedup.Backends(), ", "))
	cmd.Flags().Int("batch-size", batch.DefaultThreshold,
		"Referenced artist ids collected before one batch lookup (1-50)")
	cmd.Flags().Int("max-attempts", backoff.DefaultMaxAttempts,
		"Failed requests before a task is abandoned")
	cmd.Flags().Bool("adaptive", false,
		"Move endpoint kinds between tiers based on observed yield")

	// Transport
	cmd.Flags().Float64("rps", config.DefaultRequestsPerSecond,
		"Requests per second shared by all workers (0 disables pacing)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each API request")
	cmd.Flags().String("proxy", "",
		"Route API traffic through a SOCKS5 proxy (host:port)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, os.LookupEnv)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping crawl...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig layers defaults, the config file, the environment and the
// flags the user actually set, in that order.
func buildConfig(cmd *cobra.Command, lookupEnv func(string) (string, bool)) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path was specified, silently continue without a file.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.ApplyEnv(lookupEnv)

	if flags.Changed("max-artists") {
		if cfg.MaxArtists, err = flags.GetInt("max-artists"); err != nil {
			return nil, err
		}
	}
	if cfg.Fresh, err = flags.GetBool("fresh"); err != nil {
		return nil, err
	}
	if flags.Changed("workers") {
		if cfg.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("output") {
		if cfg.Output, err = flags.GetString("output"); err != nil {
			return nil, err
		}
	}
	if cfg.SummaryFile, err = flags.GetString("summary"); err != nil {
		return nil, err
	}
	if cfg.JSONSummary, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if flags.Changed("cache") {
		if cfg.CacheBackend, err = flags.GetString("cache"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("batch-size") {
		if cfg.BatchSize, err = flags.GetInt("batch-size"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-attempts") {
		if cfg.MaxAttempts, err = flags.GetInt("max-attempts"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("adaptive") {
		if cfg.Adaptive, err = flags.GetBool("adaptive"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("rps") {
		if cfg.RequestsPerSecond, err = flags.GetFloat64("rps"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("db-dir") {
		if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	return cfg, nil
}

// runCrawl executes one crawl run and reports it.
func runCrawl(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	if cfg.Anonymous() {
		logger.Warn("no API credentials configured; requests are sent without a token",
			"env", config.EnvClientID+", "+config.EnvClientSecret)
	}

	if cfg.ProxyAddress != "" {
		if status := spotify.CheckProxy(ctx, cfg.ProxyAddress); status != spotify.ProxyStatusOK {
			return fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, status.Error())
		}
		logger.Info("SOCKS5 proxy verified", "address", cfg.ProxyAddress)
	}

	// The database always holds the run history; the sqlite backend also
	// keeps the visited set there.
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cache, err := dedup.Open(ctx, dedup.Options{
		Backend: cfg.CacheBackend,
		DB:      db,
		Redis:   cfg.Redis,
	})
	if err != nil {
		return err
	}
	defer cache.Close()

	if cfg.CacheBackend == dedup.BackendMemory && !cfg.Fresh {
		if err := preloadCache(ctx, cache, cfg.Output); err != nil {
			return err
		}
	}

	client, err := spotify.NewClient(spotify.Options{
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		BaseURL:           cfg.BaseURL,
		TokenURL:          cfg.TokenURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Timeout:           cfg.Timeout,
		ProxyAddress:      cfg.ProxyAddress,
		UserAgent:         cfg.UserAgent,
		MaxBodySize:       cfg.MaxBodySize,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	table, err := cfg.TierTable()
	if err != nil {
		return err
	}

	sink, err := report.OpenCSV(cfg.Output, cfg.Fresh)
	if err != nil {
		return err
	}

	coordinator := crawler.NewCoordinator(client, cache, sink,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithTarget(cfg.MaxArtists),
		crawler.WithFresh(cfg.Fresh),
		crawler.WithPolicy(backoff.New(
			backoff.WithBase(cfg.BackoffBase),
			backoff.WithCap(cfg.BackoffCap),
			backoff.WithMaxAttempts(cfg.MaxAttempts),
		)),
		crawler.WithClassifier(score.NewClassifier(table, score.WithAdaptive(cfg.Adaptive))),
		crawler.WithAggregator(batch.New(cfg.BatchSize, batch.WithKind(model.KindArtists))),
		crawler.WithLogger(logger),
	)

	if !cfg.JSONSummary {
		workers := cfg.Workers
		if workers < 1 {
			workers = crawler.DefaultWorkers(cfg.MaxArtists)
		}
		fmt.Fprintf(out, "Crawling artists into %s (target: %s, workers: %d)...\n",
			cfg.Output, targetLabel(cfg.MaxArtists), workers)
	}

	stats, runErr := coordinator.Run(ctx)
	closeErr := sink.Close()

	summary := report.NewSummary(uuid.NewString(), getVersion(), cfg.Output, stats)
	if err := writeSummary(out, cfg, summary); err != nil {
		logger.Error("failed to write run summary", "error", err)
	}

	// Saved even when interrupted; the history records why a run ended.
	if err := db.SaveRun(context.WithoutCancel(ctx), summary.RunRecord()); err != nil {
		logger.Error("failed to save run history", "run", summary.RunID, "error", err)
	}

	switch {
	case errors.Is(runErr, context.Canceled):
		if !cfg.JSONSummary {
			fmt.Fprintln(out, "Crawl interrupted. Run again without --fresh to resume.")
		}
	case runErr != nil:
		return fmt.Errorf("crawl failed: %w", runErr)
	}

	if closeErr != nil {
		return closeErr
	}
	return nil
}

// preloadCache marks the artists already in the output file as emitted so
// that a resumed run on the in-memory backend does not write them again.
func preloadCache(ctx context.Context, cache dedup.Cache, output string) error {
	ids, err := report.ReadArtistIDs(output)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := cache.TestAndSet(ctx, model.ArtistKey(id)); err != nil {
			return fmt.Errorf("%w: %w", dedup.ErrCacheUnavailable, err)
		}
	}
	return nil
}

// writeSummary prints the run summary and writes the Markdown file when
// requested.
func writeSummary(out io.Writer, cfg *config.Config, summary *report.Summary) error {
	var w report.Writer
	if cfg.JSONSummary {
		w = report.NewJSONWriter(out, report.WithPrettyPrint())
	} else {
		w = report.NewSimpleWriter(out, report.WithVerbose(cfg.Verbose))
	}
	if _, err := w.Write(summary); err != nil {
		return err
	}

	if cfg.SummaryFile == "" {
		return nil
	}

	dir := filepath.Dir(cfg.SummaryFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create summary directory: %w", err)
		}
	}
	f, err := os.OpenFile(cfg.SummaryFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	_, err = report.NewMarkdownWriter(f).Write(summary)
	return err
}

func targetLabel(n int) string {
	if n <= 0 {
		return "unbounded"
	}
	return fmt.Sprintf("%d artists", n)
}
