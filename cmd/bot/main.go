package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"deptbot/internal/config"
	"deptbot/internal/directory"
	"deptbot/internal/ingest"
	"deptbot/internal/match"
	"deptbot/internal/pipeline"
	"deptbot/internal/storage"
	"deptbot/internal/streams"
	"deptbot/internal/zulip"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("run failed", "mode", cfg.Args.Mode, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	defer func() { _ = store.Close() }()

	chat := zulip.NewREST(http.DefaultClient, cfg.ZulipSite, cfg.ZulipEmail, cfg.ZulipAPIKey)
	opts := match.Options{Threshold: cfg.FuzzyThreshold, Margin: cfg.FuzzyMargin}
	p := pipeline.New(store, chat, log, opts, cfg.Retention(), cfg.Location(), cfg.DryRun, os.Stdout)

	switch cfg.Command {
	case "events":
		cal, err := ingest.NewCalendar(http.DefaultClient, cfg.EventsURL, cfg.Location(), streams.CalendarStreams)
		if err != nil {
			return fmt.Errorf("calendar source: %w", err)
		}
		return p.RunEvents(ctx, []ingest.Source{cal}, cfg.Mode)

	case "papers":
		sources := ingest.NewPapersSources(http.DefaultClient, cfg.PapersAPIURL, streams.PaperSearchTerms)
		if cfg.PapersRSSURL != "" {
			sources = append(sources, ingest.NewPapersRSS(http.DefaultClient, cfg.PapersRSSURL, "general"))
		}
		return p.RunPapers(ctx, sources)

	case "welcome":
		scraper := directory.New(http.DefaultClient, cfg.RosterURL)
		roster, skipped, err := scraper.Fetch(ctx)
		if err != nil {
			return fmt.Errorf("fetch roster: %w", err)
		}
		if skipped > 0 {
			log.Warn("skipped unparseable roster entries", "count", skipped)
		}
		return p.RunWelcome(ctx, roster, pipeline.WelcomeOptions{Email: cfg.Email, Force: cfg.Force})

	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
