package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/ryosukesatoh/daily-arxiv/internal/archive"
	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/config"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
	"github.com/ryosukesatoh/daily-arxiv/internal/pdf"
	"github.com/ryosukesatoh/daily-arxiv/internal/publisher"
	"github.com/ryosukesatoh/daily-arxiv/internal/retry"
	"github.com/ryosukesatoh/daily-arxiv/internal/runner"
	"github.com/ryosukesatoh/daily-arxiv/internal/scraper"
	"github.com/ryosukesatoh/daily-arxiv/internal/summarizer"
)

type options struct {
	configPath string
	mode       digest.Kind
	date       string
	cron       bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("daily-arxiv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (optional; environment variables and .env are always read)")
	mode := fs.String("mode", "daily", "report to build: daily, weekly or monthly")
	date := fs.String("date", "", "target date YYYY-MM-DD (default: yesterday for daily, today otherwise)")
	cronMode := fs.Bool("cron", false, "run as a daemon on the configured schedules")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	kind, err := digest.ParseKind(*mode)
	if err != nil {
		return nil, err
	}
	if *cronMode && *date != "" {
		return nil, errors.New("-date cannot be combined with -cron")
	}
	return &options{configPath: *configPath, mode: kind, date: *date, cron: *cronMode}, nil
}

// targetDay resolves the day a run reports on. Without -date it is the
// previous day: the last one whose daily entries are archived, so weekly and
// monthly runs cover the period containing it.
func targetDay(date string, now time.Time, loc *time.Location) (time.Time, error) {
	if date != "" {
		return calendar.Parse(date, loc)
	}
	return calendar.PreviousDay(now, loc), nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(opts, cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(opts *options, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := build(cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(logger)

	if app.web != nil {
		if err := app.web.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.web.Shutdown(shutdownCtx); err != nil {
				logger.Error("web server shutdown error", "error", err)
			}
		}()
	}

	if opts.cron {
		return serve(ctx, cfg, app.runner, logger)
	}

	day, err := targetDay(opts.date, time.Now(), cfg.Location())
	if err != nil {
		return err
	}
	return app.runner.Run(ctx, opts.mode, day)
}

type app struct {
	runner  *runner.Runner
	web     *publisher.WebPublisher
	archive *archive.Archive
}

func (a *app) close(logger *slog.Logger) {
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			logger.Error("failed to close archive", "error", err)
		}
	}
}

// newLoader picks how the ranking page is fetched. papers.cool paginates with
// JavaScript, so only the browser loader sees the whole day.
func newLoader(cfg *config.Config, retryCfg retry.Config, logger *slog.Logger) scraper.Loader {
	if cfg.Scraper.Loader == "http" {
		return scraper.NewHTTPLoader(cfg.Scraper.Timeout, retryCfg)
	}
	return scraper.NewChromeLoader(!cfg.Scraper.ShowBrowser, cfg.Scraper.MaxScrolls, cfg.Scraper.Timeout, logger)
}

// build wires the pipeline components from cfg.
func build(cfg *config.Config, logger *slog.Logger) (*app, error) {
	retryCfg := retry.Config{MaxRetries: cfg.Retry.MaxRetries, BaseDelay: cfg.Retry.BaseDelay, MaxDelay: cfg.Retry.MaxDelay}

	f := fetcher.NewArxivFetcher(cfg.Arxiv.BaseURL, cfg.Arxiv.RequestDelay, cfg.Arxiv.BatchSize, retryCfg, logger)

	var s scraper.Scraper
	switch cfg.Scraper.Source {
	case "arxiv":
		s = scraper.NewArxivListing(f, 0)
	case "papers_cool":
		s = scraper.NewPapersCool(cfg.Scraper.BaseURL, newLoader(cfg, retryCfg, logger), logger)
	default:
		return nil, fmt.Errorf("unknown scraper source %q", cfg.Scraper.Source)
	}

	sum, err := summarizer.New(cfg, logger)
	if err != nil {
		return nil, err
	}

	pubs, err := publisher.FromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{}
	for _, p := range pubs {
		if w, ok := p.(*publisher.WebPublisher); ok {
			a.web = w
		}
	}

	deps := runner.Deps{
		Scraper:    s,
		Fetcher:    f,
		Summarizer: sum,
		Downloader: pdf.NewDownloader(cfg.PDF.Dir, cfg.MaxPDFBytes(), retryCfg, logger),
		Extractor:  pdf.NewExtractor(cfg.PDF.MaxChars),
		Publishers: pubs,
	}
	if cfg.Archive.Path != "" {
		a.archive, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			return nil, err
		}
		deps.Archive = a.archive
	}

	a.runner = runner.New(cfg, deps, logger)
	return a, nil
}
