package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ryosukesatoh/daily-arxiv/internal/archive"
	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/config"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
	"github.com/ryosukesatoh/daily-arxiv/internal/interest"
	"github.com/ryosukesatoh/daily-arxiv/internal/logging"
	"github.com/ryosukesatoh/daily-arxiv/internal/pdf"
	"github.com/ryosukesatoh/daily-arxiv/internal/publisher"
	"github.com/ryosukesatoh/daily-arxiv/internal/scraper"
	"github.com/ryosukesatoh/daily-arxiv/internal/summarizer"
	"github.com/ryosukesatoh/daily-arxiv/internal/trends"
)

// ErrNoPapers means there was nothing to report for the requested period.
// Run logs it and treats the run as successful.
var ErrNoPapers = errors.New("runner: no papers")

// Summarizer produces the generated text of a report.
type Summarizer interface {
	TranslateTitle(ctx context.Context, title string) (string, error)
	TranslateAbstract(ctx context.Context, abstract string) (string, error)
	DetailedReport(ctx context.Context, p fetcher.Paper, text string) (*digest.DetailedReport, error)
	BasicSummary(ctx context.Context, p fetcher.Paper) (string, error)
	PeriodSummary(ctx context.Context, in summarizer.PeriodInput) (string, error)
}

// Downloader saves a paper's PDF locally.
type Downloader interface {
	Download(ctx context.Context, id, pdfURL string) (string, error)
	Remove(path string) error
}

// Extractor turns a downloaded PDF into prompt text.
type Extractor interface {
	Extract(path string) (string, error)
}

// Archive stores published daily entries for period reports.
type Archive interface {
	Save(ctx context.Context, report *digest.Report) error
	Load(ctx context.Context, w calendar.Window) ([]archive.Record, error)
}

// Deps are the collaborators of a Runner. Archive may be nil, in which case
// daily entries are not kept and period reports fail.
type Deps struct {
	Scraper    scraper.Scraper
	Fetcher    fetcher.Fetcher
	Summarizer Summarizer
	Downloader Downloader
	Extractor  Extractor
	Publishers []publisher.Publisher
	Archive    Archive
}

// Runner orchestrates the scrape -> fetch -> prioritize -> summarize ->
// publish pipeline and the period reports built from the archive.
type Runner struct {
	category string
	topN     int
	loc      *time.Location
	matcher  *interest.Matcher
	Deps
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Runner {
	return &Runner{
		category: cfg.Category,
		topN:     cfg.TopPapers,
		loc:      cfg.Location(),
		matcher:  interest.NewMatcher(cfg.Interests),
		Deps:     deps,
		logger:   logging.OrDiscard(logger).With("component", "runner"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run executes the pipeline of kind for day. An empty period is logged and
// is not an error.
func (r *Runner) Run(ctx context.Context, kind digest.Kind, day time.Time) error {
	var err error
	switch kind {
	case digest.KindDaily:
		_, err = r.RunDaily(ctx, day)
	case digest.KindWeekly, digest.KindMonthly:
		_, err = r.RunPeriod(ctx, kind, day)
	default:
		return fmt.Errorf("runner: unknown mode %q", kind)
	}
	if errors.Is(err, ErrNoPapers) {
		r.logger.Warn("nothing to publish", "mode", kind, "date", day.Format(calendar.Layout))
		return nil
	}
	return err
}

// RunDaily builds, publishes and archives the report for day.
func (r *Runner) RunDaily(ctx context.Context, day time.Time) (*digest.Report, error) {
	day = calendar.Day(day, r.loc)
	runID := r.newID()
	log := r.logger.With("run_id", runID, "mode", digest.KindDaily, "date", day.Format(calendar.Layout))
	start := r.now()
	log.Info("starting daily run", "category", r.category, "top_n", r.topN, "interests", r.matcher.Keywords())

	// Step 1: ranked identifiers
	rankings, err := r.Scraper.Rankings(ctx, r.category, day)
	if err != nil {
		return nil, fmt.Errorf("runner: scrape failed: %w", err)
	}
	if len(rankings) == 0 {
		return nil, ErrNoPapers
	}
	log.Info("scraped rankings", "papers", len(rankings))

	// Step 2: metadata, in rank order
	ids := make([]string, len(rankings))
	for i, rk := range rankings {
		ids[i] = rk.ID
	}
	papers, err := r.Fetcher.FetchByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("runner: fetch metadata failed: %w", err)
	}
	if missing := len(rankings) - len(papers); missing > 0 {
		log.Warn("papers without arXiv metadata are dropped", "missing", missing)
	}
	if len(papers) == 0 {
		return nil, ErrNoPapers
	}

	// Step 3: interests and processing paths
	matches := r.matcher.Match(papers)
	selections := interest.Prioritize(papers, matches, r.topN)
	log.Info("prioritized papers",
		"total", len(selections),
		"detailed", interest.CountDetailed(selections),
		"interest_matches", len(matches))

	// Step 4: translation and analysis, one paper at a time
	report := &digest.Report{
		RunID:    runID,
		Kind:     digest.KindDaily,
		Category: r.category,
		Window:   calendar.Window{Start: day, End: day},
		Created:  r.now(),
	}
	for i, sel := range selections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("processing paper", "n", i+1, "of", len(selections), "id", sel.Paper.ID, "detailed", sel.Detailed)
		entry, ok := r.processPaper(ctx, log, sel)
		if !ok {
			continue
		}
		report.Entries = append(report.Entries, entry)
	}
	if len(report.Entries) == 0 {
		return nil, fmt.Errorf("runner: all %d papers failed to process", len(selections))
	}

	// Step 5: publish, then archive what was published
	if err := r.publish(ctx, log, report); err != nil {
		return report, err
	}
	if r.Archive != nil {
		if err := r.Archive.Save(ctx, report); err != nil {
			log.Error("failed to archive entries", "error", err)
		}
	}

	log.Info("daily run complete",
		"entries", len(report.Entries),
		"detailed", report.DetailedCount(),
		"duration", r.now().Sub(start).Round(time.Second))
	return report, nil
}

// processPaper translates p and attaches a detailed report or a basic
// summary. It reports false when the paper has to be skipped.
func (r *Runner) processPaper(ctx context.Context, log *slog.Logger, sel interest.Selection) (digest.Entry, bool) {
	p := sel.Paper
	log = log.With("id", p.ID)
	entry := digest.Entry{
		Rank:     sel.Rank,
		Paper:    p,
		Keywords: sel.Keywords,
		Reason:   string(sel.Reason),
	}

	var err error
	if entry.ChineseTitle, err = r.Summarizer.TranslateTitle(ctx, p.Title); err != nil {
		log.Warn("title translation failed", "error", err)
	}
	if entry.ChineseAbstract, err = r.Summarizer.TranslateAbstract(ctx, p.Abstract); err != nil {
		log.Warn("abstract translation failed", "error", err)
	}

	if sel.Detailed {
		report, err := r.detailedReport(ctx, p)
		if err == nil {
			entry.Report = report
			return entry, true
		}
		if errors.Is(err, pdf.ErrTooLarge) {
			log.Info("pdf over size limit, using basic summary")
		} else {
			log.Warn("detailed report failed, using basic summary", "error", err)
		}
	}

	if entry.BasicSummary, err = r.Summarizer.BasicSummary(ctx, p); err != nil {
		log.Error("basic summary failed, skipping paper", "error", err)
		return digest.Entry{}, false
	}
	return entry, true
}

func (r *Runner) detailedReport(ctx context.Context, p fetcher.Paper) (*digest.DetailedReport, error) {
	pdfURL := p.PDFURL
	if pdfURL == "" {
		pdfURL = fetcher.PDFURL(p.ID)
	}
	path, err := r.Downloader.Download(ctx, p.ID, pdfURL)
	if err != nil {
		return nil, err
	}
	defer r.Downloader.Remove(path)

	text, err := r.Extractor.Extract(path)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("runner: no text extracted from %s", p.ID)
	}
	return r.Summarizer.DetailedReport(ctx, p, text)
}

// RunPeriod builds the weekly or monthly report around day from the archive.
func (r *Runner) RunPeriod(ctx context.Context, kind digest.Kind, day time.Time) (*digest.Report, error) {
	if r.Archive == nil {
		return nil, fmt.Errorf("runner: %s report needs archive.path to be set", kind)
	}

	window := calendar.Week(day, r.loc)
	if kind == digest.KindMonthly {
		window = calendar.Month(day, r.loc)
	}
	runID := r.newID()
	log := r.logger.With("run_id", runID, "mode", kind, "window", window.String())
	log.Info("starting period run")

	records, err := r.Archive.Load(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("runner: load archive: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNoPapers
	}
	entries := make([]digest.Entry, len(records))
	for i, rec := range records {
		entries[i] = rec.Entry
	}

	stats := trends.Analyze(entries)
	log.Info("computed trends", "papers", stats.TotalPapers, "highlights", len(stats.Highlights))

	report := &digest.Report{
		RunID:         runID,
		Kind:          kind,
		Category:      r.category,
		Window:        window,
		Created:       r.now(),
		TotalPapers:   stats.TotalPapers,
		TopCategories: stats.TopCategories,
		TopKeywords:   stats.TopKeywords,
	}
	for i, e := range stats.Highlights {
		e.Rank = i + 1
		report.Entries = append(report.Entries, e)
	}

	overview, err := r.Summarizer.PeriodSummary(ctx, summarizer.PeriodInput{
		Kind:          kind,
		Window:        window.String(),
		TotalPapers:   stats.TotalPapers,
		TopCategories: stats.TopCategories,
		TopKeywords:   stats.TopKeywords,
		Highlights:    stats.Highlights,
	})
	if err != nil {
		// The statistics are still worth publishing.
		log.Warn("period summary failed", "error", err)
	} else {
		report.Overview = overview
	}

	if err := r.publish(ctx, log, report); err != nil {
		return report, err
	}
	log.Info("period run complete", "papers", stats.TotalPapers)
	return report, nil
}

// publish hands the report to every publisher. Failures do not stop the
// remaining publishers; they are joined into the returned error.
func (r *Runner) publish(ctx context.Context, log *slog.Logger, report *digest.Report) error {
	if len(r.Publishers) == 0 {
		return errors.New("runner: no publishers configured")
	}
	var errs []error
	for _, pub := range r.Publishers {
		id, err := pub.Publish(ctx, report)
		if err != nil {
			log.Error("publish failed", "publisher", pub.Name(), "error", err)
			errs = append(errs, fmt.Errorf("publish via %s failed: %w", pub.Name(), err))
			continue
		}
		log.Info("published", "publisher", pub.Name(), "id", id)
	}
	if len(errs) > 0 {
		return fmt.Errorf("runner: %d of %d publishers failed: %w", len(errs), len(r.Publishers), errors.Join(errs...))
	}
	return nil
}
