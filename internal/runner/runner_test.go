package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/archive"
	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/config"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
	"github.com/ryosukesatoh/daily-arxiv/internal/pdf"
	"github.com/ryosukesatoh/daily-arxiv/internal/publisher"
	"github.com/ryosukesatoh/daily-arxiv/internal/scraper"
	"github.com/ryosukesatoh/daily-arxiv/internal/summarizer"
)

// Mock implementations

type mockScraper struct {
	rankings []scraper.Ranking
	err      error
}

func (m *mockScraper) Rankings(ctx context.Context, category string, day time.Time) ([]scraper.Ranking, error) {
	return m.rankings, m.err
}

type mockFetcher struct {
	papers map[string]fetcher.Paper
	err    error
}

func (m *mockFetcher) FetchByIDs(ctx context.Context, ids []string) ([]fetcher.Paper, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []fetcher.Paper
	for _, id := range ids {
		if p, ok := m.papers[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockFetcher) ListByDate(ctx context.Context, category string, day time.Time, maxResults int) ([]fetcher.Paper, error) {
	return nil, errors.New("not implemented")
}

type mockSummarizer struct {
	reportErr  error
	basicErr   error
	periodErr  error
	reports    []string
	basics     []string
	periodIn   *summarizer.PeriodInput
	reportText []string
}

func (m *mockSummarizer) TranslateTitle(ctx context.Context, title string) (string, error) {
	return "标题:" + title, nil
}

func (m *mockSummarizer) TranslateAbstract(ctx context.Context, abstract string) (string, error) {
	return "摘要:" + abstract, nil
}

func (m *mockSummarizer) DetailedReport(ctx context.Context, p fetcher.Paper, text string) (*digest.DetailedReport, error) {
	m.reports = append(m.reports, p.ID)
	m.reportText = append(m.reportText, text)
	if m.reportErr != nil {
		return nil, m.reportErr
	}
	return &digest.DetailedReport{Background: "背景 " + p.ID}, nil
}

func (m *mockSummarizer) BasicSummary(ctx context.Context, p fetcher.Paper) (string, error) {
	m.basics = append(m.basics, p.ID)
	if m.basicErr != nil {
		return "", m.basicErr
	}
	return "summary " + p.ID, nil
}

func (m *mockSummarizer) PeriodSummary(ctx context.Context, in summarizer.PeriodInput) (string, error) {
	m.periodIn = &in
	return "overview", m.periodErr
}

type mockDownloader struct {
	tooLarge  map[string]bool
	fail      map[string]bool
	downloads []string
	removed   []string
}

func (m *mockDownloader) Download(ctx context.Context, id, pdfURL string) (string, error) {
	m.downloads = append(m.downloads, id)
	switch {
	case m.tooLarge[id]:
		return "", pdf.ErrTooLarge
	case m.fail[id]:
		return "", errors.New("connection reset")
	}
	return "/tmp/" + id + ".pdf", nil
}

func (m *mockDownloader) Remove(path string) error {
	m.removed = append(m.removed, path)
	return nil
}

type mockExtractor struct {
	extracted []string
}

func (m *mockExtractor) Extract(path string) (string, error) {
	m.extracted = append(m.extracted, path)
	return "text of " + path, nil
}

type mockPublisher struct {
	name      string
	published []*digest.Report
	err       error
}

func (m *mockPublisher) Name() string { return m.name }

func (m *mockPublisher) Publish(ctx context.Context, report *digest.Report) (string, error) {
	m.published = append(m.published, report)
	if m.err != nil {
		return "", m.err
	}
	return "page-1", nil
}

type mockArchive struct {
	saved   []*digest.Report
	records []archive.Record
	window  calendar.Window
}

func (m *mockArchive) Save(ctx context.Context, report *digest.Report) error {
	m.saved = append(m.saved, report)
	return nil
}

func (m *mockArchive) Load(ctx context.Context, w calendar.Window) ([]archive.Record, error) {
	m.window = w
	return m.records, nil
}

var testDay = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

// corpus returns n ranked papers. Papers listed in interesting mention
// "reasoning" in their abstract.
func corpus(n int, interesting ...int) (*mockScraper, *mockFetcher) {
	hit := map[int]bool{}
	for _, i := range interesting {
		hit[i] = true
	}
	s := &mockScraper{}
	f := &mockFetcher{papers: map[string]fetcher.Paper{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("2501.%05d", i)
		abstract := "A study of something."
		if hit[i] {
			abstract = "We improve Reasoning in language models."
		}
		s.rankings = append(s.rankings, scraper.Ranking{ID: id, Rank: i})
		f.papers[id] = fetcher.Paper{ID: id, Title: "Paper " + id, Abstract: abstract, PDFURL: fetcher.PDFURL(id), Categories: []string{"cs.CL"}}
	}
	return s, f
}

type fixture struct {
	sum  *mockSummarizer
	dl   *mockDownloader
	ext  *mockExtractor
	pub  *mockPublisher
	arch *mockArchive
}

func newRunner(topN int, interests []string, s *mockScraper, f *mockFetcher) (*Runner, *fixture) {
	fx := &fixture{
		sum:  &mockSummarizer{},
		dl:   &mockDownloader{tooLarge: map[string]bool{}, fail: map[string]bool{}},
		ext:  &mockExtractor{},
		pub:  &mockPublisher{name: "mock"},
		arch: &mockArchive{},
	}
	cfg := &config.Config{Category: "cs.CL", TopPapers: topN, Interests: interests}
	r := New(cfg, Deps{
		Scraper:    s,
		Fetcher:    f,
		Summarizer: fx.sum,
		Downloader: fx.dl,
		Extractor:  fx.ext,
		Publishers: []publisher.Publisher{fx.pub},
		Archive:    fx.arch,
	}, nil)
	r.newID = func() string { return "run-1" }
	return r, fx
}

func TestRunDailyDetailedSelection(t *testing.T) {
	// 50 ranked papers, top 15, three matches outside the top 15.
	s, f := corpus(50, 3, 20, 33, 47)
	r, fx := newRunner(15, []string{"reasoning"}, s, f)

	report, err := r.RunDaily(context.Background(), testDay)
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if len(report.Entries) != 50 {
		t.Fatalf("Expected 50 entries, got %d", len(report.Entries))
	}
	if got := report.DetailedCount(); got != 18 {
		t.Errorf("Expected 18 detailed reports, got %d", got)
	}
	if len(fx.sum.basics) != 32 {
		t.Errorf("Expected 32 basic summaries, got %d", len(fx.sum.basics))
	}
	if len(fx.dl.removed) != 18 {
		t.Errorf("Expected every downloaded pdf removed, got %d", len(fx.dl.removed))
	}

	e := report.Entries[19]
	if e.Rank != 20 || e.Reason != "interest_match" || e.Report == nil || strings.Join(e.Keywords, ",") != "reasoning" {
		t.Errorf("Unexpected interest entry %+v", e)
	}
	if report.Entries[0].ChineseTitle != "标题:Paper 2501.00001" {
		t.Errorf("Expected translated title, got %q", report.Entries[0].ChineseTitle)
	}
	if report.Title() != "Daily arXiv (cs.CL) - 2025-01-15" || report.RunID != "run-1" {
		t.Errorf("Unexpected report header %q %q", report.Title(), report.RunID)
	}

	if len(fx.pub.published) != 1 {
		t.Errorf("Expected one publish, got %d", len(fx.pub.published))
	}
	if len(fx.arch.saved) != 1 {
		t.Errorf("Expected report archived after publish, got %d", len(fx.arch.saved))
	}
}

func TestRunDailyNoPapers(t *testing.T) {
	r, fx := newRunner(15, nil, &mockScraper{}, &mockFetcher{})

	_, err := r.RunDaily(context.Background(), testDay)
	if !errors.Is(err, ErrNoPapers) {
		t.Fatalf("Expected ErrNoPapers, got %v", err)
	}
	if err := r.Run(context.Background(), digest.KindDaily, testDay); err != nil {
		t.Errorf("Run should succeed with no papers, got %v", err)
	}
	if len(fx.pub.published) != 0 {
		t.Error("Expected no publish when there are no papers")
	}
	if len(fx.arch.saved) != 0 {
		t.Error("Expected nothing archived when there are no papers")
	}
}

func TestRunDailyOversizedPDFTakesBasicPath(t *testing.T) {
	s, f := corpus(3)
	r, fx := newRunner(3, nil, s, f)
	fx.dl.tooLarge["2501.00002"] = true

	report, err := r.RunDaily(context.Background(), testDay)
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}

	for _, path := range fx.ext.extracted {
		if strings.Contains(path, "2501.00002") {
			t.Errorf("Oversized pdf reached extraction: %s", path)
		}
	}
	if len(fx.ext.extracted) != 2 {
		t.Errorf("Expected 2 extractions, got %d", len(fx.ext.extracted))
	}
	e := report.Entries[1]
	if e.Report != nil || e.BasicSummary != "summary 2501.00002" {
		t.Errorf("Expected basic summary for oversized pdf, got %+v", e)
	}
}

func TestRunDailyReportFailureFallsBack(t *testing.T) {
	s, f := corpus(2)
	r, fx := newRunner(2, nil, s, f)
	fx.sum.reportErr = errors.New("unparseable answer")

	report, err := r.RunDaily(context.Background(), testDay)
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	for _, e := range report.Entries {
		if e.Report != nil || e.BasicSummary == "" {
			t.Errorf("Expected basic summary fallback, got %+v", e)
		}
	}
	if !strings.HasPrefix(fx.sum.reportText[0], "text of /tmp/2501.00001.pdf") {
		t.Errorf("Expected extracted text in prompt, got %q", fx.sum.reportText[0])
	}
}

func TestRunDailySkipsPaperWhenEverythingFails(t *testing.T) {
	s, f := corpus(2)
	r, fx := newRunner(1, nil, s, f)
	fx.dl.fail["2501.00001"] = true
	fx.sum.basicErr = errors.New("llm down")

	_, err := r.RunDaily(context.Background(), testDay)
	if err == nil || !strings.Contains(err.Error(), "all 2 papers failed") {
		t.Fatalf("Expected all papers failed error, got %v", err)
	}
	if len(fx.pub.published) != 0 {
		t.Error("Expected no publish")
	}
}

func TestRunDailyPublishFailure(t *testing.T) {
	s, f := corpus(2)
	r, fx := newRunner(1, nil, s, f)
	fx.pub.err = errors.New("notion: unexpected status 400")
	second := &mockPublisher{name: "stdout"}
	r.Publishers = append(r.Publishers, second)

	err := r.Run(context.Background(), digest.KindDaily, testDay)
	if err == nil {
		t.Fatal("Expected publish failure to fail the run")
	}
	if !strings.Contains(err.Error(), "publish via mock failed") || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(second.published) != 1 {
		t.Error("Expected second publisher to be called even after first fails")
	}
	if len(fx.arch.saved) != 0 {
		t.Error("Expected nothing archived after a failed publish")
	}
}

func TestRunDailyScrapeError(t *testing.T) {
	r, _ := newRunner(1, nil, &mockScraper{err: errors.New("boom")}, &mockFetcher{})
	if err := r.Run(context.Background(), digest.KindDaily, testDay); err == nil {
		t.Fatal("Expected error from scrape failure")
	}
}

func TestRunDailyDropsPapersWithoutMetadata(t *testing.T) {
	s, f := corpus(3)
	delete(f.papers, "2501.00002")
	r, _ := newRunner(1, nil, s, f)

	report, err := r.RunDaily(context.Background(), testDay)
	if err != nil {
		t.Fatalf("RunDaily returned error: %v", err)
	}
	if len(report.Entries) != 2 || report.Entries[1].Paper.ID != "2501.00003" || report.Entries[1].Rank != 2 {
		t.Errorf("Unexpected entries %+v", report.Entries)
	}
}

func TestRunPeriodWeekly(t *testing.T) {
	r, fx := newRunner(1, nil, &mockScraper{}, &mockFetcher{})
	fx.arch.records = []archive.Record{
		{Day: testDay, Entry: digest.Entry{Paper: fetcher.Paper{ID: "a", Title: "Agents Everywhere", Categories: []string{"cs.CL"}}, Keywords: []string{"agents"}}},
		{Day: testDay, Entry: digest.Entry{Paper: fetcher.Paper{ID: "b", Title: "Scaling Laws", Categories: []string{"cs.LG"}}}},
	}

	report, err := r.RunPeriod(context.Background(), digest.KindWeekly, testDay)
	if err != nil {
		t.Fatalf("RunPeriod returned error: %v", err)
	}
	if fx.arch.window.String() != "2025-01-13 to 2025-01-19" {
		t.Errorf("Unexpected window %s", fx.arch.window)
	}
	if report.TotalPapers != 2 || report.Overview != "overview" {
		t.Errorf("Unexpected report %+v", report)
	}
	if len(report.Entries) != 1 || report.Entries[0].Paper.ID != "a" || report.Entries[0].Rank != 1 {
		t.Errorf("Expected the interest match as the only entry, got %+v", report.Entries)
	}
	if fx.sum.periodIn == nil || fx.sum.periodIn.Kind != digest.KindWeekly || len(fx.sum.periodIn.Highlights) != 1 {
		t.Errorf("Unexpected period input %+v", fx.sum.periodIn)
	}
	if len(fx.pub.published) != 1 {
		t.Error("Expected the period report to be published")
	}
}

func TestRunPeriodMonthlyEmptyArchive(t *testing.T) {
	r, fx := newRunner(1, nil, &mockScraper{}, &mockFetcher{})

	if err := r.Run(context.Background(), digest.KindMonthly, testDay); err != nil {
		t.Fatalf("Run should succeed with an empty archive, got %v", err)
	}
	if fx.arch.window.String() != "2025-01-01 to 2025-01-31" {
		t.Errorf("Unexpected window %s", fx.arch.window)
	}
	if len(fx.pub.published) != 0 {
		t.Error("Expected no publish for an empty month")
	}
}

func TestRunPeriodSummaryFailureStillPublishes(t *testing.T) {
	r, fx := newRunner(1, nil, &mockScraper{}, &mockFetcher{})
	fx.arch.records = []archive.Record{{Day: testDay, Entry: digest.Entry{Paper: fetcher.Paper{ID: "a", Title: "Agents"}}}}
	fx.sum.periodErr = errors.New("llm down")

	if _, err := r.RunPeriod(context.Background(), digest.KindWeekly, testDay); err != nil {
		t.Fatalf("RunPeriod returned error: %v", err)
	}
	if len(fx.pub.published) != 1 || fx.pub.published[0].Overview != "" {
		t.Errorf("Expected report without overview to be published")
	}
}

func TestRunPeriodWithoutArchive(t *testing.T) {
	r, _ := newRunner(1, nil, &mockScraper{}, &mockFetcher{})
	r.Archive = nil
	if _, err := r.RunPeriod(context.Background(), digest.KindWeekly, testDay); err == nil {
		t.Fatal("Expected error without an archive")
	}
}
