package archive

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

func dailyReport(day time.Time, ids ...string) *digest.Report {
	r := &digest.Report{
		RunID:    "run-" + day.Format(calendar.Layout),
		Kind:     digest.KindDaily,
		Category: "cs.CL",
		Window:   calendar.Window{Start: day, End: day},
	}
	for i, id := range ids {
		r.Entries = append(r.Entries, digest.Entry{
			Rank: i + 1,
			Paper: fetcher.Paper{
				ID:         id,
				Title:      "Paper " + id,
				Authors:    []string{"Alice", "Bob"},
				Abstract:   "abstract " + id,
				URL:        fetcher.AbsURL(id),
				PDFURL:     fetcher.PDFURL(id),
				Published:  day.Add(-24 * time.Hour).UTC(),
				Categories: []string{"cs.CL", "cs.AI"},
			},
			ChineseTitle: "论文 " + id,
			BasicSummary: "summary",
			Reason:       "standard",
		})
	}
	return r
}

func openTemp(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	r := dailyReport(day, "2501.00001", "2501.00002")
	r.Entries[0].Report = &digest.DetailedReport{Background: "背景", Results: "结果"}
	r.Entries[0].Keywords = []string{"reasoning"}
	r.Entries[0].Reason = "interest_match"

	if err := a.Save(ctx, r); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	records, err := a.Load(ctx, calendar.Window{Start: day, End: day})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	got := records[0]
	if !got.Day.Equal(day) || got.RunID != "run-2025-01-15" || got.Category != "cs.CL" {
		t.Errorf("Unexpected record header %+v", got)
	}
	if !reflect.DeepEqual(got.Entry, r.Entries[0]) {
		t.Errorf("Entry did not round-trip:\n got %+v\nwant %+v", got.Entry, r.Entries[0])
	}
	if records[1].Entry.Report != nil {
		t.Errorf("Expected nil report for basic entry, got %+v", records[1].Entry.Report)
	}
	if records[1].Entry.Keywords == nil || len(records[1].Entry.Keywords) != 0 {
		t.Errorf("Expected empty keywords, got %#v", records[1].Entry.Keywords)
	}
}

func TestLoadWindow(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()

	for d := 10; d <= 20; d++ {
		day := time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
		if err := a.Save(ctx, dailyReport(day, "a", "b")); err != nil {
			t.Fatalf("Save %d: %v", d, err)
		}
	}

	week := calendar.Week(time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), time.UTC) // 13th to 19th
	records, err := a.Load(ctx, week)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 14 {
		t.Fatalf("Expected 14 records for 7 days, got %d", len(records))
	}
	if records[0].Day.Day() != 13 || records[len(records)-1].Day.Day() != 19 {
		t.Errorf("Unexpected window bounds %v .. %v", records[0].Day, records[len(records)-1].Day)
	}
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if cur.Day.Before(prev.Day) || (cur.Day.Equal(prev.Day) && cur.Entry.Rank < prev.Entry.Rank) {
			t.Errorf("Records out of order at %d", i)
		}
	}
}

func TestSaveReplacesSameDay(t *testing.T) {
	a := openTemp(t)
	ctx := context.Background()
	day := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	if err := a.Save(ctx, dailyReport(day, "x", "y")); err != nil {
		t.Fatal(err)
	}
	again := dailyReport(day, "y")
	again.Entries[0].ChineseTitle = "新标题"
	if err := a.Save(ctx, again); err != nil {
		t.Fatal(err)
	}

	records, err := a.Load(ctx, calendar.Window{Start: day, End: day})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Entry.Paper.ID == "y" && r.Entry.ChineseTitle != "新标题" {
			t.Errorf("Expected replaced entry, got %q", r.Entry.ChineseTitle)
		}
	}
}

func TestSaveEmptyReport(t *testing.T) {
	a := openTemp(t)
	if err := a.Save(context.Background(), &digest.Report{}); err != nil {
		t.Errorf("Expected no error for empty report, got %v", err)
	}
}
