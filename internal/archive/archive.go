// Package archive keeps the entries of published daily reports in SQLite so
// that weekly and monthly reports can be built without re-querying sources.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/ryosukesatoh/daily-arxiv/internal/calendar"
	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

const schema = `
CREATE TABLE IF NOT EXISTS papers (
	run_date         TEXT NOT NULL,
	id               TEXT NOT NULL,
	run_id           TEXT NOT NULL,
	category         TEXT NOT NULL,
	rank             INTEGER NOT NULL,
	title            TEXT NOT NULL,
	authors          TEXT NOT NULL,
	abstract         TEXT NOT NULL,
	url              TEXT NOT NULL,
	pdf_url          TEXT NOT NULL,
	categories       TEXT NOT NULL,
	published        TEXT NOT NULL,
	chinese_title    TEXT NOT NULL,
	chinese_abstract TEXT NOT NULL,
	report           TEXT,
	basic_summary    TEXT NOT NULL,
	keywords         TEXT NOT NULL,
	reason           TEXT NOT NULL,
	PRIMARY KEY (run_date, id)
);
CREATE INDEX IF NOT EXISTS papers_run_date ON papers (run_date);
`

var columns = []string{
	"run_date", "id", "run_id", "category", "rank", "title", "authors", "abstract", "url", "pdf_url",
	"categories", "published", "chinese_title", "chinese_abstract", "report", "basic_summary", "keywords", "reason",
}

// Record is an archived entry with the day it was published for.
type Record struct {
	Day      time.Time
	RunID    string
	Category string
	Entry    digest.Entry
}

// Archive is a SQLite-backed store of daily report entries.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("archive: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: init schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Save stores the entries of a published daily report. Saving the same day
// again replaces entries with the same paper id.
func (a *Archive) Save(ctx context.Context, report *digest.Report) error {
	if len(report.Entries) == 0 {
		return nil
	}
	day := report.Window.Start.Format(calendar.Layout)

	insert := sq.Insert("papers").Columns(columns...).Options("OR REPLACE")
	for _, e := range report.Entries {
		var reportJSON any
		if !e.Report.Empty() {
			b, err := json.Marshal(e.Report)
			if err != nil {
				return fmt.Errorf("archive: encode report for %s: %w", e.Paper.ID, err)
			}
			reportJSON = string(b)
		}
		insert = insert.Values(
			day, e.Paper.ID, report.RunID, report.Category, e.Rank, e.Paper.Title,
			jsonList(e.Paper.Authors), e.Paper.Abstract, e.Paper.URL, e.Paper.PDFURL,
			jsonList(e.Paper.Categories), e.Paper.Published.UTC().Format(time.RFC3339),
			e.ChineseTitle, e.ChineseAbstract, reportJSON, e.BasicSummary,
			jsonList(e.Keywords), e.Reason,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("archive: build insert: %w", err)
	}
	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("archive: save %s: %w", day, err)
	}
	return nil
}

// Load returns the entries archived for days inside w, ordered by day and
// rank.
func (a *Archive) Load(ctx context.Context, w calendar.Window) ([]Record, error) {
	query, args, err := sq.Select(columns...).
		From("papers").
		Where(sq.GtOrEq{"run_date": w.Start.Format(calendar.Layout)}).
		Where(sq.LtOrEq{"run_date": w.End.Format(calendar.Layout)}).
		OrderBy("run_date", "rank").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("archive: build query: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("archive: query %s: %w", w, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows, w.Start.Location())
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: read rows: %w", err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows, loc *time.Location) (Record, error) {
	var (
		rec                           Record
		day, published                string
		authors, categories, keywords string
		report                        sql.NullString
	)
	e := &rec.Entry
	err := rows.Scan(
		&day, &e.Paper.ID, &rec.RunID, &rec.Category, &e.Rank, &e.Paper.Title,
		&authors, &e.Paper.Abstract, &e.Paper.URL, &e.Paper.PDFURL,
		&categories, &published, &e.ChineseTitle, &e.ChineseAbstract,
		&report, &e.BasicSummary, &keywords, &e.Reason,
	)
	if err != nil {
		return Record{}, fmt.Errorf("archive: scan row: %w", err)
	}

	if rec.Day, err = calendar.Parse(day, loc); err != nil {
		return Record{}, fmt.Errorf("archive: %w", err)
	}
	e.Paper.Published, _ = time.Parse(time.RFC3339, published)
	if err := decodeLists(e.Paper.ID, &e.Paper, &e.Keywords, authors, categories, keywords); err != nil {
		return Record{}, err
	}
	if report.Valid {
		e.Report = &digest.DetailedReport{}
		if err := json.Unmarshal([]byte(report.String), e.Report); err != nil {
			return Record{}, fmt.Errorf("archive: decode report for %s: %w", e.Paper.ID, err)
		}
	}
	return rec, nil
}

func decodeLists(id string, p *fetcher.Paper, kw *[]string, authors, categories, keywords string) error {
	for _, f := range []struct {
		raw string
		dst *[]string
	}{{authors, &p.Authors}, {categories, &p.Categories}, {keywords, kw}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return fmt.Errorf("archive: decode list for %s: %w", id, err)
		}
	}
	return nil
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}
