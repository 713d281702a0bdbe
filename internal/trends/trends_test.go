package trends

import (
	"reflect"
	"testing"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
	"github.com/ryosukesatoh/daily-arxiv/internal/fetcher"
)

func entry(id, title string, cats []string, kws ...string) digest.Entry {
	return digest.Entry{
		Paper:    fetcher.Paper{ID: id, Title: title, Categories: cats},
		Keywords: kws,
	}
}

func TestTitleWords(t *testing.T) {
	tests := []struct {
		title string
		want  []string
	}{
		{"Attention Is All You Need", []string{"attention", "need"}},
		{"Reasoning, Reasoning and More Reasoning!", []string{"reasoning", "more"}},
		{"A Novel Approach for Efficient Learning", nil},
		{"LLM-Agents via Tool-Use", []string{"llmagents", "tooluse"}},
		{"多模态 Agents", []string{"agents"}},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			got := TitleWords(tt.title)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TitleWords(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	entries := []digest.Entry{
		entry("1", "Reasoning Agents for Math", []string{"cs.CL", "cs.AI"}, "agents"),
		entry("2", "Scaling Reasoning Models", []string{"cs.CL"}),
		entry("3", "Vision Agents with Memory", []string{"cs.CV", "cs.AI"}, "agents", "memory"),
		// Archived again on a later day.
		entry("1", "Reasoning Agents for Math", []string{"cs.CL", "cs.AI"}, "agents"),
	}

	s := Analyze(entries)
	if s.TotalPapers != 3 {
		t.Errorf("Expected 3 papers, got %d", s.TotalPapers)
	}

	wantCats := []digest.Stat{{Name: "cs.AI", Count: 2}, {Name: "cs.CL", Count: 2}, {Name: "cs.CV", Count: 1}}
	if !reflect.DeepEqual(s.TopCategories, wantCats) {
		t.Errorf("TopCategories = %v, want %v", s.TopCategories, wantCats)
	}

	if len(s.TopKeywords) < 2 || s.TopKeywords[0] != (digest.Stat{Name: "agents", Count: 2}) || s.TopKeywords[1] != (digest.Stat{Name: "reasoning", Count: 2}) {
		t.Errorf("Unexpected top keywords %v", s.TopKeywords)
	}

	if len(s.Highlights) != 2 || s.Highlights[0].Paper.ID != "3" || s.Highlights[1].Paper.ID != "1" {
		t.Errorf("Expected highlights [3 1], got %+v", s.Highlights)
	}
}

func TestTopLimits(t *testing.T) {
	counts := map[string]int{}
	for i := 0; i < 30; i++ {
		counts[string(rune('a'+i%26))+string(rune('a'+i/26))] = i
	}
	stats := top(counts, 10)
	if len(stats) != 10 {
		t.Fatalf("Expected 10 stats, got %d", len(stats))
	}
	if stats[0].Count != 29 || stats[9].Count != 20 {
		t.Errorf("Unexpected ordering %v", stats)
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	s := Analyze(nil)
	if s.TotalPapers != 0 || len(s.TopCategories) != 0 || len(s.Highlights) != 0 {
		t.Errorf("Expected empty summary, got %+v", s)
	}
}
