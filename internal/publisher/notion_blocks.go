package publisher

import (
	"fmt"
	"strings"

	"github.com/ryosukesatoh/daily-arxiv/internal/digest"
)

// maxRichText is Notion's limit on the content of a single rich text object.
const maxRichText = 2000

type richText struct {
	Type        string       `json:"type"`
	Text        textContent  `json:"text"`
	Annotations *annotations `json:"annotations,omitempty"`
}

type textContent struct {
	Content string `json:"content"`
	Link    *link  `json:"link,omitempty"`
}

type link struct {
	URL string `json:"url"`
}

type annotations struct {
	Bold bool `json:"bold,omitempty"`
}

type blockText struct {
	RichText []richText    `json:"rich_text"`
	Children []notionBlock `json:"children,omitempty"`
}

type notionBlock struct {
	Object           string     `json:"object"`
	Type             string     `json:"type"`
	Heading1         *blockText `json:"heading_1,omitempty"`
	Heading2         *blockText `json:"heading_2,omitempty"`
	Heading3         *blockText `json:"heading_3,omitempty"`
	Paragraph        *blockText `json:"paragraph,omitempty"`
	NumberedListItem *blockText `json:"numbered_list_item,omitempty"`
	BulletedListItem *blockText `json:"bulleted_list_item,omitempty"`
	Toggle           *blockText `json:"toggle,omitempty"`
	Divider          *struct{}  `json:"divider,omitempty"`
}

// splitRichText cuts content into segments of at most maxRichText runes.
// Bold and link annotations are repeated on every segment.
func splitRichText(content string, bold bool, url string) []richText {
	runes := []rune(content)
	var out []richText
	for len(runes) > 0 || out == nil {
		n := min(len(runes), maxRichText)
		rt := richText{Type: "text", Text: textContent{Content: string(runes[:n])}}
		if url != "" {
			rt.Text.Link = &link{URL: url}
		}
		if bold {
			rt.Annotations = &annotations{Bold: true}
		}
		out = append(out, rt)
		runes = runes[n:]
	}
	return out
}

func heading(level int, text string) notionBlock {
	bt := &blockText{RichText: splitRichText(text, false, "")}
	b := notionBlock{Object: "block", Type: fmt.Sprintf("heading_%d", level)}
	switch level {
	case 1:
		b.Heading1 = bt
	case 2:
		b.Heading2 = bt
	default:
		b.Type = "heading_3"
		b.Heading3 = bt
	}
	return b
}

func paragraph(text string) notionBlock {
	return notionBlock{Object: "block", Type: "paragraph", Paragraph: &blockText{RichText: splitRichText(text, false, "")}}
}

func numberedItem(text, url string) notionBlock {
	return notionBlock{Object: "block", Type: "numbered_list_item", NumberedListItem: &blockText{RichText: splitRichText(text, true, url)}}
}

func bulletedItem(text string) notionBlock {
	return notionBlock{Object: "block", Type: "bulleted_list_item", BulletedListItem: &blockText{RichText: splitRichText(text, false, "")}}
}

func toggle(title string, children []notionBlock) notionBlock {
	return notionBlock{Object: "block", Type: "toggle", Toggle: &blockText{RichText: splitRichText(title, false, ""), Children: children}}
}

func divider() notionBlock {
	return notionBlock{Object: "block", Type: "divider", Divider: &struct{}{}}
}

// reportBlocks lays out a report as Notion blocks: a title heading and a
// divider, the period overview when present, then one group per entry.
func reportBlocks(r *digest.Report) []notionBlock {
	blocks := []notionBlock{heading(1, r.Title()), divider()}

	if r.Kind != digest.KindDaily {
		blocks = append(blocks, paragraph(fmt.Sprintf("%s · %d papers", r.Window, r.TotalPapers)))
		if r.Overview != "" {
			blocks = append(blocks, heading(2, "概览"))
			for _, para := range strings.Split(r.Overview, "\n\n") {
				if para = strings.TrimSpace(para); para != "" {
					blocks = append(blocks, paragraph(para))
				}
			}
		}
		blocks = append(blocks, statBlocks("热门分类", r.TopCategories)...)
		blocks = append(blocks, statBlocks("热门关键词", r.TopKeywords)...)
		if len(r.Entries) > 0 {
			blocks = append(blocks, heading(2, "兴趣相关论文"))
		}
	}

	for _, e := range r.Entries {
		blocks = append(blocks, entryBlocks(e)...)
	}
	return blocks
}

func statBlocks(title string, stats []digest.Stat) []notionBlock {
	if len(stats) == 0 {
		return nil
	}
	blocks := []notionBlock{heading(2, title)}
	for _, s := range stats {
		blocks = append(blocks, bulletedItem(fmt.Sprintf("%s (%d)", s.Name, s.Count)))
	}
	return blocks
}

func entryBlocks(e digest.Entry) []notionBlock {
	url := e.Paper.PDFURL
	if url == "" {
		url = e.Paper.URL
	}
	blocks := []notionBlock{numberedItem(e.Paper.Title, url)}

	if len(e.Paper.Authors) > 0 {
		blocks = append(blocks, paragraph("Authors: "+strings.Join(e.Paper.Authors, ", ")))
	}
	if len(e.Keywords) > 0 {
		blocks = append(blocks, paragraph("🔍 "+strings.Join(e.Keywords, ", ")))
	}
	if e.ChineseTitle != "" {
		blocks = append(blocks, paragraph(e.ChineseTitle))
	}
	if e.ChineseAbstract != "" {
		blocks = append(blocks, paragraph(e.ChineseAbstract))
	}

	switch {
	case !e.Report.Empty():
		var children []notionBlock
		for _, s := range e.Report.Sections() {
			children = append(children, heading(3, s.Title), paragraph(s.Body))
		}
		blocks = append(blocks, toggle("📊 详细分析", children))
	case e.BasicSummary != "":
		blocks = append(blocks, paragraph("💡 "+e.BasicSummary))
	}
	return blocks
}
