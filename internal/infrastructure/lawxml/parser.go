package lawxml

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// Parser reads statute source files in the e-Gov law XML format and
// produces the structural tree the splitter works on. Statutes without
// chapter headings get a single unnamed chapter so the downstream shape
// stays uniform.
type Parser struct {
	storage ports.ObjectStorage
}

func New(storage ports.ObjectStorage) *Parser {
	return &Parser{storage: storage}
}

type xmlLaw struct {
	Era     string     `xml:"Era,attr"`
	LawBody xmlLawBody `xml:"LawBody"`
}

type xmlLawBody struct {
	LawTitle      string           `xml:"LawTitle"`
	MainProvision xmlMainProvision `xml:"MainProvision"`
}

type xmlMainProvision struct {
	Chapters []xmlChapter `xml:"Chapter"`
	Articles []xmlArticle `xml:"Article"`
}

type xmlChapter struct {
	Title    string       `xml:"ChapterTitle"`
	Articles []xmlArticle `xml:"Article"`
}

type xmlArticle struct {
	Num        string         `xml:"Num,attr"`
	Caption    string         `xml:"ArticleCaption"`
	Title      string         `xml:"ArticleTitle"`
	Paragraphs []xmlParagraph `xml:"Paragraph"`
}

type xmlParagraph struct {
	Num       string        `xml:"Num,attr"`
	Sentences []xmlSentence `xml:"ParagraphSentence>Sentence"`
	Items     []xmlItem     `xml:"Item"`
}

type xmlItem struct {
	Title     string        `xml:"ItemTitle"`
	Sentences []xmlSentence `xml:"ItemSentence>Sentence"`
	Columns   []xmlColumn   `xml:"ItemSentence>Column"`
}

type xmlColumn struct {
	Sentences []xmlSentence `xml:"Sentence"`
}

type xmlSentence struct {
	Text string `xml:",chardata"`
}

func (p *Parser) Parse(ctx context.Context, law *domain.Law) (*domain.ParsedLaw, error) {
	rc, err := p.storage.Open(ctx, law.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("open statute source: %w", err)
	}
	defer rc.Close()

	var doc xmlLaw
	if err := xml.NewDecoder(rc).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode statute xml: %w", err)
	}

	title := strings.TrimSpace(doc.LawBody.LawTitle)
	if title == "" {
		title = law.Title
	}

	parsed := &domain.ParsedLaw{
		ID:    law.ID,
		Title: title,
		Era:   doc.Era,
	}

	for _, chapter := range doc.LawBody.MainProvision.Chapters {
		parsed.Chapters = append(parsed.Chapters, convertChapter(chapter))
	}
	if direct := doc.LawBody.MainProvision.Articles; len(direct) > 0 {
		parsed.Chapters = append(parsed.Chapters, convertChapter(xmlChapter{Articles: direct}))
	}
	return parsed, nil
}

func convertChapter(chapter xmlChapter) domain.ParsedChapter {
	out := domain.ParsedChapter{Title: strings.TrimSpace(chapter.Title)}
	for _, article := range chapter.Articles {
		converted := domain.ParsedArticle{
			Num:     article.Num,
			Title:   strings.TrimSpace(article.Title),
			Caption: strings.TrimSpace(article.Caption),
		}
		for _, paragraph := range article.Paragraphs {
			text := paragraphText(paragraph)
			if text == "" {
				continue
			}
			converted.Paragraphs = append(converted.Paragraphs, domain.ParsedParagraph{
				Num:  paragraph.Num,
				Text: text,
			})
		}
		out.Articles = append(out.Articles, converted)
	}
	return out
}

// paragraphText joins the paragraph body with its numbered items
// (一、二、三...), matching how the statute reads on paper.
func paragraphText(paragraph xmlParagraph) string {
	parts := make([]string, 0, 4)
	for _, s := range paragraph.Sentences {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	for _, item := range paragraph.Items {
		itemParts := make([]string, 0, 2)
		if t := strings.TrimSpace(item.Title); t != "" {
			itemParts = append(itemParts, t)
		}
		for _, s := range item.Sentences {
			if t := strings.TrimSpace(s.Text); t != "" {
				itemParts = append(itemParts, t)
			}
		}
		for _, column := range item.Columns {
			for _, s := range column.Sentences {
				if t := strings.TrimSpace(s.Text); t != "" {
					itemParts = append(itemParts, t)
				}
			}
		}
		if len(itemParts) > 0 {
			parts = append(parts, strings.Join(itemParts, " "))
		}
	}
	return strings.Join(parts, " ")
}
