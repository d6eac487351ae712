package chunking

import (
	"fmt"
	"strings"

	"github.com/normanhq/norman/internal/core/domain"
)

// Splitter turns a parsed statute tree into one chunk per paragraph.
// Paragraphs are the citation unit of Japanese statutes, so splitting on
// them keeps every chunk quotable as-is. EnrichedText prefixes the
// statute/article context so embeddings carry the hierarchy.
type Splitter struct {
	maxParagraphRunes int
}

func NewSplitter(maxParagraphRunes int) *Splitter {
	if maxParagraphRunes <= 0 {
		maxParagraphRunes = 2000
	}
	return &Splitter{maxParagraphRunes: maxParagraphRunes}
}

func (s *Splitter) Split(law *domain.Law, parsed *domain.ParsedLaw) []domain.Chunk {
	if law == nil || parsed == nil {
		return nil
	}

	chunks := make([]domain.Chunk, 0, 64)
	for _, chapter := range parsed.Chapters {
		for _, article := range chapter.Articles {
			articleTitle := article.Title
			if articleTitle == "" {
				articleTitle = "第" + article.Num + "条"
			}
			for _, paragraph := range article.Paragraphs {
				text := strings.TrimSpace(paragraph.Text)
				if text == "" {
					continue
				}
				if runes := []rune(text); len(runes) > s.maxParagraphRunes {
					text = string(runes[:s.maxParagraphRunes])
				}

				paragraphNum := paragraph.Num
				if paragraphNum == "" {
					paragraphNum = "1"
				}

				chunks = append(chunks, domain.Chunk{
					ID:           fmt.Sprintf("%s_%s_%s", law.ID, article.Num, paragraphNum),
					LawID:        law.ID,
					LawTitle:     parsed.Title,
					ChapterTitle: chapter.Title,
					ArticleNum:   article.Num,
					ArticleTitle: articleTitle,
					ParagraphNum: paragraphNum,
					Category:     law.Category,
					Text:         text,
					EnrichedText: enrich(parsed.Title, article.Caption, articleTitle, paragraphNum, text),
				})
			}
		}
	}
	return chunks
}

func enrich(lawTitle, caption, articleTitle, paragraphNum, text string) string {
	parts := make([]string, 0, 5)
	parts = append(parts, lawTitle)
	if caption != "" {
		parts = append(parts, caption)
	}
	parts = append(parts, articleTitle)
	if paragraphNum != "1" {
		parts = append(parts, "第"+paragraphNum+"項")
	}
	parts = append(parts, text)
	return strings.Join(parts, " ")
}
