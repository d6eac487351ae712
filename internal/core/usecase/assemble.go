package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// maxSourceTextLen truncates quoted passage text in the response payload.
const maxSourceTextLen = 500

// AnswerAssembler builds the generation context and binds citations to
// sources. The source list is fixed before generation so the positional
// [n] markers in the answer index into it stably.
type AnswerAssembler struct {
	llm ports.LanguageModel
}

func NewAnswerAssembler(llm ports.LanguageModel) *AnswerAssembler {
	return &AnswerAssembler{llm: llm}
}

// Assemble generates the final answer over the ordered candidate list.
// Generation failure is fatal: there is no answer without generation.
// Markers citing outside the source list are stripped from the text.
func (a *AnswerAssembler) Assemble(ctx context.Context, question string, candidates []domain.Candidate) (string, []domain.Source, error) {
	sources := make([]domain.Source, 0, len(candidates))
	blocks := make([]string, 0, len(candidates))

	for idx, c := range candidates {
		sources = append(sources, domain.Source{
			LawTitle: c.LawTitle,
			Article:  c.ArticleTitle,
			Text:     truncateRunes(c.Text, maxSourceTextLen),
			Score:    c.Score,
			Path:     c.Path,
		})

		header := fmt.Sprintf("[%d]", idx+1)
		if c.LawTitle != "" && c.ArticleTitle != "" {
			header = fmt.Sprintf("[%d]【%s %s】", idx+1, c.LawTitle, c.ArticleTitle)
		}
		blocks = append(blocks, header+"\n"+c.ScoringText())
	}

	text, err := a.llm.GenerateAnswer(ctx, question, blocks)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrGeneration, "generate answer", err)
	}

	return sanitizeCitations(text, len(sources)), sources, nil
}

var citationMarkerRe = regexp.MustCompile(`\[(\d+)\]`)

// sanitizeCitations removes [n] markers whose index falls outside
// 1..sourceCount, so every surviving marker resolves to a real source.
func sanitizeCitations(text string, sourceCount int) string {
	return citationMarkerRe.ReplaceAllStringFunc(text, func(marker string) string {
		n, err := strconv.Atoi(strings.Trim(marker, "[]"))
		if err != nil || n < 1 || n > sourceCount {
			return ""
		}
		return marker
	})
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
