package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// QueryExpander turns one user question into a translated query plus N
// corpus-language search variants. Translation, keyword extraction and
// variant generation happen in a single language-model call; repeated
// questions are served from the TTL cache.
type QueryExpander struct {
	llm   ports.LanguageModel
	cache ports.ExpansionCache
	cfg   PipelineConfig
}

func NewQueryExpander(llm ports.LanguageModel, cache ports.ExpansionCache, cfg PipelineConfig) *QueryExpander {
	return &QueryExpander{
		llm:   llm,
		cache: cache,
		cfg:   cfg.normalize(),
	}
}

// Expand returns the translated query and at least one search variant.
// Failures surface as a translation-stage error; the caller decides whether
// the request dies with it.
func (e *QueryExpander) Expand(ctx context.Context, question string) (domain.Expansion, error) {
	key := strings.TrimSpace(question)

	if e.cache != nil {
		if exp, ok := e.cache.Get(key); ok {
			return exp, nil
		}
	}

	// Corpus-language questions skip nothing: expansion still produces
	// keyword variants, only the translation is the identity.
	exp, err := e.llm.ExpandQuery(ctx, question, e.cfg.VariantCount)
	if err != nil {
		if containsJapanese(question) {
			slog.Warn("expansion_failed_native_query", "error", err)
			exp = domain.Expansion{Translated: question}
		} else {
			return domain.Expansion{}, domain.WrapError(domain.ErrTranslation, "expand query", err)
		}
	}

	exp = normalizeExpansion(exp, question, e.cfg.VariantCount)

	if e.cache != nil {
		e.cache.Set(key, exp)
	}
	return exp, nil
}

// normalizeExpansion enforces the expansion contract: a non-empty
// translation and exactly 1..variantCount non-empty variants, padded with
// the translated query when the model under-delivers.
func normalizeExpansion(exp domain.Expansion, question string, variantCount int) domain.Expansion {
	exp.Translated = strings.TrimSpace(exp.Translated)
	if exp.Translated == "" {
		exp.Translated = strings.TrimSpace(question)
	}

	variants := make([]string, 0, variantCount)
	seen := make(map[string]struct{}, variantCount)
	for _, v := range exp.SearchQueries {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		variants = append(variants, v)
		if len(variants) == variantCount {
			break
		}
	}
	if len(variants) == 0 {
		variants = append(variants, exp.Translated)
	}
	exp.SearchQueries = variants
	return exp
}

// containsJapanese reports whether the text already carries Japanese
// script (hiragana, katakana or kanji).
func containsJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}
