package usecase

import "strings"

// CategoryDetector maps question keywords to a corpus category used as a
// retrieval metadata filter. Plain keyword counting, no model calls.
type CategoryDetector struct {
	keywords map[string][]string
}

// NewCategoryDetector takes the category → keyword table; keys are corpus
// categories, values are matching phrases in any query language.
func NewCategoryDetector(keywords map[string][]string) *CategoryDetector {
	return &CategoryDetector{keywords: keywords}
}

// Detect returns the best-matching category, or "" when no category wins
// at least half of all keyword matches.
func (d *CategoryDetector) Detect(question string) string {
	if len(d.keywords) == 0 {
		return ""
	}
	lower := strings.ToLower(question)

	bestCategory := ""
	bestCount := 0
	total := 0
	for category, words := range d.keywords {
		count := 0
		for _, w := range words {
			if strings.Contains(lower, strings.ToLower(w)) {
				count++
			}
		}
		total += count
		if count > bestCount || (count == bestCount && count > 0 && category < bestCategory) {
			bestCategory = category
			bestCount = count
		}
	}

	if bestCount == 0 || float64(bestCount)/float64(total) < 0.5 {
		return ""
	}
	return bestCategory
}
