package domain

// Grade is the per-candidate relevance judgment produced by the grader.
type Grade string

const (
	GradeRelevant    Grade = "relevant"
	GradeNotRelevant Grade = "not_relevant"
)

// HighlightPath is the structural address of a passage inside a statute,
// used for citations and front-end highlighting.
type HighlightPath struct {
	Law     string `json:"law,omitempty"`
	Chapter string `json:"chapter,omitempty"`
	Article string `json:"article,omitempty"`
}

// Candidate is one retrieved passage. Identity is ChunkID, not object
// identity: the same chunk returned by two search variants must collapse
// into one candidate during aggregation.
type Candidate struct {
	ChunkID      string        `json:"chunk_id"`
	LawID        string        `json:"law_id"`
	LawTitle     string        `json:"law_title"`
	ChapterTitle string        `json:"chapter_title,omitempty"`
	ArticleNum   string        `json:"article_num"`
	ArticleTitle string        `json:"article_title"`
	ParagraphNum string        `json:"paragraph_num,omitempty"`
	Category     string        `json:"category,omitempty"`
	Text         string        `json:"text"`
	EnrichedText string        `json:"enriched_text,omitempty"`
	Path         HighlightPath `json:"highlight_path"`
	Score        float64       `json:"score"`
	GraphBoosted bool          `json:"graph_boosted,omitempty"`
}

// ScoringText returns the text used for grading and reranking: the chunk
// with its surrounding structural context when the index stored one.
func (c Candidate) ScoringText() string {
	if c.EnrichedText != "" {
		return c.EnrichedText
	}
	return c.Text
}

// RankedEntry pairs a candidate with its 1-based rank inside one retrieval
// modality's result list.
type RankedEntry struct {
	Candidate Candidate
	Rank      int
}

// RankedList is the ordered output of one retrieval modality for one search
// variant. Order is the engine's order; the core never re-sorts it.
type RankedList []RankedEntry

// NewRankedList assigns 1-based ranks in the order the engine returned.
func NewRankedList(candidates []Candidate) RankedList {
	out := make(RankedList, 0, len(candidates))
	for i, c := range candidates {
		out = append(out, RankedEntry{Candidate: c, Rank: i + 1})
	}
	return out
}

// SearchFilter narrows retrieval by statute metadata.
type SearchFilter struct {
	Category string
	LawID    string
}

// Source is one citation-bearing evidence item in the final answer.
type Source struct {
	LawTitle string        `json:"law_title"`
	Article  string        `json:"article"`
	Text     string        `json:"text"`
	Score    float64       `json:"score"`
	Path     HighlightPath `json:"highlight_path"`
}

// Answer is the final response for one user question. The grade counts
// describe the final retrieval round only.
type Answer struct {
	Text             string   `json:"answer"`
	Sources          []Source `json:"sources"`
	Query            string   `json:"query"`
	Category         string   `json:"category,omitempty"`
	Rounds           int      `json:"retrieval_rounds"`
	Rewrites         int      `json:"rewrites"`
	GradedRelevant   int      `json:"graded_relevant"`
	GradedIrrelevant int      `json:"graded_irrelevant"`
	Degraded         bool     `json:"degraded,omitempty"`
	ElapsedMS        float64  `json:"processing_time_ms"`
}
