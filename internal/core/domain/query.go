package domain

// MaxRewrites caps the self-correction loop. With the initial round this
// guarantees at most three retrieval rounds per request.
const MaxRewrites = 2

// Expansion is the result of the combined translate + keyword-extract +
// multi-query LLM call.
type Expansion struct {
	Translated    string   `json:"translated"`
	Keywords      []string `json:"keywords"`
	RelatedTerms  []string `json:"related_terms"`
	SearchQueries []string `json:"search_queries"`
}

// Query is the per-turn query record. Created once per request, rewritten
// in place by the correction controller, never persisted.
type Query struct {
	Original   string
	Current    string
	Translated string
	Variants   []string
	Rewrites   int
}

// AgentState is the single mutable record threaded through the correction
// state machine. It is owned exclusively by one in-flight request.
type AgentState struct {
	Query      Query
	Filter     SearchFilter
	TopK       int
	Candidates []Candidate
	Grades     []Grade
	Reranked   []Candidate
	Answer     string
	Sources    []Source
	Rounds     int
	Degraded   bool
}

// RelevantCount reports how many graded candidates were judged relevant.
func (s *AgentState) RelevantCount() int {
	n := 0
	for _, g := range s.Grades {
		if g == GradeRelevant {
			n++
		}
	}
	return n
}
