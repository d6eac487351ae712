package usecase

import (
	"regexp"
	"strings"
)

// QueryKind classifies a question for retrieval routing.
type QueryKind string

const (
	// KindSemantic goes to vector search only.
	KindSemantic QueryKind = "semantic"
	// KindEntityLookup targets a concrete statute article; graph first.
	KindEntityLookup QueryKind = "entity_lookup"
	// KindMultiHop asks about references between articles; graph traversal
	// plus vector context.
	KindMultiHop QueryKind = "multi_hop"
	// KindHybrid mentions entities with unclear intent; both paths.
	KindHybrid QueryKind = "hybrid"
)

// StatuteRef is one extracted statute reference.
type StatuteRef struct {
	LawTitle   string
	ArticleNum string
}

// RoutedQuery is the routing decision for one question.
type RoutedQuery struct {
	Kind      QueryKind
	Refs      []StatuteRef
	UseGraph  bool
	UseVector bool
}

var (
	// 労働基準法第32条 → law title + article number
	lawArticleRe = regexp.MustCompile(`([\p{Hiragana}\p{Katakana}\p{Han}]+法)第(\d+)条(?:の(\d+))?`)
	// 第32条 / 第32条の2 standalone
	articleOnlyRe = regexp.MustCompile(`第(\d+)条(?:の(\d+))?`)
)

// relationshipMarkers indicate questions about connections between
// articles (Vietnamese and English phrasings the front end sees).
var relationshipMarkers = []string{
	"liên quan", "tham chiếu", "kết nối", "các điều", "quy định tại",
	"theo điều", "dựa trên", "related", "references", "connected",
}

// lookupMarkers indicate a direct what-does-it-say lookup.
var lookupMarkers = []string{
	"là gì", "nói gì", "quy định gì", "what is", "điều", "khoản", "chương",
}

// QueryRouter decides whether the graph store participates in retrieval.
// Pure text analysis, no model calls, so routing is deterministic.
type QueryRouter struct{}

func NewQueryRouter() *QueryRouter {
	return &QueryRouter{}
}

func (qr *QueryRouter) Route(question string) RoutedQuery {
	refs := extractStatuteRefs(question)
	lower := strings.ToLower(question)
	isRelationship := containsAny(lower, relationshipMarkers)
	isLookup := containsAny(lower, lookupMarkers)

	switch {
	case len(refs) > 0 && isLookup && !isRelationship:
		return RoutedQuery{Kind: KindEntityLookup, Refs: refs, UseGraph: true, UseVector: false}
	case len(refs) > 0 && isRelationship:
		return RoutedQuery{Kind: KindMultiHop, Refs: refs, UseGraph: true, UseVector: true}
	case len(refs) > 0:
		return RoutedQuery{Kind: KindHybrid, Refs: refs, UseGraph: true, UseVector: true}
	default:
		return RoutedQuery{Kind: KindSemantic, UseGraph: false, UseVector: true}
	}
}

func extractStatuteRefs(text string) []StatuteRef {
	seen := make(map[StatuteRef]struct{})
	refs := make([]StatuteRef, 0, 2)

	add := func(ref StatuteRef) {
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	covered := make([]string, 0, 2)
	for _, m := range lawArticleRe.FindAllStringSubmatch(text, -1) {
		num := m[2]
		if m[3] != "" {
			num = m[2] + "-" + m[3]
		}
		add(StatuteRef{LawTitle: m[1], ArticleNum: num})
		covered = append(covered, m[0])
	}

	remainder := text
	for _, c := range covered {
		remainder = strings.ReplaceAll(remainder, c, "")
	}
	for _, m := range articleOnlyRe.FindAllStringSubmatch(remainder, -1) {
		num := m[1]
		if m[2] != "" {
			num = m[1] + "-" + m[2]
		}
		add(StatuteRef{ArticleNum: num})
	}

	return refs
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
