package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/normanhq/norman/internal/core/domain"
)

type fakeLLM struct {
	mu sync.Mutex

	expansion    domain.Expansion
	expandErr    error
	expandCalls  int
	grades       map[string]domain.Grade
	gradeErr     error
	gradeCalls   int
	rewritten    string
	rewriteErr   error
	rewriteCalls int
	pairScores   map[string]float64
	scoreErr     error
	answer       string
	generateErr  error
	lastBlocks   []string
}

func (f *fakeLLM) ExpandQuery(_ context.Context, _ string, _ int) (domain.Expansion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expandCalls++
	return f.expansion, f.expandErr
}

func (f *fakeLLM) GradePassage(_ context.Context, _ string, passage string) (domain.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gradeCalls++
	if f.gradeErr != nil {
		return "", f.gradeErr
	}
	if g, ok := f.grades[passage]; ok {
		return g, nil
	}
	return domain.GradeNotRelevant, nil
}

func (f *fakeLLM) RewriteQuery(_ context.Context, _ string, _ []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rewriteCalls++
	return f.rewritten, f.rewriteErr
}

func (f *fakeLLM) ScorePair(_ context.Context, _ string, passage string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scoreErr != nil {
		return 0, f.scoreErr
	}
	return f.pairScores[passage], nil
}

func (f *fakeLLM) GenerateAnswer(_ context.Context, _ string, blocks []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastBlocks = blocks
	if f.generateErr != nil {
		return "", f.generateErr
	}
	return f.answer, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeIndex struct {
	mu sync.Mutex

	denseList  []domain.Candidate
	sparseList []domain.Candidate
	denseErr   error
	sparseErr  error
	calls      int
}

func (f *fakeIndex) IndexChunks(_ context.Context, _ *domain.Law, _ []domain.Chunk, _ [][]float32) error {
	return nil
}

func (f *fakeIndex) SearchDense(_ context.Context, _ []float32, _ int, _ domain.SearchFilter) (domain.RankedList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.denseErr != nil {
		return nil, f.denseErr
	}
	return domain.NewRankedList(f.denseList), nil
}

func (f *fakeIndex) SearchSparse(_ context.Context, _ string, _ int, _ domain.SearchFilter) (domain.RankedList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sparseErr != nil {
		return nil, f.sparseErr
	}
	return domain.NewRankedList(f.sparseList), nil
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]domain.Expansion
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]domain.Expansion)}
}

func (f *fakeCache) Get(q string) (domain.Expansion, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	exp, ok := f.entries[q]
	if ok {
		f.hits++
	}
	return exp, ok
}

func (f *fakeCache) Set(q string, exp domain.Expansion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[q] = exp
}

type fakeGraphStore struct {
	articles  map[string]domain.Candidate // key: lawTitle+"#"+articleNum
	related   []domain.Candidate
	findErr   error
	upsertErr error
}

func (f *fakeGraphStore) FindArticle(_ context.Context, lawTitle, articleNum string) (*domain.Candidate, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.articles[lawTitle+"#"+articleNum]
	if !ok {
		return nil, domain.WrapError(domain.ErrLawNotFound, "find article", fmt.Errorf("%s %s", lawTitle, articleNum))
	}
	return &c, nil
}

func (f *fakeGraphStore) RelatedArticles(_ context.Context, _, _ string, _, _ int) ([]domain.Candidate, error) {
	return f.related, nil
}

func (f *fakeGraphStore) UpsertLawStructure(_ context.Context, _ *domain.Law, _ []domain.Chunk) error {
	return f.upsertErr
}

func candidate(id string, score float64) domain.Candidate {
	return domain.Candidate{
		ChunkID:      id,
		LawID:        "322AC0000000049",
		LawTitle:     "労働基準法",
		ArticleNum:   "32",
		ArticleTitle: "第三十二条",
		Text:         "text-" + id,
		Score:        score,
	}
}
