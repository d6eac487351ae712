package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/normanhq/norman/internal/core/domain"
)

type fakeParser struct {
	parsed *domain.ParsedLaw
	err    error
}

func (f *fakeParser) Parse(_ context.Context, _ *domain.Law) (*domain.ParsedLaw, error) {
	return f.parsed, f.err
}

type fakeChunker struct {
	chunks []domain.Chunk
}

func (f *fakeChunker) Split(_ *domain.Law, _ *domain.ParsedLaw) []domain.Chunk {
	return f.chunks
}

func registeredLaw(repo *fakeLawRepo) *domain.Law {
	law := &domain.Law{
		ID:          "322AC0000000049",
		Title:       "労働基準法",
		StoragePath: "322AC0000000049.xml",
		Status:      domain.LawStatusRegistered,
	}
	repo.laws[law.ID] = law
	return law
}

func parsedFixture() *domain.ParsedLaw {
	return &domain.ParsedLaw{
		ID:    "322AC0000000049",
		Title: "労働基準法",
		Chapters: []domain.ParsedChapter{
			{
				Title: "第四章 労働時間",
				Articles: []domain.ParsedArticle{
					{Num: "32", Title: "第三十二条", Paragraphs: []domain.ParsedParagraph{{Num: "1", Text: "一週間について四十時間"}}},
				},
			},
		},
	}
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := newFakeLawRepo()
	law := registeredLaw(repo)
	chunk := domain.Chunk{ID: "c1", LawID: law.ID, EnrichedText: "enriched"}
	uc := NewProcessLawUseCase(
		repo,
		&fakeParser{parsed: parsedFixture()},
		&fakeChunker{chunks: []domain.Chunk{chunk}},
		&fakeEmbedder{vector: []float32{0.1}},
		&fakeIndex{},
		&fakeGraphStore{},
	)

	if err := uc.ProcessByID(context.Background(), law.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), law.ID)
	if got.Status != domain.LawStatusReady {
		t.Fatalf("expected ready, got %s", got.Status)
	}
	if got.ArticleCount != 1 || got.ChunkCount != 1 {
		t.Fatalf("counts not recorded: %d articles, %d chunks", got.ArticleCount, got.ChunkCount)
	}
	wantStatuses := []domain.LawStatus{domain.LawStatusIndexing, domain.LawStatusReady}
	if len(repo.statuses) != len(wantStatuses) {
		t.Fatalf("status transitions %v", repo.statuses)
	}
	for i := range wantStatuses {
		if repo.statuses[i] != wantStatuses[i] {
			t.Fatalf("transition %d: expected %s, got %s", i, wantStatuses[i], repo.statuses[i])
		}
	}
}

func TestProcessByIDMarksFailedOnParserError(t *testing.T) {
	repo := newFakeLawRepo()
	law := registeredLaw(repo)
	uc := NewProcessLawUseCase(
		repo,
		&fakeParser{err: errors.New("malformed xml")},
		&fakeChunker{},
		&fakeEmbedder{},
		&fakeIndex{},
		nil,
	)

	if err := uc.ProcessByID(context.Background(), law.ID); err == nil {
		t.Fatal("expected parse failure to surface")
	}
	got, _ := repo.GetByID(context.Background(), law.ID)
	if got.Status != domain.LawStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.Error == "" {
		t.Fatal("failure reason must be saved")
	}
}

func TestProcessByIDRejectsEmptyStatute(t *testing.T) {
	repo := newFakeLawRepo()
	law := registeredLaw(repo)
	uc := NewProcessLawUseCase(
		repo,
		&fakeParser{parsed: &domain.ParsedLaw{ID: law.ID}},
		&fakeChunker{},
		&fakeEmbedder{},
		&fakeIndex{},
		nil,
	)

	err := uc.ProcessByID(context.Background(), law.ID)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero articles, got %v", err)
	}
	got, _ := repo.GetByID(context.Background(), law.ID)
	if got.Status != domain.LawStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestProcessByIDGraphFailureDoesNotFailIndexing(t *testing.T) {
	repo := newFakeLawRepo()
	law := registeredLaw(repo)
	graph := &fakeGraphStore{upsertErr: errors.New("neo4j down")}
	uc := NewProcessLawUseCase(
		repo,
		&fakeParser{parsed: parsedFixture()},
		&fakeChunker{chunks: []domain.Chunk{{ID: "c1", EnrichedText: "enriched"}}},
		&fakeEmbedder{vector: []float32{0.1}},
		&fakeIndex{},
		graph,
	)

	if err := uc.ProcessByID(context.Background(), law.ID); err != nil {
		t.Fatalf("graph failure must be non-fatal: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), law.ID)
	if got.Status != domain.LawStatusReady {
		t.Fatalf("expected ready, got %s", got.Status)
	}
}

func TestProcessByIDEmbeddingFailure(t *testing.T) {
	repo := newFakeLawRepo()
	law := registeredLaw(repo)
	uc := NewProcessLawUseCase(
		repo,
		&fakeParser{parsed: parsedFixture()},
		&fakeChunker{chunks: []domain.Chunk{{ID: "c1", EnrichedText: "enriched"}}},
		&fakeEmbedder{err: errors.New("ollama down")},
		&fakeIndex{},
		nil,
	)

	if err := uc.ProcessByID(context.Background(), law.ID); err == nil {
		t.Fatal("expected embedding failure to surface")
	}
	got, _ := repo.GetByID(context.Background(), law.ID)
	if got.Status != domain.LawStatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}
