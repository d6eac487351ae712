package ports

import (
	"context"
	"io"

	"github.com/normanhq/norman/internal/core/domain"
)

// Embedder builds dense vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex indexes chunks and serves the two retrieval modalities.
// Both searches return engine-ordered ranked lists; rank fusion happens in
// the core, never inside the index.
type VectorIndex interface {
	IndexChunks(ctx context.Context, law *domain.Law, chunks []domain.Chunk, vectors [][]float32) error
	SearchDense(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) (domain.RankedList, error)
	SearchSparse(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) (domain.RankedList, error)
}

// GraphStore queries the statute structure graph by exact key.
type GraphStore interface {
	FindArticle(ctx context.Context, lawTitle, articleNum string) (*domain.Candidate, error)
	RelatedArticles(ctx context.Context, lawID, articleNum string, depth, limit int) ([]domain.Candidate, error)
	UpsertLawStructure(ctx context.Context, law *domain.Law, chunks []domain.Chunk) error
}

// LanguageModel is the single-purpose LLM contract. Every call has a fixed
// expected output shape that the core validates before use.
type LanguageModel interface {
	ExpandQuery(ctx context.Context, question string, variantCount int) (domain.Expansion, error)
	GradePassage(ctx context.Context, question, passage string) (domain.Grade, error)
	RewriteQuery(ctx context.Context, question string, failedVariants []string) (string, error)
	ScorePair(ctx context.Context, question, passage string) (float64, error)
	GenerateAnswer(ctx context.Context, question string, contextBlocks []string) (string, error)
}

// ExpansionCache short-circuits repeated translate/expand calls.
type ExpansionCache interface {
	Get(question string) (domain.Expansion, bool)
	Set(question string, exp domain.Expansion)
}

// LawRepository persists statute metadata and ingestion state.
type LawRepository interface {
	Create(ctx context.Context, law *domain.Law) error
	GetByID(ctx context.Context, id string) (*domain.Law, error)
	UpdateStatus(ctx context.Context, id string, status domain.LawStatus, errMessage string) error
	SetCounts(ctx context.Context, id string, articles, chunks int) error
}

// ObjectStorage stores raw statute source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes law ingestion events.
type MessageQueue interface {
	PublishLawRegistered(ctx context.Context, lawID string) error
	SubscribeLawRegistered(ctx context.Context, handler func(context.Context, string) error) error
}

// StatuteParser turns a stored statute file into its structural tree.
type StatuteParser interface {
	Parse(ctx context.Context, law *domain.Law) (*domain.ParsedLaw, error)
}

// Chunker splits a parsed statute into indexable passages.
type Chunker interface {
	Split(law *domain.Law, parsed *domain.ParsedLaw) []domain.Chunk
}
