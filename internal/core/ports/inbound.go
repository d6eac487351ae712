package ports

import (
	"context"
	"io"

	"github.com/normanhq/norman/internal/core/domain"
)

// LegalQueryService is the inbound contract for question answering and
// retrieval-only search.
type LegalQueryService interface {
	Answer(ctx context.Context, question string, topK int, filter domain.SearchFilter) (*domain.Answer, error)
	Search(ctx context.Context, question string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
}

// LawRegistrar is the inbound contract for statute registration.
type LawRegistrar interface {
	Register(ctx context.Context, id, title, category string, body io.Reader) (*domain.Law, error)
}

// LawReader is the inbound read model for statute metadata/state.
type LawReader interface {
	GetByID(ctx context.Context, id string) (*domain.Law, error)
	List(ctx context.Context, limit, offset int) ([]domain.Law, error)
}

// LawProcessor is the inbound contract for asynchronous statute indexing.
type LawProcessor interface {
	ProcessByID(ctx context.Context, lawID string) error
}
