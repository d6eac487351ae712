package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// ProcessLawUseCase turns a registered statute into indexed evidence:
// parse the source tree, split into enriched chunks, embed, index both
// modalities and mirror the structure into the graph store.
type ProcessLawUseCase struct {
	repo     ports.LawRepository
	parser   ports.StatuteParser
	chunker  ports.Chunker
	embedder ports.Embedder
	index    ports.VectorIndex
	graph    ports.GraphStore
}

func NewProcessLawUseCase(
	repo ports.LawRepository,
	parser ports.StatuteParser,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	graph ports.GraphStore,
) *ProcessLawUseCase {
	return &ProcessLawUseCase{
		repo:     repo,
		parser:   parser,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		graph:    graph,
	}
}

func (uc *ProcessLawUseCase) ProcessByID(ctx context.Context, lawID string) error {
	if err := uc.repo.UpdateStatus(ctx, lawID, domain.LawStatusIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	law, parsed, chunks, err := uc.pipeline(ctx, lawID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, lawID, domain.LawStatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetCounts(ctx, law.ID, parsed.ArticleCount(), len(chunks)); err != nil {
		return fmt.Errorf("save counts: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, lawID, domain.LawStatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessLawUseCase) pipeline(ctx context.Context, lawID string) (*domain.Law, *domain.ParsedLaw, []domain.Chunk, error) {
	law, err := uc.repo.GetByID(ctx, lawID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch law by id: %w", err)
	}

	parsed, err := uc.parser.Parse(ctx, law)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse statute source: %w", err)
	}
	if parsed.ArticleCount() == 0 {
		return nil, nil, nil, domain.WrapError(domain.ErrInvalidInput, "parse statute source", errors.New("statute has no articles"))
	}

	chunks := uc.chunker.Split(law, parsed)
	if len(chunks) == 0 {
		return nil, nil, nil, domain.WrapError(domain.ErrInvalidInput, "split statute", errors.New("splitting produced zero chunks"))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.EnrichedText
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	if err := uc.index.IndexChunks(ctx, law, chunks, vectors); err != nil {
		return nil, nil, nil, fmt.Errorf("index chunks: %w", err)
	}

	// Graph structure is secondary evidence; indexing succeeds without it.
	if uc.graph != nil {
		if err := uc.graph.UpsertLawStructure(ctx, law, chunks); err != nil {
			slog.Warn("graph_upsert_failed", "law_id", law.ID, "error", err)
		}
	}

	return law, parsed, chunks, nil
}
