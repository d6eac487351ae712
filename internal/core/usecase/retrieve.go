package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// HybridRetriever runs both retrieval modalities for one search variant and
// fuses their ranked lists. Per-modality failures inside one variant are
// isolated: the surviving list is fused alone rather than failing the
// variant outright, and a variant fails only when both modalities fail.
type HybridRetriever struct {
	embedder ports.Embedder
	index    ports.VectorIndex
	cfg      PipelineConfig
}

func NewHybridRetriever(embedder ports.Embedder, index ports.VectorIndex, cfg PipelineConfig) *HybridRetriever {
	return &HybridRetriever{
		embedder: embedder,
		index:    index,
		cfg:      cfg.normalize(),
	}
}

// Retrieve returns the fused candidate list for one search variant,
// length <= limit. Dense and sparse lookups run concurrently; fusion waits
// for both.
func (r *HybridRetriever) Retrieve(ctx context.Context, variant string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = r.cfg.RetrieveLimit
	}

	var (
		dense  domain.RankedList
		sparse domain.RankedList
	)

	g, gctx := errgroup.WithContext(ctx)
	var denseErr, sparseErr error

	g.Go(func() error {
		vector, err := r.embedder.EmbedQuery(gctx, variant)
		if err != nil {
			denseErr = domain.WrapError(domain.ErrRetrieval, "embed variant", err)
			return nil
		}
		dense, err = r.index.SearchDense(gctx, vector, limit, filter)
		if err != nil {
			denseErr = domain.WrapError(domain.ErrRetrieval, "dense search", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		sparse, err = r.index.SearchSparse(gctx, variant, limit, filter)
		if err != nil {
			sparseErr = domain.WrapError(domain.ErrRetrieval, "sparse search", err)
		}
		return nil
	})
	_ = g.Wait()

	if denseErr != nil && sparseErr != nil {
		return nil, fmt.Errorf("both modalities failed: %w; %v", denseErr, sparseErr)
	}
	if denseErr != nil {
		slog.Warn("dense_search_degraded", "variant", variant, "error", denseErr)
	}
	if sparseErr != nil {
		slog.Warn("sparse_search_degraded", "variant", variant, "error", sparseErr)
	}

	fused := fuseRanksRRF(dense, sparse, r.cfg.FusionK)
	return trimCandidates(fused, limit), nil
}
