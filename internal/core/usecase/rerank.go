package usecase

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// Reranker is the precise second stage: a joint query/passage scorer over
// the already-filtered candidate set. It refines the coarse fused order,
// never replaces it — when the precise scorer is unavailable the coarse
// order stands.
type Reranker struct {
	llm ports.LanguageModel
	cfg PipelineConfig
}

func NewReranker(llm ports.LanguageModel, cfg PipelineConfig) *Reranker {
	return &Reranker{
		llm: llm,
		cfg: cfg.normalize(),
	}
}

// Rerank scores each (question, candidate) pair and returns the top-N in
// final presentation order. Any scoring failure falls back to the coarse
// fused order for the whole set; a half-rescored ordering would not be
// comparable.
func (r *Reranker) Rerank(ctx context.Context, question string, candidates []domain.Candidate, topN int) []domain.Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	if topN <= 0 {
		topN = r.cfg.RerankTopN
	}
	if topN > len(candidates) {
		topN = len(candidates)
	}

	scores := make([]float64, len(candidates))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.GradeConcurrency)

	for i := range candidates {
		i := i
		eg.Go(func() error {
			score, err := r.llm.ScorePair(gctx, question, candidates[i].ScoringText())
			if err != nil {
				return domain.WrapError(domain.ErrRerank, "score pair", err)
			}
			scores[i] = score
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		slog.Warn("rerank_fallback_coarse_order", "error", err)
		return trimCandidates(candidates, topN)
	}

	reranked := make([]domain.Candidate, len(candidates))
	copy(reranked, candidates)
	for i := range reranked {
		reranked[i].Score = scores[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		if reranked[i].Score != reranked[j].Score {
			return reranked[i].Score > reranked[j].Score
		}
		return reranked[i].ChunkID < reranked[j].ChunkID
	})

	return reranked[:topN]
}
