package usecase

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// RelevanceGrader judges each candidate against the original (untranslated)
// question. One language-model call per (question, candidate) pair so
// judgments cannot leak between documents; fan-out is bounded to respect
// the model service's rate limits.
type RelevanceGrader struct {
	llm     ports.LanguageModel
	limiter *rate.Limiter
	cfg     PipelineConfig
}

func NewRelevanceGrader(llm ports.LanguageModel, limiter *rate.Limiter, cfg PipelineConfig) *RelevanceGrader {
	return &RelevanceGrader{
		llm:     llm,
		limiter: limiter,
		cfg:     cfg.normalize(),
	}
}

// Grade returns one grade per candidate, in candidate order. An individual
// grading failure fails closed: that candidate is marked not_relevant and
// the request continues.
func (g *RelevanceGrader) Grade(ctx context.Context, question string, candidates []domain.Candidate) []domain.Grade {
	grades := make([]domain.Grade, len(candidates))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.GradeConcurrency)

	for i := range candidates {
		i := i
		eg.Go(func() error {
			grades[i] = g.gradeOne(gctx, question, candidates[i])
			return nil
		})
	}
	_ = eg.Wait()

	return grades
}

func (g *RelevanceGrader) gradeOne(ctx context.Context, question string, candidate domain.Candidate) domain.Grade {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return domain.GradeNotRelevant
		}
	}

	grade, err := g.llm.GradePassage(ctx, question, candidate.ScoringText())
	if err != nil {
		slog.Warn("grading_failed_closed",
			"chunk_id", candidate.ChunkID,
			"error", domain.WrapError(domain.ErrGrading, "grade passage", err),
		)
		return domain.GradeNotRelevant
	}
	if grade != domain.GradeRelevant && grade != domain.GradeNotRelevant {
		slog.Warn("grading_schema_violation", "chunk_id", candidate.ChunkID, "grade", string(grade))
		return domain.GradeNotRelevant
	}
	return grade
}
