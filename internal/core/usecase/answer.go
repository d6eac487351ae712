package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/normanhq/norman/internal/core/domain"
)

// maxTopK caps the requested source count on the public surface.
const maxTopK = 20

// AnswerUseCase is the inbound entry point for question answering and
// retrieval-only search over the statute corpus.
type AnswerUseCase struct {
	controller *CorrectionController
	expander   *QueryExpander
	retriever  *HybridRetriever
	categories *CategoryDetector
	cfg        PipelineConfig
}

func NewAnswerUseCase(
	controller *CorrectionController,
	expander *QueryExpander,
	retriever *HybridRetriever,
	categories *CategoryDetector,
	cfg PipelineConfig,
) *AnswerUseCase {
	return &AnswerUseCase{
		controller: controller,
		expander:   expander,
		retriever:  retriever,
		categories: categories,
		cfg:        cfg.normalize(),
	}
}

// Answer runs the full self-correcting pipeline for one question.
func (uc *AnswerUseCase) Answer(ctx context.Context, question string, topK int, filter domain.SearchFilter) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer", fmt.Errorf("question is required"))
	}
	if topK <= 0 {
		topK = uc.cfg.RerankTopN
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	if filter.Category == "" && uc.categories != nil {
		filter.Category = uc.categories.Detect(question)
	}

	start := time.Now()
	state := &domain.AgentState{
		Query: domain.Query{
			Original: question,
			Current:  question,
		},
		Filter: filter,
		TopK:   topK,
	}

	if err := uc.controller.Run(ctx, state); err != nil {
		return nil, err
	}

	relevant := state.RelevantCount()
	return &domain.Answer{
		Text:             state.Answer,
		Sources:          state.Sources,
		Query:            question,
		Category:         filter.Category,
		Rounds:           state.Rounds,
		Rewrites:         state.Query.Rewrites,
		GradedRelevant:   relevant,
		GradedIrrelevant: len(state.Grades) - relevant,
		Degraded:         state.Degraded,
		ElapsedMS:        float64(time.Since(start).Microseconds()) / 1000.0,
	}, nil
}

// Search is retrieval without generation: expand, retrieve every variant,
// aggregate and threshold. Useful for exploring the corpus.
func (uc *AnswerUseCase) Search(ctx context.Context, question string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", fmt.Errorf("question is required"))
	}
	if limit <= 0 {
		limit = uc.cfg.RerankTopN
	}
	if filter.Category == "" && uc.categories != nil {
		filter.Category = uc.categories.Detect(question)
	}

	exp, err := uc.expander.Expand(ctx, question)
	if err != nil {
		return nil, err
	}

	perVariant := make([][]domain.Candidate, 0, len(exp.SearchQueries))
	var lastErr error
	for _, variant := range exp.SearchQueries {
		list, err := uc.retriever.Retrieve(ctx, variant, limit*2, filter)
		if err != nil {
			lastErr = err
			continue
		}
		perVariant = append(perVariant, list)
	}
	if len(perVariant) == 0 {
		return nil, domain.WrapError(domain.ErrRetrieval, "search", lastErr)
	}

	merged, _ := aggregateCandidates(perVariant)
	filtered := thresholdFilter(merged, uc.cfg.MinScore, uc.cfg.FallbackTopN)
	return trimCandidates(filtered, limit), nil
}
