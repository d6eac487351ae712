package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// State names one node of the correction state machine.
type State string

const (
	StateTranslate State = "translate"
	StateRetrieve  State = "retrieve"
	StateGrade     State = "grade"
	StateRewrite   State = "rewrite"
	StateRerank    State = "rerank"
	StateGenerate  State = "generate"
	StateDone      State = "done"
)

// Transition is the pure transition function of the state machine. The
// only branch point is Grade: enough relevant evidence (or an exhausted
// rewrite budget) moves forward to Rerank, otherwise the query is
// rewritten and retrieval runs again. With MaxRewrites = 2 every request
// reaches Rerank within three retrieval rounds.
func Transition(current State, relevantCount, rewrites int) State {
	switch current {
	case StateTranslate:
		return StateRetrieve
	case StateRetrieve:
		return StateGrade
	case StateGrade:
		if relevantCount >= 2 || rewrites >= domain.MaxRewrites {
			return StateRerank
		}
		return StateRewrite
	case StateRewrite:
		return StateRetrieve
	case StateRerank:
		return StateGenerate
	case StateGenerate:
		return StateDone
	default:
		return StateDone
	}
}

// GraphAugmenter merges graph-store hits into the vector candidates when
// the question names concrete statute articles.
type GraphAugmenter interface {
	Augment(ctx context.Context, question string, candidates []domain.Candidate) []domain.Candidate
}

// CorrectionController owns the control flow of one request. All other
// components are stateless functions over their declared inputs; the
// controller is the only place that mutates AgentState, and the only
// component allowed to touch the rewrite counter.
type CorrectionController struct {
	expander  *QueryExpander
	retriever *HybridRetriever
	grader    *RelevanceGrader
	reranker  *Reranker
	assembler *AnswerAssembler
	llm       ports.LanguageModel
	graph     GraphAugmenter
	cfg       PipelineConfig
}

func NewCorrectionController(
	expander *QueryExpander,
	retriever *HybridRetriever,
	grader *RelevanceGrader,
	reranker *Reranker,
	assembler *AnswerAssembler,
	llm ports.LanguageModel,
	graph GraphAugmenter,
	cfg PipelineConfig,
) *CorrectionController {
	return &CorrectionController{
		expander:  expander,
		retriever: retriever,
		grader:    grader,
		reranker:  reranker,
		assembler: assembler,
		llm:       llm,
		graph:     graph,
		cfg:       cfg.normalize(),
	}
}

// Run drives the state machine to completion, mutating state node by node.
// The loop budget (rewrite cap) bounds iterations; the request timeout
// bounds wall clock independently. When the timeout fires mid-loop the
// controller still tries to generate from whatever evidence exists instead
// of returning nothing.
func (c *CorrectionController) Run(ctx context.Context, state *domain.AgentState) error {
	loopCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	st := StateTranslate
	for st != StateDone {
		// Caller abort stops all further transitions.
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("request aborted in state %s: %w", st, err)
		}
		if loopCtx.Err() != nil && st != StateRerank && st != StateGenerate {
			if len(state.Candidates) == 0 {
				return domain.WrapError(domain.ErrBudgetExceeded, "correction loop", loopCtx.Err())
			}
			slog.Warn("request_timeout_degraded",
				"state", string(st),
				"rounds", state.Rounds,
				"candidates", len(state.Candidates),
			)
			state.Degraded = true
			st = StateRerank
			continue
		}

		nodeCtx := loopCtx
		if loopCtx.Err() != nil {
			// Grace window so a timed-out request can still produce an
			// answer from the evidence already gathered.
			var graceCancel context.CancelFunc
			nodeCtx, graceCancel = context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
			defer graceCancel()
		}

		if err := c.runNode(nodeCtx, st, state); err != nil {
			return err
		}
		st = Transition(st, state.RelevantCount(), state.Query.Rewrites)
	}
	return nil
}

func (c *CorrectionController) runNode(ctx context.Context, st State, state *domain.AgentState) error {
	switch st {
	case StateTranslate:
		return c.translate(ctx, state)
	case StateRetrieve:
		return c.retrieve(ctx, state)
	case StateGrade:
		c.grade(ctx, state)
		return nil
	case StateRewrite:
		c.rewrite(ctx, state)
		return nil
	case StateRerank:
		c.rerank(ctx, state)
		return nil
	case StateGenerate:
		return c.generate(ctx, state)
	default:
		return nil
	}
}

func (c *CorrectionController) translate(ctx context.Context, state *domain.AgentState) error {
	exp, err := c.expander.Expand(ctx, state.Query.Current)
	if err != nil {
		return err
	}
	state.Query.Translated = exp.Translated
	state.Query.Variants = exp.SearchQueries
	slog.Info("query_expanded",
		"translated", exp.Translated,
		"variants", len(exp.SearchQueries),
	)
	return nil
}

// retrieve fans out over all search variants, aggregates, thresholds, and
// merges graph hits. Per-variant failures degrade quality silently; the
// node fails only when every variant failed.
func (c *CorrectionController) retrieve(ctx context.Context, state *domain.AgentState) error {
	state.Rounds++

	variants := state.Query.Variants
	perVariant := make([][]domain.Candidate, len(variants))
	variantErrs := make([]error, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(variants))
	for i := range variants {
		i := i
		g.Go(func() error {
			list, err := c.retriever.Retrieve(gctx, variants[i], state.TopK*4, state.Filter)
			if err != nil {
				variantErrs[i] = err
				return nil
			}
			perVariant[i] = list
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range variantErrs {
		if err != nil {
			failed++
			slog.Warn("variant_retrieval_failed", "variant", variants[i], "error", err)
		}
	}
	if failed == len(variants) {
		return domain.WrapError(domain.ErrRetrieval, "retrieve", variantErrs[0])
	}

	merged, hits := aggregateCandidates(perVariant)
	slog.Debug("candidates_aggregated", "unique", len(merged), "matched_chunks", len(hits))

	filtered := thresholdFilter(merged, c.cfg.MinScore, c.cfg.FallbackTopN)
	if c.graph != nil {
		filtered = c.graph.Augment(ctx, state.Query.Original, filtered)
	}
	state.Candidates = filtered
	return nil
}

func (c *CorrectionController) grade(ctx context.Context, state *domain.AgentState) {
	toGrade := trimCandidates(state.Candidates, c.cfg.GradeTopN)
	state.Grades = c.grader.Grade(ctx, state.Query.Original, toGrade)
	slog.Info("candidates_graded",
		"graded", len(state.Grades),
		"relevant", state.RelevantCount(),
		"round", state.Rounds,
	)
}

// rewrite regenerates the query conditioned on the variants that failed to
// surface relevant evidence, then re-expands. A rewrite failure is not
// fatal: the previous variants run again and the cap still terminates the
// loop.
func (c *CorrectionController) rewrite(ctx context.Context, state *domain.AgentState) {
	state.Query.Rewrites++

	rewritten, err := c.llm.RewriteQuery(ctx, state.Query.Original, state.Query.Variants)
	if err != nil || rewritten == "" {
		slog.Warn("rewrite_failed_keeping_variants", "attempt", state.Query.Rewrites, "error", err)
		return
	}
	state.Query.Current = rewritten

	exp, err := c.expander.Expand(ctx, rewritten)
	if err != nil {
		slog.Warn("rewrite_expansion_failed", "attempt", state.Query.Rewrites, "error", err)
		return
	}
	state.Query.Translated = exp.Translated
	state.Query.Variants = exp.SearchQueries
	slog.Info("query_rewritten", "attempt", state.Query.Rewrites, "rewritten", rewritten)
}

func (c *CorrectionController) rerank(ctx context.Context, state *domain.AgentState) {
	state.Reranked = c.reranker.Rerank(ctx, state.Query.Original, state.Candidates, state.TopK)
}

func (c *CorrectionController) generate(ctx context.Context, state *domain.AgentState) error {
	answer, sources, err := c.assembler.Assemble(ctx, state.Query.Original, state.Reranked)
	if err != nil {
		return err
	}
	state.Answer = answer
	state.Sources = sources
	return nil
}
