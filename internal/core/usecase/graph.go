package usecase

import (
	"context"
	"log/slog"
	"sort"

	"github.com/normanhq/norman/internal/core/domain"
	"github.com/normanhq/norman/internal/core/ports"
)

// StatuteGraphAugmenter merges exact-key graph hits into the vector
// candidate set when the question names concrete articles. Graph failures
// never fail the request; retrieval already produced evidence.
type StatuteGraphAugmenter struct {
	router *QueryRouter
	store  ports.GraphStore
	cfg    PipelineConfig
}

func NewStatuteGraphAugmenter(router *QueryRouter, store ports.GraphStore, cfg PipelineConfig) *StatuteGraphAugmenter {
	return &StatuteGraphAugmenter{
		router: router,
		store:  store,
		cfg:    cfg.normalize(),
	}
}

func (a *StatuteGraphAugmenter) Augment(ctx context.Context, question string, candidates []domain.Candidate) []domain.Candidate {
	routed := a.router.Route(question)
	if !routed.UseGraph || len(routed.Refs) == 0 {
		return candidates
	}

	// Graph hits rank at least as high as the best vector candidate.
	baseScore := 1.0 / float64(a.cfg.FusionK+1)
	if len(candidates) > 0 && candidates[0].Score > baseScore {
		baseScore = candidates[0].Score
	}

	hits := make([]domain.Candidate, 0, len(routed.Refs))
	for _, ref := range routed.Refs {
		if ref.LawTitle == "" {
			// Article number alone is ambiguous across statutes.
			continue
		}
		article, err := a.store.FindArticle(ctx, ref.LawTitle, ref.ArticleNum)
		if err != nil {
			if !domain.IsKind(err, domain.ErrLawNotFound) {
				slog.Warn("graph_lookup_failed", "law", ref.LawTitle, "article", ref.ArticleNum, "error", err)
			}
			continue
		}
		hits = append(hits, *article)

		if routed.Kind == KindMultiHop {
			related, err := a.store.RelatedArticles(ctx, article.LawID, ref.ArticleNum, a.cfg.GraphDepth, a.cfg.FallbackTopN)
			if err != nil {
				slog.Warn("graph_traversal_failed", "law_id", article.LawID, "article", ref.ArticleNum, "error", err)
				continue
			}
			hits = append(hits, related...)
		}
	}
	if len(hits) == 0 {
		return candidates
	}

	merged := make([]domain.Candidate, 0, len(candidates)+len(hits))
	boosted := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if _, dup := boosted[h.ChunkID]; dup {
			continue
		}
		boosted[h.ChunkID] = struct{}{}
		h.GraphBoosted = true
		h.Score = baseScore * a.cfg.GraphWeight
		merged = append(merged, h)
	}
	for _, c := range candidates {
		if _, hit := boosted[c.ChunkID]; hit {
			continue
		}
		merged = append(merged, c)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ChunkID < merged[j].ChunkID
	})
	return merged
}
