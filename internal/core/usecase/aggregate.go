package usecase

import (
	"sort"

	"github.com/normanhq/norman/internal/core/domain"
)

// variantHits records which search variants matched a chunk. Diagnostics
// only; nothing downstream reads it.
type variantHits map[string][]int

// aggregateCandidates merges the fused lists of all search variants into
// one deduplicated, score-sorted candidate list. Duplicate chunk ids keep
// the maximum fused score seen. The operation is idempotent: feeding its
// output back in yields the same list.
func aggregateCandidates(perVariant [][]domain.Candidate) ([]domain.Candidate, variantHits) {
	best := make(map[string]domain.Candidate)
	hits := make(variantHits)

	for variantIdx, list := range perVariant {
		for _, c := range list {
			hits[c.ChunkID] = append(hits[c.ChunkID], variantIdx)
			current, seen := best[c.ChunkID]
			if !seen || c.Score > current.Score {
				best[c.ChunkID] = c
			}
		}
	}

	out := make([]domain.Candidate, 0, len(best))
	for _, c := range best {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	return out, hits
}

// thresholdFilter drops candidates below minScore. An empty evidence set is
// worse than low-confidence evidence, so when the filter empties a
// non-empty list the top fallbackN unfiltered candidates come back instead.
func thresholdFilter(candidates []domain.Candidate, minScore float64, fallbackN int) []domain.Candidate {
	filtered := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Score >= minScore {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 && len(candidates) > 0 {
		return trimCandidates(candidates, fallbackN)
	}
	return filtered
}
