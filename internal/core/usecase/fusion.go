package usecase

import (
	"sort"

	"github.com/normanhq/norman/internal/core/domain"
)

// defaultFusionK is the RRF smoothing constant.
const defaultFusionK = 60

type fusedCandidate struct {
	candidate  domain.Candidate
	score      float64
	denseRank  int
	sparseRank int
}

// fuseRanksRRF merges the dense and sparse ranked lists for one search
// variant with reciprocal rank fusion:
//
//	score(d) = 1/(k + denseRank) + 1/(k + sparseRank)
//
// where a missing modality contributes 0. Ties break by dense rank, then
// sparse rank, then chunk id, so the output order is reproducible for any
// fixed pair of input lists. Fusion is done here rather than by the index
// so results do not depend on engine internals.
func fuseRanksRRF(dense, sparse domain.RankedList, k int) []domain.Candidate {
	if k <= 0 {
		k = defaultFusionK
	}

	acc := make(map[string]fusedCandidate, len(dense)+len(sparse))

	for _, entry := range dense {
		key := entry.Candidate.ChunkID
		fc := acc[key]
		fc.candidate = entry.Candidate
		fc.denseRank = entry.Rank
		fc.score += 1.0 / float64(k+entry.Rank)
		acc[key] = fc
	}
	for _, entry := range sparse {
		key := entry.Candidate.ChunkID
		fc, seen := acc[key]
		if !seen {
			fc.candidate = entry.Candidate
		}
		fc.sparseRank = entry.Rank
		fc.score += 1.0 / float64(k+entry.Rank)
		acc[key] = fc
	}

	out := make([]fusedCandidate, 0, len(acc))
	for _, fc := range acc {
		fc.candidate.Score = fc.score
		out = append(out, fc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if ri, rj := rankOrMax(out[i].denseRank), rankOrMax(out[j].denseRank); ri != rj {
			return ri < rj
		}
		if ri, rj := rankOrMax(out[i].sparseRank), rankOrMax(out[j].sparseRank); ri != rj {
			return ri < rj
		}
		return out[i].candidate.ChunkID < out[j].candidate.ChunkID
	})

	candidates := make([]domain.Candidate, 0, len(out))
	for _, fc := range out {
		candidates = append(candidates, fc.candidate)
	}
	return candidates
}

// rankOrMax treats "absent from this modality" as ranked after everything
// present in it.
func rankOrMax(rank int) int {
	if rank <= 0 {
		return int(^uint(0) >> 1)
	}
	return rank
}

func trimCandidates(candidates []domain.Candidate, limit int) []domain.Candidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
