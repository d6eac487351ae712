package usecase

import "time"

// PipelineConfig carries the retrieval pipeline knobs. It is passed
// explicitly into each component; nothing in the core reads ambient
// settings.
type PipelineConfig struct {
	// VariantCount is how many search variants the expander is asked for.
	VariantCount int
	// RetrieveLimit is the fused list length per search variant.
	RetrieveLimit int
	// FusionK is the RRF smoothing constant.
	FusionK int
	// MinScore filters aggregated candidates. The scale is the RRF score
	// scale: a candidate at rank 1 in one modality scores 1/(k+1).
	MinScore float64
	// FallbackTopN is how many unfiltered candidates survive when the
	// threshold empties the list.
	FallbackTopN int
	// GradeTopN bounds how many candidates are graded per round.
	GradeTopN int
	// GradeConcurrency bounds the grading fan-out.
	GradeConcurrency int
	// RerankTopN is the final presentation count (the answer's top-k cap).
	RerankTopN int
	// GraphWeight multiplies scores of graph-store hits during merge.
	GraphWeight float64
	// GraphDepth bounds reference traversal in the graph store.
	GraphDepth int
	// RequestTimeout bounds one whole request across all retrieval rounds.
	// The rewrite cap bounds iterations, not wall clock, so this is
	// enforced independently.
	RequestTimeout time.Duration
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		VariantCount:     3,
		RetrieveLimit:    20,
		FusionK:          defaultFusionK,
		MinScore:         0.016,
		FallbackTopN:     3,
		GradeTopN:        10,
		GradeConcurrency: 4,
		RerankTopN:       5,
		GraphWeight:      1.2,
		GraphDepth:       2,
		RequestTimeout:   90 * time.Second,
	}
}

func (c PipelineConfig) normalize() PipelineConfig {
	out := c
	def := DefaultPipelineConfig()

	if out.VariantCount <= 0 {
		out.VariantCount = def.VariantCount
	}
	if out.RetrieveLimit <= 0 {
		out.RetrieveLimit = def.RetrieveLimit
	}
	if out.FusionK <= 0 {
		out.FusionK = def.FusionK
	}
	if out.MinScore <= 0 {
		out.MinScore = def.MinScore
	}
	if out.FallbackTopN <= 0 {
		out.FallbackTopN = def.FallbackTopN
	}
	if out.GradeTopN <= 0 {
		out.GradeTopN = def.GradeTopN
	}
	if out.GradeConcurrency <= 0 {
		out.GradeConcurrency = def.GradeConcurrency
	}
	if out.RerankTopN <= 0 {
		out.RerankTopN = def.RerankTopN
	}
	if out.GraphWeight <= 0 {
		out.GraphWeight = def.GraphWeight
	}
	if out.GraphDepth <= 0 {
		out.GraphDepth = def.GraphDepth
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = def.RequestTimeout
	}
	return out
}
