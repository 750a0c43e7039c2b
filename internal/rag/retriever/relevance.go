package retriever

import (
	"math"

	"github.com/akolanti/docrag/internal/domain/commonModels"
)

// Relevance maps a raw index score to [0,1], higher meaning more relevant.
// Unbounded distances use 1/(1+d), which never goes negative no matter how far the point is.
func Relevance(kind commonModels.DistanceKind, raw float64) float64 {
	var r float64
	switch kind {
	case commonModels.CosineSimilarity:
		d := 1 - raw
		r = 1 - d/2
	case commonModels.CosineDistance:
		r = 1 - raw
	case commonModels.Euclidean, commonModels.Manhattan:
		r = 1 / (1 + math.Max(raw, 0))
	case commonModels.DotProduct:
		r = 1 / (1 + math.Exp(-raw))
	case commonModels.RankFusion:
		r = raw / maxFusionScore
	default:
		r = raw
	}
	return clamp01(r)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
