package retrieval

import (
	"go.uber.org/zap"

	"github.com/support-agent/backend/internal/vector"
	"github.com/support-agent/backend/pkg/logger"
)

const (
	DefaultConfidenceThreshold        = 0.5
	DefaultUncertainDistanceThreshold = 0.8
)

// Assessment quantifies how trustworthy retrieved context is. Score is
// ordinal, not a calibrated probability: cosine distance 0 maps to 1,
// distance >= 1 maps to 0.
type Assessment struct {
	Score       float64 `json:"confidence"`
	MinDistance float64 `json:"min_distance"`
	IsUncertain bool    `json:"is_uncertain"`
	Escalated   bool    `json:"escalated"`
}

type Scorer struct {
	ConfidenceThreshold        float64
	UncertainDistanceThreshold float64
}

// NewScorer builds a scorer. Negative thresholds select the defaults;
// zero is honored, so a zero confidence threshold disables escalation.
func NewScorer(confidenceThreshold, uncertainDistanceThreshold float64) Scorer {
	if confidenceThreshold < 0 {
		confidenceThreshold = DefaultConfidenceThreshold
	}
	if uncertainDistanceThreshold < 0 {
		uncertainDistanceThreshold = DefaultUncertainDistanceThreshold
	}
	return Scorer{
		ConfidenceThreshold:        confidenceThreshold,
		UncertainDistanceThreshold: uncertainDistanceThreshold,
	}
}

// Assess derives confidence and escalation flags from the distances of
// the retrieved matches. No matches count as min distance 1.0, which
// lands at confidence 0 and escalates.
func (s Scorer) Assess(matches []vector.QueryMatch) Assessment {
	minDistance := 1.0
	for i, m := range matches {
		d := m.Distance
		if d < 0 || d > 2 {
			logger.Warn("Distance outside cosine range, clamping",
				zap.String("id", m.ID),
				zap.Float64("distance", d),
			)
			d = clamp(d, 0, 2)
		}
		if i == 0 || d < minDistance {
			minDistance = d
		}
	}

	confidence := clamp(1-minDistance, 0, 1)

	return Assessment{
		Score:       confidence,
		MinDistance: minDistance,
		IsUncertain: minDistance > s.UncertainDistanceThreshold,
		Escalated:   confidence < s.ConfidenceThreshold,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
