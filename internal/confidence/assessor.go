package confidence

import (
	"github.com/hr-assistant/backend/internal/respond"
	"github.com/hr-assistant/backend/internal/retrieval"
)

// Weights for blending retrieval relevance with the responder's
// self-reported quality. Relevance dominates: an answer is only as
// trustworthy as the evidence behind it.
const (
	relevanceWeight = 0.7
	qualityWeight   = 0.3
)

// Assessor computes a trust score for a generated answer. It is pure:
// the same inputs always produce the same score.
//
// Two bounds hold regardless of the blend:
//   - the score never increases when max relevance decreases, and
//   - with empty context the score equals the no-context ceiling, so an
//     unsupported answer can never clear the escalation threshold on the
//     strength of the model's own opinion of itself.
type Assessor struct {
	noContextCeiling float64
}

func NewAssessor(noContextCeiling float64) *Assessor {
	return &Assessor{noContextCeiling: noContextCeiling}
}

func (a *Assessor) Assess(ctx retrieval.Context, answer respond.Answer) float64 {
	if ctx.Empty() {
		return a.noContextCeiling
	}

	maxRelevance := ctx.MaxRelevance()

	score := maxRelevance
	if answer.HasQuality {
		score = relevanceWeight*maxRelevance + qualityWeight*clamp(answer.Quality)
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
