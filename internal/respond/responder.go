package respond

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/classify"
	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/internal/retrieval"
	"github.com/hr-assistant/backend/pkg/logger"
)

// ErrUnavailable reports that answer generation failed.
var ErrUnavailable = errors.New("generation backend unavailable")

// Request carries everything the responder needs for one answer.
type Request struct {
	Query      string
	Role       string
	Department string
	Category   classify.Category
	Context    retrieval.Context
}

// Answer is the generated text plus the model's self-reported quality.
// HasQuality is false when the model did not return a usable signal.
type Answer struct {
	Text       string
	Quality    float64
	HasQuality bool
}

// Responder generates a grounded answer for a query. Each call is
// independent; no generation state is shared across requests.
type Responder struct {
	llmClient *llm.Client
}

func NewResponder(llmClient *llm.Client) *Responder {
	return &Responder{llmClient: llmClient}
}

func (r *Responder) Respond(ctx context.Context, req Request) (Answer, error) {
	gen, err := r.llmClient.GenerateAnswer(ctx, llm.AnswerRequest{
		Query:      req.Query,
		Role:       req.Role,
		Department: req.Department,
		Category:   string(req.Category),
		Context:    req.Context.PromptBlock(),
	})
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	answer := Answer{
		Text:       gen.Text,
		Quality:    gen.Quality,
		HasQuality: gen.HasQuality,
	}

	logger.Debug("Answer generated",
		zap.Int("length", len(answer.Text)),
		zap.Bool("has_quality", answer.HasQuality),
	)

	return answer, nil
}
