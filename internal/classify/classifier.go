package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/llm"
	"github.com/hr-assistant/backend/pkg/logger"
)

// ErrUnavailable reports that the classification backend could not be
// reached. The orchestrator treats it as a complex-reason escalation,
// never as a silent default category.
var ErrUnavailable = errors.New("classification backend unavailable")

type Category string

const (
	CategoryLeavePolicy   Category = "leave_policy"
	CategoryReimbursement Category = "reimbursement"
	CategoryInsurance     Category = "insurance"
	CategoryOnboarding    Category = "onboarding"
	CategoryPayroll       Category = "payroll"
	CategoryPerformance   Category = "performance"
	CategoryCodeOfConduct Category = "code_of_conduct"
	CategoryRemoteWork    Category = "remote_work"
	CategoryBenefits      Category = "benefits"
	CategoryITPolicy      Category = "it_policy"
	CategoryGeneral       Category = "general_policy"
	CategoryUnknown       Category = "unknown"

	// CategoryFlagged is the sentinel recorded when sensitivity
	// short-circuits the pipeline before a category is usable.
	CategoryFlagged Category = "flagged"
)

var validCategories = map[Category]struct{}{
	CategoryLeavePolicy:   {},
	CategoryReimbursement: {},
	CategoryInsurance:     {},
	CategoryOnboarding:    {},
	CategoryPayroll:       {},
	CategoryPerformance:   {},
	CategoryCodeOfConduct: {},
	CategoryRemoteWork:    {},
	CategoryBenefits:      {},
	CategoryITPolicy:      {},
	CategoryGeneral:       {},
	CategoryUnknown:       {},
}

// ParseCategory maps arbitrary model output to a known category,
// degrading to unknown rather than inventing new tags.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validCategories[c]; ok {
		return c
	}
	return CategoryUnknown
}

type Result struct {
	Category  Category
	Intent    string
	Sensitive bool
}

// sensitiveCues are lexical markers for queries that require mandatory
// human handling. The scan is local and deterministic, so sensitivity
// detection keeps working even when the classification backend is down.
var sensitiveCues = []string{
	"harass",
	"discriminat",
	"grievance",
	"lawsuit",
	"legal action",
	"lawyer",
	"attorney",
	"hostile work",
	"bullying",
	"retaliat",
	"whistleblow",
	"termination",
	"fired",
	"disciplinary",
	"misconduct",
	"salary negotiation",
	"raise negotiation",
	"complaint against",
}

// DetectSensitive reports whether the query text carries a sensitivity cue.
func DetectSensitive(text string) bool {
	lower := strings.ToLower(text)
	for _, cue := range sensitiveCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// Classifier maps raw query text to a category and sensitivity flag.
// It never consults retrieval or generation.
type Classifier struct {
	llmClient *llm.Client
}

func NewClassifier(llmClient *llm.Client) *Classifier {
	return &Classifier{llmClient: llmClient}
}

// Classify runs the lexical sensitivity scan first and only consults the
// model for a category when the query is not already flagged. Sensitivity
// takes precedence: a flagged query short-circuits without a model call.
func (c *Classifier) Classify(ctx context.Context, text string) (Result, error) {
	if DetectSensitive(text) {
		logger.Info("Query flagged by sensitivity cue scan")
		return Result{
			Category:  CategoryFlagged,
			Intent:    "Sensitive HR matter requiring human handling",
			Sensitive: true,
		}, nil
	}

	cls, err := c.llmClient.ClassifyQuery(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result := Result{
		Category:  ParseCategory(cls.Category),
		Intent:    cls.Intent,
		Sensitive: cls.Sensitive,
	}

	logger.Debug("Query classified",
		zap.String("category", string(result.Category)),
		zap.Bool("sensitive", result.Sensitive),
	)

	return result, nil
}
