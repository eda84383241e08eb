package escalation

import (
	"fmt"
	"strings"

	"github.com/hr-assistant/backend/internal/classify"
)

type Reason string

const (
	ReasonNone          Reason = "none"
	ReasonSensitive     Reason = "sensitive"
	ReasonPolicyGap     Reason = "policy_gap"
	ReasonLowConfidence Reason = "low_confidence"
	ReasonComplex       Reason = "complex"
)

// Priority maps a reason to the triage priority recorded on the
// escalation log.
func (r Reason) Priority() string {
	switch r {
	case ReasonSensitive:
		return "high"
	case ReasonLowConfidence:
		return "low"
	default:
		return "medium"
	}
}

// Verdict is the routing decision for one query. Reason is none exactly
// when Escalated is false.
type Verdict struct {
	Escalated bool
	Reason    Reason
}

// Policy decides whether a resolution is routed to a human. Decide is a
// pure function; the threshold and complex-category set are fixed at
// construction from configuration.
type Policy struct {
	threshold     float64
	alwaysComplex map[classify.Category]struct{}
}

func NewPolicy(threshold float64, alwaysComplexCategories []string) *Policy {
	complex := make(map[classify.Category]struct{}, len(alwaysComplexCategories))
	for _, c := range alwaysComplexCategories {
		complex[classify.Category(strings.ToLower(strings.TrimSpace(c)))] = struct{}{}
	}
	return &Policy{
		threshold:     threshold,
		alwaysComplex: complex,
	}
}

func (p *Policy) Threshold() float64 {
	return p.threshold
}

// Decide evaluates the escalation rules in strict precedence order;
// the first match wins and exactly one reason is emitted.
func (p *Policy) Decide(sensitive bool, confidence float64, contextEmpty bool, category classify.Category) Verdict {
	switch {
	case sensitive:
		return Verdict{Escalated: true, Reason: ReasonSensitive}
	case contextEmpty:
		return Verdict{Escalated: true, Reason: ReasonPolicyGap}
	case confidence < p.threshold:
		return Verdict{Escalated: true, Reason: ReasonLowConfidence}
	default:
		if _, ok := p.alwaysComplex[category]; ok {
			return Verdict{Escalated: true, Reason: ReasonComplex}
		}
	}
	return Verdict{Escalated: false, Reason: ReasonNone}
}

var notices = map[Reason]string{
	ReasonSensitive:     "This query involves a sensitive HR matter and requires direct HR team involvement.",
	ReasonComplex:       "This query involves a complex process that may require personalized HR guidance.",
	ReasonPolicyGap:     "No specific policy was found in our current documentation for this query.",
	ReasonLowConfidence: "This response may need verification by an HR specialist.",
}

// Notice renders the footer appended to escalated responses. The
// reference id is the short form of the session id.
func Notice(reason Reason, referenceID string) string {
	notice, ok := notices[reason]
	if !ok {
		notice = "This query has been flagged for HR review."
	}

	ref := referenceID
	if len(ref) > 8 {
		ref = ref[:8]
	}

	return fmt.Sprintf(`

---
%s

Your query has been escalated to the HR team. An HR representative will reach out within 1-2 business days.

For urgent matters, please contact HR directly at: hr@company.com

Reference ID: %s`, notice, strings.ToUpper(ref))
}
