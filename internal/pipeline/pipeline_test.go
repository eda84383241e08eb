package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hr-assistant/backend/internal/classify"
	"github.com/hr-assistant/backend/internal/confidence"
	"github.com/hr-assistant/backend/internal/escalation"
	"github.com/hr-assistant/backend/internal/respond"
	"github.com/hr-assistant/backend/internal/retrieval"
	"github.com/hr-assistant/backend/internal/storage/models"
)

type fakeClassifier struct {
	calls  int
	result classify.Result
	err    error
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (classify.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeRetriever struct {
	calls   int
	context retrieval.Context
	err     error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, text string, category classify.Category) (retrieval.Context, error) {
	f.calls++
	return f.context, f.err
}

type fakeResponder struct {
	calls  int
	answer respond.Answer
	err    error
}

func (f *fakeResponder) Respond(ctx context.Context, req respond.Request) (respond.Answer, error) {
	f.calls++
	return f.answer, f.err
}

type fakeSink struct {
	calls   int
	records []*models.ResolutionRecord
	failN   int
}

func (f *fakeSink) Append(ctx context.Context, record *models.ResolutionRecord) error {
	f.calls++
	if f.calls <= f.failN {
		return errors.New("disk full")
	}
	f.records = append(f.records, record)
	return nil
}

type fixture struct {
	classifier *fakeClassifier
	retriever  *fakeRetriever
	responder  *fakeResponder
	sink       *fakeSink
	pipeline   *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		classifier: &fakeClassifier{
			result: classify.Result{Category: classify.CategoryLeavePolicy, Intent: "asking about vacation days"},
		},
		retriever: &fakeRetriever{
			context: retrieval.Context{Fragments: []retrieval.Fragment{
				{Content: "Employees accrue 20 days of PTO per year.", Source: "leave_policy.md", Relevance: 0.9},
			}},
		},
		responder: &fakeResponder{
			answer: respond.Answer{Text: "You get 20 days of PTO per year.", Quality: 0.8, HasQuality: true},
		},
		sink: &fakeSink{},
	}
	f.pipeline = New(f.classifier, f.retriever, f.responder,
		confidence.NewAssessor(0.4),
		escalation.NewPolicy(0.6, []string{"onboarding"}),
		f.sink,
		Options{
			SinkInitialDelay: time.Millisecond,
			SinkMaxDelay:     time.Millisecond,
		})
	return f
}

func TestResolveHappyPath(t *testing.T) {
	f := newFixture()

	res, err := f.pipeline.Resolve(context.Background(), Query{
		Text:       "How many vacation days do I get?",
		EmployeeID: "emp-1",
		Department: "engineering",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if res.Verdict.Escalated {
		t.Errorf("expected non-escalated resolution, got reason %s", res.Verdict.Reason)
	}
	if res.Verdict.Reason != escalation.ReasonNone {
		t.Errorf("Reason = %s, want none", res.Verdict.Reason)
	}
	if res.Confidence < 0.6 {
		t.Errorf("Confidence = %v, want >= 0.6", res.Confidence)
	}
	if res.Category != classify.CategoryLeavePolicy {
		t.Errorf("Category = %s, want leave_policy", res.Category)
	}
	if res.Response != "You get 20 days of PTO per year." {
		t.Errorf("unexpected response: %q", res.Response)
	}
	if len(res.Sources) != 1 || res.Sources[0] != "leave_policy.md" {
		t.Errorf("Sources = %v, want [leave_policy.md]", res.Sources)
	}
	if res.SessionID == "" {
		t.Error("session id should be generated when absent")
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("sink received %d records, want exactly 1", len(f.sink.records))
	}
	if f.sink.records[0].Role != "employee" {
		t.Errorf("Role = %q, want default employee", f.sink.records[0].Role)
	}
}

func TestResolveEmptyQueryRejected(t *testing.T) {
	f := newFixture()

	_, err := f.pipeline.Resolve(context.Background(), Query{})
	if err == nil {
		t.Fatal("expected error for empty query text")
	}
	if f.classifier.calls != 0 {
		t.Error("classifier should not run for invalid queries")
	}
	if f.sink.calls != 0 {
		t.Error("no record should be written for invalid queries")
	}
}

func TestResolveSensitiveShortCircuit(t *testing.T) {
	f := newFixture()
	f.classifier.result = classify.Result{
		Category:  classify.CategoryFlagged,
		Intent:    "Sensitive HR matter requiring human handling",
		Sensitive: true,
	}

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "I want to report harassment"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if f.retriever.calls != 0 {
		t.Error("retriever must not run for sensitive queries")
	}
	if f.responder.calls != 0 {
		t.Error("responder must not run for sensitive queries")
	}
	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonSensitive {
		t.Errorf("Verdict = %+v, want sensitive escalation", res.Verdict)
	}
	if res.Category != classify.CategoryFlagged {
		t.Errorf("Category = %s, want flagged", res.Category)
	}
	if !strings.Contains(res.Response, "sensitive HR matter") {
		t.Errorf("response missing sensitive notice: %q", res.Response)
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("sink received %d records, want exactly 1", len(f.sink.records))
	}
}

func TestResolveEmptyContextEscalatesPolicyGap(t *testing.T) {
	f := newFixture()
	f.retriever.context = retrieval.Context{}

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "What is the sabbatical policy?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if f.responder.calls != 1 {
		t.Error("responder should still run on empty context")
	}
	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonPolicyGap {
		t.Errorf("Verdict = %+v, want policy_gap escalation", res.Verdict)
	}
	if res.Confidence != 0.4 {
		t.Errorf("Confidence = %v, want no-context ceiling 0.4", res.Confidence)
	}
	if !strings.Contains(res.Response, "No specific policy was found") {
		t.Errorf("response missing policy gap notice: %q", res.Response)
	}
}

func TestResolveLowConfidenceEscalates(t *testing.T) {
	f := newFixture()
	f.retriever.context = retrieval.Context{Fragments: []retrieval.Fragment{
		{Content: "vaguely related text", Source: "misc.md", Relevance: 0.3},
	}}
	f.responder.answer = respond.Answer{Text: "I am not certain.", Quality: 0.4, HasQuality: true}

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "Can I expense a standing desk?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonLowConfidence {
		t.Errorf("Verdict = %+v, want low_confidence escalation", res.Verdict)
	}
	if !strings.Contains(res.Response, "may need verification") {
		t.Errorf("response missing low confidence notice: %q", res.Response)
	}
}

func TestResolveComplexCategoryEscalates(t *testing.T) {
	f := newFixture()
	f.classifier.result = classify.Result{Category: classify.CategoryOnboarding, Intent: "new hire paperwork"}

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "What do I need for my first day?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonComplex {
		t.Errorf("Verdict = %+v, want complex escalation", res.Verdict)
	}
}

func TestResolveClassifierFailure(t *testing.T) {
	f := newFixture()
	f.classifier.err = classify.ErrUnavailable

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "How do I enroll in benefits?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if f.retriever.calls != 0 {
		t.Error("retriever should not run after classification failure")
	}
	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonComplex {
		t.Errorf("Verdict = %+v, want complex escalation", res.Verdict)
	}
	if res.FailureNote == "" {
		t.Error("failure note should record the broken stage")
	}
	if !strings.Contains(res.FailureNote, "classify") {
		t.Errorf("FailureNote = %q, want classify stage annotation", res.FailureNote)
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("sink received %d records, want exactly 1 despite stage failure", len(f.sink.records))
	}
	if f.sink.records[0].Category != string(classify.CategoryUnknown) {
		t.Errorf("recorded category = %q, want unknown", f.sink.records[0].Category)
	}
}

func TestResolveRetrievalFailureSkipsGeneration(t *testing.T) {
	f := newFixture()
	f.retriever.err = retrieval.ErrUnavailable

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "What is the remote work policy?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if f.responder.calls != 0 {
		t.Error("responder must not run when retrieval failed")
	}
	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonComplex {
		t.Errorf("Verdict = %+v, want complex escalation", res.Verdict)
	}
	if !strings.Contains(res.FailureNote, "retrieve") {
		t.Errorf("FailureNote = %q, want retrieve stage annotation", res.FailureNote)
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("sink received %d records, want exactly 1", len(f.sink.records))
	}
}

func TestResolveGenerationFailure(t *testing.T) {
	f := newFixture()
	f.responder.err = respond.ErrUnavailable

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "How does payroll work?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if !res.Verdict.Escalated || res.Verdict.Reason != escalation.ReasonComplex {
		t.Errorf("Verdict = %+v, want complex escalation", res.Verdict)
	}
	if !strings.Contains(res.FailureNote, "generate") {
		t.Errorf("FailureNote = %q, want generate stage annotation", res.FailureNote)
	}
}

func TestResolveSinkRetrySucceeds(t *testing.T) {
	f := newFixture()
	f.sink.failN = 2

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "How many vacation days do I get?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if res.LoggingFailed {
		t.Error("LoggingFailed should be false once a retry lands")
	}
	if f.sink.calls != 3 {
		t.Errorf("sink attempts = %d, want 3", f.sink.calls)
	}
	if len(f.sink.records) != 1 {
		t.Fatalf("sink received %d records, want exactly 1", len(f.sink.records))
	}
}

func TestResolveSinkExhaustionDegradesSuccess(t *testing.T) {
	f := newFixture()
	f.sink.failN = 100

	res, err := f.pipeline.Resolve(context.Background(), Query{Text: "How many vacation days do I get?"})
	if err != nil {
		t.Fatalf("Resolve() error = %v, want degraded success", err)
	}

	if !res.LoggingFailed {
		t.Error("LoggingFailed should be true after retries are exhausted")
	}
	if res.Response == "" {
		t.Error("answer must still reach the caller on sink failure")
	}
	if f.sink.calls != 3 {
		t.Errorf("sink attempts = %d, want bounded at 3", f.sink.calls)
	}
}

func TestResolvePreservesSessionID(t *testing.T) {
	f := newFixture()

	res, err := f.pipeline.Resolve(context.Background(), Query{
		Text:      "How many vacation days do I get?",
		SessionID: "session-42",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.SessionID != "session-42" {
		t.Errorf("SessionID = %q, want session-42", res.SessionID)
	}
	if f.sink.records[0].SessionID != "session-42" {
		t.Errorf("recorded SessionID = %q, want session-42", f.sink.records[0].SessionID)
	}
}
