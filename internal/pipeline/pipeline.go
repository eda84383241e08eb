package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/internal/classify"
	"github.com/hr-assistant/backend/internal/confidence"
	"github.com/hr-assistant/backend/internal/escalation"
	"github.com/hr-assistant/backend/internal/metrics"
	"github.com/hr-assistant/backend/internal/respond"
	"github.com/hr-assistant/backend/internal/retrieval"
	"github.com/hr-assistant/backend/internal/storage/models"
	"github.com/hr-assistant/backend/pkg/logger"
	"github.com/hr-assistant/backend/pkg/retry"
)

// Classifier maps query text to a category and sensitivity flag.
type Classifier interface {
	Classify(ctx context.Context, text string) (classify.Result, error)
}

// Retriever returns ranked policy fragments. Empty context with nil
// error is a valid outcome, distinct from retrieval.ErrUnavailable.
type Retriever interface {
	Retrieve(ctx context.Context, text string, category classify.Category) (retrieval.Context, error)
}

// Responder generates an answer from query and retrieved context.
type Responder interface {
	Respond(ctx context.Context, req respond.Request) (respond.Answer, error)
}

// Sink durably appends resolution records. Safe for concurrent writers.
type Sink interface {
	Append(ctx context.Context, record *models.ResolutionRecord) error
}

// Query is one immutable employee question with its requester identity.
type Query struct {
	Text       string
	EmployeeID string
	Department string
	Role       string
	SessionID  string
}

// Resolution is the outcome of one pipeline run, projected for callers.
// A Resolution always exists, even when every upstream stage failed.
type Resolution struct {
	SessionID      string
	Query          string
	Response       string
	Category       classify.Category
	Intent         string
	Confidence     float64
	Verdict        escalation.Verdict
	Sources        []string
	ResponseTimeMS int
	FailureNote    string
	LoggingFailed  bool
}

// Options are the orchestrator timeouts and sink retry policy, built
// once from configuration.
type Options struct {
	ClassifyTimeout time.Duration
	RetrieveTimeout time.Duration
	GenerateTimeout time.Duration
	SinkMaxAttempts int
	SinkInitialDelay time.Duration
	SinkMaxDelay    time.Duration
}

// Pipeline drives one query through classification, retrieval,
// generation, confidence assessment, the escalation decision and the
// analytics write. Each call is an independent unit of work; the only
// shared state is the sink and the read-only policy values.
type Pipeline struct {
	classifier Classifier
	retriever  Retriever
	responder  Responder
	assessor   *confidence.Assessor
	policy     *escalation.Policy
	sink       Sink
	opts       Options
}

func New(classifier Classifier, retriever Retriever, responder Responder, assessor *confidence.Assessor, policy *escalation.Policy, sink Sink, opts Options) *Pipeline {
	if opts.ClassifyTimeout == 0 {
		opts.ClassifyTimeout = 15 * time.Second
	}
	if opts.RetrieveTimeout == 0 {
		opts.RetrieveTimeout = 10 * time.Second
	}
	if opts.GenerateTimeout == 0 {
		opts.GenerateTimeout = 45 * time.Second
	}
	if opts.SinkMaxAttempts == 0 {
		opts.SinkMaxAttempts = 3
	}
	if opts.SinkInitialDelay == 0 {
		opts.SinkInitialDelay = 100 * time.Millisecond
	}
	if opts.SinkMaxDelay == 0 {
		opts.SinkMaxDelay = 2 * time.Second
	}

	return &Pipeline{
		classifier: classifier,
		retriever:  retriever,
		responder:  responder,
		assessor:   assessor,
		policy:     policy,
		sink:       sink,
		opts:       opts,
	}
}

// run carries the mutable state of one resolution between stages.
type run struct {
	state       State
	query       Query
	startedAt   time.Time
	result      classify.Result
	context     retrieval.Context
	answer      respond.Answer
	answerText  string
	confidence  float64
	verdict     escalation.Verdict
	failureNote string
}

func (p *Pipeline) advance(r *run, next State) {
	logger.Debug("Pipeline transition",
		zap.String("session_id", r.query.SessionID),
		zap.String("from", r.state.String()),
		zap.String("to", next.String()),
	)
	r.state = next
}

// Resolve processes one query end to end. It always returns a
// Resolution: stage failures are absorbed into a complex-reason
// escalation with a failure annotation, never surfaced as bare errors.
// The returned error is non-nil only when the query itself is invalid.
func (p *Pipeline) Resolve(ctx context.Context, query Query) (*Resolution, error) {
	if query.Text == "" {
		return nil, fmt.Errorf("query text is required")
	}
	if query.SessionID == "" {
		query.SessionID = uuid.New().String()
	}
	if query.Role == "" {
		query.Role = "employee"
	}

	r := &run{
		state:     StateReceived,
		query:     query,
		startedAt: time.Now(),
	}

	logger.Info("Processing query",
		zap.String("session_id", query.SessionID),
		zap.String("employee_id", query.EmployeeID),
		zap.String("role", query.Role),
	)

	p.classifyStage(ctx, r)

	if r.state == StateClassified {
		if r.result.Sensitive {
			// Terminal fast path: retrieval and generation never run
			// for sensitive queries.
			p.advance(r, StateEscalatedSensitive)
			r.verdict = p.policy.Decide(true, 0, false, r.result.Category)
			r.answerText = "Thank you for your query." + escalation.Notice(r.verdict.Reason, query.SessionID)
			p.advance(r, StateDecided)
		} else {
			p.retrieveStage(ctx, r)
		}
	}

	if r.state == StateRetrieved {
		p.generateStage(ctx, r)
	}

	if r.state == StateGenerated {
		r.confidence = p.assessor.Assess(r.context, r.answer)
		p.advance(r, StateAssessed)

		r.verdict = p.policy.Decide(false, r.confidence, r.context.Empty(), r.result.Category)
		if r.verdict.Escalated {
			r.answerText = r.answer.Text + escalation.Notice(r.verdict.Reason, query.SessionID)
		} else {
			r.answerText = r.answer.Text
		}
		p.advance(r, StateDecided)
	}

	resolution := p.finish(ctx, r)
	return resolution, nil
}

func (p *Pipeline) classifyStage(ctx context.Context, r *run) {
	cctx, cancel := context.WithTimeout(ctx, p.opts.ClassifyTimeout)
	defer cancel()

	result, err := p.classifier.Classify(cctx, r.query.Text)
	if err != nil {
		p.fail(r, stageClassify, err)
		return
	}

	r.result = result
	p.advance(r, StateClassified)
}

func (p *Pipeline) retrieveStage(ctx context.Context, r *run) {
	rctx, cancel := context.WithTimeout(ctx, p.opts.RetrieveTimeout)
	defer cancel()

	retrieved, err := p.retriever.Retrieve(rctx, r.query.Text, r.result.Category)
	if err != nil {
		// Backend failure is not a policy gap: skip generation so the
		// model cannot hallucinate unsupported policy.
		p.fail(r, stageRetrieve, err)
		return
	}

	r.context = retrieved
	metrics.RetrievedFragments.Observe(float64(len(retrieved.Fragments)))
	p.advance(r, StateRetrieved)
}

func (p *Pipeline) generateStage(ctx context.Context, r *run) {
	gctx, cancel := context.WithTimeout(ctx, p.opts.GenerateTimeout)
	defer cancel()

	answer, err := p.responder.Respond(gctx, respond.Request{
		Query:      r.query.Text,
		Role:       r.query.Role,
		Department: r.query.Department,
		Category:   r.result.Category,
		Context:    r.context,
	})
	if err != nil {
		p.fail(r, stageGenerate, err)
		return
	}

	r.answer = answer
	p.advance(r, StateGenerated)
}

// fail absorbs a stage failure: the run jumps straight to Decided with a
// synthesized complex-reason verdict and a failure annotation, so a
// record is produced no matter which stage broke.
func (p *Pipeline) fail(r *run, stage string, err error) {
	logger.Error("Pipeline stage failed",
		zap.String("session_id", r.query.SessionID),
		zap.String("stage", stage),
		zap.Error(err),
	)
	metrics.StageFailures.WithLabelValues(stage).Inc()

	if r.result.Category == "" {
		r.result.Category = classify.CategoryUnknown
	}

	r.failureNote = fmt.Sprintf("%s stage failed: %v", stage, err)
	r.verdict = escalation.Verdict{Escalated: true, Reason: escalation.ReasonComplex}
	r.answerText = "Thank you for your query." + escalation.Notice(r.verdict.Reason, r.query.SessionID)
	p.advance(r, StateDecided)
}

// finish builds the resolution, writes the record with bounded backoff
// and reports a degraded success if the sink stays unavailable.
func (p *Pipeline) finish(ctx context.Context, r *run) *Resolution {
	elapsed := int(time.Since(r.startedAt).Milliseconds())

	category := r.result.Category
	if r.result.Sensitive {
		category = classify.CategoryFlagged
	}

	resolution := &Resolution{
		SessionID:      r.query.SessionID,
		Query:          r.query.Text,
		Response:       r.answerText,
		Category:       category,
		Intent:         r.result.Intent,
		Confidence:     r.confidence,
		Verdict:        r.verdict,
		Sources:        r.context.Sources(),
		ResponseTimeMS: elapsed,
		FailureNote:    r.failureNote,
	}

	record := &models.ResolutionRecord{
		SessionID:        resolution.SessionID,
		EmployeeID:       r.query.EmployeeID,
		Department:       r.query.Department,
		Role:             r.query.Role,
		QueryText:        r.query.Text,
		QueryIntent:      resolution.Intent,
		Category:         string(resolution.Category),
		ResponseText:     resolution.Response,
		Confidence:       resolution.Confidence,
		Escalated:        resolution.Verdict.Escalated,
		EscalationReason: string(resolution.Verdict.Reason),
		FailureNote:      resolution.FailureNote,
		Sources:          resolution.Sources,
		ResponseTimeMS:   resolution.ResponseTimeMS,
		CreatedAt:        time.Now(),
	}

	// Once the write begins it must complete even if the caller has
	// disconnected; a record is never partially persisted or lost to a
	// hangup mid-pipeline.
	writeCtx := context.WithoutCancel(ctx)

	attempt := 0
	err := retry.Do(writeCtx, retry.Config{
		MaxAttempts:  p.opts.SinkMaxAttempts,
		InitialDelay: p.opts.SinkInitialDelay,
		MaxDelay:     p.opts.SinkMaxDelay,
		Multiplier:   2.0,
		Logger:       logger.GetLogger(),
	}, func() error {
		attempt++
		if attempt > 1 {
			metrics.SinkWriteRetries.Inc()
		}
		return p.sink.Append(writeCtx, record)
	})

	if err != nil {
		// Degraded success: the verdict and answer still reach the
		// caller; only the audit write is reported as failed.
		logger.Error("Analytics sink write failed after retries",
			zap.String("session_id", r.query.SessionID),
			zap.Error(err),
		)
		metrics.SinkWriteFailures.Inc()
		resolution.LoggingFailed = true
	} else {
		p.advance(r, StateLogged)
	}

	metrics.QueryTotal.WithLabelValues(queryStatus(resolution)).Inc()
	metrics.QueryDuration.WithLabelValues(string(resolution.Category)).Observe(float64(elapsed) / 1000.0)
	metrics.ConfidenceScore.Observe(resolution.Confidence)
	if resolution.Verdict.Escalated {
		metrics.EscalationsTotal.WithLabelValues(string(resolution.Verdict.Reason)).Inc()
	}

	p.advance(r, StateDone)

	logger.Info("Query resolved",
		zap.String("session_id", resolution.SessionID),
		zap.String("category", string(resolution.Category)),
		zap.Float64("confidence", resolution.Confidence),
		zap.Bool("escalated", resolution.Verdict.Escalated),
		zap.String("reason", string(resolution.Verdict.Reason)),
		zap.Int("response_time_ms", elapsed),
	)

	return resolution
}

func queryStatus(res *Resolution) string {
	switch {
	case res.FailureNote != "":
		return "degraded"
	case res.Verdict.Escalated:
		return "escalated"
	default:
		return "answered"
	}
}
