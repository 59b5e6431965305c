package cardapproval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"card-approval-workers/internal/common/errors"
	"card-approval-workers/internal/common/logger"
	"card-approval-workers/internal/common/metrics"
)

// Pipeline operations, used as log and metric labels.
const (
	OperationLoad    = "load"
	OperationApprove = "approve"
	OperationReject  = "reject"
)

const statusSuccess = "success"

// Recorder receives one observation per pipeline run.
type Recorder interface {
	RecordRun(ctx context.Context, operation, status string, duration time.Duration)
}

type runIDKey struct{}

// WithRunID attaches a run id to ctx. Pipeline runs use it instead of
// generating their own.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run id attached to ctx, if any.
func RunIDFrom(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey{}).(string)
	return runID, ok && runID != ""
}

// NewRunID returns a fresh run id.
func NewRunID() string {
	return uuid.NewString()
}

type PipelineOptions struct {
	Source   FileSource
	Parser   Parser
	Criteria *Criteria
	Logger   logger.Logger
	Recorder Recorder
}

// Pipeline runs existence check, read, parse and classification for a card
// request file. It holds no mutable state.
type Pipeline struct {
	source     FileSource
	parser     Parser
	classifier *Classifier
	logger     logger.Logger
	recorder   Recorder
}

func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("file source is required")
	}
	if opts.Criteria == nil {
		return nil, fmt.Errorf("criteria are required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	return &Pipeline{
		source:     opts.Source,
		parser:     opts.Parser,
		classifier: NewClassifier(opts.Criteria),
		logger:     log,
		recorder:   opts.Recorder,
	}, nil
}

// Load checks the file exists, reads it and parses it.
func (p *Pipeline) Load(ctx context.Context, path string) ([]CardRequest, error) {
	ctx, log := p.begin(ctx, OperationLoad, path)
	start := time.Now()

	requests, err := p.load(ctx, log, path)
	p.finish(ctx, log, OperationLoad, start, err)
	return requests, err
}

// Approve returns the requests that matched a tier, in file order. It fails
// with NO_APPROVALS when none did.
func (p *Pipeline) Approve(ctx context.Context, path string) ([]ApprovalResult, error) {
	ctx, log := p.begin(ctx, OperationApprove, path)
	start := time.Now()

	results, err := p.classify(ctx, log, path)
	if err != nil {
		p.finish(ctx, log, OperationApprove, start, err)
		return nil, err
	}

	approved, _ := Partition(results)
	log.Info("Card requests approved", map[string]interface{}{
		"approved": len(approved),
		"total":    len(results),
	})
	p.finish(ctx, log, OperationApprove, start, nil)
	return approved, nil
}

// Reject returns the requests that matched no tier, in file order. It runs
// the same classification step as Approve, so a file with no approvals fails
// with NO_APPROVALS here as well. An empty result is not an error.
func (p *Pipeline) Reject(ctx context.Context, path string) ([]CardRequest, error) {
	ctx, log := p.begin(ctx, OperationReject, path)
	start := time.Now()

	results, err := p.classify(ctx, log, path)
	if err != nil {
		p.finish(ctx, log, OperationReject, start, err)
		return nil, err
	}

	_, rejected := Partition(results)
	requests := make([]CardRequest, len(rejected))
	for i, r := range rejected {
		requests[i] = r.CardRequest
	}

	log.Info("Card requests rejected", map[string]interface{}{
		"rejected": len(requests),
		"total":    len(results),
	})
	p.finish(ctx, log, OperationReject, start, nil)
	return requests, nil
}

// Partition splits results into approved and rejected, preserving order.
func Partition(results []ApprovalResult) (approved, rejected []ApprovalResult) {
	approved = make([]ApprovalResult, 0, len(results))
	rejected = make([]ApprovalResult, 0)
	for _, r := range results {
		if r.Approved() {
			approved = append(approved, r)
		} else {
			rejected = append(rejected, r)
		}
	}
	return approved, rejected
}

func (p *Pipeline) load(ctx context.Context, log logger.Logger, path string) ([]CardRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, err := p.source.Exists(path)
	if err != nil {
		return nil, err
	}

	content, err := p.source.Read(resolved)
	if err != nil {
		return nil, err
	}
	log.Debug("Card request file read", map[string]interface{}{
		"resolvedPath": resolved,
		"bytes":        len(content),
	})

	requests, err := p.parser.Parse(content)
	if err != nil {
		return nil, err
	}
	log.Debug("Card request file parsed", map[string]interface{}{
		"requests": len(requests),
	})
	return requests, nil
}

// classify is the step shared by Approve and Reject.
func (p *Pipeline) classify(ctx context.Context, log logger.Logger, path string) ([]ApprovalResult, error) {
	requests, err := p.load(ctx, log, path)
	if err != nil {
		return nil, err
	}

	results := p.classifier.ClassifyAll(requests)
	approvedCount := 0
	for _, r := range results {
		metrics.ObserveClassification(r.CardType)
		if r.Approved() {
			approvedCount++
		}
	}

	if approvedCount == 0 {
		return nil, errors.NewNoApprovalsError()
	}
	return results, nil
}

func (p *Pipeline) begin(ctx context.Context, operation, path string) (context.Context, logger.Logger) {
	runID, ok := RunIDFrom(ctx)
	if !ok {
		runID = NewRunID()
		ctx = WithRunID(ctx, runID)
	}

	log := p.logger.With(map[string]interface{}{
		"runId":     runID,
		"operation": operation,
		"filePath":  path,
	})
	log.Debug("Pipeline run started", nil)
	return ctx, log
}

func (p *Pipeline) finish(ctx context.Context, log logger.Logger, operation string, start time.Time, err error) {
	status := statusSuccess
	if err != nil {
		status = string(errors.CodeOf(err))
		metrics.CardPipelineFailures.WithLabelValues(operation, status).Inc()
		log.Warn("Pipeline run failed", map[string]interface{}{
			"errorCode": status,
			"error":     err.Error(),
		})
	}

	if p.recorder != nil {
		p.recorder.RecordRun(ctx, operation, status, time.Since(start))
	}
}
