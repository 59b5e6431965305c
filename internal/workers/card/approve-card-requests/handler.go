package approvecardrequests

import (
	"context"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"card-approval-workers/internal/cardapproval"
	"card-approval-workers/internal/common/config"
	"card-approval-workers/internal/common/errors"
	"card-approval-workers/internal/common/logger"
	"card-approval-workers/internal/common/metrics"
	"card-approval-workers/internal/common/validation"
	"card-approval-workers/pkg/registry"
)

const (
	TaskType  = "card.requests.approve"
	ConfigKey = "approve-card-requests"
)

// Approver is the part of the card request pipeline this worker needs.
type Approver interface {
	Approve(ctx context.Context, path string) ([]cardapproval.ApprovalResult, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	approver     Approver
	errorHandler *errors.ErrorHandler
	activity     *registry.Activity
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Approver     Approver
	Logger       logger.Logger
	// Activity is the registry entry for TaskType. When set, job variables
	// must also satisfy its input schema.
	Activity *registry.Activity
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", ConfigKey, err)
	}
	if opts.Approver == nil {
		return nil, fmt.Errorf("approver is required for %s", ConfigKey)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}
	loggerInstance = loggerInstance.WithFields(map[string]interface{}{"worker": TaskType})

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		approver:     opts.Approver,
		errorHandler: errors.NewErrorHandler(loggerInstance).WithMaxRetries(workerConfig.MaxRetries),
		activity:     opts.Activity,
	}, nil
}

// Config returns the effective worker configuration.
func (h *Handler) Config() Config {
	return *h.config
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing card approval job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInputParsingError(err)
	}

	validationResult := validation.ValidateInput(variables, GetInputSchema())
	if !validationResult.Valid {
		return nil, errors.NewValidationError(
			fmt.Sprintf("Validation errors: %v", validationResult.GetErrorMessages()),
		)
	}

	if h.activity != nil {
		registryResult, err := h.activity.ValidateInput(variables)
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("registry schema for %s: %v", h.activity.ID, err))
		}
		if !registryResult.Valid {
			return nil, errors.NewValidationError(
				fmt.Sprintf("Validation errors: %v", registryResult.GetErrorMessages()),
			)
		}
	}

	return &Input{FilePath: variables["filePath"].(string)}, nil
}

// Execute approves the requests in input.FilePath under a fresh run id.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	runID := cardapproval.NewRunID()
	ctx = cardapproval.WithRunID(ctx, runID)

	approved, err := h.approver.Approve(ctx, input.FilePath)
	if err != nil {
		return nil, err
	}

	return &Output{
		RunID:            runID,
		ApprovedRequests: approved,
		ApprovedCount:    len(approved),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(output.ToVariables())
	if err != nil {
		h.logger.Error("Failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		h.failJob(ctx, client, job, err)
		return
	}

	if _, err := request.Send(ctx); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("Card approval job completed", map[string]interface{}{
		"jobKey":        job.GetKey(),
		"runId":         output.RunID,
		"approvedCount": output.ApprovedCount,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
