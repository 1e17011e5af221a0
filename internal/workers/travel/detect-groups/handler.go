// internal/workers/travel/detect-groups/handler.go
package detectgroups

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "travel-workers/internal/common/errors"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/common/observability"
	"travel-workers/internal/common/validation"
	"travel-workers/internal/models"
	"travel-workers/internal/store"
	"travel-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "detect-groups"
)

// GroupDetector is satisfied by *planner.Service.
type GroupDetector interface {
	DetectGroups(ctx context.Context, orgID string) ([]models.TravelGroup, error)
}

type Handler struct {
	config    *Config
	detector  GroupDetector
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, detector GroupDetector, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		detector:  detector,
		validator: registry.MustInputValidator(TaskType),
		errors:    apperrors.NewErrorHandler(l),
		obs:       obs,
		logger:    l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	timer := metrics.StartJob(TaskType)
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.process(ctx, job.Variables)
	if err != nil {
		code := apperrors.ErrCodeInternal
		if stdErr, ok := apperrors.AsStandardError(err); ok {
			code = stdErr.Code
		}
		timer.Failed(string(code))
		h.obs.RecordJob(ctx, TaskType, "failed", time.Since(start))
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	timer.Completed()
	h.obs.RecordJob(ctx, TaskType, "completed", time.Since(start))
	h.completeJob(client, job, output)
}

func (h *Handler) process(ctx context.Context, variables string) (*Output, error) {
	input, err := h.parseInput(variables)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	result, err := h.validator.ValidateJSON(variables)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	if !result.Valid {
		return nil, apperrors.NewInvalidInputError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewInvalidInputError(err.Error())
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	groups, err := h.detector.DetectGroups(ctx, input.OrganizationID)
	if err != nil {
		if errors.Is(err, store.ErrOrganizationNotFound) {
			return nil, apperrors.NewInvalidInputError("organization not found: " + input.OrganizationID)
		}
		return nil, apperrors.NewDirectoryLookupFailedError(input.OrganizationID, err)
	}
	if groups == nil {
		groups = []models.TravelGroup{}
	}

	h.logger.Info("groups detected", map[string]interface{}{
		"organizationId": input.OrganizationID,
		"groups":         len(groups),
	})
	return &Output{Groups: groups, GroupCount: len(groups)}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
