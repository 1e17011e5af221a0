// internal/workers/travel/group-flow-message/handler.go
package groupflowmessage

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
	"travel-workers/internal/groupflow"
	"travel-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "group-flow-message"

	stateIdle = "idle"
)

// Flow is satisfied by *groupflow.Machine.
type Flow interface {
	HandleMessage(ctx context.Context, userID, message string) (groupflow.Reply, error)
}

type Handler struct {
	config    *Config
	flow      Flow
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, flow Flow, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		flow:      flow,
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

	input, err := h.parseInput(job.Variables)
	if err != nil {
		timer.Failed(string(apperrors.ErrCodeInvalidInput))
		h.obs.RecordJob(ctx, TaskType, "failed", time.Since(start))
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		timer.Failed(string(apperrors.ErrCodeFlowStateStoreFailed))
		h.obs.RecordJob(ctx, TaskType, "failed", time.Since(start))
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	if output.ErrorCode != "" {
		timer.Failed(output.ErrorCode)
	} else {
		timer.Completed()
	}
	h.obs.RecordJob(ctx, TaskType, "completed", time.Since(start))
	h.completeJob(client, job, output)
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

// Execute runs one turn. An invalid stored state still completes the job:
// the reply already tells the user to start over.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	reply, err := h.flow.HandleMessage(ctx, input.UserID, input.Message)
	if err != nil {
		if errors.Is(err, groupflow.ErrInvalidFlowState) {
			h.logger.Warn("group flow reset", map[string]interface{}{
				"userId": input.UserID,
				"error":  err,
			})
			return &Output{
				Reply:     reply,
				State:     stateIdle,
				ErrorCode: string(apperrors.ErrCodeInvalidFlowState),
			}, nil
		}
		return nil, apperrors.NewFlowStateStoreFailedError(input.UserID, err)
	}

	state := string(reply.State)
	if state == "" {
		state = stateIdle
	}
	return &Output{Reply: reply, State: state}, nil
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
