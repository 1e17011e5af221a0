// internal/workers/travel/plan-group-travel/handler.go
package plangrouptravel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "travel-workers/internal/common/errors"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/common/observability"
	"travel-workers/internal/common/validation"
	"travel-workers/internal/models"
	"travel-workers/internal/planner"
	"travel-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "plan-group-travel"
)

type GroupPlanner interface {
	PlanGroupTravel(ctx context.Context, orgID string, needs []models.TravelNeed, assignments []models.MemberAssignment, title string) (*models.GroupTravelPlan, error)
}

type Handler struct {
	config    *Config
	planner   GroupPlanner
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

func NewHandler(config *Config, planner GroupPlanner, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		planner:   planner,
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

	var output *Output
	input, err := h.parseInput(job.Variables)
	if err == nil {
		output, err = h.Execute(ctx, input)
	}
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

	if output.NeedsClarification {
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

// Execute completes with a clarification request when the destination city
// has no airport, so the process can ask the user instead of raising an
// incident.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	plan, err := h.planner.PlanGroupTravel(ctx, input.OrganizationID, input.Needs, input.Assignments, input.Title)
	if errors.Is(err, planner.ErrDestinationUnresolved) {
		city := ""
		if len(input.Needs) > 0 {
			city = input.Needs[0].DestinationCity
		}
		h.logger.Info("destination needs clarification", map[string]interface{}{"city": city})
		return &Output{
			NeedsClarification: true,
			UnresolvedCity:     city,
			Message:            fmt.Sprintf("I couldn't find an airport for %q. Which airport should the team fly into?", city),
			ErrorCode:          string(apperrors.ErrCodeAirportUnresolved),
		}, nil
	}
	if err != nil {
		return nil, h.mapError(err)
	}

	return &Output{
		Plan:               plan,
		TotalEstimatedCost: plan.TotalEstimatedCost,
		Currency:           plan.Currency,
	}, nil
}

func (h *Handler) mapError(err error) error {
	switch {
	case errors.Is(err, planner.ErrNoNeeds):
		return apperrors.NewInvalidInputError(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewFlightSearchTimeoutError("group", h.config.Timeout)
	default:
		return apperrors.NewInternalError(err)
	}
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
