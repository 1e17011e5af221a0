// internal/workers/travel/rank-flights/handler.go
package rankflights

import (
	"context"
	"encoding/json"
	"time"

	apperrors "travel-workers/internal/common/errors"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/common/observability"
	"travel-workers/internal/common/validation"
	"travel-workers/internal/models"
	"travel-workers/internal/ranking"
	"travel-workers/internal/store"
	"travel-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "rank-flights"
)

type Handler struct {
	config    *Config
	ranker    *ranking.Ranker
	prefs     store.PreferenceStore
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

// NewHandler builds the worker. prefs may be nil when jobs always carry
// preferences.
func NewHandler(config *Config, ranker *ranking.Ranker, prefs store.PreferenceStore, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		ranker:    ranker,
		prefs:     prefs,
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
		timer.Failed(errorCode(err))
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

// Execute ranks the offers. Preferences in the job win over the stored ones;
// with neither, defaults apply.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	prefs, err := h.preferences(ctx, input)
	if err != nil {
		return nil, err
	}

	ranked := h.ranker.Rank(input.Offers, prefs)

	topN := h.config.TopN
	if input.TopN != nil {
		topN = *input.TopN
	}
	if topN > 0 {
		ranked = ranking.TopN(ranked, topN)
	}

	return &Output{
		RankedOffers: ranked,
		TotalOffers:  len(input.Offers),
	}, nil
}

func (h *Handler) preferences(ctx context.Context, input *Input) (models.UserPreferences, error) {
	if input.Preferences != nil {
		return *input.Preferences, nil
	}
	if input.UserID == "" || h.prefs == nil {
		return models.DefaultPreferences(input.UserID), nil
	}
	prefs, err := h.prefs.Get(ctx, input.UserID)
	if err != nil {
		return models.UserPreferences{}, apperrors.NewPreferencesLookupFailedError(input.UserID, err)
	}
	return prefs, nil
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

func errorCode(err error) string {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return string(stdErr.Code)
	}
	return string(apperrors.ErrCodeInternal)
}
