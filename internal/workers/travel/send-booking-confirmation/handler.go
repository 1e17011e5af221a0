// internal/workers/travel/send-booking-confirmation/handler.go
package sendbookingconfirmation

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
	"travel-workers/internal/notify"
	"travel-workers/internal/store"
	"travel-workers/pkg/registry"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-booking-confirmation"
)

type Handler struct {
	config    *Config
	notifier  notify.Notifier
	directory store.Directory
	validator *validation.Validator
	errors    *apperrors.ErrorHandler
	obs       *observability.Observability
	logger    logger.Logger
}

// NewHandler builds the worker. directory fills in recipients the job leaves
// out and may be nil.
func NewHandler(config *Config, notifier notify.Notifier, directory store.Directory, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		notifier:  notifier,
		directory: directory,
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
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	recipients := h.recipients(ctx, input)

	res, err := h.notifier.SendConfirmation(ctx, input.Confirmation, recipients)
	if err != nil {
		if errors.Is(err, notify.ErrDeliveryFailed) {
			return nil, apperrors.NewNotificationSendFailedError("all", err).
				WithMetadata("confirmationId", input.Confirmation.ConfirmationID)
		}
		return nil, apperrors.NewInternalError(err)
	}

	h.logger.Info("confirmation sent", map[string]interface{}{
		"confirmationId": input.Confirmation.ConfirmationID,
		"notificationId": res.NotificationID,
		"status":         res.Status,
	})
	return &Output{
		NotificationID: res.NotificationID,
		Status:         res.Status,
		Delivered:      res.Delivered,
		Failed:         res.Failed,
	}, nil
}

// recipients completes contact details from the directory. With no
// recipients in the job the confirmation's owner is notified.
func (h *Handler) recipients(ctx context.Context, input *Input) []notify.Recipient {
	recipients := input.Recipients
	if len(recipients) == 0 && input.Confirmation.UserID != "" {
		recipients = []notify.Recipient{{UserID: input.Confirmation.UserID}}
	}
	if h.directory == nil {
		return recipients
	}

	out := make([]notify.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if r.UserID != "" && r.Email == "" && r.Phone == "" {
			u, err := h.directory.GetUser(ctx, r.UserID)
			if err != nil {
				h.logger.Warn("recipient lookup failed", map[string]interface{}{"userId": r.UserID, "error": err})
			} else {
				r.Email, r.Phone = u.Email, u.Phone
				if r.Name == "" {
					r.Name = u.Name
				}
			}
		}
		out = append(out, r)
	}
	return out
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
