// Package notify delivers booking confirmations by email (SES) and SMS (SNS).
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsclients "travel-workers/internal/common/aws"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/google/uuid"
)

const (
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusSkipped = "skipped"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	smsSenderIDAttribute = "AWS.SNS.SMS.SenderID"
)

var ErrDeliveryFailed = errors.New("confirmation delivery failed")

type Recipient struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

type Result struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Delivered      []string `json:"delivered"`
	Failed         []string `json:"failed,omitempty"`
}

type Notifier interface {
	SendConfirmation(ctx context.Context, conf models.BookingConfirmation, recipients []Recipient) (*Result, error)
}

type Config struct {
	EmailEnabled bool
	FromEmail    string
	SMSEnabled   bool
	SMSSenderID  string
}

type AWSNotifier struct {
	ses    awsclients.SESService
	sns    awsclients.SNSService
	cfg    Config
	logger logger.Logger
}

func NewAWSNotifier(sesClient awsclients.SESService, snsClient awsclients.SNSService, cfg Config, log logger.Logger) *AWSNotifier {
	return &AWSNotifier{
		ses:    sesClient,
		sns:    snsClient,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// SendConfirmation tries every channel of every recipient. It fails only when
// nothing could be delivered.
func (n *AWSNotifier) SendConfirmation(ctx context.Context, conf models.BookingConfirmation, recipients []Recipient) (*Result, error) {
	result := &Result{NotificationID: uuid.NewString(), Delivered: []string{}}
	subject := fmt.Sprintf("Trip confirmed: %s", conf.ConfirmationID)
	body := RenderConfirmation(conf)
	var errs []error

	for _, r := range recipients {
		if n.cfg.EmailEnabled && n.ses != nil && r.Email != "" {
			if err := n.sendEmail(ctx, r.Email, subject, body); err != nil {
				errs = append(errs, fmt.Errorf("email %s: %w", r.Email, err))
				result.Failed = append(result.Failed, ChannelEmail+":"+r.UserID)
			} else {
				result.Delivered = append(result.Delivered, ChannelEmail+":"+r.UserID)
			}
		}
		if n.cfg.SMSEnabled && n.sns != nil && r.Phone != "" {
			if err := n.sendSMS(ctx, r.Phone, smsText(conf)); err != nil {
				errs = append(errs, fmt.Errorf("sms %s: %w", r.Phone, err))
				result.Failed = append(result.Failed, ChannelSMS+":"+r.UserID)
			} else {
				result.Delivered = append(result.Delivered, ChannelSMS+":"+r.UserID)
			}
		}
	}

	switch {
	case len(result.Delivered) == 0 && len(errs) == 0:
		result.Status = StatusSkipped
	case len(result.Delivered) == 0:
		return result, fmt.Errorf("%w: %w", ErrDeliveryFailed, errors.Join(errs...))
	case len(errs) > 0:
		result.Status = StatusPartial
		n.logger.Warn("some confirmation deliveries failed", map[string]interface{}{
			"confirmationId": conf.ConfirmationID,
			"error":          errors.Join(errs...),
		})
	default:
		result.Status = StatusSent
	}

	n.logger.Info("confirmation notification processed", map[string]interface{}{
		"confirmationId": conf.ConfirmationID,
		"notificationId": result.NotificationID,
		"status":         result.Status,
		"delivered":      len(result.Delivered),
	})
	return result, nil
}

func (n *AWSNotifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Message: &sestypes.Message{
			Subject: &sestypes.Content{Data: aws.String(subject)},
			Body: &sestypes.Body{
				Text: &sestypes.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.FromEmail),
	})
	return err
}

func (n *AWSNotifier) sendSMS(ctx context.Context, to, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	}
	if n.cfg.SMSSenderID != "" {
		input.MessageAttributes = map[string]snstypes.MessageAttributeValue{
			smsSenderIDAttribute: {DataType: aws.String("String"), StringValue: aws.String(n.cfg.SMSSenderID)},
		}
	}
	_, err := n.sns.Publish(ctx, input)
	return err
}

// RenderConfirmation is the plain-text email body.
func RenderConfirmation(conf models.BookingConfirmation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Confirmation %s\n", conf.ConfirmationID)
	fmt.Fprintf(&sb, "Paid with: %s\n\n", conf.PaymentSummary)
	for _, l := range conf.Lines {
		fmt.Fprintf(&sb, "%s (%s), %d travelers: %.2f %s\n", l.Title, l.Destination, l.Travelers, l.Cost, conf.Currency)
	}
	fmt.Fprintf(&sb, "\nTotal: %.2f %s\n", conf.Total, conf.Currency)
	return sb.String()
}

func smsText(conf models.BookingConfirmation) string {
	return fmt.Sprintf("Trip confirmed %s: %d trip(s), total %.2f %s", conf.ConfirmationID, len(conf.Lines), conf.Total, conf.Currency)
}

// LogNotifier stands in when no delivery channel is configured.
type LogNotifier struct {
	logger logger.Logger
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithFields(map[string]interface{}{"component": "notifier"})}
}

func (n *LogNotifier) SendConfirmation(_ context.Context, conf models.BookingConfirmation, recipients []Recipient) (*Result, error) {
	n.logger.Info("confirmation delivery disabled", map[string]interface{}{
		"confirmationId": conf.ConfirmationID,
		"recipients":     len(recipients),
	})
	return &Result{NotificationID: uuid.NewString(), Status: StatusSkipped, Delivered: []string{}}, nil
}
