// internal/workers/travel/send-booking-confirmation/models.go
package sendbookingconfirmation

import (
	"travel-workers/internal/models"
	"travel-workers/internal/notify"
)

type Input struct {
	Confirmation models.BookingConfirmation `json:"confirmation"`
	Recipients   []notify.Recipient         `json:"recipients"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Delivered      []string `json:"delivered"`
	Failed         []string `json:"failed,omitempty"`
}
