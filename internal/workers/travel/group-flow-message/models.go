// internal/workers/travel/group-flow-message/models.go
package groupflowmessage

import "travel-workers/internal/groupflow"

type Input struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type Output struct {
	Reply groupflow.Reply `json:"reply"`
	State string          `json:"state"`
	// ErrorCode is set when the turn completed with a recoverable problem.
	ErrorCode string `json:"errorCode,omitempty"`
}
