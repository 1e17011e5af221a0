// internal/models/flow.go
package models

import (
	"fmt"
	"time"
)

// FlowState is a step of the group-travel conversation.
//
//	conferences_detected ─► awaiting_team ─► awaiting_approval ─► complete
//	                                         (showing_results behaves like awaiting_approval)
type FlowState string

const (
	FlowConferencesDetected FlowState = "conferences_detected"
	FlowAwaitingTeam        FlowState = "awaiting_team"
	FlowShowingResults      FlowState = "showing_results"
	FlowAwaitingApproval    FlowState = "awaiting_approval"
	FlowComplete            FlowState = "complete"
)

// ParseFlowState converts a raw stored value, returning an error for unknown states.
func ParseFlowState(s string) (FlowState, error) {
	st := FlowState(s)
	switch st {
	case FlowConferencesDetected, FlowAwaitingTeam, FlowShowingResults, FlowAwaitingApproval, FlowComplete:
		return st, nil
	}
	return "", fmt.Errorf("unknown flow state %q", s)
}

// Conference is a detected event that several team members may attend.
type Conference struct {
	EventID   string     `json:"eventId"`
	Title     string     `json:"title"`
	City      string     `json:"city"`
	StartDate Date       `json:"startDate"`
	EndDate   Date       `json:"endDate"`
	Need      TravelNeed `json:"need"`
}

// GroupFlowState is one user's progress through the flow. One per user.
type GroupFlowState struct {
	UserID         string             `json:"userId"`
	State          FlowState          `json:"state"`
	Conferences    []Conference       `json:"conferences"`
	TeamMembers    []MemberAssignment `json:"teamMembers,omitempty"`
	OrganizationID string             `json:"organizationId,omitempty"`
	Plans          []GroupTravelPlan  `json:"plans,omitempty"`
	SchedulingNote string             `json:"schedulingNote,omitempty"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type ConfirmationLine struct {
	PlanID      string  `json:"planId"`
	Title       string  `json:"title"`
	Destination string  `json:"destination"`
	Travelers   int     `json:"travelers"`
	Cost        float64 `json:"cost"`
}

// BookingConfirmation is synthetic: nothing is charged or booked.
type BookingConfirmation struct {
	ConfirmationID string             `json:"confirmationId"`
	UserID         string             `json:"userId"`
	PaymentSummary string             `json:"paymentSummary"`
	Lines          []ConfirmationLine `json:"lines"`
	Total          float64            `json:"total"`
	Currency       string             `json:"currency"`
	ConfirmedAt    time.Time          `json:"confirmedAt"`
}
