// internal/workers/travel/plan-group-travel/models.go
package plangrouptravel

import "travel-workers/internal/models"

type Input struct {
	OrganizationID string                    `json:"organizationId"`
	Needs          []models.TravelNeed       `json:"needs"`
	Assignments    []models.MemberAssignment `json:"assignments,omitempty"`
	Title          string                    `json:"title,omitempty"`
}

// Output carries either a plan or, when the destination has no airport, a
// clarification request with the city that needs one.
type Output struct {
	Plan               *models.GroupTravelPlan `json:"plan"`
	TotalEstimatedCost float64                 `json:"totalEstimatedCost"`
	Currency           string                  `json:"currency"`
	NeedsClarification bool                    `json:"needsClarification"`
	UnresolvedCity     string                  `json:"unresolvedCity,omitempty"`
	Message            string                  `json:"message,omitempty"`
	ErrorCode          string                  `json:"errorCode,omitempty"`
}
