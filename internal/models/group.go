// internal/models/group.go
package models

import "time"

// TravelGroup is a set of needs from at least two users sharing a destination
// and a departure window. Groups are recomputed on every detection pass.
type TravelGroup struct {
	ID                 string       `json:"id"`
	DestinationCity    string       `json:"destinationCity"`
	DestinationAirport string       `json:"destinationAirport"`
	DepartureDate      Date         `json:"departureDate"`
	ReturnDate         *Date        `json:"returnDate,omitempty"`
	Needs              []TravelNeed `json:"needs"`
	MemberIDs          []string     `json:"memberIds"`
}

// MemberAssignment pins a group member to the airport they fly out of.
type MemberAssignment struct {
	UserID      string `json:"userId"`
	Name        string `json:"name,omitempty"`
	HomeAirport string `json:"homeAirport"`
}

type GroupMemberPlan struct {
	UserID            string        `json:"userId"`
	Name              string        `json:"name,omitempty"`
	HomeAirport       string        `json:"homeAirport"`
	IsLocal           bool          `json:"isLocal"`
	RecommendedFlight *RankedOffer  `json:"recommendedFlight"`
	Alternatives      []RankedOffer `json:"alternatives"`
	Notes             []string      `json:"notes"`
}

// GroupTravelPlan is immutable once built.
type GroupTravelPlan struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Destination        string            `json:"destination"`
	DestinationAirport string            `json:"destinationAirport"`
	DepartureDate      Date              `json:"departureDate"`
	ReturnDate         *Date             `json:"returnDate,omitempty"`
	Members            []GroupMemberPlan `json:"members"`
	TotalEstimatedCost float64           `json:"totalEstimatedCost"`
	Currency           string            `json:"currency"`
	Summary            string            `json:"summary"`
	CreatedAt          time.Time         `json:"createdAt"`
}
