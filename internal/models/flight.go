// internal/models/flight.go
package models

import "time"

type FlightSegment struct {
	AirlineCode     string    `json:"airlineCode"`
	AirlineName     string    `json:"airlineName"`
	FlightNumber    string    `json:"flightNumber"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DepartureTime   time.Time `json:"departureTime"`
	ArrivalTime     time.Time `json:"arrivalTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

// FlightOffer is a priced itinerary returned by one search call.
type FlightOffer struct {
	ID                   string          `json:"id"`
	Segments             []FlightSegment `json:"segments"`
	TotalPrice           float64         `json:"totalPrice"`
	Currency             string          `json:"currency"`
	Stops                int             `json:"stops"`
	TotalDurationMinutes int             `json:"totalDurationMinutes"`
	BookingURL           string          `json:"bookingUrl,omitempty"`
	ExpiresAt            *time.Time      `json:"expiresAt,omitempty"`
}

// AirlineCodes returns the distinct airline codes in segment order.
func (o FlightOffer) AirlineCodes() []string {
	seen := make(map[string]bool, len(o.Segments))
	codes := make([]string, 0, len(o.Segments))
	for _, s := range o.Segments {
		if s.AirlineCode == "" || seen[s.AirlineCode] {
			continue
		}
		seen[s.AirlineCode] = true
		codes = append(codes, s.AirlineCode)
	}
	return codes
}

// LongestLayoverMinutes is the largest gap between consecutive segments.
func (o FlightOffer) LongestLayoverMinutes() int {
	longest := 0
	for i := 1; i < len(o.Segments); i++ {
		gap := int(o.Segments[i].DepartureTime.Sub(o.Segments[i-1].ArrivalTime).Minutes())
		if gap > longest {
			longest = gap
		}
	}
	return longest
}

type ScoreBreakdown struct {
	Price    float64 `json:"price"`
	Duration float64 `json:"duration"`
	Stops    float64 `json:"stops"`
	TimeFit  float64 `json:"timeFit"`
	Airline  float64 `json:"airline"`
	Total    float64 `json:"total"`
}

// RankedOffer is an offer with its score and 1-based rank inside one batch.
type RankedOffer struct {
	Offer     FlightOffer    `json:"offer"`
	Score     float64        `json:"score"`
	Rank      int            `json:"rank"`
	Reasoning []string       `json:"reasoning"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}
