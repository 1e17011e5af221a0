// internal/models/travel_need.go
package models

// Urgency tiers assigned by the travel-need analyzer.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// TravelNeed is one traveler's inferred obligation to be somewhere. The engine
// never mutates a need after the analyzer produces it.
type TravelNeed struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"userId"`
	OriginCity         string  `json:"originCity"`
	OriginAirport      string  `json:"originAirport"`
	DestinationCity    string  `json:"destinationCity"`
	DestinationAirport string  `json:"destinationAirport"`
	DepartureDate      Date    `json:"departureDate"`
	ReturnDate         *Date   `json:"returnDate,omitempty"`
	Urgency            Urgency `json:"urgency"`
	Confidence         float64 `json:"confidence"`
	Reasoning          string  `json:"reasoning"`
	RequiresFlight     bool    `json:"requiresFlight"`
	EventID            string  `json:"eventId,omitempty"`
	EventTitle         string  `json:"eventTitle,omitempty"`
}

// CalendarEvent is the calendar collaborator's view of a meeting or trip.
type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	Start       Date   `json:"start"`
	End         Date   `json:"end"`
}
