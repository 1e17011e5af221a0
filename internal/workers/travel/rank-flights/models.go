// internal/workers/travel/rank-flights/models.go
package rankflights

import "travel-workers/internal/models"

type Input struct {
	Offers      []models.FlightOffer    `json:"offers"`
	Preferences *models.UserPreferences `json:"preferences,omitempty"`
	UserID      string                  `json:"userId,omitempty"`
	TopN        *int                    `json:"topN,omitempty"`
}

type Output struct {
	RankedOffers []models.RankedOffer `json:"rankedOffers"`
	TotalOffers  int                  `json:"totalOffers"`
}
