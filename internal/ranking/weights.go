// Package ranking scores and orders flight offers against one traveler's preferences.
package ranking

import "travel-workers/internal/models"

// Weights are the relative importance of each scoring factor. They always sum to 1.
type Weights struct {
	Price    float64 `json:"price"`
	Duration float64 `json:"duration"`
	Stops    float64 `json:"stops"`
	TimeFit  float64 `json:"timeFit"`
	Airline  float64 `json:"airline"`
}

func (w Weights) Sum() float64 {
	return w.Price + w.Duration + w.Stops + w.TimeFit + w.Airline
}

var weightTable = map[models.BudgetPriority]Weights{
	models.BudgetCheapest:       {Price: 0.45, Duration: 0.15, Stops: 0.15, TimeFit: 0.15, Airline: 0.10},
	models.BudgetBestExperience: {Price: 0.10, Duration: 0.25, Stops: 0.25, TimeFit: 0.20, Airline: 0.20},
	models.BudgetBestValue:      {Price: 0.30, Duration: 0.20, Stops: 0.20, TimeFit: 0.15, Airline: 0.15},
	models.BudgetNoPreference:   {Price: 0.25, Duration: 0.25, Stops: 0.20, TimeFit: 0.15, Airline: 0.15},
}

// DeriveWeights maps a budget priority to its weights. Unknown priorities get
// the no_preference row.
func DeriveWeights(priority models.BudgetPriority) Weights {
	if w, ok := weightTable[priority]; ok {
		return w
	}
	return weightTable[models.BudgetNoPreference]
}
