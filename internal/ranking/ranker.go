package ranking

import (
	"fmt"
	"sort"
	"strings"

	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/models"
)

const (
	strongScore = 0.8
	weakScore   = 0.4
)

type Ranker struct {
	logger logger.Logger
}

func NewRanker(log logger.Logger) *Ranker {
	return &Ranker{logger: log.WithFields(map[string]interface{}{"component": "ranker"})}
}

// Rank scores every offer against prefs and returns them best first with
// 1-based ranks. Ties keep input order. An empty batch returns an empty slice.
func (r *Ranker) Rank(offers []models.FlightOffer, prefs models.UserPreferences) []models.RankedOffer {
	metrics.RankedBatchSize.Observe(float64(len(offers)))
	if len(offers) == 0 {
		return []models.RankedOffer{}
	}

	weights := DeriveWeights(prefs.BudgetPriority)
	batch := NewBatchStats(offers)

	ranked := make([]models.RankedOffer, 0, len(offers))
	for _, offer := range offers {
		breakdown := ScoreOffer(offer, prefs, weights, batch)
		ranked = append(ranked, models.RankedOffer{
			Offer:     offer,
			Score:     breakdown.Total,
			Reasoning: explain(offer, prefs, breakdown, batch),
			Breakdown: breakdown,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	r.logger.Debug("ranked offers", map[string]interface{}{
		"userId":    prefs.UserID,
		"count":     len(ranked),
		"topScore":  ranked[0].Score,
		"priority":  string(prefs.BudgetPriority),
		"timeOfDay": string(prefs.DepartureTime),
	})
	return ranked
}

// TopN returns at most n offers. n <= 0 returns everything.
func TopN(ranked []models.RankedOffer, n int) []models.RankedOffer {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}

func explain(offer models.FlightOffer, prefs models.UserPreferences, b models.ScoreBreakdown, batch BatchStats) []string {
	reasons := make([]string, 0, 4)

	if offer.TotalPrice == batch.MinPrice {
		reasons = append(reasons, "Lowest price in this search")
	}
	if offer.TotalDurationMinutes == batch.MinDuration {
		reasons = append(reasons, "Shortest travel time")
	}
	if offer.Stops == 0 {
		reasons = append(reasons, "Nonstop flight")
	} else {
		reasons = append(reasons, fmt.Sprintf("%d stop%s", offer.Stops, plural(offer.Stops)))
	}

	if b.Airline == 0 {
		reasons = append(reasons, fmt.Sprintf("Uses %s, which you prefer to avoid", strings.Join(offer.AirlineCodes(), "/")))
	} else if b.Airline >= strongScore {
		reasons = append(reasons, "Flies one of your preferred airlines")
	}

	if window, ok := WindowFor(prefs.DepartureTime); ok && len(offer.Segments) > 0 {
		if b.TimeFit == 1 {
			reasons = append(reasons, fmt.Sprintf("Departs in your preferred %s window", windowLabel(prefs.DepartureTime)))
		} else {
			reasons = append(reasons, fmt.Sprintf("Departs %dh outside your preferred %s window",
				window.Distance(departureHour(offer.Segments[0].DepartureTime)), windowLabel(prefs.DepartureTime)))
		}
	}

	// trade-offs
	if b.Price > strongScore && b.Duration < weakScore {
		reasons = append(reasons, "Trade-off: great price, but a much longer journey")
	}
	if b.Duration > strongScore && b.Price < weakScore {
		reasons = append(reasons, "Trade-off: fast, but one of the pricier options")
	}
	if offer.Stops == 0 && b.Price < 0.5 && batch.MaxStops > 0 {
		reasons = append(reasons, "Trade-off: nonstop, but costs more than connecting options")
	}

	if prefs.MaxBudget != nil && offer.TotalPrice > *prefs.MaxBudget {
		reasons = append(reasons, fmt.Sprintf("Over your budget of %.2f %s", *prefs.MaxBudget, offer.Currency))
	}
	if prefs.MaxLayoverMinutes > 0 {
		if layover := offer.LongestLayoverMinutes(); layover > prefs.MaxLayoverMinutes {
			reasons = append(reasons, fmt.Sprintf("Layover of %dh%02dm exceeds your %d minute limit",
				layover/60, layover%60, prefs.MaxLayoverMinutes))
		}
	}
	return reasons
}

func windowLabel(pref models.TimePreference) string {
	return strings.ReplaceAll(string(pref), "_", "-")
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
