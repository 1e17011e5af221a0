package ranking

import (
	"math"
	"strings"
	"time"

	"travel-workers/internal/models"
)

const timeFitDecayPerHour = 0.15

// TimeWindow is a departure window in local hours, [Start, End). Windows with
// Start > End wrap midnight.
type TimeWindow struct {
	Start int
	End   int
}

var timeWindows = map[models.TimePreference]TimeWindow{
	models.TimeEarlyMorning: {Start: 5, End: 8},
	models.TimeMorning:      {Start: 8, End: 12},
	models.TimeAfternoon:    {Start: 12, End: 17},
	models.TimeEvening:      {Start: 17, End: 21},
	models.TimeRedEye:       {Start: 21, End: 5},
}

// WindowFor returns the hour range of a named preference.
func WindowFor(pref models.TimePreference) (TimeWindow, bool) {
	w, ok := timeWindows[pref]
	return w, ok
}

func (w TimeWindow) Contains(hour int) bool {
	if w.Start <= w.End {
		return hour >= w.Start && hour < w.End
	}
	return hour >= w.Start || hour < w.End
}

// Distance is the number of hours from hour to the nearest hour inside the
// window. Only windows that wrap midnight are measured around the clock.
func (w TimeWindow) Distance(hour int) int {
	if w.Contains(hour) {
		return 0
	}
	last := (w.End + 23) % 24
	if w.Start <= w.End {
		if hour < w.Start {
			return w.Start - hour
		}
		return hour - last
	}
	return min(clockDistance(hour, w.Start), clockDistance(hour, last))
}

func clockDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	return min(d, 24-d)
}

// BatchStats are the batch-wide extremes that normalize price and duration.
type BatchStats struct {
	MinPrice    float64
	MaxPrice    float64
	MinDuration int
	MaxDuration int
	MaxStops    int
}

func NewBatchStats(offers []models.FlightOffer) BatchStats {
	if len(offers) == 0 {
		return BatchStats{}
	}
	stats := BatchStats{
		MinPrice:    offers[0].TotalPrice,
		MaxPrice:    offers[0].TotalPrice,
		MinDuration: offers[0].TotalDurationMinutes,
		MaxDuration: offers[0].TotalDurationMinutes,
		MaxStops:    offers[0].Stops,
	}
	for _, o := range offers[1:] {
		stats.MinPrice = math.Min(stats.MinPrice, o.TotalPrice)
		stats.MaxPrice = math.Max(stats.MaxPrice, o.TotalPrice)
		stats.MinDuration = min(stats.MinDuration, o.TotalDurationMinutes)
		stats.MaxDuration = max(stats.MaxDuration, o.TotalDurationMinutes)
		stats.MaxStops = max(stats.MaxStops, o.Stops)
	}
	return stats
}

// ScoreOffer scores one offer within its batch. It is pure.
func ScoreOffer(offer models.FlightOffer, prefs models.UserPreferences, w Weights, batch BatchStats) models.ScoreBreakdown {
	b := models.ScoreBreakdown{
		Price:    PriceScore(offer.TotalPrice, batch),
		Duration: DurationScore(offer.TotalDurationMinutes, batch),
		Stops:    StopsScore(offer.Stops, batch),
		TimeFit:  TimeFitScore(offer, prefs.DepartureTime),
		Airline:  AirlineScore(offer, prefs),
	}
	b.Total = b.Price*w.Price +
		b.Duration*w.Duration +
		b.Stops*w.Stops +
		b.TimeFit*w.TimeFit +
		b.Airline*w.Airline
	return b
}

func PriceScore(price float64, batch BatchStats) float64 {
	span := math.Max(batch.MaxPrice-batch.MinPrice, 1)
	return 1 - (price-batch.MinPrice)/span
}

func DurationScore(minutes int, batch BatchStats) float64 {
	span := math.Max(float64(batch.MaxDuration-batch.MinDuration), 1)
	return 1 - float64(minutes-batch.MinDuration)/span
}

func StopsScore(stops int, batch BatchStats) float64 {
	return 1 - float64(stops)/float64(max(batch.MaxStops, 1))
}

// TimeFitScore is 1 inside the preferred window and decays by 0.15 per hour
// outside it, floored at 0. No preference or no segments scores 0.5.
func TimeFitScore(offer models.FlightOffer, pref models.TimePreference) float64 {
	window, ok := WindowFor(pref)
	if !ok || len(offer.Segments) == 0 {
		return 0.5
	}
	return timeFitForHour(departureHour(offer.Segments[0].DepartureTime), window)
}

func timeFitForHour(hour int, window TimeWindow) float64 {
	return math.Max(0, 1-float64(window.Distance(hour))*timeFitDecayPerHour)
}

// departureHour is the wall-clock hour at the departure airport, as carried
// by the timestamp's own offset.
func departureHour(t time.Time) int {
	return t.Hour()
}

// AirlineScore zeroes any offer touching an avoided airline. The zero still
// goes through the weighted sum, so an avoided offer is penalized, not removed.
func AirlineScore(offer models.FlightOffer, prefs models.UserPreferences) float64 {
	codes := offer.AirlineCodes()
	avoided := codeSet(prefs.AvoidedAirlines)
	for _, code := range codes {
		if avoided[strings.ToUpper(code)] {
			return 0
		}
	}

	preferred := codeSet(prefs.PreferredAirlines)
	if len(preferred) == 0 {
		return 0.5
	}

	matched := 0
	for _, code := range codes {
		if preferred[strings.ToUpper(code)] {
			matched++
		}
	}
	if matched == 0 {
		return 0.3
	}
	return 0.8 + float64(matched)/float64(len(codes))*0.2
}

func codeSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			set[c] = true
		}
	}
	return set
}
