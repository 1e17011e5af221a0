package ranking

import (
	"fmt"
	"testing"
	"time"

	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helpers
// ==========================

func createOffer(id string, price float64, duration, stops int, airline string, departHour int) models.FlightOffer {
	depart := time.Date(2026, 3, 5, departHour, 0, 0, 0, time.UTC)
	return models.FlightOffer{
		ID: id,
		Segments: []models.FlightSegment{{
			AirlineCode:     airline,
			FlightNumber:    fmt.Sprintf("%s100", airline),
			Origin:          "JFK",
			Destination:     "ORD",
			DepartureTime:   depart,
			ArrivalTime:     depart.Add(time.Duration(duration) * time.Minute),
			DurationMinutes: duration,
		}},
		TotalPrice:           price,
		Currency:             "USD",
		Stops:                stops,
		TotalDurationMinutes: duration,
	}
}

func createTestPreferences() models.UserPreferences {
	return models.DefaultPreferences("user-1")
}

// ==========================
// Weight Deriver
// ==========================

func TestDeriveWeights_SumToOne(t *testing.T) {
	priorities := []models.BudgetPriority{
		models.BudgetCheapest,
		models.BudgetBestValue,
		models.BudgetBestExperience,
		models.BudgetNoPreference,
		"",
		"unknown",
	}
	for _, p := range priorities {
		t.Run(string(p), func(t *testing.T) {
			w := DeriveWeights(p)
			assert.InDelta(t, 1.0, w.Sum(), 1e-9)
			assert.GreaterOrEqual(t, w.Price, 0.0)
			assert.GreaterOrEqual(t, w.Airline, 0.0)
		})
	}
}

func TestDeriveWeights_Table(t *testing.T) {
	assert.Equal(t, Weights{0.45, 0.15, 0.15, 0.15, 0.10}, DeriveWeights(models.BudgetCheapest))
	assert.Equal(t, Weights{0.10, 0.25, 0.25, 0.20, 0.20}, DeriveWeights(models.BudgetBestExperience))
	assert.Equal(t, Weights{0.30, 0.20, 0.20, 0.15, 0.15}, DeriveWeights(models.BudgetBestValue))
	assert.Equal(t, DeriveWeights(models.BudgetNoPreference), DeriveWeights("luxury"))
}

// ==========================
// Offer Scorer
// ==========================

func TestPriceScore_Extremes(t *testing.T) {
	offers := []models.FlightOffer{
		createOffer("a", 320, 180, 0, "AA", 9),
		createOffer("b", 199, 240, 1, "UA", 9),
		createOffer("c", 455, 150, 0, "DL", 9),
	}
	batch := NewBatchStats(offers)
	prefs := createTestPreferences()
	w := DeriveWeights(prefs.BudgetPriority)

	assert.Equal(t, 1.0, ScoreOffer(offers[1], prefs, w, batch).Price)
	assert.Equal(t, 0.0, ScoreOffer(offers[2], prefs, w, batch).Price)
	mid := ScoreOffer(offers[0], prefs, w, batch).Price
	assert.Greater(t, mid, 0.0)
	assert.Less(t, mid, 1.0)
}

func TestScoreOffer_DegenerateBatch(t *testing.T) {
	offer := createOffer("only", 250, 120, 0, "AA", 10)
	batch := NewBatchStats([]models.FlightOffer{offer})

	b := ScoreOffer(offer, createTestPreferences(), DeriveWeights(models.BudgetNoPreference), batch)
	assert.Equal(t, 1.0, b.Price)
	assert.Equal(t, 1.0, b.Duration)
	assert.Equal(t, 1.0, b.Stops)
	assert.Equal(t, 0.5, b.TimeFit)
	assert.Equal(t, 0.5, b.Airline)
	assert.InDelta(t, 0.25+0.25+0.20+0.15*0.5+0.15*0.5, b.Total, 1e-9)
}

func TestStopsScore(t *testing.T) {
	batch := BatchStats{MaxStops: 2}
	assert.Equal(t, 1.0, StopsScore(0, batch))
	assert.Equal(t, 0.5, StopsScore(1, batch))
	assert.Equal(t, 0.0, StopsScore(2, BatchStats{MaxStops: 2}))
	assert.Equal(t, 1.0, StopsScore(0, BatchStats{}))
}

func TestTimeFitScore(t *testing.T) {
	tests := []struct {
		name string
		pref models.TimePreference
		hour int
		want float64
	}{
		{"red-eye late night", models.TimeRedEye, 23, 1.0},
		{"red-eye after midnight", models.TimeRedEye, 2, 1.0},
		{"red-eye window start", models.TimeRedEye, 21, 1.0},
		{"red-eye one hour after", models.TimeRedEye, 5, 0.85},
		{"red-eye one hour before", models.TimeRedEye, 20, 0.85},
		{"red-eye noon floors at zero", models.TimeRedEye, 12, 0.0},
		{"morning inside", models.TimeMorning, 9, 1.0},
		{"morning two hours late", models.TimeMorning, 13, 0.7},
		{"early morning decays before window", models.TimeEarlyMorning, 1, 0.4},
		{"early morning does not wrap to late night", models.TimeEarlyMorning, 23, 0.0},
		{"evening does not wrap to early morning", models.TimeEvening, 2, 0.0},
		{"evening one hour before", models.TimeEvening, 16, 0.85},
		{"no preference", models.TimeNoPreference, 3, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := createOffer("x", 100, 100, 0, "AA", tt.hour)
			assert.InDelta(t, tt.want, TimeFitScore(offer, tt.pref), 1e-9)
		})
	}
}

func TestTimeFitScore_RedEyeOrdering(t *testing.T) {
	noon := TimeFitScore(createOffer("noon", 100, 100, 0, "AA", 12), models.TimeRedEye)
	late := TimeFitScore(createOffer("late", 100, 100, 0, "AA", 22), models.TimeRedEye)
	assert.Less(t, noon, late)
}

func TestTimeWindow_Distance(t *testing.T) {
	early, _ := WindowFor(models.TimeEarlyMorning)
	assert.Equal(t, 16, early.Distance(23))
	assert.Equal(t, 4, early.Distance(1))

	redEye, _ := WindowFor(models.TimeRedEye)
	assert.Equal(t, 0, redEye.Distance(0))
	assert.Equal(t, 1, redEye.Distance(5))
	assert.Equal(t, 8, redEye.Distance(12))
}

func TestTimeFitScore_NoSegments(t *testing.T) {
	offer := models.FlightOffer{ID: "bare", TotalPrice: 100}
	assert.Equal(t, 0.5, TimeFitScore(offer, models.TimeMorning))
}

func TestAirlineScore(t *testing.T) {
	twoCarrier := createOffer("multi", 300, 300, 1, "AA", 9)
	twoCarrier.Segments = append(twoCarrier.Segments, models.FlightSegment{AirlineCode: "BA"})

	tests := []struct {
		name      string
		offer     models.FlightOffer
		preferred []string
		avoided   []string
		want      float64
	}{
		{"avoided airline vetoes", createOffer("a", 100, 100, 0, "NK", 9), []string{"NK"}, []string{"nk"}, 0},
		{"avoided on any segment", twoCarrier, []string{"AA"}, []string{"BA"}, 0},
		{"no preferences is neutral", createOffer("b", 100, 100, 0, "UA", 9), nil, nil, 0.5},
		{"fully preferred", createOffer("c", 100, 100, 0, "UA", 9), []string{"UA", "DL"}, nil, 1.0},
		{"half preferred", twoCarrier, []string{"AA"}, nil, 0.9},
		{"none preferred", createOffer("d", 100, 100, 0, "F9", 9), []string{"UA"}, nil, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := createTestPreferences()
			prefs.PreferredAirlines = tt.preferred
			prefs.AvoidedAirlines = tt.avoided
			assert.InDelta(t, tt.want, AirlineScore(tt.offer, prefs), 1e-9)
		})
	}
}

func TestAvoidedAirline_StillRanked(t *testing.T) {
	// The veto only zeroes the airline factor; a much better avoided offer can still win.
	prefs := createTestPreferences()
	prefs.AvoidedAirlines = []string{"NK"}
	prefs.BudgetPriority = models.BudgetCheapest

	offers := []models.FlightOffer{
		createOffer("avoided-cheap", 90, 120, 0, "NK", 9),
		createOffer("ok-expensive", 900, 600, 2, "UA", 9),
	}

	ranked := NewRanker(logger.NewNoOpLogger()).Rank(offers, prefs)
	require.Len(t, ranked, 2)
	assert.Equal(t, "avoided-cheap", ranked[0].Offer.ID)
	assert.Equal(t, 0.0, ranked[0].Breakdown.Airline)
	assert.Contains(t, ranked[0].Reasoning, "Uses NK, which you prefer to avoid")
}

// ==========================
// Ranker
// ==========================

func TestRanker_Empty(t *testing.T) {
	ranked := NewRanker(logger.NewTestLogger(t)).Rank(nil, createTestPreferences())
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)

	ranked = NewRanker(logger.NewTestLogger(t)).Rank([]models.FlightOffer{}, createTestPreferences())
	assert.Equal(t, []models.RankedOffer{}, ranked)
}

func TestRanker_OrdersAndRanks(t *testing.T) {
	offers := []models.FlightOffer{
		createOffer("slow-cheap", 150, 480, 2, "F9", 6),
		createOffer("balanced", 260, 200, 0, "UA", 9),
		createOffer("fast-pricey", 640, 150, 0, "AA", 9),
	}

	ranked := NewRanker(logger.NewTestLogger(t)).Rank(offers, createTestPreferences())
	require.Len(t, ranked, 3)

	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, ranked[i-1].Score, r.Score)
		}
		assert.InDelta(t, r.Breakdown.Total, r.Score, 1e-12)
	}
	assert.Equal(t, "balanced", ranked[0].Offer.ID)
}

func TestRanker_StableTies(t *testing.T) {
	offers := []models.FlightOffer{
		createOffer("first", 200, 200, 0, "AA", 9),
		createOffer("second", 200, 200, 0, "AA", 9),
		createOffer("third", 200, 200, 0, "AA", 9),
	}

	ranked := NewRanker(logger.NewNoOpLogger()).Rank(offers, createTestPreferences())
	ids := []string{ranked[0].Offer.ID, ranked[1].Offer.ID, ranked[2].Offer.ID}
	assert.Equal(t, []string{"first", "second", "third"}, ids)
}

func TestRanker_TradeOffNotes(t *testing.T) {
	offers := []models.FlightOffer{
		createOffer("cheap-long", 100, 600, 1, "UA", 9),
		createOffer("fast-expensive", 500, 120, 0, "UA", 9),
		createOffer("middle", 300, 360, 1, "UA", 9),
	}

	ranked := NewRanker(logger.NewNoOpLogger()).Rank(offers, createTestPreferences())
	byID := make(map[string]models.RankedOffer)
	for _, r := range ranked {
		byID[r.Offer.ID] = r
	}

	assert.Contains(t, byID["cheap-long"].Reasoning, "Trade-off: great price, but a much longer journey")
	assert.Contains(t, byID["cheap-long"].Reasoning, "Lowest price in this search")
	assert.Contains(t, byID["fast-expensive"].Reasoning, "Trade-off: fast, but one of the pricier options")
	assert.Contains(t, byID["fast-expensive"].Reasoning, "Trade-off: nonstop, but costs more than connecting options")
	assert.Contains(t, byID["fast-expensive"].Reasoning, "Shortest travel time")
	assert.NotContains(t, byID["middle"].Reasoning, "Trade-off: great price, but a much longer journey")
}

func TestRanker_BudgetAndLayoverNotes(t *testing.T) {
	budget := 300.0
	prefs := createTestPreferences()
	prefs.MaxBudget = &budget
	prefs.MaxLayoverMinutes = 60

	connecting := createOffer("connecting", 420, 400, 1, "UA", 9)
	first := connecting.Segments[0]
	connecting.Segments = []models.FlightSegment{
		{AirlineCode: "UA", DepartureTime: first.DepartureTime, ArrivalTime: first.DepartureTime.Add(2 * time.Hour)},
		{AirlineCode: "UA", DepartureTime: first.DepartureTime.Add(4*time.Hour + 30*time.Minute), ArrivalTime: first.DepartureTime.Add(6 * time.Hour)},
	}

	ranked := NewRanker(logger.NewNoOpLogger()).Rank([]models.FlightOffer{connecting}, prefs)
	require.Len(t, ranked, 1)
	assert.Contains(t, ranked[0].Reasoning, "Over your budget of 300.00 USD")
	assert.Contains(t, ranked[0].Reasoning, "Layover of 2h30m exceeds your 60 minute limit")
}

func TestTopN(t *testing.T) {
	ranked := make([]models.RankedOffer, 7)
	assert.Len(t, TopN(ranked, 5), 5)
	assert.Len(t, TopN(ranked, 10), 7)
	assert.Len(t, TopN(ranked, 0), 7)
}
