// internal/workers/travel/rank-flights/handler_test.go
package rankflights

import (
	"context"
	"errors"
	"testing"
	"time"

	"travel-workers/internal/common/config"
	apperrors "travel-workers/internal/common/errors"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"
	"travel-workers/internal/ranking"
	"travel-workers/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return LoadConfig(config.WorkerConfig{Enabled: true, Timeout: 5000}, 0)
}

func createOffer(id string, price float64, duration, stops int) models.FlightOffer {
	depart := time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC)
	return models.FlightOffer{
		ID: id,
		Segments: []models.FlightSegment{{
			AirlineCode:     "AA",
			FlightNumber:    "AA" + id,
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

// createTestInput returns offers ordered worst first; "best" dominates on
// every dimension.
func createTestInput() *Input {
	return &Input{
		Offers: []models.FlightOffer{
			createOffer("worst", 480, 400, 2),
			createOffer("middle", 300, 250, 1),
			createOffer("best", 180, 150, 0),
		},
	}
}

type MockPreferenceStore struct {
	GetFunc func(ctx context.Context, userID string) (models.UserPreferences, error)
}

func (m *MockPreferenceStore) Get(ctx context.Context, userID string) (models.UserPreferences, error) {
	return m.GetFunc(ctx, userID)
}

func (m *MockPreferenceStore) Update(_ context.Context, userID string, _ models.PreferencesUpdate) (models.UserPreferences, error) {
	return models.DefaultPreferences(userID), nil
}

func newTestHandler(t *testing.T, cfg *Config, prefs store.PreferenceStore) *Handler {
	log := logger.NewTestLogger(t)
	return NewHandler(cfg, ranking.NewRanker(log), prefs, nil, log)
}

// ==========================
// Input Validation Tests
// ==========================

func TestHandler_ParseInput(t *testing.T) {
	h := newTestHandler(t, createTestConfig(), nil)

	tests := []struct {
		name      string
		variables string
		wantErr   bool
	}{
		{"offers only", `{"offers":[]}`, false},
		{"with preferences", `{"offers":[],"preferences":{"budgetPriority":"cheapest"}}`, false},
		{"missing offers", `{"userId":"u-1"}`, true},
		{"offers not an array", `{"offers":"none"}`, true},
		{"negative topN", `{"offers":[],"topN":-1}`, true},
		{"not json", `{`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(tt.variables)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidInput))
		})
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_RanksOffers(t *testing.T) {
	h := newTestHandler(t, createTestConfig(), nil)
	input := createTestInput()
	prefs := models.DefaultPreferences("u-1")
	prefs.BudgetPriority = models.BudgetCheapest
	input.Preferences = &prefs

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, output.RankedOffers, 3)
	assert.Equal(t, 3, output.TotalOffers)
	assert.Equal(t, "best", output.RankedOffers[0].Offer.ID)
	assert.Equal(t, "worst", output.RankedOffers[2].Offer.ID)
	for i, r := range output.RankedOffers {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestHandler_Execute_TopN(t *testing.T) {
	two, zero := 2, 0

	tests := []struct {
		name      string
		configTop int
		inputTop  *int
		want      int
	}{
		{"all by default", 0, nil, 3},
		{"config cap", 1, nil, 1},
		{"job overrides config", 1, &two, 2},
		{"job asks for all", 1, &zero, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createTestConfig()
			cfg.TopN = tt.configTop
			h := newTestHandler(t, cfg, nil)

			input := createTestInput()
			input.TopN = tt.inputTop

			output, err := h.Execute(context.Background(), input)
			require.NoError(t, err)
			assert.Len(t, output.RankedOffers, tt.want)
			assert.Equal(t, "best", output.RankedOffers[0].Offer.ID)
		})
	}
}

func TestHandler_Execute_StoredPreferences(t *testing.T) {
	var asked string
	prefs := &MockPreferenceStore{
		GetFunc: func(_ context.Context, userID string) (models.UserPreferences, error) {
			asked = userID
			p := models.DefaultPreferences(userID)
			p.BudgetPriority = models.BudgetCheapest
			return p, nil
		},
	}
	h := newTestHandler(t, createTestConfig(), prefs)

	input := createTestInput()
	input.UserID = "u-42"

	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "u-42", asked)
	assert.Equal(t, "best", output.RankedOffers[0].Offer.ID)
}

func TestHandler_Execute_InlinePreferencesSkipStore(t *testing.T) {
	prefs := &MockPreferenceStore{
		GetFunc: func(context.Context, string) (models.UserPreferences, error) {
			t.Fatal("store should not be consulted")
			return models.UserPreferences{}, nil
		},
	}
	h := newTestHandler(t, createTestConfig(), prefs)

	input := createTestInput()
	input.UserID = "u-42"
	p := models.DefaultPreferences("u-42")
	input.Preferences = &p

	_, err := h.Execute(context.Background(), input)
	assert.NoError(t, err)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_PreferenceLookupFails(t *testing.T) {
	prefs := &MockPreferenceStore{
		GetFunc: func(context.Context, string) (models.UserPreferences, error) {
			return models.UserPreferences{}, errors.New("connection refused")
		},
	}
	h := newTestHandler(t, createTestConfig(), prefs)

	input := createTestInput()
	input.UserID = "u-42"

	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodePreferencesLookupFailed))
	assert.Equal(t, "PREFERENCES_LOOKUP_FAILED", errorCode(err))
}

func TestErrorCode_Unstructured(t *testing.T) {
	assert.Equal(t, "INTERNAL_ERROR", errorCode(errors.New("boom")))
}

func TestLoadConfig_DefaultTimeout(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{}, 5)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.TopN)
}
