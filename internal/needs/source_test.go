package needs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"travel-workers/internal/common/config"
	commonhttp "travel-workers/internal/common/http"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestAPIConfig(baseURL string) config.ServiceAPIConfig {
	return config.ServiceAPIConfig{BaseURL: baseURL, APIKey: "test-key", Timeout: 2000}
}

func createTestEvents() []models.CalendarEvent {
	return []models.CalendarEvent{{
		ID:       "evt-1",
		Title:    "Data Summit",
		Location: "Chicago, IL",
		Start:    models.NewDate(2026, 3, 5),
		End:      models.NewDate(2026, 3, 6),
	}}
}

func TestHTTPSource_Analyze(t *testing.T) {
	var got analyzeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/travel-needs/analyze", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"needs": []map[string]interface{}{
				{"id": "n-1", "destinationCity": "Chicago", "departureDate": "2026-03-05", "requiresFlight": true},
				{"id": "n-2", "userId": "someone-else", "destinationCity": "Austin", "departureDate": "2026-04-01"},
			},
		})
	}))
	defer srv.Close()

	s := NewHTTPSource(createTestAPIConfig(srv.URL), logger.NewTestLogger(t))
	needs, err := s.Analyze(context.Background(), "u-1", createTestEvents(), "New York", "JFK")

	require.NoError(t, err)
	require.Len(t, needs, 2)
	assert.Equal(t, "u-1", needs[0].UserID)
	assert.Equal(t, "someone-else", needs[1].UserID)
	assert.Equal(t, models.NewDate(2026, 3, 5), needs[0].DepartureDate)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "JFK", got.HomeAirport)
	assert.Len(t, got.Events, 1)
}

func TestHTTPSource_NoEventsSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	s := NewHTTPSource(createTestAPIConfig(srv.URL), logger.NewTestLogger(t))
	needs, err := s.Analyze(context.Background(), "u-1", nil, "", "")

	require.NoError(t, err)
	assert.Empty(t, needs)
	assert.False(t, called)
}

func TestHTTPSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "analyzer down", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPSource(createTestAPIConfig(srv.URL), logger.NewTestLogger(t))
	_, err := s.Analyze(context.Background(), "u-1", createTestEvents(), "", "")

	require.Error(t, err)
	var statusErr *commonhttp.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestHTTPCalendar_EventsForUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/calendar/u 1/events", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"events": []map[string]interface{}{
				{"id": "evt-1", "title": "Data Summit", "location": "Chicago", "start": "2026-03-05", "end": "2026-03-06"},
			},
		})
	}))
	defer srv.Close()

	c := NewHTTPCalendar(createTestAPIConfig(srv.URL))
	events, err := c.EventsForUser(context.Background(), "u 1")

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Data Summit", events[0].Title)
	assert.Equal(t, models.NewDate(2026, 3, 6), events[0].End)
}

func TestHTTPCalendar_MissingEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	events, err := NewHTTPCalendar(createTestAPIConfig(srv.URL)).EventsForUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
