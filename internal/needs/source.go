// Package needs fetches calendar events and turns them into travel needs
// through the analyzer collaborator.
package needs

import (
	"context"
	"fmt"
	"net/url"

	"travel-workers/internal/common/config"
	commonhttp "travel-workers/internal/common/http"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"
)

const (
	analyzePath    = "/api/travel-needs/analyze"
	calendarPathFn = "/api/calendar/%s/events"
)

// Source analyzes a user's calendar into travel needs.
type Source interface {
	Analyze(ctx context.Context, userID string, events []models.CalendarEvent, homeCity, homeAirport string) ([]models.TravelNeed, error)
}

// CalendarSource lists a user's upcoming events.
type CalendarSource interface {
	EventsForUser(ctx context.Context, userID string) ([]models.CalendarEvent, error)
}

type analyzeRequest struct {
	UserID      string                 `json:"userId"`
	Events      []models.CalendarEvent `json:"events"`
	HomeCity    string                 `json:"homeCity,omitempty"`
	HomeAirport string                 `json:"homeAirport,omitempty"`
}

type analyzeResponse struct {
	Needs []models.TravelNeed `json:"needs"`
}

type HTTPSource struct {
	client *commonhttp.Client
	logger logger.Logger
}

func NewHTTPSource(cfg config.ServiceAPIConfig, log logger.Logger) *HTTPSource {
	return &HTTPSource{
		client: commonhttp.NewClient(cfg.BaseURL, cfg.APIKey, config.GetDuration(cfg.Timeout)),
		logger: log.WithFields(map[string]interface{}{"component": "needs-source"}),
	}
}

func (s *HTTPSource) Analyze(ctx context.Context, userID string, events []models.CalendarEvent, homeCity, homeAirport string) ([]models.TravelNeed, error) {
	if len(events) == 0 {
		return []models.TravelNeed{}, nil
	}

	var resp analyzeResponse
	err := s.client.PostJSON(ctx, analyzePath, analyzeRequest{
		UserID:      userID,
		Events:      events,
		HomeCity:    homeCity,
		HomeAirport: homeAirport,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("analyze travel needs for %s: %w", userID, err)
	}

	out := make([]models.TravelNeed, 0, len(resp.Needs))
	for _, n := range resp.Needs {
		if n.UserID == "" {
			n.UserID = userID
		}
		out = append(out, n)
	}

	s.logger.Debug("travel needs analyzed", map[string]interface{}{
		"userId": userID,
		"events": len(events),
		"needs":  len(out),
	})
	return out, nil
}

type calendarResponse struct {
	Events []models.CalendarEvent `json:"events"`
}

type HTTPCalendar struct {
	client *commonhttp.Client
}

func NewHTTPCalendar(cfg config.ServiceAPIConfig) *HTTPCalendar {
	return &HTTPCalendar{
		client: commonhttp.NewClient(cfg.BaseURL, cfg.APIKey, config.GetDuration(cfg.Timeout)),
	}
}

func (c *HTTPCalendar) EventsForUser(ctx context.Context, userID string) ([]models.CalendarEvent, error) {
	var resp calendarResponse
	if err := c.client.GetJSON(ctx, fmt.Sprintf(calendarPathFn, url.PathEscape(userID)), &resp); err != nil {
		return nil, fmt.Errorf("list calendar events for %s: %w", userID, err)
	}
	if resp.Events == nil {
		return []models.CalendarEvent{}, nil
	}
	return resp.Events, nil
}
