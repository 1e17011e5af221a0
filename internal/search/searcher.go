// Package search talks to the flight-search collaborator and fans one search
// out per origin airport of a travel group.
package search

import (
	"context"
	"fmt"
	"time"

	"travel-workers/internal/common/config"
	commonhttp "travel-workers/internal/common/http"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"

	"golang.org/x/time/rate"
)

const (
	searchPath        = "/api/flights/search"
	DefaultPassengers = 1
	DefaultCabinClass = models.CabinEconomy
)

type SearchRequest struct {
	Origin            string       `json:"origin"`
	Destination       string       `json:"destination"`
	DepartureDate     models.Date  `json:"departureDate"`
	ReturnDate        *models.Date `json:"returnDate,omitempty"`
	Passengers        int          `json:"passengers"`
	CabinClass        string       `json:"cabinClass"`
	MaxPrice          *float64     `json:"maxPrice,omitempty"`
	PreferredAirlines []string     `json:"preferredAirlines,omitempty"`
}

type SearchResponse struct {
	Offers []models.FlightOffer `json:"offers"`
}

// FlightSearcher returns the offers for one origin/destination/date request.
type FlightSearcher interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// HTTPSearcher calls the flight-search service, throttled to a fixed request rate.
type HTTPSearcher struct {
	client  *commonhttp.Client
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewHTTPSearcher builds a client allowing ratePerSecond requests. A rate of 0
// disables throttling.
func NewHTTPSearcher(cfg config.ServiceAPIConfig, ratePerSecond float64, log logger.Logger) *HTTPSearcher {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Every(time.Duration(float64(time.Second) / ratePerSecond))
	}
	return &HTTPSearcher{
		client:  commonhttp.NewClient(cfg.BaseURL, cfg.APIKey, config.GetDuration(cfg.Timeout)),
		limiter: rate.NewLimiter(limit, 1),
		logger:  log.WithFields(map[string]interface{}{"component": "flight-search"}),
	}
}

func (s *HTTPSearcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var resp SearchResponse
	if err := s.client.PostJSON(ctx, searchPath, req, &resp); err != nil {
		return nil, fmt.Errorf("flight search %s->%s: %w", req.Origin, req.Destination, err)
	}
	if resp.Offers == nil {
		resp.Offers = []models.FlightOffer{}
	}

	s.logger.Debug("flight search returned", map[string]interface{}{
		"origin":      req.Origin,
		"destination": req.Destination,
		"date":        req.DepartureDate.String(),
		"offers":      len(resp.Offers),
	})
	return &resp, nil
}
