package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "travel-workers/internal/common/errors"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/common/observability"
	"travel-workers/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// OriginResult is the outcome of the single search issued for one origin.
type OriginResult struct {
	Origin string               `json:"origin"`
	Offers []models.FlightOffer `json:"offers"`
	Err    error                `json:"-"`
	Note   string               `json:"note,omitempty"`
}

// Found reports whether the origin produced at least one offer.
func (r OriginResult) Found() bool {
	return r.Err == nil && len(r.Offers) > 0
}

type AggregatedResults struct {
	Destination string                  `json:"destination"`
	ByOrigin    map[string]OriginResult `json:"byOrigin"`
}

func (a AggregatedResults) For(origin string) (OriginResult, bool) {
	r, ok := a.ByOrigin[strings.ToUpper(origin)]
	return r, ok
}

func NoFlightsNote(origin string) string {
	return fmt.Sprintf("no flights found from %s", origin)
}

type AggregatorConfig struct {
	SearchTimeout time.Duration
	MaxConcurrent int
}

// Aggregator issues one concurrent search per distinct origin of a group and
// waits for all of them.
type Aggregator struct {
	searcher FlightSearcher
	cfg      AggregatorConfig
	logger   logger.Logger
	obs      *observability.Observability
}

func NewAggregator(searcher FlightSearcher, cfg AggregatorConfig, log logger.Logger, obs *observability.Observability) *Aggregator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	return &Aggregator{
		searcher: searcher,
		cfg:      cfg,
		logger:   log.WithFields(map[string]interface{}{"component": "aggregator"}),
		obs:      obs,
	}
}

// Origins lists the distinct airports the group flies out of, in first-seen
// order. Assignments, when given, replace each need's recorded origin. An
// origin equal to the destination is a local member and needs no search.
func Origins(group models.TravelGroup, assignments []models.MemberAssignment) []string {
	dest := strings.ToUpper(group.DestinationAirport)
	seen := make(map[string]bool)
	var origins []string

	add := func(code string) {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" || code == dest || seen[code] {
			return
		}
		seen[code] = true
		origins = append(origins, code)
	}

	if len(assignments) > 0 {
		for _, a := range assignments {
			add(a.HomeAirport)
		}
	} else {
		for _, n := range group.Needs {
			add(n.OriginAirport)
		}
	}
	return origins
}

// Search never fails as a whole: each origin's error or empty result is
// recorded on its own OriginResult and siblings keep running.
func (a *Aggregator) Search(ctx context.Context, group models.TravelGroup, assignments []models.MemberAssignment) AggregatedResults {
	results := AggregatedResults{
		Destination: strings.ToUpper(group.DestinationAirport),
		ByOrigin:    make(map[string]OriginResult),
	}
	if results.Destination == "" {
		return results
	}

	origins := Origins(group, assignments)
	ctx, span := a.obs.StartSpan(ctx, "search.aggregate",
		attribute.String("destination", results.Destination),
		attribute.Int("origins", len(origins)),
	)
	defer span.End()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.cfg.MaxConcurrent)

	for _, origin := range origins {
		origin := origin
		req := SearchRequest{
			Origin:        origin,
			Destination:   results.Destination,
			DepartureDate: group.DepartureDate,
			ReturnDate:    group.ReturnDate,
			Passengers:    DefaultPassengers,
			CabinClass:    DefaultCabinClass,
		}
		g.Go(func() error {
			res := a.searchOrigin(ctx, req)
			mu.Lock()
			results.ByOrigin[origin] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	a.logger.Info("group search complete", map[string]interface{}{
		"groupId":     group.ID,
		"destination": results.Destination,
		"origins":     origins,
	})
	return results
}

func (a *Aggregator) searchOrigin(ctx context.Context, req SearchRequest) OriginResult {
	result := OriginResult{Origin: req.Origin}
	if ctx.Err() != nil {
		result.Err = apperrors.NewFlightSearchFailedError(req.Origin, ctx.Err())
		result.Note = NoFlightsNote(req.Origin)
		return result
	}

	searchCtx := ctx
	if a.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, a.cfg.SearchTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.searcher.Search(searchCtx, req)

	outcome := "ok"
	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
		result.Err = apperrors.NewFlightSearchTimeoutError(req.Origin, a.cfg.SearchTimeout)
	case err != nil:
		outcome = "error"
		result.Err = apperrors.NewFlightSearchFailedError(req.Origin, err)
	case resp == nil || len(resp.Offers) == 0:
		outcome = "empty"
	default:
		result.Offers = resp.Offers
	}
	if !result.Found() {
		result.Note = NoFlightsNote(req.Origin)
	}

	elapsed := time.Since(start)
	metrics.FlightSearches.WithLabelValues(outcome).Inc()
	metrics.FlightSearchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	a.obs.RecordSearch(ctx, req.Origin, outcome, elapsed)

	if result.Err != nil {
		a.logger.Warn("origin search failed", map[string]interface{}{
			"origin":      req.Origin,
			"destination": req.Destination,
			"outcome":     outcome,
			"error":       result.Err.Error(),
		})
	}
	return result
}
