// Package planner turns travel groups and search results into group travel plans.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"
	"travel-workers/internal/ranking"
	"travel-workers/internal/search"
	"travel-workers/internal/store"

	"github.com/google/uuid"
)

const (
	MaxAlternatives = 3
	DefaultCurrency = "USD"

	LocalNote = "local: no flight needed"
)

// UnresolvedOriginNote is attached to a member whose home airport is unknown.
func UnresolvedOriginNote(name string) string {
	return fmt.Sprintf("could not determine where %s is flying from; please provide a home airport", name)
}

type Builder struct {
	ranker *ranking.Ranker
	prefs  store.PreferenceStore
	logger logger.Logger
	now    func() time.Time
}

func NewBuilder(ranker *ranking.Ranker, prefs store.PreferenceStore, log logger.Logger) *Builder {
	return &Builder{
		ranker: ranker,
		prefs:  prefs,
		logger: log.WithFields(map[string]interface{}{"component": "plan-builder"}),
		now:    time.Now,
	}
}

// Build assembles the plan from a fully joined aggregation pass. Each member
// is ranked with their own preferences.
func (b *Builder) Build(ctx context.Context, group models.TravelGroup, members []models.MemberAssignment, results search.AggregatedResults, title string) models.GroupTravelPlan {
	dest := strings.ToUpper(group.DestinationAirport)
	if title == "" {
		title = fmt.Sprintf("Group trip to %s", group.DestinationCity)
	}

	plan := models.GroupTravelPlan{
		ID:                 uuid.NewString(),
		Title:              title,
		Destination:        group.DestinationCity,
		DestinationAirport: dest,
		DepartureDate:      group.DepartureDate,
		ReturnDate:         group.ReturnDate,
		Members:            make([]models.GroupMemberPlan, 0, len(members)),
		CreatedAt:          b.now().UTC(),
	}

	for _, m := range members {
		mp := b.memberPlan(ctx, m, dest, results)
		if mp.RecommendedFlight != nil {
			plan.TotalEstimatedCost += mp.RecommendedFlight.Offer.TotalPrice
			if plan.Currency == "" {
				plan.Currency = mp.RecommendedFlight.Offer.Currency
			}
		}
		plan.Members = append(plan.Members, mp)
	}
	if plan.Currency == "" {
		plan.Currency = DefaultCurrency
	}
	plan.Summary = summarize(plan)
	return plan
}

func (b *Builder) memberPlan(ctx context.Context, m models.MemberAssignment, dest string, results search.AggregatedResults) models.GroupMemberPlan {
	home := strings.ToUpper(strings.TrimSpace(m.HomeAirport))
	mp := models.GroupMemberPlan{
		UserID:       m.UserID,
		Name:         displayName(m),
		HomeAirport:  home,
		Alternatives: []models.RankedOffer{},
		Notes:        []string{},
	}

	switch {
	case home == "":
		mp.Notes = append(mp.Notes, UnresolvedOriginNote(mp.Name))
		return mp
	case home == dest:
		mp.IsLocal = true
		mp.Notes = append(mp.Notes, LocalNote)
		return mp
	}

	res, ok := results.For(home)
	if !ok || !res.Found() {
		note := search.NoFlightsNote(home)
		if ok && res.Note != "" {
			note = res.Note
		}
		mp.Notes = append(mp.Notes, note)
		return mp
	}

	prefs, err := b.prefs.Get(ctx, m.UserID)
	if err != nil {
		b.logger.Warn("preference lookup failed, ranking with defaults", map[string]interface{}{
			"userId": m.UserID,
			"error":  err,
		})
		prefs = models.DefaultPreferences(m.UserID)
	}

	ranked := b.ranker.Rank(res.Offers, prefs)
	top := ranked[0]
	mp.RecommendedFlight = &top
	if len(ranked) > 1 {
		mp.Alternatives = append(mp.Alternatives, ranking.TopN(ranked[1:], MaxAlternatives)...)
	}
	return mp
}

func displayName(m models.MemberAssignment) string {
	if m.Name != "" {
		return m.Name
	}
	return m.UserID
}

func summarize(plan models.GroupTravelPlan) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s (%s) on %s\n", plan.Title, plan.Destination, plan.DestinationAirport, plan.DepartureDate)
	for _, m := range plan.Members {
		switch {
		case m.IsLocal:
			fmt.Fprintf(&sb, "- %s: %s\n", m.Name, LocalNote)
		case m.RecommendedFlight != nil:
			offer := m.RecommendedFlight.Offer
			fmt.Fprintf(&sb, "- %s from %s: %s, %.2f %s\n", m.Name, m.HomeAirport, describeOffer(offer), offer.TotalPrice, offer.Currency)
		case len(m.Notes) > 0:
			fmt.Fprintf(&sb, "- %s: %s\n", m.Name, m.Notes[0])
		}
	}
	fmt.Fprintf(&sb, "Total estimated cost: %.2f %s", plan.TotalEstimatedCost, plan.Currency)
	return sb.String()
}

func describeOffer(o models.FlightOffer) string {
	if len(o.Segments) == 0 {
		return "flight"
	}
	first := o.Segments[0]
	stops := "nonstop"
	if o.Stops == 1 {
		stops = "1 stop"
	} else if o.Stops > 1 {
		stops = fmt.Sprintf("%d stops", o.Stops)
	}
	return fmt.Sprintf("%s%s departing %s, %s", first.AirlineCode, first.FlightNumber, first.DepartureTime.Format("15:04"), stops)
}
