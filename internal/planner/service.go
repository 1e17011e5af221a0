package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"travel-workers/internal/airports"
	"travel-workers/internal/clustering"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/common/observability"
	"travel-workers/internal/models"
	"travel-workers/internal/needs"
	"travel-workers/internal/search"
	"travel-workers/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const analyzeConcurrency = 4

var (
	ErrDestinationUnresolved = errors.New("destination airport could not be resolved")
	ErrNoNeeds               = errors.New("at least one travel need is required")
)

type Service struct {
	directory  store.Directory
	prefs      store.PreferenceStore
	source     needs.Source
	calendar   needs.CalendarSource
	resolver   airports.Resolver
	aggregator *search.Aggregator
	builder    *Builder
	obs        *observability.Observability
	logger     logger.Logger
}

type Deps struct {
	Directory   store.Directory
	Preferences store.PreferenceStore
	Needs       needs.Source
	Calendar    needs.CalendarSource
	Resolver    airports.Resolver
	Aggregator  *search.Aggregator
	Builder     *Builder
	Obs         *observability.Observability
}

func NewService(deps Deps, log logger.Logger) *Service {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = airports.StaticResolver{}
	}
	return &Service{
		directory:  deps.Directory,
		prefs:      deps.Preferences,
		source:     deps.Needs,
		calendar:   deps.Calendar,
		resolver:   resolver,
		aggregator: deps.Aggregator,
		builder:    deps.Builder,
		obs:        deps.Obs,
		logger:     log.WithFields(map[string]interface{}{"component": "planner"}),
	}
}

// DetectGroups analyzes every member's calendar and clusters the resulting
// needs. A member whose calendar or analysis fails is skipped.
func (s *Service) DetectGroups(ctx context.Context, orgID string) ([]models.TravelGroup, error) {
	users, err := s.directory.UsersInOrganization(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list organization %s: %w", orgID, err)
	}

	perUser := make([][]models.TravelNeed, len(users))
	var g errgroup.Group
	g.SetLimit(analyzeConcurrency)
	for i, u := range users {
		i, u := i, u
		g.Go(func() error {
			perUser[i] = s.userNeeds(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var all []models.TravelNeed
	for _, n := range perUser {
		all = append(all, n...)
	}

	groups := clustering.Cluster(all)
	for i := range groups {
		if groups[i].DestinationAirport == "" {
			if code, ok := s.resolver.ResolveAirport(ctx, groups[i].DestinationCity, nil); ok {
				groups[i].DestinationAirport = code
			}
		}
	}
	metrics.GroupsDetected.Add(float64(len(groups)))

	s.logger.Info("groups detected", map[string]interface{}{
		"organizationId": orgID,
		"members":        len(users),
		"needs":          len(all),
		"groups":         len(groups),
	})
	return groups, nil
}

// NeedsForUser analyzes one user's calendar. Unlike DetectGroups it reports
// failures to the caller.
func (s *Service) NeedsForUser(ctx context.Context, userID string) ([]models.TravelNeed, error) {
	u := models.User{ID: userID}
	if s.directory != nil {
		found, err := s.directory.GetUser(ctx, userID)
		switch {
		case err == nil:
			u = *found
		case !errors.Is(err, store.ErrUserNotFound):
			return nil, fmt.Errorf("look up user %s: %w", userID, err)
		}
	}

	events, err := s.calendar.EventsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	found, err := s.source.Analyze(ctx, userID, events, u.HomeCity, u.HomeAirport)
	if err != nil {
		return nil, err
	}
	fillOrigin(found, u)
	return found, nil
}

func fillOrigin(found []models.TravelNeed, u models.User) {
	for i := range found {
		if found[i].OriginAirport == "" {
			found[i].OriginAirport = u.HomeAirport
		}
		if found[i].OriginCity == "" {
			found[i].OriginCity = u.HomeCity
		}
	}
}

func (s *Service) userNeeds(ctx context.Context, u models.User) []models.TravelNeed {
	events, err := s.calendar.EventsForUser(ctx, u.ID)
	if err != nil {
		s.logger.Warn("calendar lookup failed", map[string]interface{}{"userId": u.ID, "error": err})
		return nil
	}
	found, err := s.source.Analyze(ctx, u.ID, events, u.HomeCity, u.HomeAirport)
	if err != nil {
		s.logger.Warn("travel need analysis failed", map[string]interface{}{"userId": u.ID, "error": err})
		return nil
	}
	fillOrigin(found, u)
	return found
}

// PlanGroupTravel treats needs as one group headed for the first need's
// destination. The plan is only built after every origin search returns.
func (s *Service) PlanGroupTravel(ctx context.Context, orgID string, travelNeeds []models.TravelNeed, assignments []models.MemberAssignment, title string) (*models.GroupTravelPlan, error) {
	if len(travelNeeds) == 0 {
		return nil, ErrNoNeeds
	}

	ctx, span := s.obs.StartSpan(ctx, "planner.plan_group_travel",
		attribute.String("organizationId", orgID),
		attribute.Int("needs", len(travelNeeds)),
	)
	defer span.End()

	group, err := s.groupFromNeeds(ctx, travelNeeds)
	if err != nil {
		metrics.PlansBuilt.WithLabelValues("unresolved").Inc()
		return nil, err
	}

	members := s.resolveMembers(ctx, orgID, travelNeeds, assignments)
	results := s.aggregator.Search(ctx, group, members)
	plan := s.builder.Build(ctx, group, members, results, title)

	metrics.PlansBuilt.WithLabelValues("ok").Inc()
	s.logger.Info("group plan built", map[string]interface{}{
		"planId":      plan.ID,
		"destination": plan.DestinationAirport,
		"members":     len(plan.Members),
		"total":       plan.TotalEstimatedCost,
	})
	return &plan, nil
}

func (s *Service) groupFromNeeds(ctx context.Context, travelNeeds []models.TravelNeed) (models.TravelGroup, error) {
	first := travelNeeds[0]
	group := models.TravelGroup{
		ID:              uuid.NewString(),
		DestinationCity: first.DestinationCity,
		DepartureDate:   first.DepartureDate,
		Needs:           travelNeeds,
	}

	seen := make(map[string]bool)
	for _, n := range travelNeeds {
		if group.DestinationAirport == "" && n.DestinationAirport != "" {
			group.DestinationAirport = strings.ToUpper(n.DestinationAirport)
		}
		if n.ReturnDate != nil && (group.ReturnDate == nil || n.ReturnDate.After(group.ReturnDate.Time)) {
			rd := *n.ReturnDate
			group.ReturnDate = &rd
		}
		if n.UserID != "" && !seen[n.UserID] {
			seen[n.UserID] = true
			group.MemberIDs = append(group.MemberIDs, n.UserID)
		}
	}
	if group.DestinationAirport == "" {
		code, ok := s.resolver.ResolveAirport(ctx, first.DestinationCity, nil)
		if !ok {
			return group, fmt.Errorf("%w: %q", ErrDestinationUnresolved, first.DestinationCity)
		}
		group.DestinationAirport = code
	}
	return group, nil
}

// resolveMembers fills every member's home airport from, in order: the
// assignment, the need's origin, the directory, the stored preferences, then
// the origin city.
func (s *Service) resolveMembers(ctx context.Context, orgID string, travelNeeds []models.TravelNeed, assignments []models.MemberAssignment) []models.MemberAssignment {
	roster := s.roster(ctx, orgID)

	needByUser := make(map[string]models.TravelNeed)
	for _, n := range travelNeeds {
		if _, ok := needByUser[n.UserID]; !ok {
			needByUser[n.UserID] = n
		}
	}

	if len(assignments) == 0 {
		seen := make(map[string]bool)
		for _, n := range travelNeeds {
			if seen[n.UserID] {
				continue
			}
			seen[n.UserID] = true
			assignments = append(assignments, models.MemberAssignment{UserID: n.UserID, HomeAirport: n.OriginAirport})
		}
	}

	out := make([]models.MemberAssignment, 0, len(assignments))
	for _, a := range assignments {
		user, known := roster[a.UserID]
		if !known && s.directory != nil {
			if u, err := s.directory.GetUser(ctx, a.UserID); err == nil {
				user, known = *u, true
			}
		}
		if a.Name == "" && known {
			a.Name = user.Name
		}

		need := needByUser[a.UserID]
		if a.HomeAirport == "" {
			a.HomeAirport = need.OriginAirport
		}
		if a.HomeAirport == "" && known {
			a.HomeAirport = user.HomeAirport
		}
		if a.HomeAirport == "" {
			stored := s.storedHome(ctx, a.UserID)
			a.HomeAirport = stored.HomeAirport

			city := need.OriginCity
			if city == "" && known {
				city = user.HomeCity
			}
			if city == "" {
				city = stored.HomeCity
			}
			if a.HomeAirport == "" {
				if code, ok := s.resolver.ResolveAirport(ctx, city, nil); ok {
					a.HomeAirport = code
				}
			}
		}
		a.HomeAirport = strings.ToUpper(a.HomeAirport)
		if a.HomeAirport == "" {
			s.logger.Warn("member origin unresolved", map[string]interface{}{"userId": a.UserID})
		}
		out = append(out, a)
	}
	return out
}

// storedHome is the member's saved home location. A lookup failure counts as
// no saved location.
func (s *Service) storedHome(ctx context.Context, userID string) models.UserPreferences {
	if s.prefs == nil || userID == "" {
		return models.UserPreferences{}
	}
	p, err := s.prefs.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("preference lookup failed", map[string]interface{}{"userId": userID, "error": err})
		return models.UserPreferences{}
	}
	return p
}

func (s *Service) roster(ctx context.Context, orgID string) map[string]models.User {
	out := make(map[string]models.User)
	if orgID == "" || s.directory == nil {
		return out
	}
	users, err := s.directory.UsersInOrganization(ctx, orgID)
	if err != nil {
		s.logger.Warn("roster lookup failed", map[string]interface{}{"organizationId": orgID, "error": err})
		return out
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
