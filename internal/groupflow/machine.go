// Package groupflow runs the conversational group-travel flow: detect team
// conferences, plan travel for the whole team, then confirm the booking.
package groupflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"travel-workers/internal/common/config"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/common/metrics"
	"travel-workers/internal/models"
	"travel-workers/internal/notify"
	"travel-workers/internal/store"

	"github.com/google/uuid"
)

const (
	PaymentSummary = "Corporate card ending in 4242"

	RestartMessage = "Something went wrong with your group travel request and it has been reset. Say \"plan team travel\" to start again."
	idleHint       = "I can plan travel for your team's upcoming conferences. Say \"plan team travel\" to get started."
	noConferences  = "I didn't find any upcoming conferences on your calendar, so there is no group travel to plan."
	teamPrompt     = "Should I plan travel for the whole team? Reply \"whole team\" to continue."
	approvePrompt  = "Reply \"approve\" to book these trips."
)

var ErrInvalidFlowState = errors.New("invalid group flow state")

// Planner is the slice of the planner service the flow needs.
type Planner interface {
	NeedsForUser(ctx context.Context, userID string) ([]models.TravelNeed, error)
	PlanGroupTravel(ctx context.Context, orgID string, needs []models.TravelNeed, assignments []models.MemberAssignment, title string) (*models.GroupTravelPlan, error)
}

type Reply struct {
	Message        string                      `json:"message"`
	State          models.FlowState            `json:"state,omitempty"`
	Conferences    []models.Conference         `json:"conferences,omitempty"`
	Plans          []models.GroupTravelPlan    `json:"plans,omitempty"`
	Confirmation   *models.BookingConfirmation `json:"confirmation,omitempty"`
	SchedulingNote string                      `json:"schedulingNote,omitempty"`
	Failures       []string                    `json:"failures,omitempty"`
}

type Config struct {
	ConferenceKeywords []string
}

type Machine struct {
	store      FlowStore
	planner    Planner
	directory  store.Directory
	notifier   notify.Notifier
	classifier IntentClassifier
	keywords   []string
	logger     logger.Logger
	now        func() time.Time
}

type Deps struct {
	Store      FlowStore
	Planner    Planner
	Directory  store.Directory
	Notifier   notify.Notifier
	Classifier IntentClassifier
}

func NewMachine(deps Deps, cfg Config, log logger.Logger) *Machine {
	classifier := deps.Classifier
	if classifier == nil {
		classifier = NewPatternClassifier()
	}
	keywords := cfg.ConferenceKeywords
	if len(keywords) == 0 {
		keywords = config.DefaultConferenceKeywords
	}
	return &Machine{
		store:      deps.Store,
		planner:    deps.Planner,
		directory:  deps.Directory,
		notifier:   deps.Notifier,
		classifier: classifier,
		keywords:   keywords,
		logger:     log.WithFields(map[string]interface{}{"component": "group-flow"}),
		now:        time.Now,
	}
}

// StartGroupFlow scans the user's calendar for conferences. With none found
// the user stays idle and nothing is stored.
func (m *Machine) StartGroupFlow(ctx context.Context, userID, message string) (Reply, error) {
	needs, err := m.planner.NeedsForUser(ctx, userID)
	if err != nil {
		return Reply{Message: "I couldn't read your calendar right now. Please try again shortly."},
			fmt.Errorf("detect conferences for %s: %w", userID, err)
	}

	conferences := DetectConferences(needs, m.keywords)
	if len(conferences) == 0 {
		m.logger.Info("no conferences detected", map[string]interface{}{"userId": userID, "needs": len(needs)})
		return Reply{Message: noConferences}, nil
	}

	st := &models.GroupFlowState{
		UserID:         userID,
		Conferences:    conferences,
		SchedulingNote: BackToBackNote(conferences),
	}
	if err := m.transition(ctx, st, "", models.FlowConferencesDetected); err != nil {
		return Reply{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "I found %d upcoming conference(s):\n", len(conferences))
	for _, c := range conferences {
		fmt.Fprintf(&sb, "- %s in %s, %s to %s\n", c.Title, c.City, c.StartDate, c.EndDate)
	}
	if st.SchedulingNote != "" {
		sb.WriteString(st.SchedulingNote + "\n")
	}
	sb.WriteString(teamPrompt)

	return Reply{
		Message:        sb.String(),
		State:          st.State,
		Conferences:    conferences,
		SchedulingNote: st.SchedulingNote,
	}, nil
}

// HandleMessage advances the user's flow by one turn.
func (m *Machine) HandleMessage(ctx context.Context, userID, message string) (Reply, error) {
	intent := m.classifier.Classify(message)

	st, err := m.store.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrFlowNotFound):
		if intent == IntentGroupTravel || intent == IntentWholeTeam {
			return m.StartGroupFlow(ctx, userID, message)
		}
		return Reply{Message: idleHint}, nil
	case errors.Is(err, ErrCorruptFlowState):
		return m.reset(ctx, userID, "unreadable")
	case err != nil:
		return Reply{}, fmt.Errorf("load flow for %s: %w", userID, err)
	}

	state, err := models.ParseFlowState(string(st.State))
	if err != nil {
		return m.reset(ctx, userID, string(st.State))
	}

	m.logger.Debug("flow message", map[string]interface{}{
		"userId": userID,
		"state":  string(state),
		"intent": string(intent),
	})

	switch state {
	case models.FlowConferencesDetected, models.FlowAwaitingTeam:
		if intent != IntentWholeTeam {
			if err := m.transition(ctx, st, state, models.FlowAwaitingTeam); err != nil {
				return Reply{}, err
			}
			return Reply{Message: teamPrompt, State: st.State, Conferences: st.Conferences, SchedulingNote: st.SchedulingNote}, nil
		}
		return m.planForTeam(ctx, st, state)

	case models.FlowShowingResults, models.FlowAwaitingApproval:
		if intent != IntentApprove {
			return Reply{Message: approvePrompt, State: state, Plans: st.Plans, SchedulingNote: st.SchedulingNote}, nil
		}
		return m.approve(ctx, st, state)

	default:
		if intent == IntentGroupTravel {
			return m.StartGroupFlow(ctx, userID, message)
		}
		return Reply{
			Message: "Your team's trips are already booked. Say \"plan team travel\" to plan new ones.",
			State:   state,
		}, nil
	}
}

func (m *Machine) reset(ctx context.Context, userID, raw string) (Reply, error) {
	m.logger.Warn("resetting invalid flow state", map[string]interface{}{"userId": userID, "state": raw})
	if err := m.store.Delete(ctx, userID); err != nil {
		m.logger.Error("failed to clear invalid flow state", map[string]interface{}{"userId": userID, "error": err})
	}
	return Reply{Message: RestartMessage}, fmt.Errorf("%w: %q", ErrInvalidFlowState, raw)
}

func (m *Machine) transition(ctx context.Context, st *models.GroupFlowState, from, to models.FlowState) error {
	st.State = to
	st.UpdatedAt = m.now().UTC()
	if err := m.store.Save(ctx, st); err != nil {
		return fmt.Errorf("save flow for %s: %w", st.UserID, err)
	}
	if from != to {
		fromLabel := string(from)
		if fromLabel == "" {
			fromLabel = "idle"
		}
		metrics.FlowTransitions.WithLabelValues(fromLabel, string(to)).Inc()
	}
	return nil
}

// planForTeam builds one plan per conference. A conference whose plan fails is
// reported and left out; the others are kept whole.
func (m *Machine) planForTeam(ctx context.Context, st *models.GroupFlowState, from models.FlowState) (Reply, error) {
	org, err := m.directory.SeedOrCreateDemoOrg(ctx, st.UserID)
	if err != nil {
		return Reply{Message: "I couldn't load your team right now. Please try again."},
			fmt.Errorf("resolve organization for %s: %w", st.UserID, err)
	}
	users, err := m.directory.UsersInOrganization(ctx, org.ID)
	if err != nil {
		return Reply{Message: "I couldn't load your team right now. Please try again."},
			fmt.Errorf("list organization %s: %w", org.ID, err)
	}

	var (
		members  []models.MemberAssignment
		plans    []models.GroupTravelPlan
		failures []string
	)
	for i, c := range st.Conferences {
		team := teamAssignments(c, users, st.UserID)
		if i == 0 {
			members = team
		}
		plan, err := m.planner.PlanGroupTravel(ctx, org.ID, conferenceNeeds(c, users, st.UserID), team, c.Title)
		if err != nil {
			m.logger.Warn("conference plan failed", map[string]interface{}{
				"userId":     st.UserID,
				"conference": c.Title,
				"error":      err,
			})
			failures = append(failures, fmt.Sprintf("%s: %v", c.Title, err))
			continue
		}
		plans = append(plans, *plan)
	}

	st.OrganizationID = org.ID
	st.TeamMembers = members

	if len(plans) == 0 {
		if err := m.transition(ctx, st, from, models.FlowAwaitingTeam); err != nil {
			return Reply{}, err
		}
		return Reply{
			Message:  "I couldn't build a travel plan for any of the conferences. " + teamPrompt,
			State:    st.State,
			Failures: failures,
		}, nil
	}

	st.Plans = plans
	if err := m.transition(ctx, st, from, models.FlowAwaitingApproval); err != nil {
		return Reply{}, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Here is the plan for %d teammates:\n\n", len(members))
	for _, p := range plans {
		sb.WriteString(p.Summary + "\n\n")
	}
	for _, f := range failures {
		fmt.Fprintf(&sb, "Could not plan %s\n", f)
	}
	if st.SchedulingNote != "" {
		sb.WriteString(st.SchedulingNote + "\n")
	}
	sb.WriteString(approvePrompt)

	return Reply{
		Message:        sb.String(),
		State:          st.State,
		Plans:          plans,
		SchedulingNote: st.SchedulingNote,
		Failures:       failures,
	}, nil
}

// memberOrigin is where u flies from for c. The user who started the flow
// flies from the origin of their detected need when it has one.
func memberOrigin(c models.Conference, u models.User, leadUserID string) (city, airport string) {
	city, airport = u.HomeCity, u.HomeAirport
	if u.ID != leadUserID {
		return city, airport
	}
	switch {
	case c.Need.OriginAirport != "":
		return c.Need.OriginCity, c.Need.OriginAirport
	case airport == "" && c.Need.OriginCity != "":
		return c.Need.OriginCity, ""
	}
	return city, airport
}

func teamAssignments(c models.Conference, users []models.User, leadUserID string) []models.MemberAssignment {
	out := make([]models.MemberAssignment, 0, len(users))
	for _, u := range users {
		_, airport := memberOrigin(c, u, leadUserID)
		out = append(out, models.MemberAssignment{UserID: u.ID, Name: u.Name, HomeAirport: strings.ToUpper(airport)})
	}
	return out
}

// conferenceNeeds makes one need per team member for the conference.
func conferenceNeeds(c models.Conference, users []models.User, leadUserID string) []models.TravelNeed {
	var ret *models.Date
	if c.EndDate.After(c.StartDate.Time) {
		end := c.EndDate
		ret = &end
	}
	dest := strings.ToUpper(c.Need.DestinationAirport)

	out := make([]models.TravelNeed, 0, len(users))
	for _, u := range users {
		city, airport := memberOrigin(c, u, leadUserID)
		out = append(out, models.TravelNeed{
			ID:                 uuid.NewString(),
			UserID:             u.ID,
			OriginCity:         city,
			OriginAirport:      strings.ToUpper(airport),
			DestinationCity:    c.City,
			DestinationAirport: dest,
			DepartureDate:      c.StartDate,
			ReturnDate:         ret,
			Urgency:            c.Need.Urgency,
			Confidence:         c.Need.Confidence,
			Reasoning:          fmt.Sprintf("Team travel for %s", c.Title),
			RequiresFlight:     dest == "" || !strings.EqualFold(airport, dest),
			EventID:            c.EventID,
			EventTitle:         c.Title,
		})
	}
	return out
}

// approve is terminal. The confirmation is synthetic and notification is
// best effort.
func (m *Machine) approve(ctx context.Context, st *models.GroupFlowState, from models.FlowState) (Reply, error) {
	conf := m.confirmation(st)
	if err := m.transition(ctx, st, from, models.FlowComplete); err != nil {
		return Reply{}, err
	}

	if m.notifier != nil {
		if _, err := m.notifier.SendConfirmation(ctx, conf, m.recipients(ctx, st.UserID)); err != nil {
			m.logger.Warn("confirmation notification failed", map[string]interface{}{
				"userId":         st.UserID,
				"confirmationId": conf.ConfirmationID,
				"error":          err,
			})
		}
	}

	msg := fmt.Sprintf("Booked! Confirmation %s. %d trip(s), total %.2f %s, charged to %s.",
		conf.ConfirmationID, len(conf.Lines), conf.Total, conf.Currency, conf.PaymentSummary)
	return Reply{Message: msg, State: st.State, Plans: st.Plans, Confirmation: &conf}, nil
}

func (m *Machine) confirmation(st *models.GroupFlowState) models.BookingConfirmation {
	conf := models.BookingConfirmation{
		ConfirmationID: NewConfirmationID(),
		UserID:         st.UserID,
		PaymentSummary: PaymentSummary,
		Lines:          make([]models.ConfirmationLine, 0, len(st.Plans)),
		ConfirmedAt:    m.now().UTC(),
	}
	for _, p := range st.Plans {
		conf.Lines = append(conf.Lines, models.ConfirmationLine{
			PlanID:      p.ID,
			Title:       p.Title,
			Destination: p.Destination,
			Travelers:   len(p.Members),
			Cost:        p.TotalEstimatedCost,
		})
		conf.Total += p.TotalEstimatedCost
		if conf.Currency == "" {
			conf.Currency = p.Currency
		}
	}
	if conf.Currency == "" {
		conf.Currency = "USD"
	}
	return conf
}

func (m *Machine) recipients(ctx context.Context, userID string) []notify.Recipient {
	r := notify.Recipient{UserID: userID}
	if m.directory != nil {
		if u, err := m.directory.GetUser(ctx, userID); err == nil {
			r.Name, r.Email, r.Phone = u.Name, u.Email, u.Phone
		}
	}
	return []notify.Recipient{r}
}

// NewConfirmationID returns "TRV-" and eight upper-case hex characters.
func NewConfirmationID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRV-" + strings.ToUpper(id[:8])
}
