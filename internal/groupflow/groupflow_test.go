package groupflow

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"travel-workers/internal/airports"
	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"
	"travel-workers/internal/notify"
	"travel-workers/internal/planner"
	"travel-workers/internal/ranking"
	"travel-workers/internal/search"
	"travel-workers/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakePlanner struct {
	mu       sync.Mutex
	needs    []models.TravelNeed
	needsErr error
	failFor  map[string]bool
	calls    []string
}

func (f *fakePlanner) NeedsForUser(context.Context, string) ([]models.TravelNeed, error) {
	return f.needs, f.needsErr
}

func (f *fakePlanner) PlanGroupTravel(_ context.Context, orgID string, needs []models.TravelNeed, assignments []models.MemberAssignment, title string) (*models.GroupTravelPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, title)
	if f.failFor[title] {
		return nil, errors.New("destination airport could not be resolved")
	}
	members := make([]models.GroupMemberPlan, 0, len(assignments))
	for _, a := range assignments {
		members = append(members, models.GroupMemberPlan{UserID: a.UserID, Name: a.Name, HomeAirport: a.HomeAirport})
	}
	return &models.GroupTravelPlan{
		ID:                 "plan-" + title,
		Title:              title,
		Destination:        needs[0].DestinationCity,
		Members:            members,
		TotalEstimatedCost: 500,
		Currency:           "USD",
		Summary:            title + " summary",
	}, nil
}

type recordingNotifier struct {
	err   error
	confs []models.BookingConfirmation
}

func (n *recordingNotifier) SendConfirmation(_ context.Context, conf models.BookingConfirmation, _ []notify.Recipient) (*notify.Result, error) {
	n.confs = append(n.confs, conf)
	if n.err != nil {
		return nil, n.err
	}
	return &notify.Result{Status: notify.StatusSent}, nil
}

func conferenceNeed(id, title, city string, start models.Date, end *models.Date) models.TravelNeed {
	return models.TravelNeed{
		ID:              id,
		UserID:          "lead",
		OriginAirport:   "JFK",
		DestinationCity: city,
		DepartureDate:   start,
		ReturnDate:      end,
		EventID:         "evt-" + id,
		EventTitle:      title,
		RequiresFlight:  true,
	}
}

func datePtr(d models.Date) *models.Date { return &d }

func createTestNeeds() []models.TravelNeed {
	return []models.TravelNeed{
		conferenceNeed("1", "Data Summit", "Chicago", models.NewDate(2026, 3, 5), datePtr(models.NewDate(2026, 3, 7))),
		conferenceNeed("2", "Dentist", "New York", models.NewDate(2026, 3, 9), nil),
		conferenceNeed("3", "Cloud Expo", "Austin", models.NewDate(2026, 3, 10), datePtr(models.NewDate(2026, 3, 11))),
	}
}

type testMachine struct {
	*Machine
	store    *MemoryFlowStore
	planner  *fakePlanner
	notifier *recordingNotifier
}

func newTestMachine(t *testing.T, planner *fakePlanner) testMachine {
	t.Helper()
	fs := NewMemoryFlowStore()
	n := &recordingNotifier{}
	m := NewMachine(Deps{
		Store:     fs,
		Planner:   planner,
		Directory: store.NewMemoryDirectory(),
		Notifier:  n,
	}, Config{}, logger.NewTestLogger(t))
	return testMachine{Machine: m, store: fs, planner: planner, notifier: n}
}

// ==========================
// Intent Classification
// ==========================

func TestPatternClassifier(t *testing.T) {
	c := NewPatternClassifier()
	tests := []struct {
		text string
		want Intent
	}{
		{"Can you plan team travel for the summit?", IntentGroupTravel},
		{"book flights for my group", IntentGroupTravel},
		{"who's going to the conference?", IntentGroupTravel},
		{"yes, the whole team", IntentWholeTeam},
		{"Everyone please", IntentWholeTeam},
		{"approve", IntentApprove},
		{"Looks good, book it", IntentApprove},
		{"CONFIRM", IntentApprove},
		{"what's the weather in Chicago?", IntentUnknown},
		{"", IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

// ==========================
// Conference Detection
// ==========================

func TestDetectConferences(t *testing.T) {
	needs := createTestNeeds()
	needs = append(needs, needs[0])

	confs := DetectConferences(needs, []string{"summit", "expo"})

	require.Len(t, confs, 2)
	assert.Equal(t, "Data Summit", confs[0].Title)
	assert.Equal(t, models.NewDate(2026, 3, 7), confs[0].EndDate)
	assert.Equal(t, "Cloud Expo", confs[1].Title)
}

func TestDetectConferences_PluralAndReasoning(t *testing.T) {
	needs := []models.TravelNeed{
		{EventID: "a", EventTitle: "Partner Workshops", DestinationCity: "Denver", DepartureDate: models.NewDate(2026, 5, 1)},
		{EventID: "b", EventTitle: "Quarterly", Reasoning: "Attending the annual sales kickoff", DestinationCity: "Miami", DepartureDate: models.NewDate(2026, 5, 3)},
		{EventID: "c", EventTitle: "Summitry lecture", DestinationCity: "Boston", DepartureDate: models.NewDate(2026, 5, 3)},
	}
	confs := DetectConferences(needs, []string{"workshop", "kickoff", "summit"})

	require.Len(t, confs, 2)
	assert.Equal(t, "Denver", confs[0].City)
	assert.Equal(t, models.NewDate(2026, 5, 1), confs[0].EndDate)
	assert.Equal(t, "Miami", confs[1].City)
}

func TestBackToBackNote(t *testing.T) {
	conf := func(title string, start, end models.Date) models.Conference {
		return models.Conference{Title: title, City: title + " City", StartDate: start, EndDate: end}
	}

	tests := []struct {
		name     string
		confs    []models.Conference
		wantNote bool
	}{
		{
			name: "three days apart",
			confs: []models.Conference{
				conf("B", models.NewDate(2026, 3, 10), models.NewDate(2026, 3, 11)),
				conf("A", models.NewDate(2026, 3, 5), models.NewDate(2026, 3, 7)),
			},
			wantNote: true,
		},
		{
			name: "ten days apart",
			confs: []models.Conference{
				conf("A", models.NewDate(2026, 3, 1), models.NewDate(2026, 3, 2)),
				conf("B", models.NewDate(2026, 3, 12), models.NewDate(2026, 3, 13)),
			},
			wantNote: false,
		},
		{
			name: "same day",
			confs: []models.Conference{
				conf("A", models.NewDate(2026, 3, 1), models.NewDate(2026, 3, 2)),
				conf("B", models.NewDate(2026, 3, 2), models.NewDate(2026, 3, 3)),
			},
			wantNote: true,
		},
		{
			name: "overlapping",
			confs: []models.Conference{
				conf("A", models.NewDate(2026, 3, 1), models.NewDate(2026, 3, 5)),
				conf("B", models.NewDate(2026, 3, 3), models.NewDate(2026, 3, 4)),
			},
			wantNote: false,
		},
		{
			name:     "single conference",
			confs:    []models.Conference{conf("A", models.NewDate(2026, 3, 1), models.NewDate(2026, 3, 2))},
			wantNote: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note := BackToBackNote(tt.confs)
			if tt.wantNote {
				assert.NotEmpty(t, note)
			} else {
				assert.Empty(t, note)
			}
		})
	}
}

func TestBackToBackNote_FirstPairOnly(t *testing.T) {
	confs := []models.Conference{
		{Title: "A", City: "Austin", StartDate: models.NewDate(2026, 3, 1), EndDate: models.NewDate(2026, 3, 2)},
		{Title: "B", City: "Boston", StartDate: models.NewDate(2026, 3, 4), EndDate: models.NewDate(2026, 3, 5)},
		{Title: "C", City: "Chicago", StartDate: models.NewDate(2026, 3, 6), EndDate: models.NewDate(2026, 3, 7)},
	}
	note := BackToBackNote(confs)
	assert.Contains(t, note, "A in Austin")
	assert.Contains(t, note, "B in Boston")
	assert.NotContains(t, note, "Chicago")
}

// ==========================
// Flow Machine
// ==========================

func TestMachine_StartWithoutConferencesStoresNothing(t *testing.T) {
	tm := newTestMachine(t, &fakePlanner{needs: []models.TravelNeed{
		conferenceNeed("1", "Dentist", "New York", models.NewDate(2026, 3, 9), nil),
	}})

	reply, err := tm.HandleMessage(context.Background(), "lead", "plan team travel")

	require.NoError(t, err)
	assert.Empty(t, reply.State)
	_, err = tm.store.Get(context.Background(), "lead")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestMachine_IdleUnrelatedMessage(t *testing.T) {
	tm := newTestMachine(t, &fakePlanner{needs: createTestNeeds()})

	reply, err := tm.HandleMessage(context.Background(), "lead", "hello there")

	require.NoError(t, err)
	assert.Equal(t, idleHint, reply.Message)
	_, err = tm.store.Get(context.Background(), "lead")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestMachine_UnrelatedMessageKeepsAwaitingTeam(t *testing.T) {
	ctx := context.Background()
	tm := newTestMachine(t, &fakePlanner{needs: createTestNeeds()})

	reply, err := tm.StartGroupFlow(ctx, "lead", "plan team travel")
	require.NoError(t, err)
	assert.Equal(t, models.FlowConferencesDetected, reply.State)
	assert.Len(t, reply.Conferences, 2)
	assert.NotEmpty(t, reply.SchedulingNote)

	for i := 0; i < 2; i++ {
		reply, err = tm.HandleMessage(ctx, "lead", "what's the weather like?")
		require.NoError(t, err)
		assert.Equal(t, models.FlowAwaitingTeam, reply.State)
		assert.Empty(t, reply.Plans)
	}

	st, err := tm.store.Get(ctx, "lead")
	require.NoError(t, err)
	assert.Equal(t, models.FlowAwaitingTeam, st.State)
	assert.Empty(t, st.Plans)
	assert.Empty(t, tm.planner.calls)
}

func TestMachine_FullFlow(t *testing.T) {
	ctx := context.Background()
	tm := newTestMachine(t, &fakePlanner{needs: createTestNeeds()})

	_, err := tm.HandleMessage(ctx, "lead", "can you handle team travel for our conferences?")
	require.NoError(t, err)

	reply, err := tm.HandleMessage(ctx, "lead", "yes, the whole team")
	require.NoError(t, err)
	assert.Equal(t, models.FlowAwaitingApproval, reply.State)
	require.Len(t, reply.Plans, 2)
	assert.Equal(t, []string{"Data Summit", "Cloud Expo"}, tm.planner.calls)
	assert.Len(t, reply.Plans[0].Members, 5)
	assert.Equal(t, "JFK", memberPlan(t, reply.Plans[0], "lead").HomeAirport)

	st, err := tm.store.Get(ctx, "lead")
	require.NoError(t, err)
	assert.NotEmpty(t, st.OrganizationID)
	assert.Len(t, st.TeamMembers, 5)

	reply, err = tm.HandleMessage(ctx, "lead", "hmm, let me think")
	require.NoError(t, err)
	assert.Equal(t, models.FlowAwaitingApproval, reply.State)
	assert.Nil(t, reply.Confirmation)

	reply, err = tm.HandleMessage(ctx, "lead", "approve")
	require.NoError(t, err)
	assert.Equal(t, models.FlowComplete, reply.State)
	require.NotNil(t, reply.Confirmation)
	assert.Regexp(t, regexp.MustCompile(`^TRV-[0-9A-F]{8}$`), reply.Confirmation.ConfirmationID)
	assert.Equal(t, PaymentSummary, reply.Confirmation.PaymentSummary)
	assert.Len(t, reply.Confirmation.Lines, 2)
	assert.Equal(t, 1000.0, reply.Confirmation.Total)
	assert.Equal(t, 5, reply.Confirmation.Lines[0].Travelers)
	require.Len(t, tm.notifier.confs, 1)

	st, err = tm.store.Get(ctx, "lead")
	require.NoError(t, err)
	assert.Equal(t, models.FlowComplete, st.State)
}

func TestMachine_FailedConferenceExcluded(t *testing.T) {
	ctx := context.Background()
	tm := newTestMachine(t, &fakePlanner{needs: createTestNeeds(), failFor: map[string]bool{"Cloud Expo": true}})

	_, err := tm.StartGroupFlow(ctx, "lead", "")
	require.NoError(t, err)
	reply, err := tm.HandleMessage(ctx, "lead", "everyone")
	require.NoError(t, err)

	assert.Equal(t, models.FlowAwaitingApproval, reply.State)
	require.Len(t, reply.Plans, 1)
	assert.Equal(t, "Data Summit", reply.Plans[0].Title)
	require.Len(t, reply.Failures, 1)
	assert.Contains(t, reply.Failures[0], "Cloud Expo")
}

func TestMachine_AllConferencesFailStayAwaitingTeam(t *testing.T) {
	ctx := context.Background()
	tm := newTestMachine(t, &fakePlanner{
		needs:   createTestNeeds(),
		failFor: map[string]bool{"Cloud Expo": true, "Data Summit": true},
	})

	_, err := tm.StartGroupFlow(ctx, "lead", "")
	require.NoError(t, err)
	reply, err := tm.HandleMessage(ctx, "lead", "whole team")
	require.NoError(t, err)

	assert.Equal(t, models.FlowAwaitingTeam, reply.State)
	assert.Empty(t, reply.Plans)
	assert.Len(t, reply.Failures, 2)
}

func TestMachine_NotificationFailureDoesNotRevert(t *testing.T) {
	ctx := context.Background()
	tm := newTestMachine(t, &fakePlanner{needs: createTestNeeds()})
	tm.notifier.err = errors.New("ses throttled")

	_, err := tm.StartGroupFlow(ctx, "lead", "")
	require.NoError(t, err)
	_, err = tm.HandleMessage(ctx, "lead", "whole team")
	require.NoError(t, err)
	reply, err := tm.HandleMessage(ctx, "lead", "book it")

	require.NoError(t, err)
	assert.Equal(t, models.FlowComplete, reply.State)
	require.NotNil(t, reply.Confirmation)
}

func TestMachine_InvalidStoredStateResets(t *testing.T) {
	ctx := context.Background()
	tm := newTestMachine(t, &fakePlanner{needs: createTestNeeds()})
	require.NoError(t, tm.store.Save(ctx, &models.GroupFlowState{UserID: "lead", State: "teleporting"}))

	reply, err := tm.HandleMessage(ctx, "lead", "approve")

	assert.ErrorIs(t, err, ErrInvalidFlowState)
	assert.Equal(t, RestartMessage, reply.Message)
	_, err = tm.store.Get(ctx, "lead")
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestMachine_CalendarFailure(t *testing.T) {
	tm := newTestMachine(t, &fakePlanner{needsErr: errors.New("calendar down")})

	reply, err := tm.StartGroupFlow(context.Background(), "lead", "plan team travel")

	require.Error(t, err)
	assert.NotEmpty(t, reply.Message)
}

// ==========================
// Planning With The Real Planner
// ==========================

type recordingSearcher struct {
	mu      sync.Mutex
	origins []string
}

func (r *recordingSearcher) Search(_ context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.origins = append(r.origins, req.Origin)
	return &search.SearchResponse{Offers: []models.FlightOffer{{
		ID:                   req.Origin + "-1",
		TotalPrice:           250,
		Currency:             "USD",
		TotalDurationMinutes: 180,
	}}}, nil
}

type staticCalendar struct{}

func (staticCalendar) EventsForUser(context.Context, string) ([]models.CalendarEvent, error) {
	return []models.CalendarEvent{{ID: "e1", Title: "Data Summit", Location: "Chicago", Start: models.NewDate(2026, 3, 5)}}, nil
}

// summitAnalyzer turns every event into a need flying from origin.
type summitAnalyzer struct {
	origin string
}

func (a summitAnalyzer) Analyze(_ context.Context, userID string, events []models.CalendarEvent, _, _ string) ([]models.TravelNeed, error) {
	out := make([]models.TravelNeed, 0, len(events))
	for _, e := range events {
		out = append(out, models.TravelNeed{
			ID:              userID + "-" + e.ID,
			UserID:          userID,
			OriginAirport:   a.origin,
			DestinationCity: e.Location,
			DepartureDate:   e.Start,
			RequiresFlight:  true,
			EventID:         e.ID,
			EventTitle:      e.Title,
		})
	}
	return out, nil
}

func newPlannerMachine(t *testing.T, analyzer summitAnalyzer, prefs store.PreferenceStore, searcher search.FlightSearcher) *Machine {
	t.Helper()
	log := logger.NewTestLogger(t)
	dir := store.NewMemoryDirectory()
	svc := planner.NewService(planner.Deps{
		Directory:   dir,
		Preferences: prefs,
		Needs:       analyzer,
		Calendar:    staticCalendar{},
		Resolver:    airports.StaticResolver{},
		Aggregator:  search.NewAggregator(searcher, search.AggregatorConfig{SearchTimeout: time.Second}, log, nil),
		Builder:     planner.NewBuilder(ranking.NewRanker(log), prefs, log),
	}, log)
	return NewMachine(Deps{
		Store:     NewMemoryFlowStore(),
		Planner:   svc,
		Directory: dir,
		Notifier:  &recordingNotifier{},
	}, Config{}, log)
}

func memberPlan(t *testing.T, plan models.GroupTravelPlan, userID string) models.GroupMemberPlan {
	t.Helper()
	for _, m := range plan.Members {
		if m.UserID == userID {
			return m
		}
	}
	require.Failf(t, "member missing from plan", "user %s", userID)
	return models.GroupMemberPlan{}
}

func TestMachine_LeadFliesFromDetectedOrigin(t *testing.T) {
	ctx := context.Background()
	searcher := &recordingSearcher{}
	m := newPlannerMachine(t, summitAnalyzer{origin: "BOS"}, store.NewMemoryPreferenceStore(), searcher)

	_, err := m.HandleMessage(ctx, "lead", "plan team travel")
	require.NoError(t, err)
	reply, err := m.HandleMessage(ctx, "lead", "whole team")
	require.NoError(t, err)

	require.Len(t, reply.Plans, 1)
	lead := memberPlan(t, reply.Plans[0], "lead")
	assert.Equal(t, "BOS", lead.HomeAirport)
	require.NotNil(t, lead.RecommendedFlight)
	assert.Equal(t, "BOS-1", lead.RecommendedFlight.Offer.ID)
	assert.Empty(t, lead.Notes)
	assert.ElementsMatch(t, []string{"BOS", "SFO", "JFK", "AUS"}, searcher.origins)
}

func TestMachine_LeadFliesFromStoredHomeAirport(t *testing.T) {
	ctx := context.Background()
	prefs := store.NewMemoryPreferenceStore()
	home := "BOS"
	_, err := prefs.Update(ctx, "lead", models.PreferencesUpdate{HomeAirport: &home})
	require.NoError(t, err)
	searcher := &recordingSearcher{}
	m := newPlannerMachine(t, summitAnalyzer{}, prefs, searcher)

	_, err = m.HandleMessage(ctx, "lead", "plan team travel")
	require.NoError(t, err)
	reply, err := m.HandleMessage(ctx, "lead", "whole team")
	require.NoError(t, err)

	require.Len(t, reply.Plans, 1)
	lead := memberPlan(t, reply.Plans[0], "lead")
	assert.Equal(t, "BOS", lead.HomeAirport)
	assert.NotNil(t, lead.RecommendedFlight)
	assert.Contains(t, searcher.origins, "BOS")
}

func TestNewConfirmationID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		id := NewConfirmationID()
		assert.Regexp(t, `^TRV-[0-9A-F]{8}$`, id)
		seen[id] = true
	}
	assert.Greater(t, len(seen), 1)
}

// ==========================
// Flow Stores
// ==========================

func TestRedisFlowStore_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisFlowStore(rdb, time.Hour)
	ctx := context.Background()

	_, err := s.Get(ctx, "u-1")
	assert.ErrorIs(t, err, ErrFlowNotFound)

	st := &models.GroupFlowState{
		UserID:      "u-1",
		State:       models.FlowAwaitingTeam,
		Conferences: []models.Conference{{Title: "Data Summit", City: "Chicago", StartDate: models.NewDate(2026, 3, 5)}},
	}
	require.NoError(t, s.Save(ctx, st))
	assert.Equal(t, time.Hour, mr.TTL(FlowKey("u-1")))

	got, err := s.Get(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, models.FlowAwaitingTeam, got.State)
	assert.Equal(t, models.NewDate(2026, 3, 5), got.Conferences[0].StartDate)

	require.NoError(t, s.Delete(ctx, "u-1"))
	assert.False(t, mr.Exists(FlowKey("u-1")))
}

func TestRedisFlowStore_CorruptValue(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(FlowKey("u-1"), "{not json"))

	_, err := NewRedisFlowStore(rdb, time.Hour).Get(context.Background(), "u-1")
	assert.ErrorIs(t, err, ErrCorruptFlowState)
}

func TestRedisFlowStore_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	s := NewRedisFlowStore(db, time.Minute)
	ctx := context.Background()

	mock.ExpectGet(FlowKey("u-1")).SetErr(errors.New("connection refused"))
	_, err := s.Get(ctx, "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrFlowNotFound)

	mock.ExpectDel(FlowKey("u-1")).SetErr(errors.New("connection refused"))
	assert.Error(t, s.Delete(ctx, "u-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMachine_CorruptStoredValueResets(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	require.NoError(t, mr.Set(FlowKey("lead"), "garbage"))

	m := NewMachine(Deps{
		Store:     NewRedisFlowStore(rdb, time.Hour),
		Planner:   &fakePlanner{},
		Directory: store.NewMemoryDirectory(),
	}, Config{}, logger.NewTestLogger(t))

	reply, err := m.HandleMessage(context.Background(), "lead", "whole team")

	assert.ErrorIs(t, err, ErrInvalidFlowState)
	assert.Equal(t, RestartMessage, reply.Message)
	assert.False(t, mr.Exists(FlowKey("lead")))
}
