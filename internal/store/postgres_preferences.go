package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"
)

const (
	selectPreferencesSQL = `SELECT preferred_airlines, avoided_airlines, seat_preference, departure_time,
       budget_priority, preferred_cabin, max_layover_minutes, max_budget, home_city, home_airport
FROM user_preferences WHERE user_id = $1`

	upsertPreferencesSQL = `INSERT INTO user_preferences (user_id, preferred_airlines, avoided_airlines, seat_preference,
       departure_time, budget_priority, preferred_cabin, max_layover_minutes, max_budget, home_city, home_airport, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
ON CONFLICT (user_id) DO UPDATE SET
       preferred_airlines = EXCLUDED.preferred_airlines,
       avoided_airlines = EXCLUDED.avoided_airlines,
       seat_preference = EXCLUDED.seat_preference,
       departure_time = EXCLUDED.departure_time,
       budget_priority = EXCLUDED.budget_priority,
       preferred_cabin = EXCLUDED.preferred_cabin,
       max_layover_minutes = EXCLUDED.max_layover_minutes,
       max_budget = EXCLUDED.max_budget,
       home_city = EXCLUDED.home_city,
       home_airport = EXCLUDED.home_airport,
       updated_at = NOW()`
)

type PostgresPreferenceStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresPreferenceStore(db *sql.DB, log logger.Logger) *PostgresPreferenceStore {
	return &PostgresPreferenceStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "preference-store"}),
	}
}

func (s *PostgresPreferenceStore) Get(ctx context.Context, userID string) (models.UserPreferences, error) {
	prefs := models.DefaultPreferences(userID)

	var (
		preferred, avoided, seat, departure, budget, cabin, homeCity, homeAirport string
		maxLayover                                                              int
		maxBudget                                                               sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, selectPreferencesSQL, userID).Scan(
		&preferred, &avoided, &seat, &departure, &budget, &cabin, &maxLayover, &maxBudget, &homeCity, &homeAirport,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return prefs, nil
	}
	if err != nil {
		return prefs, fmt.Errorf("query preferences for %s: %w", userID, err)
	}

	prefs.PreferredAirlines = splitCodes(preferred)
	prefs.AvoidedAirlines = splitCodes(avoided)
	prefs.SeatPreference = seat
	prefs.DepartureTime = models.TimePreference(departure)
	prefs.BudgetPriority = models.BudgetPriority(budget)
	prefs.PreferredCabin = cabin
	prefs.MaxLayoverMinutes = maxLayover
	if maxBudget.Valid {
		v := maxBudget.Float64
		prefs.MaxBudget = &v
	}
	prefs.HomeCity = homeCity
	prefs.HomeAirport = homeAirport
	return prefs, nil
}

func (s *PostgresPreferenceStore) Update(ctx context.Context, userID string, update models.PreferencesUpdate) (models.UserPreferences, error) {
	current, err := s.Get(ctx, userID)
	if err != nil {
		return current, err
	}
	next := update.Apply(current)

	var maxBudget sql.NullFloat64
	if next.MaxBudget != nil {
		maxBudget = sql.NullFloat64{Float64: *next.MaxBudget, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, upsertPreferencesSQL,
		userID,
		joinCodes(next.PreferredAirlines),
		joinCodes(next.AvoidedAirlines),
		next.SeatPreference,
		string(next.DepartureTime),
		string(next.BudgetPriority),
		next.PreferredCabin,
		next.MaxLayoverMinutes,
		maxBudget,
		next.HomeCity,
		next.HomeAirport,
	)
	if err != nil {
		return current, fmt.Errorf("upsert preferences for %s: %w", userID, err)
	}

	s.logger.Info("preferences updated", map[string]interface{}{"userId": userID})
	return next, nil
}
