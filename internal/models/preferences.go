// internal/models/preferences.go
package models

type TimePreference string

const (
	TimeEarlyMorning TimePreference = "early_morning"
	TimeMorning      TimePreference = "morning"
	TimeAfternoon    TimePreference = "afternoon"
	TimeEvening      TimePreference = "evening"
	TimeRedEye       TimePreference = "red_eye"
	TimeNoPreference TimePreference = "no_preference"
)

type BudgetPriority string

const (
	BudgetCheapest       BudgetPriority = "cheapest"
	BudgetBestValue      BudgetPriority = "best_value"
	BudgetBestExperience BudgetPriority = "best_experience"
	BudgetNoPreference   BudgetPriority = "no_preference"
)

const (
	CabinEconomy        = "economy"
	CabinPremiumEconomy = "premium_economy"
	CabinBusiness       = "business"
	CabinFirst          = "first"
)

// UserPreferences are the per-user scoring inputs owned by the preference store.
type UserPreferences struct {
	UserID            string         `json:"userId"`
	PreferredAirlines []string       `json:"preferredAirlines"`
	AvoidedAirlines   []string       `json:"avoidedAirlines"`
	SeatPreference    string         `json:"seatPreference"`
	DepartureTime     TimePreference `json:"departureTime"`
	BudgetPriority    BudgetPriority `json:"budgetPriority"`
	PreferredCabin    string         `json:"preferredCabin"`
	MaxLayoverMinutes int            `json:"maxLayoverMinutes"`
	MaxBudget         *float64       `json:"maxBudget,omitempty"`
	HomeCity          string         `json:"homeCity,omitempty"`
	HomeAirport       string         `json:"homeAirport,omitempty"`
}

// DefaultPreferences is what a user gets before they have told us anything.
func DefaultPreferences(userID string) UserPreferences {
	return UserPreferences{
		UserID:            userID,
		PreferredAirlines: []string{},
		AvoidedAirlines:   []string{},
		SeatPreference:    "no_preference",
		DepartureTime:     TimeNoPreference,
		BudgetPriority:    BudgetNoPreference,
		PreferredCabin:    CabinEconomy,
		MaxLayoverMinutes: 180,
	}
}

// PreferencesUpdate is a partial update; nil fields are left untouched.
type PreferencesUpdate struct {
	PreferredAirlines *[]string       `json:"preferredAirlines,omitempty"`
	AvoidedAirlines   *[]string       `json:"avoidedAirlines,omitempty"`
	SeatPreference    *string         `json:"seatPreference,omitempty"`
	DepartureTime     *TimePreference `json:"departureTime,omitempty"`
	BudgetPriority    *BudgetPriority `json:"budgetPriority,omitempty"`
	PreferredCabin    *string         `json:"preferredCabin,omitempty"`
	MaxLayoverMinutes *int            `json:"maxLayoverMinutes,omitempty"`
	MaxBudget         *float64        `json:"maxBudget,omitempty"`
	HomeCity          *string         `json:"homeCity,omitempty"`
	HomeAirport       *string         `json:"homeAirport,omitempty"`
}

// Apply returns a copy of p with the non-nil fields of u written over it.
func (u PreferencesUpdate) Apply(p UserPreferences) UserPreferences {
	if u.PreferredAirlines != nil {
		p.PreferredAirlines = append([]string(nil), (*u.PreferredAirlines)...)
	}
	if u.AvoidedAirlines != nil {
		p.AvoidedAirlines = append([]string(nil), (*u.AvoidedAirlines)...)
	}
	if u.SeatPreference != nil {
		p.SeatPreference = *u.SeatPreference
	}
	if u.DepartureTime != nil {
		p.DepartureTime = *u.DepartureTime
	}
	if u.BudgetPriority != nil {
		p.BudgetPriority = *u.BudgetPriority
	}
	if u.PreferredCabin != nil {
		p.PreferredCabin = *u.PreferredCabin
	}
	if u.MaxLayoverMinutes != nil {
		p.MaxLayoverMinutes = *u.MaxLayoverMinutes
	}
	if u.MaxBudget != nil {
		budget := *u.MaxBudget
		p.MaxBudget = &budget
	}
	if u.HomeCity != nil {
		p.HomeCity = *u.HomeCity
	}
	if u.HomeAirport != nil {
		p.HomeAirport = *u.HomeAirport
	}
	return p
}
