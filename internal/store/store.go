// Package store holds the preference store and organization directory.
package store

import (
	"context"
	"errors"
	"strings"

	"travel-workers/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrOrganizationNotFound = errors.New("organization not found")
)

// PreferenceStore is keyed by user id. Get returns defaults for unknown users.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (models.UserPreferences, error)
	Update(ctx context.Context, userID string, update models.PreferencesUpdate) (models.UserPreferences, error)
}

type Directory interface {
	UsersInOrganization(ctx context.Context, orgID string) ([]models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	// SeedOrCreateDemoOrg returns the lead user's organization, creating a demo
	// team around them when they have none.
	SeedOrCreateDemoOrg(ctx context.Context, leadUserID string) (models.Organization, error)
}

type demoMember struct {
	Name        string
	Email       string
	HomeCity    string
	HomeAirport string
}

// demoMembers seed a new demo organization. Home airports are distinct.
var demoMembers = []demoMember{
	{Name: "Priya Shah", Email: "priya.shah@example.com", HomeCity: "San Francisco", HomeAirport: "SFO"},
	{Name: "Marcus Lee", Email: "marcus.lee@example.com", HomeCity: "Chicago", HomeAirport: "ORD"},
	{Name: "Elena Rossi", Email: "elena.rossi@example.com", HomeCity: "New York", HomeAirport: "JFK"},
	{Name: "Sam Carter", Email: "sam.carter@example.com", HomeCity: "Austin", HomeAirport: "AUS"},
}

const demoOrgName = "Demo Team"

func joinCodes(codes []string) string {
	clean := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			clean = append(clean, c)
		}
	}
	return strings.Join(clean, ",")
}

func splitCodes(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
