package store

import (
	"context"
	"sort"
	"sync"

	"travel-workers/internal/models"

	"github.com/google/uuid"
)

// MemoryPreferenceStore serves single-node runs and tests.
type MemoryPreferenceStore struct {
	mu    sync.Mutex
	prefs map[string]models.UserPreferences
}

func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]models.UserPreferences)}
}

func (s *MemoryPreferenceStore) Get(_ context.Context, userID string) (models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.prefs[userID]; ok {
		return p, nil
	}
	return models.DefaultPreferences(userID), nil
}

func (s *MemoryPreferenceStore) Update(_ context.Context, userID string, update models.PreferencesUpdate) (models.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.prefs[userID]
	if !ok {
		current = models.DefaultPreferences(userID)
	}
	next := update.Apply(current)
	s.prefs[userID] = next
	return next, nil
}

type MemoryDirectory struct {
	mu    sync.Mutex
	users map[string]models.User
	orgs  map[string]string
}

func NewMemoryDirectory(users ...models.User) *MemoryDirectory {
	d := &MemoryDirectory{
		users: make(map[string]models.User),
		orgs:  make(map[string]string),
	}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *MemoryDirectory) UsersInOrganization(_ context.Context, orgID string) ([]models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []models.User
	for _, u := range d.users {
		if u.OrganizationID == orgID {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		return nil, ErrOrganizationNotFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *MemoryDirectory) GetUser(_ context.Context, userID string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *MemoryDirectory) SeedOrCreateDemoOrg(ctx context.Context, leadUserID string) (models.Organization, error) {
	d.mu.Lock()
	lead, ok := d.users[leadUserID]
	if ok && lead.OrganizationID != "" {
		orgID := lead.OrganizationID
		d.mu.Unlock()
		users, err := d.UsersInOrganization(ctx, orgID)
		if err != nil {
			return models.Organization{}, err
		}
		org := models.Organization{ID: orgID, Name: d.orgName(orgID)}
		for _, u := range users {
			org.MemberIDs = append(org.MemberIDs, u.ID)
		}
		return org, nil
	}
	defer d.mu.Unlock()

	org := models.Organization{ID: uuid.NewString(), Name: demoOrgName}
	d.orgs[org.ID] = org.Name

	if !ok {
		lead = models.User{ID: leadUserID, Name: "You"}
	}
	lead.OrganizationID = org.ID
	d.users[leadUserID] = lead
	org.MemberIDs = append(org.MemberIDs, leadUserID)

	for _, m := range demoMembers {
		u := models.User{
			ID:             uuid.NewString(),
			Name:           m.Name,
			Email:          m.Email,
			OrganizationID: org.ID,
			HomeCity:       m.HomeCity,
			HomeAirport:    m.HomeAirport,
		}
		d.users[u.ID] = u
		org.MemberIDs = append(org.MemberIDs, u.ID)
	}
	return org, nil
}

func (d *MemoryDirectory) orgName(orgID string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orgs[orgID]
}
