// internal/models/user.go
package models

type User struct {
	ID             string `json:"id" db:"id"`
	Name           string `json:"name" db:"name"`
	Email          string `json:"email,omitempty" db:"email"`
	Phone          string `json:"phone,omitempty" db:"phone"`
	OrganizationID string `json:"organizationId,omitempty" db:"organization_id"`
	HomeCity       string `json:"homeCity,omitempty" db:"home_city"`
	HomeAirport    string `json:"homeAirport,omitempty" db:"home_airport"`
}

// Organization is the result of seeding or resolving a team roster.
type Organization struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}
