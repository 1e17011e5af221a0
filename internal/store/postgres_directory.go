package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"travel-workers/internal/common/logger"
	"travel-workers/internal/models"

	"github.com/google/uuid"
)

const (
	usersInOrgSQL = `SELECT id, name, email, phone, organization_id, home_city, home_airport
FROM users WHERE organization_id = $1 ORDER BY name`

	getUserSQL = `SELECT id, name, email, phone, COALESCE(organization_id::text, ''), home_city, home_airport
FROM users WHERE id = $1`

	insertOrgSQL = `INSERT INTO organizations (id, name) VALUES ($1, $2)`

	upsertLeadSQL = `INSERT INTO users (id, name, organization_id) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET organization_id = EXCLUDED.organization_id`

	insertMemberSQL = `INSERT INTO users (id, name, email, organization_id, home_city, home_airport)
VALUES ($1, $2, $3, $4, $5, $6)`
)

type PostgresDirectory struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresDirectory(db *sql.DB, log logger.Logger) *PostgresDirectory {
	return &PostgresDirectory{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "directory"}),
	}
}

func (d *PostgresDirectory) UsersInOrganization(ctx context.Context, orgID string) ([]models.User, error) {
	rows, err := d.db.QueryContext(ctx, usersInOrgSQL, orgID)
	if err != nil {
		return nil, fmt.Errorf("query users of %s: %w", orgID, err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.OrganizationID, &u.HomeCity, &u.HomeAirport); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrOrganizationNotFound
	}
	return users, nil
}

func (d *PostgresDirectory) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := d.db.QueryRowContext(ctx, getUserSQL, userID).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.OrganizationID, &u.HomeCity, &u.HomeAirport,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user %s: %w", userID, err)
	}
	return &u, nil
}

func (d *PostgresDirectory) SeedOrCreateDemoOrg(ctx context.Context, leadUserID string) (models.Organization, error) {
	lead, err := d.GetUser(ctx, leadUserID)
	switch {
	case err == nil && lead.OrganizationID != "":
		return d.existingOrg(ctx, lead.OrganizationID)
	case err != nil && !errors.Is(err, ErrUserNotFound):
		return models.Organization{}, err
	}

	leadName := "You"
	if lead != nil && lead.Name != "" {
		leadName = lead.Name
	}

	org := models.Organization{ID: uuid.NewString(), Name: demoOrgName}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Organization{}, fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertOrgSQL, org.ID, org.Name); err != nil {
		return models.Organization{}, fmt.Errorf("insert organization: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertLeadSQL, leadUserID, leadName, org.ID); err != nil {
		return models.Organization{}, fmt.Errorf("attach lead user: %w", err)
	}
	org.MemberIDs = append(org.MemberIDs, leadUserID)

	for _, m := range demoMembers {
		id := uuid.NewString()
		if _, err := tx.ExecContext(ctx, insertMemberSQL, id, m.Name, m.Email, org.ID, m.HomeCity, m.HomeAirport); err != nil {
			return models.Organization{}, fmt.Errorf("insert demo member %s: %w", m.Name, err)
		}
		org.MemberIDs = append(org.MemberIDs, id)
	}

	if err := tx.Commit(); err != nil {
		return models.Organization{}, fmt.Errorf("commit seed: %w", err)
	}

	d.logger.Info("seeded demo organization", map[string]interface{}{
		"organizationId": org.ID,
		"leadUserId":     leadUserID,
		"members":        len(org.MemberIDs),
	})
	return org, nil
}

func (d *PostgresDirectory) existingOrg(ctx context.Context, orgID string) (models.Organization, error) {
	users, err := d.UsersInOrganization(ctx, orgID)
	if err != nil {
		return models.Organization{}, err
	}
	org := models.Organization{ID: orgID}
	for _, u := range users {
		org.MemberIDs = append(org.MemberIDs, u.ID)
	}
	return org, nil
}
