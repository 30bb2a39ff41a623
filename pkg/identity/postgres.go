package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateOrganization creates a new organization
func (s *PostgresStore) CreateOrganization(ctx context.Context, name, alias string) (*Organization, error) {
	org := &Organization{
		ID:    uuid.New().String(),
		Name:  name,
		Alias: alias,
	}

	query := `
		INSERT INTO organizations (id, name, alias)
		VALUES ($1, $2, $3)
	`
	if _, err := s.db.ExecContext(ctx, query, org.ID, org.Name, org.Alias); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateName
		}
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	return org, nil
}

// GetOrganization retrieves an organization by id
func (s *PostgresStore) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	query := `SELECT id, name, alias FROM organizations WHERE id = $1`
	return s.scanOrganization(ctx, s.db.QueryRowContext(ctx, query, id))
}

// GetOrganizationByAlias retrieves an organization by alias
func (s *PostgresStore) GetOrganizationByAlias(ctx context.Context, alias string) (*Organization, error) {
	query := `SELECT id, name, alias FROM organizations WHERE alias = $1`
	return s.scanOrganization(ctx, s.db.QueryRowContext(ctx, query, alias))
}

// GetOrganizationByName retrieves an organization by display name
func (s *PostgresStore) GetOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	query := `SELECT id, name, alias FROM organizations WHERE name = $1`
	return s.scanOrganization(ctx, s.db.QueryRowContext(ctx, query, name))
}

// ListOrganizations returns every organization with its attributes
func (s *PostgresStore) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, alias FROM organizations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*Organization
	for rows.Next() {
		org := &Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.Alias); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, org := range orgs {
		attrs, err := s.GetAttributes(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		org.Attributes = attrs
	}
	return orgs, nil
}

// OrganizationForUser resolves the organization a user belongs to
func (s *PostgresStore) OrganizationForUser(ctx context.Context, userID string) (*Organization, error) {
	query := `
		SELECT o.id, o.name, o.alias
		FROM organizations o
		JOIN organization_members m ON m.org_id = o.id
		WHERE m.user_id = $1
	`
	return s.scanOrganization(ctx, s.db.QueryRowContext(ctx, query, userID))
}

func (s *PostgresStore) scanOrganization(ctx context.Context, row *sql.Row) (*Organization, error) {
	org := &Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.Alias)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	attrs, err := s.GetAttributes(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	org.Attributes = attrs

	domains, err := s.getDomains(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	org.Domains = domains

	return org, nil
}

// AddMember adds a user to an organization. Re-adding is a no-op.
func (s *PostgresStore) AddMember(ctx context.Context, orgID, userID string) error {
	query := `
		INSERT INTO organization_members (org_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (org_id, user_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, orgID, userID); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

// GetAttributes returns the attribute bag for an organization
func (s *PostgresStore) GetAttributes(ctx context.Context, orgID string) (map[string][]string, error) {
	query := `SELECT name, value_list FROM organization_attributes WHERE org_id = $1`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[string][]string)
	for rows.Next() {
		var name string
		var values pq.StringArray
		if err := rows.Scan(&name, &values); err != nil {
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		attrs[name] = []string(values)
	}
	return attrs, rows.Err()
}

// SetAttributes overwrites the full attribute bag for an organization
func (s *PostgresStore) SetAttributes(ctx context.Context, orgID string, attrs map[string][]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM organization_attributes WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("failed to clear attributes: %w", err)
	}

	query := `INSERT INTO organization_attributes (org_id, name, value_list) VALUES ($1, $2, $3)`
	for name, values := range attrs {
		if _, err := tx.ExecContext(ctx, query, orgID, name, pq.Array(values)); err != nil {
			return fmt.Errorf("failed to set attribute %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// SetDomains replaces the domain set for an organization
func (s *PostgresStore) SetDomains(ctx context.Context, orgID string, domains []Domain) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM organization_domains WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("failed to clear domains: %w", err)
	}

	query := `INSERT INTO organization_domains (org_id, domain, verified) VALUES ($1, $2, $3)`
	for _, d := range domains {
		if _, err := tx.ExecContext(ctx, query, orgID, d.Name, d.Verified); err != nil {
			return fmt.Errorf("failed to set domain %s: %w", d.Name, err)
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) getDomains(ctx context.Context, orgID string) ([]Domain, error) {
	query := `SELECT domain, verified FROM organization_domains WHERE org_id = $1`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get domains: %w", err)
	}
	defer rows.Close()

	var domains []Domain
	for rows.Next() {
		var d Domain
		if err := rows.Scan(&d.Name, &d.Verified); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// GetUser retrieves a user by id
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `SELECT id, email, first_name, last_name FROM users WHERE id = $1`
	user := &User{}
	var firstName, lastName sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &firstName, &lastName)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	user.FirstName = firstName.String
	user.LastName = lastName.String

	attrs, err := s.getUserAttributes(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Attributes = attrs

	return user, nil
}

func (s *PostgresStore) getUserAttributes(ctx context.Context, userID string) (map[string][]string, error) {
	query := `SELECT name, value_list FROM user_attributes WHERE user_id = $1`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[string][]string)
	for rows.Next() {
		var name string
		var values pq.StringArray
		if err := rows.Scan(&name, &values); err != nil {
			return nil, fmt.Errorf("failed to scan user attribute: %w", err)
		}
		attrs[name] = []string(values)
	}
	return attrs, rows.Err()
}
