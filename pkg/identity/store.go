package identity

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateName indicates an organization with the same name
	// already exists. Callers are expected to fall back to a lookup.
	ErrDuplicateName = errors.New("organization name already exists")
)

// Store defines the narrow view of the identity store this service needs.
// Attribute writes replace whole value lists per key and are not
// transactional across callers; see attrs.Service for serialization.
type Store interface {
	// CreateOrganization creates an organization with the given display
	// name and alias. Returns ErrDuplicateName on a name conflict.
	CreateOrganization(ctx context.Context, name, alias string) (*Organization, error)

	// GetOrganization returns the organization by id, or ErrNotFound.
	GetOrganization(ctx context.Context, id string) (*Organization, error)

	// GetOrganizationByAlias returns the organization by alias, or ErrNotFound.
	GetOrganizationByAlias(ctx context.Context, alias string) (*Organization, error)

	// GetOrganizationByName returns the organization by display name, or
	// ErrNotFound. Display names are unique.
	GetOrganizationByName(ctx context.Context, name string) (*Organization, error)

	// ListOrganizations returns every organization. Used by the
	// reconcile sweep; tenant counts are small enough for a full scan.
	ListOrganizations(ctx context.Context) ([]*Organization, error)

	// OrganizationForUser resolves the organization a user is a member
	// of, or ErrNotFound when the user has none.
	OrganizationForUser(ctx context.Context, userID string) (*Organization, error)

	// AddMember adds the user to the organization. Adding an existing
	// member is a no-op.
	AddMember(ctx context.Context, orgID, userID string) error

	// GetAttributes returns the full attribute bag for an organization.
	GetAttributes(ctx context.Context, orgID string) (map[string][]string, error)

	// SetAttributes overwrites the full attribute bag for an organization.
	SetAttributes(ctx context.Context, orgID string, attrs map[string][]string) error

	// SetDomains replaces the domain set bound to an organization.
	SetDomains(ctx context.Context, orgID string, domains []Domain) error

	// GetUser returns the user by id, or ErrNotFound.
	GetUser(ctx context.Context, id string) (*User, error)
}

// IsNotFound reports whether err is the store's ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateName reports whether err is the store's ErrDuplicateName.
func IsDuplicateName(err error) bool {
	return errors.Is(err, ErrDuplicateName)
}
