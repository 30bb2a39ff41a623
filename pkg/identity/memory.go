package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store implementation used in tests and
// single-node development setups.
type MemoryStore struct {
	mu      sync.RWMutex
	orgs    map[string]*Organization
	members map[string]map[string]bool // orgID -> userID set
	users   map[string]*User
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:    make(map[string]*Organization),
		members: make(map[string]map[string]bool),
		users:   make(map[string]*User),
	}
}

// AddUser seeds a user into the store
func (s *MemoryStore) AddUser(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// CreateOrganization creates a new organization
func (s *MemoryStore) CreateOrganization(ctx context.Context, name, alias string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, org := range s.orgs {
		if org.Name == name {
			return nil, ErrDuplicateName
		}
	}

	org := &Organization{
		ID:         uuid.New().String(),
		Name:       name,
		Alias:      alias,
		Attributes: make(map[string][]string),
	}
	s.orgs[org.ID] = org
	s.members[org.ID] = make(map[string]bool)
	return copyOrg(org), nil
}

// GetOrganization retrieves an organization by id
func (s *MemoryStore) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyOrg(org), nil
}

// GetOrganizationByAlias retrieves an organization by alias
func (s *MemoryStore) GetOrganizationByAlias(ctx context.Context, alias string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, org := range s.orgs {
		if org.Alias == alias {
			return copyOrg(org), nil
		}
	}
	return nil, ErrNotFound
}

// GetOrganizationByName retrieves an organization by display name
func (s *MemoryStore) GetOrganizationByName(ctx context.Context, name string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, org := range s.orgs {
		if org.Name == name {
			return copyOrg(org), nil
		}
	}
	return nil, ErrNotFound
}

// ListOrganizations returns every organization
func (s *MemoryStore) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orgs := make([]*Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		orgs = append(orgs, copyOrg(org))
	}
	return orgs, nil
}

// OrganizationForUser resolves the organization a user belongs to
func (s *MemoryStore) OrganizationForUser(ctx context.Context, userID string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for orgID, users := range s.members {
		if users[userID] {
			return copyOrg(s.orgs[orgID]), nil
		}
	}
	return nil, ErrNotFound
}

// AddMember adds a user to an organization
func (s *MemoryStore) AddMember(ctx context.Context, orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, ok := s.members[orgID]
	if !ok {
		return ErrNotFound
	}
	users[userID] = true
	return nil
}

// Members returns the member user ids of an organization
func (s *MemoryStore) Members(orgID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.members[orgID] {
		ids = append(ids, id)
	}
	return ids
}

// GetAttributes returns the attribute bag for an organization
func (s *MemoryStore) GetAttributes(ctx context.Context, orgID string) (map[string][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[orgID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAttrs(org.Attributes), nil
}

// SetAttributes overwrites the full attribute bag for an organization
func (s *MemoryStore) SetAttributes(ctx context.Context, orgID string, attrs map[string][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[orgID]
	if !ok {
		return ErrNotFound
	}
	org.Attributes = copyAttrs(attrs)
	return nil
}

// SetDomains replaces the domain set for an organization
func (s *MemoryStore) SetDomains(ctx context.Context, orgID string, domains []Domain) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.orgs[orgID]
	if !ok {
		return ErrNotFound
	}
	org.Domains = append([]Domain(nil), domains...)
	return nil
}

// GetUser retrieves a user by id
func (s *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *user
	u.Attributes = copyAttrs(user.Attributes)
	return &u, nil
}

func copyOrg(org *Organization) *Organization {
	c := *org
	c.Attributes = copyAttrs(org.Attributes)
	c.Domains = append([]Domain(nil), org.Domains...)
	return &c
}

func copyAttrs(attrs map[string][]string) map[string][]string {
	c := make(map[string][]string, len(attrs))
	for k, v := range attrs {
		c[k] = append([]string(nil), v...)
	}
	return c
}
