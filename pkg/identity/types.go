package identity

// Organization represents a tenant-like grouping entity owned by the
// identity store. This service only creates organizations and manages
// their attribute bag; it never deletes them.
type Organization struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Alias      string              `json:"alias"`
	Domains    []Domain            `json:"domains,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Domain is a DNS domain bound to an organization.
type Domain struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// User is the slice of the identity-store user this service reads.
type User struct {
	ID         string              `json:"id"`
	Email      string              `json:"email"`
	FirstName  string              `json:"first_name,omitempty"`
	LastName   string              `json:"last_name,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Realm carries the realm-level feature flags relevant to provisioning.
type Realm struct {
	Name                 string `json:"name"`
	OrganizationsEnabled bool   `json:"organizations_enabled"`
}
