package auth

// RoleSet is the "roles" object inside realm_access / resource_access
// token claims.
type RoleSet struct {
	Roles []string `json:"roles"`
}

// Claims is the slice of the identity provider's access token this
// service reads. Token introspection and signature checks happen in the
// verifier; handlers only see these decoded claims.
type Claims struct {
	Subject        string             `json:"sub"`
	Email          string             `json:"email"`
	GivenName      string             `json:"given_name"`
	FamilyName     string             `json:"family_name"`
	RealmAccess    RoleSet            `json:"realm_access"`
	ResourceAccess map[string]RoleSet `json:"resource_access"`
}

// Client names and roles checked by this service.
const (
	AccountClient         = "account"
	RealmManagementClient = "realm-management"

	RoleManageAccount = "manage-account"
	RoleViewProfile   = "view-profile"

	RoleQueryUsers  = "query-users"
	RoleViewUsers   = "view-users"
	RoleManageUsers = "manage-users"
)

// AuthContext carries the authenticated caller through a request.
type AuthContext struct {
	UserID    string
	Email     string
	FirstName string
	LastName  string

	resourceAccess map[string]RoleSet
}

// NewAuthContext builds an AuthContext from verified token claims
func NewAuthContext(claims *Claims) *AuthContext {
	return &AuthContext{
		UserID:         claims.Subject,
		Email:          claims.Email,
		FirstName:      claims.GivenName,
		LastName:       claims.FamilyName,
		resourceAccess: claims.ResourceAccess,
	}
}

// HasClientRole reports whether the token grants the role on the client
func (c *AuthContext) HasClientRole(client, role string) bool {
	for _, r := range c.resourceAccess[client].Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanManageAccount reports whether the caller holds both account roles
// required for the self-service subscription endpoints.
func (c *AuthContext) CanManageAccount() bool {
	return c.HasClientRole(AccountClient, RoleManageAccount) &&
		c.HasClientRole(AccountClient, RoleViewProfile)
}

// CanQueryUsers reports the realm-management query-users role
func (c *AuthContext) CanQueryUsers() bool {
	return c.HasClientRole(RealmManagementClient, RoleQueryUsers)
}

// CanViewUsers reports the realm-management view-users role
func (c *AuthContext) CanViewUsers() bool {
	return c.HasClientRole(RealmManagementClient, RoleViewUsers)
}

// CanManageUsers reports the realm-management manage-users role
func (c *AuthContext) CanManageUsers() bool {
	return c.HasClientRole(RealmManagementClient, RoleManageUsers)
}

// FullName joins first and last name for billing documents
func (c *AuthContext) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}
