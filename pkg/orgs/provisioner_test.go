package orgs

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func newTestProvisioner() (*Provisioner, *identity.MemoryStore) {
	store := identity.NewMemoryStore()
	return NewProvisioner(store, NewAttributeService(store), testLogger(), nil), store
}

func TestEnsureOrganizationFirstLogin(t *testing.T) {
	p, store := newTestProvisioner()
	ctx := context.Background()

	user := identity.User{ID: "u1", Email: "alice@example.com"}
	store.AddUser(&identity.User{ID: "u1", Email: "alice@example.com"})

	result, err := p.EnsureOrganization(ctx, user)
	require.NoError(t, err)
	require.NotNil(t, result.Org)
	assert.True(t, result.Created)

	assert.Equal(t, "alice@example.com", result.Org.Name)
	assert.NotEmpty(t, result.Org.Alias)
	assert.NotEqual(t, "alice@example.com", result.Org.Alias)

	require.Len(t, result.Org.Domains, 1)
	assert.Equal(t, "example.com", result.Org.Domains[0].Name)
	assert.True(t, result.Org.Domains[0].Verified)

	sub := ParseSubscriptionAttributes(result.Org.Attributes)
	assert.Equal(t, PlanFree, sub.PlanName)
	assert.Equal(t, DefaultBillingCycle, sub.BillingCycle)
	assert.Equal(t, DefaultCallLimit, sub.CallLimit)
	assert.Equal(t, "", sub.SubscriptionID)

	assert.Equal(t, []string{"u1"}, store.Members(result.Org.ID))
}

func TestEnsureOrganizationIdempotent(t *testing.T) {
	p, store := newTestProvisioner()
	ctx := context.Background()
	user := identity.User{ID: "u1", Email: "alice@example.com"}

	first, err := p.EnsureOrganization(ctx, user)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := p.EnsureOrganization(ctx, user)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Org.ID, second.Org.ID)

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 1)
	assert.Equal(t, []string{"u1"}, store.Members(first.Org.ID))
}

func TestEnsureOrganizationDuplicateNameRace(t *testing.T) {
	p, store := newTestProvisioner()
	ctx := context.Background()

	// The winner created the organization under the same display name
	// with the email as its alias.
	winner, err := store.CreateOrganization(ctx, "alice@example.com", "alice@example.com")
	require.NoError(t, err)

	result, err := p.EnsureOrganization(ctx, identity.User{ID: "u2", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotNil(t, result.Org)
	assert.False(t, result.Created)
	assert.Equal(t, winner.ID, result.Org.ID)
	assert.Contains(t, store.Members(winner.ID), "u2")
}

func TestEnsureOrganizationDuplicateNameFallsBackToNameLookup(t *testing.T) {
	p, store := newTestProvisioner()
	ctx := context.Background()

	// Winner used a random token alias, so only the name lookup finds it.
	winner, err := store.CreateOrganization(ctx, "alice@example.com", "random-token")
	require.NoError(t, err)

	result, err := p.EnsureOrganization(ctx, identity.User{ID: "u2", Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotNil(t, result.Org)
	assert.Equal(t, winner.ID, result.Org.ID)
}

func TestOnUserAddedFeatureDisabled(t *testing.T) {
	p, store := newTestProvisioner()
	ctx := context.Background()

	p.OnUserAdded(ctx, UserEvent{
		Realm: identity.Realm{Name: "master", OrganizationsEnabled: false},
		User:  identity.User{ID: "u1", Email: "alice@example.com"},
	})

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Empty(t, orgs)
}

func TestOnUserAddedSwallowsErrors(t *testing.T) {
	p, _ := newTestProvisioner()
	ctx := context.Background()

	// A user with no email still cannot abort the surrounding flow.
	assert.NotPanics(t, func() {
		p.OnUserAdded(ctx, UserEvent{
			Realm: identity.Realm{Name: "master", OrganizationsEnabled: true},
			User:  identity.User{ID: "u1"},
		})
	})
}

type failingStore struct {
	identity.Store
}

func (s *failingStore) OrganizationForUser(ctx context.Context, userID string) (*identity.Organization, error) {
	return nil, errors.New("store unavailable")
}

func TestProvisionerCounters(t *testing.T) {
	ctx := context.Background()

	t.Run("created", func(t *testing.T) {
		store := identity.NewMemoryStore()
		metrics := observability.NewMetrics(nil)
		p := NewProvisioner(store, NewAttributeService(store), testLogger(), metrics)

		_, err := p.EnsureOrganization(ctx, identity.User{ID: "u1", Email: "alice@example.com"})
		require.NoError(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OrgsProvisionedTotal))
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ProvisioningRacesTotal))
	})

	t.Run("duplicate race", func(t *testing.T) {
		store := identity.NewMemoryStore()
		metrics := observability.NewMetrics(nil)
		p := NewProvisioner(store, NewAttributeService(store), testLogger(), metrics)

		_, err := store.CreateOrganization(ctx, "alice@example.com", "alice@example.com")
		require.NoError(t, err)

		_, err = p.EnsureOrganization(ctx, identity.User{ID: "u2", Email: "alice@example.com"})
		require.NoError(t, err)

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProvisioningRacesTotal))
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.OrgsProvisionedTotal))
	})

	t.Run("swallowed error", func(t *testing.T) {
		store := identity.NewMemoryStore()
		metrics := observability.NewMetrics(nil)
		p := NewProvisioner(&failingStore{store}, NewAttributeService(store), testLogger(), metrics)

		p.OnUserAdded(ctx, UserEvent{
			Realm: identity.Realm{Name: "master", OrganizationsEnabled: true},
			User:  identity.User{ID: "u1", Email: "alice@example.com"},
		})

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProvisioningErrorsTotal))
	})
}

func TestDomainsForEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		want  []identity.Domain
	}{
		{"normal", "alice@example.com", []identity.Domain{{Name: "example.com", Verified: true}}},
		{"plus tag", "alice+dev@example.com", []identity.Domain{{Name: "example.com", Verified: true}}},
		{"no at sign", "alice.example.com", nil},
		{"trailing at", "alice@", nil},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domainsForEmail(tt.email))
		})
	}
}
