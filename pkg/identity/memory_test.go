package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreOrganizationLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, "alice@example.com", "alias-1")
	require.NoError(t, err)

	_, err = store.CreateOrganization(ctx, "alice@example.com", "alias-2")
	assert.True(t, IsDuplicateName(err))

	byID, err := store.GetOrganization(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org.ID, byID.ID)

	byAlias, err := store.GetOrganizationByAlias(ctx, "alias-1")
	require.NoError(t, err)
	assert.Equal(t, org.ID, byAlias.ID)

	byName, err := store.GetOrganizationByName(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, org.ID, byName.ID)

	_, err = store.GetOrganization(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestMemoryStoreMembership(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, "acme", "acme-alias")
	require.NoError(t, err)

	_, err = store.OrganizationForUser(ctx, "u1")
	assert.True(t, IsNotFound(err))

	require.NoError(t, store.AddMember(ctx, org.ID, "u1"))
	require.NoError(t, store.AddMember(ctx, org.ID, "u1"))

	found, err := store.OrganizationForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, org.ID, found.ID)
	assert.Equal(t, []string{"u1"}, store.Members(org.ID))
}

func TestMemoryStoreAttributeIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, "acme", "acme-alias")
	require.NoError(t, err)

	require.NoError(t, store.SetAttributes(ctx, org.ID, map[string][]string{"k": {"v"}}))

	attrs, err := store.GetAttributes(ctx, org.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	attrs["k"][0] = "mutated"
	attrs["new"] = []string{"x"}

	fresh, err := store.GetAttributes(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"v"}, fresh["k"])
	assert.NotContains(t, fresh, "new")
}

func TestMemoryStoreListOrganizations(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.CreateOrganization(ctx, "a", "a1")
	require.NoError(t, err)
	_, err = store.CreateOrganization(ctx, "b", "b1")
	require.NoError(t, err)

	orgs, err := store.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Len(t, orgs, 2)
}
