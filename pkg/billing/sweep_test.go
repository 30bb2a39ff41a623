package billing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

func TestSweepRepairsPendingOrganization(t *testing.T) {
	store := identity.NewMemoryStore()
	attrs := orgs.NewAttributeService(store)
	gateway := &mockGateway{}
	ctx := context.Background()

	// Subscription bound but plan facts missing: the partial-write
	// shape left behind when the plan lookup failed during
	// verification.
	org, err := store.CreateOrganization(ctx, "alice@example.com", "alias")
	require.NoError(t, err)
	require.NoError(t, store.SetAttributes(ctx, org.ID, map[string][]string{
		orgs.AttrPlanName:     {orgs.PlanFree},
		orgs.AttrPlanID:       {"plan_123"},
		orgs.AttrSubscription: {"sub_1"},
	}))

	gateway.fetchSubscriptionFunc = func(ctx context.Context, id string) (*razorpay.Subscription, error) {
		return &razorpay.Subscription{ID: id, PlanID: "plan_123", Status: razorpay.SubscriptionStatusActive}, nil
	}
	gateway.fetchPlanFunc = func(ctx context.Context, id string) (*razorpay.Plan, error) {
		return &razorpay.Plan{ID: id, Period: "monthly", Item: razorpay.PlanItem{Name: "pro-plan"}}, nil
	}

	sweep := NewSweep(store, attrs, gateway, testLogger())
	require.NoError(t, sweep.Run(ctx))

	sub, err := attrs.Subscription(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, "pro-plan", sub.PlanName)
	assert.Equal(t, orgs.StatusActive, sub.Status)
	assert.Equal(t, "sub_1", sub.SubscriptionID)
	// No call-limit note on the plan: the default is written, not skipped.
	assert.Equal(t, orgs.DefaultCallLimit, sub.CallLimit)
}

func TestSweepSkipsHealthyOrganizations(t *testing.T) {
	store := identity.NewMemoryStore()
	attrs := orgs.NewAttributeService(store)
	gateway := &mockGateway{}
	ctx := context.Background()

	healthy, err := store.CreateOrganization(ctx, "bob@example.com", "alias-b")
	require.NoError(t, err)
	require.NoError(t, store.SetAttributes(ctx, healthy.ID, map[string][]string{
		orgs.AttrPlanName:     {"pro-plan", "active"},
		orgs.AttrSubscription: {"sub_2"},
	}))

	free, err := store.CreateOrganization(ctx, "carol@example.com", "alias-c")
	require.NoError(t, err)
	require.NoError(t, store.SetAttributes(ctx, free.ID, orgs.DefaultSubscriptionAttributes().ToMap()))

	var fetches int
	gateway.fetchSubscriptionFunc = func(ctx context.Context, id string) (*razorpay.Subscription, error) {
		fetches++
		return nil, errors.New("should not be called")
	}

	sweep := NewSweep(store, attrs, gateway, testLogger())
	require.NoError(t, sweep.Run(ctx))
	assert.Zero(t, fetches)
}

func TestSweepIgnoresInactiveGatewaySubscription(t *testing.T) {
	store := identity.NewMemoryStore()
	attrs := orgs.NewAttributeService(store)
	gateway := &mockGateway{}
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, "alice@example.com", "alias")
	require.NoError(t, err)
	require.NoError(t, store.SetAttributes(ctx, org.ID, map[string][]string{
		orgs.AttrPlanName:     {orgs.PlanFree},
		orgs.AttrSubscription: {"sub_1"},
	}))

	gateway.fetchSubscriptionFunc = func(ctx context.Context, id string) (*razorpay.Subscription, error) {
		return &razorpay.Subscription{ID: id, Status: razorpay.SubscriptionStatusCreated}, nil
	}

	sweep := NewSweep(store, attrs, gateway, testLogger())
	require.NoError(t, sweep.Run(ctx))

	sub, err := attrs.Subscription(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, orgs.PlanFree, sub.PlanName)
}
