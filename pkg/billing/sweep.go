package billing

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

// Sweep scans for organizations stuck between the two subscribe phases:
// the gateway holds an active subscription bound to the organization,
// but the attribute bag still shows the free plan because the payment
// verification callback never arrived. Each hit is re-reconciled from
// gateway facts.
type Sweep struct {
	store   identity.Store
	attrs   *orgs.AttributeService
	gateway Gateway
	logger  *observability.Logger

	runTimeout time.Duration
}

// NewSweep creates a Sweep
func NewSweep(store identity.Store, attrs *orgs.AttributeService, gateway Gateway, logger *observability.Logger) *Sweep {
	return &Sweep{
		store:      store,
		attrs:      attrs,
		gateway:    gateway,
		logger:     logger,
		runTimeout: 5 * time.Minute,
	}
}

// Schedule registers the sweep on a cron scheduler. The schedule string
// uses the standard five-field cron syntax.
func (s *Sweep) Schedule(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.runTimeout)
		defer cancel()
		if err := s.Run(ctx); err != nil {
			s.logger.WithError(err).Error("subscription sweep failed")
		}
	})
}

// Run performs one sweep over all organizations. Per-organization
// failures are logged and skipped so one bad record cannot stall the
// rest of the scan.
func (s *Sweep) Run(ctx context.Context) error {
	organizations, err := s.store.ListOrganizations(ctx)
	if err != nil {
		return err
	}

	var repaired int
	for _, org := range organizations {
		sub := orgs.ParseSubscriptionAttributes(org.Attributes)
		if !sub.Free() || !sub.HasSubscription() {
			continue
		}

		if err := s.reconcileOne(ctx, org.ID, sub.SubscriptionID); err != nil {
			s.logger.WithError(err).Warnf("sweep reconcile failed for organization %s", org.ID)
			continue
		}
		repaired++
	}

	if repaired > 0 {
		s.logger.Infof("subscription sweep repaired %d organizations", repaired)
	}
	return nil
}

// reconcileOne re-applies gateway facts for one pending organization.
// Only an active gateway subscription triggers a write; created or
// cancelled subscriptions stay pending for the normal flows.
func (s *Sweep) reconcileOne(ctx context.Context, orgID, subscriptionID string) error {
	sub, err := s.gateway.FetchSubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub == nil || sub.Status != razorpay.SubscriptionStatusActive {
		return nil
	}

	patch := map[string][]string{
		orgs.AttrSubscription: {sub.ID},
		orgs.AttrPlanID:       {sub.PlanID},
	}
	plan, err := s.gateway.FetchPlan(ctx, sub.PlanID)
	if err == nil && plan != nil {
		patch[orgs.AttrPlanName] = []string{plan.Item.Name, orgs.StatusActive}
		patch[orgs.AttrBillingCycle] = []string{plan.Period}
		limit := plan.Notes[razorpay.PlanCallLimitNote]
		if limit == "" {
			limit = orgs.DefaultCallLimit
		}
		patch[orgs.AttrCallLimit] = []string{limit}
	}
	return s.attrs.Merge(ctx, orgID, patch)
}
