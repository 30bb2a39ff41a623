package billing

import (
	"context"
	"fmt"

	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

// Reconciler completes the second phase of the subscribe flow. A
// payment callback is untrusted until its signature checks out, and the
// attribute bag only ever reflects facts re-fetched from the gateway,
// never claims from the callback body.
type Reconciler struct {
	attrs     *orgs.AttributeService
	gateway   Gateway
	keySecret string
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewReconciler creates a Reconciler. keySecret is the gateway API key
// secret used for signature verification. metrics may be nil.
func NewReconciler(attrs *orgs.AttributeService, gateway Gateway, keySecret string, logger *observability.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		attrs:     attrs,
		gateway:   gateway,
		keySecret: keySecret,
		logger:    logger,
		metrics:   metrics,
	}
}

// VerifyAndApply checks the callback signature and, when valid, binds
// the subscription to the organization using gateway-fetched facts.
//
// The return contract separates trust from availability: verified is
// false only for a bad signature, in which case nothing is written and
// err is nil. A valid signature with a gateway fetch failure returns
// (true, err) so the caller can surface the fetch problem; a valid
// signature whose subscription the gateway does not know writes nothing
// and returns (true, nil).
func (r *Reconciler) VerifyAndApply(ctx context.Context, orgID string, req VerificationRequest) (verified bool, err error) {
	if !razorpay.VerifySubscriptionSignature(req.PaymentID, req.SubscriptionID, req.Signature, r.keySecret) {
		r.logger.WithField("org_id", orgID).Warn("payment signature verification failed")
		return false, nil
	}

	sub, err := r.gateway.FetchSubscription(ctx, req.SubscriptionID)
	if err != nil {
		return true, fmt.Errorf("unable to fetch subscription details: %w", err)
	}
	if sub == nil {
		r.logger.WithField("org_id", orgID).Warn("verified subscription not found at gateway")
		return true, nil
	}

	patch := map[string][]string{
		orgs.AttrSubscription: {sub.ID},
		orgs.AttrPlanID:       {sub.PlanID},
	}

	// Plan details enrich the bag but their absence does not block the
	// binding.
	plan, planErr := r.gateway.FetchPlan(ctx, sub.PlanID)
	if planErr != nil || plan == nil {
		r.logger.WithField("org_id", orgID).WithError(planErr).Warn("subscription bound without plan details")
		if err := r.attrs.Merge(ctx, orgID, patch); err != nil {
			return true, err
		}
		r.countTransition()
		return true, nil
	}

	patch[orgs.AttrPlanName] = []string{plan.Item.Name, orgs.StatusActive}
	patch[orgs.AttrBillingCycle] = []string{plan.Period}
	// A plan without the call-limit note falls back to the default; the
	// stale limit from a previous plan must not survive the bind.
	limit := plan.Notes[razorpay.PlanCallLimitNote]
	if limit == "" {
		limit = orgs.DefaultCallLimit
	}
	patch[orgs.AttrCallLimit] = []string{limit}

	if err := r.attrs.Merge(ctx, orgID, patch); err != nil {
		return true, err
	}

	r.logger.WithField("org_id", orgID).Infof("subscription %s activated on plan %s", sub.ID, plan.Item.Name)
	r.countTransition()
	return true, nil
}

func (r *Reconciler) countTransition() {
	if r.metrics != nil {
		r.metrics.SubscriptionTransitionsTotal.WithLabelValues("verify", "ok").Inc()
	}
}
