package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
	"github.com/latitudexlabs/keycloak-events/pkg/orgs"
	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

// Subscription creation parameters sent to the gateway. The count keeps
// paid subscriptions open-ended; the gateway notifies the customer
// directly.
const (
	subscriptionTotalCount = 999
	subscriptionQuantity   = 1
)

// Service owns the subscription legality rules. All subscription state
// lives in the organization's attribute bag; the gateway holds the
// canonical records.
type Service struct {
	store   identity.Store
	attrs   *orgs.AttributeService
	gateway Gateway
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a billing Service. metrics may be nil.
func NewService(store identity.Store, attrs *orgs.AttributeService, gateway Gateway, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		attrs:   attrs,
		gateway: gateway,
		logger:  logger,
		metrics: metrics,
	}
}

func (s *Service) countTransition(operation string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	s.metrics.SubscriptionTransitionsTotal.WithLabelValues(operation, outcome).Inc()
}

// CreateSubscription starts the two-phase subscribe flow: it validates
// the transition, creates the gateway subscription bound to the
// organization via notes, and returns the new subscription id. The
// local attributes are untouched until the payment is verified.
func (s *Service) CreateSubscription(ctx context.Context, orgID, planID string) (subscriptionID string, err error) {
	defer func() { s.countTransition("create", err) }()

	sub, err := s.attrs.Subscription(ctx, orgID)
	if err != nil {
		return "", err
	}

	if sub.Locked() {
		return "", &TransitionError{Reason: fmt.Sprintf("cannot create normal subscription for %s", sub.PlanName)}
	}
	if !sub.Free() {
		return "", &TransitionError{Reason: fmt.Sprintf("organization already has an ongoing subscription to %s", sub.PlanName)}
	}

	created, err := s.gateway.CreateSubscription(ctx, &razorpay.CreateSubscriptionRequest{
		PlanID:         planID,
		TotalCount:     subscriptionTotalCount,
		Quantity:       subscriptionQuantity,
		CustomerNotify: 1,
		Notes:          map[string]string{"org_id": orgID},
	})
	if err != nil {
		return "", fmt.Errorf("subscription creation failed: %w", err)
	}

	s.logger.Debugf("created gateway subscription %s for organization %s", created.ID, orgID)
	return created.ID, nil
}

// CancelSubscription cancels the organization's gateway subscription.
// All five attribute keys reset to the free-plan defaults if and only
// if the gateway reports the cancelled status; the gateway-reported
// status is returned either way.
func (s *Service) CancelSubscription(ctx context.Context, orgID string) (status string, err error) {
	defer func() { s.countTransition("cancel", err) }()

	sub, err := s.attrs.Subscription(ctx, orgID)
	if err != nil {
		return "", err
	}

	if sub.Locked() || sub.Free() {
		name := sub.PlanName
		if name == "" {
			name = orgs.PlanFree
		}
		return "", &TransitionError{Reason: fmt.Sprintf("cannot cancel subscription for %s", name)}
	}
	if !sub.HasSubscription() {
		return "", ErrNoSubscription
	}

	cancelled, err := s.gateway.CancelSubscription(ctx, sub.SubscriptionID, false)
	if err != nil {
		return "", fmt.Errorf("subscription cancel failed: %w", err)
	}

	if strings.EqualFold(cancelled.Status, razorpay.SubscriptionStatusCancelled) {
		if err := s.attrs.Merge(ctx, orgID, orgs.DefaultSubscriptionAttributes().ToMap()); err != nil {
			return "", err
		}
		s.logger.Debugf("reset subscription attributes for organization %s", orgID)
	}

	return cancelled.Status, nil
}

// SetPlanStatus is the administrative status override. It bypasses the
// lock check, replaces only the status element of the plan-name
// attribute, and leaves the plan name itself untouched.
func (s *Service) SetPlanStatus(ctx context.Context, orgID, status string) error {
	if !strings.EqualFold(status, orgs.StatusActive) && !strings.EqualFold(status, orgs.StatusDisabled) {
		return ErrInvalidStatus
	}

	sub, err := s.attrs.Subscription(ctx, orgID)
	if err != nil {
		return err
	}

	// An absent plan name means the organization predates attribute
	// defaulting; treat it as the free plan.
	planName := sub.PlanName
	if planName == "" {
		planName = orgs.PlanFree
	}

	patch := map[string][]string{
		orgs.AttrPlanName: {planName, strings.ToLower(status)},
	}
	if err := s.attrs.Merge(ctx, orgID, patch); err != nil {
		return err
	}
	s.countTransition("status_override", nil)
	return nil
}

// SetDefaultAttributes restores the free-plan placeholder attributes on
// an organization.
func (s *Service) SetDefaultAttributes(ctx context.Context, orgID string) error {
	return s.attrs.Merge(ctx, orgID, orgs.DefaultSubscriptionAttributes().ToMap())
}

// GetPlanInfo is a pure read: it never mutates and fills in the
// free-plan defaults for any missing key, tolerating partially
// populated attribute maps from older data.
func (s *Service) GetPlanInfo(ctx context.Context, org *identity.Organization, email, customerName string) (*PlanInfo, error) {
	sub := orgs.ParseSubscriptionAttributes(org.Attributes)

	info := &PlanInfo{
		OrgID:          org.ID,
		OrgEmail:       email,
		CustomerName:   customerName,
		SubscriptionID: sub.SubscriptionID,
		PlanName:       sub.PlanName,
		PlanStatus:     sub.EffectiveStatus(),
		PlanID:         sub.PlanID,
		BillingCycle:   sub.BillingCycle,
		CallLimit:      sub.CallLimit,
	}
	if info.SubscriptionID == "" {
		info.SubscriptionID = "0"
	}
	if info.PlanName == "" {
		info.PlanName = orgs.PlanFree
	}
	if info.BillingCycle == "" {
		info.BillingCycle = orgs.DefaultBillingCycle
	}
	if info.CallLimit == "" {
		info.CallLimit = orgs.DefaultCallLimit
	}
	return info, nil
}

// ListInvoices returns summaries of every gateway invoice for the
// organization's subscription customer. Organizations without a valid
// subscription get an empty list, not an error.
func (s *Service) ListInvoices(ctx context.Context, orgID string) ([]InvoiceSummary, error) {
	sub, err := s.attrs.Subscription(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !sub.HasSubscription() {
		s.logger.Debug("organization does not have any valid subscription")
		return []InvoiceSummary{}, nil
	}

	gatewaySub, err := s.gateway.FetchSubscription(ctx, sub.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch subscription invoices: %w", err)
	}
	if gatewaySub == nil || gatewaySub.CustomerID == "" {
		return []InvoiceSummary{}, nil
	}

	invoices, err := s.gateway.ListInvoices(ctx, gatewaySub.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch subscription invoices: %w", err)
	}

	summaries := make([]InvoiceSummary, 0, len(invoices))
	for _, inv := range invoices {
		summaries = append(summaries, InvoiceSummary{
			ID:             inv.ID,
			CustomerID:     gatewaySub.CustomerID,
			SubscriptionID: inv.SubscriptionID,
			PaymentID:      inv.PaymentID,
			Status:         inv.Status,
			Amount:         float64(inv.Amount) / 100.0,
			CreatedAt:      time.Unix(inv.CreatedAt, 0).UTC(),
			CurrencySymbol: inv.CurrencySymbol,
		})
	}
	return summaries, nil
}

// DownloadInvoice fetches the invoice and renders it as a PDF document.
func (s *Service) DownloadInvoice(ctx context.Context, invoiceID string, contact BillingContact) ([]byte, error) {
	invoice, err := s.gateway.FetchInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("unable to download invoice: %w", err)
	}
	return renderInvoicePDF(invoice, contact)
}
