package billing

import (
	"context"
	"errors"
	"time"

	"github.com/latitudexlabs/keycloak-events/pkg/razorpay"
)

// Gateway is the narrow payment-gateway surface the billing service
// consumes. *razorpay.Client implements it.
type Gateway interface {
	CreateSubscription(ctx context.Context, req *razorpay.CreateSubscriptionRequest) (*razorpay.Subscription, error)
	FetchSubscription(ctx context.Context, id string) (*razorpay.Subscription, error)
	CancelSubscription(ctx context.Context, id string, cancelAtCycleEnd bool) (*razorpay.Subscription, error)
	FetchPlan(ctx context.Context, id string) (*razorpay.Plan, error)
	ListInvoices(ctx context.Context, customerID string) ([]*razorpay.Invoice, error)
	FetchInvoice(ctx context.Context, id string) (*razorpay.Invoice, error)
}

// ErrNoSubscription indicates the organization has no gateway
// subscription bound ("" or "0").
var ErrNoSubscription = errors.New("organization does not have any valid subscription")

// ErrInvalidStatus indicates a plan status literal outside
// {active, disabled}.
var ErrInvalidStatus = errors.New("invalid status, allowed values are 'active' or 'disabled'")

// TransitionError rejects an illegal self-service transition: creating
// on a locked or already-subscribed plan, cancelling a free or locked
// plan.
type TransitionError struct {
	Reason string
}

func (e *TransitionError) Error() string {
	return e.Reason
}

// IsTransitionError reports whether err is a TransitionError
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// PlanInfo is the defaulted, read-only view of an organization's
// subscription returned by the plan endpoint.
type PlanInfo struct {
	OrgID          string `json:"org_id"`
	OrgEmail       string `json:"org_email"`
	CustomerName   string `json:"customer_name"`
	SubscriptionID string `json:"subscription_id"`
	PlanName       string `json:"subscription_plan_name"`
	PlanStatus     string `json:"subscription_plan_status"`
	PlanID         string `json:"subscription_plan_id"`
	BillingCycle   string `json:"subscription_plan_billing_cycle"`
	CallLimit      string `json:"subscription_plan_call_limit"`
}

// InvoiceSummary is one row of the invoice listing. Amount is in
// decimal currency units, converted from the gateway's subunits.
type InvoiceSummary struct {
	ID             string    `json:"id"`
	CustomerID     string    `json:"customerId"`
	SubscriptionID string    `json:"subscriptionId"`
	PaymentID      string    `json:"paymentId"`
	Status         string    `json:"status"`
	Amount         float64   `json:"amount"`
	CreatedAt      time.Time `json:"createdAt"`
	CurrencySymbol string    `json:"currencySymbol"`
}

// VerificationRequest carries a payment callback's identifiers and
// signature.
type VerificationRequest struct {
	PaymentID      string `json:"razorpay_payment_id"`
	SubscriptionID string `json:"razorpay_subscription_id"`
	Signature      string `json:"razorpay_signature"`
}

// BillingContact is the "billed to" block on a rendered invoice.
type BillingContact struct {
	Name    string
	Email   string
	Address string
	LegalID string
}
