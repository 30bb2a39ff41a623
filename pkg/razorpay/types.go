package razorpay

import "fmt"

// Subscription statuses reported by the gateway that this service
// inspects.
const (
	SubscriptionStatusCreated   = "created"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
)

// Subscription is the gateway's canonical subscription record
type Subscription struct {
	ID           string            `json:"id"`
	PlanID       string            `json:"plan_id"`
	CustomerID   string            `json:"customer_id"`
	Status       string            `json:"status"`
	TotalCount   int               `json:"total_count"`
	Quantity     int               `json:"quantity"`
	Notes        map[string]string `json:"notes,omitempty"`
	CurrentStart int64             `json:"current_start,omitempty"`
	CurrentEnd   int64             `json:"current_end,omitempty"`
	EndedAt      int64             `json:"ended_at,omitempty"`
	CreatedAt    int64             `json:"created_at,omitempty"`
}

// PlanItem is the billable item attached to a plan
type PlanItem struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Plan is the gateway's plan record. Notes carry gateway-side custom
// metadata, including the per-plan call limit.
type Plan struct {
	ID       string            `json:"id"`
	Period   string            `json:"period"`
	Interval int               `json:"interval"`
	Item     PlanItem          `json:"item"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// PlanCallLimitNote is the notes key carrying the plan's API call limit.
const PlanCallLimitNote = "plan_call_limit"

// CustomerDetails is the billing contact embedded in an invoice
type CustomerDetails struct {
	Name    string `json:"customer_name,omitempty"`
	Email   string `json:"customer_email,omitempty"`
	Contact string `json:"customer_contact,omitempty"`
}

// LineItem is one billed row on an invoice. Amounts are in currency
// subunits.
type LineItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitAmount  int64  `json:"unit_amount"`
	Amount      int64  `json:"amount"`
}

// Invoice is the gateway's invoice record. All monetary fields are in
// currency subunits.
type Invoice struct {
	ID             string           `json:"id"`
	CustomerID     string           `json:"customer_id,omitempty"`
	SubscriptionID string           `json:"subscription_id,omitempty"`
	PaymentID      string           `json:"payment_id,omitempty"`
	Status         string           `json:"status,omitempty"`
	Amount         int64            `json:"amount"`
	AmountPaid     int64            `json:"amount_paid"`
	AmountDue      int64            `json:"amount_due"`
	TaxAmount      int64            `json:"tax_amount"`
	CurrencySymbol string           `json:"currency_symbol,omitempty"`
	CustomerDetails *CustomerDetails `json:"customer_details,omitempty"`
	LineItems      []LineItem       `json:"line_items,omitempty"`
	IssuedAt       int64            `json:"issued_at,omitempty"`
	PaidAt         int64            `json:"paid_at,omitempty"`
	BillingStart   int64            `json:"billing_start,omitempty"`
	BillingEnd     int64            `json:"billing_end,omitempty"`
	CreatedAt      int64            `json:"created_at,omitempty"`
}

// CreateSubscriptionRequest is the body for subscription creation
type CreateSubscriptionRequest struct {
	PlanID         string            `json:"plan_id"`
	TotalCount     int               `json:"total_count"`
	Quantity       int               `json:"quantity"`
	CustomerNotify int               `json:"customer_notify"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// APIError is a structured error returned by the gateway
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %s (%s)", e.Description, e.Code)
}

type apiErrorEnvelope struct {
	Error APIError `json:"error"`
}

type invoiceList struct {
	Count int        `json:"count"`
	Items []*Invoice `json:"items"`
}
