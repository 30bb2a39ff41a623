// Package razorpay implements the slice of the Razorpay REST API this
// service consumes: subscriptions, plans, invoices, and payment
// signature verification.
package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// Config configures the gateway client
type Config struct {
	KeyID     string
	KeySecret string
	// BaseURL overrides the production endpoint, mainly for tests.
	BaseURL string
	// Timeout bounds every gateway call; outbound calls are synchronous
	// and blocking with no retry.
	Timeout time.Duration
	// PlanCacheTTL bounds how long fetched plans are reused. Plans are
	// near-immutable on the gateway side.
	PlanCacheTTL  time.Duration
	PlanCacheSize int
}

// DefaultConfig returns the production defaults
func DefaultConfig(keyID, keySecret string) *Config {
	return &Config{
		KeyID:         keyID,
		KeySecret:     keySecret,
		BaseURL:       defaultBaseURL,
		Timeout:       30 * time.Second,
		PlanCacheTTL:  5 * time.Minute,
		PlanCacheSize: 128,
	}
}

// ObserveFunc records one gateway call for metrics
type ObserveFunc func(operation string, err error, duration time.Duration)

// Client is an HTTP client for the gateway, authenticated with basic
// auth over the API key pair.
type Client struct {
	config    *Config
	http      *http.Client
	planCache *lru.LRU[string, *Plan]
	observe   ObserveFunc
}

// NewClient creates a gateway client
func NewClient(config *Config, observe ObserveFunc) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	size := config.PlanCacheSize
	if size <= 0 {
		size = 128
	}
	if config.PlanCacheTTL <= 0 {
		config.PlanCacheTTL = 5 * time.Minute
	}
	if observe == nil {
		observe = func(string, error, time.Duration) {}
	}
	return &Client{
		config:    config,
		http:      &http.Client{Timeout: config.Timeout},
		planCache: lru.NewLRU[string, *Plan](size, nil, config.PlanCacheTTL),
		observe:   observe,
	}
}

// CreateSubscription creates a subscription on the gateway
func (c *Client) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*Subscription, error) {
	sub := &Subscription{}
	err := c.do(ctx, "subscription_create", http.MethodPost, "/subscriptions", req, sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FetchSubscription fetches the canonical subscription record by id
func (c *Client) FetchSubscription(ctx context.Context, id string) (*Subscription, error) {
	sub := &Subscription{}
	err := c.do(ctx, "subscription_fetch", http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// CancelSubscription cancels a subscription. cancelAtCycleEnd false
// means immediate cancellation.
func (c *Client) CancelSubscription(ctx context.Context, id string, cancelAtCycleEnd bool) (*Subscription, error) {
	body := map[string]int{"cancel_at_cycle_end": 0}
	if cancelAtCycleEnd {
		body["cancel_at_cycle_end"] = 1
	}
	sub := &Subscription{}
	err := c.do(ctx, "subscription_cancel", http.MethodPost, "/subscriptions/"+url.PathEscape(id)+"/cancel", body, sub)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// FetchPlan fetches a plan record by id, reusing a recent copy when one
// is cached.
func (c *Client) FetchPlan(ctx context.Context, id string) (*Plan, error) {
	if plan, ok := c.planCache.Get(id); ok {
		return plan, nil
	}

	plan := &Plan{}
	err := c.do(ctx, "plan_fetch", http.MethodGet, "/plans/"+url.PathEscape(id), nil, plan)
	if err != nil {
		return nil, err
	}
	c.planCache.Add(id, plan)
	return plan, nil
}

// ListInvoices lists all invoices for a gateway customer
func (c *Client) ListInvoices(ctx context.Context, customerID string) ([]*Invoice, error) {
	list := &invoiceList{}
	path := "/invoices?customer_id=" + url.QueryEscape(customerID)
	if err := c.do(ctx, "invoice_list", http.MethodGet, path, nil, list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// FetchInvoice fetches an invoice record by id
func (c *Client) FetchInvoice(ctx context.Context, id string) (*Invoice, error) {
	inv := &Invoice{}
	err := c.do(ctx, "invoice_fetch", http.MethodGet, "/invoices/"+url.PathEscape(id), nil, inv)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, dest interface{}) error {
	start := time.Now()
	err := c.doRequest(ctx, method, path, body, dest)
	c.observe(operation, err, time.Since(start))
	return err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, dest interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		envelope := &apiErrorEnvelope{}
		if decodeErr := json.NewDecoder(resp.Body).Decode(envelope); decodeErr != nil || envelope.Error.Description == "" {
			return &APIError{
				StatusCode:  resp.StatusCode,
				Code:        "BAD_STATUS",
				Description: fmt.Sprintf("gateway returned status %d", resp.StatusCode),
			}
		}
		envelope.Error.StatusCode = resp.StatusCode
		return &envelope.Error
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
