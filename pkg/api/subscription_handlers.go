package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/latitudexlabs/keycloak-events/pkg/auth"
	"github.com/latitudexlabs/keycloak-events/pkg/billing"
	"github.com/latitudexlabs/keycloak-events/pkg/httputil"
	"github.com/latitudexlabs/keycloak-events/pkg/identity"
	"github.com/latitudexlabs/keycloak-events/pkg/middleware"
	"github.com/latitudexlabs/keycloak-events/pkg/observability"
)

// User attribute keys consumed by invoice rendering. These match the
// keys existing user records already carry.
const (
	userAttrAddress = "address"
	userAttrLegalID = "legal_id"
)

// SubscriptionHandlers serves the self-service subscription lifecycle
// for the caller's own organization.
type SubscriptionHandlers struct {
	store     identity.Store
	billing   *billing.Service
	reconcile *billing.Reconciler
	logger    *observability.Logger
}

// NewSubscriptionHandlers creates a new subscription handlers instance
func NewSubscriptionHandlers(store identity.Store, billingSvc *billing.Service, reconciler *billing.Reconciler, logger *observability.Logger) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		store:     store,
		billing:   billingSvc,
		reconcile: reconciler,
		logger:    logger,
	}
}

// RegisterRoutes registers subscription routes
func (h *SubscriptionHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/subscription", h.createSubscription).Methods("POST")
	r.HandleFunc("/subscription/cancel", h.cancelSubscription).Methods("POST")
	r.HandleFunc("/subscription/verify", h.verifyPayment).Methods("POST")
	r.HandleFunc("/subscription/invoices", h.listInvoices).Methods("GET")
	r.HandleFunc("/subscription/invoices/{invoiceId}/download", h.downloadInvoice).Methods("GET")
	r.HandleFunc("/api-plan", h.getPlanInfo).Methods("GET")
}

// CreateSubscriptionRequest contains the request body for starting a
// subscription
type CreateSubscriptionRequest struct {
	PlanID string `json:"plan_id"`
}

// CreateSubscriptionResponse contains the new gateway subscription id
type CreateSubscriptionResponse struct {
	SubscriptionID string `json:"subscription_id"`
}

// CancelSubscriptionResponse contains the gateway-reported status
type CancelSubscriptionResponse struct {
	Status string `json:"status"`
}

// VerifyPaymentResponse reports the signature verification outcome
type VerifyPaymentResponse struct {
	Verified bool `json:"verified"`
}

// createSubscription handles POST /subscription
func (h *SubscriptionHandlers) createSubscription(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	var req CreateSubscriptionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PlanID == "" {
		httputil.WriteBadRequest(w, "plan_id is required", nil)
		return
	}

	subscriptionID, err := h.billing.CreateSubscription(r.Context(), org.ID, req.PlanID)
	if err != nil {
		if billing.IsTransitionError(err) {
			httputil.WriteBadRequest(w, err.Error(), nil)
			return
		}
		h.logger.WithError(err).Errorf("subscription creation failed for organization %s", org.ID)
		httputil.WriteBadRequest(w, "subscription creation failed", err)
		return
	}

	httputil.WriteSuccess(w, CreateSubscriptionResponse{SubscriptionID: subscriptionID})
}

// cancelSubscription handles POST /subscription/cancel
func (h *SubscriptionHandlers) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	status, err := h.billing.CancelSubscription(r.Context(), org.ID)
	if err != nil {
		if billing.IsTransitionError(err) {
			httputil.WriteForbidden(w, err.Error())
			return
		}
		if errors.Is(err, billing.ErrNoSubscription) {
			httputil.WriteBadRequest(w, err.Error(), nil)
			return
		}
		h.logger.WithError(err).Errorf("subscription cancel failed for organization %s", org.ID)
		httputil.WriteBadRequest(w, "subscription cancel failed", err)
		return
	}

	httputil.WriteSuccess(w, CancelSubscriptionResponse{Status: status})
}

// verifyPayment handles POST /subscription/verify
func (h *SubscriptionHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	var req billing.VerificationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.PaymentID == "" || req.SubscriptionID == "" || req.Signature == "" {
		httputil.WriteBadRequest(w, "payment id, subscription id and signature are required", nil)
		return
	}

	verified, err := h.reconcile.VerifyAndApply(r.Context(), org.ID, req)
	if err != nil {
		h.logger.WithError(err).Errorf("payment verification failed for organization %s", org.ID)
		httputil.WriteBadRequest(w, "payment verification failed", err)
		return
	}

	httputil.WriteSuccess(w, VerifyPaymentResponse{Verified: verified})
}

// getPlanInfo handles GET /api-plan
func (h *SubscriptionHandlers) getPlanInfo(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)
	authCtx := middleware.GetAuthContext(r)

	info, err := h.billing.GetPlanInfo(r.Context(), org, authCtx.Email, authCtx.FullName())
	if err != nil {
		httputil.WriteInternalError(w, "failed to load plan info", err)
		return
	}
	httputil.WriteSuccess(w, info)
}

// listInvoices handles GET /subscription/invoices
func (h *SubscriptionHandlers) listInvoices(w http.ResponseWriter, r *http.Request) {
	org := middleware.GetOrg(r)

	invoices, err := h.billing.ListInvoices(r.Context(), org.ID)
	if err != nil {
		h.logger.WithError(err).Errorf("invoice listing failed for organization %s", org.ID)
		httputil.WriteBadRequest(w, "unable to fetch subscription invoices", err)
		return
	}
	httputil.WriteSuccess(w, invoices)
}

// billingContactFor builds the invoice contact from the token identity,
// enriched with the address and legal id user attributes when present.
func billingContactFor(authCtx *auth.AuthContext, user *identity.User) billing.BillingContact {
	contact := billing.BillingContact{
		Name:  authCtx.FullName(),
		Email: authCtx.Email,
	}
	if user != nil {
		if v := user.Attributes[userAttrAddress]; len(v) > 0 {
			contact.Address = v[0]
		}
		if v := user.Attributes[userAttrLegalID]; len(v) > 0 {
			contact.LegalID = v[0]
		}
	}
	return contact
}

// downloadInvoice handles GET /subscription/invoices/{invoiceId}/download
func (h *SubscriptionHandlers) downloadInvoice(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	invoiceID, err := httputil.ParsePathString(r, "invoiceId")
	if err != nil {
		httputil.WriteBadRequest(w, "missing invoice id", err)
		return
	}

	user, err := h.store.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		user = nil
	}
	contact := billingContactFor(authCtx, user)

	pdfBytes, err := h.billing.DownloadInvoice(r.Context(), invoiceID, contact)
	if err != nil {
		h.logger.WithError(err).Errorf("invoice download failed for invoice %s", invoiceID)
		httputil.WriteBadRequest(w, "unable to download invoice", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "invoice-"+invoiceID+".pdf"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdfBytes); err != nil {
		h.logger.WithError(err).Warn("failed to write invoice response")
	}
}
