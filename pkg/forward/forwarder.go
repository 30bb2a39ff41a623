// Package forward proxies API-key management requests to the external
// organization-management service. Key material never lives in this
// service; it only relays calls scoped to the caller's organization.
package forward

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// UpstreamError is the body returned when the upstream service answers
// with a non-2xx status.
type UpstreamError struct {
	Error   string          `json:"error"`
	Status  int             `json:"status"`
	Details json.RawMessage `json:"details,omitempty"`
}

// Forwarder relays requests to the organization-management API.
type Forwarder struct {
	baseURL string
	client  *http.Client
	logger  *logrus.Logger
}

// NewForwarder creates a Forwarder targeting baseURL, for example
// "https://orgmgmt.internal:8443".
func NewForwarder(baseURL string, timeout time.Duration, logger *logrus.Logger) *Forwarder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Forwarder{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enabled reports whether an upstream base URL is configured.
func (f *Forwarder) Enabled() bool {
	return f.baseURL != ""
}

func (f *Forwarder) orgURL(orgID string, parts ...string) string {
	segments := []string{f.baseURL, "api", "v1", "org", url.PathEscape(orgID)}
	for _, p := range parts {
		segments = append(segments, url.PathEscape(p))
	}
	return strings.Join(segments, "/")
}

// GenerateKey relays POST .../generate-key with the original body.
func (f *Forwarder) GenerateKey(w http.ResponseWriter, r *http.Request, orgID string) {
	f.relay(w, r, http.MethodPost, f.orgURL(orgID, "generate-key"), r.Body)
}

// ListKeys relays GET .../keys.
func (f *Forwarder) ListKeys(w http.ResponseWriter, r *http.Request, orgID string) {
	f.relay(w, r, http.MethodGet, f.orgURL(orgID, "keys"), nil)
}

// DeleteKey relays DELETE .../{keyLabel}.
func (f *Forwarder) DeleteKey(w http.ResponseWriter, r *http.Request, orgID, keyLabel string) {
	f.relay(w, r, http.MethodDelete, f.orgURL(orgID, keyLabel), nil)
}

// APIUsage relays POST .../api-usage with the original body.
func (f *Forwarder) APIUsage(w http.ResponseWriter, r *http.Request, orgID string) {
	f.relay(w, r, http.MethodPost, f.orgURL(orgID, "api-usage"), r.Body)
}

// relay performs the upstream call and writes the result. A 2xx
// upstream response passes through body and content type untouched;
// anything else is wrapped in an UpstreamError envelope. Connection
// failures become a 502.
func (f *Forwarder) relay(w http.ResponseWriter, r *http.Request, method, target string, body io.Reader) {
	req, err := http.NewRequestWithContext(r.Context(), method, target, body)
	if err != nil {
		f.logger.Errorf("Failed to build upstream request: %v", err)
		f.writeError(w, http.StatusInternalServerError, "Upstream request failed", nil)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		req.Header.Set("Content-Type", ct)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Errorf("Upstream connection failed: %v", err)
		f.writeError(w, http.StatusBadGateway, "Upstream error", nil)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		f.logger.Errorf("Failed to read upstream response: %v", err)
		f.writeError(w, http.StatusBadGateway, "Upstream error", nil)
		return
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		} else {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := w.Write(respBody); err != nil {
			f.logger.Warnf("Failed to write relayed response: %v", err)
		}
		return
	}

	f.logger.Warnf("Upstream returned status %d for %s %s", resp.StatusCode, method, target)
	var details json.RawMessage
	if json.Valid(respBody) {
		details = respBody
	} else if len(respBody) > 0 {
		quoted, _ := json.Marshal(string(respBody))
		details = quoted
	}
	f.writeError(w, resp.StatusCode, "Upstream error", details)
}

func (f *Forwarder) writeError(w http.ResponseWriter, status int, message string, details json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(UpstreamError{Error: message, Status: status, Details: details}); err != nil {
		f.logger.Warnf("Failed to encode upstream error: %v", err)
	}
}
