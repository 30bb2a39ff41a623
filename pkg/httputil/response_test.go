package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "subscription creation failed", errors.New("gateway returned status 502"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"subscription creation failed","details":"gateway returned status 502"}`, rec.Body.String())
}

func TestWriteErrorNoCauseOmitsDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteForbidden(rec, "insufficient permissions")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"insufficient permissions"}`, rec.Body.String())
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]string{"subscription_id": "sub_1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscription_id":"sub_1"}`, rec.Body.String())
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestParseJSONOrError(t *testing.T) {
	var dest map[string]string

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"plan_id":"plan_123"}`))
	assert.True(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, "plan_123", dest["plan_id"])

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.False(t, ParseJSONOrError(rec, req, &dest))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
