package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance/internal/oracle"
)

func newCorrectionFixture(t *testing.T, hrHandler http.HandlerFunc) *CorrectionHandler {
	t.Helper()
	hr := httptest.NewServer(hrHandler)
	t.Cleanup(hr.Close)
	return NewCorrectionHandler(oracle.NewClient(hr.URL, "test-token"))
}

// Список запросов корректировки — сквозной проброс: тело HR-сервиса
// отдаётся клиенту дословно.
func TestCorrectionRequestsPassthrough(t *testing.T) {
	const body = `[{"id":"cr-1","date":"2026-08-24","status":"PENDING"}]`
	var gotPath, gotEmployee string
	h := newCorrectionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEmployee = r.Header.Get("X-Employee-Id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})

	rec := doRequest(t, h.List, http.MethodGet, "/api/attendance/correction-requests", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/attendance/correction-requests", gotPath)
	assert.Equal(t, "emp-1", gotEmployee)
	assert.JSONEq(t, body, rec.Body.String())
}

func TestCorrectionRequestsRemoteFailure(t *testing.T) {
	h := newCorrectionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"insufficient role"}`))
	})

	rec := doRequest(t, h.List, http.MethodGet, "/api/attendance/correction-requests", nil)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "insufficient role", decodeBody(t, rec)["error"])
}
