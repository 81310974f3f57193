package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance/internal/middleware"
	"github.com/attendance/internal/oracle"
	"github.com/attendance/internal/session"
	"github.com/attendance/internal/storage/memory"
)

// fixture поднимает фейковый HR-сервис и собирает обработчик поверх него.
type fixture struct {
	handler *AttendanceHandler
	hr      *httptest.Server
}

func newFixture(t *testing.T, hrHandler http.HandlerFunc) *fixture {
	t.Helper()
	hr := httptest.NewServer(hrHandler)
	t.Cleanup(hr.Close)

	client := oracle.NewClient(hr.URL, "test-token")
	sessions := session.NewManager(session.Deps{
		Store:  memory.New(),
		Oracle: client,
	})
	t.Cleanup(sessions.Shutdown)

	return &fixture{
		handler: NewAttendanceHandler(sessions, client, nil),
		hr:      hr,
	}
}

func hrOK() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}
}

func doRequest(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req = req.WithContext(context.WithValue(req.Context(), middleware.EmployeeIDKey, "emp-1"))
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCheckInHappyPath(t *testing.T) {
	f := newFixture(t, hrOK())

	rec := doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin",
		map[string]any{"latitude": 55.75, "longitude": 37.61, "accuracy": 10})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "CHECKED_IN", body["status"])
	assert.NotEmpty(t, body["check_in_time"])
	assert.Greater(t, body["remaining_seconds"].(float64), float64(0))
}

func TestCheckInRequiresLocation(t *testing.T) {
	hrCalled := false
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) { hrCalled = true })

	rec := doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin",
		map[string]any{"latitude": 0, "longitude": 0})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "location required", decodeBody(t, rec)["error"])
	assert.False(t, hrCalled)
}

func TestCheckInDuplicate(t *testing.T) {
	f := newFixture(t, hrOK())
	loc := map[string]any{"latitude": 55.75, "longitude": 37.61}

	first := doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin", loc)
	require.Equal(t, http.StatusOK, first.Code)

	second := doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin", loc)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Equal(t, "already checked in", decodeBody(t, second)["error"])
}

// Сообщение HR-сервиса доходит до клиента дословно, статус 502.
func TestCheckInRemoteRejection(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "outside office geofence"})
	})

	rec := doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin",
		map[string]any{"latitude": 55.75, "longitude": 37.61})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "outside office geofence", decodeBody(t, rec)["error"])
}

func TestCheckOutRequiresConfirmation(t *testing.T) {
	hrCalls := 0
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		hrCalls++
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	loc := map[string]any{"latitude": 55.75, "longitude": 37.61}

	require.Equal(t, http.StatusOK,
		doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin", loc).Code)

	rec := doRequest(t, f.handler.CheckOut, http.MethodPost, "/api/attendance/geo-checkout", loc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "confirmation required", decodeBody(t, rec)["error"])
	assert.Equal(t, 1, hrCalls, "отказ до подтверждения не должен дёргать HR-сервис")
}

func TestCheckOutFlow(t *testing.T) {
	f := newFixture(t, hrOK())
	loc := map[string]any{"latitude": 55.75, "longitude": 37.61}

	require.Equal(t, http.StatusOK,
		doRequest(t, f.handler.CheckIn, http.MethodPost, "/api/attendance/geo-checkin", loc).Code)

	confirm := map[string]any{"latitude": 55.75, "longitude": 37.61, "confirm": true}
	rec := doRequest(t, f.handler.CheckOut, http.MethodPost, "/api/attendance/geo-checkout", confirm)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "CHECKED_OUT", body["status"])
	assert.Zero(t, body["remaining_seconds"])
}

func TestCheckOutWithoutShift(t *testing.T) {
	f := newFixture(t, hrOK())
	confirm := map[string]any{"latitude": 55.75, "longitude": 37.61, "confirm": true}

	rec := doRequest(t, f.handler.CheckOut, http.MethodPost, "/api/attendance/geo-checkout", confirm)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not checked in", decodeBody(t, rec)["error"])
}

func TestStatusInitial(t *testing.T) {
	f := newFixture(t, hrOK())

	rec := doRequest(t, f.handler.Status, http.MethodGet, "/api/attendance/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NOT_CHECKED_IN", decodeBody(t, rec)["status"])
}

// Активация примиряет состояние с сервером: открытая смена восстанавливается
// после потери локального кэша.
func TestActivateAdoptsRemoteShift(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"records": []map[string]any{
			{"date": "2026-08-28", "inTime": "2026-08-28T06:00:00Z", "outTime": nil},
		}})
	})

	rec := doRequest(t, f.handler.Activate, http.MethodPost, "/api/attendance/activate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CHECKED_IN", decodeBody(t, rec)["status"])
}
