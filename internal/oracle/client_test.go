package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendance/internal/model"
)

var testLoc = model.Location{Latitude: 55.75, Longitude: 37.61, Accuracy: 8}

func TestCheckInSendsLocationAndAuth(t *testing.T) {
	var gotPath, gotAuth, gotEmployee string
	var gotBody checkRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotEmployee = r.Header.Get("X-Employee-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(checkResponse{Success: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "service-token")
	require.NoError(t, c.CheckIn(context.Background(), "emp-1", testLoc))

	assert.Equal(t, "/api/attendance/geo-checkin", gotPath)
	assert.Equal(t, "Bearer service-token", gotAuth)
	assert.Equal(t, "emp-1", gotEmployee)
	assert.Equal(t, testLoc.Latitude, gotBody.Latitude)
	assert.Equal(t, testLoc.Longitude, gotBody.Longitude)
}

func TestCheckOutServerRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "outside office geofence"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.CheckOut(context.Background(), "emp-1", testLoc)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnprocessableEntity, re.StatusCode)
	assert.Equal(t, "outside office geofence", re.Message)
}

func TestCheckRejectedBySuccessFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(checkResponse{Success: false, Message: "duplicate check-in"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	err := c.CheckIn(context.Background(), "emp-1", testLoc)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "duplicate check-in", re.Message)
}

func TestNetworkErrorWrapped(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	err := c.CheckIn(context.Background(), "emp-1", testLoc)

	var re *RequestError
	require.ErrorAs(t, err, &re)
	assert.Zero(t, re.StatusCode)
	assert.NotEmpty(t, re.Message)
}

func TestSummaryParsesRecords(t *testing.T) {
	in := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	out := in.Add(8 * time.Hour)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/attendance/my-summary", r.URL.Path)
		assert.Equal(t, "2026-08-24", r.URL.Query().Get("fromDate"))
		assert.Equal(t, "2026-08-24", r.URL.Query().Get("toDate"))
		json.NewEncoder(w).Encode(summaryResponse{Records: []model.DayRecord{
			{Date: "2026-08-24", InTime: &in, OutTime: &out},
		}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	records, err := c.TodaySummary(context.Background(), "emp-1", in)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].InTime)
	assert.True(t, records[0].InTime.Equal(in))
	require.NotNil(t, records[0].OutTime)
	assert.True(t, records[0].OutTime.Equal(out))
}

func TestSubmitCorrectionMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "tok-123", r.FormValue("token"))
		assert.Equal(t, "forgot to check out", r.FormValue("correctionRemark"))
		file, header, err := r.FormFile("proofFile")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "proof.jpg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, "jpeg-bytes", string(data))
		json.NewEncoder(w).Encode(map[string]string{"message": "correction submitted"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	msg, err := c.SubmitCorrection(context.Background(), "emp-1", "tok-123",
		"forgot to check out", "proof.jpg", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "correction submitted", msg)
}

func TestCorrectionDataToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/attendance/correction-request", r.URL.Path)
		assert.Equal(t, "emp-1", r.URL.Query().Get("employeeId"))
		json.NewEncoder(w).Encode(model.CorrectionData{Token: "tok-456", Date: "2026-08-24"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	data, err := c.CorrectionData(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-456", data.Token)
}
