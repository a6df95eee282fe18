package slaapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sla-console/sla-console/internal/filters"
)

func TestLoginSendsFormEncodedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "operator", r.PostFormValue("username"))
		require.Equal(t, "hunter22", r.PostFormValue("password"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"bearer"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	token, err := client.Login(context.Background(), "operator", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.AccessToken)
}

func TestLoginRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect username or password"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Login(context.Background(), "operator", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Incorrect username or password", apiErr.Message)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReportCarriesBearerAndRepeatedFilterParams(t *testing.T) {
	var got url.Values
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		auth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[],"total_rows":0}`))
	}))
	defer server.Close()

	scope := filters.FilterSet{
		ZoneIDs:   []int64{1, 3},
		StreetIDs: []int64{7},
		DateFrom:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	client := NewClient(server.URL)
	_, err := client.Report(context.Background(), "tok", scope, 100, 100, "PenaltyAmount", "desc")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", auth)
	assert.Equal(t, []string{"1", "3"}, got["zone_id"])
	assert.Equal(t, []string{"7"}, got["street_id"])
	assert.Equal(t, "100", got.Get("skip"))
	assert.Equal(t, "PenaltyAmount", got.Get("sort_key"))
	assert.Equal(t, "desc", got.Get("sort_dir"))
}

func TestRequestsWithoutTokenShortCircuit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Dashboard(context.Background(), "", filters.FilterSet{})
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, calls, "no request may be issued without a token")
}

func TestValidationErrorArrayIsJoined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"loc":["query","date_from"],"msg":"invalid datetime"},{"loc":["query","limit"],"msg":"out of range"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Dashboard(context.Background(), "tok", filters.FilterSet{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "date_from: invalid datetime; limit: out of range", apiErr.Message)
}

func TestMalformedErrorBodyFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>nope</html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Dashboard(context.Background(), "tok", filters.FilterSet{})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "request failed", apiErr.Message)
}

func TestDownloadUsesContentDispositionFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("skip"), "downloads must not carry pagination")
		assert.Empty(t, r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename=sla_report_20260830_120000.csv`)
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	dl, err := client.DownloadCSV(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "sla_report_20260830_120000.csv", dl.Filename)
	body, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(body))
}

func TestDownloadFallbackFilename(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	dl, err := client.DownloadPDF(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, "sla_report.pdf", dl.Filename)
}

func TestTransportFailureMapsToUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening any more

	client := NewClient(server.URL, WithRetries(0))
	_, err := client.Dashboard(context.Background(), "tok", filters.FilterSet{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetRetriesTransportFailures(t *testing.T) {
	attempts := 0
	flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			// Kill the connection without a response.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_zones":4,"total_streets":0,"total_units":0,"total_open_incidents":0,"total_closed_incidents":0,"total_penalty":"0","error_details":{}}`))
	}))
	defer flaky.Close()

	client := NewClient(flaky.URL, WithRetries(2))
	kpis, err := client.Dashboard(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 4, kpis.TotalZones)
	assert.Equal(t, 2, attempts)
}

func TestPostIsNeverRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		hj, ok := w.(http.Hijacker)
		require.True(t, ok)
		conn, _, err := hj.Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetries(3))
	err := client.RefreshCache(context.Background(), "tok", time.Now().Add(-24*time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 1, attempts)
}

func TestForbiddenMapsToUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Dashboard(context.Background(), "stale", filters.FilterSet{})
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
