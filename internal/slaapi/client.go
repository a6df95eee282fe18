// Package slaapi is the typed client for the remote SLA computation API.
// The console never computes penalties or aggregates itself; every number
// on screen comes from this API.
package slaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sla-console/sla-console/internal/filters"
)

const (
	defaultTimeout = 30 * time.Second
	retryBaseDelay = 250 * time.Millisecond
)

// Client wraps interactions with the SLA API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	observe    func(outcome string)
}

// Opt customises a Client.
type Opt func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Opt {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRetries sets the number of additional attempts for transport
// failures on idempotent requests.
func WithRetries(n int) Opt {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithObserver registers a callback invoked once per request with the
// outcome label ("ok", "unauthorized", "unavailable" or "error").
func WithObserver(fn func(outcome string)) Opt {
	return func(c *Client) {
		c.observe = fn
	}
}

// WithHTTPClient swaps the underlying http.Client, mainly for tests.
func WithHTTPClient(hc *http.Client) Opt {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs a new client for the given base URL.
func NewClient(baseURL string, opts ...Opt) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retries: 2,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a bearer token. The endpoint expects a
// form-encoded body, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer closeBody(resp)

	if resp.StatusCode >= 400 {
		return Token{}, c.errorFromResponse(resp)
	}
	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return Token{}, fmt.Errorf("slaapi: decode token: %w", err)
	}
	if token.AccessToken == "" {
		return Token{}, &APIError{Status: resp.StatusCode, Message: "empty access token"}
	}
	return token, nil
}

// Logout reports the logout to the API for audit purposes. The token is
// invalidated client-side regardless of the outcome.
func (c *Client) Logout(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/auth/logout", nil, token, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}
	return nil
}

// Dashboard fetches the aggregate KPI snapshot for the filter scope.
func (c *Client) Dashboard(ctx context.Context, token string, scope filters.FilterSet) (DashboardKPIs, error) {
	var kpis DashboardKPIs
	if err := c.getJSON(ctx, token, "/dashboard/", scope.Encode(), &kpis); err != nil {
		return DashboardKPIs{}, err
	}
	return kpis, nil
}

// Report fetches one page of the penalty report. Sorting is performed by
// the server; the page that comes back is already ordered.
func (c *Client) Report(ctx context.Context, token string, scope filters.FilterSet, skip, limit int, sortKey, sortDir string) (ReportPage, error) {
	query := scope.Encode()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))
	if sortKey != "" {
		query.Set("sort_key", sortKey)
		query.Set("sort_dir", sortDir)
	}
	var page ReportPage
	if err := c.getJSON(ctx, token, "/report/", query, &page); err != nil {
		return ReportPage{}, err
	}
	return page, nil
}

// DownloadCSV streams the full filtered report as a CSV attachment.
func (c *Client) DownloadCSV(ctx context.Context, token string, scope filters.FilterSet) (*Download, error) {
	return c.download(ctx, token, "/report/download", scope, "sla_report.csv")
}

// DownloadPDF streams the full filtered report as a PDF attachment.
func (c *Client) DownloadPDF(ctx context.Context, token string, scope filters.FilterSet) (*Download, error) {
	return c.download(ctx, token, "/report/download-pdf", scope, "sla_report.pdf")
}

func (c *Client) download(ctx context.Context, token, path string, scope filters.FilterSet, fallbackName string) (*Download, error) {
	// No pagination parameters: the server returns the whole filtered set.
	resp, err := c.do(ctx, http.MethodGet, path, scope.Encode(), token, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		defer closeBody(resp)
		return nil, c.errorFromResponse(resp)
	}
	return &Download{
		Filename:    filenameFromDisposition(resp.Header.Get("Content-Disposition"), fallbackName),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

// SubCategories lists the waiver reason categories.
func (c *Client) SubCategories(ctx context.Context, token string) ([]Option, error) {
	var options []Option
	if err := c.getJSON(ctx, token, "/report/incident_sub_categories", nil, &options); err != nil {
		return nil, err
	}
	return options, nil
}

// WaivePenalty cancels the penalty of one incident and triggers the
// server-side cache rebuild for the affected range.
func (c *Client) WaivePenalty(ctx context.Context, token string, req WaiveRequest) error {
	return c.postJSON(ctx, token, "/cache/waive_penalty", req)
}

// RefreshCache asks the server to recompute its report cache for the range.
func (c *Client) RefreshCache(ctx context.Context, token string, dateFrom, dateTo time.Time) error {
	payload := struct {
		DateFrom time.Time `json:"date_from"`
		DateTo   time.Time `json:"date_to"`
	}{DateFrom: dateFrom, DateTo: dateTo}
	return c.postJSON(ctx, token, "/cache/refresh_cache", payload)
}

// MasterFilters fetches the pick-list options. Selected zone/street ids may
// be passed to scope the dependent lists (cascading filter bar).
func (c *Client) MasterFilters(ctx context.Context, token string, zoneIDs, streetIDs []int64) (MasterFilters, error) {
	query := url.Values{}
	for _, id := range zoneIDs {
		query.Add("zone_ids", strconv.FormatInt(id, 10))
	}
	for _, id := range streetIDs {
		query.Add("street_ids", strconv.FormatInt(id, 10))
	}
	var mf MasterFilters
	if err := c.getJSON(ctx, token, "/master/filters", query, &mf); err != nil {
		return MasterFilters{}, err
	}
	return mf, nil
}

// Zones lists all camera zones in one shot.
func (c *Client) Zones(ctx context.Context, token string) (EntityPage, error) {
	return c.entityPage(ctx, token, "/master/zones")
}

// Streets lists all streets in one shot.
func (c *Client) Streets(ctx context.Context, token string) (EntityPage, error) {
	return c.entityPage(ctx, token, "/master/streets")
}

// Units lists all units in one shot.
func (c *Client) Units(ctx context.Context, token string) (EntityPage, error) {
	return c.entityPage(ctx, token, "/master/units")
}

func (c *Client) entityPage(ctx context.Context, token, path string) (EntityPage, error) {
	var page EntityPage
	if err := c.getJSON(ctx, token, path, nil, &page); err != nil {
		return EntityPage{}, err
	}
	return page, nil
}

// Incidents fetches a skip/limit page of the incident drill-down list.
// status may be "Open", "Closed" or empty for both.
func (c *Client) Incidents(ctx context.Context, token string, scope filters.FilterSet, status string, skip, limit int) (IncidentPage, error) {
	query := scope.Encode()
	if status != "" {
		query.Set("status_filter", status)
	}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))
	var page IncidentPage
	if err := c.getJSON(ctx, token, "/master/incidents", query, &page); err != nil {
		return IncidentPage{}, err
	}
	return page, nil
}

func (c *Client) getJSON(ctx context.Context, token, path string, query url.Values, dest any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, token, nil)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("slaapi: decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, token, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPost, path, nil, token, body)
	if err != nil {
		return err
	}
	defer closeBody(resp)
	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp)
	}
	return nil
}

// do issues one authenticated request. GET requests are retried with
// backoff on transport failure only; error statuses are never retried.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, token string, body []byte) (*http.Response, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			case <-time.After(retryBaseDelay << (attempt - 1)):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			c.reportStatus(resp.StatusCode)
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if c.observe != nil {
		c.observe("unavailable")
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) reportStatus(status int) {
	if c.observe == nil {
		return
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.observe("unauthorized")
	case status >= 400:
		c.observe("error")
	default:
		c.observe("ok")
	}
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return &APIError{Status: resp.StatusCode, Message: decodeErrorBody(body)}
}

func filenameFromDisposition(header, fallback string) string {
	if header == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return fallback
	}
	if name := params["filename"]; name != "" {
		return name
	}
	return fallback
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	_ = resp.Body.Close()
}
