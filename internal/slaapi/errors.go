package slaapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNoToken is returned before any request is issued when the session
	// carries no bearer token.
	ErrNoToken = errors.New("slaapi: no access token")
	// ErrUnauthorized maps 401/403 responses. The caller is expected to
	// destroy the session and force a re-login.
	ErrUnauthorized = errors.New("slaapi: unauthorized")
	// ErrUnavailable wraps transport failures and client-side timeouts.
	ErrUnavailable = errors.New("slaapi: api unavailable")
)

// APIError is a non-success HTTP response decoded into a display message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slaapi: status %d: %s", e.Status, e.Message)
}

// Is lets 401/403 API errors satisfy errors.Is(err, ErrUnauthorized).
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// validationEntry mirrors the upstream validation error items:
// {"loc": ["query", "date_from"], "msg": "invalid datetime"}.
type validationEntry struct {
	Loc []json.RawMessage `json:"loc"`
	Msg string            `json:"msg"`
}

// decodeErrorBody extracts a human readable message from an error response
// body. The body may be a structured validation array, an object with a
// string detail, or arbitrary bytes; none of these may panic or fail.
func decodeErrorBody(body []byte) string {
	const fallback = "request failed"
	if len(body) == 0 {
		return fallback
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return fallback
	}

	var plain string
	if err := json.Unmarshal(envelope.Detail, &plain); err == nil && plain != "" {
		return plain
	}

	var entries []validationEntry
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil && len(entries) > 0 {
		parts := make([]string, 0, len(entries))
		for _, entry := range entries {
			field := lastLocSegment(entry.Loc)
			if field == "" {
				parts = append(parts, entry.Msg)
				continue
			}
			parts = append(parts, field+": "+entry.Msg)
		}
		return strings.Join(parts, "; ")
	}

	return fallback
}

func lastLocSegment(loc []json.RawMessage) string {
	for i := len(loc) - 1; i >= 0; i-- {
		var s string
		if err := json.Unmarshal(loc[i], &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
