// Package audit persists a local trail of console actions. The SLA API
// keeps its own records; this trail answers "who did what from here"
// without a round trip upstream.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Actions recorded in the trail.
const (
	ActionLogin    = "login"
	ActionLogout   = "logout"
	ActionWaive    = "waive_penalty"
	ActionRefresh  = "refresh_cache"
	ActionDownload = "download_report"
)

// Entry represents a record stored in audit_log.
type Entry struct {
	Actor  string
	Action string
	Meta   map[string]any
	At     time.Time
}

// Trail writes records into audit_log.
type Trail struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
}

// NewTrail returns a new Trail. pool may be nil, in which case entries
// only reach the structured log.
func NewTrail(logger *slog.Logger, pool *pgxpool.Pool) *Trail {
	return &Trail{logger: logger, pool: pool}
}

// Record persists the entry. Failures are logged and swallowed: the trail
// must never fail the action it describes.
func (t *Trail) Record(ctx context.Context, actor, action string, meta map[string]any) {
	if t == nil {
		return
	}
	entry := Entry{Actor: actor, Action: action, Meta: meta, At: time.Now().UTC()}
	if err := t.insert(ctx, entry); err != nil {
		t.logger.Warn("audit record",
			slog.String("action", action),
			slog.String("actor", actor),
			slog.Any("error", err),
		)
	}
}

func (t *Trail) insert(ctx context.Context, entry Entry) error {
	if entry.Actor == "" || entry.Action == "" {
		return errors.New("audit entry requires actor and action")
	}
	if t.pool == nil {
		t.logger.Info("audit",
			slog.String("action", entry.Action),
			slog.String("actor", entry.Actor),
			slog.Any("meta", entry.Meta),
		)
		return nil
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	_, err = t.pool.Exec(ctx, `INSERT INTO audit_log (actor, action, meta, occurred_at) VALUES ($1, $2, $3, $4)`, entry.Actor, entry.Action, metaJSON, entry.At)
	return err
}
