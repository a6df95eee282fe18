package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sla-console/sla-console/internal/jobs"
)

// refreshWindow is the trailing range the scheduled refresh covers.
const refreshWindow = 30 * 24 * time.Hour

// Invalidator drops one derived cache.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Refresher is the slice of the SLA client the refresh job needs.
type Refresher interface {
	RefreshCache(ctx context.Context, token string, dateFrom, dateTo time.Time) error
}

// CacheRefreshJob asks the SLA API to rebuild its report cache for the
// trailing month, then drops the local KPI and option caches so the next
// page load fetches the rebuilt numbers. Without a service account only
// the local caches are dropped.
type CacheRefreshJob struct {
	API      Refresher
	Tokens   TokenSource
	Username string
	Password string
	Caches   []Invalidator
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Now      func() time.Time
}

func (j *CacheRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CacheRefreshJob) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// NewCacheRefreshJob wires dependencies for the refresh handler.
func NewCacheRefreshJob(api Refresher, tokens TokenSource, username, password string, logger *slog.Logger, caches ...Invalidator) *CacheRefreshJob {
	return &CacheRefreshJob{
		API:      api,
		Tokens:   tokens,
		Username: username,
		Password: password,
		Caches:   caches,
		Logger:   logger,
	}
}

// Handle processes cache refresh tasks.
func (j *CacheRefreshJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("cache refresh: handler not configured")
	}
	var payload CacheRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCacheRefresh)
	defer func() { err = tracker.End(err) }()

	if j.API != nil && j.Username != "" {
		token, err := j.Tokens.Login(ctx, j.Username, j.Password)
		if err != nil {
			return err
		}
		now := j.now()
		if err := j.API.RefreshCache(ctx, token.AccessToken, now.Add(-refreshWindow), now); err != nil {
			return err
		}
	} else {
		j.Logger.Info("cache refresh skipped upstream, no service account")
	}

	var firstErr error
	for _, cache := range j.Caches {
		if err := cache.Invalidate(ctx); err != nil {
			j.Logger.Warn("cache refresh", slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr == nil {
		j.Logger.Info("cache refresh done", slog.Time("requested_at", payload.RequestedAt))
	}
	return firstErr
}
