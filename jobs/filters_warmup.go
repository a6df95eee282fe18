package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sla-console/sla-console/internal/filterbar"
	"github.com/sla-console/sla-console/internal/filters"
	jobmetrics "github.com/sla-console/sla-console/internal/jobs"
	"github.com/sla-console/sla-console/internal/slaapi"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// TokenSource signs the worker in with its service account.
type TokenSource interface {
	Login(ctx context.Context, username, password string) (slaapi.Token, error)
}

// FiltersWarmupJob hydrates the filter option cache so the first page
// load of the day does not pay for the upstream round trips.
type FiltersWarmupJob struct {
	Options  *filterbar.Service
	Tokens   TokenSource
	Username string
	Password string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

func (j *FiltersWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

// NewFiltersWarmupJob wires dependencies for the warmup handler.
func NewFiltersWarmupJob(options *filterbar.Service, tokens TokenSource, username, password string, logger *slog.Logger) *FiltersWarmupJob {
	return &FiltersWarmupJob{
		Options:  options,
		Tokens:   tokens,
		Username: username,
		Password: password,
		Logger:   logger,
	}
}

// Handle processes filter warmup tasks.
func (j *FiltersWarmupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Options == nil {
		return errors.New("filters warmup: handler not configured")
	}
	var payload FiltersWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskFiltersWarmup)
	defer func() { err = tracker.End(err) }()
	if j.Username == "" {
		j.Logger.Info("filters warmup skipped, no service account")
		return nil
	}

	token, err := j.Tokens.Login(ctx, j.Username, j.Password)
	if err != nil {
		return err
	}

	scopes := []filters.FilterSet{{}}
	for _, zoneID := range payload.ZoneIDs {
		scopes = append(scopes, filters.FilterSet{ZoneIDs: []int64{zoneID}})
	}

	warmed := 0
	for _, scope := range scopes {
		if _, err := j.Options.Options(ctx, token.AccessToken, scope); err != nil {
			j.Logger.Warn("filters warmup scope", slog.Any("error", err))
			continue
		}
		warmed++
	}
	j.Logger.Info("filters warmup done", slog.Int("scopes", warmed))
	if warmed == 0 {
		return errors.New("filters warmup: no scope could be warmed")
	}
	return nil
}
