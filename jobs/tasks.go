// Package jobs holds the background tasks of the console: warming the
// filter option cache and periodically dropping stale KPI snapshots.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskFiltersWarmup pre-populates the filter option cache.
	TaskFiltersWarmup = "filters:warmup"
	// TaskCacheRefresh drops the local KPI and option caches so the next
	// page load fetches fresh numbers.
	TaskCacheRefresh = "cache:refresh"
)

// FiltersWarmupPayload scopes a warmup run.
type FiltersWarmupPayload struct {
	// ZoneIDs optionally restricts the warmed cascade scopes. Empty warms
	// the unfiltered option set only.
	ZoneIDs []int64 `json:"zone_ids,omitempty"`
}

// CacheRefreshPayload bounds the staleness window being cleared.
type CacheRefreshPayload struct {
	RequestedAt time.Time `json:"requested_at"`
}

// NewFiltersWarmupTask constructs an Asynq task.
func NewFiltersWarmupTask(payload FiltersWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFiltersWarmup, data), nil
}

// NewCacheRefreshTask constructs an Asynq task.
func NewCacheRefreshTask(payload CacheRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCacheRefresh, data), nil
}
