// Package filterbar loads and caches the pick-list options behind the
// zone/street/unit filter controls shared by the dashboard and report
// views. Options change rarely, so they are cached in Redis and warmed by
// a background job.
package filterbar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
)

const optionsKeyPrefix = "filterbar:options"

// API is the slice of the SLA client the filter bar needs.
type API interface {
	MasterFilters(ctx context.Context, token string, zoneIDs, streetIDs []int64) (slaapi.MasterFilters, error)
}

// Service resolves filter options, cache-aware.
type Service struct {
	api    API
	client *redis.Client
	ttl    time.Duration
}

// NewService constructs the filter bar service. client may be nil, which
// disables caching.
func NewService(api API, client *redis.Client, ttl time.Duration) *Service {
	return &Service{api: api, client: client, ttl: ttl}
}

// Options returns the pick lists scoped to the selected ancestors. The
// cascade keeps dependent lists consistent: a selected zone narrows the
// streets, a selected street narrows the units.
func (s *Service) Options(ctx context.Context, token string, scope filters.FilterSet) (slaapi.MasterFilters, error) {
	if s.api == nil {
		return slaapi.MasterFilters{}, errors.New("filterbar: api not configured")
	}

	key := s.cacheKey(scope)
	if s.client != nil {
		payload, err := s.client.Get(ctx, key).Bytes()
		if err == nil {
			var cached slaapi.MasterFilters
			if jsonErr := json.Unmarshal(payload, &cached); jsonErr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) && ctx.Err() != nil {
			return slaapi.MasterFilters{}, ctx.Err()
		}
	}

	options, err := s.api.MasterFilters(ctx, token, scope.ZoneIDs, scope.StreetIDs)
	if err != nil {
		return slaapi.MasterFilters{}, err
	}

	if s.client != nil {
		if raw, err := json.Marshal(options); err == nil {
			_ = s.client.Set(ctx, key, raw, s.ttl).Err()
		}
	}
	return options, nil
}

// Invalidate drops every cached option scope.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	iter := s.client.Scan(ctx, 0, optionsKeyPrefix+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *Service) cacheKey(scope filters.FilterSet) string {
	return fmt.Sprintf("%s:%s:%s", optionsKeyPrefix, joinIDs(scope.ZoneIDs), joinIDs(scope.StreetIDs))
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return "all"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Tree derives the parent relationships used for cascading clears. The
// scoped option lists returned by the API only contain children of the
// current selection, so membership itself encodes parenthood: a street
// present under a single selected zone belongs to it.
func Tree(scope filters.FilterSet, options slaapi.MasterFilters) filters.OptionTree {
	tree := filters.OptionTree{
		StreetParents: make(map[int64]int64, len(options.Streets)),
		UnitParents:   make(map[int64]int64, len(options.Units)),
	}
	if len(scope.ZoneIDs) == 1 {
		for _, street := range options.Streets {
			tree.StreetParents[street.ID] = scope.ZoneIDs[0]
		}
	}
	if len(scope.StreetIDs) == 1 {
		for _, unit := range options.Units {
			tree.UnitParents[unit.ID] = scope.StreetIDs[0]
		}
	}
	return tree
}

// Dropdowns builds the three pick-list view models for the filter bar.
func Dropdowns(scope filters.FilterSet, options slaapi.MasterFilters) []view.Dropdown {
	return []view.Dropdown{
		view.NewDropdown("zone_id", "Zones", toOptions(options.Zones), scope.ZoneIDs),
		view.NewDropdown("street_id", "Streets", toOptions(options.Streets), scope.StreetIDs),
		view.NewDropdown("unit_id", "Units", toOptions(options.Units), scope.UnitIDs),
	}
}

func toOptions(in []slaapi.Option) []view.DropdownOption {
	out := make([]view.DropdownOption, len(in))
	for i, opt := range in {
		out[i] = view.DropdownOption{ID: opt.ID, Name: opt.Name}
	}
	return out
}
