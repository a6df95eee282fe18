// Package dashboard renders the KPI landing page of the console.
package dashboard

import (
	"context"
	"errors"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/slaapi"
)

// API is the slice of the SLA client the dashboard needs.
type API interface {
	Dashboard(ctx context.Context, token string, scope filters.FilterSet) (slaapi.DashboardKPIs, error)
}

// Service resolves the KPI snapshot, cache-aware.
type Service struct {
	api   API
	cache *Cache
}

// NewService constructs the dashboard service. cache may be nil.
func NewService(api API, cache *Cache) *Service {
	return &Service{api: api, cache: cache}
}

// KPIs returns the aggregate snapshot for the filter scope. Snapshots with
// partial failures are returned but never cached, so the next request has
// a chance to come back complete.
func (s *Service) KPIs(ctx context.Context, token string, scope filters.FilterSet) (slaapi.DashboardKPIs, error) {
	if s.api == nil {
		return slaapi.DashboardKPIs{}, errors.New("dashboard: api not configured")
	}

	loader := func(ctx context.Context) (any, error) {
		kpis, err := s.api.Dashboard(ctx, token, scope)
		if err != nil {
			return slaapi.DashboardKPIs{}, err
		}
		if len(kpis.ErrorDetails) > 0 {
			return kpis, errPartial{kpis: kpis}
		}
		return kpis, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		kpis, _ := value.(slaapi.DashboardKPIs)
		var partial errPartial
		if errors.As(err, &partial) {
			return partial.kpis, nil
		}
		return kpis, err
	}

	key, err := s.cache.BuildKey(ctx, "dashboard", "kpi", scope.Encode().Encode())
	if err != nil {
		return slaapi.DashboardKPIs{}, err
	}

	var kpis slaapi.DashboardKPIs
	if err := s.cache.FetchJSON(ctx, key, &kpis, loader); err != nil {
		var partial errPartial
		if errors.As(err, &partial) {
			return partial.kpis, nil
		}
		return slaapi.DashboardKPIs{}, err
	}
	return kpis, nil
}

// Invalidate bumps the KPI cache version.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// errPartial smuggles a partially failed snapshot through the cache loader
// without it being stored.
type errPartial struct {
	kpis slaapi.DashboardKPIs
}

func (e errPartial) Error() string { return "dashboard: partial kpi response" }
