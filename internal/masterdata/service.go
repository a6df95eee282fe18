// Package masterdata serves the drill-down listings behind the dashboard
// KPI cards: zones, streets and units in one shot, incidents in growing
// skip/limit batches.
package masterdata

import (
	"context"
	"fmt"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/navigation"
	"github.com/sla-console/sla-console/internal/slaapi"
)

// incidentBatch is how many incident rows each "load more" adds.
const incidentBatch = 50

// API is the slice of the SLA client master data needs.
type API interface {
	Zones(ctx context.Context, token string) (slaapi.EntityPage, error)
	Streets(ctx context.Context, token string) (slaapi.EntityPage, error)
	Units(ctx context.Context, token string) (slaapi.EntityPage, error)
	Incidents(ctx context.Context, token string, scope filters.FilterSet, status string, skip, limit int) (slaapi.IncidentPage, error)
}

// Service resolves master data listings.
type Service struct {
	api API
}

// NewService constructs the master data service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Entities returns the full listing for one entity kind. These lists are
// small enough that the API serves them without pagination.
func (s *Service) Entities(ctx context.Context, token string, entity navigation.Entity) (slaapi.EntityPage, error) {
	switch entity {
	case navigation.EntityZone:
		return s.api.Zones(ctx, token)
	case navigation.EntityStreet:
		return s.api.Streets(ctx, token)
	case navigation.EntityUnit:
		return s.api.Units(ctx, token)
	default:
		return slaapi.EntityPage{}, fmt.Errorf("masterdata: unknown entity %q", entity)
	}
}

// Incidents returns the first limit rows of the incident listing. A
// growing limit with skip pinned to zero keeps the rendered page a strict
// superset of the previous one, which is what "load more" means.
func (s *Service) Incidents(ctx context.Context, token string, scope filters.FilterSet, status navigation.IncidentStatus, limit int) (slaapi.IncidentPage, error) {
	if limit <= 0 {
		limit = incidentBatch
	}
	return s.api.Incidents(ctx, token, scope, string(status), 0, limit)
}
