package masterdata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/navigation"
	"github.com/sla-console/sla-console/internal/slaapi"
)

type incidentCall struct {
	status      string
	skip, limit int
}

type stubAPI struct {
	zones, streets, units slaapi.EntityPage
	incidents             slaapi.IncidentPage
	incidentCalls         []incidentCall
}

func (s *stubAPI) Zones(context.Context, string) (slaapi.EntityPage, error)   { return s.zones, nil }
func (s *stubAPI) Streets(context.Context, string) (slaapi.EntityPage, error) { return s.streets, nil }
func (s *stubAPI) Units(context.Context, string) (slaapi.EntityPage, error)   { return s.units, nil }

func (s *stubAPI) Incidents(_ context.Context, _ string, _ filters.FilterSet, status string, skip, limit int) (slaapi.IncidentPage, error) {
	s.incidentCalls = append(s.incidentCalls, incidentCall{status: status, skip: skip, limit: limit})
	return s.incidents, nil
}

func TestEntitiesDispatchesByKind(t *testing.T) {
	api := &stubAPI{
		zones:   slaapi.EntityPage{Rows: []slaapi.Option{{ID: 1, Name: "Marina"}}, TotalCount: 1},
		streets: slaapi.EntityPage{TotalCount: 12},
		units:   slaapi.EntityPage{TotalCount: 30},
	}
	svc := NewService(api)

	zones, err := svc.Entities(context.Background(), "tok", navigation.EntityZone)
	require.NoError(t, err)
	require.Equal(t, "Marina", zones.Rows[0].Name)

	streets, err := svc.Entities(context.Background(), "tok", navigation.EntityStreet)
	require.NoError(t, err)
	require.Equal(t, 12, streets.TotalCount)

	units, err := svc.Entities(context.Background(), "tok", navigation.EntityUnit)
	require.NoError(t, err)
	require.Equal(t, 30, units.TotalCount)
}

func TestEntitiesRejectsUnknownKind(t *testing.T) {
	svc := NewService(&stubAPI{})
	_, err := svc.Entities(context.Background(), "tok", navigation.Entity("camera"))
	require.Error(t, err)
}

func TestIncidentsGrowsFromZero(t *testing.T) {
	api := &stubAPI{incidents: slaapi.IncidentPage{TotalCount: 120}}
	svc := NewService(api)

	_, err := svc.Incidents(context.Background(), "tok", filters.FilterSet{}, navigation.StatusOpen, 0)
	require.NoError(t, err)
	_, err = svc.Incidents(context.Background(), "tok", filters.FilterSet{}, navigation.StatusOpen, 100)
	require.NoError(t, err)

	require.Equal(t, []incidentCall{
		{status: "Open", skip: 0, limit: incidentBatch},
		{status: "Open", skip: 0, limit: 100},
	}, api.incidentCalls)
}

func TestIncidentsStatusAnyOmitsFilter(t *testing.T) {
	api := &stubAPI{}
	svc := NewService(api)

	_, err := svc.Incidents(context.Background(), "tok", filters.FilterSet{}, navigation.StatusAny, 0)
	require.NoError(t, err)
	require.Equal(t, "", api.incidentCalls[0].status)
}
