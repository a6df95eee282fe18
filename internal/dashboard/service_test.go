package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/slaapi"
)

type stubAPI struct {
	calls int
	kpis  slaapi.DashboardKPIs
	err   error
}

func (s *stubAPI) Dashboard(_ context.Context, _ string, _ filters.FilterSet) (slaapi.DashboardKPIs, error) {
	s.calls++
	return s.kpis, s.err
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func TestKPIsCachesCompleteSnapshots(t *testing.T) {
	api := &stubAPI{kpis: slaapi.DashboardKPIs{TotalZones: 4, TotalPenalty: 1250.5}}
	svc := NewService(api, newTestCache(t))

	first, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.Equal(t, 4, first.TotalZones)

	second, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, api.calls, "complete snapshot should be served from cache")
}

func TestKPIsNeverCachesPartialSnapshots(t *testing.T) {
	api := &stubAPI{kpis: slaapi.DashboardKPIs{
		TotalZones:   4,
		ErrorDetails: map[string]string{"total_penalty": "query timeout"},
	}}
	svc := NewService(api, newTestCache(t))

	first, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.Equal(t, "query timeout", first.ErrorDetails["total_penalty"])

	_, err = svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.Equal(t, 2, api.calls, "partial snapshot must be re-fetched")
}

func TestKPIsScopeIsolation(t *testing.T) {
	api := &stubAPI{kpis: slaapi.DashboardKPIs{TotalZones: 4}}
	svc := NewService(api, newTestCache(t))

	_, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{ZoneIDs: []int64{1}})
	require.NoError(t, err)
	_, err = svc.KPIs(context.Background(), "tok", filters.FilterSet{ZoneIDs: []int64{2}})
	require.NoError(t, err)
	require.Equal(t, 2, api.calls, "distinct filter scopes use distinct cache keys")
}

func TestInvalidateOrphansCachedSnapshots(t *testing.T) {
	api := &stubAPI{kpis: slaapi.DashboardKPIs{TotalZones: 4}}
	svc := NewService(api, newTestCache(t))

	_, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))

	_, err = svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.Equal(t, 2, api.calls, "version bump must force a fresh fetch")
}

func TestKPIsWithoutCacheFallsThrough(t *testing.T) {
	api := &stubAPI{kpis: slaapi.DashboardKPIs{
		TotalZones:   1,
		ErrorDetails: map[string]string{"total_units": "db offline"},
	}}
	svc := NewService(api, nil)

	got, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.Equal(t, 1, got.TotalZones)
	require.NotEmpty(t, got.ErrorDetails)
}

func TestKPIsPropagatesUpstreamErrors(t *testing.T) {
	api := &stubAPI{err: slaapi.ErrUnavailable}
	svc := NewService(api, newTestCache(t))

	_, err := svc.KPIs(context.Background(), "tok", filters.FilterSet{})
	require.ErrorIs(t, err, slaapi.ErrUnavailable)
}
