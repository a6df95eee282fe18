package filterbar

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/slaapi"
)

type stubAPI struct {
	calls   int
	options slaapi.MasterFilters
	err     error
}

func (s *stubAPI) MasterFilters(ctx context.Context, token string, zoneIDs, streetIDs []int64) (slaapi.MasterFilters, error) {
	s.calls++
	if s.err != nil {
		return slaapi.MasterFilters{}, s.err
	}
	return s.options, nil
}

func testOptions() slaapi.MasterFilters {
	return slaapi.MasterFilters{
		Zones:   []slaapi.Option{{ID: 1, Name: "Zone A"}, {ID: 2, Name: "Zone B"}},
		Streets: []slaapi.Option{{ID: 10, Name: "Corniche Road"}},
		Units:   []slaapi.Option{{ID: 100, Name: "Unit 1"}},
	}
}

func newService(t *testing.T, api API) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewService(api, client, time.Minute)
}

func TestOptionsCachesPerScope(t *testing.T) {
	api := &stubAPI{options: testOptions()}
	svc := newService(t, api)

	scope := filters.FilterSet{ZoneIDs: []int64{1}}
	first, err := svc.Options(context.Background(), "tok", scope)
	require.NoError(t, err)
	second, err := svc.Options(context.Background(), "tok", scope)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, api.calls, "second lookup must be served from cache")

	// A different scope misses the cache.
	_, err = svc.Options(context.Background(), "tok", filters.FilterSet{ZoneIDs: []int64{2}})
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestInvalidateDropsCachedScopes(t *testing.T) {
	api := &stubAPI{options: testOptions()}
	svc := newService(t, api)

	_, err := svc.Options(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(context.Background()))

	_, err = svc.Options(context.Background(), "tok", filters.FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls)
}

func TestTreeAnchorsChildrenToSingleSelection(t *testing.T) {
	scope := filters.FilterSet{ZoneIDs: []int64{1}, StreetIDs: []int64{10}}
	tree := Tree(scope, testOptions())

	assert.Equal(t, int64(1), tree.StreetParents[10])
	assert.Equal(t, int64(10), tree.UnitParents[100])
}

func TestTreeEmptyWithMultiSelection(t *testing.T) {
	scope := filters.FilterSet{ZoneIDs: []int64{1, 2}}
	tree := Tree(scope, testOptions())
	assert.Empty(t, tree.StreetParents)
}

func TestDropdownsMarkSelected(t *testing.T) {
	scope := filters.FilterSet{StreetIDs: []int64{10}}
	dds := Dropdowns(scope, testOptions())
	require.Len(t, dds, 3)
	assert.Equal(t, "zone_id", dds[0].Name)
	assert.True(t, dds[1].Options[0].Selected)
}
