package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sla-console/sla-console/internal/dashboard"
	"github.com/sla-console/sla-console/internal/filters"
	"github.com/sla-console/sla-console/internal/shared"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
	_ "github.com/sla-console/sla-console/testing"
)

type captureKPIs struct {
	scopes []filters.FilterSet
}

func (c *captureKPIs) KPIs(_ context.Context, _ string, scope filters.FilterSet) (slaapi.DashboardKPIs, error) {
	c.scopes = append(c.scopes, scope.Clone())
	return slaapi.DashboardKPIs{TotalZones: 3}, nil
}

type zoneScopedOptions struct {
	calls []filters.FilterSet
}

func (s *zoneScopedOptions) Options(_ context.Context, _ string, scope filters.FilterSet) (slaapi.MasterFilters, error) {
	s.calls = append(s.calls, scope.Clone())
	byZone := map[int64][]slaapi.Option{
		1: {{ID: 10, Name: "Corniche Road"}},
		2: {{ID: 20, Name: "Marina Walk"}},
	}
	out := slaapi.MasterFilters{
		Zones: []slaapi.Option{{ID: 1, Name: "Zone A"}, {ID: 2, Name: "Zone B"}},
	}
	if len(scope.ZoneIDs) == 1 {
		out.Streets = byZone[scope.ZoneIDs[0]]
	} else {
		out.Streets = append(byZone[1], byZone[2]...)
	}
	return out, nil
}

func newDashboardRouter(t *testing.T, kpis *captureKPIs, opts *zoneScopedOptions) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	templates, err := view.NewEngine()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := dashboard.NewHandler(logger, kpis, opts, templates, csrfManager, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	router := chi.NewRouter()
	handler.MountRoutes(router)
	return router, sessionManager
}

func dashboardRequest(t *testing.T, sm *shared.SessionManager, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestDashboardClearsOrphanedStreetBeforeKPIFetch(t *testing.T) {
	kpis := &captureKPIs{}
	opts := &zoneScopedOptions{}
	router, sessionManager := newDashboardRouter(t, kpis, opts)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, dashboardRequest(t, sessionManager, "/?zone_id=2&street_id=10"))

	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, kpis.scopes, 1)
	assert.Equal(t, []int64{2}, kpis.scopes[0].ZoneIDs)
	assert.Empty(t, kpis.scopes[0].StreetIDs, "orphaned street must not reach the KPI endpoint")
	require.Len(t, opts.calls, 2)
	assert.Empty(t, opts.calls[1].StreetIDs)
}

func TestDashboardValidScopePassesThrough(t *testing.T) {
	kpis := &captureKPIs{}
	opts := &zoneScopedOptions{}
	router, sessionManager := newDashboardRouter(t, kpis, opts)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, dashboardRequest(t, sessionManager, "/?zone_id=2&street_id=20"))

	require.Equal(t, http.StatusOK, res.Code)
	require.Len(t, kpis.scopes, 1)
	assert.Equal(t, []int64{20}, kpis.scopes[0].StreetIDs)
	assert.Len(t, opts.calls, 1)
}
