package health_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riskmesh/riskmesh/internal/health"
)

type fakeCheck struct {
	name   string
	status health.Status
}

func (f fakeCheck) Name() string { return f.name }
func (f fakeCheck) Check(_ context.Context) health.Result {
	return health.Result{Name: f.name, Status: f.status}
}

func TestOverallHealthyWhenAllChecksHealthy(t *testing.T) {
	hc := health.NewChecker()
	hc.Register(fakeCheck{name: "a", status: health.StatusHealthy})
	hc.Register(fakeCheck{name: "b", status: health.StatusHealthy})

	results := hc.Run(context.Background())
	require.Len(t, results, 2)
	require.Equal(t, health.StatusHealthy, hc.Overall(results))
}

func TestOverallDegradedWhenOneDegraded(t *testing.T) {
	hc := health.NewChecker()
	hc.Register(fakeCheck{name: "a", status: health.StatusHealthy})
	hc.Register(fakeCheck{name: "b", status: health.StatusDegraded})

	results := hc.Run(context.Background())
	require.Equal(t, health.StatusDegraded, hc.Overall(results))
}

func TestOverallUnhealthyTakesPriorityOverDegraded(t *testing.T) {
	hc := health.NewChecker()
	hc.Register(fakeCheck{name: "a", status: health.StatusDegraded})
	hc.Register(fakeCheck{name: "b", status: health.StatusUnhealthy})

	results := hc.Run(context.Background())
	require.Equal(t, health.StatusUnhealthy, hc.Overall(results))
}

func TestEventBusCheckDegradedWhenNilNotUnhealthy(t *testing.T) {
	c := &health.EventBusCheck{Bus: nil}
	res := c.Check(context.Background())
	require.Equal(t, health.StatusDegraded, res.Status)
}

func TestLivenessHandlerAlwaysOK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	w := httptest.NewRecorder()
	health.LivenessHandler()(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessHandlerReturns503WhenUnhealthy(t *testing.T) {
	hc := health.NewChecker()
	hc.Register(fakeCheck{name: "sink", status: health.StatusUnhealthy})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	hc.ReadinessHandler()(w, req)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadinessHandlerReturns200WhenHealthy(t *testing.T) {
	hc := health.NewChecker()
	hc.Register(fakeCheck{name: "cache", status: health.StatusHealthy})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	hc.ReadinessHandler()(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
