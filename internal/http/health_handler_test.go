package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHealthRouter(h *HealthHandler) *Router {
	router := NewRouter(zap.NewNop())
	router.RegisterHealthRoutes(h)
	return router
}

func TestHealthCheck_Healthy(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	h.AddCheck("redis", func(context.Context) error { return nil })

	rr := do(t, newHealthRouter(h), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Services["redis"])
}

func TestHealthCheck_NoChecks(t *testing.T) {
	rr := do(t, newHealthRouter(NewHealthHandler(zap.NewNop())), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	h := NewHealthHandler(zap.NewNop())
	h.AddCheck("redis", func(context.Context) error { return nil })
	h.AddCheck("mqtt", func(context.Context) error { return errors.New("not connected") })

	rr := do(t, newHealthRouter(h), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp HealthCheckResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy: not connected", resp.Services["mqtt"])
	assert.Equal(t, "healthy", resp.Services["redis"])
}
