package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/news-pulse/internal/breaker"
	"github.com/DjordjeVuckovic/news-pulse/internal/dto"
	"github.com/DjordjeVuckovic/news-pulse/pkg/server"
)

type stubBreakerSource map[string]breaker.Status

func (s stubBreakerSource) Statuses() map[string]breaker.Status { return s }

func getHealth(t *testing.T, hc server.HealthChecker, sources ...BreakerSource) (int, dto.HealthResponse) {
	t.Helper()

	e := echo.New()
	NewHealthRouter(e, hc, sources...).Bind()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealth_OkWithHealthyStorage(t *testing.T) {
	code, resp := getHealth(t, server.NewOkHealthChecker())

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Storage)
}

func TestHealth_DegradedWhenStorageDown(t *testing.T) {
	down := server.FuncHealthChecker(func(context.Context) bool { return false })

	code, resp := getHealth(t, down)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp.Status)
	assert.False(t, resp.Storage)
}

func TestHealth_MergesBreakerSourcesAndStaysOk(t *testing.T) {
	news := stubBreakerSource{
		"newsapi/headlines": {State: breaker.StateOpen, Failures: 3, LastError: "timeout"},
	}
	aiSide := stubBreakerSource{
		"anthropic/summarize": {State: breaker.StateClosed},
	}

	code, resp := getHealth(t, server.NewOkHealthChecker(), news, aiSide)

	assert.Equal(t, http.StatusOK, code, "open circuits alone do not degrade the service")
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Breakers, 2)
	assert.Equal(t, breaker.StateOpen, resp.Breakers["newsapi/headlines"].State)
	assert.Equal(t, breaker.StateClosed, resp.Breakers["anthropic/summarize"].State)
}
