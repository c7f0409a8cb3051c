package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	mw "github.com/trendsentry/service/internal/api/middleware"
	"github.com/trendsentry/service/internal/api/response"
)

type passCache struct{}

func (passCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (passCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (passCache) Delete(context.Context, string) error                     { return nil }
func (passCache) Ping(context.Context) error                               { return nil }

func (passCache) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) {
	return 1, nil
}

func testDeps() Dependencies {
	return Dependencies{
		Auth:      mw.NewAuth(""),
		RateLimit: mw.NewRateLimit(passCache{}, 100),
		HealthHandler: func(w http.ResponseWriter, r *http.Request) {
			response.JSON(w, map[string]string{"service": "ok"})
		},
	}
}

func TestRouterHealthIsPublic(t *testing.T) {
	router := NewRouter(testDeps())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUnwiredHandlersReturn501(t *testing.T) {
	router := NewRouter(testDeps())

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/alerts"},
		{http.MethodPost, "/api/v1/alerts"},
		{http.MethodPost, "/api/v1/scan"},
		{http.MethodPost, "/api/v1/alerts/abc/analyze"},
		{http.MethodGet, "/api/v1/analyses/pending"},
		{http.MethodPost, "/api/v1/analyses/abc/approve"},
		{http.MethodPost, "/api/v1/analyses/abc/reject"},
		{http.MethodPost, "/api/v1/feedback"},
		{http.MethodGet, "/api/v1/feedback/insights"},
		{http.MethodPost, "/api/v1/reports"},
		{http.MethodGet, "/api/v1/reports/latest"},
		{http.MethodGet, "/api/v1/reports"},
	}

	for _, rt := range routes {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
		assert.Equal(t, http.StatusNotImplemented, w.Code, "%s %s", rt.method, rt.path)
	}
}

func TestRouterWiredHandlerIsCalled(t *testing.T) {
	deps := testDeps()
	deps.ListAlertsHandler = func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, []string{})
	}
	router := NewRouter(deps)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterUnknownRoute404(t *testing.T) {
	router := NewRouter(testDeps())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v2/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
