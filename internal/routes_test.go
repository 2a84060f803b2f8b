package internal

import (
	"dashd/internal/controllers"
	"dashd/internal/pipeline"
	"dashd/internal/structures"
	"dashd/internal/testutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routeTestControllers(t *testing.T) (*controllers.ApiController, *controllers.UploadController) {
	t.Helper()

	conf := &structures.Config{
		Upstream:  structures.Upstream{SearchLimit: 50, RequestTimeout: time.Second},
		Downloads: structures.Downloads{Dir: t.TempDir()},
	}
	logger := &testutil.MockLogger{}
	api := &testutil.MockUpstream{}
	usage := &testutil.MockUsageService{}
	docs := &testutil.MockDocStore{}
	metrics := &testutil.MockMetrics{}
	ready := pipeline.NewReadyState()

	files, err := pipeline.NewFileWriter(conf, logger)
	require.NoError(t, err)

	ingester := pipeline.NewIngester(api, usage, files, logger)
	merger := pipeline.NewMerger(files, docs, usage, logger, metrics)

	ac := controllers.NewApiController(conf, logger, api, usage, ready, testutil.NewMockCache(), metrics)
	uc := controllers.NewUploadController(logger, ingester, merger)
	return ac, uc
}

func TestInitRoutes_RegistersAllRoutes(t *testing.T) {
	ac, uc := routeTestControllers(t)

	router := InitRoutes(ac, uc)
	routes := router.GetRoutes()

	// /identity and /upload/error each carry two methods under one URL.
	require.Len(t, routes, 9)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "/status")
	assert.Contains(t, urls, "/search/column")
	assert.Contains(t, urls, "/search/value")
	assert.Contains(t, urls, "/stats")
	assert.Contains(t, urls, "/history")
	assert.Contains(t, urls, "/identity")
	assert.Contains(t, urls, "/upload")
	assert.Contains(t, urls, "/upload/error")
	assert.Contains(t, urls, "/merge")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	ac, uc := routeTestControllers(t)

	router := InitRoutes(ac, uc)
	routes := router.GetRoutes()

	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.Url, r.Handler)
	}

	// GET /status with POST should fail
	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// POST /merge with GET should fail
	req = httptest.NewRequest(http.MethodGet, "/merge", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestInitRoutes_SharedURLDispatchesByMethod(t *testing.T) {
	ac, uc := routeTestControllers(t)

	router := InitRoutes(ac, uc)
	routes := router.GetRoutes()

	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.Url, r.Handler)
	}

	// GET and DELETE share /upload/error
	req := httptest.NewRequest(http.MethodGet, "/upload/error", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/upload/error", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req = httptest.NewRequest(http.MethodPatch, "/upload/error", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
