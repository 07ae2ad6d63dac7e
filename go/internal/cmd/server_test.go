package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/lotto/go/internal/admin"
	"github.com/mcdev12/lotto/go/internal/metrics"
	"github.com/mcdev12/lotto/go/internal/transport/gateway"
	"github.com/stretchr/testify/assert"
)

func TestServerRoutes(t *testing.T) {
	services := &Services{
		Admin:   admin.NewHandler(nil, ""),
		Metrics: metrics.NewPrometheus(),
		Gateway: gateway.NewConnectionManager(gateway.DefaultConnectionConfig()),
	}
	server := setupServer("0", services)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lotto_")

	rec = get("/ws/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_connections")

	assert.Equal(t, http.StatusNotFound, get("/admin/promos/active").Code)
}
