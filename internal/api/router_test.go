package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/rsqm/internal/api/handlers"
	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/internal/scheduler"
	"github.com/wonny/rsqm/pkg/logger"
)

func TestRouter(t *testing.T) {
	watchlist := handlers.NewWatchlistHandler(nil, brain.RunConfig{}, nil)
	sched := scheduler.New(time.UTC, nil)
	router := NewRouter(watchlist, handlers.NewJobsHandler(sched), nil)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"jobs", http.MethodGet, "/api/jobs", http.StatusOK},
		{"latest missing", http.MethodGet, "/api/watchlist/50", http.StatusNotFound},
		{"non-numeric scope", http.MethodGet, "/api/watchlist/abc", http.StatusNotFound},
		{"scan needs POST", http.MethodGet, "/api/watchlist/50/scan", http.StatusMethodNotAllowed},
		{"latest is read-only", http.MethodDelete, "/api/watchlist/50", http.StatusMethodNotAllowed},
		{"jobs is read-only", http.MethodPost, "/api/jobs", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_WithoutScheduler(t *testing.T) {
	router := NewRouter(handlers.NewWatchlistHandler(nil, brain.RunConfig{}, nil), nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
