package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/export"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int32
	configs []brain.RunConfig
	err     error
	gate    chan struct{} // blocks Run until closed, when set
}

func (r *fakeRunner) Run(_ context.Context, config brain.RunConfig) (*brain.RunResult, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.configs = append(r.configs, config)
	r.mu.Unlock()
	if r.gate != nil {
		<-r.gate
	}

	table := sampleTable(config.Scope)
	result := &brain.RunResult{
		RunID:  table.RunID,
		Scope:  config.Scope,
		Status: contracts.RunStatusCompleted,
		Full:   table,
		Top:    table,
	}
	if r.err != nil {
		result.Status = contracts.RunStatusFailed
		result.Error = r.err.Error()
	}
	return result, r.err
}

type fakeArchive struct {
	table *contracts.RankedTable
	err   error
}

func (a *fakeArchive) Latest(_ context.Context, scope int) (*contracts.RankedTable, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.table == nil || a.table.Scope != scope {
		return nil, export.ErrNoWatchlist
	}
	return a.table, nil
}

func sampleTable(scope int) *contracts.RankedTable {
	return &contracts.RankedTable{
		RunID:     "run-1",
		AsOf:      time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Scope:     scope,
		Lookbacks: contracts.DefaultLookbacks(),
		Rows: []contracts.InstrumentRecord{{
			Symbol:       "TRENT.NS",
			AbsReturns:   map[string]contracts.NullFloat{"30D": contracts.Some(10)},
			RelStrengths: map[string]contracts.NullFloat{"30D": contracts.Some(2)},
			Score:        contracts.Some(2),
			Rank:         1,
		}},
	}
}

func newRouter(h *WatchlistHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/watchlist/{scope}", h.Latest).Methods(http.MethodGet)
	r.HandleFunc("/api/watchlist/{scope}/scan", h.Scan).Methods(http.MethodPost)
	return r
}

func serve(r http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestScan(t *testing.T) {
	runner := &fakeRunner{}
	base := brain.RunConfig{Benchmark: "^NSEI", TopK: 15, RunID: "stale"}
	h := NewWatchlistHandler(runner, base, nil)
	r := newRouter(h)

	rec := serve(r, http.MethodPost, "/api/watchlist/100/scan?top_k=5")
	require.Equal(t, http.StatusOK, rec.Code)

	var result brain.RunResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, contracts.RunStatusCompleted, result.Status)
	assert.Equal(t, "TRENT.NS", result.Top.Rows[0].Symbol)
	assert.Equal(t, 2.0, result.Top.Rows[0].Score.OrElse(0))

	require.Len(t, runner.configs, 1)
	assert.Equal(t, 100, runner.configs[0].Scope)
	assert.Equal(t, 5, runner.configs[0].TopK)
	assert.Equal(t, "^NSEI", runner.configs[0].Benchmark)
	assert.Empty(t, runner.configs[0].RunID)

	// published as the latest table for the scope
	rec = serve(r, http.MethodGet, "/api/watchlist/100")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "TRENT.NS")
}

func TestScan_DryRunNotPublished(t *testing.T) {
	h := NewWatchlistHandler(&fakeRunner{}, brain.RunConfig{}, nil)
	r := newRouter(h)

	rec := serve(r, http.MethodPost, "/api/watchlist/50/scan?dry_run=true")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(r, http.MethodGet, "/api/watchlist/50")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScan_BadRequest(t *testing.T) {
	r := newRouter(NewWatchlistHandler(&fakeRunner{}, brain.RunConfig{}, nil))

	tests := []struct {
		name   string
		target string
	}{
		{"unsupported scope", "/api/watchlist/75/scan"},
		{"negative top_k", "/api/watchlist/50/scan?top_k=-1"},
		{"bad top_k", "/api/watchlist/50/scan?top_k=abc"},
		{"bad dry_run", "/api/watchlist/50/scan?dry_run=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(r, http.MethodPost, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestScan_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"universe unavailable", contracts.ErrUniverseUnavailable, http.StatusBadGateway},
		{"empty universe", contracts.ErrEmptyUniverse, http.StatusBadGateway},
		{"no usable symbols", contracts.ErrNoUsableSymbols, http.StatusOK},
		{"export failure", errors.New("S5 failed: disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(NewWatchlistHandler(&fakeRunner{err: tt.err}, brain.RunConfig{}, nil))

			rec := serve(r, http.MethodPost, "/api/watchlist/50/scan")
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"run_id"`)
		})
	}
}

func TestScan_ConcurrentRequestsShareOneRun(t *testing.T) {
	runner := &fakeRunner{gate: make(chan struct{})}
	r := newRouter(NewWatchlistHandler(runner, brain.RunConfig{}, nil))

	const n = 5
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = serve(r, http.MethodPost, "/api/watchlist/50/scan").Code
		}(i)
	}

	// 첫 호출이 진입할 때까지 대기 후 해제
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runner.calls) >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(runner.gate)
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&runner.calls), int32(n))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runner.calls), int32(1))
}

func TestLatest(t *testing.T) {
	archive := &fakeArchive{table: sampleTable(200)}
	h := NewWatchlistHandler(&fakeRunner{}, brain.RunConfig{}, nil).WithArchive(archive)
	r := newRouter(h)

	t.Run("json from archive", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "/api/watchlist/200")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var table contracts.RankedTable
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
		assert.Equal(t, "run-1", table.RunID)
		assert.False(t, table.Rows[0].AbsReturns["90D"].Valid())
	})

	t.Run("csv", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "/api/watchlist/200?format=csv")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "RSQM_watchlist_Nifty200.csv")
		lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "Ticker,AbsRet_30D"))
		assert.True(t, strings.HasPrefix(lines[1], "TRENT.NS,10.00,2.00"))
	})

	t.Run("html", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "/api/watchlist/200?format=html")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "stockTable")
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "/api/watchlist/200?format=pdf")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("nothing stored", func(t *testing.T) {
		rec := serve(r, http.MethodGet, "/api/watchlist/500")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestLatest_ArchiveError(t *testing.T) {
	h := NewWatchlistHandler(&fakeRunner{}, brain.RunConfig{}, nil).
		WithArchive(&fakeArchive{err: errors.New("connection refused")})

	rec := serve(newRouter(h), http.MethodGet, "/api/watchlist/50")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPublish_IgnoresRunsWithoutTable(t *testing.T) {
	h := NewWatchlistHandler(&fakeRunner{}, brain.RunConfig{}, nil)
	h.Publish(context.Background(), nil)
	h.Publish(context.Background(), &brain.RunResult{Scope: 50})

	rec := serve(newRouter(h), http.MethodGet, "/api/watchlist/50")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
