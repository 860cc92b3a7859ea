package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/rsqm/internal/brain"
	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/export"
	"github.com/wonny/rsqm/pkg/logger"
	"github.com/wonny/rsqm/pkg/redis"
)

// Runner executes one pipeline run
type Runner interface {
	Run(ctx context.Context, config brain.RunConfig) (*brain.RunResult, error)
}

// LatestReader loads the last stored table of a scope
type LatestReader interface {
	Latest(ctx context.Context, scope int) (*contracts.RankedTable, error)
}

// WatchlistHandler serves ranked watchlists
// ⭐ SSOT: 워치리스트 API 핸들러는 이 구조체에서만
type WatchlistHandler struct {
	runner  Runner
	base    brain.RunConfig
	archive LatestReader // optional (Postgres)
	cache   *redis.Cache // optional
	timeout time.Duration
	logger  *logger.Logger

	group  singleflight.Group
	mu     sync.RWMutex
	latest map[int]*contracts.RankedTable
}

// NewWatchlistHandler creates a new watchlist handler.
// base carries the strategy defaults every on-demand scan starts from.
func NewWatchlistHandler(runner Runner, base brain.RunConfig, log *logger.Logger) *WatchlistHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WatchlistHandler{
		runner:  runner,
		base:    base,
		timeout: 5 * time.Minute,
		logger:  log.WithField("module", "api.watchlist"),
		latest:  make(map[int]*contracts.RankedTable),
	}
}

// WithArchive sets the store consulted when nothing is held in memory
func (h *WatchlistHandler) WithArchive(archive LatestReader) *WatchlistHandler {
	h.archive = archive
	return h
}

// WithCache shares the latest tables across instances through Redis
func (h *WatchlistHandler) WithCache(cache *redis.Cache) *WatchlistHandler {
	h.cache = cache
	return h
}

// WithTimeout bounds one on-demand scan
func (h *WatchlistHandler) WithTimeout(timeout time.Duration) *WatchlistHandler {
	h.timeout = timeout
	return h
}

// Publish records the exported table of a finished run as the latest for its scope
func (h *WatchlistHandler) Publish(ctx context.Context, result *brain.RunResult) {
	if result == nil || result.Top == nil {
		return
	}

	h.mu.Lock()
	h.latest[result.Scope] = result.Top
	h.mu.Unlock()

	key := redis.WatchlistKey(strconv.Itoa(result.Scope))
	if err := h.cache.Set(ctx, key, result.Top, redis.TTLDaily); err != nil {
		h.logger.WithError(err).WithField("key", key).Warn("Failed to cache watchlist")
	}
}

// Scan runs the pipeline for a scope and returns the run result.
// Concurrent requests for the same scope and options share one run.
// POST /api/watchlist/{scope}/scan?top_k=15&dry_run=true
func (h *WatchlistHandler) Scan(w http.ResponseWriter, r *http.Request) {
	scope, err := contracts.ParseScope(mux.Vars(r)["scope"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	config := h.base
	config.Scope = scope
	config.RunID = ""
	config.Date = time.Time{}

	q := r.URL.Query()
	if raw := q.Get("top_k"); raw != "" {
		topK, err := strconv.Atoi(raw)
		if err != nil || topK < 0 {
			respondError(w, http.StatusBadRequest, "top_k must be a non-negative integer")
			return
		}
		config.TopK = topK
	}
	if raw := q.Get("dry_run"); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "dry_run must be a boolean")
			return
		}
		config.DryRun = dryRun
	}

	key := fmt.Sprintf("%d:%d:%t", config.Scope, config.TopK, config.DryRun)
	v, err, shared := h.group.Do(key, func() (interface{}, error) {
		// 요청이 끊겨도 공유 중인 실행은 계속되어야 함
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
		defer cancel()

		result, err := h.runner.Run(ctx, config)
		if err == nil && !config.DryRun {
			h.Publish(ctx, result)
		}
		return result, err
	})

	result, _ := v.(*brain.RunResult)
	log := h.logger.WithFields(map[string]interface{}{
		"scope":  scope,
		"shared": shared,
	})

	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, result)
	case result == nil:
		log.WithError(err).Error("Scan did not run")
		respondError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, contracts.ErrNoUsableSymbols):
		respondJSON(w, http.StatusOK, result)
	case errors.Is(err, contracts.ErrEmptyUniverse), errors.Is(err, contracts.ErrUniverseUnavailable):
		log.WithError(err).Warn("Scan failed at universe")
		respondJSON(w, http.StatusBadGateway, result)
	default:
		log.WithError(err).Error("Scan failed")
		respondJSON(w, http.StatusInternalServerError, result)
	}
}

// Latest returns the last exported table for a scope.
// GET /api/watchlist/{scope}?format=json|csv|html
func (h *WatchlistHandler) Latest(w http.ResponseWriter, r *http.Request) {
	scope, err := contracts.ParseScope(mux.Vars(r)["scope"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, err := h.lookup(r.Context(), scope)
	if err != nil {
		h.logger.WithError(err).WithField("scope", scope).Error("Failed to load watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to load watchlist")
		return
	}
	if table == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no watchlist for nifty%d yet", scope))
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		respondJSON(w, http.StatusOK, table)
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+export.FileName("", scope, "csv"))
		if err := export.WriteCSV(w, table); err != nil {
			h.logger.WithError(err).Error("Failed to write CSV")
		}
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := export.WriteHTML(w, table); err != nil {
			h.logger.WithError(err).Error("Failed to write HTML")
		}
	default:
		respondError(w, http.StatusBadRequest, "format must be json, csv or html")
	}
}

// lookup checks memory, then Redis, then the archive. (nil, nil) means nothing stored.
func (h *WatchlistHandler) lookup(ctx context.Context, scope int) (*contracts.RankedTable, error) {
	h.mu.RLock()
	table := h.latest[scope]
	h.mu.RUnlock()
	if table != nil {
		return table, nil
	}

	var cached contracts.RankedTable
	found, err := h.cache.Get(ctx, redis.WatchlistKey(strconv.Itoa(scope)), &cached)
	if err != nil {
		h.logger.WithError(err).Warn("Cached watchlist unreadable")
	}
	if found {
		return &cached, nil
	}

	if h.archive == nil {
		return nil, nil
	}
	table, err = h.archive.Latest(ctx, scope)
	if errors.Is(err, export.ErrNoWatchlist) {
		return nil, nil
	}
	return table, err
}
