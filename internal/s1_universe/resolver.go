package s1_universe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/pkg/httputil"
	"github.com/wonny/rsqm/pkg/logger"
	"github.com/wonny/rsqm/pkg/redis"
)

// Config holds universe source settings
type Config struct {
	LocalDir   string // ind_nifty<scope>list.csv 를 먼저 찾는 디렉토리
	ArchiveURL string // NSE archive directory (remote CSV)
	HTMLURL    string // optional constituents page, "{scope}" placeholder
	Suffix     string // exchange suffix appended to every symbol
}

// Resolver builds the evaluation universe for a scope
// ⭐ SSOT: S1 유니버스 결정 (로컬 → 원격 CSV → 원격 HTML)
type Resolver struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
	config     Config
	now        func() time.Time
}

// NewResolver creates a new Resolver
func NewResolver(httpClient *httputil.Client, config Config, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		httpClient: httpClient,
		logger:     log.WithField("module", "s1_universe"),
		config:     config,
		now:        time.Now,
	}
}

// WithCache enables a same-day cache of remotely resolved lists
func (r *Resolver) WithCache(cache *redis.Cache) *Resolver {
	r.cache = cache
	return r
}

// FileName returns the NSE list file name for a scope
func FileName(scope int) string {
	return fmt.Sprintf("ind_nifty%dlist.csv", scope)
}

// source is one step in the fallback chain
type source struct {
	name  string
	fetch func(ctx context.Context, scope int) ([]string, string, error)
}

// Resolve returns the ordered, de-duplicated universe for scope.
// 모든 소스 실패 시 ErrUniverseUnavailable, 목록이 비면 ErrEmptyUniverse
func (r *Resolver) Resolve(ctx context.Context, scope int) (*contracts.Universe, error) {
	if !contracts.IsValidScope(scope) {
		return nil, fmt.Errorf("invalid scope %d: must be one of %v", scope, contracts.ValidScopes)
	}

	sources := []source{
		{name: "local", fetch: r.fromLocal},
		{name: "cache", fetch: r.fromCache},
		{name: "remote_csv", fetch: r.fromRemoteCSV},
		{name: "remote_html", fetch: r.fromRemoteHTML},
	}

	var lastErr error
	for _, src := range sources {
		raw, location, err := src.fetch(ctx, scope)
		if errors.Is(err, errSkipSource) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.WithFields(map[string]interface{}{
				"scope":  scope,
				"source": src.name,
				"error":  err.Error(),
			}).Warn("Universe source failed, trying next")
			lastErr = err
			continue
		}

		symbols, excluded := Normalize(raw, r.config.Suffix)
		universe := &contracts.Universe{
			Date:     r.now(),
			Scope:    scope,
			Source:   location,
			Symbols:  symbols,
			Excluded: excluded,
		}
		if err := universe.Validate(); err != nil {
			return nil, fmt.Errorf("nifty%d from %s: %w", scope, location, err)
		}

		if src.name != "local" && src.name != "cache" {
			r.store(ctx, scope, raw)
		}

		r.logger.WithFields(map[string]interface{}{
			"scope":    scope,
			"source":   location,
			"symbols":  len(symbols),
			"excluded": len(excluded),
		}).Info("Universe resolved")

		return universe, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no source configured")
	}
	return nil, fmt.Errorf("%w: nifty%d: %v", contracts.ErrUniverseUnavailable, scope, lastErr)
}

// errSkipSource marks a source that is not configured or has nothing to offer
var errSkipSource = errors.New("skip source")

func (r *Resolver) fromLocal(_ context.Context, scope int) ([]string, string, error) {
	dir := r.config.LocalDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, FileName(scope))

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		r.logger.WithField("path", path).Debug("Local universe file not found")
		return nil, "", errSkipSource
	}
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	symbols, err := ParseCSV(f)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return symbols, path, nil
}

func (r *Resolver) fromCache(ctx context.Context, scope int) ([]string, string, error) {
	if !r.cache.Enabled() {
		return nil, "", errSkipSource
	}

	var symbols []string
	key := redis.UniverseKey(strconv.Itoa(scope), r.now().Format("2006-01-02"))
	found, err := r.cache.Get(ctx, key, &symbols)
	if err != nil || !found {
		return nil, "", errSkipSource
	}
	return symbols, "redis:" + key, nil
}

func (r *Resolver) store(ctx context.Context, scope int, raw []string) {
	if !r.cache.Enabled() {
		return
	}
	key := redis.UniverseKey(strconv.Itoa(scope), r.now().Format("2006-01-02"))
	if err := r.cache.Set(ctx, key, raw, redis.TTLDaily); err != nil {
		r.logger.WithError(err).Warn("Failed to cache universe")
	}
}

func (r *Resolver) fromRemoteCSV(ctx context.Context, scope int) ([]string, string, error) {
	if r.config.ArchiveURL == "" || r.httpClient == nil {
		return nil, "", errSkipSource
	}
	url := strings.TrimRight(r.config.ArchiveURL, "/") + "/" + FileName(scope)

	body, err := r.httpClient.GetBytes(ctx, url)
	if err != nil {
		return nil, "", err
	}

	symbols, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", url, err)
	}
	return symbols, url, nil
}

func (r *Resolver) fromRemoteHTML(ctx context.Context, scope int) ([]string, string, error) {
	if r.config.HTMLURL == "" || r.httpClient == nil {
		return nil, "", errSkipSource
	}
	url := strings.ReplaceAll(r.config.HTMLURL, "{scope}", strconv.Itoa(scope))

	body, err := r.httpClient.GetBytes(ctx, url)
	if err != nil {
		return nil, "", err
	}

	symbols, err := ParseHTML(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", url, err)
	}
	return symbols, url, nil
}
