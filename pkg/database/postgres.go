package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsqm/pkg/config"
)

// ErrNotConfigured is returned when DATABASE_URL is empty.
// Postgres 는 선택 사항 (결과 테이블 적재용)
var ErrNotConfigured = errors.New("database not configured")

// applicationName tags rsqm sessions in pg_stat_activity
const applicationName = "rsqm"

// connectTimeout bounds the initial ping in New
const connectTimeout = 5 * time.Second

// DB owns the pool shared by the Postgres sink and the retention job
// ⭐ SSOT: DB 연결은 이 패키지에서만 생성
type DB struct {
	Pool *pgxpool.Pool
}

// New opens the pool and pings it once.
// It returns ErrNotConfigured without touching the network when DATABASE_URL is empty.
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	poolCfg, err := poolConfig(cfg.Database)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// poolConfig turns the env settings into a pgxpool config.
// Zero limits keep pgxpool defaults; MinConns never exceeds MaxConns.
func poolConfig(db config.DatabaseConfig) (*pgxpool.Config, error) {
	if !db.Enabled() {
		return nil, ErrNotConfigured
	}

	cfg, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if db.MaxConns > 0 {
		cfg.MaxConns = int32(db.MaxConns)
	}
	if db.MinConns > 0 {
		cfg.MinConns = min(int32(db.MinConns), cfg.MaxConns)
	}
	if db.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = db.MaxConnLifetime
	}
	if db.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = db.MaxConnIdleTime
	}

	// URL 에 지정된 값이 우선
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	return cfg, nil
}

// Close closes the pool. Safe to call more than once.
func (db *DB) Close() {
	if db != nil && db.Pool != nil {
		db.Pool.Close()
	}
}

// HealthStatus is what `rsqm check` reports for the database
type HealthStatus struct {
	Healthy       bool          `json:"healthy"`
	ResponseTime  time.Duration `json:"response_time"`
	ServerVersion string        `json:"server_version,omitempty"`
	TotalConns    int32         `json:"total_conns"`
	IdleConns     int32         `json:"idle_conns"`
	MaxConns      int32         `json:"max_conns"`
	Error         string        `json:"error,omitempty"`
}

// HealthCheck runs one round trip and reports pool usage
func (db *DB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{}

	start := time.Now()
	if err := db.Pool.QueryRow(ctx, "SHOW server_version").Scan(&status.ServerVersion); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("health check query failed: %w", err)
	}
	status.ResponseTime = time.Since(start)

	stat := db.Pool.Stat()
	status.TotalConns = stat.TotalConns()
	status.IdleConns = stat.IdleConns()
	status.MaxConns = stat.MaxConns()
	status.Healthy = true

	return status, nil
}
