package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/strategyconfig"
	"github.com/wonny/rsqm/pkg/logger"
)

// WatchlistTable is the final-table sink
const WatchlistTable = "rsqm.watchlist"

// ErrNoWatchlist is returned by Latest when nothing was exported for a scope
var ErrNoWatchlist = errors.New("no watchlist stored")

// Every export writes one rsqm.watchlist_runs row, even for an empty table,
// so Latest reflects the newest run rather than the newest non-empty one.
const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS rsqm;
CREATE TABLE IF NOT EXISTS rsqm.watchlist_runs (
	run_id     UUID        PRIMARY KEY,
	scope      INTEGER     NOT NULL,
	as_of      TIMESTAMPTZ NOT NULL,
	row_count  INTEGER     NOT NULL,
	lookbacks  JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS watchlist_runs_scope_as_of_idx ON rsqm.watchlist_runs (scope, as_of DESC, created_at DESC);
CREATE TABLE IF NOT EXISTS rsqm.watchlist (
	run_id        UUID             NOT NULL REFERENCES rsqm.watchlist_runs (run_id) ON DELETE CASCADE,
	ticker        TEXT             NOT NULL,
	rank          INTEGER          NOT NULL,
	rs_score      DOUBLE PRECISION,
	abs_returns   JSONB            NOT NULL,
	rel_strengths JSONB            NOT NULL,
	PRIMARY KEY (run_id, ticker)
);
`

// PostgresExporter upserts the exported rows into rsqm.watchlist
// ⭐ SSOT: 결과 테이블 DB 저장/조회는 여기서만
type PostgresExporter struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresExporter creates a new Postgres sink
func NewPostgresExporter(pool *pgxpool.Pool, log *logger.Logger) *PostgresExporter {
	if log == nil {
		log = logger.Nop()
	}
	return &PostgresExporter{
		pool:   pool,
		logger: log.WithField("module", "export.postgres"),
	}
}

// Name returns the format name
func (e *PostgresExporter) Name() string {
	return strategyconfig.FormatPostgres
}

// EnsureSchema creates the schema and table when missing
func (e *PostgresExporter) EnsureSchema(ctx context.Context) error {
	if _, err := e.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create watchlist table: %w", err)
	}
	return nil
}

// watchlistRow is one row as stored; nil pointers become SQL NULL
type watchlistRow struct {
	Ticker       string
	Rank         int
	Score        *float64
	AbsReturns   []byte
	RelStrengths []byte
}

func toRow(rec contracts.InstrumentRecord) (watchlistRow, error) {
	abs, err := json.Marshal(rec.AbsReturns)
	if err != nil {
		return watchlistRow{}, err
	}
	rel, err := json.Marshal(rec.RelStrengths)
	if err != nil {
		return watchlistRow{}, err
	}

	row := watchlistRow{Ticker: rec.Symbol, Rank: rec.Rank, AbsReturns: abs, RelStrengths: rel}
	if v, ok := rec.Score.Get(); ok {
		row.Score = &v
	}
	return row, nil
}

// Export stores the run marker and its rows in one transaction.
// Re-exporting a run id replaces its rows.
func (e *PostgresExporter) Export(ctx context.Context, table *contracts.RankedTable) (string, error) {
	if table.RunID == "" {
		return "", fmt.Errorf("postgres export: run id is required")
	}
	if err := e.EnsureSchema(ctx); err != nil {
		return "", err
	}

	lookbacks, err := json.Marshal(table.Lookbacks)
	if err != nil {
		return "", fmt.Errorf("failed to marshal lookbacks: %w", err)
	}

	asOf := table.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}

	// Begin transaction
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO rsqm.watchlist_runs (run_id, scope, as_of, row_count, lookbacks)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			scope = EXCLUDED.scope,
			as_of = EXCLUDED.as_of,
			row_count = EXCLUDED.row_count,
			lookbacks = EXCLUDED.lookbacks,
			created_at = NOW()
	`, table.RunID, table.Scope, asOf, len(table.Rows), string(lookbacks))
	if err != nil {
		return "", fmt.Errorf("failed to store run %s: %w", table.RunID, err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM rsqm.watchlist WHERE run_id = $1", table.RunID); err != nil {
		return "", fmt.Errorf("failed to clear rows of run %s: %w", table.RunID, err)
	}

	query := `
		INSERT INTO rsqm.watchlist (
			run_id, ticker, rank, rs_score, abs_returns, rel_strengths
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, rec := range table.Rows {
		row, err := toRow(rec)
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", rec.Symbol, err)
		}
		batch.Queue(query,
			table.RunID, row.Ticker, row.Rank, row.Score,
			string(row.AbsReturns), string(row.RelStrengths),
		)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return "", fmt.Errorf("failed to insert watchlist rows: %w", err)
		}
	}

	// Commit transaction
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"run_id": table.RunID,
		"scope":  table.Scope,
		"rows":   len(table.Rows),
	}).Info("Watchlist stored")

	return fmt.Sprintf("postgres:%s#%s", WatchlistTable, table.RunID), nil
}

// Prune deletes runs stored before cutoff and returns the number of runs removed.
// Their rows go with them (ON DELETE CASCADE).
func (e *PostgresExporter) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := e.pool.Exec(ctx, "DELETE FROM rsqm.watchlist_runs WHERE as_of < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune watchlist: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Latest loads the most recently exported table for scope.
// The table has no rows when the newest run ranked nothing.
func (e *PostgresExporter) Latest(ctx context.Context, scope int) (*contracts.RankedTable, error) {
	table := &contracts.RankedTable{Scope: scope}

	var lookbacks []byte
	err := e.pool.QueryRow(ctx, `
		SELECT run_id::text, as_of, lookbacks
		FROM rsqm.watchlist_runs
		WHERE scope = $1
		ORDER BY as_of DESC, created_at DESC
		LIMIT 1
	`, scope).Scan(&table.RunID, &table.AsOf, &lookbacks)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoWatchlist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	if err := json.Unmarshal(lookbacks, &table.Lookbacks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lookbacks: %w", err)
	}

	rows, err := e.pool.Query(ctx, `
		SELECT ticker, rank, rs_score, abs_returns, rel_strengths
		FROM rsqm.watchlist
		WHERE run_id = $1
		ORDER BY rank ASC
	`, table.RunID)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec      contracts.InstrumentRecord
			score    *float64
			abs, rel []byte
		)
		if err := rows.Scan(&rec.Symbol, &rec.Rank, &score, &abs, &rel); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal(abs, &rec.AbsReturns); err != nil {
			return nil, fmt.Errorf("failed to unmarshal abs_returns: %w", err)
		}
		if err := json.Unmarshal(rel, &rec.RelStrengths); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rel_strengths: %w", err)
		}
		if score != nil {
			rec.Score = contracts.Some(*score)
		}
		rec.Order = rec.Rank - 1

		table.Rows = append(table.Rows, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return table, nil
}
