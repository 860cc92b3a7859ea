package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/strategyconfig"
	"github.com/wonny/rsqm/pkg/logger"
)

// S5 exporters.
// ⭐ SSOT: 결과 테이블 직렬화는 이 패키지에서만 (컬럼 순서는 contracts.RankedTable.Columns)

// FromConfig builds the exporters listed in cfg.Formats, in order.
// pool may be nil; the postgres format is then skipped with a warning.
func FromConfig(cfg strategyconfig.Export, pool *pgxpool.Pool, log *logger.Logger) []contracts.Exporter {
	if log == nil {
		log = logger.Nop()
	}

	exporters := make([]contracts.Exporter, 0, len(cfg.Formats))
	for _, format := range cfg.Formats {
		switch format {
		case strategyconfig.FormatCSV:
			exporters = append(exporters, NewCSVExporter(cfg.Dir, cfg.Prefix))
		case strategyconfig.FormatXLSX:
			exporters = append(exporters, NewXLSXExporter(cfg.Dir, cfg.Prefix))
		case strategyconfig.FormatHTML:
			exporters = append(exporters, NewHTMLExporter(cfg.Dir, cfg.Prefix))
		case strategyconfig.FormatPostgres:
			if pool == nil {
				log.WithField("module", "export").Warn("postgres export requested but DATABASE_URL is not set, skipping")
				continue
			}
			exporters = append(exporters, NewPostgresExporter(pool, log))
		}
	}
	return exporters
}

// FileName returns "<prefix>_Nifty<scope>.<ext>"
func FileName(prefix string, scope int, ext string) string {
	if prefix == "" {
		prefix = "RSQM_watchlist"
	}
	return fmt.Sprintf("%s_Nifty%d.%s", prefix, scope, ext)
}

// fileTarget is the shared part of the file based exporters
type fileTarget struct {
	dir    string
	prefix string
}

func (t fileTarget) path(scope int, ext string) string {
	dir := t.dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, FileName(t.prefix, scope, ext))
}

// writeFile writes through a temp file and renames it into place,
// so a failed export never leaves a partial file behind.
func writeFile(ctx context.Context, path string, write func(w io.Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// cellValues returns the numeric columns of a row in column order:
// AbsRet/RelStr per lookback, then RS Score
func cellValues(table *contracts.RankedTable, rec contracts.InstrumentRecord) []contracts.NullFloat {
	values := make([]contracts.NullFloat, 0, 2*len(table.Lookbacks)+1)
	for _, lb := range table.Lookbacks {
		values = append(values, rec.AbsReturns[lb.Label], rec.RelStrengths[lb.Label])
	}
	return append(values, rec.Score)
}

// round2 rounds half away from zero to 2 decimals
func round2(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// FormatValue renders 2 decimals, or "" when unavailable (never 0)
func FormatValue(v contracts.NullFloat) string {
	f, ok := v.Get()
	if !ok {
		return ""
	}
	return round2(f).StringFixed(2)
}

// roundedFloat returns the 2dp float, or nil when unavailable
func roundedFloat(v contracts.NullFloat) interface{} {
	f, ok := v.Get()
	if !ok {
		return nil
	}
	return round2(f).InexactFloat64()
}

// DisplayTicker strips the exchange suffix (RELIANCE.NS → RELIANCE)
func DisplayTicker(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}
