package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/strategyconfig"
)

// CSVExporter writes <prefix>_Nifty<scope>.csv
type CSVExporter struct {
	target fileTarget
}

// NewCSVExporter creates a CSV exporter writing into dir
func NewCSVExporter(dir, prefix string) *CSVExporter {
	return &CSVExporter{target: fileTarget{dir: dir, prefix: prefix}}
}

// Name returns the format name
func (e *CSVExporter) Name() string {
	return strategyconfig.FormatCSV
}

// Export writes the table and returns the file path
func (e *CSVExporter) Export(ctx context.Context, table *contracts.RankedTable) (string, error) {
	path := e.target.path(table.Scope, "csv")
	if err := writeFile(ctx, path, func(w io.Writer) error {
		return WriteCSV(w, table)
	}); err != nil {
		return "", fmt.Errorf("csv export: %w", err)
	}
	return path, nil
}

// WriteCSV writes the header and one line per row.
// Unavailable values are empty cells.
func WriteCSV(w io.Writer, table *contracts.RankedTable) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(table.Columns()); err != nil {
		return err
	}

	for _, rec := range table.Rows {
		line := make([]string, 0, 3+2*len(table.Lookbacks))
		line = append(line, rec.Symbol)
		for _, v := range cellValues(table, rec) {
			line = append(line, FormatValue(v))
		}
		line = append(line, strconv.Itoa(rec.Rank))

		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
