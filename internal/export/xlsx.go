package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/strategyconfig"
)

// SheetName is the worksheet holding the watchlist
const SheetName = "RSQM"

// XLSXExporter writes <prefix>_Nifty<scope>.xlsx
type XLSXExporter struct {
	target fileTarget
}

// NewXLSXExporter creates a spreadsheet exporter writing into dir
func NewXLSXExporter(dir, prefix string) *XLSXExporter {
	return &XLSXExporter{target: fileTarget{dir: dir, prefix: prefix}}
}

// Name returns the format name
func (e *XLSXExporter) Name() string {
	return strategyconfig.FormatXLSX
}

// Export writes the workbook and returns the file path
func (e *XLSXExporter) Export(ctx context.Context, table *contracts.RankedTable) (string, error) {
	f, err := buildWorkbook(table)
	if err != nil {
		return "", fmt.Errorf("xlsx export: %w", err)
	}
	defer f.Close()

	path := e.target.path(table.Scope, "xlsx")
	if err := writeFile(ctx, path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	}); err != nil {
		return "", fmt.Errorf("xlsx export: %w", err)
	}
	return path, nil
}

// buildWorkbook lays the table out on one sheet.
// Numbers are stored as rounded floats; unavailable cells stay blank.
func buildWorkbook(table *contracts.RankedTable) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, err
	}

	columns := table.Columns()
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}

	for i, rec := range table.Rows {
		row := make([]interface{}, 0, len(columns))
		row = append(row, rec.Symbol)
		for _, v := range cellValues(table, rec) {
			row = append(row, roundedFloat(v))
		}
		row = append(row, rec.Rank)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(columns))
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "A", lastCol, 14); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}
