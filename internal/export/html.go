package export

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/strategyconfig"
)

// TickerLinkBase is where ticker cells link to
const TickerLinkBase = "https://ticker.finology.in/company/"

//go:embed templates/report.html.tmpl
var reportTemplate string

var reportTmpl = template.Must(template.New("report").Parse(reportTemplate))

// HTMLExporter writes a sortable <prefix>_Nifty<scope>.html report
type HTMLExporter struct {
	target fileTarget
}

// NewHTMLExporter creates an HTML report exporter writing into dir
func NewHTMLExporter(dir, prefix string) *HTMLExporter {
	return &HTMLExporter{target: fileTarget{dir: dir, prefix: prefix}}
}

// Name returns the format name
func (e *HTMLExporter) Name() string {
	return strategyconfig.FormatHTML
}

// Export renders the report and returns the file path
func (e *HTMLExporter) Export(ctx context.Context, table *contracts.RankedTable) (string, error) {
	path := e.target.path(table.Scope, "html")
	if err := writeFile(ctx, path, func(w io.Writer) error {
		return WriteHTML(w, table)
	}); err != nil {
		return "", fmt.Errorf("html export: %w", err)
	}
	return path, nil
}

type reportHeader struct {
	Name    string
	Tooltip string
	Numeric bool
}

type reportCell struct {
	Present bool
	Text    string // 12.34% / 1.25
	Order   string // sort key
}

type reportRow struct {
	Leader bool
	Ticker string
	Link   string
	Cells  []reportCell
}

type reportData struct {
	Title       string
	Description string
	Headers     []reportHeader
	Rows        []reportRow
}

// WriteHTML renders the report page
func WriteHTML(w io.Writer, table *contracts.RankedTable) error {
	return reportTmpl.Execute(w, buildReport(table))
}

func buildReport(table *contracts.RankedTable) reportData {
	benchmark := "the benchmark"
	if table.Benchmark != nil && table.Benchmark.Symbol != "" {
		benchmark = table.Benchmark.Symbol
	}

	labels := make([]string, len(table.Lookbacks))
	for i, lb := range table.Lookbacks {
		labels[i] = lb.Label
	}

	data := reportData{
		Title: fmt.Sprintf("RSQM Watchlist - Nifty %d", table.Scope),
		Description: fmt.Sprintf(
			"Top %d stocks of the Nifty %d index by RS Score, the average relative strength against %s over %s. Click a column header to sort. Tickers link to Finology Ticker.",
			len(table.Rows), table.Scope, benchmark, strings.Join(labels, ", ")),
		Headers: columnHeaders(table, benchmark),
		Rows:    make([]reportRow, 0, len(table.Rows)),
	}

	for _, rec := range table.Rows {
		ticker := DisplayTicker(rec.Symbol)
		row := reportRow{
			Leader: rec.Rank == 1,
			Ticker: ticker,
			Link:   TickerLinkBase + url.PathEscape(ticker),
		}

		values := cellValues(table, rec)
		for i, v := range values {
			cell := reportCell{}
			if f, ok := v.Get(); ok {
				rounded := round2(f).StringFixed(2)
				cell = reportCell{Present: true, Text: rounded, Order: rounded}
				// AbsRet 컬럼은 짝수 인덱스 (AbsRet, RelStr 반복 후 RS Score)
				if i < 2*len(table.Lookbacks) && i%2 == 0 {
					cell.Text += "%"
				}
			}
			row.Cells = append(row.Cells, cell)
		}

		rank := strconv.Itoa(rec.Rank)
		row.Cells = append(row.Cells, reportCell{Present: true, Text: rank, Order: rank})
		data.Rows = append(data.Rows, row)
	}

	return data
}

// columnHeaders follows table.Columns() and attaches tooltips
func columnHeaders(table *contracts.RankedTable, benchmark string) []reportHeader {
	tooltips := map[string]string{
		contracts.ColumnTicker: "Stock symbol (NSE code)",
		contracts.ColumnScore:  "Average of all available relative strength values (overall outperformance)",
		contracts.ColumnRank:   "Position in RS Score ranking (1 = strongest)",
	}
	for _, lb := range table.Lookbacks {
		tooltips[contracts.AbsReturnColumn(lb.Label)] =
			fmt.Sprintf("Absolute return over the last %d trading days (%%)", lb.Days)
		tooltips[contracts.RelStrengthColumn(lb.Label)] =
			fmt.Sprintf("Relative strength vs %s over %d trading days", benchmark, lb.Days)
	}

	columns := table.Columns()
	headers := make([]reportHeader, len(columns))
	for i, c := range columns {
		headers[i] = reportHeader{Name: c, Tooltip: tooltips[c], Numeric: c != contracts.ColumnTicker}
	}
	return headers
}
