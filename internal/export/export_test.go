package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/internal/strategyconfig"
)

func sampleTable() *contracts.RankedTable {
	some, none := contracts.Some, contracts.None
	return &contracts.RankedTable{
		RunID:     "5b1f0e1c-3f3a-4a43-9d1e-7f6f3b0d6a11",
		AsOf:      time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC),
		Scope:     50,
		Benchmark: &contracts.BenchmarkRecord{Symbol: "^NSEI"},
		Lookbacks: contracts.DefaultLookbacks(),
		Rows: []contracts.InstrumentRecord{
			{
				Symbol:       "TRENT.NS",
				AbsReturns:   map[string]contracts.NullFloat{"30D": some(10.004), "90D": some(20), "180D": some(40.555)},
				RelStrengths: map[string]contracts.NullFloat{"30D": some(2), "90D": some(2), "180D": some(2)},
				Score:        some(2),
				Rank:         1,
			},
			{
				Symbol:       "NEWCO.NS",
				Order:        1,
				AbsReturns:   map[string]contracts.NullFloat{"30D": some(-5.125), "90D": some(0), "180D": none()},
				RelStrengths: map[string]contracts.NullFloat{"30D": some(-1.0251), "90D": some(0), "180D": none()},
				Score:        some(-0.51255),
				Rank:         2,
			},
		},
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "RSQM_watchlist_Nifty50.csv", FileName("RSQM_watchlist", 50, "csv"))
	assert.Equal(t, "RSQM_watchlist_Nifty200.html", FileName("", 200, "html"))
}

func TestDisplayTicker(t *testing.T) {
	assert.Equal(t, "RELIANCE", DisplayTicker("RELIANCE.NS"))
	assert.Equal(t, "M&M", DisplayTicker("M&M.NS"))
	assert.Equal(t, "TCS", DisplayTicker("TCS"))
	assert.Equal(t, "^NSEI", DisplayTicker("^NSEI"))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(contracts.None()))
	assert.Equal(t, "0.00", FormatValue(contracts.Some(0)))
	assert.Equal(t, "1.01", FormatValue(contracts.Some(1.005)))
	assert.Equal(t, "-1.01", FormatValue(contracts.Some(-1.005)))
	assert.Equal(t, "900.00", FormatValue(contracts.Some(900)))
	assert.Nil(t, roundedFloat(contracts.None()))
	assert.Equal(t, 2.56, roundedFloat(contracts.Some(2.555)))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, []string{
		"Ticker", "AbsRet_30D", "RelStr_30D", "AbsRet_90D", "RelStr_90D",
		"AbsRet_180D", "RelStr_180D", "RS Score", "Rank",
	}, lines[0])
	assert.Equal(t, []string{"TRENT.NS", "10.00", "2.00", "20.00", "2.00", "40.56", "2.00", "2.00", "1"}, lines[1])
	assert.Equal(t, []string{"NEWCO.NS", "-5.13", "-1.03", "0.00", "0.00", "", "", "-0.51", "2"}, lines[2],
		"unavailable is empty, real zero stays 0.00")
}

func TestWriteCSV_EmptyTable(t *testing.T) {
	var buf bytes.Buffer
	table := &contracts.RankedTable{Scope: 50, Lookbacks: contracts.DefaultLookbacks()}
	require.NoError(t, WriteCSV(&buf, table))
	assert.Equal(t, "Ticker,AbsRet_30D,RelStr_30D,AbsRet_90D,RelStr_90D,AbsRet_180D,RelStr_180D,RS Score,Rank\n", buf.String())
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, sampleTable()))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, "RSQM Watchlist - Nifty 50", doc.Find("title").Text())

	headers := doc.Find("#stockTable thead th")
	require.Equal(t, 9, headers.Length())
	assert.Equal(t, "Ticker", strings.TrimSpace(headers.First().Text()))
	assert.Equal(t, "Rank", strings.TrimSpace(headers.Last().Text()))
	title, ok := headers.Eq(2).Attr("title")
	require.True(t, ok)
	assert.Contains(t, title, "^NSEI")
	dataType, _ := headers.First().Attr("data-type")
	assert.Equal(t, "string", dataType)

	rows := doc.Find("#stockTable tbody tr")
	require.Equal(t, 2, rows.Length())

	first := rows.First()
	assert.True(t, first.HasClass("leader"), "rank 1 highlighted")
	assert.False(t, rows.Eq(1).HasClass("leader"))

	link := first.Find("a.ticker-link")
	assert.Equal(t, "TRENT", link.Text())
	href, _ := link.Attr("href")
	assert.Equal(t, "https://ticker.finology.in/company/TRENT", href)

	cells := first.Find("td")
	require.Equal(t, 9, cells.Length())
	assert.Equal(t, "10.00%", cells.Eq(1).Text())
	assert.Equal(t, "2.00", cells.Eq(2).Text())
	order, _ := cells.Eq(1).Find("span").Attr("data-order")
	assert.Equal(t, "10.00", order)
	assert.Equal(t, "1", cells.Eq(8).Text())

	second := rows.Eq(1).Find("td")
	assert.Equal(t, "", second.Eq(5).Text(), "unavailable renders empty")
	assert.Equal(t, 0, second.Eq(5).Find("span").Length())
	assert.Equal(t, "0.00%", second.Eq(3).Text())
}

func TestFileExporters(t *testing.T) {
	dir := t.TempDir()
	table := sampleTable()
	ctx := context.Background()

	exporters := FromConfig(strategyconfig.Export{
		Dir:     dir,
		Prefix:  "RSQM_watchlist",
		Formats: []string{"csv", "xlsx", "html", "postgres"},
	}, nil, nil)
	require.Len(t, exporters, 3, "postgres skipped without a pool")

	paths := map[string]string{}
	for _, e := range exporters {
		path, err := e.Export(ctx, table)
		require.NoError(t, err, e.Name())
		paths[e.Name()] = path
	}

	assert.Equal(t, filepath.Join(dir, "RSQM_watchlist_Nifty50.csv"), paths["csv"])
	assert.Equal(t, filepath.Join(dir, "RSQM_watchlist_Nifty50.xlsx"), paths["xlsx"])
	assert.Equal(t, filepath.Join(dir, "RSQM_watchlist_Nifty50.html"), paths["html"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3, "no temp files left behind")

	f, err := excelize.OpenFile(paths["xlsx"])
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, table.Columns(), rows[0])
	assert.Equal(t, "TRENT.NS", rows[1][0])
	assert.Equal(t, "40.56", rows[1][5])
	assert.Equal(t, "1", rows[1][8])
	assert.Equal(t, "", rows[2][5], "unavailable stays blank")
}

func TestWriteFile_FailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	err := writeFile(context.Background(), path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return errors.New("boom")
	})
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestToRow(t *testing.T) {
	table := sampleTable()

	row, err := toRow(table.Rows[1])
	require.NoError(t, err)
	require.NotNil(t, row.Score)
	assert.InDelta(t, -0.51255, *row.Score, 1e-12)
	assert.JSONEq(t, `{"30D":-5.125,"90D":0,"180D":null}`, string(row.AbsReturns))

	row, err = toRow(contracts.InstrumentRecord{Symbol: "X.NS"})
	require.NoError(t, err)
	assert.Nil(t, row.Score, "unscored becomes NULL")
}
