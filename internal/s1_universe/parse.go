package s1_universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// symbolHeader is the constituent column in NSE index files
const symbolHeader = "symbol"

// errNoSymbolColumn is returned when no header matches symbolHeader
var errNoSymbolColumn = errors.New("no Symbol column")

// ParseCSV extracts the Symbol column of an NSE index list.
// 헤더 행 필수, 대소문자/공백/BOM 무시
func ParseCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // 행마다 컬럼 수가 달라도 허용
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if normalizeHeader(name) == symbolHeader {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, errNoSymbolColumn
	}

	var symbols []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col >= len(record) {
			// 짧은 행은 빈 심볼로 취급
			symbols = append(symbols, "")
			continue
		}
		symbols = append(symbols, record[col])
	}

	return symbols, nil
}

// ParseHTML extracts the Symbol column of the first table that has one
func ParseHTML(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var symbols []string
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		col := -1
		table.Find("tr").First().Find("th, td").Each(func(i int, cell *goquery.Selection) {
			if col < 0 && normalizeHeader(cell.Text()) == symbolHeader {
				col = i
			}
		})
		if col < 0 {
			return true
		}

		found = true
		table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() <= col {
				return
			}
			symbols = append(symbols, cells.Eq(col).Text())
		})
		return false
	})

	if !found {
		return nil, errNoSymbolColumn
	}
	return symbols, nil
}

func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}

// Normalize trims, upper-cases and suffixes raw symbols.
// 빈 값/중복은 제외 (첫 번째 유지), 원래 순서 보존
func Normalize(raw []string, suffix string) ([]string, map[string]string) {
	symbols := make([]string, 0, len(raw))
	excluded := make(map[string]string)
	seen := make(map[string]bool, len(raw))

	for i, r := range raw {
		s := strings.ToUpper(strings.TrimSpace(r))
		if s == "" {
			excluded[fmt.Sprintf("row %d", i+1)] = "blank symbol"
			continue
		}
		if suffix != "" && !strings.HasSuffix(s, strings.ToUpper(suffix)) {
			s += strings.ToUpper(suffix)
		}
		if seen[s] {
			excluded[s] = "duplicate"
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}

	return symbols, excluded
}
