package yahoo

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/multi"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/pkg/logger"
)

// dailyBar is the subset of a go-yfinance bar we use
type dailyBar struct {
	Date     time.Time
	Close    float64
	AdjClose float64
}

// batchResult is a library-independent view of one download
type batchResult struct {
	data   map[string][]dailyBar
	errors map[string]error
}

// downloadFunc performs one batch download for a Yahoo period ("1y", "2y")
type downloadFunc func(symbols []string, period string) (*batchResult, error)

// yfDownload calls multi.Download
func yfDownload(symbols []string, period string) (*batchResult, error) {
	params := models.DefaultDownloadParams()
	params.Symbols = symbols
	params.Period = period
	params.Interval = "1d"

	result, err := multi.Download(symbols, &params)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("empty result")
	}

	out := &batchResult{
		data:   make(map[string][]dailyBar, len(result.Data)),
		errors: make(map[string]error, len(result.Errors)),
	}
	for sym, bars := range result.Data {
		converted := make([]dailyBar, 0, len(bars))
		for _, bar := range bars {
			converted = append(converted, dailyBar{Date: bar.Date, Close: bar.Close, AdjClose: bar.AdjClose})
		}
		out.data[sym] = converted
	}
	for sym, e := range result.Errors {
		out.errors[sym] = e
	}
	return out, nil
}

// BatchClient downloads many symbols at once through go-yfinance
// 배치 실패/벤치마크 누락 시 S0 collector 가 종목별 조회로 전환
type BatchClient struct {
	logger   *logger.Logger
	download downloadFunc
}

// NewBatchClient creates a new batch downloader
func NewBatchClient(log *logger.Logger) *BatchClient {
	if log == nil {
		log = logger.Nop()
	}
	return &BatchClient{
		logger:   log.WithField("module", "yahoo_batch"),
		download: yfDownload,
	}
}

// FetchBatch downloads daily bars for symbols and trims them to [from, to].
// Per-symbol failures are returned in the errors map; the call-level error means
// the batch as a whole is unusable.
func (b *BatchClient) FetchBatch(ctx context.Context, symbols []string, from, to time.Time) (map[string]contracts.PriceSeries, map[string]error, error) {
	period := periodFor(from, time.Now())

	type outcome struct {
		result *batchResult
		err    error
	}
	done := make(chan outcome, 1)

	// multi.Download 는 context 를 받지 않음: 취소 시 결과를 버림
	go func() {
		result, err := b.download(symbols, period)
		done <- outcome{result, err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case out = <-done:
	}
	if out.err != nil {
		return nil, nil, fmt.Errorf("batch download: %w", out.err)
	}

	series := make(map[string]contracts.PriceSeries, len(symbols))
	failed := make(map[string]error)

	for _, sym := range symbols {
		if err, ok := out.result.errors[sym]; ok && err != nil {
			failed[sym] = contracts.NewTransientError(sym, err)
			continue
		}
		bars, ok := out.result.data[sym]
		if !ok || len(bars) == 0 {
			failed[sym] = contracts.NewTransientError(sym, ErrNoData)
			continue
		}

		s := barsToSeries(sym, bars, from, to)
		if s.IsEmpty() {
			failed[sym] = contracts.NewTransientError(sym, ErrNoData)
			continue
		}
		series[sym] = s
	}

	b.logger.WithFields(map[string]interface{}{
		"requested": len(symbols),
		"received":  len(series),
		"failed":    len(failed),
	}).Info("Batch download finished")

	return series, failed, nil
}

// barsToSeries prefers AdjClose and keeps only bars inside [from, to]
func barsToSeries(symbol string, bars []dailyBar, from, to time.Time) contracts.PriceSeries {
	points := make([]contracts.PricePoint, 0, len(bars))
	for _, bar := range bars {
		if bar.Date.Before(from) || bar.Date.After(to) {
			continue
		}
		px := bar.AdjClose
		if px <= 0 || math.IsNaN(px) {
			px = bar.Close
		}
		if px <= 0 {
			px = math.NaN()
		}
		points = append(points, contracts.PricePoint{Date: bar.Date, Close: px})
	}
	return contracts.NewPriceSeries(symbol, points)
}

// periodFor picks the smallest Yahoo period covering from..now
func periodFor(from, now time.Time) string {
	days := int(now.Sub(from).Hours()/24) + 1
	switch {
	case days <= 30:
		return "1mo"
	case days <= 90:
		return "3mo"
	case days <= 180:
		return "6mo"
	case days <= 365:
		return "1y"
	case days <= 730:
		return "2y"
	case days <= 1825:
		return "5y"
	case days <= 3650:
		return "10y"
	default:
		return "max"
	}
}
