package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/rsqm/internal/contracts"
	"github.com/wonny/rsqm/pkg/httputil"
	"github.com/wonny/rsqm/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// ErrNoData is returned when Yahoo has no bars for a symbol
var ErrNoData = errors.New("no data")

// Client fetches daily closes from the Yahoo chart API
// ⭐ SSOT: Yahoo chart API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo chart client.
// 재시도는 S0 collector 의 RetryPolicy 가 담당하므로 httpClient 는 DisableRetry 권장
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("module", "yahoo"),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// FetchSeries returns daily closes for [from, to].
// Adjusted close is preferred; close is used when no adjusted series is returned.
func (c *Client) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history&includeAdjustedClose=true",
		c.baseURL, url.PathEscape(symbol), from.Unix(), to.Unix())

	body, err := c.httpClient.GetBytes(ctx, u)
	if err != nil {
		return contracts.PriceSeries{}, classifyHTTPError(symbol, body, err)
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return contracts.PriceSeries{}, contracts.NewTransientError(symbol, fmt.Errorf("decode chart: %w", err))
	}

	series, err := parseChart(symbol, &chart)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   series.Len(),
	}).Debug("Fetched chart")

	return series, nil
}

// parseChart converts the payload, keeping null closes positionally as NaN
func parseChart(symbol string, chart *chartResponse) (contracts.PriceSeries, error) {
	if chart.Chart.Error != nil {
		return contracts.PriceSeries{}, classifyChartError(symbol, chart.Chart.Error)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return contracts.PriceSeries{}, contracts.NewPermanentError(symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	closes := pickCloses(&result)
	if closes == nil {
		return contracts.PriceSeries{}, contracts.NewPermanentError(symbol, ErrNoData)
	}

	points := make([]contracts.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		px := math.NaN()
		if i < len(closes) && closes[i] != nil {
			px = *closes[i]
		}
		points = append(points, contracts.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: px,
		})
	}

	series := contracts.NewPriceSeries(symbol, points)
	if series.IsEmpty() {
		return contracts.PriceSeries{}, contracts.NewPermanentError(symbol, ErrNoData)
	}
	return series, nil
}

func pickCloses(result *chartResult) []*float64 {
	if adj := result.Indicators.AdjClose; len(adj) > 0 && len(adj[0].AdjClose) > 0 {
		return adj[0].AdjClose
	}
	if q := result.Indicators.Quote; len(q) > 0 && len(q[0].Close) > 0 {
		return q[0].Close
	}
	return nil
}

// classifyHTTPError maps transport failures onto transient/permanent
func classifyHTTPError(symbol string, body []byte, err error) error {
	var statusErr *httputil.StatusError
	if !errors.As(err, &statusErr) {
		// network, timeout, rate limiter
		return contracts.NewTransientError(symbol, err)
	}

	// 404 본문에도 chart.error 가 들어있음
	var chart chartResponse
	if json.Unmarshal(body, &chart) == nil && chart.Chart.Error != nil {
		return classifyChartError(symbol, chart.Chart.Error)
	}

	switch {
	case statusErr.StatusCode == http.StatusNotFound,
		statusErr.StatusCode == http.StatusBadRequest,
		statusErr.StatusCode == http.StatusUnprocessableEntity:
		return contracts.NewPermanentError(symbol, err)
	default:
		return contracts.NewTransientError(symbol, err)
	}
}

func classifyChartError(symbol string, ce *chartError) error {
	err := fmt.Errorf("yahoo %s: %s", ce.Code, ce.Description)
	code := strings.ToLower(ce.Code)
	desc := strings.ToLower(ce.Description)
	if code == "not found" || strings.Contains(desc, "no data") || strings.Contains(desc, "delisted") {
		return contracts.NewPermanentError(symbol, err)
	}
	return contracts.NewTransientError(symbol, err)
}
