package s2_signals

import (
	"math"

	"github.com/wonny/rsqm/internal/contracts"
)

// ComputeReturn returns the percentage change between the latest close and the
// close lookbackDays observations earlier.
// ⭐ SSOT: 기간 수익률 계산은 여기서만
//
// The past point is found by position (trading days), not by calendar date.
// Unavailable when the series is too short, lookbackDays <= 0, the past close
// is not positive, or either close is missing.
func ComputeReturn(series contracts.PriceSeries, lookbackDays int) contracts.NullFloat {
	n := series.Len()
	// lookbackDays+1 would overflow near MaxInt
	if lookbackDays <= 0 || lookbackDays >= n {
		return contracts.None()
	}

	latest := series.Points[n-1].Close
	past := series.Points[n-1-lookbackDays].Close
	if !finite(latest) || !finite(past) || past <= 0 {
		return contracts.None()
	}

	// 클램핑 없음: 극단값도 그대로 전달
	return contracts.Some((latest - past) / past * 100)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
