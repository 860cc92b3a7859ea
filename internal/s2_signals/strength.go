package s2_signals

import (
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/rsqm/internal/contracts"
)

// ComputeRelativeStrength returns instrumentReturn / benchmarkReturn.
// A flat benchmark (0) makes the ratio undefined, so the period is unavailable.
// Signs are kept as-is: two negative returns yield a positive ratio.
func ComputeRelativeStrength(instrumentReturn, benchmarkReturn float64) contracts.NullFloat {
	if benchmarkReturn == 0 || !finite(benchmarkReturn) || !finite(instrumentReturn) {
		return contracts.None()
	}
	// Some() rejects an overflowed ratio
	return contracts.Some(instrumentReturn / benchmarkReturn)
}

// ComputeScore averages the present values only.
// Unavailable periods are dropped from both numerator and denominator.
func ComputeScore(values []contracts.NullFloat) contracts.NullFloat {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := v.Get(); ok {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return contracts.None()
	}
	return contracts.Some(stat.Mean(present, nil))
}

// relativeStrength combines two optional returns
func relativeStrength(instrument, benchmark contracts.NullFloat) contracts.NullFloat {
	i, ok := instrument.Get()
	if !ok {
		return contracts.None()
	}
	b, ok := benchmark.Get()
	if !ok {
		return contracts.None()
	}
	return ComputeRelativeStrength(i, b)
}
