package contracts

import (
	"encoding/json"
	"math"
)

// NullFloat is a float64 that may be absent.
// ⭐ SSOT: "계산 불가" 값은 NaN 대신 항상 NullFloat로 표현
type NullFloat struct {
	value float64
	valid bool
}

// Some returns a present value. Non-finite inputs are treated as absent.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{value: v, valid: true}
}

// None returns an absent value
func None() NullFloat {
	return NullFloat{}
}

// Get returns the value and whether it is present
func (n NullFloat) Get() (float64, bool) {
	return n.value, n.valid
}

// Valid reports whether the value is present
func (n NullFloat) Valid() bool {
	return n.valid
}

// OrElse returns the value, or def when absent
func (n NullFloat) OrElse(def float64) float64 {
	if !n.valid {
		return def
	}
	return n.value
}

// MarshalJSON renders absent values as null
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON accepts a number or null
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = None()
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
