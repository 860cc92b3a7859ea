package contracts

import (
	"errors"
	"fmt"
)

// Run-level faults
var (
	// ErrEmptyUniverse is returned when the resolved universe has no symbols
	ErrEmptyUniverse = errors.New("empty universe")

	// ErrUniverseUnavailable is returned when every universe source failed
	ErrUniverseUnavailable = errors.New("universe unavailable")

	// ErrNoUsableSymbols is returned when every symbol failed to fetch
	ErrNoUsableSymbols = errors.New("no usable symbols after fetch")
)

// FetchErrorKind classifies a data fetch failure
type FetchErrorKind string

const (
	// FetchTransient may succeed on retry (timeouts, 5xx, rate limit)
	FetchTransient FetchErrorKind = "transient"
	// FetchPermanent will not succeed on retry (invalid or delisted symbol)
	FetchPermanent FetchErrorKind = "permanent"
)

// FetchError is returned by data fetchers
type FetchError struct {
	Symbol string
	Kind   FetchErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.Symbol, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a retryable fetch failure
func NewTransientError(symbol string, err error) *FetchError {
	return &FetchError{Symbol: symbol, Kind: FetchTransient, Err: err}
}

// NewPermanentError wraps err as a non-retryable fetch failure
func NewPermanentError(symbol string, err error) *FetchError {
	return &FetchError{Symbol: symbol, Kind: FetchPermanent, Err: err}
}

// IsTransient reports whether err is a retryable fetch failure.
// Unclassified errors are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == FetchTransient
	}
	return true
}
