package contracts

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidScopes lists the supported Nifty index sizes
var ValidScopes = []int{50, 100, 200, 500}

// IsValidScope reports whether scope is a supported index size
func IsValidScope(scope int) bool {
	for _, s := range ValidScopes {
		if s == scope {
			return true
		}
	}
	return false
}

// ParseScope parses "50", "nifty50" or "Nifty200" into a valid scope
func ParseScope(raw string) (int, error) {
	trimmed := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "nifty")
	scope, err := strconv.Atoi(trimmed)
	if err != nil || !IsValidScope(scope) {
		return 0, fmt.Errorf("invalid scope %q: must be one of %v", raw, ValidScopes)
	}
	return scope, nil
}

// Universe represents the symbols evaluated in one run (S1 → S0/S2)
// ⭐ SSOT: S1 → S2 평가 대상 종목 전달
type Universe struct {
	Date    time.Time `json:"date"`
	Scope   int       `json:"scope"`   // Nifty 50/100/200/500
	Source  string    `json:"source"`  // local file path or remote URL
	Symbols []string  `json:"symbols"` // ordered, unique, non-empty

	Excluded map[string]string `json:"excluded,omitempty"` // raw entry → reason (blank, duplicate)
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// IndexOf returns the original position of symbol, or -1
func (u *Universe) IndexOf(symbol string) int {
	for i, s := range u.Symbols {
		if s == symbol {
			return i
		}
	}
	return -1
}

// Count returns the number of symbols
func (u *Universe) Count() int {
	return len(u.Symbols)
}

// Validate checks the universe is usable
func (u *Universe) Validate() error {
	if u == nil || len(u.Symbols) == 0 {
		return ErrEmptyUniverse
	}
	return nil
}
