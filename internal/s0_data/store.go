package s0_data

import (
	"sort"
	"sync"

	"github.com/wonny/rsqm/internal/contracts"
)

// Store holds the price series of one run in memory
// ⭐ SSOT: S0 → S2 가격 데이터 보관 (실행 단위, 영속화 없음)
type Store struct {
	mu     sync.RWMutex
	series map[string]contracts.PriceSeries
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{series: make(map[string]contracts.PriceSeries)}
}

// Put stores (or replaces) the series of its symbol
func (s *Store) Put(series contracts.PriceSeries) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series[series.Symbol] = series
}

// Get returns the series of symbol
func (s *Store) Get(symbol string) (contracts.PriceSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series, ok := s.series[symbol]
	return series, ok
}

// Has reports whether symbol has a series
func (s *Store) Has(symbol string) bool {
	_, ok := s.Get(symbol)
	return ok
}

// Len returns the number of stored series
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series)
}

// Symbols returns stored symbols sorted alphabetically
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.series))
	for sym := range s.series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
