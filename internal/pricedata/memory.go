// Package pricedata supplies price history to the frontier engine from
// PostgreSQL, Yahoo-style CSV files or memory.
package pricedata

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tvaught/experimental/internal/contracts"
)

const dateLayout = "2006-01-02"

// ErrSymbolNotFound is returned when a provider has no bars for a symbol
var ErrSymbolNotFound = errors.New("symbol not found")

// Memory is an in-process PriceProvider, used by tests and the CSV import path
type Memory struct {
	mu     sync.RWMutex
	series map[string][]contracts.PriceRecord
}

var (
	_ contracts.PriceProvider = (*Memory)(nil)
	_ Saver                   = (*Memory)(nil)
)

// NewMemory creates an empty provider
func NewMemory() *Memory {
	return &Memory{series: make(map[string][]contracts.PriceRecord)}
}

// Add stores bars for a symbol, replacing existing bars on the same dates
func (m *Memory) Add(symbol string, prices []contracts.PriceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byDate := make(map[time.Time]contracts.PriceRecord, len(m.series[symbol])+len(prices))
	for _, p := range m.series[symbol] {
		byDate[p.Date] = p
	}
	for _, p := range prices {
		p.Symbol = symbol
		byDate[p.Date] = p
	}

	merged := make([]contracts.PriceRecord, 0, len(byDate))
	for _, p := range byDate {
		merged = append(merged, p)
	}
	sortByDate(merged)
	m.series[symbol] = merged
}

// SaveBatch stores bars grouped by their Symbol field
func (m *Memory) SaveBatch(ctx context.Context, prices []contracts.PriceRecord) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	bySymbol := make(map[string][]contracts.PriceRecord)
	for _, p := range prices {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], p)
	}
	for symbol, records := range bySymbol {
		m.Add(symbol, records)
	}
	return len(prices), nil
}

// Symbols returns the stored symbols in sorted order
func (m *Memory) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.series))
	for s := range m.series {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Prices returns a copy of the bars within [from, to]. A zero to means no
// upper bound.
func (m *Memory) Prices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	all, ok := m.series[symbol]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return window(all, from, to), nil
}

// window copies the bars dated within [from, to]
func window(prices []contracts.PriceRecord, from, to time.Time) []contracts.PriceRecord {
	out := make([]contracts.PriceRecord, 0, len(prices))
	for _, p := range prices {
		if p.Date.Before(from) {
			continue
		}
		if !to.IsZero() && p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortByDate(prices []contracts.PriceRecord) {
	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Date.Before(prices[j].Date)
	})
}
