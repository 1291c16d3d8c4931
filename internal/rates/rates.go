// Package rates converts price histories into simple-return series.
package rates

import (
	"errors"
	"fmt"
	"time"

	"github.com/tvaught/experimental/internal/contracts"
)

var (
	ErrEmptySeries     = errors.New("empty price series")
	ErrUnorderedSeries = errors.New("price series dates must be strictly increasing")
	ErrInvalidPrice    = errors.New("non-positive price")
)

// Rates converts a date-ordered price series into simple return records.
//
// When startPrice > 0 it seeds the denominator of the first rate;
// otherwise the first record anchors itself and rate[0] is 0.
// rate[i] = price[i]/price[i-1] - 1 for i > 0.
func Rates(prices []contracts.PriceRecord, field contracts.PriceField, startPrice float64) ([]contracts.RateRecord, error) {
	if len(prices) == 0 {
		return nil, ErrEmptySeries
	}

	prev := prices[0].Value(field)
	if startPrice > 0 {
		prev = startPrice
	}

	out := make([]contracts.RateRecord, len(prices))
	for i, p := range prices {
		if i > 0 && !p.Date.After(prices[i-1].Date) {
			return nil, fmt.Errorf("%w: %s at index %d", ErrUnorderedSeries, p.Date.Format("2006-01-02"), i)
		}
		if prev <= 0 {
			return nil, fmt.Errorf("%w: %s %s", ErrInvalidPrice, p.Symbol, p.Date.Format("2006-01-02"))
		}

		cur := p.Value(field)
		out[i] = contracts.RateRecord{Date: p.Date, Rate: cur/prev - 1}
		prev = cur
	}

	return out, nil
}

// Values returns the rate column
func Values(rs []contracts.RateRecord) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Rate
	}
	return out
}

// Dates returns the date column
func Dates(rs []contracts.RateRecord) []time.Time {
	out := make([]time.Time, len(rs))
	for i, r := range rs {
		out[i] = r.Date
	}
	return out
}

// SameGrid reports whether two rate series share an identical date grid
func SameGrid(a, b []contracts.RateRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) {
			return false
		}
	}
	return true
}
