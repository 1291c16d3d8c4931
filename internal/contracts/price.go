package contracts

import (
	"context"
	"fmt"
	"time"
)

// PriceField selects which column of a PriceRecord feeds rate calculations
type PriceField string

const (
	FieldOpen          PriceField = "open"
	FieldHigh          PriceField = "high"
	FieldLow           PriceField = "low"
	FieldClose         PriceField = "close"
	FieldAdjustedClose PriceField = "adjusted_close"
)

// PriceFields lists every interpolatable column in schema order
var PriceFields = []PriceField{
	FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjustedClose,
}

// ParsePriceField converts a profile/CLI string to a PriceField
func ParsePriceField(s string) (PriceField, error) {
	switch PriceField(s) {
	case FieldOpen, FieldHigh, FieldLow, FieldClose, FieldAdjustedClose:
		return PriceField(s), nil
	case "adjclose", "":
		return FieldAdjustedClose, nil
	}
	return "", fmt.Errorf("unknown price field %q", s)
}

// PriceRecord is one daily bar supplied by a price provider
// ⭐ SSOT: 가격 레코드는 불변 값으로만 전달
type PriceRecord struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	AdjClose float64   `json:"adj_close"`
}

// Value returns the price stored in the given field
func (p PriceRecord) Value(field PriceField) float64 {
	switch field {
	case FieldOpen:
		return p.Open
	case FieldHigh:
		return p.High
	case FieldLow:
		return p.Low
	case FieldClose:
		return p.Close
	default:
		return p.AdjClose
	}
}

// WithValue returns a copy of the record with one field replaced
func (p PriceRecord) WithValue(field PriceField, v float64) PriceRecord {
	switch field {
	case FieldOpen:
		p.Open = v
	case FieldHigh:
		p.High = v
	case FieldLow:
		p.Low = v
	case FieldClose:
		p.Close = v
	default:
		p.AdjClose = v
	}
	return p
}

// RateRecord is a simple periodic return for a single instrument
// rate = price[t]/price[t-1] - 1
type RateRecord struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// PriceProvider supplies date-ordered price history for a symbol
// ⭐ SSOT: 코어는 이 인터페이스로만 가격 데이터를 받음
type PriceProvider interface {
	Prices(ctx context.Context, symbol string, from, to time.Time) ([]PriceRecord, error)
}

// PriceDates extracts the date column of a price series
func PriceDates(prices []PriceRecord) []time.Time {
	dates := make([]time.Time, len(prices))
	for i, p := range prices {
		dates[i] = p.Date
	}
	return dates
}
