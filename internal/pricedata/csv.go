package pricedata

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tvaught/experimental/internal/contracts"
)

// csvColumns is the Yahoo export layout: Date,Open,High,Low,Close,Volume,Adj Close
const csvColumns = 7

// ReadCSV parses a Yahoo-style price export. The header row and malformed
// rows are skipped; skipped reports how many data rows were dropped.
// Bars are returned oldest first with duplicate dates collapsed.
func ReadCSV(r io.Reader, symbol string) (prices []contracts.PriceRecord, skipped int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header := true
	byDate := make(map[time.Time]contracts.PriceRecord)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, err
		}
		if header {
			header = false
			continue
		}

		p, ok := parseRow(symbol, row)
		if !ok {
			skipped++
			continue
		}
		byDate[p.Date] = p
	}

	prices = make([]contracts.PriceRecord, 0, len(byDate))
	for _, p := range byDate {
		prices = append(prices, p)
	}
	sortByDate(prices)
	return prices, skipped, nil
}

func parseRow(symbol string, row []string) (contracts.PriceRecord, bool) {
	if len(row) != csvColumns {
		return contracts.PriceRecord{}, false
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(row[0]))
	if err != nil {
		return contracts.PriceRecord{}, false
	}

	var v [csvColumns - 1]float64
	for i := range v {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return contracts.PriceRecord{}, false
		}
	}

	return contracts.PriceRecord{
		Symbol:   symbol,
		Date:     date,
		Open:     v[0],
		High:     v[1],
		Low:      v[2],
		Close:    v[3],
		Volume:   v[4],
		AdjClose: v[5],
	}, true
}

// SanitizeSymbol replaces characters that cannot appear in file names or
// ticker lookups with '-' ("BRK/B" -> "BRK-B")
func SanitizeSymbol(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', ':', '^', '%', '\\':
			return '-'
		}
		return r
	}, s)
}

// CSVDir serves prices from <dir>/<SYMBOL>.csv files
type CSVDir struct {
	dir string
}

var _ contracts.PriceProvider = (*CSVDir)(nil)

// NewCSVDir creates a provider rooted at dir
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

// Path returns the file backing a symbol
func (d *CSVDir) Path(symbol string) string {
	return filepath.Join(d.dir, SanitizeSymbol(symbol)+".csv")
}

// Symbols lists the symbols that have a CSV file, sorted
func (d *CSVDir) Symbols() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(matches))
	for _, m := range matches {
		symbols = append(symbols, strings.TrimSuffix(filepath.Base(m), ".csv"))
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Load reads every bar of a symbol's file
func (d *CSVDir) Load(symbol string) ([]contracts.PriceRecord, int, error) {
	f, err := os.Open(d.Path(symbol))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
		}
		return nil, 0, err
	}
	defer f.Close()

	prices, skipped, err := ReadCSV(f, symbol)
	if err != nil {
		return nil, skipped, fmt.Errorf("read %s: %w", d.Path(symbol), err)
	}
	return prices, skipped, nil
}

// Prices returns a symbol's bars within [from, to]. A zero to means no
// upper bound.
func (d *CSVDir) Prices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prices, _, err := d.Load(symbol)
	if err != nil {
		return nil, err
	}
	return window(prices, from, to), nil
}
