// Package align reconciles price series with different calendars onto a
// common date grid.
package align

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/tvaught/experimental/internal/contracts"
)

// Policy selects how series of differing calendars are levelled
// ⭐ SSOT: 정렬 정책은 호출자가 명시적으로 선택 (데이터 모양으로 추론하지 않음)
type Policy string

const (
	// PolicyTruncate cuts every series to the common window and keeps only
	// dates present in all of them. No values are synthesised.
	PolicyTruncate Policy = "truncate"
	// PolicyInterpolate cuts to the common window and linearly interpolates
	// every series onto the grid of the latest-starting series.
	PolicyInterpolate Policy = "interpolate"
)

var (
	ErrInsufficientData = errors.New("insufficient data for alignment")
	ErrLengthMismatch   = errors.New("dates and values differ in length")
	ErrUnknownPolicy    = errors.New("unknown alignment policy")
)

// ParsePolicy converts a profile string into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyTruncate, PolicyInterpolate:
		return Policy(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Align evaluates a piecewise-linear interpolant built over sourceDates at
// each of targetDates. Targets outside [sourceDates[0], sourceDates[n-1]]
// are dropped; the returned dates are the targets that were kept.
func Align(sourceDates []time.Time, sourceValues []float64, targetDates []time.Time) ([]time.Time, []float64, error) {
	if len(sourceDates) != len(sourceValues) {
		return nil, nil, fmt.Errorf("%w: %d dates, %d values", ErrLengthMismatch, len(sourceDates), len(sourceValues))
	}
	if len(sourceDates) < 2 {
		return nil, nil, fmt.Errorf("%w: need 2 source points, got %d", ErrInsufficientData, len(sourceDates))
	}

	xs := make([]float64, len(sourceDates))
	for i, d := range sourceDates {
		xs[i] = dayNumber(d)
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, sourceValues); err != nil {
		return nil, nil, fmt.Errorf("fit interpolant: %w", err)
	}

	lo, hi := sourceDates[0], sourceDates[len(sourceDates)-1]
	dates := make([]time.Time, 0, len(targetDates))
	values := make([]float64, 0, len(targetDates))
	for _, t := range targetDates {
		if t.Before(lo) || t.After(hi) {
			continue
		}
		dates = append(dates, t)
		values = append(values, pl.Predict(dayNumber(t)))
	}

	return dates, values, nil
}

// Prices aligns every column of a price series onto target dates.
// The input is not modified.
func Prices(prices []contracts.PriceRecord, target []time.Time) ([]contracts.PriceRecord, error) {
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: empty price series", ErrInsufficientData)
	}

	src := contracts.PriceDates(prices)
	var kept []time.Time
	out := make([]contracts.PriceRecord, 0, len(target))

	for fi, field := range contracts.PriceFields {
		values := make([]float64, len(prices))
		for i, p := range prices {
			values[i] = p.Value(field)
		}

		dates, aligned, err := Align(src, values, target)
		if err != nil {
			return nil, fmt.Errorf("align %s: %w", field, err)
		}
		if fi == 0 {
			kept = dates
			for _, d := range kept {
				out = append(out, contracts.PriceRecord{Symbol: prices[0].Symbol, Date: d})
			}
		}
		for i, v := range aligned {
			out[i] = out[i].WithValue(field, v)
		}
	}

	volumes := make([]float64, len(prices))
	for i, p := range prices {
		volumes[i] = p.Volume
	}
	_, aligned, err := Align(src, volumes, kept)
	if err != nil {
		return nil, fmt.Errorf("align volume: %w", err)
	}
	for i, v := range aligned {
		out[i].Volume = v
	}

	return out, nil
}

// Level brings several price series onto one shared date grid according to
// policy. Output series are index-aligned with the input and share the
// returned grid. Inputs are never modified.
func Level(series [][]contracts.PriceRecord, policy Policy) ([][]contracts.PriceRecord, []time.Time, error) {
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("%w: no series", ErrInsufficientData)
	}
	for i, s := range series {
		if len(s) == 0 {
			return nil, nil, fmt.Errorf("%w: series %d is empty", ErrInsufficientData, i)
		}
	}

	// 가장 늦게 시작한 시계열을 기준으로 삼음 (동률이면 먼저 처리된 것)
	ref := 0
	latestStart := series[0][0].Date
	earliestEnd := series[0][len(series[0])-1].Date
	for i, s := range series {
		if s[0].Date.After(latestStart) {
			latestStart = s[0].Date
			ref = i
		}
		if end := s[len(s)-1].Date; end.Before(earliestEnd) {
			earliestEnd = end
		}
	}
	if !earliestEnd.After(latestStart) {
		return nil, nil, fmt.Errorf("%w: no overlapping window (latest start %s, earliest end %s)",
			ErrInsufficientData, latestStart.Format("2006-01-02"), earliestEnd.Format("2006-01-02"))
	}

	var (
		grid []time.Time
		out  = make([][]contracts.PriceRecord, len(series))
	)

	switch policy {
	case PolicyTruncate:
		counts := make(map[int64]int)
		for _, s := range series {
			for _, p := range Window(s, latestStart, earliestEnd) {
				counts[p.Date.Unix()]++
			}
		}
		for _, p := range Window(series[ref], latestStart, earliestEnd) {
			if counts[p.Date.Unix()] == len(series) {
				grid = append(grid, p.Date)
			}
		}
		if len(grid) < 2 {
			return nil, nil, fmt.Errorf("%w: %d common dates", ErrInsufficientData, len(grid))
		}
		keep := make(map[int64]bool, len(grid))
		for _, d := range grid {
			keep[d.Unix()] = true
		}
		for i, s := range series {
			for _, p := range s {
				if keep[p.Date.Unix()] {
					out[i] = append(out[i], p)
				}
			}
		}

	case PolicyInterpolate:
		grid = contracts.PriceDates(Window(series[ref], latestStart, earliestEnd))
		if len(grid) < 2 {
			return nil, nil, fmt.Errorf("%w: %d grid dates", ErrInsufficientData, len(grid))
		}
		for i, s := range series {
			w := Window(s, latestStart, earliestEnd)
			if sameDates(w, grid) {
				out[i] = append([]contracts.PriceRecord(nil), w...)
				continue
			}
			// 전체 시계열로 보간해야 윈도우 경계 바깥의 점도 활용됨
			aligned, err := Prices(s, grid)
			if err != nil {
				return nil, nil, fmt.Errorf("series %d: %w", i, err)
			}
			out[i] = aligned
		}

	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}

	return out, grid, nil
}

// Window returns the records dated within [from, to]
func Window(prices []contracts.PriceRecord, from, to time.Time) []contracts.PriceRecord {
	out := make([]contracts.PriceRecord, 0, len(prices))
	for _, p := range prices {
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sameDates(prices []contracts.PriceRecord, grid []time.Time) bool {
	if len(prices) != len(grid) {
		return false
	}
	for i := range prices {
		if !prices[i].Date.Equal(grid[i]) {
			return false
		}
	}
	return true
}

// dayNumber maps a date to fractional days since the Unix epoch
func dayNumber(t time.Time) float64 {
	return float64(t.Unix()) / 86400.0
}
