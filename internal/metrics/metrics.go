// Package metrics holds the per-instrument risk/return statistics.
// All functions are pure and operate on rate series.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/rates"
)

// =============================================================================
// Constants
// =============================================================================

const (
	CalendarDaysPerYear = 365.0

	TradingDaysPerYear = 252.0
	WeeksPerYear       = 52.0
	MonthsPerYear      = 12.0

	// Bloomberg-style shrinkage of beta toward 1
	betaShrinkIntercept = 0.33
	betaShrinkSlope     = 0.67
)

var (
	ErrDegenerateSeries = errors.New("degenerate series")
	ErrLengthMismatch   = errors.New("series lengths differ")
	ErrInvalidPeriods   = errors.New("periods per year must be positive")
)

// PeriodsPerYear maps a sampling frequency name to its annualisation factor
func PeriodsPerYear(frequency string) (float64, error) {
	switch frequency {
	case "daily", "d":
		return TradingDaysPerYear, nil
	case "weekly", "w":
		return WeeksPerYear, nil
	case "monthly", "m":
		return MonthsPerYear, nil
	}
	return 0, fmt.Errorf("unknown frequency %q", frequency)
}

// =============================================================================
// Dispersion
// =============================================================================

// StdDev is the sample standard deviation of the rate column
func StdDev(rs []contracts.RateRecord) (float64, error) {
	if len(rs) < 2 {
		return 0, fmt.Errorf("%w: stdev needs 2 points, got %d", ErrDegenerateSeries, len(rs))
	}
	return stat.StdDev(rates.Values(rs), nil), nil
}

// Volatility = sqrt(periodsPerYear) * stdev(rates)
func Volatility(rs []contracts.RateRecord, periodsPerYear float64) (float64, error) {
	if periodsPerYear <= 0 {
		return 0, ErrInvalidPeriods
	}
	sd, err := StdDev(rs)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(periodsPerYear) * sd, nil
}

// =============================================================================
// Market sensitivity
// =============================================================================

// regress fits rates = alpha + beta*bench by ordinary least squares
func regress(rs, bench []contracts.RateRecord) (alpha, beta float64, err error) {
	if len(rs) != len(bench) {
		return 0, 0, fmt.Errorf("%w: %d rates vs %d benchmark rates", ErrLengthMismatch, len(rs), len(bench))
	}
	if len(rs) < 2 {
		return 0, 0, fmt.Errorf("%w: regression needs 2 points, got %d", ErrDegenerateSeries, len(rs))
	}

	x := rates.Values(bench)
	if stat.Variance(x, nil) == 0 {
		return 0, 0, fmt.Errorf("%w: benchmark has zero variance", ErrDegenerateSeries)
	}

	alpha, beta = stat.LinearRegression(x, rates.Values(rs), nil, false)
	return alpha, beta, nil
}

// Beta is the slope of rates regressed on benchmark rates
func Beta(rs, bench []contracts.RateRecord) (float64, error) {
	_, beta, err := regress(rs, bench)
	return beta, err
}

// Alpha is the intercept of rates regressed on benchmark rates
func Alpha(rs, bench []contracts.RateRecord) (float64, error) {
	alpha, _, err := regress(rs, bench)
	return alpha, err
}

// BetaAdjusted = 0.33 + 0.67 * beta
func BetaAdjusted(rs, bench []contracts.RateRecord) (float64, error) {
	beta, err := Beta(rs, bench)
	if err != nil {
		return 0, err
	}
	return betaShrinkIntercept + betaShrinkSlope*beta, nil
}

// =============================================================================
// Returns
// =============================================================================

// ChainLinkedReturn is the geometric total return over the series
func ChainLinkedReturn(rs []contracts.RateRecord) (float64, error) {
	if len(rs) < 2 {
		return 0, fmt.Errorf("%w: chain-linked return needs 2 points, got %d", ErrDegenerateSeries, len(rs))
	}
	total := 1.0
	for _, r := range rs {
		total *= 1 + r.Rate
	}
	return total - 1, nil
}

// Years is the elapsed calendar time covered by the series
func Years(rs []contracts.RateRecord) (float64, error) {
	if len(rs) < 2 {
		return 0, fmt.Errorf("%w: elapsed time needs 2 points, got %d", ErrDegenerateSeries, len(rs))
	}
	days := rs[len(rs)-1].Date.Sub(rs[0].Date).Hours() / 24
	if days <= 0 {
		return 0, fmt.Errorf("%w: series spans no time", ErrDegenerateSeries)
	}
	return days / CalendarDaysPerYear, nil
}

// AnnualizedRate = (1 + chain-linked return)^(1/years) - 1
func AnnualizedRate(rs []contracts.RateRecord) (float64, error) {
	yrs, err := Years(rs)
	if err != nil {
		return 0, err
	}
	clr, err := ChainLinkedReturn(rs)
	if err != nil {
		return 0, err
	}
	return math.Pow(1+clr, 1/yrs) - 1, nil
}

// AnnualizedAdjustedReturn is the simple (not compounded) annual excess
// return: sum(rate - rfr/observedPeriodsPerYear) / years.
// The optimizer's marginal utility assumes this form.
func AnnualizedAdjustedReturn(rs []contracts.RateRecord, riskFreeRate float64) (float64, error) {
	yrs, err := Years(rs)
	if err != nil {
		return 0, err
	}

	periodsPerYear := float64(len(rs)) / yrs
	perPeriodRFR := riskFreeRate / periodsPerYear

	var sum float64
	for _, r := range rs {
		sum += r.Rate - perPeriodRFR
	}
	return sum / yrs, nil
}

// ExpectedReturn applies CAPM:
//
//	E(Ri) = rfr + betaAdjusted * (E(Rm) - rfr)
//
// where E(Rm) is the benchmark's annualized adjusted return.
func ExpectedReturn(rs, bench []contracts.RateRecord, riskFreeRate float64) (float64, error) {
	beta, err := BetaAdjusted(rs, bench)
	if err != nil {
		return 0, err
	}
	erm, err := AnnualizedAdjustedReturn(bench, riskFreeRate)
	if err != nil {
		return 0, fmt.Errorf("benchmark: %w", err)
	}
	return riskFreeRate + beta*(erm-riskFreeRate), nil
}

// SharpeRatio = annualized adjusted return / stdev(rates)
func SharpeRatio(rs []contracts.RateRecord, riskFreeRate float64) (float64, error) {
	aar, err := AnnualizedAdjustedReturn(rs, riskFreeRate)
	if err != nil {
		return 0, err
	}
	sd, err := StdDev(rs)
	if err != nil {
		return 0, err
	}
	if sd == 0 {
		return 0, fmt.Errorf("%w: zero variance", ErrDegenerateSeries)
	}
	return aar / sd, nil
}
