// Package risk computes tail-risk figures of per-period portfolio returns.
package risk

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/rates"
)

var (
	ErrInsufficientData  = errors.New("insufficient data for risk estimate")
	ErrInvalidConfidence = errors.New("confidence must be in (0, 1)")
)

// Observed drops the leading rate of a series, which is the zero anchor of
// the first price rather than an observed return
func Observed(rs []contracts.RateRecord) []contracts.RateRecord {
	if len(rs) <= 1 {
		return nil
	}
	return rs[1:]
}

// =============================================================================
// Historical VaR
// =============================================================================

// HistoricalVaR estimates VaR and CVaR from the empirical distribution of
// a rate series. Losses are reported as positive numbers; a tail with no
// losses yields 0.
func HistoricalVaR(rs []contracts.RateRecord, confidence float64) (VaRResult, error) {
	return historical(rates.Values(rs), confidence)
}

func historical(returns []float64, confidence float64) (VaRResult, error) {
	if confidence <= 0 || confidence >= 1 {
		return VaRResult{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, confidence)
	}
	if len(returns) == 0 {
		return VaRResult{}, ErrInsufficientData
	}

	// 오름차순: 손실이 앞에
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int((1 - confidence) * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}

	var tail float64
	for _, r := range sorted[:idx+1] {
		tail += r
	}

	return VaRResult{
		Confidence: confidence,
		VaR:        lossOf(sorted[idx]),
		CVaR:       lossOf(tail / float64(idx+1)),
		Samples:    len(sorted),
	}, nil
}

// =============================================================================
// Parametric VaR (정규분포 가정)
// =============================================================================

// ParametricVaR fits a normal distribution to the rate series.
// VaR = −(mean + z·σ) with z the (1−confidence) quantile,
// CVaR = −mean + σ·φ(z)/(1−confidence).
func ParametricVaR(rs []contracts.RateRecord, confidence float64) (VaRResult, error) {
	if confidence <= 0 || confidence >= 1 {
		return VaRResult{}, fmt.Errorf("%w: %v", ErrInvalidConfidence, confidence)
	}
	if len(rs) < 2 {
		return VaRResult{}, fmt.Errorf("%w: need 2 samples, got %d", ErrInsufficientData, len(rs))
	}

	mean, sd := stat.MeanStdDev(rates.Values(rs), nil)
	unit := distuv.UnitNormal
	z := unit.Quantile(1 - confidence)

	return VaRResult{
		Confidence: confidence,
		VaR:        lossOf(mean + z*sd),
		CVaR:       lossOf(mean - sd*unit.Prob(z)/(1-confidence)),
		Samples:    len(rs),
	}, nil
}

func lossOf(r float64) float64 {
	if r < 0 {
		return -r
	}
	return 0
}
