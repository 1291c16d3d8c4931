package portfolio

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tvaught/experimental/internal/contracts"
)

// ErrNoRateSeries is returned by moment-only snapshots asked for rates
var ErrNoRateSeries = errors.New("snapshot has no rate series")

// Snapshot is the mutable state of one optimization run: its own weight
// vector over a fixed symbol set, plus the cached expected-return vector
// and covariance matrix the marginal utility is computed from.
// ⭐ SSOT: 스냅샷마다 비중 벡터를 독립적으로 소유, 모멘트는 읽기 전용 공유
type Snapshot struct {
	symbols        []string
	weights        []float64
	expected       []float64
	cov            *mat.SymDense
	series         [][]contracts.RateRecord // nil for moment-only snapshots
	periodsPerYear float64
}

// NewSnapshot builds a moment-only snapshot from an expected-return vector
// (annual) and a per-period covariance matrix. Inputs are copied.
func NewSnapshot(symbols []string, expected []float64, cov mat.Symmetric, weights []float64, periodsPerYear float64) (*Snapshot, error) {
	n := len(symbols)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty symbol set", ErrInvalidConfig)
	}
	if len(expected) != n || len(weights) != n {
		return nil, fmt.Errorf("%w: %d symbols, %d returns, %d weights", ErrInvalidConfig, n, len(expected), len(weights))
	}
	if cov == nil || cov.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: covariance must be %dx%d", ErrInvalidConfig, n, n)
	}
	if periodsPerYear <= 0 {
		return nil, fmt.Errorf("%w: periods per year %v", ErrInvalidConfig, periodsPerYear)
	}

	c := mat.NewSymDense(n, nil)
	c.CopySym(cov)

	return &Snapshot{
		symbols:        append([]string(nil), symbols...),
		weights:        append([]float64(nil), weights...),
		expected:       append([]float64(nil), expected...),
		cov:            c,
		periodsPerYear: periodsPerYear,
	}, nil
}

// Len is the number of instruments
func (s *Snapshot) Len() int { return len(s.symbols) }

// Symbols returns the instrument symbols in index order
func (s *Snapshot) Symbols() []string { return append([]string(nil), s.symbols...) }

// Symbol returns the symbol at index i
func (s *Snapshot) Symbol(i int) string { return s.symbols[i] }

// Weight returns the current weight at index i
func (s *Snapshot) Weight(i int) float64 { return s.weights[i] }

// Weights returns a copy of the current weight vector
func (s *Snapshot) Weights() []float64 { return append([]float64(nil), s.weights...) }

// WeightMap returns the current weights by symbol
func (s *Snapshot) WeightMap() map[string]float64 { return weightMap(s.symbols, s.weights) }

// SetWeight overwrites the weight at index i
func (s *Snapshot) SetWeight(i int, w float64) { s.weights[i] = w }

// Shift moves amount of weight from sell to buy; the weight sum is unchanged
func (s *Snapshot) Shift(buy, sell int, amount float64) {
	s.weights[buy] += amount
	s.weights[sell] -= amount
}

// Expected returns the expected return of instrument i
func (s *Snapshot) Expected(i int) float64 { return s.expected[i] }

// Cov returns the covariance between instruments i and j
func (s *Snapshot) Cov(i, j int) float64 { return s.cov.At(i, j) }

// CovarianceTimes returns C·x for the current weight vector x
func (s *Snapshot) CovarianceTimes() []float64 {
	n := len(s.weights)
	var cx mat.VecDense
	cx.MulVec(s.cov, mat.NewVecDense(n, append([]float64(nil), s.weights...)))
	return cx.RawVector().Data
}

// PeriodsPerYear is the annualisation factor of the covariance matrix
func (s *Snapshot) PeriodsPerYear() float64 { return s.periodsPerYear }

// Return = Σ weight · expected return
func (s *Snapshot) Return() float64 { return dot(s.weights, s.expected) }

// Variance is the annualized portfolio variance, periodsPerYear · xᵀCx
func (s *Snapshot) Variance() float64 {
	return s.periodsPerYear * dot(s.weights, s.CovarianceTimes())
}

// Volatility = √Variance
func (s *Snapshot) Volatility() float64 { return math.Sqrt(s.Variance()) }

// RateSeries is the weighted sum of the instrument rate series at the
// current weights. Moment-only snapshots return ErrNoRateSeries.
func (s *Snapshot) RateSeries() ([]contracts.RateRecord, error) {
	if s.series == nil {
		return nil, ErrNoRateSeries
	}
	return combineRates(s.series, s.weights)
}

// Clone returns an independent copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.weights = append([]float64(nil), s.weights...)
	return &c
}
