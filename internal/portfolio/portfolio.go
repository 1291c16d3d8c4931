// Package portfolio assembles instruments onto one date grid and derives
// the aggregate return, variance and covariance used by the optimizer.
package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tvaught/experimental/internal/align"
	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/metrics"
	"github.com/tvaught/experimental/internal/rates"
	"github.com/tvaught/experimental/pkg/logger"
)

// Portfolio is a fixed set of aligned instruments with starting weights.
// ⭐ SSOT: 생성 이후 읽기 전용 (스윕 중 여러 고루틴이 공유)
type Portfolio struct {
	symbols     []string       // sorted
	index       map[string]int // symbol → position in symbols
	instruments []*Instrument
	weights     []float64

	grid     []time.Time
	expected []float64     // annualized adjusted return per instrument
	cov      *mat.SymDense // per-period sample covariance of rates

	dropped map[string]error
	cfg     Config
	log     *logger.Logger
}

// New builds a portfolio from raw price histories keyed by symbol.
// Symbols whose data is empty, too short or degenerate are dropped with a
// warning and reported by Dropped. The remaining series are levelled onto
// one grid with cfg.Alignment.
func New(instrumentPrices map[string][]contracts.PriceRecord, bench []contracts.PriceRecord, cfg Config, log *logger.Logger) (*Portfolio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	if len(bench) < 2 {
		return nil, fmt.Errorf("benchmark %s: %w", cfg.Benchmark, align.ErrInsufficientData)
	}

	p := &Portfolio{
		dropped: make(map[string]error),
		cfg:     cfg,
		log:     log,
	}

	symbols := make([]string, 0, len(instrumentPrices))
	for symbol := range instrumentPrices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		prices := instrumentPrices[symbol]
		if len(prices) < 2 {
			p.drop(symbol, fmt.Errorf("%w: %d price records", align.ErrInsufficientData, len(prices)))
			continue
		}
		inst, err := NewInstrument(symbol, prices, bench, cfg)
		if err != nil {
			p.drop(symbol, err)
			continue
		}
		p.instruments = append(p.instruments, inst)
	}

	if err := p.levelLengths(cfg.Alignment); err != nil {
		return nil, err
	}

	weights, discarded, err := resolveWeights(p.symbols, cfg)
	if len(discarded) > 0 {
		log.WithField("symbols", discarded).Warn("Explicit weights discarded for symbols not in portfolio")
	}
	if err != nil {
		return nil, err
	}
	p.weights = weights

	log.WithFields(map[string]interface{}{
		"instruments": len(p.symbols),
		"dropped":     len(p.dropped),
		"periods":     len(p.grid),
		"alignment":   string(cfg.Alignment),
	}).Info("Portfolio constructed")

	return p, nil
}

// levelLengths levels every instrument and the benchmark onto one grid and
// recomputes rates, metrics and moments. Instruments that become
// degenerate on the common grid are dropped and the remaining set is
// levelled again.
func (p *Portfolio) levelLengths(policy align.Policy) error {
	for {
		if len(p.instruments) < 2 {
			return fmt.Errorf("%w: %d remaining", ErrTooFewInstruments, len(p.instruments))
		}

		series := make([][]contracts.PriceRecord, 0, len(p.instruments)+1)
		for _, inst := range p.instruments {
			series = append(series, inst.originalPrices)
		}
		series = append(series, p.instruments[0].originalBenchPrices)

		leveled, grid, err := align.Level(series, policy)
		if err != nil {
			return fmt.Errorf("level portfolio: %w", err)
		}
		bench := leveled[len(leveled)-1]

		kept := p.instruments[:0:0]
		for k, inst := range p.instruments {
			if err := inst.setSeries(leveled[k], bench); err != nil {
				p.drop(inst.Symbol, err)
				continue
			}
			kept = append(kept, inst)
		}

		if len(kept) == len(p.instruments) {
			p.grid = grid
			break
		}
		p.instruments = kept
	}

	p.symbols = make([]string, len(p.instruments))
	p.index = make(map[string]int, len(p.instruments))
	p.expected = make([]float64, len(p.instruments))
	for i, inst := range p.instruments {
		p.symbols[i] = inst.Symbol
		p.index[inst.Symbol] = i
		p.expected[i] = inst.Metrics.AnnualizedAdjustedReturn
	}

	cov, err := covariance(p.rateSeries())
	if err != nil {
		return err
	}
	p.cov = cov
	return nil
}

func (p *Portfolio) drop(symbol string, err error) {
	p.dropped[symbol] = err
	p.log.WithFields(map[string]interface{}{
		"symbol": symbol,
		"error":  err.Error(),
	}).Warn("Instrument dropped")
}

func (p *Portfolio) rateSeries() [][]contracts.RateRecord {
	out := make([][]contracts.RateRecord, len(p.instruments))
	for i, inst := range p.instruments {
		out[i] = inst.rates
	}
	return out
}

// =============================================================================
// Accessors
// =============================================================================

// Symbols returns the instrument symbols in index order
func (p *Portfolio) Symbols() []string {
	return append([]string(nil), p.symbols...)
}

// Index returns the position of symbol in the weight vector
func (p *Portfolio) Index(symbol string) (int, bool) {
	i, ok := p.index[symbol]
	return i, ok
}

// Instrument looks up an instrument by symbol
func (p *Portfolio) Instrument(symbol string) (*Instrument, bool) {
	i, ok := p.index[symbol]
	if !ok {
		return nil, false
	}
	return p.instruments[i], true
}

// Dropped returns the symbols rejected during construction and why
func (p *Portfolio) Dropped() map[string]error {
	out := make(map[string]error, len(p.dropped))
	for k, v := range p.dropped {
		out[k] = v
	}
	return out
}

// Grid returns the shared date grid of every aligned series
func (p *Portfolio) Grid() []time.Time {
	return append([]time.Time(nil), p.grid...)
}

// Config returns the configuration the portfolio was built with
func (p *Portfolio) Config() Config { return p.cfg }

// PeriodsPerYear is the annualisation factor of the rate series
func (p *Portfolio) PeriodsPerYear() float64 { return p.cfg.PeriodsPerYear }

// Weights returns the starting weights by symbol
func (p *Portfolio) Weights() map[string]float64 {
	return weightMap(p.symbols, p.weights)
}

// ExpectedReturns returns the annualized adjusted return vector in index order
func (p *Portfolio) ExpectedReturns() []float64 {
	return append([]float64(nil), p.expected...)
}

// Covariance returns a copy of the per-period covariance matrix of rates
func (p *Portfolio) Covariance() *mat.SymDense {
	n := len(p.symbols)
	out := mat.NewSymDense(n, nil)
	out.CopySym(p.cov)
	return out
}

// =============================================================================
// Aggregates
// =============================================================================

// Return = Σ weight · annualized adjusted return
func (p *Portfolio) Return() float64 {
	return dot(p.weights, p.expected)
}

// RateSeries is the weighted sum of the aligned instrument rate series
func (p *Portfolio) RateSeries() ([]contracts.RateRecord, error) {
	return combineRates(p.rateSeries(), p.weights)
}

// Variance = Volatility(RateSeries)²
func (p *Portfolio) Variance() (float64, error) {
	vol, err := p.Volatility()
	if err != nil {
		return 0, err
	}
	return vol * vol, nil
}

// Volatility is the annualized volatility of the portfolio rate series
func (p *Portfolio) Volatility() (float64, error) {
	rs, err := p.RateSeries()
	if err != nil {
		return 0, err
	}
	return metrics.Volatility(rs, p.cfg.PeriodsPerYear)
}

// InstrumentPoints returns per-instrument scatter data at the starting weights
func (p *Portfolio) InstrumentPoints() []contracts.InstrumentPoint {
	out := make([]contracts.InstrumentPoint, len(p.instruments))
	for i, inst := range p.instruments {
		out[i] = inst.Point(p.weights[i])
	}
	return out
}

// Snapshot returns a fresh optimization snapshot at the starting weights.
// The snapshot owns its weight vector; moments and rate series are shared
// read-only with the portfolio.
func (p *Portfolio) Snapshot() *Snapshot {
	return &Snapshot{
		symbols:        p.symbols,
		weights:        append([]float64(nil), p.weights...),
		expected:       p.expected,
		cov:            p.cov,
		series:         p.rateSeries(),
		periodsPerYear: p.cfg.PeriodsPerYear,
	}
}

// =============================================================================
// Helpers
// =============================================================================

// combineRates returns Σ w_i · rates_i per date
func combineRates(series [][]contracts.RateRecord, weights []float64) ([]contracts.RateRecord, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("%w: no series", ErrAlignment)
	}
	if len(series) != len(weights) {
		return nil, fmt.Errorf("%w: %d series, %d weights", ErrAlignment, len(series), len(weights))
	}

	out := make([]contracts.RateRecord, len(series[0]))
	for t, r := range series[0] {
		out[t].Date = r.Date
	}
	for i, rs := range series {
		if !rates.SameGrid(series[0], rs) {
			return nil, fmt.Errorf("%w: series %d", ErrAlignment, i)
		}
		for t, r := range rs {
			out[t].Rate += weights[i] * r.Rate
		}
	}
	return out, nil
}

// covariance computes the sample covariance matrix of equally long series
func covariance(series [][]contracts.RateRecord) (*mat.SymDense, error) {
	n := len(series)
	if n == 0 {
		return nil, fmt.Errorf("%w: no series", ErrAlignment)
	}
	periods := len(series[0])
	if periods < 2 {
		return nil, fmt.Errorf("%w: covariance needs 2 periods", metrics.ErrDegenerateSeries)
	}

	data := mat.NewDense(periods, n, nil)
	for j, rs := range series {
		if !rates.SameGrid(series[0], rs) {
			return nil, fmt.Errorf("%w: series %d", ErrAlignment, j)
		}
		for t, r := range rs {
			data.Set(t, j, r.Rate)
		}
	}

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, data, nil)

	for i := 0; i < n; i++ {
		if v := cov.At(i, i); math.IsNaN(v) {
			return nil, errors.New("covariance matrix contains NaN")
		}
	}
	return cov, nil
}

func weightMap(symbols []string, weights []float64) map[string]float64 {
	out := make(map[string]float64, len(symbols))
	for i, s := range symbols {
		out[s] = weights[i]
	}
	return out
}

func dot(a, b []float64) float64 {
	var total float64
	for i := range a {
		total += a[i] * b[i]
	}
	return total
}
