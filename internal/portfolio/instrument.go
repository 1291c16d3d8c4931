package portfolio

import (
	"fmt"

	"github.com/tvaught/experimental/internal/align"
	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/metrics"
	"github.com/tvaught/experimental/internal/rates"
)

// Metrics are the per-instrument statistics derived from aligned rates
type Metrics struct {
	Volatility               float64 `json:"volatility"`
	Beta                     float64 `json:"beta"`
	BetaAdjusted             float64 `json:"beta_adjusted"`
	Alpha                    float64 `json:"alpha"`
	AnnualizedAdjustedReturn float64 `json:"annualized_adjusted_return"`
	ExpectedReturn           float64 `json:"expected_return"`
	SharpeRatio              float64 `json:"sharpe_ratio"`
}

// Instrument is one tradable series paired with its benchmark
type Instrument struct {
	Symbol    string
	Benchmark string

	prices      []contracts.PriceRecord
	benchPrices []contracts.PriceRecord
	rates       []contracts.RateRecord
	benchRates  []contracts.RateRecord

	// 정렬 전 원본 (Restore용)
	originalPrices      []contracts.PriceRecord
	originalBenchPrices []contracts.PriceRecord

	Metrics Metrics

	cfg Config
}

// NewInstrument aligns an instrument with its benchmark and computes metrics
func NewInstrument(symbol string, prices, bench []contracts.PriceRecord, cfg Config) (*Instrument, error) {
	inst := &Instrument{
		Symbol:              symbol,
		Benchmark:           cfg.Benchmark,
		originalPrices:      prices,
		originalBenchPrices: bench,
		cfg:                 cfg,
	}

	if err := inst.Restore(); err != nil {
		return nil, err
	}
	return inst, nil
}

// Restore reverts the instrument to its pre-alignment series, levelled
// against its own benchmark only
func (i *Instrument) Restore() error {
	leveled, _, err := align.Level([][]contracts.PriceRecord{i.originalPrices, i.originalBenchPrices}, i.cfg.Alignment)
	if err != nil {
		return fmt.Errorf("%s: %w", i.Symbol, err)
	}
	return i.setSeries(leveled[0], leveled[1])
}

// setSeries replaces the aligned series and recomputes rates and metrics
func (i *Instrument) setSeries(prices, bench []contracts.PriceRecord) error {
	rs, err := rates.Rates(prices, i.cfg.PriceField, 0)
	if err != nil {
		return fmt.Errorf("%s rates: %w", i.Symbol, err)
	}
	brs, err := rates.Rates(bench, i.cfg.PriceField, 0)
	if err != nil {
		return fmt.Errorf("%s benchmark rates: %w", i.Symbol, err)
	}
	if !rates.SameGrid(rs, brs) {
		return fmt.Errorf("%s: %w", i.Symbol, ErrAlignment)
	}

	m, err := computeMetrics(rs, brs, i.cfg)
	if err != nil {
		return fmt.Errorf("%s metrics: %w", i.Symbol, err)
	}

	i.prices, i.benchPrices = prices, bench
	i.rates, i.benchRates = rs, brs
	i.Metrics = m
	return nil
}

func computeMetrics(rs, brs []contracts.RateRecord, cfg Config) (Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.Volatility, err = metrics.Volatility(rs, cfg.PeriodsPerYear); err != nil {
		return m, err
	}
	if m.Alpha, m.Beta, err = alphaBeta(rs, brs); err != nil {
		return m, err
	}
	if m.BetaAdjusted, err = metrics.BetaAdjusted(rs, brs); err != nil {
		return m, err
	}
	if m.AnnualizedAdjustedReturn, err = metrics.AnnualizedAdjustedReturn(rs, cfg.RiskFreeRate); err != nil {
		return m, err
	}
	if m.ExpectedReturn, err = metrics.ExpectedReturn(rs, brs, cfg.RiskFreeRate); err != nil {
		return m, err
	}
	if m.SharpeRatio, err = metrics.SharpeRatio(rs, cfg.RiskFreeRate); err != nil {
		return m, err
	}

	return m, nil
}

func alphaBeta(rs, brs []contracts.RateRecord) (float64, float64, error) {
	alpha, err := metrics.Alpha(rs, brs)
	if err != nil {
		return 0, 0, err
	}
	beta, err := metrics.Beta(rs, brs)
	if err != nil {
		return 0, 0, err
	}
	return alpha, beta, nil
}

// Prices returns the aligned price series
func (i *Instrument) Prices() []contracts.PriceRecord { return i.prices }

// BenchmarkPrices returns the benchmark series aligned with Prices
func (i *Instrument) BenchmarkPrices() []contracts.PriceRecord { return i.benchPrices }

// Rates returns the aligned simple-return series
func (i *Instrument) Rates() []contracts.RateRecord { return i.rates }

// BenchmarkRates returns the benchmark return series aligned with Rates
func (i *Instrument) BenchmarkRates() []contracts.RateRecord { return i.benchRates }

// Point returns the scatter data for this instrument at the given weight
func (i *Instrument) Point(weight float64) contracts.InstrumentPoint {
	return contracts.InstrumentPoint{
		Symbol:                   i.Symbol,
		Volatility:               i.Metrics.Volatility,
		AnnualizedAdjustedReturn: i.Metrics.AnnualizedAdjustedReturn,
		ExpectedReturn:           i.Metrics.ExpectedReturn,
		Beta:                     i.Metrics.Beta,
		SharpeRatio:              i.Metrics.SharpeRatio,
		Weight:                   weight,
	}
}
