package portfolio

import (
	"errors"
	"fmt"
	"math"

	"github.com/tvaught/experimental/internal/align"
	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/metrics"
)

// WeightMode selects how the starting weights are produced
type WeightMode string

const (
	WeightEqual    WeightMode = "equal"    // 1/n per instrument
	WeightExplicit WeightMode = "explicit" // Config.Weights by symbol
)

// WeightPolicy decides what happens when weights do not sum to 1
// ⭐ SSOT: 비중 합계 정책은 여기서만 결정
type WeightPolicy string

const (
	// PolicyStrict rejects weights whose sum is not 1 (within weightSumTolerance)
	PolicyStrict WeightPolicy = "strict"
	// PolicyNormalize rescales weights to sum to 1
	PolicyNormalize WeightPolicy = "normalize"
	// PolicyFree accepts weights as given (cash or leverage allowed)
	PolicyFree WeightPolicy = "free"
)

const weightSumTolerance = 1e-9

var (
	ErrTooFewInstruments = errors.New("fewer than two usable instruments")
	ErrAlignment         = errors.New("rate series are not on a common date grid")
	ErrWeightSum         = errors.New("weights do not sum to 1")
	ErrInvalidConfig     = errors.New("invalid portfolio configuration")
)

// Config defines how a Portfolio is assembled from raw price histories
type Config struct {
	Benchmark      string             // 벤치마크 심볼 (표시용)
	PriceField     contracts.PriceField
	PeriodsPerYear float64
	RiskFreeRate   float64 // annual, used for AAR and CAPM alike
	Alignment      align.Policy
	WeightMode     WeightMode
	WeightPolicy   WeightPolicy
	Weights        map[string]float64 // explicit mode only
}

// DefaultConfig returns daily adjusted-close settings with equal weights
func DefaultConfig() Config {
	return Config{
		Benchmark:      "LALDX",
		PriceField:     contracts.FieldAdjustedClose,
		PeriodsPerYear: metrics.TradingDaysPerYear,
		RiskFreeRate:   0.015,
		Alignment:      align.PolicyInterpolate,
		WeightMode:     WeightEqual,
		WeightPolicy:   PolicyStrict,
	}
}

// Validate checks the configuration before any series is touched
func (c Config) Validate() error {
	if c.PeriodsPerYear <= 0 || math.IsNaN(c.PeriodsPerYear) {
		return fmt.Errorf("%w: periods per year %v", ErrInvalidConfig, c.PeriodsPerYear)
	}
	if math.IsNaN(c.RiskFreeRate) || math.IsInf(c.RiskFreeRate, 0) {
		return fmt.Errorf("%w: risk-free rate %v", ErrInvalidConfig, c.RiskFreeRate)
	}
	if _, err := contracts.ParsePriceField(string(c.PriceField)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := align.ParsePolicy(string(c.Alignment)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.WeightMode {
	case WeightEqual:
	case WeightExplicit:
		if len(c.Weights) == 0 {
			return fmt.Errorf("%w: explicit weight mode without weights", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: weight mode %q", ErrInvalidConfig, c.WeightMode)
	}

	switch c.WeightPolicy {
	case PolicyStrict, PolicyNormalize, PolicyFree:
	default:
		return fmt.Errorf("%w: weight policy %q", ErrInvalidConfig, c.WeightPolicy)
	}

	return nil
}
