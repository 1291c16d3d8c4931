package profile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tvaught/experimental/internal/align"
	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/metrics"
	"github.com/tvaught/experimental/internal/optimizer"
	"github.com/tvaught/experimental/internal/portfolio"
)

// Load reads a YAML profile file and returns it with its raw bytes
func Load(path string) (*Profile, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	p, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return p, data, nil
}

// Parse decodes and validates a YAML profile. Omitted sections keep the
// values of Default().
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Parse(data []byte) (*Profile, error) {
	p := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, err
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Hash generates the SHA256 of the profile's canonical JSON.
// Used as the frontier cache key.
func Hash(p *Profile) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// Default returns the built-in profile: three index funds against LALDX,
// daily adjusted closes, long-only frontier from 0.05 to 1.5
func Default() *Profile {
	lower, upper := 0.0, 1.0

	return &Profile{
		Meta: Meta{ProfileID: "default", Version: "1"},
		Universe: Universe{
			Symbols:   []string{"VISGX", "VGPMX", "VGSIX"},
			Benchmark: "LALDX",
			From:      "2004-01-01",
			To:        "2011-08-12",
		},
		Metrics: Metrics{
			Frequency:    "daily",
			RiskFreeRate: 0.015,
			PriceField:   string(contracts.FieldAdjustedClose),
		},
		Alignment: Alignment{Policy: string(align.PolicyInterpolate)},
		Weights: Weights{
			Mode:   string(portfolio.WeightEqual),
			Policy: string(portfolio.PolicyStrict),
		},
		Optimizer: Optimizer{
			RiskTolerance: 0.2,
			LowerBound:    &lower,
			UpperBound:    &upper,
			TieThreshold:  optimizer.DefaultTieThreshold,
			StepThreshold: optimizer.DefaultStepThreshold,
			MaxIterations: optimizer.DefaultMaxIterations,
		},
		Frontier: Frontier{Start: 0.05, End: 1.5, Step: 0.05},
	}
}

// =============================================================================
// Conversions to core settings
// =============================================================================

// PeriodsPerYear returns the annualisation factor of the metrics frequency
func (p *Profile) PeriodsPerYear() float64 {
	ppy, _ := metrics.PeriodsPerYear(p.Metrics.Frequency)
	return ppy
}

// PortfolioConfig maps the profile onto portfolio construction settings
func (p *Profile) PortfolioConfig() portfolio.Config {
	field, _ := contracts.ParsePriceField(p.Metrics.PriceField)

	return portfolio.Config{
		Benchmark:      p.Universe.Benchmark,
		PriceField:     field,
		PeriodsPerYear: p.PeriodsPerYear(),
		RiskFreeRate:   p.Metrics.RiskFreeRate,
		Alignment:      align.Policy(p.Alignment.Policy),
		WeightMode:     portfolio.WeightMode(p.Weights.Mode),
		WeightPolicy:   portfolio.WeightPolicy(p.Weights.Policy),
		Weights:        p.Weights.Explicit,
	}
}

// OptimizerParams returns single-run parameters for an annual risk
// tolerance, converted to per-period terms
func (p *Profile) OptimizerParams(annualRiskTolerance float64) optimizer.Params {
	params := optimizer.DefaultParams(annualRiskTolerance / p.PeriodsPerYear())
	if p.Optimizer.LowerBound != nil {
		params.LowerBound = *p.Optimizer.LowerBound
	}
	if p.Optimizer.UpperBound != nil {
		params.UpperBound = *p.Optimizer.UpperBound
	}
	params.TieThreshold = p.Optimizer.TieThreshold
	params.StepThreshold = p.Optimizer.StepThreshold
	params.MaxIterations = p.Optimizer.MaxIterations
	return params
}

// SweepParams returns the frontier sweep settings
func (p *Profile) SweepParams(workers int) optimizer.SweepParams {
	return optimizer.SweepParams{
		Start:          p.Frontier.Start,
		End:            p.Frontier.End,
		Step:           p.Frontier.Step,
		PeriodsPerYear: p.PeriodsPerYear(),
		Workers:        workers,
		Optimizer:      p.OptimizerParams(p.Frontier.Start),
	}
}
