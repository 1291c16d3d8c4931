package optimizer

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultTieThreshold  = 1e-4
	DefaultStepThreshold = 1e-5
	DefaultMaxIterations = 10000
)

var (
	ErrInvalidParams  = errors.New("invalid optimizer parameters")
	ErrNonConvergence = errors.New("optimizer did not converge")
	ErrDegenerate     = errors.New("degenerate optimizer step")
)

// Params configures a single optimization run.
// RiskTolerance is expressed per period (annual / periods per year).
type Params struct {
	RiskTolerance float64
	LowerBound    float64 // uniform per-weight floor, -Inf = unbounded
	UpperBound    float64 // uniform per-weight cap, +Inf = unbounded
	TieThreshold  float64 // minimum μbuy − μsell worth a swap
	StepThreshold float64 // loop ends once |a| falls to this
	MaxIterations int
}

// DefaultParams returns unbounded weights (leverage allowed) and the
// standard thresholds for the given per-period risk tolerance
func DefaultParams(riskTolerance float64) Params {
	return Params{
		RiskTolerance: riskTolerance,
		LowerBound:    math.Inf(-1),
		UpperBound:    math.Inf(1),
		TieThreshold:  DefaultTieThreshold,
		StepThreshold: DefaultStepThreshold,
		MaxIterations: DefaultMaxIterations,
	}
}

// Validate rejects parameters the swap loop cannot work with
func (p Params) Validate() error {
	if !(p.RiskTolerance > 0) || math.IsInf(p.RiskTolerance, 0) {
		return fmt.Errorf("%w: risk tolerance must be positive and finite, got %v", ErrInvalidParams, p.RiskTolerance)
	}
	if math.IsNaN(p.LowerBound) || math.IsNaN(p.UpperBound) || p.LowerBound > p.UpperBound {
		return fmt.Errorf("%w: bounds [%v, %v]", ErrInvalidParams, p.LowerBound, p.UpperBound)
	}
	if !(p.TieThreshold >= 0) || !(p.StepThreshold >= 0) {
		return fmt.Errorf("%w: thresholds must be non-negative", ErrInvalidParams)
	}
	if p.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations %d", ErrInvalidParams, p.MaxIterations)
	}
	return nil
}
