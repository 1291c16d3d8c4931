// Package optimizer implements Sharpe's marginal-utility swap heuristic:
// repeatedly move weight from the instrument with the lowest marginal
// utility to the one with the highest until no worthwhile swap remains.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/pkg/logger"
)

// State is the lifecycle of one optimization run
type State string

const (
	StateInitialized State = "INITIALIZED"
	StateIterating   State = "ITERATING"
	StateConverged   State = "CONVERGED"
	StateDegenerate  State = "DEGENERATE"
)

// Step describes one buy/sell swap
type Step struct {
	Buy           int     `json:"buy"`
	Sell          int     `json:"sell"`
	Amount        float64 `json:"amount"`         // a, weight moved from Sell to Buy
	UtilityChange float64 `json:"utility_change"` // k0·a − k1·a²
	Sentinel      bool    `json:"sentinel"`       // no worthwhile swap was found
	SellClamped   bool    `json:"sell_clamped"`
	BuyClamped    bool    `json:"buy_clamped"`
}

// Result is the outcome of Optimize
type Result struct {
	RiskTolerance float64            `json:"risk_tolerance"` // per period
	State         State              `json:"state"`
	Iterations    int                `json:"iterations"`
	Weights       map[string]float64 `json:"weights"`
	Return        float64            `json:"return"`
	Variance      float64            `json:"variance"`
	Volatility    float64            `json:"volatility"`
	UtilityGain   float64            `json:"utility_gain"`

	Snapshot *portfolio.Snapshot `json:"-"`
}

// Optimizer runs the swap loop with fixed parameters.
// ⭐ SSOT: 스왑 루프는 순차 실행, 병렬화는 Sweep에서만
type Optimizer struct {
	params Params
	log    *logger.Logger
}

// New creates an optimizer after validating params
func New(params Params, log *logger.Logger) (*Optimizer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Optimizer{params: params, log: log}, nil
}

// Params returns the parameters the optimizer was built with
func (o *Optimizer) Params() Params { return o.params }

// MarginalUtility returns μ = e − (1/rt)·2·C·x for the snapshot's weights
func MarginalUtility(snap *portfolio.Snapshot, riskTolerance float64) []float64 {
	cx := snap.CovarianceTimes()
	mu := make([]float64, snap.Len())
	for i := range mu {
		mu[i] = snap.Expected(i) - (2/riskTolerance)*cx[i]
	}
	return mu
}

// selectSwap picks the instrument to buy (highest μ below the upper bound)
// and the one to sell (lowest μ above the lower bound). ok is false when no
// candidate pair improves utility by more than the tie threshold.
func (o *Optimizer) selectSwap(snap *portfolio.Snapshot, mu []float64) (buy, sell int, ok bool) {
	buy, sell = -1, -1
	for i, m := range mu {
		w := snap.Weight(i)
		if w < o.params.UpperBound && (buy < 0 || m > mu[buy]) {
			buy = i
		}
		if w > o.params.LowerBound && (sell < 0 || m < mu[sell]) {
			sell = i
		}
	}

	if buy < 0 || sell < 0 || mu[buy]-mu[sell] <= o.params.TieThreshold {
		return 0, 0, false
	}
	return buy, sell, true
}

// Step performs one swap on snap in place
func (o *Optimizer) Step(snap *portfolio.Snapshot) (Step, error) {
	rt := o.params.RiskTolerance
	mu := MarginalUtility(snap, rt)

	buy, sell, ok := o.selectSwap(snap, mu)
	if !ok || buy == sell {
		return Step{Buy: buy, Sell: sell, Sentinel: !ok}, nil
	}

	k0 := mu[buy] - mu[sell]
	k1 := (snap.Cov(buy, buy) + snap.Cov(sell, sell) - 2*snap.Cov(buy, sell)) / rt

	a := math.Inf(1)
	if k1 > 0 {
		a = k0 / (2 * k1)
	}

	step := Step{Buy: buy, Sell: sell}
	wb, ws := snap.Weight(buy), snap.Weight(sell)

	// 매도 하한 먼저, 그 다음 매수 상한
	if ws-a < o.params.LowerBound {
		a = ws - o.params.LowerBound
		step.SellClamped = true
	}
	if wb+a > o.params.UpperBound {
		a = o.params.UpperBound - wb
		step.BuyClamped = true
		step.SellClamped = step.SellClamped && a == ws-o.params.LowerBound
	}

	if math.IsNaN(a) || math.IsInf(a, 0) {
		return step, fmt.Errorf("%w: swap %s→%s amount %v", ErrDegenerate, snap.Symbol(sell), snap.Symbol(buy), a)
	}

	snap.Shift(buy, sell, a)
	if step.SellClamped {
		snap.SetWeight(sell, o.params.LowerBound)
	}
	if step.BuyClamped {
		snap.SetWeight(buy, o.params.UpperBound)
	}

	step.Amount = a
	step.UtilityChange = k0*a - k1*a*a
	return step, nil
}

// Optimize runs swaps on snap until no pair beats the tie threshold or an
// unclamped step falls to the step threshold. A clamped step pins a weight
// to its bound, so the loop always makes progress.
// The returned Result is populated even when an error is returned.
func (o *Optimizer) Optimize(ctx context.Context, snap *portfolio.Snapshot) (*Result, error) {
	result := &Result{
		RiskTolerance: o.params.RiskTolerance,
		State:         StateInitialized,
		Snapshot:      snap,
	}

	var runErr error
	result.State = StateIterating
	for {
		if err := ctx.Err(); err != nil {
			result.State = StateDegenerate
			runErr = err
			break
		}
		if result.Iterations >= o.params.MaxIterations {
			result.State = StateDegenerate
			runErr = fmt.Errorf("%w after %d iterations", ErrNonConvergence, result.Iterations)
			break
		}

		step, err := o.Step(snap)
		result.Iterations++
		if err != nil {
			result.State = StateDegenerate
			runErr = err
			break
		}
		result.UtilityGain += step.UtilityChange

		// 경계에 걸린 스텝은 크기와 무관하게 계속 진행: 다른 쌍이 아직 개선 가능
		if step.Sentinel || (!step.SellClamped && !step.BuyClamped && math.Abs(step.Amount) <= o.params.StepThreshold) {
			result.State = StateConverged
			break
		}
	}

	result.Weights = snap.WeightMap()
	result.Return = snap.Return()
	result.Variance = snap.Variance()
	result.Volatility = math.Sqrt(result.Variance)

	if runErr == nil && (math.IsNaN(result.Variance) || math.IsNaN(result.Return)) {
		result.State = StateDegenerate
		runErr = fmt.Errorf("%w: non-finite result", ErrDegenerate)
	}

	o.log.WithFields(map[string]interface{}{
		"risk_tolerance": o.params.RiskTolerance,
		"state":          string(result.State),
		"iterations":     result.Iterations,
	}).Debug("Optimization finished")

	return result, runErr
}

// Report renders the result as a plain-text block
func (r *Result) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "State:          %s\n", r.State)
	fmt.Fprintf(&b, "Iterations:     %d\n", r.Iterations)
	fmt.Fprintf(&b, "Risk tolerance: %.6f (per period)\n", r.RiskTolerance)
	fmt.Fprintf(&b, "Return:         %.6f\n", r.Return)
	fmt.Fprintf(&b, "Variance:       %.6f\n", r.Variance)
	fmt.Fprintf(&b, "Volatility:     %.6f\n", r.Volatility)
	b.WriteString("Weights:\n")

	symbols := make([]string, 0, len(r.Weights))
	for s := range r.Weights {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	for _, s := range symbols {
		fmt.Fprintf(&b, "  %-10s %10.6f\n", s, r.Weights[s])
	}

	return b.String()
}
