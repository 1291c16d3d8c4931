package optimizer

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tvaught/experimental/internal/portfolio"
)

func twoAsset(t *testing.T, varA, varB float64) *portfolio.Snapshot {
	t.Helper()
	cov := mat.NewSymDense(2, []float64{varA, 0, 0, varB})
	snap, err := portfolio.NewSnapshot([]string{"A", "B"}, []float64{0.08, 0.05}, cov, []float64{0.5, 0.5}, 1)
	require.NoError(t, err)
	return snap
}

func longOnly(rt float64) Params {
	p := DefaultParams(rt)
	p.LowerBound = 0
	p.UpperBound = 1
	return p
}

func TestMarginalUtility(t *testing.T) {
	snap := twoAsset(t, 0.04, 0.01)

	mu := MarginalUtility(snap, 0.2)
	assert.InDelta(t, -0.12, mu[0], 1e-12)
	assert.InDelta(t, 0.0, mu[1], 1e-12)
}

func TestOptimize_TwoAssetVariances(t *testing.T) {
	// 0.04/0.01 as variances: B is far cheaper in risk, weight moves to B
	snap := twoAsset(t, 0.04, 0.01)
	opt, err := New(longOnly(0.2), nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, StateConverged, result.State)
	assert.Equal(t, 2, result.Iterations)
	assert.InDelta(t, 0.26, result.Weights["A"], 1e-12)
	assert.InDelta(t, 0.74, result.Weights["B"], 1e-12)
	assert.InDelta(t, 0.08*0.26+0.05*0.74, result.Return, 1e-12)
	assert.InDelta(t, math.Sqrt(result.Variance), result.Volatility, 1e-15)
	assert.Greater(t, result.UtilityGain, 0.0)
}

func TestOptimize_TwoAssetVolatilities(t *testing.T) {
	// 0.04/0.01 as volatilities: A dominates and is bought up to the cap
	snap := twoAsset(t, 0.04*0.04, 0.01*0.01)
	opt, err := New(longOnly(0.2), nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), snap)
	require.NoError(t, err)

	assert.Equal(t, StateConverged, result.State)
	assert.Greater(t, result.Weights["A"], 0.5)
	assert.Equal(t, 1.0, result.Weights["A"])
	assert.Equal(t, 0.0, result.Weights["B"])
}

func TestStep_ClampsSellToLowerBound(t *testing.T) {
	snap := twoAsset(t, 0.04*0.04, 0.01*0.01)
	opt, err := New(longOnly(0.2), nil)
	require.NoError(t, err)

	step, err := opt.Step(snap)
	require.NoError(t, err)

	assert.Equal(t, 0, step.Buy)
	assert.Equal(t, 1, step.Sell)
	assert.True(t, step.SellClamped)
	assert.InDelta(t, 0.5, step.Amount, 1e-15)
	assert.Equal(t, 0.0, snap.Weight(1))
}

func TestStep_PreservesWeightSum(t *testing.T) {
	cov := mat.NewSymDense(4, []float64{
		0.040, 0.006, 0.002, 0.001,
		0.006, 0.020, 0.003, 0.002,
		0.002, 0.003, 0.010, 0.001,
		0.001, 0.002, 0.001, 0.005,
	})
	snap, err := portfolio.NewSnapshot(
		[]string{"W", "X", "Y", "Z"},
		[]float64{0.12, 0.09, 0.07, 0.04},
		cov, []float64{0.25, 0.25, 0.25, 0.25}, 1)
	require.NoError(t, err)

	opt, err := New(longOnly(0.3), nil)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		step, err := opt.Step(snap)
		require.NoError(t, err)

		var total float64
		for _, w := range snap.Weights() {
			total += w
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 1.0)
		}
		assert.InDelta(t, 1.0, total, 1e-12, "step %d", i)

		if step.Sentinel {
			break
		}
	}
}

func TestOptimize_LocalOptimality(t *testing.T) {
	cov := mat.NewSymDense(3, []float64{
		0.0004, 0, 0,
		0, 0.0002, 0,
		0, 0, 0.0001,
	})
	snap, err := portfolio.NewSnapshot(
		[]string{"H", "M", "L"},
		[]float64{0.10, 0.07, 0.05},
		cov, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, 1)
	require.NoError(t, err)

	params := DefaultParams(0.5)
	opt, err := New(params, nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, StateConverged, result.State)

	mu := MarginalUtility(snap, params.RiskTolerance)
	for i := range mu {
		for j := range mu {
			assert.LessOrEqual(t, mu[i]-mu[j], params.TieThreshold+1e-9, "pair %d/%d", i, j)
		}
	}
}

func TestOptimize_LocalOptimalityWithBounds(t *testing.T) {
	// C가 하한 바로 위: 첫 스왑은 1e-5보다 작게 잘리지만 B→A 스왑이 남아 있음
	cov := mat.NewSymDense(3, []float64{
		0.0004, 0, 0,
		0, 0.0004, 0,
		0, 0, 0.0004,
	})
	snap, err := portfolio.NewSnapshot(
		[]string{"A", "B", "C"},
		[]float64{0.12, 0.06, 0.02},
		cov, []float64{0.5, 0.499996, 0.000004}, 1)
	require.NoError(t, err)

	params := longOnly(0.5)
	opt, err := New(params, nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), snap)
	require.NoError(t, err)
	require.Equal(t, StateConverged, result.State)
	assert.Greater(t, result.Iterations, 1)
	assert.InDelta(t, 1.0, result.Weights["A"], 1e-9)
	assert.InDelta(t, 0.0, result.Weights["B"], 1e-9)
	assert.InDelta(t, 0.0, result.Weights["C"], 1e-9)

	// 실행 가능한 쌍(매수 < 상한, 매도 > 하한) 중 개선 여지가 없어야 함
	mu := MarginalUtility(snap, params.RiskTolerance)
	for i := range mu {
		if snap.Weight(i) >= params.UpperBound-1e-9 {
			continue
		}
		for j := range mu {
			if i == j || snap.Weight(j) <= params.LowerBound+1e-9 {
				continue
			}
			assert.LessOrEqual(t, mu[i]-mu[j], params.TieThreshold, "buy %d / sell %d", i, j)
		}
	}
}

func TestOptimize_EqualBoundsStopsImmediately(t *testing.T) {
	snap := twoAsset(t, 0.04, 0.01)
	params := DefaultParams(0.2)
	params.LowerBound = 0.5
	params.UpperBound = 0.5

	opt, err := New(params, nil)
	require.NoError(t, err)

	step, err := opt.Step(snap.Clone())
	require.NoError(t, err)
	assert.True(t, step.Sentinel)
	assert.Zero(t, step.Amount)

	result, err := opt.Optimize(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, StateConverged, result.State)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 0.5, result.Weights["A"])
	assert.Equal(t, 0.5, result.Weights["B"])
}

func TestOptimize_NonConvergence(t *testing.T) {
	params := longOnly(0.2)
	params.MaxIterations = 1

	opt, err := New(params, nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), twoAsset(t, 0.04, 0.01))
	assert.ErrorIs(t, err, ErrNonConvergence)
	require.NotNil(t, result)
	assert.Equal(t, StateDegenerate, result.State)
	assert.Equal(t, 1, result.Iterations)
}

func TestOptimize_Degenerate(t *testing.T) {
	// 완전 상관 자산: k1 = 0, 경계 없음 → 무한 스왑
	cov := mat.NewSymDense(2, []float64{0.01, 0.01, 0.01, 0.01})
	snap, err := portfolio.NewSnapshot([]string{"A", "B"}, []float64{0.08, 0.05}, cov, []float64{0.5, 0.5}, 1)
	require.NoError(t, err)

	opt, err := New(DefaultParams(0.2), nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), snap)
	assert.ErrorIs(t, err, ErrDegenerate)
	assert.Equal(t, StateDegenerate, result.State)
}

func TestOptimize_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opt, err := New(longOnly(0.2), nil)
	require.NoError(t, err)

	result, err := opt.Optimize(ctx, twoAsset(t, 0.04, 0.01))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateDegenerate, result.State)
	assert.Zero(t, result.Iterations)
}

func TestParams_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero risk tolerance", func(p *Params) { p.RiskTolerance = 0 }},
		{"nan risk tolerance", func(p *Params) { p.RiskTolerance = math.NaN() }},
		{"inverted bounds", func(p *Params) { p.LowerBound, p.UpperBound = 1, 0 }},
		{"negative threshold", func(p *Params) { p.StepThreshold = -1 }},
		{"no iterations", func(p *Params) { p.MaxIterations = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(0.1)
			tt.modify(&p)
			_, err := New(p, nil)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestResult_Report(t *testing.T) {
	opt, err := New(longOnly(0.2), nil)
	require.NoError(t, err)

	result, err := opt.Optimize(context.Background(), twoAsset(t, 0.04, 0.01))
	require.NoError(t, err)

	report := result.Report()
	assert.Contains(t, report, "CONVERGED")
	assert.Contains(t, report, "Iterations:     2")
	assert.Contains(t, report, "0.740000")
}
