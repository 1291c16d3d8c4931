package optimizer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/risk"
)

// fixedSource hands out clones of one moment-only snapshot
type fixedSource struct {
	base *portfolio.Snapshot
}

func (f fixedSource) Snapshot() *portfolio.Snapshot { return f.base.Clone() }

func twoAssetSource(t *testing.T) fixedSource {
	t.Helper()
	cov := mat.NewSymDense(2, []float64{0.04, 0, 0, 0.01})
	snap, err := portfolio.NewSnapshot([]string{"A", "B"}, []float64{0.08, 0.05}, cov, []float64{0.5, 0.5}, 1)
	require.NoError(t, err)
	return fixedSource{base: snap}
}

func sweepParams() SweepParams {
	sp := DefaultSweepParams(1)
	sp.Start, sp.End, sp.Step = 0.25, 1.25, 0.25
	sp.Workers = 2
	return sp
}

func TestRiskTolerances(t *testing.T) {
	got, err := RiskTolerances(0.05, 1.5, 0.05)
	require.NoError(t, err)
	require.Len(t, got, 29)
	assert.InDelta(t, 0.05, got[0], 1e-12)
	assert.InDelta(t, 1.45, got[28], 1e-12)

	got, err = RiskTolerances(0.25, 1.25, 0.25)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1.0}, got)

	// 끝값은 부동소수 오차가 있어도 제외
	tests := []struct {
		start, end, step float64
		want             []float64
	}{
		{0.1, 0.4, 0.1, []float64{0.1, 0.2, 0.3}},
		{0.7, 1.0, 0.1, []float64{0.7, 0.8, 0.9}},
		{0.05, 0.2, 0.05, []float64{0.05, 0.1, 0.15}},
	}
	for _, tt := range tests {
		got, err := RiskTolerances(tt.start, tt.end, tt.step)
		require.NoError(t, err)
		require.Len(t, got, len(tt.want), "[%v, %v) by %v", tt.start, tt.end, tt.step)
		for i := range tt.want {
			assert.InDelta(t, tt.want[i], got[i], 1e-12)
		}
		assert.Less(t, got[len(got)-1], tt.end-tt.step/2)
	}

	got, err = RiskTolerances(1, 1, 0.1)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = RiskTolerances(0, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSweep_TwoAssetFrontier(t *testing.T) {
	src := twoAssetSource(t)

	frontier, err := Sweep(context.Background(), src, sweepParams(), nil)
	require.NoError(t, err)

	require.Len(t, frontier.Points, 4)
	assert.NotEmpty(t, frontier.RunID)
	assert.Equal(t, []string{"A", "B"}, frontier.Symbols)
	assert.Zero(t, frontier.FailedCount())

	prevReturn := -1.0
	for i, p := range frontier.Points {
		if i > 0 {
			assert.Greater(t, p.RiskTolerance, frontier.Points[i-1].RiskTolerance)
		}
		// 내부 최적해: x_A = 0.2 + 0.3·rt
		assert.InDelta(t, 0.2+0.3*p.RiskTolerance, p.Weights["A"], 1e-9, "rt=%v", p.RiskTolerance)
		assert.InDelta(t, 1.0, p.Weights["A"]+p.Weights["B"], 1e-12)
		assert.Greater(t, p.Return, prevReturn)
		prevReturn = p.Return

		// moment-only 스냅샷은 수익률 시계열이 없어 VaR 미첨부
		assert.Zero(t, p.VaR95)
	}

	// 소스 스냅샷은 변경되지 않음
	assert.Equal(t, 0.5, src.base.Weight(0))
}

func TestSweep_FlagsFailedPoints(t *testing.T) {
	sp := sweepParams()
	sp.Optimizer.MaxIterations = 1

	frontier, err := Sweep(context.Background(), twoAssetSource(t), sp, nil)
	require.NoError(t, err)

	require.Len(t, frontier.Points, 4)
	assert.Equal(t, 3, frontier.FailedCount())

	succeeded := frontier.Succeeded()
	require.Len(t, succeeded, 1)
	// rt = 1 에서는 첫 스텝부터 한계효용이 같음
	assert.Equal(t, 1.0, succeeded[0].RiskTolerance)
	assert.Equal(t, 0.5, succeeded[0].Weights["A"])

	for _, p := range frontier.Points {
		if p.Failed {
			assert.Contains(t, p.Error, "did not converge")
		}
	}
}

func TestSweep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	frontier, err := Sweep(ctx, twoAssetSource(t), sweepParams(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, frontier)
	assert.Equal(t, len(frontier.Points), frontier.FailedCount())
}

func TestSweep_InvalidParams(t *testing.T) {
	sp := sweepParams()
	sp.PeriodsPerYear = 0
	_, err := Sweep(context.Background(), twoAssetSource(t), sp, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	sp = sweepParams()
	sp.Optimizer.LowerBound, sp.Optimizer.UpperBound = 1, 0
	_, err = Sweep(context.Background(), twoAssetSource(t), sp, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSweep_PortfolioAttachesTailRisk(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	build := func(symbol string, rs ...float64) []contracts.PriceRecord {
		price := 100.0
		out := []contracts.PriceRecord{{Symbol: symbol, Date: start, Close: price, AdjClose: price}}
		for i, r := range rs {
			price *= 1 + r
			out = append(out, contracts.PriceRecord{Symbol: symbol, Date: start.AddDate(0, 0, i+1), Close: price, AdjClose: price})
		}
		return out
	}

	bench := build("^B", 0.005, -0.002, 0.004, -0.001, 0.003, 0.001, -0.003, 0.004, -0.002, 0.002)
	prices := map[string][]contracts.PriceRecord{
		"AAA": build("AAA", 0.010, -0.005, 0.007, -0.002, 0.004, 0.003, -0.006, 0.008, -0.001, 0.002),
		"BBB": build("BBB", -0.004, 0.006, 0.002, -0.003, 0.005, -0.001, 0.004, 0.002, 0.001, -0.002),
	}

	cfg := portfolio.DefaultConfig()
	cfg.Alignment = "truncate"
	p, err := portfolio.New(prices, bench, cfg, nil)
	require.NoError(t, err)

	sp := DefaultSweepParams(p.PeriodsPerYear())
	frontier, err := Sweep(context.Background(), p, sp, nil)
	require.NoError(t, err)

	require.Len(t, frontier.Points, 29)
	assert.Equal(t, []string{"AAA", "BBB"}, frontier.Symbols)
	for _, pt := range frontier.Succeeded() {
		assert.GreaterOrEqual(t, pt.CVaR95, pt.VaR95)
		assert.InDelta(t, 1.0, pt.Weights["AAA"]+pt.Weights["BBB"], 1e-9)
	}
	assert.NotEmpty(t, frontier.Succeeded())

	// 꼬리위험은 첫 기준 수익률(0)을 제외한 관측 수익률로 계산
	for _, pt := range frontier.Succeeded() {
		snap := p.Snapshot()
		for i, s := range snap.Symbols() {
			snap.SetWeight(i, pt.Weights[s])
		}
		rs, err := snap.RateSeries()
		require.NoError(t, err)

		want, err := risk.HistoricalVaR(rs[1:], risk.DefaultConfidence)
		require.NoError(t, err)
		assert.InDelta(t, want.VaR, pt.VaR95, 1e-12, "rt %v", pt.RiskTolerance)
		assert.InDelta(t, want.CVaR, pt.CVaR95, 1e-12, "rt %v", pt.RiskTolerance)
	}
}
