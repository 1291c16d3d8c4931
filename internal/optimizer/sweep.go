package optimizer

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/risk"
	"github.com/tvaught/experimental/pkg/logger"
)

// SnapshotSource hands out fresh optimization snapshots.
// *portfolio.Portfolio satisfies it.
type SnapshotSource interface {
	Snapshot() *portfolio.Snapshot
}

// SweepParams configures a frontier sweep. Start/End/Step are annual risk
// tolerances; each is divided by PeriodsPerYear before optimizing.
type SweepParams struct {
	Start          float64
	End            float64 // exclusive
	Step           float64
	PeriodsPerYear float64
	Workers        int    // 0 = GOMAXPROCS
	Optimizer      Params // RiskTolerance is set per point
}

// DefaultSweepParams sweeps annual tolerance 0.05 → 1.5 by 0.05 with
// long-only weights capped at 1
func DefaultSweepParams(periodsPerYear float64) SweepParams {
	opt := DefaultParams(0)
	opt.LowerBound = 0
	opt.UpperBound = 1

	return SweepParams{
		Start:          0.05,
		End:            1.5,
		Step:           0.05,
		PeriodsPerYear: periodsPerYear,
		Optimizer:      opt,
	}
}

// RiskTolerances returns start, start+step, ... strictly below end
func RiskTolerances(start, end, step float64) ([]float64, error) {
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: sweep step must be positive, got %v", ErrInvalidParams, step)
	}
	if math.IsNaN(start) || math.IsNaN(end) || math.IsInf(start, 0) || math.IsInf(end, 0) {
		return nil, fmt.Errorf("%w: sweep range [%v, %v)", ErrInvalidParams, start, end)
	}
	if end <= start {
		return nil, nil
	}

	// 부동소수 오차로 end가 포함되지 않도록 허용오차 적용
	eps := step * 1e-9
	n := int(math.Ceil((end-start)/step - 1e-9))
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := start + float64(i)*step
		if v >= end-eps {
			break
		}
		out = append(out, v)
	}
	return out, nil
}

// Sweep traces the efficient frontier: one independent optimization per
// risk tolerance, run in parallel on fresh snapshots. A point that fails is
// flagged and the sweep continues. Points are returned in ascending risk
// tolerance (annual terms).
func Sweep(ctx context.Context, src SnapshotSource, sp SweepParams, log *logger.Logger) (*contracts.Frontier, error) {
	if log == nil {
		log = logger.Nop()
	}
	if !(sp.PeriodsPerYear > 0) {
		return nil, fmt.Errorf("%w: periods per year %v", ErrInvalidParams, sp.PeriodsPerYear)
	}

	tolerances, err := RiskTolerances(sp.Start, sp.End, sp.Step)
	if err != nil {
		return nil, err
	}

	// 포인트별 파라미터 검증은 실행 시 수행, 공통 부분은 여기서
	probe := sp.Optimizer
	probe.RiskTolerance = 1
	if err := probe.Validate(); err != nil {
		return nil, err
	}

	workers := sp.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	startedAt := time.Now()
	points := make([]contracts.FrontierPoint, len(tolerances))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, annual := range tolerances {
		i, annual := i, annual
		g.Go(func() error {
			points[i] = runPoint(gctx, src.Snapshot(), annual, sp, log)
			return nil
		})
	}
	_ = g.Wait()

	frontier := &contracts.Frontier{
		RunID:     uuid.New().String(),
		Points:    points,
		CreatedAt: time.Now(),
	}
	if len(points) > 0 {
		frontier.Symbols = src.Snapshot().Symbols()
	}
	frontier.SortByRiskTolerance()

	log.WithFields(map[string]interface{}{
		"run_id":   frontier.RunID,
		"points":   len(points),
		"failed":   frontier.FailedCount(),
		"workers":  workers,
		"duration": time.Since(startedAt).String(),
	}).Info("Frontier sweep completed")

	if err := ctx.Err(); err != nil {
		return frontier, fmt.Errorf("frontier sweep cancelled: %w", err)
	}
	return frontier, nil
}

// runPoint optimizes one risk tolerance; failures are recorded on the point
func runPoint(ctx context.Context, snap *portfolio.Snapshot, annual float64, sp SweepParams, log *logger.Logger) contracts.FrontierPoint {
	point := contracts.FrontierPoint{RiskTolerance: annual}

	params := sp.Optimizer
	params.RiskTolerance = annual / sp.PeriodsPerYear

	opt, err := New(params, log)
	if err != nil {
		return failed(point, err)
	}

	result, err := opt.Optimize(ctx, snap)
	if result != nil {
		point.Weights = result.Weights
		point.Iterations = result.Iterations
		point.Return = result.Return
		point.Volatility = result.Volatility
	}
	if err != nil {
		log.WithFields(map[string]interface{}{
			"risk_tolerance": annual,
			"error":          err.Error(),
		}).Warn("Frontier point failed")
		return failed(point, err)
	}

	// 비중에 따른 포트폴리오 수익률 시계열이 있으면 꼬리위험 첨부
	if rs, err := snap.RateSeries(); err == nil {
		if v, err := risk.HistoricalVaR(risk.Observed(rs), risk.DefaultConfidence); err == nil {
			point.VaR95 = v.VaR
			point.CVaR95 = v.CVaR
		}
	}

	return point
}

// failed flags a point; non-finite values are zeroed so the frontier stays
// JSON-encodable
func failed(point contracts.FrontierPoint, err error) contracts.FrontierPoint {
	point.Failed = true
	point.Error = err.Error()

	if !isFinite(point.Return) {
		point.Return = 0
	}
	if !isFinite(point.Volatility) {
		point.Volatility = 0
	}
	for _, w := range point.Weights {
		if !isFinite(w) {
			point.Weights = nil
			break
		}
	}
	return point
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
