package contracts

import (
	"sort"
	"time"
)

// InstrumentPoint is the pre-optimization scatter data for one instrument
type InstrumentPoint struct {
	Symbol                   string  `json:"symbol"`
	Volatility               float64 `json:"volatility"`
	AnnualizedAdjustedReturn float64 `json:"annualized_adjusted_return"`
	ExpectedReturn           float64 `json:"expected_return"`
	Beta                     float64 `json:"beta"`
	SharpeRatio              float64 `json:"sharpe_ratio"`
	Weight                   float64 `json:"weight"` // 기준 포트폴리오 비중
}

// FrontierPoint is the optimized allocation for one risk tolerance
// ⭐ 실패한 포인트는 Failed=true로 표시하고 스윕은 계속 진행
type FrontierPoint struct {
	RiskTolerance float64            `json:"risk_tolerance"` // annual terms
	Volatility    float64            `json:"volatility"`
	Return        float64            `json:"return"`
	Weights       map[string]float64 `json:"weights"`
	Iterations    int                `json:"iterations"`
	VaR95         float64            `json:"var_95"`  // 손실, 양수
	CVaR95        float64            `json:"cvar_95"` // 손실, 양수
	Failed        bool               `json:"failed"`
	Error         string             `json:"error,omitempty"`
}

// Frontier is the full efficient-frontier report of one sweep
type Frontier struct {
	RunID       string            `json:"run_id"`
	ProfileHash string            `json:"profile_hash,omitempty"`
	Symbols     []string          `json:"symbols"`
	Instruments []InstrumentPoint `json:"instruments"`
	Points      []FrontierPoint   `json:"points"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Succeeded returns only the points that converged
func (f *Frontier) Succeeded() []FrontierPoint {
	out := make([]FrontierPoint, 0, len(f.Points))
	for _, p := range f.Points {
		if !p.Failed {
			out = append(out, p)
		}
	}
	return out
}

// FailedCount returns the number of flagged points
func (f *Frontier) FailedCount() int {
	return len(f.Points) - len(f.Succeeded())
}

// SortByRiskTolerance orders points ascending by risk tolerance
func (f *Frontier) SortByRiskTolerance() {
	sort.SliceStable(f.Points, func(i, j int) bool {
		return f.Points[i].RiskTolerance < f.Points[j].RiskTolerance
	})
}
