package profile

import (
	"fmt"
	"math"
	"time"

	"github.com/tvaught/experimental/internal/align"
	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/metrics"
	"github.com/tvaught/experimental/internal/optimizer"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(p *Profile) error {
	// === Meta ===
	if p.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	// === Universe ===
	if len(p.Universe.Symbols) < 2 {
		return ValidationError{"universe.symbols", "at least two symbols required"}
	}
	seen := make(map[string]bool, len(p.Universe.Symbols))
	for _, s := range p.Universe.Symbols {
		if s == "" {
			return ValidationError{"universe.symbols", "empty symbol"}
		}
		if seen[s] {
			return ValidationError{"universe.symbols", fmt.Sprintf("duplicate symbol %q", s)}
		}
		seen[s] = true
	}
	if p.Universe.Benchmark == "" {
		return ValidationError{"universe.benchmark", "required"}
	}
	from, err := time.Parse(DateLayout, p.Universe.From)
	if err != nil {
		return ValidationError{"universe.from", "must be YYYY-MM-DD"}
	}
	to, err := time.Parse(DateLayout, p.Universe.To)
	if err != nil {
		return ValidationError{"universe.to", "must be YYYY-MM-DD"}
	}
	if !from.Before(to) {
		return ValidationError{"universe", "from must be before to"}
	}

	// === Metrics ===
	if _, err := metrics.PeriodsPerYear(p.Metrics.Frequency); err != nil {
		return ValidationError{"metrics.frequency", err.Error()}
	}
	if !isFinite(p.Metrics.RiskFreeRate) {
		return ValidationError{"metrics.risk_free_rate", "must be finite"}
	}
	if _, err := contracts.ParsePriceField(p.Metrics.PriceField); err != nil {
		return ValidationError{"metrics.price_field", err.Error()}
	}

	// === Alignment ===
	if _, err := align.ParsePolicy(p.Alignment.Policy); err != nil {
		return ValidationError{"alignment.policy", err.Error()}
	}

	// === Weights / Optimizer ===
	// 나머지 검증은 portfolio/optimizer 자체 규칙을 그대로 사용
	if err := p.PortfolioConfig().Validate(); err != nil {
		return ValidationError{"weights", err.Error()}
	}
	for _, b := range []*float64{p.Optimizer.LowerBound, p.Optimizer.UpperBound} {
		if b != nil && !isFinite(*b) {
			return ValidationError{"optimizer", "bounds must be finite; omit or set null for unbounded"}
		}
	}
	if err := p.OptimizerParams(p.Optimizer.RiskTolerance).Validate(); err != nil {
		return ValidationError{"optimizer", err.Error()}
	}

	// === Frontier ===
	if _, err := optimizer.RiskTolerances(p.Frontier.Start, p.Frontier.End, p.Frontier.Step); err != nil {
		return ValidationError{"frontier", err.Error()}
	}
	if p.Frontier.Start <= 0 || p.Frontier.End <= p.Frontier.Start {
		return ValidationError{"frontier", "must satisfy 0 < start < end"}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
