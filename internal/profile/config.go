// Package profile loads optimisation profiles: the universe, metric
// settings, weight policy, optimizer bounds and frontier sweep of a run.
package profile

import "time"

// DateLayout is the date format used for universe windows
const DateLayout = "2006-01-02"

// Profile is the full description of one frontier computation
// ⭐ SSOT: 최적화 실행 설정은 프로파일 하나로 재현 가능해야 함
type Profile struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Metrics   Metrics   `yaml:"metrics" json:"metrics"`
	Alignment Alignment `yaml:"alignment" json:"alignment"`
	Weights   Weights   `yaml:"weights" json:"weights"`
	Optimizer Optimizer `yaml:"optimizer" json:"optimizer"`
	Frontier  Frontier  `yaml:"frontier" json:"frontier"`
}

// Meta 메타 정보
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Universe lists the instruments and the price window
type Universe struct {
	Symbols   []string `yaml:"symbols" json:"symbols"`
	Benchmark string   `yaml:"benchmark" json:"benchmark"`
	From      string   `yaml:"from" json:"from"` // YYYY-MM-DD
	To        string   `yaml:"to" json:"to"`     // YYYY-MM-DD
}

// Metrics controls rate and statistic calculation
type Metrics struct {
	Frequency    string  `yaml:"frequency" json:"frequency"` // daily, weekly, monthly
	RiskFreeRate float64 `yaml:"risk_free_rate" json:"risk_free_rate"`
	PriceField   string  `yaml:"price_field" json:"price_field"`
}

// Alignment selects how calendars are reconciled
type Alignment struct {
	Policy string `yaml:"policy" json:"policy"` // truncate, interpolate
}

// Weights configures the starting allocation
type Weights struct {
	Mode     string             `yaml:"mode" json:"mode"`     // equal, explicit
	Policy   string             `yaml:"policy" json:"policy"` // strict, normalize, free
	Explicit map[string]float64 `yaml:"explicit" json:"explicit,omitempty"`
}

// Optimizer configures the swap loop. Omitted bounds mean unbounded.
type Optimizer struct {
	RiskTolerance float64  `yaml:"risk_tolerance" json:"risk_tolerance"` // annual
	LowerBound    *float64 `yaml:"lower_bound" json:"lower_bound,omitempty"`
	UpperBound    *float64 `yaml:"upper_bound" json:"upper_bound,omitempty"`
	TieThreshold  float64  `yaml:"tie_threshold" json:"tie_threshold"`
	StepThreshold float64  `yaml:"step_threshold" json:"step_threshold"`
	MaxIterations int      `yaml:"max_iterations" json:"max_iterations"`
}

// Frontier configures the risk-tolerance sweep (annual terms, end exclusive)
type Frontier struct {
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
	Step  float64 `yaml:"step" json:"step"`
}

// FromDate returns the parsed start of the universe window
func (u Universe) FromDate() time.Time { return mustDate(u.From) }

// ToDate returns the parsed end of the universe window
func (u Universe) ToDate() time.Time { return mustDate(u.To) }

// mustDate parses a date already checked by Validate
func mustDate(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}
