package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/optimizer"
	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/profile"
	"github.com/tvaught/experimental/pkg/logger"
)

// Analyzer is the analysis surface the HTTP API needs
type Analyzer interface {
	Instruments(ctx context.Context, p *profile.Profile) ([]contracts.InstrumentPoint, error)
	Optimize(ctx context.Context, p *profile.Profile, annualRiskTolerance float64) (*optimizer.Result, error)
	Frontier(ctx context.Context, p *profile.Profile, refresh bool) (*contracts.Frontier, bool, error)
}

// FrontierHandler serves instrument statistics, single optimisations and
// the efficient frontier of the configured profile
// ⭐ SSOT: 최적화 API 핸들러는 이 구조체에서만
type FrontierHandler struct {
	svc    Analyzer
	base   *profile.Profile
	logger *logger.Logger
}

// NewFrontierHandler creates a new frontier handler
func NewFrontierHandler(svc Analyzer, base *profile.Profile, log *logger.Logger) *FrontierHandler {
	return &FrontierHandler{
		svc:    svc,
		base:   base,
		logger: log,
	}
}

// InstrumentsResponse is the body of GET /api/instruments
type InstrumentsResponse struct {
	Benchmark   string                      `json:"benchmark"`
	Instruments []contracts.InstrumentPoint `json:"instruments"`
}

// GetInstruments returns per-instrument risk/return statistics
// GET /api/instruments?symbols=A,B,C
func (h *FrontierHandler) GetInstruments(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileFor(splitSymbols(r.URL.Query().Get("symbols")))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	points, err := h.svc.Instruments(r.Context(), p)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute instruments")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, InstrumentsResponse{
		Benchmark:   p.Universe.Benchmark,
		Instruments: points,
	})
}

// FrontierResponse is the body of GET /api/frontier
type FrontierResponse struct {
	Cached   bool                `json:"cached"`
	Frontier *contracts.Frontier `json:"frontier"`
}

// GetFrontier returns the efficient frontier, cached unless refresh=true
// GET /api/frontier?symbols=A,B,C&refresh=true
func (h *FrontierHandler) GetFrontier(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p, err := h.profileFor(splitSymbols(q.Get("symbols")))
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	refresh := false
	if v := q.Get("refresh"); v != "" {
		refresh, err = strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "refresh must be a boolean")
			return
		}
	}

	frontier, cached, err := h.svc.Frontier(r.Context(), p, refresh)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute frontier")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, FrontierResponse{Cached: cached, Frontier: frontier})
}

// OptimizeRequest is the body of POST /api/optimize
type OptimizeRequest struct {
	RiskTolerance float64  `json:"risk_tolerance"` // annual
	Symbols       []string `json:"symbols,omitempty"`
}

// OptimizeResponse is the body of a successful optimisation
type OptimizeResponse struct {
	RiskTolerance float64            `json:"risk_tolerance"` // annual
	State         optimizer.State    `json:"state"`
	Iterations    int                `json:"iterations"`
	Weights       map[string]float64 `json:"weights"`
	Return        float64            `json:"return"`
	Volatility    float64            `json:"volatility"`
}

// Optimize runs the optimizer once at the requested risk tolerance
// POST /api/optimize
func (h *FrontierHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RiskTolerance == 0 {
		req.RiskTolerance = h.base.Optimizer.RiskTolerance
	}

	p, err := h.profileFor(req.Symbols)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	result, err := h.svc.Optimize(r.Context(), p, req.RiskTolerance)
	if err != nil {
		h.logger.WithError(err).WithField("risk_tolerance", req.RiskTolerance).Warn("Optimization failed")
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, OptimizeResponse{
		RiskTolerance: req.RiskTolerance,
		State:         result.State,
		Iterations:    result.Iterations,
		Weights:       result.Weights,
		Return:        result.Return,
		Volatility:    result.Volatility,
	})
}

// profileFor returns the base profile, or a validated copy restricted to symbols
func (h *FrontierHandler) profileFor(symbols []string) (*profile.Profile, error) {
	if len(symbols) == 0 {
		return h.base, nil
	}

	p := *h.base
	p.Universe.Symbols = symbols
	// 명시 비중은 기본 심볼 기준이므로 균등 비중으로 전환
	p.Weights = profile.Weights{Mode: string(portfolio.WeightEqual), Policy: h.base.Weights.Policy}

	if err := profile.Validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func splitSymbols(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToUpper(part))
		}
	}
	return out
}
