package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/profile"
	"github.com/tvaught/experimental/internal/rates"
	"github.com/tvaught/experimental/pkg/logger"
)

// PriceHandler serves the raw price history behind the analysis
// ⭐ SSOT: 가격 API 핸들러는 이 구조체에서만
type PriceHandler struct {
	provider contracts.PriceProvider
	base     *profile.Profile
	logger   *logger.Logger
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(provider contracts.PriceProvider, base *profile.Profile, log *logger.Logger) *PriceHandler {
	return &PriceHandler{
		provider: provider,
		base:     base,
		logger:   log,
	}
}

// DailyPriceResponse represents a daily bar and its simple return
type DailyPriceResponse struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Volume   float64 `json:"volume"`
	Rate     float64 `json:"rate"`
}

// GetPrices returns a symbol's bars within the profile window
// GET /api/instruments/{symbol}/prices?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := mux.Vars(r)["symbol"]

	from, to := h.base.Universe.FromDate(), h.base.Universe.ToDate()
	q := r.URL.Query()
	var err error
	if v := q.Get("from"); v != "" {
		if from, err = time.Parse(profile.DateLayout, v); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
	}
	if v := q.Get("to"); v != "" {
		if to, err = time.Parse(profile.DateLayout, v); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
	}

	prices, err := h.provider.Prices(ctx, symbol, from, to)
	if err != nil {
		h.logger.WithError(err).WithField("symbol", symbol).Error("Failed to get daily prices")
		respondError(w, statusFor(err), err.Error())
		return
	}

	result := make([]DailyPriceResponse, len(prices))
	if len(prices) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{"symbol": symbol, "data": result})
		return
	}

	field := h.base.PortfolioConfig().PriceField
	rs, err := rates.Rates(prices, field, 0)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	for i, p := range prices {
		result[i] = DailyPriceResponse{
			Date:     p.Date.Format(profile.DateLayout),
			Open:     p.Open,
			High:     p.High,
			Low:      p.Low,
			Close:    p.Close,
			AdjClose: p.AdjClose,
			Volume:   p.Volume,
			Rate:     rs[i].Rate,
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol": symbol,
		"data":   result,
	})
}
