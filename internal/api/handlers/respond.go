package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tvaught/experimental/internal/align"
	"github.com/tvaught/experimental/internal/analysis"
	"github.com/tvaught/experimental/internal/optimizer"
	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/pricedata"
	"github.com/tvaught/experimental/internal/profile"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var verr profile.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, optimizer.ErrInvalidParams),
		errors.Is(err, portfolio.ErrInvalidConfig),
		errors.Is(err, portfolio.ErrWeightSum):
		return http.StatusBadRequest
	case errors.Is(err, pricedata.ErrSymbolNotFound):
		return http.StatusNotFound
	case errors.Is(err, analysis.ErrBenchmarkUnavailable),
		errors.Is(err, portfolio.ErrTooFewInstruments),
		errors.Is(err, portfolio.ErrAlignment),
		errors.Is(err, align.ErrInsufficientData),
		errors.Is(err, optimizer.ErrNonConvergence),
		errors.Is(err, optimizer.ErrDegenerate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
