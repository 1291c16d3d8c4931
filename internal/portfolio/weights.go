package portfolio

import (
	"fmt"
	"math"
	"sort"
)

// resolveWeights produces the starting weight vector aligned to symbols
// according to the configured mode and policy.
// Explicit weights of symbols that are not in the portfolio (dropped or
// never loaded) are discarded first; symbols without an explicit weight get 0.
func resolveWeights(symbols []string, cfg Config) ([]float64, []string, error) {
	var (
		weights   []float64
		discarded []string
	)

	switch cfg.WeightMode {
	case WeightExplicit:
		weights, discarded = explicitWeights(symbols, cfg.Weights)
	default:
		weights = equalWeights(len(symbols))
	}

	switch cfg.WeightPolicy {
	case PolicyNormalize:
		normalized, err := normalizeWeights(weights)
		if err != nil {
			return nil, discarded, err
		}
		weights = normalized
	case PolicyFree:
		// 주어진 비중 그대로 (현금/레버리지 허용)
	default:
		if total := sum(weights); math.Abs(total-1) > weightSumTolerance {
			return nil, discarded, fmt.Errorf("%w: total %.12f", ErrWeightSum, total)
		}
	}

	return weights, discarded, nil
}

// equalWeights calculates 1/n for every instrument
func equalWeights(n int) []float64 {
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}
	return weights
}

// explicitWeights maps configured weights onto the symbol index
func explicitWeights(symbols []string, configured map[string]float64) ([]float64, []string) {
	index := make(map[string]int, len(symbols))
	for i, s := range symbols {
		index[s] = i
	}

	weights := make([]float64, len(symbols))
	var discarded []string
	for symbol, w := range configured {
		i, ok := index[symbol]
		if !ok {
			discarded = append(discarded, symbol)
			continue
		}
		weights[i] = w
	}
	sort.Strings(discarded)

	return weights, discarded
}

// normalizeWeights rescales weights to sum to 1
func normalizeWeights(weights []float64) ([]float64, error) {
	total := sum(weights)
	if total == 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: cannot normalize total %v", ErrWeightSum, total)
	}

	factor := 1.0 / total
	normalized := make([]float64, len(weights))
	for i, w := range weights {
		normalized[i] = w * factor
	}
	return normalized, nil
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
