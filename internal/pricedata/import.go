package pricedata

import (
	"context"
	"fmt"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/pkg/logger"
)

// Saver persists price bars; implemented by Repository and Memory
type Saver interface {
	SaveBatch(ctx context.Context, prices []contracts.PriceRecord) (int, error)
}

// ImportStats summarises an import run
type ImportStats struct {
	Symbols int               `json:"symbols"`
	Rows    int               `json:"rows"`
	Saved   int               `json:"saved"`
	Skipped int               `json:"skipped"`
	Failed  map[string]string `json:"failed,omitempty"`
}

// Import copies CSV histories into dst. An empty symbol list imports every
// file in the directory. Unreadable files are reported in Failed; a
// storage error aborts the run.
func Import(ctx context.Context, src *CSVDir, dst Saver, symbols []string, log *logger.Logger) (ImportStats, error) {
	if log == nil {
		log = logger.Nop()
	}

	stats := ImportStats{Failed: make(map[string]string)}
	if len(symbols) == 0 {
		var err error
		if symbols, err = src.Symbols(); err != nil {
			return stats, fmt.Errorf("list csv files: %w", err)
		}
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		prices, skipped, err := src.Load(symbol)
		stats.Skipped += skipped
		if err != nil {
			stats.Failed[symbol] = err.Error()
			log.WithError(err).WithField("symbol", symbol).Warn("CSV import skipped")
			continue
		}

		saved, err := dst.SaveBatch(ctx, prices)
		stats.Saved += saved
		if err != nil {
			return stats, fmt.Errorf("import %s: %w", symbol, err)
		}

		stats.Symbols++
		stats.Rows += len(prices)
		log.WithFields(map[string]interface{}{
			"symbol":  symbol,
			"rows":    len(prices),
			"skipped": skipped,
		}).Debug("CSV imported")
	}

	log.WithFields(map[string]interface{}{
		"symbols": stats.Symbols,
		"rows":    stats.Rows,
		"failed":  len(stats.Failed),
	}).Info("Price import completed")

	return stats, nil
}
