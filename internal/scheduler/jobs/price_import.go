package jobs

import (
	"context"
	"fmt"

	"github.com/tvaught/experimental/internal/pricedata"
	"github.com/tvaught/experimental/pkg/logger"
)

// PriceImportJob loads CSV exports into the price store before the refresh
type PriceImportJob struct {
	src      *pricedata.CSVDir
	dst      pricedata.Saver
	symbols  []string
	schedule string
	logger   *logger.Logger
}

// NewPriceImportJob creates an import job; empty symbols imports every file
func NewPriceImportJob(src *pricedata.CSVDir, dst pricedata.Saver, symbols []string, schedule string, log *logger.Logger) *PriceImportJob {
	return &PriceImportJob{
		src:      src,
		dst:      dst,
		symbols:  symbols,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *PriceImportJob) Name() string {
	return "price_import"
}

// Schedule returns the configured cron schedule
func (j *PriceImportJob) Schedule() string {
	return j.schedule
}

// Run executes the import
func (j *PriceImportJob) Run(ctx context.Context) error {
	stats, err := pricedata.Import(ctx, j.src, j.dst, j.symbols, j.logger)
	if err != nil {
		return fmt.Errorf("import prices: %w", err)
	}
	if stats.Symbols == 0 {
		return fmt.Errorf("import prices: no symbol imported (%d failed)", len(stats.Failed))
	}
	return nil
}
