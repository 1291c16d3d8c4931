package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/pricedata"
	"github.com/tvaught/experimental/internal/profile"
	"github.com/tvaught/experimental/pkg/logger"
)

type stubRefresher struct {
	frontier *contracts.Frontier
	err      error
	deadline bool
}

func (s *stubRefresher) Refresh(ctx context.Context, _ *profile.Profile) (*contracts.Frontier, error) {
	_, s.deadline = ctx.Deadline()
	return s.frontier, s.err
}

func TestFrontierRefreshJob(t *testing.T) {
	ok := &contracts.Frontier{RunID: "r1", Points: []contracts.FrontierPoint{
		{RiskTolerance: 0.05}, {RiskTolerance: 0.1, Failed: true},
	}}
	allFailed := &contracts.Frontier{RunID: "r2", Points: []contracts.FrontierPoint{
		{RiskTolerance: 0.05, Failed: true},
	}}

	tests := []struct {
		name    string
		stub    *stubRefresher
		wantErr bool
	}{
		{"partial failure accepted", &stubRefresher{frontier: ok}, false},
		{"all points failed", &stubRefresher{frontier: allFailed}, true},
		{"refresh error", &stubRefresher{err: errors.New("db down")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewFrontierRefreshJob(tt.stub, profile.Default(), "0 30 18 * * 1-5", time.Minute, logger.Nop())
			assert.Equal(t, "frontier_refresh", job.Name())
			assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())

			err := job.Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.True(t, tt.stub.deadline)
		})
	}
}

func TestPriceImportJob(t *testing.T) {
	dir := t.TempDir()
	csv := "Date,Open,High,Low,Close,Volume,Adj Close\n" +
		"2011-08-10,1,1,1,1,1,1\n" +
		"2011-08-11,2,2,2,2,2,2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LALDX.csv"), []byte(csv), 0o644))

	dst := pricedata.NewMemory()
	job := NewPriceImportJob(pricedata.NewCSVDir(dir), dst, nil, "@daily", logger.Nop())
	assert.Equal(t, "price_import", job.Name())

	require.NoError(t, job.Run(context.Background()))
	prices, err := dst.Prices(context.Background(), "LALDX", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, prices, 2)

	empty := NewPriceImportJob(pricedata.NewCSVDir(t.TempDir()), dst, nil, "@daily", logger.Nop())
	assert.Error(t, empty.Run(context.Background()))
}
