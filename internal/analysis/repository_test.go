package analysis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvaught/experimental/internal/contracts"
)

func TestFrontierRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewFrontierRepository(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	hash := "test-" + uuid.NewString()
	defer func() {
		_, _ = pool.Exec(ctx, `DELETE FROM frontier_runs WHERE profile_hash = $1`, hash)
	}()

	_, err = repo.LatestFrontier(ctx, hash)
	assert.ErrorIs(t, err, ErrFrontierNotFound)

	older := &contracts.Frontier{
		RunID:       uuid.NewString(),
		ProfileHash: hash,
		Symbols:     []string{"AAA", "BBB"},
		Instruments: []contracts.InstrumentPoint{{Symbol: "AAA", Weight: 0.5}, {Symbol: "BBB", Weight: 0.5}},
		Points: []contracts.FrontierPoint{
			{RiskTolerance: 0.05, Weights: map[string]float64{"AAA": 1}},
		},
		CreatedAt: time.Now().Add(-time.Hour).UTC(),
	}
	newer := &contracts.Frontier{
		RunID:       uuid.NewString(),
		ProfileHash: hash,
		Symbols:     []string{"AAA", "BBB"},
		Instruments: older.Instruments,
		Points: []contracts.FrontierPoint{
			{RiskTolerance: 0.10, Volatility: 0.02, Return: 0.001, Weights: map[string]float64{"AAA": 0.3, "BBB": 0.7}, Iterations: 4, VaR95: 0.03, CVaR95: 0.04},
			{RiskTolerance: 0.05, Failed: true, Error: "optimizer did not converge"},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.SaveFrontier(ctx, older))
	require.NoError(t, repo.SaveFrontier(ctx, newer))

	got, err := repo.LatestFrontier(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, newer.RunID, got.RunID)
	assert.Equal(t, newer.Symbols, got.Symbols)
	assert.Len(t, got.Instruments, 2)
	assert.WithinDuration(t, newer.CreatedAt, got.CreatedAt, time.Millisecond)

	// risk_tolerance 오름차순
	require.Len(t, got.Points, 2)
	assert.True(t, got.Points[0].Failed)
	assert.Equal(t, "optimizer did not converge", got.Points[0].Error)
	assert.Nil(t, got.Points[0].Weights)
	assert.Equal(t, 0.7, got.Points[1].Weights["BBB"])
	assert.Equal(t, 4, got.Points[1].Iterations)

	// 같은 run_id 재저장은 실패
	assert.Error(t, repo.SaveFrontier(ctx, newer))
}
