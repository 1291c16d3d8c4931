package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tvaught/experimental/internal/contracts"
)

// ErrFrontierNotFound is returned when no run is stored for a profile
var ErrFrontierNotFound = errors.New("frontier not found")

const frontierSchema = `
	CREATE TABLE IF NOT EXISTS frontier_runs (
		run_id       TEXT PRIMARY KEY,
		profile_hash TEXT        NOT NULL,
		symbols      TEXT[]      NOT NULL,
		instruments  JSONB       NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS frontier_runs_profile_idx ON frontier_runs (profile_hash, created_at DESC);
	CREATE TABLE IF NOT EXISTS frontier_points (
		run_id         TEXT             NOT NULL REFERENCES frontier_runs (run_id) ON DELETE CASCADE,
		risk_tolerance DOUBLE PRECISION NOT NULL,
		volatility     DOUBLE PRECISION NOT NULL,
		port_return    DOUBLE PRECISION NOT NULL,
		weights        JSONB            NOT NULL,
		iterations     INTEGER          NOT NULL,
		var_95         DOUBLE PRECISION NOT NULL,
		cvar_95        DOUBLE PRECISION NOT NULL,
		failed         BOOLEAN          NOT NULL,
		error          TEXT             NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, risk_tolerance)
	);
`

// FrontierRepository persists frontier runs
// ⭐ SSOT: Frontier 저장/조회는 여기서만
type FrontierRepository struct {
	pool *pgxpool.Pool
}

var _ FrontierStore = (*FrontierRepository)(nil)

// NewFrontierRepository creates a new frontier repository
func NewFrontierRepository(pool *pgxpool.Pool) *FrontierRepository {
	return &FrontierRepository{pool: pool}
}

// EnsureSchema creates the frontier tables if missing
func (r *FrontierRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, frontierSchema); err != nil {
		return fmt.Errorf("ensure frontier schema: %w", err)
	}
	return nil
}

// SaveFrontier stores a run and all of its points in one transaction
func (r *FrontierRepository) SaveFrontier(ctx context.Context, f *contracts.Frontier) error {
	instruments, err := json.Marshal(f.Instruments)
	if err != nil {
		return fmt.Errorf("marshal instruments: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO frontier_runs (run_id, profile_hash, symbols, instruments, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, f.RunID, f.ProfileHash, f.Symbols, instruments, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	query := `
		INSERT INTO frontier_points (
			run_id, risk_tolerance, volatility, port_return, weights,
			iterations, var_95, cvar_95, failed, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, p := range f.Points {
		weights, err := json.Marshal(p.Weights)
		if err != nil {
			return fmt.Errorf("marshal weights: %w", err)
		}
		_, err = tx.Exec(ctx, query,
			f.RunID, p.RiskTolerance, p.Volatility, p.Return, weights,
			p.Iterations, p.VaR95, p.CVaR95, p.Failed, p.Error,
		)
		if err != nil {
			return fmt.Errorf("failed to insert point %.4f: %w", p.RiskTolerance, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LatestFrontier loads the most recent run stored for a profile hash
func (r *FrontierRepository) LatestFrontier(ctx context.Context, profileHash string) (*contracts.Frontier, error) {
	var (
		f           contracts.Frontier
		instruments []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT run_id, profile_hash, symbols, instruments, created_at
		FROM frontier_runs
		WHERE profile_hash = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, profileHash).Scan(&f.RunID, &f.ProfileHash, &f.Symbols, &instruments, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrFrontierNotFound, profileHash)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(instruments, &f.Instruments); err != nil {
		return nil, fmt.Errorf("unmarshal instruments: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT risk_tolerance, volatility, port_return, weights, iterations, var_95, cvar_95, failed, error
		FROM frontier_points
		WHERE run_id = $1
		ORDER BY risk_tolerance ASC
	`, f.RunID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       contracts.FrontierPoint
			weights []byte
		)
		if err := rows.Scan(&p.RiskTolerance, &p.Volatility, &p.Return, &weights,
			&p.Iterations, &p.VaR95, &p.CVaR95, &p.Failed, &p.Error); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(weights, &p.Weights); err != nil {
			return nil, fmt.Errorf("unmarshal weights: %w", err)
		}
		f.Points = append(f.Points, p)
	}
	return &f, rows.Err()
}
