package pricedata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tvaught/experimental/internal/contracts"
)

// schema mirrors the historical price database: one row per (symbol, date)
const schema = `
	CREATE TABLE IF NOT EXISTS stocks (
		symbol   TEXT             NOT NULL,
		date     DATE             NOT NULL,
		open     DOUBLE PRECISION NOT NULL,
		high     DOUBLE PRECISION NOT NULL,
		low      DOUBLE PRECISION NOT NULL,
		close    DOUBLE PRECISION NOT NULL,
		volume   DOUBLE PRECISION NOT NULL,
		adjclose DOUBLE PRECISION NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS stock_idx ON stocks (symbol, date);
`

// Repository implements contracts.PriceProvider on PostgreSQL
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ contracts.PriceProvider = (*Repository)(nil)
	_ Saver                   = (*Repository)(nil)
)

// NewRepository creates a new price repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the stocks table and its unique index if missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure price schema: %w", err)
	}
	return nil
}

// Prices retrieves a symbol's bars within [from, to], oldest first.
// A zero to means no upper bound.
func (r *Repository) Prices(ctx context.Context, symbol string, from, to time.Time) ([]contracts.PriceRecord, error) {
	query := `
		SELECT symbol, date, open, high, low, close, volume, adjclose
		FROM stocks
		WHERE symbol = $1 AND date >= $2 AND ($3::date IS NULL OR date <= $3)
		ORDER BY date ASC
	`

	var upper *time.Time
	if !to.IsZero() {
		upper = &to
	}

	rows, err := r.pool.Query(ctx, query, symbol, from, upper)
	if err != nil {
		return nil, fmt.Errorf("query prices %s: %w", symbol, err)
	}
	defer rows.Close()

	var prices []contracts.PriceRecord
	for rows.Next() {
		var p contracts.PriceRecord
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume, &p.AdjClose); err != nil {
			return nil, err
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	return prices, nil
}

// Symbols lists every symbol stored in the table
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM stocks ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// SaveBatch upserts price bars in one round trip and returns the row count
func (r *Repository) SaveBatch(ctx context.Context, prices []contracts.PriceRecord) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO stocks (symbol, date, open, high, low, close, volume, adjclose)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			adjclose = EXCLUDED.adjclose`

	for _, p := range prices {
		batch.Queue(query, p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, p.AdjClose)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	saved := 0
	for _, p := range prices {
		tag, err := br.Exec()
		if err != nil {
			return saved, fmt.Errorf("save %s %s: %w", p.Symbol, p.Date.Format(dateLayout), err)
		}
		saved += int(tag.RowsAffected())
	}
	return saved, nil
}
