package analysis

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/pricedata"
	"github.com/tvaught/experimental/internal/profile"
)

// series builds 60 daily bars from a deterministic oscillating return stream
func series(symbol string, freq, phase, drift float64) []contracts.PriceRecord {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	out := make([]contracts.PriceRecord, 0, 60)
	for i := 0; i < 60; i++ {
		if i > 0 {
			price *= 1 + drift + 0.01*math.Sin(float64(i)*freq+phase)
		}
		out = append(out, contracts.PriceRecord{
			Symbol: symbol, Date: start.AddDate(0, 0, i),
			Open: price, High: price, Low: price, Close: price, AdjClose: price, Volume: 1000,
		})
	}
	return out
}

func testProvider() *pricedata.Memory {
	m := pricedata.NewMemory()
	m.Add("^BENCH", series("^BENCH", 0.7, 0.0, 0.0005))
	m.Add("AAA", series("AAA", 0.9, 0.3, 0.0010))
	m.Add("BBB", series("BBB", 1.3, 1.1, 0.0004))
	m.Add("CCC", series("CCC", 0.5, 2.0, 0.0007))
	return m
}

func testProfile() *profile.Profile {
	p := profile.Default()
	p.Meta.ProfileID = "test"
	p.Universe = profile.Universe{
		Symbols:   []string{"AAA", "BBB", "CCC"},
		Benchmark: "^BENCH",
		From:      "2020-01-01",
		To:        "2020-12-31",
	}
	return p
}

type recordingStore struct {
	mu    sync.Mutex
	saved []*contracts.Frontier
}

func (s *recordingStore) SaveFrontier(_ context.Context, f *contracts.Frontier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, f)
	return nil
}

func TestService_Build(t *testing.T) {
	svc := NewService(testProvider(), nil, nil, Options{Workers: 2}, nil)

	port, err := svc.Build(context.Background(), testProfile())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, port.Symbols())
	assert.Len(t, port.Grid(), 60)
}

func TestService_Build_DropsUnknownSymbol(t *testing.T) {
	p := testProfile()
	p.Universe.Symbols = append(p.Universe.Symbols, "ZZZ")

	svc := NewService(testProvider(), nil, nil, Options{}, nil)
	port, err := svc.Build(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, port.Symbols())
	assert.Contains(t, port.Dropped(), "ZZZ")
}

func TestService_Build_Errors(t *testing.T) {
	svc := NewService(testProvider(), nil, nil, Options{}, nil)
	ctx := context.Background()

	p := testProfile()
	p.Universe.Benchmark = "MISSING"
	_, err := svc.Build(ctx, p)
	assert.ErrorIs(t, err, ErrBenchmarkUnavailable)

	p = testProfile()
	p.Universe.Symbols = []string{"AAA", "NOPE"}
	_, err = svc.Build(ctx, p)
	assert.ErrorIs(t, err, portfolio.ErrTooFewInstruments)
}

func TestService_Instruments(t *testing.T) {
	svc := NewService(testProvider(), nil, nil, Options{}, nil)

	points, err := svc.Instruments(context.Background(), testProfile())
	require.NoError(t, err)
	require.Len(t, points, 3)
	for _, p := range points {
		assert.Greater(t, p.Volatility, 0.0, p.Symbol)
		assert.InDelta(t, 1.0/3.0, p.Weight, 1e-12, p.Symbol)
	}
}

func TestService_Optimize(t *testing.T) {
	svc := NewService(testProvider(), nil, nil, Options{}, nil)

	result, err := svc.Optimize(context.Background(), testProfile(), 0.5)
	require.NoError(t, err)

	total := 0.0
	for symbol, w := range result.Weights {
		assert.GreaterOrEqual(t, w, 0.0, symbol)
		assert.LessOrEqual(t, w, 1.0, symbol)
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.InDelta(t, 0.5/252, result.RiskTolerance, 1e-15)
}

func TestService_Frontier(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(testProvider(), nil, store, Options{Workers: 4}, nil)
	p := testProfile()

	frontier, cached, err := svc.Frontier(context.Background(), p, false)
	require.NoError(t, err)
	assert.False(t, cached)

	hash, err := profile.Hash(p)
	require.NoError(t, err)
	assert.Equal(t, hash, frontier.ProfileHash)
	assert.Len(t, frontier.Points, 29)
	assert.Len(t, frontier.Instruments, 3)
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, frontier.Symbols)
	require.Len(t, store.saved, 1)

	// 캐시 비활성 상태: 매번 재계산
	again, err := svc.Refresh(context.Background(), p)
	require.NoError(t, err)
	assert.NotEqual(t, frontier.RunID, again.RunID)
	assert.Len(t, store.saved, 2)
}

func TestService_Frontier_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(testProvider(), nil, nil, Options{}, nil)
	_, _, err := svc.Frontier(ctx, testProfile(), true)
	assert.ErrorIs(t, err, context.Canceled)
}
