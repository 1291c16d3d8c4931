// Package analysis wires price providers, the portfolio model and the
// optimizer into the operations exposed by the CLI, API and scheduler.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/optimizer"
	"github.com/tvaught/experimental/internal/portfolio"
	"github.com/tvaught/experimental/internal/profile"
	"github.com/tvaught/experimental/pkg/logger"
	"github.com/tvaught/experimental/pkg/redis"
)

// ErrBenchmarkUnavailable is returned when the benchmark history cannot be loaded
var ErrBenchmarkUnavailable = errors.New("benchmark prices unavailable")

// FrontierStore persists computed frontiers
type FrontierStore interface {
	SaveFrontier(ctx context.Context, f *contracts.Frontier) error
}

// Options tunes the service
type Options struct {
	Workers  int           // sweep and fetch parallelism, 0 = GOMAXPROCS
	CacheTTL time.Duration // frontier cache lifetime, 0 = redis.DefaultFrontierTTL
}

// Service runs portfolio analysis for optimisation profiles
// ⭐ SSOT: 프로파일 → 포트폴리오 → 최적화 흐름은 여기서만
type Service struct {
	provider contracts.PriceProvider
	cache    *redis.Cache
	store    FrontierStore
	opts     Options
	log      *logger.Logger
}

// NewService creates a service. cache and store may be nil.
func NewService(provider contracts.PriceProvider, cache *redis.Cache, store FrontierStore, opts Options, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if cache == nil {
		cache = redis.NewCache(redis.Disabled(), "frontier")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = redis.DefaultFrontierTTL
	}
	return &Service{
		provider: provider,
		cache:    cache,
		store:    store,
		opts:     opts,
		log:      log,
	}
}

// Build loads the profile's price histories and constructs the portfolio.
// Symbols the provider cannot serve are dropped with a warning.
func (s *Service) Build(ctx context.Context, p *profile.Profile) (*portfolio.Portfolio, error) {
	from, to := p.Universe.FromDate(), p.Universe.ToDate()

	bench, err := s.provider.Prices(ctx, p.Universe.Benchmark, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBenchmarkUnavailable, p.Universe.Benchmark, err)
	}

	var mu sync.Mutex
	prices := make(map[string][]contracts.PriceRecord, len(p.Universe.Symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for _, symbol := range p.Universe.Symbols {
		symbol := symbol
		g.Go(func() error {
			records, err := s.provider.Prices(gctx, symbol, from, to)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.log.WithError(err).WithField("symbol", symbol).Warn("Price history unavailable, dropping symbol")
				records = nil
			}

			mu.Lock()
			prices[symbol] = records
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return portfolio.New(prices, bench, p.PortfolioConfig(), s.log)
}

// Instruments returns the per-instrument scatter data of a profile
func (s *Service) Instruments(ctx context.Context, p *profile.Profile) ([]contracts.InstrumentPoint, error) {
	hash, err := profile.Hash(p)
	if err != nil {
		return nil, err
	}

	var points []contracts.InstrumentPoint
	if found, err := s.cache.Get(ctx, redis.InstrumentsKey(hash), &points); err != nil {
		s.log.WithError(err).Warn("Instrument cache read failed")
	} else if found {
		return points, nil
	}

	port, err := s.Build(ctx, p)
	if err != nil {
		return nil, err
	}
	points = port.InstrumentPoints()

	if err := s.cache.Set(ctx, redis.InstrumentsKey(hash), points, s.opts.CacheTTL); err != nil {
		s.log.WithError(err).Warn("Instrument cache write failed")
	}
	return points, nil
}

// Optimize runs a single optimisation at an annual risk tolerance
func (s *Service) Optimize(ctx context.Context, p *profile.Profile, annualRiskTolerance float64) (*optimizer.Result, error) {
	port, err := s.Build(ctx, p)
	if err != nil {
		return nil, err
	}

	opt, err := optimizer.New(p.OptimizerParams(annualRiskTolerance), s.log)
	if err != nil {
		return nil, err
	}
	return opt.Optimize(ctx, port.Snapshot())
}

// Frontier returns the efficient frontier of a profile, served from cache
// unless refresh is set. cached reports whether the result came from cache.
func (s *Service) Frontier(ctx context.Context, p *profile.Profile, refresh bool) (frontier *contracts.Frontier, cached bool, err error) {
	hash, err := profile.Hash(p)
	if err != nil {
		return nil, false, err
	}
	key := redis.FrontierKey(hash)

	if !refresh {
		var hit contracts.Frontier
		found, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			s.log.WithError(err).Warn("Frontier cache read failed")
		} else if found {
			return &hit, true, nil
		}
	}

	port, err := s.Build(ctx, p)
	if err != nil {
		return nil, false, err
	}

	frontier, err = optimizer.Sweep(ctx, port, p.SweepParams(s.opts.Workers), s.log)
	if err != nil {
		return frontier, false, err
	}
	frontier.ProfileHash = hash
	frontier.Instruments = port.InstrumentPoints()

	if err := s.cache.Set(ctx, key, frontier, s.opts.CacheTTL); err != nil {
		s.log.WithError(err).Warn("Frontier cache write failed")
	}
	if s.store != nil {
		if err := s.store.SaveFrontier(ctx, frontier); err != nil {
			s.log.WithError(err).WithField("run_id", frontier.RunID).Warn("Frontier not persisted")
		}
	}

	return frontier, false, nil
}

// Refresh recomputes and re-caches the frontier of a profile
func (s *Service) Refresh(ctx context.Context, p *profile.Profile) (*contracts.Frontier, error) {
	frontier, _, err := s.Frontier(ctx, p, true)
	return frontier, err
}
