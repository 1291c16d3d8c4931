package commands

import (
	"context"
	"fmt"

	"github.com/tvaught/experimental/internal/analysis"
	"github.com/tvaught/experimental/internal/contracts"
	"github.com/tvaught/experimental/internal/pricedata"
	"github.com/tvaught/experimental/internal/profile"
	"github.com/tvaught/experimental/pkg/config"
	"github.com/tvaught/experimental/pkg/database"
	"github.com/tvaught/experimental/pkg/logger"
	"github.com/tvaught/experimental/pkg/redis"
)

// app bundles the dependencies every command needs
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	profile *profile.Profile

	provider  contracts.PriceProvider
	csv       *pricedata.CSVDir // nil unless CSV_DIR is set
	db        *database.DB      // nil when no database is configured
	prices    *pricedata.Repository
	frontiers *analysis.FrontierRepository
	redis     *redis.Client
	svc       *analysis.Service
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	level := ""
	if verbose {
		level = "debug"
	}

	cfg, err := config.Load(
		config.WithPriceSource(source),
		config.WithCSVDir(csvDir),
		config.WithProfilePath(profilePath),
		config.WithLogLevel(level),
	)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// loadProfile reads the configured profile, or the built-in default
func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return profile.Default(), nil
	}
	p, _, err := profile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return p, nil
}

// setup wires config, logger, price source, cache and the analysis service
func setup(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Load profile
	p, err := loadProfile(cfg.ProfilePath)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, profile: p}
	if cfg.CSVDir != "" {
		a.csv = pricedata.NewCSVDir(cfg.CSVDir)
	}

	// 4. Connect to database (CSV 소스는 선택 사항)
	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database)
		switch {
		case err == nil:
			a.db = db
			a.prices = pricedata.NewRepository(db.Pool)
			a.frontiers = analysis.NewFrontierRepository(db.Pool)
			if err := a.frontiers.EnsureSchema(ctx); err != nil {
				a.close()
				return nil, err
			}
		case cfg.PriceSource == config.PriceSourcePostgres:
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			log.WithError(err).Warn("Database unavailable, frontiers will not be persisted")
		}
	}

	// 5. Select price provider
	switch cfg.PriceSource {
	case config.PriceSourceCSV:
		a.provider = a.csv
	default:
		a.provider = a.prices
	}

	// 6. Connect to redis (비활성 시 캐시 없이 동작)
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, caching disabled")
		rc = redis.Disabled()
	}
	a.redis = rc

	// 7. Create analysis service
	var store analysis.FrontierStore
	if a.frontiers != nil {
		store = a.frontiers
	}
	a.svc = analysis.NewService(
		a.provider,
		redis.NewCache(rc, "frontier"),
		store,
		analysis.Options{Workers: cfg.Workers, CacheTTL: cfg.FrontierCacheTTL},
		log,
	)

	log.WithFields(map[string]interface{}{
		"source":  cfg.PriceSource,
		"profile": p.Meta.ProfileID,
		"symbols": len(p.Universe.Symbols),
		"redis":   rc.Enabled(),
		"persist": a.frontiers != nil,
	}).Debug("Application initialized")

	return a, nil
}

// close releases the database and redis connections
func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
