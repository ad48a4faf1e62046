package commands

import (
	"fmt"

	"github.com/hmoon/edgeforge/internal/backtest"
	"github.com/hmoon/edgeforge/internal/contracts"
	"github.com/hmoon/edgeforge/internal/lifecycle"
	"github.com/hmoon/edgeforge/internal/marketdata"
	"github.com/hmoon/edgeforge/internal/validation"
	"github.com/hmoon/edgeforge/internal/worker"
	"github.com/hmoon/edgeforge/pkg/config"
	"github.com/hmoon/edgeforge/pkg/database"
	"github.com/hmoon/edgeforge/pkg/logger"
	"github.com/hmoon/edgeforge/pkg/redis"
)

// deps wires the full pipeline stack once per command invocation
type deps struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	candidates contracts.CandidateRepository
	survivors  contracts.SurvivorRepository
	edges      contracts.EdgeRepository
	audit      contracts.AuditLogRepository

	engine   *backtest.Engine
	pipeline *validation.Pipeline
	manager  *lifecycle.Manager
	pool     *worker.Pool
}

// initDeps builds the stack against Postgres (and Redis when enabled).
// The returned cleanup closes the connections.
func initDeps() (*deps, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}

	bars := marketdata.NewCachedBarRepository(
		marketdata.NewBarRepository(db.Pool),
		redis.NewCache(rdb, "edgeforge"),
	)
	features := marketdata.NewFeatureRepository(db.Pool)

	candidates := lifecycle.NewCandidateRepository(db.Pool)
	survivors := lifecycle.NewSurvivorRepository(db.Pool)
	edges := lifecycle.NewEdgeRepository(db.Pool)
	audit := lifecycle.NewAuditLogRepository(db.Pool)

	engine := backtest.NewEngine(bars, features, log)
	pipeline := validation.NewPipeline(engine, cfg.Pipeline, log)
	manager := lifecycle.NewManager(candidates, survivors, edges, pipeline, log)
	pool := worker.NewPool(candidates, manager, cfg.Pipeline, log)

	cleanup := func() {
		_ = rdb.Close()
		db.Close()
	}

	return &deps{
		cfg:        cfg,
		log:        log,
		db:         db,
		rdb:        rdb,
		candidates: candidates,
		survivors:  survivors,
		edges:      edges,
		audit:      audit,
		engine:     engine,
		pipeline:   pipeline,
		manager:    manager,
		pool:       pool,
	}, cleanup, nil
}
