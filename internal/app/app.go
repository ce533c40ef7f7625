// Package app wires configuration, storage and domain services for the
// server, worker and seed commands.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"oilmill/internal/config"
	"oilmill/internal/core/idempotency"
	"oilmill/internal/core/numerator"
	"oilmill/internal/core/tx"
	"oilmill/internal/domain/audit"
	"oilmill/internal/domain/bottling"
	"oilmill/internal/domain/catalog"
	"oilmill/internal/domain/events"
	"oilmill/internal/domain/finance"
	"oilmill/internal/domain/ledger"
	"oilmill/internal/domain/production"
	"oilmill/internal/domain/resolver"
	"oilmill/internal/domain/valuation"
	"oilmill/internal/infrastructure/cache"
	pgnumerator "oilmill/internal/infrastructure/numerator"
	"oilmill/internal/infrastructure/storage/memory"
	"oilmill/internal/infrastructure/storage/postgres"
	"oilmill/internal/infrastructure/storage/postgres/catalog_repo"
	"oilmill/internal/infrastructure/storage/postgres/document_repo"
	"oilmill/internal/infrastructure/storage/postgres/register_repo"
	"oilmill/pkg/logger"
)

// Check probes one dependency for readiness.
type Check func(ctx context.Context) error

// App holds the wired services.
type App struct {
	Config *config.Config

	TxManager   tx.Manager
	Outbox      events.Store
	Idempotency idempotency.Store
	Redis       *redis.Client
	Checks      map[string]Check

	Catalog    *catalog.Service
	Ledger     *ledger.Service
	Valuation  *valuation.Engine
	Resolver   *resolver.Service
	Production *production.Service
	Bottling   *bottling.Service
	Finance    *finance.Service

	closers []func()
}

// storage is the set of repositories of one driver.
type storage struct {
	txm       tx.Manager
	items     catalog.Repository
	movements ledger.Repository
	mappings  resolver.MappingRepository
	batches   production.Repository
	finance   finance.Repository
	numerator numerator.Generator
	outbox    interface {
		events.Publisher
		events.Store
	}
	audit       audit.Logger
	idempotency idempotency.Store
}

// New connects to the configured storage (running migrations on
// PostgreSQL) and Redis, and builds every service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Checks: make(map[string]Check)}

	var (
		st  *storage
		err error
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		st = a.memoryStorage(cfg)
	default:
		st, err = a.postgresStorage(ctx, cfg)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	var resolverCache resolver.Cache
	if cfg.RedisEnabled {
		client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Redis = client
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		resolverCache = cache.NewResolverCache(client, cfg.ResolverCacheTTL)
	}

	var policy *finance.Policy
	if cfg.ProcurementPolicy != "" {
		if policy, err = finance.NewPolicy(cfg.ProcurementPolicy); err != nil {
			a.Close()
			return nil, fmt.Errorf("PROCUREMENT_POLICY: %w", err)
		}
	}

	a.TxManager = st.txm
	a.Outbox = st.outbox
	a.Idempotency = st.idempotency

	a.Catalog = catalog.NewService(st.items, st.txm, st.audit)
	a.Ledger = ledger.NewService(st.items, st.movements, st.txm, st.outbox)
	a.Valuation = valuation.NewEngine(st.items, a.Ledger, st.txm)
	a.Resolver = resolver.NewService(st.items, st.mappings, resolverCache)
	a.Catalog.OnChange(a.Resolver.OnItemChange)
	a.Production = production.NewService(st.batches, a.Ledger, a.Resolver, st.numerator, st.txm, st.outbox)
	a.Bottling = bottling.NewService(a.Ledger, a.Resolver, st.numerator, st.txm, st.outbox)
	a.Finance = finance.NewService(finance.Deps{
		Repo:      st.finance,
		Items:     st.items,
		Valuation: a.Valuation,
		Ledger:    a.Ledger,
		Resolver:  a.Resolver,
		Policy:    policy,
		TxManager: st.txm,
		Audit:     st.audit,
		Publisher: st.outbox,
	})

	logger.Info(ctx, "application wired",
		"storage", cfg.StorageDriver,
		"redis", cfg.RedisEnabled,
		"procurement_policy", a.Finance.Policy(),
	)
	return a, nil
}

func (a *App) memoryStorage(cfg *config.Config) *storage {
	store := memory.New()
	if idem, ok := store.Idempotency().(*memory.IdempotencyStore); ok {
		idem.SetTTL(cfg.IdempotencyTTL)
	}
	return &storage{
		txm:         store,
		items:       store.Items(),
		movements:   store.Movements(),
		mappings:    store.Mappings(),
		batches:     store.Batches(),
		finance:     store.Finance(),
		numerator:   store.Numerator(),
		outbox:      store.Outbox(),
		audit:       store.Audit(),
		idempotency: store.Idempotency(),
	}
}

func (a *App) postgresStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	pc := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	pc.MaxConns = cfg.DBMaxConns
	pc.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)
	a.Checks["database"] = func(ctx context.Context) error { return pool.Ping(ctx) }

	if err := postgres.Migrate(ctx, pool); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	txm := postgres.NewTxManager(pool)
	auditLog, err := postgres.NewAuditLog(txm)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}

	return &storage{
		txm:         txm,
		items:       catalog_repo.NewItemRepo(txm),
		movements:   register_repo.NewMovementRepo(txm),
		mappings:    catalog_repo.NewMappingRepo(txm),
		batches:     document_repo.NewBatchRepo(txm),
		finance:     document_repo.NewFinanceRepo(txm),
		numerator:   pgnumerator.New(txm),
		outbox:      postgres.NewOutbox(txm),
		audit:       auditLog,
		idempotency: postgres.NewIdempotencyStore(pool, cfg.IdempotencyTTL),
	}, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
