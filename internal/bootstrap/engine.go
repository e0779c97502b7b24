// Package bootstrap arma el motor de ledger a partir de la configuración; lo comparten la API y ledgerctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/application/usecase"
	domaininv "github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/messaging"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/redislock"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/stocker-ledger/pkg/config"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

// Engine casos de uso listos para servir más los recursos que hay que cerrar.
type Engine struct {
	Submit  *inventory.SubmitMovementUseCase
	Query   *inventory.QueryUseCase
	Rebuild *inventory.RebuildUseCase
	Catalog *usecase.CatalogUseCase
	// Registry registro Prometheus propio; nil si las métricas están deshabilitadas.
	Registry *prometheus.Registry

	closers []func() error
}

type storage struct {
	tx         inventory.TxRunner
	ledger     repository.LedgerRepository
	levels     repository.InventoryLevelRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
}

// Build abre el almacenamiento (aplicando migraciones), elige carriles, notificador y métricas.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (_ *Engine, err error) {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{}
	defer func() {
		if err != nil {
			_ = e.Close()
		}
	}()

	st, err := e.openStorage(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	e.Catalog = usecase.NewCatalogUseCase(st.products, st.warehouses)

	locker, err := e.openLocker(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var m inventory.Metrics = inventory.NopMetrics{}
	if cfg.Metrics.Enabled {
		e.Registry = prometheus.NewRegistry()
		e.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		pm, err := metrics.NewPrometheus("stocker_ledger", e.Registry)
		if err != nil {
			return nil, fmt.Errorf("métricas: %w", err)
		}
		m = pm
	}

	var notifier inventory.LevelNotifier
	if cfg.Kafka.Enabled() {
		kn := messaging.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		e.closers = append(e.closers, kn.Close)
		notifier = kn
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("notificaciones por Kafka")
	} else {
		notifier = messaging.NewLogNotifier(log)
	}

	policy := domaininv.Policy{
		MultiLocation:      cfg.Ledger.MultiLocation,
		AllowNegativeStock: cfg.Ledger.AllowNegativeStock,
	}
	coord := inventory.NewCoordinator(locker, st.tx, m, cfg.Ledger.StorageTimeout)
	validator := inventory.NewValidator(policy, st.products, st.warehouses)

	e.Submit = inventory.NewSubmitMovementUseCase(coord, validator, st.ledger, st.levels, notifier, m, log)
	e.Query = inventory.NewQueryUseCase(st.ledger, st.levels, policy)
	e.Rebuild = inventory.NewRebuildUseCase(coord, st.ledger, st.levels, policy, inventory.RebuildOptions{
		PageSize:    cfg.Ledger.ReplayPageSize,
		Concurrency: cfg.Ledger.RebuildConcurrency,
	}, m, log)

	log.Info().
		Str("driver", cfg.Ledger.Driver).
		Str("lanes", cfg.Ledger.LaneBackend).
		Bool("multi_location", policy.MultiLocation).
		Bool("allow_negative_stock", policy.AllowNegativeStock).
		Msg("motor de ledger listo")
	return e, nil
}

func (e *Engine) openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		e.closers = append(e.closers, func() error { pool.Close(); return nil })
		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		log.Info().Str("dsn", postgres.RedactDSN(cfg.DB.ConnectionString())).Msg("PostgreSQL listo")
		return &storage{
			tx:         postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout),
			ledger:     postgres.NewLedgerRepository(pool),
			levels:     postgres.NewInventoryLevelRepository(pool),
			products:   postgres.NewProductRepository(pool),
			warehouses: postgres.NewWarehouseRepository(pool),
		}, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.Ledger.SQLitePath, cfg.Ledger.LockTimeout)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, store.Close)
		log.Info().Str("path", cfg.Ledger.SQLitePath).Msg("SQLite listo")
		db := store.DB()
		return &storage{
			tx:         sqlite.NewTxRunner(store),
			ledger:     sqlite.NewLedgerRepository(db),
			levels:     sqlite.NewInventoryLevelRepository(db),
			products:   sqlite.NewProductRepository(db),
			warehouses: sqlite.NewWarehouseRepository(db),
		}, nil
	}
	return nil, fmt.Errorf("LEDGER_DRIVER desconocido %q", cfg.Ledger.Driver)
}

func (e *Engine) openLocker(ctx context.Context, cfg *config.Config) (inventory.KeyLocker, error) {
	if cfg.Ledger.LaneBackend != config.LaneRedis {
		return inventory.NewLaneLocker(cfg.Ledger.LockTimeout), nil
	}
	client, err := redislock.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, client.Close)
	return redislock.New(client, cfg.Ledger.LockTimeout, cfg.Ledger.StorageTimeout+cfg.Ledger.LockTimeout), nil
}

// Close libera los recursos en orden inverso de apertura.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}
