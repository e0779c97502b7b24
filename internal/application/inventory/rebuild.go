package inventory

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

// DefaultReplayPageSize eventos leídos por página al reproducir el ledger.
const DefaultReplayPageSize = 500

// Drift comparación entre el nivel guardado y el fold del ledger de una clave.
type Drift struct {
	Key                 entity.LevelKey
	Stored              int64
	StoredLastEventID   int64
	Replayed            int64
	ReplayedLastEventID int64
	InSync              bool
}

// RebuildOptions parámetros de la reconstrucción.
type RebuildOptions struct {
	PageSize    int
	Concurrency int
}

// RebuildUseCase recalcula la proyección desde el ledger, por clave o completa.
type RebuildUseCase struct {
	coordinator *Coordinator
	ledger      repository.LedgerRepository
	levels      repository.InventoryLevelRepository
	policy      inventory.Policy
	opts        RebuildOptions
	metrics     Metrics
	log         *logger.Logger
}

// NewRebuildUseCase construye el caso de uso. ledger y levels se usan para enumerar claves.
func NewRebuildUseCase(
	coordinator *Coordinator,
	ledger repository.LedgerRepository,
	levels repository.InventoryLevelRepository,
	policy inventory.Policy,
	opts RebuildOptions,
	metrics Metrics,
	log *logger.Logger,
) *RebuildUseCase {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultReplayPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RebuildUseCase{
		coordinator: coordinator,
		ledger:      ledger,
		levels:      levels,
		policy:      policy,
		opts:        opts,
		metrics:     metrics,
		log:         log.Named("rebuild"),
	}
}

// Rebuild descarta el nivel de la clave y lo recalcula con todos sus eventos en orden de ID.
// Corre en el carril de la clave: ningún movimiento se intercala con la reproducción.
func (uc *RebuildUseCase) Rebuild(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error) {
	key = uc.policy.NormalizeKey(key)
	if key.ProductID == "" {
		return nil, domain.NewError(domain.ErrValidation, key, "product_id es obligatorio")
	}

	var level entity.InventoryLevel
	err := uc.coordinator.Execute(ctx, key, func(
		ctx context.Context,
		ledger repository.LedgerRepository,
		levels repository.InventoryLevelRepository,
	) error {
		if _, err := levels.GetForUpdate(ctx, key); err != nil {
			return err
		}
		replayed, err := uc.replay(ctx, ledger, key)
		if err != nil {
			return err
		}
		level = replayed
		if !level.Exists() {
			return levels.Delete(ctx, key)
		}
		return levels.Upsert(ctx, &level)
	})
	if err != nil {
		uc.log.Error().Err(err).Str("key", key.String()).Msg("reconstrucción fallida")
		return nil, err
	}
	uc.log.Info().
		Str("key", key.String()).
		Int64("quantity", level.Quantity).
		Int64("last_event_id", level.LastEventID).
		Msg("nivel reconstruido")
	return &level, nil
}

// Verify compara el nivel guardado con el fold del ledger sin escribir nada.
func (uc *RebuildUseCase) Verify(ctx context.Context, key entity.LevelKey) (*Drift, error) {
	key = uc.policy.NormalizeKey(key)
	if key.ProductID == "" {
		return nil, domain.NewError(domain.ErrValidation, key, "product_id es obligatorio")
	}

	var d Drift
	err := uc.coordinator.Execute(ctx, key, func(
		ctx context.Context,
		ledger repository.LedgerRepository,
		levels repository.InventoryLevelRepository,
	) error {
		stored, err := levels.Get(ctx, key)
		if err != nil {
			return err
		}
		replayed, err := uc.replay(ctx, ledger, key)
		if err != nil {
			return err
		}
		d = Drift{Key: key, Replayed: replayed.Quantity, ReplayedLastEventID: replayed.LastEventID}
		if stored != nil {
			d.Stored = stored.Quantity
			d.StoredLastEventID = stored.LastEventID
		}
		d.InSync = d.Stored == d.Replayed && d.StoredLastEventID == d.ReplayedLastEventID
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !d.InSync {
		uc.metrics.ObserveDrift(key)
		uc.log.Warn().
			Str("key", key.String()).
			Int64("stored", d.Stored).
			Int64("replayed", d.Replayed).
			Msg("el nivel guardado no coincide con el ledger")
	}
	return &d, nil
}

// RebuildAll reconstruye todas las claves conocidas con concurrencia acotada.
// Devuelve el número de claves procesadas.
func (uc *RebuildUseCase) RebuildAll(ctx context.Context) (int, error) {
	keys, err := uc.keys(ctx)
	if err != nil {
		return 0, err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.Concurrency)
	for _, key := range keys {
		g.Go(func() error {
			_, err := uc.Rebuild(gctx, key)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// VerifyAll verifica todas las claves y devuelve solo las que difieren.
func (uc *RebuildUseCase) VerifyAll(ctx context.Context) ([]Drift, error) {
	keys, err := uc.keys(ctx)
	if err != nil {
		return nil, err
	}
	var (
		mu     sync.Mutex
		drifts []Drift
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.Concurrency)
	for _, key := range keys {
		g.Go(func() error {
			d, err := uc.Verify(gctx, key)
			if err != nil {
				return err
			}
			if !d.InSync {
				mu.Lock()
				drifts = append(drifts, *d)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return drifts, nil
}

func (uc *RebuildUseCase) replay(ctx context.Context, ledger repository.LedgerRepository, key entity.LevelKey) (entity.InventoryLevel, error) {
	level := entity.InventoryLevel{ProductID: key.ProductID, LocationID: key.LocationID}
	var after int64
	for {
		page, err := ledger.ReplayByKey(ctx, key, after, uc.opts.PageSize)
		if err != nil {
			return level, err
		}
		for _, ev := range page {
			level = inventory.Apply(level, ev)
			after = ev.ID
		}
		if len(page) < uc.opts.PageSize {
			return level, nil
		}
	}
}

// keys claves con eventos en el ledger más las que solo tienen fila proyectada.
func (uc *RebuildUseCase) keys(ctx context.Context) ([]entity.LevelKey, error) {
	seen := make(map[entity.LevelKey]struct{})
	var keys []entity.LevelKey
	add := func(k entity.LevelKey) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	var after int64
	for {
		page, err := uc.ledger.ListAll(ctx, after, uc.opts.PageSize)
		if err != nil {
			return nil, domain.Classify(err, entity.LevelKey{})
		}
		for _, ev := range page {
			add(ev.Key())
			after = ev.ID
		}
		if len(page) < uc.opts.PageSize {
			break
		}
	}

	stored, err := uc.levels.List(ctx, repository.LevelFilter{})
	if err != nil {
		return nil, domain.Classify(err, entity.LevelKey{})
	}
	for _, l := range stored {
		add(l.Key())
	}
	return keys, nil
}
