package inventory_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/sqlite"
)

// ─── Dobles ──────────────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu      sync.Mutex
	changes []entity.LevelChange
	err     error
}

func (n *recordingNotifier) LevelChanged(_ context.Context, c entity.LevelChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, c)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changes)
}

type countingMetrics struct {
	mu       sync.Mutex
	outcomes map[string]int
	drifts   int
}

func (m *countingMetrics) ObserveSubmit(_ string, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

func (m *countingMetrics) ObserveLaneWait(time.Duration) {}

func (m *countingMetrics) ObserveDrift(entity.LevelKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drifts++
}

// ─── Entorno ─────────────────────────────────────────────────────────────────

type engine struct {
	store    *sqlite.Store
	locker   *inventory.LaneLocker
	submit   *inventory.SubmitMovementUseCase
	query    *inventory.QueryUseCase
	rebuild  *inventory.RebuildUseCase
	notifier *recordingNotifier
	metrics  *countingMetrics
}

func newEngine(t *testing.T, policy domaininv.Policy) *engine {
	return newEngineWithWait(t, policy, 5*time.Second)
}

func newEngineWithWait(t *testing.T, policy domaininv.Policy, laneWait time.Duration) *engine {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	db := store.DB()
	products := sqlite.NewProductRepository(db)
	warehouses := sqlite.NewWarehouseRepository(db)
	ledger := sqlite.NewLedgerRepository(db)
	levels := sqlite.NewInventoryLevelRepository(db)

	ctx := context.Background()
	for _, p := range []entity.Product{{ID: "P1", Name: "CAFÉ Molido"}, {ID: "P2", Name: "Azúcar"}} {
		require.NoError(t, products.Create(ctx, &p))
	}
	for _, w := range []entity.Warehouse{{ID: "W1", Name: "Central"}, {ID: "W2", Name: "Norte"}} {
		require.NoError(t, warehouses.Create(ctx, &w))
	}

	e := &engine{
		store:    store,
		locker:   inventory.NewLaneLocker(laneWait),
		notifier: &recordingNotifier{},
		metrics:  &countingMetrics{},
	}
	coord := inventory.NewCoordinator(e.locker, sqlite.NewTxRunner(store), e.metrics, 5*time.Second)
	validator := inventory.NewValidator(policy, products, warehouses)
	e.submit = inventory.NewSubmitMovementUseCase(coord, validator, ledger, levels, e.notifier, e.metrics, nil)
	e.query = inventory.NewQueryUseCase(ledger, levels, policy)
	e.rebuild = inventory.NewRebuildUseCase(coord, ledger, levels, policy,
		inventory.RebuildOptions{PageSize: 2, Concurrency: 3}, e.metrics, nil)
	return e
}

func intent(kind entity.MovementKind, qty int64) entity.MovementIntent {
	return entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: kind, Quantity: qty, ActorID: "u-1"}
}

var keyP1W1 = entity.LevelKey{ProductID: "P1", LocationID: "W1"}

func multi() domaininv.Policy {
	return domaininv.Policy{MultiLocation: true}
}
