package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stocker-ledger/pkg/config"
)

// openPool requiere TEST_DATABASE_URL; sin ella los tests se omiten.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool))
	require.NoError(t, postgres.Migrate(ctx, pool), "migrar dos veces no debe fallar")
	_, err = pool.Exec(ctx, `TRUNCATE movement_events, inventory_levels, products, warehouses RESTART IDENTITY`)
	require.NoError(t, err)

	products := postgres.NewProductRepository(pool)
	warehouses := postgres.NewWarehouseRepository(pool)
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "P1", Name: "Café"}))
	require.NoError(t, warehouses.Create(ctx, &entity.Warehouse{ID: "W1", Name: "Central"}))
	return pool
}

func newSubmit(pool *pgxpool.Pool, policy domaininv.Policy) *inventory.SubmitMovementUseCase {
	coord := inventory.NewCoordinator(inventory.NewLaneLocker(5*time.Second), postgres.NewTxRunner(pool, 2*time.Second), nil, 5*time.Second)
	validator := inventory.NewValidator(policy, postgres.NewProductRepository(pool), postgres.NewWarehouseRepository(pool))
	return inventory.NewSubmitMovementUseCase(coord, validator,
		postgres.NewLedgerRepository(pool), postgres.NewInventoryLevelRepository(pool), nil, nil, nil)
}

func TestPostgres_SalidasConcurrentesNoSobregiran(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	submit := newSubmit(pool, domaininv.Policy{MultiLocation: true})

	_, err := submit.Submit(ctx, entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: entity.MovementIN, Quantity: 5})
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := submit.Submit(ctx, entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: entity.MovementOUT, Quantity: 1})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, accepted)

	level, err := postgres.NewInventoryLevelRepository(pool).Get(ctx, entity.LevelKey{ProductID: "P1", LocationID: "W1"})
	require.NoError(t, err)
	require.NotNil(t, level)
	assert.Equal(t, int64(0), level.Quantity)
	assert.Equal(t, "Café", level.ProductName)
}

func TestPostgres_TokenRepetidoYLedgerAppendOnly(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	submit := newSubmit(pool, domaininv.Policy{MultiLocation: true})

	in := entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: entity.MovementIN, Quantity: 3, IdempotencyToken: "tok-pg"}
	first, err := submit.Submit(ctx, in)
	require.NoError(t, err)
	again, err := submit.Submit(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, first.EventID, again.EventID)

	_, err = pool.Exec(ctx, `UPDATE movement_events SET quantity = 99`)
	assert.Error(t, err)
	_, err = pool.Exec(ctx, `DELETE FROM movement_events`)
	assert.Error(t, err)

	err = postgres.NewProductRepository(pool).Delete(ctx, "P1")
	assert.ErrorIs(t, err, domain.ErrConflict)
	err = postgres.NewWarehouseRepository(pool).Delete(ctx, "W1")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPostgres_FallaSinDejarPlaceholder(t *testing.T) {
	pool := openPool(t)
	ctx := context.Background()
	submit := newSubmit(pool, domaininv.Policy{MultiLocation: true})

	_, err := submit.Submit(ctx, entity.MovementIntent{ProductID: "P1", LocationID: "W1", Kind: entity.MovementOUT, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	level, err := postgres.NewInventoryLevelRepository(pool).Get(ctx, entity.LevelKey{ProductID: "P1", LocationID: "W1"})
	require.NoError(t, err)
	assert.Nil(t, level, "el rollback descarta la fila creada por GetForUpdate")
}
