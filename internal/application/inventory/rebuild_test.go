package inventory_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/sqlite"
)

func TestRebuild_EquivaleAlPlegadoIncremental(t *testing.T) {
	e := newEngine(t, domaininv.Policy{MultiLocation: true, AllowNegativeStock: true})
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	kinds := []entity.MovementKind{entity.MovementIN, entity.MovementOUT, entity.MovementADJUST}

	for i := 0; i < 40; i++ {
		in := intent(kinds[rng.Intn(len(kinds))], int64(rng.Intn(20)+1))
		_, err := e.submit.Submit(ctx, in)
		require.NoError(t, err)
	}

	before, err := e.query.GetLevel(ctx, keyP1W1)
	require.NoError(t, err)

	// la página de reproducción es 2: el fold cruza varias páginas
	rebuilt, err := e.rebuild.Rebuild(ctx, keyP1W1)
	require.NoError(t, err)
	assert.Equal(t, before.Quantity, rebuilt.Quantity)
	assert.Equal(t, before.LastEventID, rebuilt.LastEventID)
	assert.Equal(t, before.UpdatedAt, rebuilt.UpdatedAt)
}

func TestRebuild_DetectaYCorrigeDesvio(t *testing.T) {
	e := newEngine(t, multi())
	ctx := context.Background()
	seedLevels(t, e)

	// se corrompe la proyección de una clave por fuera del motor
	levels := sqlite.NewInventoryLevelRepository(e.store.DB())
	stored, err := levels.Get(ctx, keyP1W1)
	require.NoError(t, err)
	stored.Quantity = 999
	require.NoError(t, levels.Upsert(ctx, stored))

	d, err := e.rebuild.Verify(ctx, keyP1W1)
	require.NoError(t, err)
	assert.False(t, d.InSync)
	assert.Equal(t, int64(999), d.Stored)
	assert.Equal(t, int64(10), d.Replayed)

	drifts, err := e.rebuild.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	assert.Equal(t, keyP1W1, drifts[0].Key)
	assert.Equal(t, 2, e.metrics.drifts)

	n, err := e.rebuild.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	drifts, err = e.rebuild.VerifyAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	level, err := e.query.GetLevel(ctx, keyP1W1)
	require.NoError(t, err)
	assert.Equal(t, int64(10), level.Quantity)
}

func TestRebuild_ClaveSinEventosQuedaVacia(t *testing.T) {
	e := newEngine(t, multi())
	ctx := context.Background()

	// fila huérfana sin eventos en el ledger
	levels := sqlite.NewInventoryLevelRepository(e.store.DB())
	require.NoError(t, levels.Upsert(ctx, &entity.InventoryLevel{
		ProductID: "P2", LocationID: "W2", Quantity: 3, LastEventID: 77,
	}))

	n, err := e.rebuild.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = e.query.GetLevel(ctx, entity.LevelKey{ProductID: "P2", LocationID: "W2"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	lvl, err := e.rebuild.Rebuild(ctx, keyP1W1)
	require.NoError(t, err)
	assert.False(t, lvl.Exists())
}

func TestRebuild_ClaveInvalida(t *testing.T) {
	e := newEngine(t, multi())

	_, err := e.rebuild.Rebuild(context.Background(), entity.LevelKey{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
