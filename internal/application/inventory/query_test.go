package inventory_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

func seedLevels(t *testing.T, e *engine) {
	t.Helper()
	ctx := context.Background()
	for _, in := range []entity.MovementIntent{
		{ProductID: "P1", LocationID: "W1", Kind: entity.MovementIN, Quantity: 10},
		{ProductID: "P1", LocationID: "W2", Kind: entity.MovementIN, Quantity: 4},
		{ProductID: "P2", LocationID: "W1", Kind: entity.MovementIN, Quantity: 6},
	} {
		_, err := e.submit.Submit(ctx, in)
		require.NoError(t, err)
	}
}

func TestQuery_ListLevelsConTotales(t *testing.T) {
	e := newEngine(t, multi())
	seedLevels(t, e)

	all, err := e.query.ListLevels(context.Background(), inventory.LevelQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalItems)
	assert.Equal(t, int64(20), all.TotalQuantity)
	require.Len(t, all.Items, 3)
	// más reciente primero
	assert.Equal(t, "P2", all.Items[0].ProductID)

	w1, err := e.query.ListLevels(context.Background(), inventory.LevelQuery{LocationID: "W1"})
	require.NoError(t, err)
	assert.Equal(t, 2, w1.TotalItems)
	assert.Equal(t, int64(16), w1.TotalQuantity)
}

func TestQuery_BusquedaSinDistinguirMayusculas(t *testing.T) {
	e := newEngine(t, multi())
	seedLevels(t, e)

	res, err := e.query.ListLevels(context.Background(), inventory.LevelQuery{Search: "café"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalItems)
	for _, l := range res.Items {
		assert.Equal(t, "P1", l.ProductID)
	}

	byID, err := e.query.ListLevels(context.Background(), inventory.LevelQuery{Search: "p2"})
	require.NoError(t, err)
	assert.Equal(t, 1, byID.TotalItems)
}

func TestQuery_LimiteNoAfectaTotales(t *testing.T) {
	e := newEngine(t, multi())
	seedLevels(t, e)

	res, err := e.query.ListLevels(context.Background(), inventory.LevelQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 3, res.TotalItems)
	assert.Equal(t, int64(20), res.TotalQuantity)
}

// seedBulkLevels escribe n claves proyectadas directo en la base; la más antigua se llama "Aguja más antigua".
func seedBulkLevels(t *testing.T, e *engine, n int) {
	t.Helper()
	ctx := context.Background()
	tx, err := e.store.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("X%05d", i)
		name := fmt.Sprintf("Tornillo %d", i)
		if i == 0 {
			name = "Aguja más antigua"
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO products (id, name, created_at) VALUES (?, ?, 0)`, id, name)
		require.NoError(t, err)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO inventory_levels (product_id, location_id, quantity, last_event_id, updated_at) VALUES (?, 'W1', 1, ?, ?)`,
			id, i+1, base.Add(time.Duration(i)*time.Second).UnixMilli())
		require.NoError(t, err)
	}
	// fila sin movimientos: no cuenta
	_, err = tx.ExecContext(ctx,
		`INSERT INTO inventory_levels (product_id, location_id, quantity, last_event_id, updated_at) VALUES ('P2', 'W2', 5, 0, 0)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestQuery_TotalesYBusquedaSobreTodasLasClaves(t *testing.T) {
	e := newEngine(t, multi())
	seedBulkLevels(t, e, 10005)
	ctx := context.Background()

	all, err := e.query.ListLevels(ctx, inventory.LevelQuery{})
	require.NoError(t, err)
	assert.Equal(t, 10005, all.TotalItems)
	assert.Equal(t, int64(10005), all.TotalQuantity)
	require.Len(t, all.Items, inventory.DefaultLevelLimit)
	assert.Equal(t, "X10004", all.Items[0].ProductID)

	needle, err := e.query.ListLevels(ctx, inventory.LevelQuery{Search: "AGUJA MÁS"})
	require.NoError(t, err)
	assert.Equal(t, 1, needle.TotalItems)
	assert.Equal(t, int64(1), needle.TotalQuantity)
	require.Len(t, needle.Items, 1)
	assert.Equal(t, "X00000", needle.Items[0].ProductID)
	assert.Equal(t, "Aguja más antigua", needle.Items[0].ProductName)

	none, err := e.query.ListLevels(ctx, inventory.LevelQuery{LocationID: "W2"})
	require.NoError(t, err)
	assert.Zero(t, none.TotalItems)
	assert.Empty(t, none.Items)
}

func TestQuery_GetLevelInexistente(t *testing.T) {
	e := newEngine(t, multi())

	_, err := e.query.GetLevel(context.Background(), keyP1W1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = e.query.GetLevel(context.Background(), entity.LevelKey{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestQuery_HistorialPaginado(t *testing.T) {
	e := newEngine(t, multi())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := e.submit.Submit(ctx, intent(entity.MovementIN, int64(i+1)))
		require.NoError(t, err)
	}

	page1, err := e.query.GetHistory(ctx, keyP1W1, 2, 0)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, int64(5), page1[0].Quantity)

	page2, err := e.query.GetHistory(ctx, keyP1W1, 2, page1[1].ID)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, int64(3), page2[0].Quantity)
	assert.Less(t, page2[0].ID, page1[1].ID)
}

func TestQuery_MovimientosRecientes(t *testing.T) {
	e := newEngine(t, multi())
	seedLevels(t, e)

	recent, err := e.query.ListRecentMovements(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "P2", recent[0].ProductID)
	assert.Greater(t, recent[0].ID, recent[1].ID)
}
