package usecase_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/application/usecase"
	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/sqlite"
)

func newCatalog(t *testing.T) *usecase.CatalogUseCase {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "catalog.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return usecase.NewCatalogUseCase(sqlite.NewProductRepository(store.DB()), sqlite.NewWarehouseRepository(store.DB()))
}

func TestCatalog_CreaProductoConIDGenerado(t *testing.T) {
	uc := newCatalog(t)

	p, err := uc.CreateProduct(context.Background(), "", "  Arroz ")
	require.NoError(t, err)
	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Arroz", p.Name)
}

func TestCatalog_NombreObligatorio(t *testing.T) {
	uc := newCatalog(t)

	_, err := uc.CreateProduct(context.Background(), "P1", " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = uc.CreateWarehouse(context.Background(), "W1", "", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCatalog_DuplicadoEsConflicto(t *testing.T) {
	uc := newCatalog(t)
	ctx := context.Background()

	_, err := uc.CreateWarehouse(ctx, "W1", "Central", "Calle 1")
	require.NoError(t, err)
	_, err = uc.CreateWarehouse(ctx, "W1", "Otra", "")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCatalog_BorrarInexistenteEsNotFound(t *testing.T) {
	uc := newCatalog(t)

	assert.ErrorIs(t, uc.DeleteProduct(context.Background(), "PX"), domain.ErrNotFound)
	assert.ErrorIs(t, uc.DeleteWarehouse(context.Background(), "WX"), domain.ErrNotFound)
}
