package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

// CatalogUseCase alta y baja de las referencias que el ledger valida. Nombre, precio y demás
// atributos los administra la aplicación de catálogo.
type CatalogUseCase struct {
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
}

// NewCatalogUseCase construye el caso de uso.
func NewCatalogUseCase(products repository.ProductRepository, warehouses repository.WarehouseRepository) *CatalogUseCase {
	return &CatalogUseCase{products: products, warehouses: warehouses}
}

// CreateProduct registra un producto. Sin id se genera un UUID.
func (uc *CatalogUseCase) CreateProduct(ctx context.Context, id, name string) (*entity.Product, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" {
		id = uuid.New().String()
	}
	if name == "" {
		return nil, domain.NewError(domain.ErrValidation, entity.LevelKey{ProductID: id}, "el nombre es obligatorio")
	}
	product := &entity.Product{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	if err := uc.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// CreateWarehouse registra una bodega. Sin id se genera un UUID.
func (uc *CatalogUseCase) CreateWarehouse(ctx context.Context, id, name, address string) (*entity.Warehouse, error) {
	id, name = strings.TrimSpace(id), strings.TrimSpace(name)
	if id == "" {
		id = uuid.New().String()
	}
	if name == "" {
		return nil, domain.NewError(domain.ErrValidation, entity.LevelKey{LocationID: id}, "el nombre es obligatorio")
	}
	now := time.Now().UTC()
	warehouse := &entity.Warehouse{
		ID:        id,
		Name:      name,
		Address:   strings.TrimSpace(address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.warehouses.Create(ctx, warehouse); err != nil {
		return nil, err
	}
	return warehouse, nil
}

// DeleteProduct elimina un producto; ErrConflict si el ledger lo referencia.
func (uc *CatalogUseCase) DeleteProduct(ctx context.Context, id string) error {
	return uc.products.Delete(ctx, strings.TrimSpace(id))
}

// DeleteWarehouse elimina una bodega; ErrConflict si el ledger la referencia.
func (uc *CatalogUseCase) DeleteWarehouse(ctx context.Context, id string) error {
	return uc.warehouses.Delete(ctx, strings.TrimSpace(id))
}
