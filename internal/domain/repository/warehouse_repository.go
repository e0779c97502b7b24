package repository

import (
	"context"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Create(ctx context.Context, warehouse *entity.Warehouse) error
	// GetByID devuelve nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Warehouse, error)
	// Delete falla con ErrConflict si algún movimiento referencia la bodega.
	Delete(ctx context.Context, id string) error
}
