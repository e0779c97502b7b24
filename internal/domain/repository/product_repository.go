package repository

import (
	"context"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// Delete falla con ErrConflict si algún movimiento referencia el producto.
	Delete(ctx context.Context, id string) error
}
