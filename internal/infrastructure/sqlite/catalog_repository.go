package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

var (
	_ repository.ProductRepository   = (*ProductRepo)(nil)
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
)

// ProductRepo catálogo de productos sobre SQLite.
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador.
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO products (id, name, created_at) VALUES (?, ?, ?)`,
		product.ID, product.Name, toMillis(product.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrConflict, entity.LevelKey{ProductID: product.ID}, "el producto ya existe")
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	var (
		p         entity.Product
		createdAt int64
	)
	err := r.q.QueryRowContext(ctx, `SELECT id, name, created_at FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// Delete falla con ErrConflict si la FK con ON DELETE RESTRICT lo impide.
func (r *ProductRepo) Delete(ctx context.Context, id string) error {
	key := entity.LevelKey{ProductID: id}
	res, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.Wrap(domain.ErrConflict, key, fmt.Errorf("delete product: %w", err))
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewError(domain.ErrNotFound, key, "producto no registrado")
	}
	return nil
}

// WarehouseRepo catálogo de bodegas sobre SQLite.
type WarehouseRepo struct {
	q Querier
}

// NewWarehouseRepository construye el adaptador.
func NewWarehouseRepository(q Querier) *WarehouseRepo {
	return &WarehouseRepo{q: q}
}

func (r *WarehouseRepo) Create(ctx context.Context, w *entity.Warehouse) error {
	now := time.Now().UTC()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	if w.UpdatedAt.IsZero() {
		w.UpdatedAt = w.CreatedAt
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO warehouses (id, name, address, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Address, toMillis(w.CreatedAt), toMillis(w.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.ErrConflict, entity.LevelKey{LocationID: w.ID}, "la bodega ya existe")
		}
		return fmt.Errorf("insert warehouse: %w", err)
	}
	return nil
}

func (r *WarehouseRepo) GetByID(ctx context.Context, id string) (*entity.Warehouse, error) {
	var (
		w                    entity.Warehouse
		createdAt, updatedAt int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, name, address, created_at, updated_at FROM warehouses WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &w.Address, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	w.CreatedAt = fromMillis(createdAt)
	w.UpdatedAt = fromMillis(updatedAt)
	return &w, nil
}

// Delete elimina la bodega solo si ningún movimiento la referencia.
func (r *WarehouseRepo) Delete(ctx context.Context, id string) error {
	key := entity.LevelKey{LocationID: id}
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM warehouses
		 WHERE id = ?
		   AND NOT EXISTS (SELECT 1 FROM movement_events WHERE location_id = ?)
		   AND NOT EXISTS (SELECT 1 FROM inventory_levels WHERE location_id = ?)`,
		id, id, id,
	)
	if err != nil {
		return fmt.Errorf("delete warehouse: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.NewError(domain.ErrNotFound, key, "bodega no registrada")
	}
	return domain.NewError(domain.ErrConflict, key, "la bodega tiene movimientos registrados")
}
