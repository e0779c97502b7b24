package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

var _ repository.InventoryLevelRepository = (*InventoryLevelRepo)(nil)

// InventoryLevelRepo proyección por producto+bodega sobre SQLite.
type InventoryLevelRepo struct {
	q Querier
}

// NewInventoryLevelRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewInventoryLevelRepository(q Querier) *InventoryLevelRepo {
	return &InventoryLevelRepo{q: q}
}

const levelSelect = `
	SELECT l.product_id, l.location_id, COALESCE(p.name, ''), l.quantity, l.last_event_id, l.updated_at
	FROM inventory_levels l
	LEFT JOIN products p ON p.id = l.product_id`

func (r *InventoryLevelRepo) Get(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error) {
	row := r.q.QueryRowContext(ctx, levelSelect+` WHERE l.product_id = ? AND l.location_id = ?`,
		key.ProductID, key.LocationID)
	l, err := scanLevel(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err, key, "get inventory level")
	}
	return &l, nil
}

// GetForUpdate en SQLite la transacción IMMEDIATE ya tiene el lock de escritura de toda la base,
// por lo que basta con leer la fila (o un nivel en cero si no existe).
func (r *InventoryLevelRepo) GetForUpdate(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error) {
	l, err := r.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return &entity.InventoryLevel{ProductID: key.ProductID, LocationID: key.LocationID}, nil
	}
	l.ProductName = ""
	return l, nil
}

func (r *InventoryLevelRepo) Upsert(ctx context.Context, level *entity.InventoryLevel) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO inventory_levels (product_id, location_id, quantity, last_event_id, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (product_id, location_id)
		 DO UPDATE SET quantity = excluded.quantity, last_event_id = excluded.last_event_id, updated_at = excluded.updated_at`,
		level.ProductID, level.LocationID, level.Quantity, level.LastEventID, toMillis(level.UpdatedAt),
	)
	if err != nil {
		return classify(err, level.Key(), "upsert inventory level")
	}
	return nil
}

func (r *InventoryLevelRepo) Delete(ctx context.Context, key entity.LevelKey) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM inventory_levels WHERE product_id = ? AND location_id = ?`,
		key.ProductID, key.LocationID)
	if err != nil {
		return classify(err, key, "delete inventory level")
	}
	return nil
}

func (r *InventoryLevelRepo) List(ctx context.Context, filter repository.LevelFilter) ([]entity.InventoryLevel, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // sin tope
	}
	where, args := levelWhere(filter)
	rows, err := r.q.QueryContext(ctx,
		levelSelect+where+`
		 ORDER BY l.updated_at DESC, l.last_event_id DESC
		 LIMIT ?`,
		append(args, limit)...,
	)
	if err != nil {
		return nil, classify(err, entity.LevelKey{LocationID: filter.LocationID}, "list inventory levels")
	}
	defer rows.Close()
	list := make([]entity.InventoryLevel, 0)
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, classify(err, entity.LevelKey{}, "scan inventory level")
		}
		list = append(list, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, entity.LevelKey{}, "iterate inventory levels")
	}
	return list, nil
}

func (r *InventoryLevelRepo) Totals(ctx context.Context, filter repository.LevelFilter) (repository.LevelTotals, error) {
	where, args := levelWhere(filter)
	var t repository.LevelTotals
	err := r.q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(l.quantity), 0)
		FROM inventory_levels l
		LEFT JOIN products p ON p.id = l.product_id`+where,
		args...,
	).Scan(&t.Items, &t.Quantity)
	if err != nil {
		return repository.LevelTotals{}, classify(err, entity.LevelKey{LocationID: filter.LocationID}, "total inventory levels")
	}
	return t, nil
}

// levelWhere filtros comunes de List y Totals. La búsqueda compara con casefold (ver funcs.go).
func levelWhere(filter repository.LevelFilter) (string, []any) {
	where := ` WHERE (? = '' OR l.location_id = ?)`
	args := []any{filter.LocationID, filter.LocationID}
	if filter.HasEvents {
		where += ` AND l.last_event_id > 0`
	}
	if search := foldString(strings.TrimSpace(filter.Search)); search != "" {
		where += ` AND (instr(casefold(COALESCE(p.name, '')), ?) > 0 OR instr(casefold(l.product_id), ?) > 0)`
		args = append(args, search, search)
	}
	return where, args
}

func scanLevel(row rowScanner) (entity.InventoryLevel, error) {
	var (
		l         entity.InventoryLevel
		updatedAt int64
	)
	err := row.Scan(&l.ProductID, &l.LocationID, &l.ProductName, &l.Quantity, &l.LastEventID, &updatedAt)
	if l.LastEventID > 0 {
		l.UpdatedAt = fromMillis(updatedAt)
	} else {
		l.UpdatedAt = time.Time{}
	}
	return l, err
}
