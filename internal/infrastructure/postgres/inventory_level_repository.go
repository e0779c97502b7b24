package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

var _ repository.InventoryLevelRepository = (*InventoryLevelRepo)(nil)

// InventoryLevelRepo implementación de InventoryLevelRepository sobre PostgreSQL.
type InventoryLevelRepo struct {
	q Querier
}

// NewInventoryLevelRepository construye el adaptador. Acepta pool o tx (Querier).
func NewInventoryLevelRepository(q Querier) *InventoryLevelRepo {
	return &InventoryLevelRepo{q: q}
}

func (r *InventoryLevelRepo) Get(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error) {
	query := `
		SELECT l.product_id, l.location_id, COALESCE(p.name, ''), l.quantity, l.last_event_id, l.updated_at
		FROM inventory_levels l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.product_id = $1 AND l.location_id = $2`
	l, err := scanLevel(r.q.QueryRow(ctx, query, key.ProductID, key.LocationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err, key, "get inventory level")
	}
	return &l, nil
}

// GetForUpdate crea la fila en cero si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la tx.
// Si la tx termina en rollback la fila vacía desaparece con ella.
func (r *InventoryLevelRepo) GetForUpdate(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error) {
	insert := `
		INSERT INTO inventory_levels (product_id, location_id, quantity, last_event_id, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (product_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, key.ProductID, key.LocationID); err != nil {
		return nil, classify(err, key, "insert inventory level placeholder")
	}

	query := `
		SELECT product_id, location_id, '', quantity, last_event_id, updated_at
		FROM inventory_levels
		WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`
	l, err := scanLevel(r.q.QueryRow(ctx, query, key.ProductID, key.LocationID))
	if err != nil {
		return nil, classify(err, key, "lock inventory level")
	}
	return &l, nil
}

func (r *InventoryLevelRepo) Upsert(ctx context.Context, level *entity.InventoryLevel) error {
	query := `
		INSERT INTO inventory_levels (product_id, location_id, quantity, last_event_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, last_event_id = EXCLUDED.last_event_id, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query,
		level.ProductID, level.LocationID, level.Quantity, level.LastEventID, level.UpdatedAt,
	)
	if err != nil {
		return classify(err, level.Key(), "upsert inventory level")
	}
	return nil
}

func (r *InventoryLevelRepo) Delete(ctx context.Context, key entity.LevelKey) error {
	query := `DELETE FROM inventory_levels WHERE product_id = $1 AND location_id = $2`
	if _, err := r.q.Exec(ctx, query, key.ProductID, key.LocationID); err != nil {
		return classify(err, key, "delete inventory level")
	}
	return nil
}

func (r *InventoryLevelRepo) List(ctx context.Context, filter repository.LevelFilter) ([]entity.InventoryLevel, error) {
	where, args := levelWhere(filter)
	args = append(args, filter.Limit)
	query := `
		SELECT l.product_id, l.location_id, COALESCE(p.name, ''), l.quantity, l.last_event_id, l.updated_at
		FROM inventory_levels l
		LEFT JOIN products p ON p.id = l.product_id` + where + `
		ORDER BY l.updated_at DESC, l.last_event_id DESC
		LIMIT NULLIF($` + strconv.Itoa(len(args)) + `::int, 0)`
	rows, err := r.q.Query(ctx, query, args...)
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
	query := `
		SELECT COUNT(*), COALESCE(SUM(l.quantity), 0)::bigint
		FROM inventory_levels l
		LEFT JOIN products p ON p.id = l.product_id` + where
	var (
		t     repository.LevelTotals
		items int64
	)
	if err := r.q.QueryRow(ctx, query, args...).Scan(&items, &t.Quantity); err != nil {
		return repository.LevelTotals{}, classify(err, entity.LevelKey{LocationID: filter.LocationID}, "total inventory levels")
	}
	t.Items = int(items)
	return t, nil
}

// levelWhere filtros comunes de List y Totals. La búsqueda usa strpos sobre lower() para no escapar comodines.
func levelWhere(filter repository.LevelFilter) (string, []any) {
	where := ` WHERE ($1 = '' OR l.location_id = $1)`
	args := []any{filter.LocationID}
	if filter.HasEvents {
		where += ` AND l.last_event_id > 0`
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, search)
		where += ` AND (strpos(lower(COALESCE(p.name, '')), lower($2)) > 0 OR strpos(lower(l.product_id), lower($2)) > 0)`
	}
	return where, args
}

func scanLevel(row pgx.Row) (entity.InventoryLevel, error) {
	var l entity.InventoryLevel
	var updatedAt time.Time
	err := row.Scan(&l.ProductID, &l.LocationID, &l.ProductName, &l.Quantity, &l.LastEventID, &updatedAt)
	if l.LastEventID > 0 {
		l.UpdatedAt = updatedAt.UTC()
	}
	return l, err
}
