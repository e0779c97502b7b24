package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const eventColumns = `id, product_id, location_id, kind, quantity, note, recorded_at, actor_id,
	COALESCE(idempotency_token, '')`

// LedgerRepo implementación del ledger append-only sobre movement_events.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append inserta el evento y devuelve el ID asignado por la secuencia.
func (r *LedgerRepo) Append(ctx context.Context, ev *entity.MovementEvent) (int64, error) {
	query := `
		INSERT INTO movement_events (product_id, location_id, kind, quantity, note, recorded_at, actor_id, idempotency_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	var id int64
	err := r.q.QueryRow(ctx, query,
		ev.ProductID, ev.LocationID, string(ev.Kind), ev.Quantity, ev.Note,
		ev.RecordedAt, ev.ActorID, nullable(ev.IdempotencyToken),
	).Scan(&id)
	if err != nil {
		return 0, classify(err, ev.Key(), "insert movement event")
	}
	return id, nil
}

// FindByToken busca el evento que consumió el token.
func (r *LedgerRepo) FindByToken(ctx context.Context, token string) (*entity.MovementEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM movement_events WHERE idempotency_token = $1`
	ev, err := scanEvent(r.q.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err, entity.LevelKey{}, "find movement by token")
	}
	return &ev, nil
}

// ListByKey historial de una clave, más reciente primero.
func (r *LedgerRepo) ListByKey(ctx context.Context, key entity.LevelKey, limit int, beforeID int64) ([]entity.MovementEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM movement_events
		WHERE product_id = $1 AND location_id = $2 AND ($3::bigint = 0 OR id < $3)
		ORDER BY id DESC
		LIMIT $4`
	rows, err := r.q.Query(ctx, query, key.ProductID, key.LocationID, beforeID, limit)
	if err != nil {
		return nil, classify(err, key, "list movements by key")
	}
	return collectEvents(rows, key)
}

// ReplayByKey eventos de una clave en orden ascendente desde afterID.
func (r *LedgerRepo) ReplayByKey(ctx context.Context, key entity.LevelKey, afterID int64, limit int) ([]entity.MovementEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM movement_events
		WHERE product_id = $1 AND location_id = $2 AND id > $3
		ORDER BY id ASC
		LIMIT $4`
	rows, err := r.q.Query(ctx, query, key.ProductID, key.LocationID, afterID, limit)
	if err != nil {
		return nil, classify(err, key, "replay movements")
	}
	return collectEvents(rows, key)
}

// ListAll cursor global ascendente.
func (r *LedgerRepo) ListAll(ctx context.Context, afterID int64, limit int) ([]entity.MovementEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM movement_events
		WHERE id > $1
		ORDER BY id ASC
		LIMIT $2`
	rows, err := r.q.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, classify(err, entity.LevelKey{}, "list all movements")
	}
	return collectEvents(rows, entity.LevelKey{})
}

// ListRecent últimos movimientos de todas las claves.
func (r *LedgerRepo) ListRecent(ctx context.Context, limit int) ([]entity.MovementEvent, error) {
	query := `SELECT ` + eventColumns + `
		FROM movement_events
		ORDER BY id DESC
		LIMIT $1`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, classify(err, entity.LevelKey{}, "list recent movements")
	}
	return collectEvents(rows, entity.LevelKey{})
}

func scanEvent(row pgx.Row) (entity.MovementEvent, error) {
	var ev entity.MovementEvent
	var kind string
	err := row.Scan(
		&ev.ID, &ev.ProductID, &ev.LocationID, &kind, &ev.Quantity, &ev.Note,
		&ev.RecordedAt, &ev.ActorID, &ev.IdempotencyToken,
	)
	ev.Kind = entity.MovementKind(kind)
	ev.RecordedAt = ev.RecordedAt.UTC()
	return ev, err
}

func collectEvents(rows pgx.Rows, key entity.LevelKey) ([]entity.MovementEvent, error) {
	defer rows.Close()
	list := make([]entity.MovementEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, classify(err, key, "scan movement event")
		}
		list = append(list, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, key, "iterate movement events")
	}
	return list, nil
}
