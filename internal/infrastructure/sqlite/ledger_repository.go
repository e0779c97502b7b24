package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

const eventColumns = `id, product_id, location_id, kind, quantity, note, recorded_at, actor_id,
	COALESCE(idempotency_token, '')`

// LedgerRepo ledger append-only sobre movement_events.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar *sql.DB o *sql.Tx.
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

func (r *LedgerRepo) Append(ctx context.Context, ev *entity.MovementEvent) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO movement_events (product_id, location_id, kind, quantity, note, recorded_at, actor_id, idempotency_token)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ProductID, ev.LocationID, string(ev.Kind), ev.Quantity, ev.Note,
		toMillis(ev.RecordedAt), ev.ActorID, nullable(ev.IdempotencyToken),
	)
	if err != nil {
		return 0, classify(err, ev.Key(), "insert movement event")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err, ev.Key(), "movement event id")
	}
	return id, nil
}

func (r *LedgerRepo) FindByToken(ctx context.Context, token string) (*entity.MovementEvent, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM movement_events WHERE idempotency_token = ?`, token)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err, entity.LevelKey{}, "find movement by token")
	}
	return &ev, nil
}

func (r *LedgerRepo) ListByKey(ctx context.Context, key entity.LevelKey, limit int, beforeID int64) ([]entity.MovementEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+eventColumns+`
		 FROM movement_events
		 WHERE product_id = ? AND location_id = ? AND (? = 0 OR id < ?)
		 ORDER BY id DESC
		 LIMIT ?`,
		key.ProductID, key.LocationID, beforeID, beforeID, limit,
	)
	if err != nil {
		return nil, classify(err, key, "list movements by key")
	}
	return collectEvents(rows, key)
}

func (r *LedgerRepo) ReplayByKey(ctx context.Context, key entity.LevelKey, afterID int64, limit int) ([]entity.MovementEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+eventColumns+`
		 FROM movement_events
		 WHERE product_id = ? AND location_id = ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		key.ProductID, key.LocationID, afterID, limit,
	)
	if err != nil {
		return nil, classify(err, key, "replay movements")
	}
	return collectEvents(rows, key)
}

func (r *LedgerRepo) ListAll(ctx context.Context, afterID int64, limit int) ([]entity.MovementEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM movement_events WHERE id > ? ORDER BY id ASC LIMIT ?`,
		afterID, limit,
	)
	if err != nil {
		return nil, classify(err, entity.LevelKey{}, "list all movements")
	}
	return collectEvents(rows, entity.LevelKey{})
}

func (r *LedgerRepo) ListRecent(ctx context.Context, limit int) ([]entity.MovementEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM movement_events ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, classify(err, entity.LevelKey{}, "list recent movements")
	}
	return collectEvents(rows, entity.LevelKey{})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (entity.MovementEvent, error) {
	var (
		ev         entity.MovementEvent
		kind       string
		recordedAt int64
	)
	err := row.Scan(
		&ev.ID, &ev.ProductID, &ev.LocationID, &kind, &ev.Quantity, &ev.Note,
		&recordedAt, &ev.ActorID, &ev.IdempotencyToken,
	)
	ev.Kind = entity.MovementKind(kind)
	ev.RecordedAt = fromMillis(recordedAt)
	return ev, err
}

func collectEvents(rows *sql.Rows, key entity.LevelKey) ([]entity.MovementEvent, error) {
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
