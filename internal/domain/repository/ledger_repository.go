package repository

import (
	"context"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// LedgerRepository puerto del ledger de movimientos. Es append-only: no existe
// ninguna operación de actualización ni de borrado.
type LedgerRepository interface {
	// Append asigna ID y persiste el evento. Devuelve ErrConflict si el token ya fue usado.
	Append(ctx context.Context, event *entity.MovementEvent) (int64, error)
	// FindByToken devuelve el evento registrado con ese token o nil si no existe.
	FindByToken(ctx context.Context, token string) (*entity.MovementEvent, error)
	// ListByKey eventos de una clave en orden de ID descendente; beforeID = 0 empieza por el más reciente.
	ListByKey(ctx context.Context, key entity.LevelKey, limit int, beforeID int64) ([]entity.MovementEvent, error)
	// ReplayByKey eventos de una clave en orden ascendente a partir de afterID (exclusivo).
	ReplayByKey(ctx context.Context, key entity.LevelKey, afterID int64, limit int) ([]entity.MovementEvent, error)
	// ListAll cursor global ascendente usado por la reconstrucción.
	ListAll(ctx context.Context, afterID int64, limit int) ([]entity.MovementEvent, error)
	// ListRecent últimos movimientos de todas las claves, más reciente primero.
	ListRecent(ctx context.Context, limit int) ([]entity.MovementEvent, error)
}
