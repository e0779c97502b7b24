package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error la transacción se descarta completa: ni evento ni nivel quedan escritos.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		ctx context.Context,
		ledger repository.LedgerRepository,
		levels repository.InventoryLevelRepository,
	) error) error
}

// KeyLocker serializa el trabajo por clave (carril). Claves distintas no se bloquean entre sí.
// Acquire devuelve ErrBusy si el carril no se libera dentro del tiempo configurado.
type KeyLocker interface {
	Acquire(ctx context.Context, key entity.LevelKey) (release func(), err error)
}

// LevelNotifier publica "cambió el nivel de la clave K" después del commit.
type LevelNotifier interface {
	LevelChanged(ctx context.Context, change entity.LevelChange) error
}

// Metrics instrumentación del motor.
type Metrics interface {
	ObserveSubmit(kind, outcome string, d time.Duration)
	ObserveLaneWait(d time.Duration)
	ObserveDrift(key entity.LevelKey)
}

// NopMetrics descarta todas las observaciones.
type NopMetrics struct{}

func (NopMetrics) ObserveSubmit(string, string, time.Duration) {}
func (NopMetrics) ObserveLaneWait(time.Duration)               {}
func (NopMetrics) ObserveDrift(entity.LevelKey)                {}

// NopNotifier no publica nada.
type NopNotifier struct{}

func (NopNotifier) LevelChanged(context.Context, entity.LevelChange) error { return nil }
