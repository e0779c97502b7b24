package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

// DefaultStorageTimeout duración máxima de la transacción de una clave.
const DefaultStorageTimeout = 5 * time.Second

// Coordinator ejecuta el trabajo de una clave en su carril y dentro de una transacción.
// Una vez tomado el carril, la transacción corre hasta commit o rollback aunque el
// llamador cancele: nunca queda un evento sin su nivel ni a la inversa.
type Coordinator struct {
	locker         KeyLocker
	tx             TxRunner
	metrics        Metrics
	storageTimeout time.Duration
}

// NewCoordinator construye el coordinador. metrics puede ser nil.
func NewCoordinator(locker KeyLocker, tx TxRunner, metrics Metrics, storageTimeout time.Duration) *Coordinator {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if storageTimeout <= 0 {
		storageTimeout = DefaultStorageTimeout
	}
	return &Coordinator{locker: locker, tx: tx, metrics: metrics, storageTimeout: storageTimeout}
}

// Execute corre fn con el carril de key tomado. Los fallos no tipados salen como ErrStorage.
func (c *Coordinator) Execute(ctx context.Context, key entity.LevelKey, fn func(
	ctx context.Context,
	ledger repository.LedgerRepository,
	levels repository.InventoryLevelRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	release, err := c.locker.Acquire(ctx, key)
	c.metrics.ObserveLaneWait(time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Wrap(domain.ErrBusy, key, err)
		}
		return domain.Classify(err, key)
	}
	defer release()

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.storageTimeout)
	defer cancel()

	return domain.Classify(c.tx.Run(runCtx, fn), key)
}
