package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción SQLite (BEGIN IMMEDIATE).
type TxRunner struct {
	sqlDB *sql.DB
}

// NewTxRunner construye el runner sobre la base del store.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{sqlDB: s.sqlDB}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(
	ctx context.Context,
	ledger repository.LedgerRepository,
	levels repository.InventoryLevelRepository,
) error) error {
	tx, err := r.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, entity.LevelKey{}, "begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, NewLedgerRepository(tx), NewInventoryLevelRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.Wrap(domain.ErrStorage, entity.LevelKey{}, fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}
