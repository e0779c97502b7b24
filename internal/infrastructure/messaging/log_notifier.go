package messaging

import (
	"context"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

var _ inventory.LevelNotifier = (*LogNotifier)(nil)

// LogNotifier registra los cambios de nivel cuando no hay broker configurado.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier construye el notificador.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("level_changed")}
}

func (n *LogNotifier) LevelChanged(_ context.Context, change entity.LevelChange) error {
	n.log.Info().
		Str("product_id", change.Key.ProductID).
		Str("warehouse_id", change.Key.LocationID).
		Str("movement_type", string(change.Kind)).
		Int64("quantity", change.Quantity).
		Int64("last_event_id", change.LastEventID).
		Time("changed_at", change.ChangedAt).
		Msg("nivel de inventario cambiado")
	return nil
}
