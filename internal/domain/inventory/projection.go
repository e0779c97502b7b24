package inventory

import "github.com/jhoicas/stocker-ledger/internal/domain/entity"

// Apply pliega un evento sobre el nivel (servicio de dominio, función pura).
// IN suma, OUT resta, ADJUST reemplaza la cantidad sin mirar el valor previo.
// Si el evento ya fue plegado (ID <= LastEventID) devuelve el nivel sin cambios.
func Apply(level entity.InventoryLevel, event entity.MovementEvent) entity.InventoryLevel {
	if event.ID <= level.LastEventID {
		return level
	}
	switch event.Kind {
	case entity.MovementIN:
		level.Quantity += event.Quantity
	case entity.MovementOUT:
		level.Quantity -= event.Quantity
	case entity.MovementADJUST:
		level.Quantity = event.Quantity
	}
	level.ProductID = event.ProductID
	level.LocationID = event.LocationID
	level.LastEventID = event.ID
	level.UpdatedAt = event.RecordedAt
	return level
}

// Fold reconstruye el nivel de una clave desde cero con los eventos en orden de ID.
func Fold(key entity.LevelKey, events []entity.MovementEvent) entity.InventoryLevel {
	level := entity.InventoryLevel{ProductID: key.ProductID, LocationID: key.LocationID}
	for _, ev := range events {
		level = Apply(level, ev)
	}
	return level
}
