package dto

import (
	"time"

	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// SubmitMovementRequest body para POST /api/inventory/movements.
// El token también puede llegar en el header Idempotency-Key.
type SubmitMovementRequest struct {
	ProductID        string `json:"product_id"`
	WarehouseID      string `json:"warehouse_id,omitempty"`
	MovementType     string `json:"movement_type"` // IN, OUT, ADJUST
	Quantity         int64  `json:"quantity"`
	Notes            string `json:"notes,omitempty"`
	IdempotencyToken string `json:"idempotency_token,omitempty"`
}

// Intent convierte el body en la intención del motor.
func (r SubmitMovementRequest) Intent(actorID string) entity.MovementIntent {
	return entity.MovementIntent{
		ProductID:        r.ProductID,
		LocationID:       r.WarehouseID,
		Kind:             entity.MovementKind(r.MovementType),
		Quantity:         r.Quantity,
		Note:             r.Notes,
		IdempotencyToken: r.IdempotencyToken,
		ActorID:          actorID,
	}
}

// SubmitMovementResponse respuesta de un movimiento admitido o repetido.
type SubmitMovementResponse struct {
	EventID   int64         `json:"event_id"`
	Duplicate bool          `json:"duplicate"`
	Level     LevelResponse `json:"level"`
}

// LevelResponse nivel actual de un producto en una bodega.
type LevelResponse struct {
	ProductID   string     `json:"product_id"`
	WarehouseID string     `json:"warehouse_id,omitempty"`
	ProductName string     `json:"product_name,omitempty"`
	Quantity    int64      `json:"quantity"`
	LastEventID int64      `json:"last_event_id"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// LevelListResponse listado de niveles con totales del conjunto filtrado.
type LevelListResponse struct {
	Items         []LevelResponse `json:"items"`
	TotalItems    int             `json:"total_items"`
	TotalQuantity int64           `json:"total_quantity"`
}

// MovementResponse evento del ledger.
type MovementResponse struct {
	ID               int64     `json:"id"`
	ProductID        string    `json:"product_id"`
	WarehouseID      string    `json:"warehouse_id,omitempty"`
	MovementType     string    `json:"movement_type"`
	Quantity         int64     `json:"quantity"`
	Notes            string    `json:"notes,omitempty"`
	RecordedAt       time.Time `json:"recorded_at"`
	ActorID          string    `json:"actor_id,omitempty"`
	IdempotencyToken string    `json:"idempotency_token,omitempty"`
}

// MovementListResponse página de eventos; NextBeforeID es el cursor de la siguiente página (0 = fin).
type MovementListResponse struct {
	Items        []MovementResponse `json:"items"`
	NextBeforeID int64              `json:"next_before_id,omitempty"`
}

// DriftResponse diferencia entre el nivel guardado y el ledger.
type DriftResponse struct {
	ProductID           string `json:"product_id"`
	WarehouseID         string `json:"warehouse_id,omitempty"`
	Stored              int64  `json:"stored"`
	StoredLastEventID   int64  `json:"stored_last_event_id"`
	Replayed            int64  `json:"replayed"`
	ReplayedLastEventID int64  `json:"replayed_last_event_id"`
	InSync              bool   `json:"in_sync"`
}

// RebuildRequest body para POST /api/inventory/rebuild. Sin product_id reconstruye todo.
type RebuildRequest struct {
	ProductID   string `json:"product_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
}

// RebuildResponse resultado de la reconstrucción.
type RebuildResponse struct {
	Keys  int            `json:"keys"`
	Level *LevelResponse `json:"level,omitempty"`
}

// ToLevelResponse mapea un nivel del dominio.
func ToLevelResponse(l entity.InventoryLevel) LevelResponse {
	out := LevelResponse{
		ProductID:   l.ProductID,
		WarehouseID: l.LocationID,
		ProductName: l.ProductName,
		Quantity:    l.Quantity,
		LastEventID: l.LastEventID,
	}
	if l.Exists() {
		t := l.UpdatedAt
		out.UpdatedAt = &t
	}
	return out
}

// ToLevelListResponse mapea el listado con sus totales.
func ToLevelListResponse(list *inventory.LevelList) LevelListResponse {
	out := LevelListResponse{
		Items:         make([]LevelResponse, 0, len(list.Items)),
		TotalItems:    list.TotalItems,
		TotalQuantity: list.TotalQuantity,
	}
	for _, l := range list.Items {
		out.Items = append(out.Items, ToLevelResponse(l))
	}
	return out
}

// ToMovementListResponse mapea eventos; si la página vino llena deja el cursor al último id.
func ToMovementListResponse(events []entity.MovementEvent, limit int) MovementListResponse {
	out := MovementListResponse{Items: make([]MovementResponse, 0, len(events))}
	for _, e := range events {
		out.Items = append(out.Items, MovementResponse{
			ID:               e.ID,
			ProductID:        e.ProductID,
			WarehouseID:      e.LocationID,
			MovementType:     string(e.Kind),
			Quantity:         e.Quantity,
			Notes:            e.Note,
			RecordedAt:       e.RecordedAt,
			ActorID:          e.ActorID,
			IdempotencyToken: e.IdempotencyToken,
		})
	}
	if limit > 0 && len(events) == limit {
		out.NextBeforeID = events[len(events)-1].ID
	}
	return out
}

// ToDriftResponse mapea el resultado de Verify.
func ToDriftResponse(d inventory.Drift) DriftResponse {
	return DriftResponse{
		ProductID:           d.Key.ProductID,
		WarehouseID:         d.Key.LocationID,
		Stored:              d.Stored,
		StoredLastEventID:   d.StoredLastEventID,
		Replayed:            d.Replayed,
		ReplayedLastEventID: d.ReplayedLastEventID,
		InSync:              d.InSync,
	}
}
