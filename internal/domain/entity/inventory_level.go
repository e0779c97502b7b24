package entity

import "time"

// LevelKey clave de la proyección: producto + bodega.
type LevelKey struct {
	ProductID  string
	LocationID string
}

// String representación estable usada para carriles, locks y claves de mensajes.
func (k LevelKey) String() string {
	return k.ProductID + ":" + k.LocationID
}

// InventoryLevel representa el stock actual de un producto en una bodega.
// Es derivado: siempre igual al fold de los movimientos de su clave en orden de ID.
type InventoryLevel struct {
	ProductID   string
	LocationID  string
	ProductName string // solo lectura, viene del catálogo de productos
	Quantity    int64
	LastEventID int64
	UpdatedAt   time.Time
}

// Key devuelve la clave del nivel.
func (l InventoryLevel) Key() LevelKey {
	return LevelKey{ProductID: l.ProductID, LocationID: l.LocationID}
}

// Exists indica si algún evento fue plegado en este nivel.
func (l InventoryLevel) Exists() bool {
	return l.LastEventID > 0
}

// LevelChange notificación "cambió el nivel de la clave K" para invalidar cachés.
type LevelChange struct {
	Key         LevelKey
	Kind        MovementKind
	Quantity    int64
	LastEventID int64
	ChangedAt   time.Time
}
