package entity

import "time"

// MovementKind tipo de movimiento de inventario.
type MovementKind string

const (
	MovementIN     MovementKind = "IN"     // entrada: suma
	MovementOUT    MovementKind = "OUT"    // salida: resta
	MovementADJUST MovementKind = "ADJUST" // ajuste: cantidad final absoluta, no es delta
)

// Valid indica si el tipo es uno de los admitidos por el ledger.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementIN, MovementOUT, MovementADJUST:
		return true
	}
	return false
}

// MovementEvent evento inmutable del ledger. El orden total lo define ID.
type MovementEvent struct {
	ID               int64
	ProductID        string
	LocationID       string // vacío en modo de una sola bodega
	Kind             MovementKind
	Quantity         int64 // delta positivo para IN/OUT; cantidad absoluta para ADJUST
	Note             string
	RecordedAt       time.Time
	ActorID          string
	IdempotencyToken string
}

// Key devuelve la clave de proyección del evento.
func (e MovementEvent) Key() LevelKey {
	return LevelKey{ProductID: e.ProductID, LocationID: e.LocationID}
}

// MovementIntent solicitud de movimiento antes de ser admitida en el ledger.
type MovementIntent struct {
	ProductID        string
	LocationID       string
	Kind             MovementKind
	Quantity         int64
	Note             string
	IdempotencyToken string
	ActorID          string
}

// Key devuelve la clave de proyección afectada por la intención.
func (i MovementIntent) Key() LevelKey {
	return LevelKey{ProductID: i.ProductID, LocationID: i.LocationID}
}

// SameEffect indica si un evento ya registrado corresponde a esta misma intención
// (misma clave, tipo y cantidad). Se usa al reenviar un token de idempotencia.
func (i MovementIntent) SameEffect(e MovementEvent) bool {
	return i.Key() == e.Key() && i.Kind == e.Kind && i.Quantity == e.Quantity
}
