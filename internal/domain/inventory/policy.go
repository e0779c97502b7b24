package inventory

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// MaxNoteLength longitud máxima (en caracteres) de la nota libre.
const MaxNoteLength = 500

// Policy reglas configurables del validador.
type Policy struct {
	// AllowNegativeStock permite que un OUT deje la cantidad por debajo de cero.
	AllowNegativeStock bool
	// MultiLocation exige bodega en cada movimiento; en false todas las claves usan bodega vacía.
	MultiLocation bool
}

// NormalizeKey ajusta una clave de lectura al modo de bodegas configurado.
func (p Policy) NormalizeKey(key entity.LevelKey) entity.LevelKey {
	key.ProductID = strings.TrimSpace(key.ProductID)
	key.LocationID = strings.TrimSpace(key.LocationID)
	if !p.MultiLocation {
		key.LocationID = ""
	}
	return key
}

// Normalize limpia espacios de los campos de texto de la intención.
func Normalize(in entity.MovementIntent) entity.MovementIntent {
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.LocationID = strings.TrimSpace(in.LocationID)
	in.Kind = entity.MovementKind(strings.ToUpper(strings.TrimSpace(string(in.Kind))))
	in.Note = strings.TrimSpace(in.Note)
	in.IdempotencyToken = strings.TrimSpace(in.IdempotencyToken)
	return in
}

// ValidateIntent chequeos sin estado de una intención (no consulta almacenamiento).
func ValidateIntent(in entity.MovementIntent, p Policy) error {
	invalid := func(detail string) error {
		return domain.NewError(domain.ErrValidation, in.Key(), detail).WithIntent(in)
	}
	if in.ProductID == "" {
		return invalid("product_id es obligatorio")
	}
	if p.MultiLocation && in.LocationID == "" {
		return invalid("warehouse_id es obligatorio")
	}
	if !p.MultiLocation && in.LocationID != "" {
		return invalid("warehouse_id no se admite en modo de una sola bodega")
	}
	switch in.Kind {
	case entity.MovementIN, entity.MovementOUT:
		if in.Quantity <= 0 {
			return invalid("la cantidad debe ser un entero positivo")
		}
	case entity.MovementADJUST:
		if in.Quantity < 0 {
			return invalid("la cantidad final no puede ser negativa")
		}
	default:
		return invalid(fmt.Sprintf("tipo de movimiento desconocido %q", in.Kind))
	}
	if utf8.RuneCountInString(in.Note) > MaxNoteLength {
		return invalid(fmt.Sprintf("la nota supera %d caracteres", MaxNoteLength))
	}
	return nil
}

// CheckStock rama de suficiencia de stock. Debe evaluarse con el nivel leído
// bajo el bloqueo de la clave.
func CheckStock(level entity.InventoryLevel, in entity.MovementIntent, p Policy) error {
	if in.Kind != entity.MovementOUT || p.AllowNegativeStock {
		return nil
	}
	if level.Quantity < in.Quantity {
		return domain.NewError(domain.ErrInsufficientStock, in.Key(),
			fmt.Sprintf("disponible %d, solicitado %d", level.Quantity, in.Quantity)).WithIntent(in)
	}
	return nil
}
