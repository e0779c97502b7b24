package repository

import (
	"context"

	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// LevelFilter filtros de listado de niveles.
type LevelFilter struct {
	LocationID string // vacío = todas las bodegas
	Search     string // subcadena de nombre o id de producto, sin distinguir mayúsculas
	HasEvents  bool   // descarta filas sin movimientos (last_event_id = 0)
	Limit      int    // tope de filas devueltas; 0 = sin tope. No aplica a Totals
}

// LevelTotals agregados del conjunto filtrado completo.
type LevelTotals struct {
	Items    int
	Quantity int64
}

// InventoryLevelRepository define el puerto para consultar/actualizar la proyección por bodega+producto.
// Las escrituras solo se hacen dentro de la transacción del coordinador.
type InventoryLevelRepository interface {
	// Get devuelve el nivel o nil si la clave nunca recibió movimientos.
	Get(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error)
	// GetForUpdate bloquea la fila de la clave hasta el fin de la transacción.
	// Si la fila no existe devuelve un nivel en cero (LastEventID = 0).
	GetForUpdate(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error)
	Upsert(ctx context.Context, level *entity.InventoryLevel) error
	// Delete descarta la fila proyectada (solo reconstrucción).
	Delete(ctx context.Context, key entity.LevelKey) error
	// List ordena por updated_at descendente e incluye el nombre del producto.
	List(ctx context.Context, filter LevelFilter) ([]entity.InventoryLevel, error)
	// Totals cuenta filas y suma cantidades con los mismos filtros que List, sin Limit.
	Totals(ctx context.Context, filter LevelFilter) (LevelTotals, error)
}
