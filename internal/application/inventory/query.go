package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/repository"
)

// Límites de las lecturas.
const (
	DefaultLevelLimit   = 500
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 500
	DefaultRecentLimit  = 50
)

// LevelQuery filtros del listado de niveles.
type LevelQuery struct {
	LocationID string
	Search     string // coincide con nombre o id de producto, sin distinguir mayúsculas
	Limit      int
}

// LevelList página de niveles con totales del conjunto filtrado.
type LevelList struct {
	Items         []entity.InventoryLevel
	TotalItems    int
	TotalQuantity int64
}

// QueryUseCase lecturas puras de la proyección y del ledger. No toma carriles.
type QueryUseCase struct {
	ledger repository.LedgerRepository
	levels repository.InventoryLevelRepository
	policy inventory.Policy
}

// NewQueryUseCase construye el caso de uso de consultas.
func NewQueryUseCase(ledger repository.LedgerRepository, levels repository.InventoryLevelRepository, policy inventory.Policy) *QueryUseCase {
	return &QueryUseCase{ledger: ledger, levels: levels, policy: policy}
}

// GetLevel nivel actual de la clave; ErrNotFound si nunca recibió movimientos.
func (uc *QueryUseCase) GetLevel(ctx context.Context, key entity.LevelKey) (*entity.InventoryLevel, error) {
	key = uc.policy.NormalizeKey(key)
	if key.ProductID == "" {
		return nil, domain.NewError(domain.ErrValidation, key, "product_id es obligatorio")
	}
	level, err := uc.levels.Get(ctx, key)
	if err != nil {
		return nil, domain.Classify(err, key)
	}
	if level == nil || !level.Exists() {
		return nil, domain.NewError(domain.ErrNotFound, key, "sin movimientos para la clave")
	}
	return level, nil
}

// ListLevels niveles ordenados por última actualización, con totales del conjunto filtrado.
func (uc *QueryUseCase) ListLevels(ctx context.Context, q LevelQuery) (*LevelList, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLevelLimit
	}
	location := strings.TrimSpace(q.LocationID)
	if !uc.policy.MultiLocation {
		location = ""
	}

	filter := repository.LevelFilter{
		LocationID: location,
		Search:     strings.TrimSpace(q.Search),
		HasEvents:  true,
	}
	totals, err := uc.levels.Totals(ctx, filter)
	if err != nil {
		return nil, domain.Classify(err, entity.LevelKey{LocationID: location})
	}
	filter.Limit = q.Limit
	items, err := uc.levels.List(ctx, filter)
	if err != nil {
		return nil, domain.Classify(err, entity.LevelKey{LocationID: location})
	}
	return &LevelList{Items: items, TotalItems: totals.Items, TotalQuantity: totals.Quantity}, nil
}

// GetHistory eventos de la clave, más reciente primero. beforeID pagina hacia atrás.
func (uc *QueryUseCase) GetHistory(ctx context.Context, key entity.LevelKey, limit int, beforeID int64) ([]entity.MovementEvent, error) {
	key = uc.policy.NormalizeKey(key)
	if key.ProductID == "" {
		return nil, domain.NewError(domain.ErrValidation, key, "product_id es obligatorio")
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	events, err := uc.ledger.ListByKey(ctx, key, limit, beforeID)
	if err != nil {
		return nil, domain.Classify(err, key)
	}
	return events, nil
}

// ListRecentMovements últimos movimientos de todas las claves.
func (uc *QueryUseCase) ListRecentMovements(ctx context.Context, limit int) ([]entity.MovementEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	events, err := uc.ledger.ListRecent(ctx, limit)
	if err != nil {
		return nil, domain.Classify(err, entity.LevelKey{})
	}
	return events, nil
}
