package http

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stocker-ledger/internal/application/dto"
	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	"github.com/jhoicas/stocker-ledger/pkg/logger"
)

// HeaderIdempotencyKey header alternativo para el token de idempotencia.
const HeaderIdempotencyKey = "Idempotency-Key"

// retryAfterSeconds sugerencia de espera para BUSY / STORAGE_UNAVAILABLE.
const retryAfterSeconds = "1"

// InventoryHandler maneja las peticiones HTTP del ledger de inventario (protegido).
type InventoryHandler struct {
	submit  *inventory.SubmitMovementUseCase
	query   *inventory.QueryUseCase
	rebuild *inventory.RebuildUseCase
	log     *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(
	submit *inventory.SubmitMovementUseCase,
	query *inventory.QueryUseCase,
	rebuild *inventory.RebuildUseCase,
	log *logger.Logger,
) *InventoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &InventoryHandler{submit: submit, query: query, rebuild: rebuild, log: log.Named("http")}
}

// SubmitMovement godoc
// @Summary      Registrar movimiento de inventario
// @Description  IN suma, OUT resta y ADJUST fija la cantidad absoluta. Un token de idempotencia
// @Description  repetido devuelve el evento original con duplicate=true.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string                     false  "token de idempotencia"
// @Param        body             body    dto.SubmitMovementRequest  true   "product_id, warehouse_id, movement_type, quantity"
// @Success      201  {object}  dto.SubmitMovementResponse
// @Success      200  {object}  dto.SubmitMovementResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) SubmitMovement(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.SubmitMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if header := strings.TrimSpace(c.Get(HeaderIdempotencyKey)); header != "" {
		if in.IdempotencyToken != "" && in.IdempotencyToken != header {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "Idempotency-Key no coincide con idempotency_token"})
		}
		in.IdempotencyToken = header
	}

	res, err := h.submit.Submit(c.Context(), in.Intent(userID))
	if err != nil {
		return h.writeError(c, err)
	}
	status := fiber.StatusCreated
	if res.Duplicate {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(dto.SubmitMovementResponse{
		EventID:   res.EventID,
		Duplicate: res.Duplicate,
		Level:     dto.ToLevelResponse(res.Level),
	})
}

// ListLevels godoc
// @Summary      Niveles actuales de inventario
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        warehouse_id  query  string  false  "filtrar por bodega"
// @Param        search        query  string  false  "nombre o id de producto, sin distinguir mayúsculas"
// @Param        limit         query  int     false  "máximo de filas (500 por defecto)"
// @Success      200  {object}  dto.LevelListResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/levels [get]
func (h *InventoryHandler) ListLevels(c *fiber.Ctx) error {
	list, err := h.query.ListLevels(c.Context(), inventory.LevelQuery{
		LocationID: c.Query("warehouse_id"),
		Search:     c.Query("search"),
		Limit:      c.QueryInt("limit", 0),
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ToLevelListResponse(list))
}

// GetLevel godoc
// @Summary      Nivel de un producto en una bodega
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "producto"
// @Param        warehouse_id  query  string  false  "bodega (obligatoria en modo multi-bodega)"
// @Success      200  {object}  dto.LevelResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/levels/{product_id} [get]
func (h *InventoryHandler) GetLevel(c *fiber.Ctx) error {
	level, err := h.query.GetLevel(c.Context(), keyFrom(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ToLevelResponse(*level))
}

// GetHistory godoc
// @Summary      Historial de movimientos de una clave
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    path   string  true   "producto"
// @Param        warehouse_id  query  string  false  "bodega"
// @Param        limit         query  int     false  "tamaño de página (100 por defecto, máx 500)"
// @Param        before_id     query  int     false  "cursor: eventos con id menor"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory/levels/{product_id}/history [get]
func (h *InventoryHandler) GetHistory(c *fiber.Ctx) error {
	beforeID, err := queryInt64(c, "before_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "before_id inválido"})
	}
	limit := clampLimit(c.QueryInt("limit", 0), inventory.DefaultHistoryLimit)
	events, err := h.query.GetHistory(c.Context(), keyFrom(c), limit, beforeID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ToMovementListResponse(events, limit))
}

// ListMovements godoc
// @Summary      Últimos movimientos de todas las claves
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "máximo de eventos (50 por defecto)"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/inventory/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	limit := clampLimit(c.QueryInt("limit", 0), inventory.DefaultRecentLimit)
	events, err := h.query.ListRecentMovements(c.Context(), limit)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(dto.ToMovementListResponse(events, 0))
}

// Rebuild godoc
// @Summary      Reconstruir la proyección desde el ledger
// @Description  Con product_id reconstruye una clave; sin body reconstruye todas.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RebuildRequest  false  "clave opcional"
// @Success      200  {object}  dto.RebuildResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/inventory/rebuild [post]
func (h *InventoryHandler) Rebuild(c *fiber.Ctx) error {
	var in dto.RebuildRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	if in.ProductID == "" {
		n, err := h.rebuild.RebuildAll(c.Context())
		if err != nil {
			return h.writeError(c, err)
		}
		h.log.Info().Str("actor", GetUserID(c)).Int("keys", n).Msg("proyección reconstruida")
		return c.JSON(dto.RebuildResponse{Keys: n})
	}

	level, err := h.rebuild.Rebuild(c.Context(), entity.LevelKey{ProductID: in.ProductID, LocationID: in.WarehouseID})
	if err != nil {
		return h.writeError(c, err)
	}
	out := dto.ToLevelResponse(*level)
	return c.JSON(dto.RebuildResponse{Keys: 1, Level: &out})
}

// Verify godoc
// @Summary      Comparar la proyección con el ledger
// @Description  Con product_id compara una clave; sin él devuelve solo las claves desviadas.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        product_id    query  string  false  "producto"
// @Param        warehouse_id  query  string  false  "bodega"
// @Success      200  {array}   dto.DriftResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/inventory/verify [get]
func (h *InventoryHandler) Verify(c *fiber.Ctx) error {
	if productID := c.Query("product_id"); productID != "" {
		d, err := h.rebuild.Verify(c.Context(), entity.LevelKey{ProductID: productID, LocationID: c.Query("warehouse_id")})
		if err != nil {
			return h.writeError(c, err)
		}
		return c.JSON([]dto.DriftResponse{dto.ToDriftResponse(*d)})
	}
	drifts, err := h.rebuild.VerifyAll(c.Context())
	if err != nil {
		return h.writeError(c, err)
	}
	out := make([]dto.DriftResponse, 0, len(drifts))
	for _, d := range drifts {
		out = append(out, dto.ToDriftResponse(d))
	}
	return c.JSON(out)
}

// writeError traduce los errores tipados del motor a códigos HTTP.
func (h *InventoryHandler) writeError(c *fiber.Ctx, err error) error {
	body := dto.ErrorResponse{Code: domain.Code(err), Message: err.Error(), Retryable: domain.IsRetryable(err)}
	var me *domain.MovementError
	if errors.As(err, &me) {
		body.EventID = me.EventID
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, domain.ErrReference):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, domain.ErrBusy), errors.Is(err, domain.ErrStorage):
		status = fiber.StatusServiceUnavailable
		c.Set(fiber.HeaderRetryAfter, retryAfterSeconds)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = fiber.StatusRequestTimeout
		body.Code = "CANCELLED"
	}
	if status == fiber.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("error no tipado")
		body.Message = "error interno"
	}
	return c.Status(status).JSON(body)
}

func keyFrom(c *fiber.Ctx) entity.LevelKey {
	return entity.LevelKey{ProductID: c.Params("product_id"), LocationID: c.Query("warehouse_id")}
}

func queryInt64(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New("entero no negativo esperado")
	}
	return v, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > inventory.MaxHistoryLimit {
		return inventory.MaxHistoryLimit
	}
	return limit
}
