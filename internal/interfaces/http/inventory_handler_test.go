package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocker-ledger/internal/application/dto"
	"github.com/jhoicas/stocker-ledger/internal/application/inventory"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stocker-ledger/internal/domain/inventory"
	"github.com/jhoicas/stocker-ledger/internal/infrastructure/sqlite"
	apphttp "github.com/jhoicas/stocker-ledger/internal/interfaces/http"
)

type apiEnv struct {
	app    *fiber.App
	locker *inventory.LaneLocker
	admin  string
	reader string
}

func newAPI(t *testing.T, laneWait time.Duration) *apiEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	db := store.DB()
	products := sqlite.NewProductRepository(db)
	warehouses := sqlite.NewWarehouseRepository(db)
	ledger := sqlite.NewLedgerRepository(db)
	levels := sqlite.NewInventoryLevelRepository(db)

	ctx := context.Background()
	require.NoError(t, products.Create(ctx, &entity.Product{ID: "P1", Name: "Café Molido"}))
	require.NoError(t, warehouses.Create(ctx, &entity.Warehouse{ID: "W1", Name: "Central"}))

	policy := domaininv.Policy{MultiLocation: true}
	locker := inventory.NewLaneLocker(laneWait)
	coord := inventory.NewCoordinator(locker, sqlite.NewTxRunner(store), nil, 5*time.Second)

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Submit:    inventory.NewSubmitMovementUseCase(coord, inventory.NewValidator(policy, products, warehouses), ledger, levels, nil, nil, nil),
		Query:     inventory.NewQueryUseCase(ledger, levels, policy),
		Rebuild:   inventory.NewRebuildUseCase(coord, ledger, levels, policy, inventory.RebuildOptions{}, nil, nil),
		JWTSecret: testJWTSecret,
	})
	return &apiEnv{
		app:    app,
		locker: locker,
		admin:  bearer(t, "bodeguero", true),
		reader: bearer(t, "vendedor", false),
	}
}

func (e *apiEnv) do(t *testing.T, method, path, auth string, body interface{}, headers ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func movement(kind string, qty int64) dto.SubmitMovementRequest {
	return dto.SubmitMovementRequest{ProductID: "P1", WarehouseID: "W1", MovementType: kind, Quantity: qty}
}

func TestInventoryAPI_MovimientoCreaEventoYNivel(t *testing.T) {
	e := newAPI(t, 5*time.Second)

	resp := e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, movement("IN", 10))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decode[dto.SubmitMovementResponse](t, resp)
	assert.Equal(t, int64(1), out.EventID)
	assert.False(t, out.Duplicate)
	assert.Equal(t, int64(10), out.Level.Quantity)

	resp = e.do(t, http.MethodGet, "/api/inventory/levels/P1?warehouse_id=W1", e.reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	level := decode[dto.LevelResponse](t, resp)
	assert.Equal(t, int64(10), level.Quantity)
	assert.Equal(t, "Café Molido", level.ProductName)
	assert.NotNil(t, level.UpdatedAt)
}

func TestInventoryAPI_IdempotencyKeyDevuelveOriginal(t *testing.T) {
	e := newAPI(t, 5*time.Second)

	first := e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, movement("IN", 5), apphttp.HeaderIdempotencyKey, "tok-1")
	require.Equal(t, http.StatusCreated, first.StatusCode)
	orig := decode[dto.SubmitMovementResponse](t, first)

	again := e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, movement("IN", 5), apphttp.HeaderIdempotencyKey, "tok-1")
	require.Equal(t, http.StatusOK, again.StatusCode)
	dup := decode[dto.SubmitMovementResponse](t, again)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, orig.EventID, dup.EventID)
	assert.Equal(t, int64(5), dup.Level.Quantity)

	other := e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, movement("IN", 6), apphttp.HeaderIdempotencyKey, "tok-1")
	assert.Equal(t, http.StatusBadRequest, other.StatusCode)
	body := decode[dto.ErrorResponse](t, other)
	assert.Equal(t, "VALIDATION", body.Code)
	assert.Equal(t, orig.EventID, body.EventID)
}

func TestInventoryAPI_MapeoDeErrores(t *testing.T) {
	e := newAPI(t, 5*time.Second)

	cases := []struct {
		name   string
		req    dto.SubmitMovementRequest
		status int
		code   string
	}{
		{"tipo desconocido", movement("MOVE", 1), http.StatusBadRequest, "VALIDATION"},
		{"cantidad cero", movement("IN", 0), http.StatusBadRequest, "VALIDATION"},
		{"producto desconocido", dto.SubmitMovementRequest{ProductID: "PX", WarehouseID: "W1", MovementType: "IN", Quantity: 1}, http.StatusUnprocessableEntity, "UNKNOWN_REFERENCE"},
		{"stock insuficiente", movement("OUT", 1), http.StatusConflict, "INSUFFICIENT_STOCK"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, tc.req)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decode[dto.ErrorResponse](t, resp).Code)
		})
	}

	resp := e.do(t, http.MethodGet, "/api/inventory/levels/P1?warehouse_id=W1", e.reader, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventoryAPI_CarrilOcupadoEs503ConRetryAfter(t *testing.T) {
	e := newAPI(t, 20*time.Millisecond)
	release, err := e.locker.Acquire(context.Background(), entity.LevelKey{ProductID: "P1", LocationID: "W1"})
	require.NoError(t, err)
	defer release()

	resp := e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, movement("IN", 1))
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	body := decode[dto.ErrorResponse](t, resp)
	assert.Equal(t, "BUSY", body.Code)
	assert.True(t, body.Retryable)
}

func TestInventoryAPI_EscriturasSoloAdmin(t *testing.T) {
	e := newAPI(t, 5*time.Second)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPost, "/api/inventory/movements", e.reader, movement("IN", 1)).StatusCode)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPost, "/api/inventory/rebuild", e.reader, nil).StatusCode)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/inventory/verify", e.reader, nil).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/inventory/levels", "", nil).StatusCode)
}

func TestInventoryAPI_ListadosEHistorial(t *testing.T) {
	e := newAPI(t, 5*time.Second)
	for _, m := range []dto.SubmitMovementRequest{movement("IN", 10), movement("OUT", 3), movement("ADJUST", 4)} {
		require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, m).StatusCode)
	}

	resp := e.do(t, http.MethodGet, "/api/inventory/levels?search=CAF%C3%89", e.reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[dto.LevelListResponse](t, resp)
	assert.Equal(t, 1, list.TotalItems)
	assert.Equal(t, int64(4), list.TotalQuantity)

	resp = e.do(t, http.MethodGet, "/api/inventory/levels/P1/history?warehouse_id=W1&limit=2", e.reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[dto.MovementListResponse](t, resp)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "ADJUST", page.Items[0].MovementType)
	assert.Equal(t, int64(2), page.NextBeforeID)

	resp = e.do(t, http.MethodGet, "/api/inventory/levels/P1/history?warehouse_id=W1&before_id=x", e.reader, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/inventory/movements", e.reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	recent := decode[dto.MovementListResponse](t, resp)
	assert.Len(t, recent.Items, 3)
	assert.Equal(t, testUserID, recent.Items[0].ActorID)
}

func TestInventoryAPI_RebuildYVerify(t *testing.T) {
	e := newAPI(t, 5*time.Second)
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/api/inventory/movements", e.admin, movement("IN", 7)).StatusCode)

	resp := e.do(t, http.MethodGet, "/api/inventory/verify", e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]dto.DriftResponse](t, resp))

	resp = e.do(t, http.MethodGet, "/api/inventory/verify?product_id=P1&warehouse_id=W1", e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	drifts := decode[[]dto.DriftResponse](t, resp)
	require.Len(t, drifts, 1)
	assert.True(t, drifts[0].InSync)
	assert.Equal(t, int64(7), drifts[0].Replayed)

	resp = e.do(t, http.MethodPost, "/api/inventory/rebuild", e.admin, dto.RebuildRequest{ProductID: "P1", WarehouseID: "W1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	one := decode[dto.RebuildResponse](t, resp)
	require.NotNil(t, one.Level)
	assert.Equal(t, int64(7), one.Level.Quantity)

	resp = e.do(t, http.MethodPost, "/api/inventory/rebuild", e.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[dto.RebuildResponse](t, resp).Keys)
}
