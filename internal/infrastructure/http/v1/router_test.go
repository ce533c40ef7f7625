package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "oilmill/internal/core/context"
	"oilmill/internal/core/types"
	"oilmill/internal/domain/auth"
	"oilmill/internal/testkit"
	"oilmill/pkg/logger"
)

type apiEnv struct {
	t      *testing.T
	router *gin.Engine
	world  *testkit.World
	admin  string
	clerk  string
}

func newAPI(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := testkit.NewWorld(t, nil)
	jwtSvc := auth.NewJWTService(auth.DefaultJWTConfig("test-secret", "oilmill"))

	router, err := NewRouter(RouterConfig{
		Services: Services{
			Catalog:    w.Catalog,
			Ledger:     w.Ledger,
			Valuation:  w.Valuation,
			Resolver:   w.Resolver,
			Production: w.Production,
			Bottling:   w.Bottling,
			Finance:    w.Finance,
		},
		Logger:       logger.Nop(),
		JWTValidator: jwtSvc,
		Idempotency:  w.Store.Idempotency(),
	})
	require.NoError(t, err)

	admin, _, err := jwtSvc.GenerateAccessToken("owner", "owner@mill.local", []string{appctx.RoleAdmin})
	require.NoError(t, err)
	clerk, _, err := jwtSvc.GenerateAccessToken("clerk", "clerk@mill.local", nil)
	require.NoError(t, err)

	return &apiEnv{t: t, router: router, world: w, admin: admin, clerk: clerk}
}

func (e *apiEnv) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthIsPublic(t *testing.T) {
	e := newAPI(t)
	rec := e.do(http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIRequiresBearerToken(t *testing.T) {
	e := newAPI(t)

	rec := e.do(http.MethodGet, "/api/v1/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decode(t, rec)["code"])

	rec = e.do(http.MethodGet, "/api/v1/items", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateItem_AdminOnlyWithOpeningBalance(t *testing.T) {
	e := newAPI(t)
	body := map[string]any{"name": "Empty 5L Tin", "type": "packaging", "unit": "pcs", "openingQuantity": 40, "avgCost": "45"}

	rec := e.do(http.MethodPost, "/api/v1/items", e.clerk, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPost, "/api/v1/items", e.admin, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	item := decode(t, rec)
	assert.Equal(t, 40.0, item["quantityOnHand"])
	assert.Equal(t, "1800", item["stockValue"])

	rec = e.do(http.MethodGet, "/api/v1/items/"+item["id"].(string)+"/movements", e.clerk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	moves := decode(t, rec)
	assert.EqualValues(t, 1, moves["count"])

	rec = e.do(http.MethodPost, "/api/v1/items", e.admin, map[string]any{"name": "Tin", "type": "gadget", "unit": "pcs"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["code"])
}

func TestUpdateItem_AvgCostCorrectionIsAdminOnly(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 0, 0, 3)
	path := "/api/v1/items/" + m.Empty5L.ID.String()
	body := map[string]any{"avgCost": "50"}

	rec := e.do(http.MethodPatch, path, e.clerk, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPatch, path, e.admin, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := decode(t, rec)
	assert.Equal(t, "50", item["avgCost"])
	assert.Equal(t, 3.0, item["quantityOnHand"])

	entries := e.world.Store.Audit().Entries(m.Empty5L.ID)
	require.NotEmpty(t, entries)
	assert.Contains(t, entries[len(entries)-1].Changes, "avg_cost")
}

func TestAdjust_BelowZeroIsRejected(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 0, 0, 3)
	path := "/api/v1/items/" + m.Empty5L.ID.String() + "/movements"

	rec := e.do(http.MethodPost, path, e.clerk, map[string]any{"delta": -4, "reason": "Damaged"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	assert.Contains(t, body["message"], "Cannot reduce stock below zero")

	rec = e.do(http.MethodPost, path, e.clerk, map[string]any{"delta": -3, "reason": "Damaged"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, types.Qty(0), e.world.OnHand(t, m.Empty5L.ID))

	rec = e.do(http.MethodPost, "/api/v1/items/not-an-id/movements", e.clerk, map[string]any{"delta": 1, "reason": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBottling_InsufficientOilWritesNothing(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 0, 10, 20)

	rec := e.do(http.MethodPost, "/api/v1/bottling/runs", e.clerk, map[string]any{
		"lines": []map[string]any{{"sku": "1L Bottle", "quantity": 2}, {"sku": "5L Tin", "quantity": 2}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INSUFFICIENT_STOCK", body["code"])
	assert.Equal(t, "Insufficient bulk oil. Available: 10L, Required: 12L", body["message"])
	assert.Equal(t, types.Qty(10), e.world.OnHand(t, m.BulkOil.ID))
	assert.Equal(t, types.Qty(20), e.world.OnHand(t, m.Empty1L.ID))

	rec = e.do(http.MethodPost, "/api/v1/bottling/runs", e.clerk, map[string]any{
		"lines": []map[string]any{{"sku": "2L Jar", "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBottling_IdempotencyKeyReplays(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 0, 100, 20)
	body := map[string]any{"lines": []map[string]any{{"sku": "5L Tin", "quantity": 3}}}

	first := e.do(http.MethodPost, "/api/v1/bottling/runs", e.clerk, body, "X-Idempotency-Key", "run-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := e.do(http.MethodPost, "/api/v1/bottling/runs", e.clerk, body, "X-Idempotency-Key", "run-1")
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	assert.Equal(t, types.Qty(85), e.world.OnHand(t, m.BulkOil.ID))
	assert.Equal(t, types.Qty(3), e.world.OnHand(t, m.Oil5L.ID))

	other := e.do(http.MethodPost, "/api/v1/bottling/runs", e.clerk,
		map[string]any{"lines": []map[string]any{{"sku": "5L Tin", "quantity": 1}}}, "X-Idempotency-Key", "run-1")
	assert.Equal(t, http.StatusConflict, other.Code)
}

func TestProductionLifecycle(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 1000, 0, 0)

	rec := e.do(http.MethodPost, "/api/v1/production/batches", e.clerk, map[string]any{"farmerName": "Ravi", "inputGroundnutsKg": 500})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batchID := decode(t, rec)["id"].(string)

	rec = e.do(http.MethodPost, "/api/v1/production/batches/"+batchID+"/advance", e.clerk,
		map[string]any{"inputGroundnutsKg": 500, "outputPeanutsKg": 350})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pressing", decode(t, rec)["to"])
	assert.Equal(t, types.Qty(500), e.world.OnHand(t, m.Groundnuts.ID))
	assert.Equal(t, types.Qty(350), e.world.OnHand(t, m.Peanuts.ID))

	rec = e.do(http.MethodGet, "/api/v1/production/batches?phase=pressing", e.clerk, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
}

func TestProcurementExpenseRevalues(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 1500, 0, 0)

	rec := e.do(http.MethodPost, "/api/v1/finance/expenses", e.clerk, map[string]any{
		"expenseType":         "purchase_groundnuts",
		"amount":              "80000",
		"procurementQuantity": 1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	it, err := e.world.Catalog.Get(t.Context(), m.Groundnuts.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Qty(2500), it.QuantityOnHand)
	assert.Equal(t, "78.8", it.AvgCost.String())

	rec = e.do(http.MethodGet, "/api/v1/finance/snapshot", e.clerk, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProcurementExpense_OutOfRangeQuantityRejected(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 1500, 0, 0)

	for _, q := range []any{int64(1844674407370956), "922337203685478", "1e300"} {
		rec := e.do(http.MethodPost, "/api/v1/finance/expenses", e.clerk, map[string]any{
			"expenseType":         "purchase_groundnuts",
			"amount":              "80000",
			"procurementQuantity": q,
		})
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["code"])
	}

	it, err := e.world.Catalog.Get(t.Context(), m.Groundnuts.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Qty(1500), it.QuantityOnHand)
	assert.Equal(t, "78", it.AvgCost.String())
}

func TestResolverMappings(t *testing.T) {
	e := newAPI(t)
	m := e.world.SeedMill(t, 0, 0, 0)

	rec := e.do(http.MethodGet, "/api/v1/resolver/resolve?hint=bulk%20oil", e.clerk, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, m.BulkOil.ID.String(), decode(t, rec)["id"])

	path := "/api/v1/resolver/mappings/BULK_OIL"
	rec = e.do(http.MethodPut, path, e.clerk, map[string]any{"itemId": m.Peanuts.ID.String()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(http.MethodPut, path, e.admin, map[string]any{"itemId": m.Peanuts.ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/v1/resolver/resolve?role=BULK_OIL", e.clerk, nil)
	assert.Equal(t, m.Peanuts.ID.String(), decode(t, rec)["id"])

	rec = e.do(http.MethodDelete, path, e.admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(http.MethodPut, "/api/v1/resolver/mappings/NOPE", e.admin, map[string]any{"itemId": m.Peanuts.ID.String()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
