package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/freelance-contracts/internal/config"
	"github.com/ignatzorin/freelance-contracts/internal/domain/entity"
	"github.com/ignatzorin/freelance-contracts/internal/http/middleware"
	"github.com/ignatzorin/freelance-contracts/internal/http/router"
	"github.com/ignatzorin/freelance-contracts/internal/infrastructure/memory"
	"github.com/ignatzorin/freelance-contracts/internal/interface/http/handler"
	"github.com/ignatzorin/freelance-contracts/internal/service"
	"github.com/ignatzorin/freelance-contracts/internal/usecase/lifecycle"
)

const jwtSecret = "handler-test-secret-with-32-chars!"

// flakyNumbers перестаёт выдавать номера заказов, когда failOrders установлен.
type flakyNumbers struct {
	n          atomic.Int64
	failOrders atomic.Bool
}

func (f *flakyNumbers) ContractNumber(time.Time) (string, error) {
	return fmt.Sprintf("CT-H-%06d", f.n.Add(1)), nil
}

func (f *flakyNumbers) OrderNumber(time.Time) (string, error) {
	if f.failOrders.Load() {
		return "", errors.New("генератор недоступен")
	}
	return fmt.Sprintf("ORD-2026-%08d", f.n.Add(1)), nil
}

type apiFixture struct {
	router     *gin.Engine
	tokens     *service.TokenManager
	numbers    *flakyNumbers
	service    entity.Service
	clientID   uuid.UUID
	freelancer uuid.UUID
	adminID    uuid.UUID
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	freelancer := uuid.New()
	svc := entity.Service{
		ID:           uuid.New(),
		FreelancerID: freelancer,
		Title:        "Логотип",
		Description:  "Три варианта логотипа",
		Price:        decimal.NewFromInt(250),
		Currency:     "EUR",
		DeliveryDays: 7,
		Revisions:    2,
	}

	log, _ := logtest.NewNullLogger()
	numbers := &flakyNumbers{}
	engine := lifecycle.NewEngine(memory.NewStore(), memory.NewCatalog(svc), memory.NewAttachments(), lifecycle.Config{},
		lifecycle.WithNumberGenerator(numbers),
		lifecycle.WithLogger(log),
	)

	rateStore, err := middleware.NewRateLimitStore("")
	require.NoError(t, err)

	tokens := service.NewTokenManager(jwtSecret, time.Hour)
	cfg := &config.Config{Env: "test", RateLimitLimit: 1000, RateLimitPeriod: time.Minute}
	r := router.SetupRouter(cfg, log,
		handler.NewContractHandler(engine),
		handler.NewOrderHandler(engine),
		handler.NewDisputeHandler(engine),
		handler.NewHealthHandler(map[string]handler.HealthCheck{
			"storage": func(context.Context) error { return nil },
		}),
		tokens, rateStore)

	return &apiFixture{
		router:     r,
		tokens:     tokens,
		numbers:    numbers,
		service:    svc,
		clientID:   uuid.New(),
		freelancer: freelancer,
		adminID:    uuid.New(),
	}
}

func (f *apiFixture) do(t *testing.T, userID uuid.UUID, role, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != uuid.Nil {
		token, err := f.tokens.IssueAccess(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

type contractJSON struct {
	ID      uuid.UUID  `json:"id"`
	Number  string     `json:"contract_number"`
	Status  string     `json:"status"`
	OrderID *uuid.UUID `json:"order_id"`
	Price   string     `json:"price"`
}

type orderJSON struct {
	ID            uuid.UUID `json:"id"`
	ContractID    uuid.UUID `json:"contract_id"`
	Status        string    `json:"status"`
	RevisionsUsed int       `json:"revisions_used"`
}

type resultJSON struct {
	Contract contractJSON `json:"contract"`
	Order    *orderJSON   `json:"order"`
}

type deliveryJSON struct {
	Order       orderJSON `json:"order"`
	Deliverable struct {
		ID             uuid.UUID `json:"id"`
		RevisionNumber *int      `json:"revision_number"`
	} `json:"deliverable"`
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (f *apiFixture) offer(t *testing.T) contractJSON {
	t.Helper()
	w, env := f.do(t, f.freelancer, "freelancer", http.MethodPost, "/api/contracts", map[string]any{
		"service_id":    f.service.ID,
		"client_id":     f.clientID,
		"scope_of_work": "Логотип и фирменные цвета",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[contractJSON](t, env)
}

func (f *apiFixture) activeOrder(t *testing.T) orderJSON {
	t.Helper()
	c := f.offer(t)
	w, env := f.do(t, f.clientID, "client", http.MethodPost, "/api/contracts/"+c.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[resultJSON](t, env)
	require.NotNil(t, res.Order)
	return *res.Order
}

func TestAPI_ContractToCompletedOrder(t *testing.T) {
	f := newAPIFixture(t)

	c := f.offer(t)
	assert.Equal(t, "PENDING_ACCEPTANCE", c.Status)
	assert.Equal(t, "250", c.Price)

	w, env := f.do(t, f.clientID, "client", http.MethodPost, "/api/contracts/"+c.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code)
	accepted := decode[resultJSON](t, env)
	assert.Equal(t, "ACTIVE", accepted.Contract.Status)
	require.NotNil(t, accepted.Order)
	assert.Equal(t, "IN_PROGRESS", accepted.Order.Status)
	orderPath := "/api/orders/" + accepted.Order.ID.String()

	w, env = f.do(t, f.freelancer, "freelancer", http.MethodPost, orderPath+"/deliveries", map[string]any{
		"type":    "text",
		"message": "Готово, смотрите вложение в чате",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	delivered := decode[deliveryJSON](t, env)
	assert.Equal(t, "DELIVERED", delivered.Order.Status)

	w, env = f.do(t, f.clientID, "client", http.MethodPost,
		orderPath+"/deliveries/"+delivered.Deliverable.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "COMPLETED", decode[deliveryJSON](t, env).Order.Status)

	w, env = f.do(t, f.clientID, "client", http.MethodGet, orderPath+"/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &events))
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{"ORDER_CREATED", "DELIVERY_SUBMITTED", "DELIVERY_ACCEPTED", "ORDER_COMPLETED"}, types)
}

func TestAPI_RevisionCycle(t *testing.T) {
	f := newAPIFixture(t)
	o := f.activeOrder(t)
	orderPath := "/api/orders/" + o.ID.String()

	w, _ := f.do(t, f.freelancer, "freelancer", http.MethodPost, orderPath+"/deliveries", map[string]any{"type": "text", "message": "v1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = f.do(t, f.clientID, "client", http.MethodPost, orderPath+"/revisions", map[string]any{"reason": "Цвета ярче"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := f.do(t, f.freelancer, "freelancer", http.MethodPost, orderPath+"/deliveries", map[string]any{"type": "text", "message": "v2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	w, env = f.do(t, f.freelancer, "freelancer", http.MethodPost, orderPath+"/deliveries", map[string]any{"type": "text", "message": "v2", "is_revision": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[deliveryJSON](t, env)
	require.NotNil(t, res.Deliverable.RevisionNumber)
	assert.Equal(t, 1, *res.Deliverable.RevisionNumber)
	assert.Equal(t, 1, res.Order.RevisionsUsed)
}

func TestAPI_PlaceOrderAndAcceptThroughOrder(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, f.clientID, "client", http.MethodPost, "/api/orders", map[string]any{
		"service_id": f.service.ID,
		"price":      "199.99",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[resultJSON](t, env)
	require.NotNil(t, placed.Order)
	assert.Equal(t, "PENDING_ACCEPTANCE", placed.Order.Status)
	assert.Equal(t, "199.99", placed.Contract.Price)

	w, env = f.do(t, f.clientID, "client", http.MethodPost, "/api/orders/"+placed.Order.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[resultJSON](t, env)
	assert.Equal(t, "ACTIVE", accepted.Contract.Status)
	assert.Equal(t, "IN_PROGRESS", accepted.Order.Status)
}

func TestAPI_RejectOrderRequiresReason(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, f.clientID, "client", http.MethodPost, "/api/orders", map[string]any{"service_id": f.service.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	placed := decode[resultJSON](t, env)

	w, env = f.do(t, f.clientID, "client", http.MethodPost, "/api/orders/"+placed.Order.ID.String()+"/reject", map[string]any{"reason": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_TERMS", env.Error.Code)

	w, env = f.do(t, f.clientID, "client", http.MethodPost, "/api/orders/"+placed.Order.ID.String()+"/reject", map[string]any{"reason": "Передумал"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rejected := decode[resultJSON](t, env)
	assert.Equal(t, "REJECTED", rejected.Contract.Status)
	assert.Equal(t, "CANCELLED", rejected.Order.Status)
}

func TestAPI_SpawnFailureReturnsAccepted(t *testing.T) {
	f := newAPIFixture(t)
	c := f.offer(t)
	f.numbers.failOrders.Store(true)

	w, env := f.do(t, f.clientID, "client", http.MethodPost, "/api/contracts/"+c.ID.String()+"/accept", nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.True(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INCONSISTENT", env.Error.Code)
	res := decode[resultJSON](t, env)
	assert.Equal(t, "ACTIVE", res.Contract.Status)
	assert.Nil(t, res.Order)

	repairPath := "/api/contracts/" + c.ID.String() + "/repair"
	w, _ = f.do(t, f.clientID, "client", http.MethodPost, repairPath, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.numbers.failOrders.Store(false)
	w, env = f.do(t, f.adminID, "admin", http.MethodPost, repairPath, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	repaired := decode[resultJSON](t, env)
	require.NotNil(t, repaired.Order)
	assert.Equal(t, "IN_PROGRESS", repaired.Order.Status)
	assert.Equal(t, repaired.Order.ID, *repaired.Contract.OrderID)
}

func TestAPI_DisputeFreezesOrder(t *testing.T) {
	f := newAPIFixture(t)
	o := f.activeOrder(t)
	disputeID := uuid.New()
	disputePath := "/internal/orders/" + o.ID.String() + "/disputes"

	w, _ := f.do(t, f.clientID, "client", http.MethodPost, disputePath, map[string]any{"dispute_id": disputeID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env := f.do(t, f.adminID, "admin", http.MethodPost, disputePath, map[string]any{"dispute_id": disputeID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "DISPUTED", decode[orderJSON](t, env).Status)

	w, env = f.do(t, f.clientID, "client", http.MethodPost, "/api/orders/"+o.ID.String()+"/cancel", map[string]any{"reason": "долго"})
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "ORDER_DISPUTED", env.Error.Code)

	w, env = f.do(t, f.adminID, "admin", http.MethodPost, disputePath+"/"+disputeID.String()+"/resolve", map[string]any{"outcome": "REFUND_CLIENT"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[resultJSON](t, env)
	assert.Equal(t, "CANCELLED", resolved.Order.Status)
	assert.Equal(t, "CANCELLED", resolved.Contract.Status)
}

func TestAPI_AccessControl(t *testing.T) {
	f := newAPIFixture(t)
	c := f.offer(t)
	path := "/api/contracts/" + c.ID.String()

	w, env := f.do(t, uuid.Nil, "", http.MethodGet, path, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	w, env = f.do(t, uuid.New(), "client", http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, _ = f.do(t, f.adminID, "admin", http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = f.do(t, f.freelancer, "freelancer", http.MethodPost, path+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestAPI_BadInput(t *testing.T) {
	f := newAPIFixture(t)

	w, env := f.do(t, f.clientID, "client", http.MethodGet, "/api/contracts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	w, _ = f.do(t, f.freelancer, "freelancer", http.MethodPost, "/api/contracts", map[string]any{"service_id": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = f.do(t, f.freelancer, "freelancer", http.MethodPost, "/api/contracts", map[string]any{
		"service_id": uuid.New(),
		"client_id":  f.clientID,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	w, env = f.do(t, f.freelancer, "freelancer", http.MethodPost, "/api/contracts", map[string]any{
		"service_id":    f.service.ID,
		"client_id":     f.clientID,
		"scope_of_work": strings.Repeat("я", 10001),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "объём работ")

	o := f.activeOrder(t)
	w, env = f.do(t, f.freelancer, "freelancer", http.MethodPost, "/api/orders/"+o.ID.String()+"/deliveries", map[string]any{"type": "video"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotNil(t, env.Error)
}

func TestAPI_Health(t *testing.T) {
	f := newAPIFixture(t)

	w, _ := f.do(t, uuid.Nil, "", http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"storage":"healthy"`)
}

func TestHealthHandler_Unhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", handler.NewHealthHandler(map[string]handler.HealthCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	}).Health)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}
