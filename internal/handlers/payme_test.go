package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/joyla/internal/models"
	"github.com/example/joyla/internal/payme"
	"github.com/example/joyla/internal/repository"
)

func newDispatchApp(t *testing.T, legacy fiber.Handler) (*fiber.App, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := payme.NewService(store, payme.NewFulfillment(zap.NewNop()), zap.NewNop())
	handler := NewPaymeHandler(svc, legacy, zap.NewNop())
	app := fiber.New()
	app.Post("/pay", handler.Pay)
	return app, store
}

func dispatch(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/pay", bytes.NewReader([]byte(body)))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

type rpcReply struct {
	ID     any             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int               `json:"code"`
		Message map[string]string `json:"message"`
		Data    map[string]any    `json:"data"`
	} `json:"error"`
}

func decodeReply(t *testing.T, resp *http.Response) rpcReply {
	t.Helper()
	var reply rpcReply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}

func TestPayUnknownMethod(t *testing.T) {
	app, _ := newDispatchApp(t, nil)
	resp := dispatch(t, app, `{"jsonrpc":"2.0","method":"DoSomething","id":3,"params":{}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get(fiber.HeaderCacheControl))

	reply := decodeReply(t, resp)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32601, reply.Error.Code)
	assert.Equal(t, "Метод не найден", reply.Error.Message["ru"])
	assert.Equal(t, float64(3), reply.ID)
	assert.Nil(t, reply.Result)
}

func TestPayMethodErrorIsHTTP200(t *testing.T) {
	app, _ := newDispatchApp(t, nil)
	resp := dispatch(t, app, `{"jsonrpc":"2.0","method":"CheckTransaction","id":"req-9","params":{"id":"missing"}}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decodeReply(t, resp)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -31003, reply.Error.Code)
	assert.Equal(t, "req-9", reply.ID)
}

func TestPayInvalidParamsShape(t *testing.T) {
	app, _ := newDispatchApp(t, nil)
	resp := dispatch(t, app, `{"jsonrpc":"2.0","method":"CreateTransaction","id":1,"params":"not an object"}`)

	reply := decodeReply(t, resp)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32602, reply.Error.Code)
}

func TestPayStatementWindowValidation(t *testing.T) {
	app, _ := newDispatchApp(t, nil)

	resp := dispatch(t, app, `{"jsonrpc":"2.0","method":"GetStatement","id":1,"params":{"from":100,"to":50}}`)
	reply := decodeReply(t, resp)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32602, reply.Error.Code)

	resp = dispatch(t, app, `{"jsonrpc":"2.0","method":"GetStatement","id":2,"params":{"from":0,"to":100}}`)
	reply = decodeReply(t, resp)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, `{"transactions":[]}`, string(reply.Result))
}

func TestPayDispatchesFullMethodSet(t *testing.T) {
	app, store := newDispatchApp(t, nil)
	plan := &models.TariffPlan{Name: "Business", PricePerMonth: 100000}
	store.AddTariff(plan)
	p := &models.Payment{
		Amount:   270000,
		Kind:     models.KindTariffSubscription,
		Provider: models.ProviderPayme,
		Status:   models.PaymentPending,
		Metadata: models.Metadata{
			PhoneNumber: "901234567",
			TariffID:    plan.ID.String(),
			MonthCount:  3,
		},
	}
	require.NoError(t, store.Create(context.Background(), p))

	account := fmt.Sprintf(`{"phone_number":"901234567","tariff_id":%q,"month_count":3}`, plan.ID)

	resp := dispatch(t, app, fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"CheckPerformTransaction","id":1,"params":{"amount":27000000,"account":%s}}`, account))
	reply := decodeReply(t, resp)
	require.Nil(t, reply.Error)
	assert.JSONEq(t, `{"allow":true}`, string(reply.Result))

	resp = dispatch(t, app, fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"CreateTransaction","id":2,"params":{"id":"txn-1","time":1700000000000,"amount":27000000,"account":%s}}`, account))
	reply = decodeReply(t, resp)
	require.Nil(t, reply.Error)

	var created struct {
		CreateTime  int64  `json:"create_time"`
		Transaction string `json:"transaction"`
		State       int    `json:"state"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &created))
	assert.Equal(t, int64(1700000000000), created.CreateTime)
	assert.Equal(t, p.ID.String(), created.Transaction)
	assert.Equal(t, 1, created.State)

	resp = dispatch(t, app, `{"jsonrpc":"2.0","method":"PerformTransaction","id":3,"params":{"id":"txn-1"}}`)
	reply = decodeReply(t, resp)
	require.Nil(t, reply.Error)

	resp = dispatch(t, app, `{"jsonrpc":"2.0","method":"CancelTransaction","id":4,"params":{"id":"txn-1","reason":5}}`)
	reply = decodeReply(t, resp)
	require.Nil(t, reply.Error)

	resp = dispatch(t, app, `{"jsonrpc":"2.0","method":"CheckTransaction","id":5,"params":{"id":"txn-1"}}`)
	reply = decodeReply(t, resp)
	require.Nil(t, reply.Error)

	var status struct {
		State  int  `json:"state"`
		Reason *int `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(reply.Result, &status))
	assert.Equal(t, -2, status.State)
	require.NotNil(t, status.Reason)
	assert.Equal(t, 5, *status.Reason)
}

func TestPayLegacyFallthrough(t *testing.T) {
	legacyCalled := false
	app, _ := newDispatchApp(t, func(c *fiber.Ctx) error {
		legacyCalled = true
		return c.SendString("legacy")
	})

	// No jsonrpc/method/id keys: not a JSON-RPC envelope.
	resp := dispatch(t, app, `{"click_trans_id":"1","action":"0"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, legacyCalled)

	// A partial envelope is still not JSON-RPC.
	legacyCalled = false
	dispatch(t, app, `{"jsonrpc":"2.0","method":"CheckTransaction"}`)
	assert.True(t, legacyCalled)
}

func TestPayUnrecognizedWithoutLegacy(t *testing.T) {
	app, _ := newDispatchApp(t, nil)
	resp := dispatch(t, app, `{"foo":1}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decodeReply(t, resp)
	require.NotNil(t, reply.Error)
	assert.Equal(t, -32600, reply.Error.Code)
}
