package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/joyla/internal/payme"
)

// noCache forbids any caching of protocol responses.
const noCache = "no-cache, no-store, must-revalidate"

// PaymeHandler dispatches the processor's JSON-RPC calls. A request counts as
// JSON-RPC only when it carries the jsonrpc, method, and id keys; anything
// else falls through to the legacy webhook handler.
type PaymeHandler struct {
	service *payme.Service
	legacy  fiber.Handler
	log     *zap.Logger
}

func NewPaymeHandler(service *payme.Service, legacy fiber.Handler, log *zap.Logger) *PaymeHandler {
	return &PaymeHandler{service: service, legacy: legacy, log: log}
}

// Pay is the JSON-RPC entry point. Once the envelope is recognized every
// outcome, including errors, is an HTTP 200.
func (h *PaymeHandler) Pay(c *fiber.Ctx) error {
	env, ok := payme.ParseEnvelope(c.Body())
	if !ok {
		if h.legacy != nil {
			return h.legacy(c)
		}
		return h.writeError(c, &payme.Error{Info: payme.ErrInvalidRequest})
	}

	c.Set(fiber.HeaderCacheControl, noCache)

	var id any
	_ = json.Unmarshal(env.ID, &id)
	ctx := c.UserContext()

	switch env.Method {
	case "CheckPerformTransaction":
		var params payme.CheckPerformParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return h.writeError(c, &payme.Error{Info: payme.ErrInvalidParams, ID: id})
		}
		result, err := h.service.CheckPerformTransaction(ctx, params, id)
		return h.respond(c, id, result, err)
	case "CreateTransaction":
		var params payme.CreateTransactionParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return h.writeError(c, &payme.Error{Info: payme.ErrInvalidParams, ID: id})
		}
		result, err := h.service.CreateTransaction(ctx, params, id)
		return h.respond(c, id, result, err)
	case "PerformTransaction":
		var params payme.PerformTransactionParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return h.writeError(c, &payme.Error{Info: payme.ErrInvalidParams, ID: id})
		}
		result, err := h.service.PerformTransaction(ctx, params, id)
		return h.respond(c, id, result, err)
	case "CancelTransaction":
		var params payme.CancelTransactionParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return h.writeError(c, &payme.Error{Info: payme.ErrInvalidParams, ID: id})
		}
		result, err := h.service.CancelTransaction(ctx, params, id)
		return h.respond(c, id, result, err)
	case "CheckTransaction":
		var params payme.CheckTransactionParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return h.writeError(c, &payme.Error{Info: payme.ErrInvalidParams, ID: id})
		}
		result, err := h.service.CheckTransaction(ctx, params, id)
		return h.respond(c, id, result, err)
	case "GetStatement":
		var params payme.StatementParams
		if err := json.Unmarshal(env.Params, &params); err != nil {
			return h.writeError(c, &payme.Error{Info: payme.ErrInvalidParams, ID: id})
		}
		result, err := h.service.GetStatement(ctx, params, id)
		return h.respond(c, id, result, err)
	default:
		return h.writeError(c, &payme.Error{Info: payme.ErrMethodNotFound, ID: id})
	}
}

func (h *PaymeHandler) respond(c *fiber.Ctx, id any, result any, err error) error {
	if err != nil {
		var rpcErr *payme.Error
		if !errors.As(err, &rpcErr) {
			h.log.Error("payme method failed", zap.Error(err))
			rpcErr = &payme.Error{Info: payme.ErrInternal, ID: id, Data: err.Error()}
		}
		if rpcErr.ID == nil {
			rpcErr.ID = id
		}
		return h.writeError(c, rpcErr)
	}
	return c.JSON(fiber.Map{"id": id, "result": result})
}

func (h *PaymeHandler) writeError(c *fiber.Ctx, e *payme.Error) error {
	c.Set(fiber.HeaderCacheControl, noCache)
	return c.JSON(e.RPCBody())
}
