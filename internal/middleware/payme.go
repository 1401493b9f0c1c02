package middleware

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/joyla/internal/payme"
)

const terminalContextKey = "paymeTerminal"

// noCache forbids any caching of protocol responses.
const noCache = "no-cache, no-store, must-revalidate"

// PaymeAuth verifies the processor's Basic signature over the raw request
// body before the dispatcher runs. The body bytes are the signed object, so
// verification happens before any JSON handling. Failures are answered with
// HTTP 200 and the -32504 error body. Bodies that are not JSON-RPC envelopes
// pass through untouched: the legacy webhook path authenticates on its own.
func PaymeAuth(creds *payme.Credentials, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		body := c.Body()
		env, ok := payme.ParseEnvelope(body)
		if !ok {
			return c.Next()
		}

		authHeader := c.Get(fiber.HeaderAuthorization)
		sandboxMarker := strings.EqualFold(c.Get("Test-Operation"), "Paycom")

		terminal, ok := creds.Verify(authHeader, body, sandboxMarker)
		if !ok {
			merchantID, password, _ := payme.DecodeBasic(authHeader)
			log.Warn("payme authorization rejected",
				zap.Int("body_bytes", len(body)),
				zap.String("merchant_id", merchantID),
				zap.Int("signature_length", len(password)),
				zap.Bool("sandbox_marker", sandboxMarker))

			var id any
			_ = json.Unmarshal(env.ID, &id)
			c.Set(fiber.HeaderCacheControl, noCache)
			rpcErr := &payme.Error{Info: payme.ErrInvalidAuthorization, ID: id}
			return c.JSON(rpcErr.RPCBody())
		}

		c.Locals(terminalContextKey, terminal)
		return c.Next()
	}
}

// TerminalFromContext returns the terminal whose secret verified the request.
func TerminalFromContext(c *fiber.Ctx) (payme.Terminal, bool) {
	value := c.Locals(terminalContextKey)
	if value == nil {
		return payme.Terminal{}, false
	}
	terminal, ok := value.(payme.Terminal)
	return terminal, ok
}
