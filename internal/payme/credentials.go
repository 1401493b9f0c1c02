package payme

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/example/joyla/internal/models"
)

// Terminal is a (merchant id, secret key) pair issued by the processor. A
// merchant holds separate terminals per product line.
type Terminal struct {
	MerchantID string
	Secret     string
	Sandbox    bool
}

func (t Terminal) configured() bool {
	return t.MerchantID != "" && t.Secret != ""
}

// Credentials holds every terminal the gateway accepts requests for.
type Credentials struct {
	Tariff        Terminal
	Boost         Terminal
	SandboxSecret string
}

// Validate refuses initialization unless at least one terminal is complete.
func (c *Credentials) Validate() error {
	if c.Tariff.configured() || c.Boost.configured() {
		return nil
	}
	return errors.New("payme: no terminal configured")
}

// ByKind returns the terminal serving the given payment kind.
func (c *Credentials) ByKind(kind models.PaymentKind) Terminal {
	if kind == models.KindFeaturedService {
		return c.Boost
	}
	return c.Tariff
}

// Candidates returns the secrets to try against an inbound request, in order:
// the sandbox secret when the marker header is present, then the terminal
// whose merchant id matches the Basic username, then everything else. The
// sandbox occasionally sends a mismatched merchant id, so no configured
// secret is ever excluded.
func (c *Credentials) Candidates(authHeader string, sandboxMarker bool) []Terminal {
	var out []Terminal
	seen := map[string]bool{}
	add := func(t Terminal) {
		if t.Secret == "" || seen[t.Secret] {
			return
		}
		seen[t.Secret] = true
		out = append(out, t)
	}

	if sandboxMarker {
		add(Terminal{Secret: c.SandboxSecret, Sandbox: true})
	}
	if merchantID, _, ok := DecodeBasic(authHeader); ok {
		switch merchantID {
		case c.Tariff.MerchantID:
			add(c.Tariff)
		case c.Boost.MerchantID:
			add(c.Boost)
		}
	}
	add(c.Tariff)
	add(c.Boost)
	add(Terminal{Secret: c.SandboxSecret, Sandbox: true})
	return out
}

// Verify checks the Basic credential against the raw request body. The body
// bytes are the signed object; callers must pass them exactly as received.
// The sandbox sometimes sends the secret itself in place of a signature, so a
// literal secret match is also accepted. All comparisons are constant time.
func (c *Credentials) Verify(authHeader string, rawBody []byte, sandboxMarker bool) (Terminal, bool) {
	_, password, ok := DecodeBasic(authHeader)
	if !ok {
		return Terminal{}, false
	}
	for _, t := range c.Candidates(authHeader, sandboxMarker) {
		mac := hmac.New(sha256.New, []byte(t.Secret))
		mac.Write(rawBody)
		signature := hex.EncodeToString(mac.Sum(nil))
		if subtle.ConstantTimeCompare([]byte(signature), []byte(password)) == 1 {
			return t, true
		}
		if subtle.ConstantTimeCompare([]byte(t.Secret), []byte(password)) == 1 {
			return t, true
		}
	}
	return Terminal{}, false
}

// DecodeBasic splits a Basic authorization header into its username and
// password halves.
func DecodeBasic(header string) (username, password string, ok bool) {
	if !strings.HasPrefix(header, "Basic ") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", "", false
	}
	idx := strings.IndexByte(string(decoded), ':')
	if idx < 0 {
		return "", "", false
	}
	return string(decoded[:idx]), string(decoded[idx+1:]), true
}
