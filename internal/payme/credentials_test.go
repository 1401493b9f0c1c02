package payme

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/joyla/internal/models"
)

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func testCredentials() *Credentials {
	return &Credentials{
		Tariff:        Terminal{MerchantID: "merchant-tariff", Secret: "tariff-secret"},
		Boost:         Terminal{MerchantID: "merchant-boost", Secret: "boost-secret"},
		SandboxSecret: "sandbox-secret",
	}
}

func TestVerifySignature(t *testing.T) {
	creds := testCredentials()
	body := []byte(`{"jsonrpc":"2.0","method":"CheckPerformTransaction","id":1,"params":{}}`)

	header := basicAuth("merchant-tariff", signBody("tariff-secret", body))
	terminal, ok := creds.Verify(header, body, false)
	require.True(t, ok)
	assert.Equal(t, "merchant-tariff", terminal.MerchantID)

	// Any change to the signed bytes invalidates the signature.
	mutated := []byte(`{"jsonrpc":"2.0","method":"CheckPerformTransaction","id":1,"params":{} }`)
	_, ok = creds.Verify(header, mutated, false)
	assert.False(t, ok)

	_, ok = creds.Verify(basicAuth("merchant-tariff", "deadbeef"), body, false)
	assert.False(t, ok)

	_, ok = creds.Verify("Bearer whatever", body, false)
	assert.False(t, ok)
}

func TestVerifyAcceptsSecondTerminal(t *testing.T) {
	creds := testCredentials()
	body := []byte(`{"jsonrpc":"2.0","method":"CheckTransaction","id":2,"params":{}}`)

	// The sandbox sometimes signs with one terminal's secret under the
	// other's merchant id; every configured secret is tried.
	header := basicAuth("merchant-tariff", signBody("boost-secret", body))
	terminal, ok := creds.Verify(header, body, false)
	require.True(t, ok)
	assert.Equal(t, "boost-secret", terminal.Secret)
}

func TestVerifySandboxShortcut(t *testing.T) {
	creds := testCredentials()
	body := []byte(`{}`)

	// Literal secret in place of a signature.
	terminal, ok := creds.Verify(basicAuth("merchant-tariff", "tariff-secret"), body, false)
	require.True(t, ok)
	assert.Equal(t, "merchant-tariff", terminal.MerchantID)

	// Sandbox secret only works when something matches it.
	terminal, ok = creds.Verify(basicAuth("Paycom", "sandbox-secret"), body, true)
	require.True(t, ok)
	assert.True(t, terminal.Sandbox)

	terminal, ok = creds.Verify(basicAuth("Paycom", signBody("sandbox-secret", body)), body, true)
	require.True(t, ok)
	assert.True(t, terminal.Sandbox)
}

func TestCandidatesOrder(t *testing.T) {
	creds := testCredentials()

	candidates := creds.Candidates(basicAuth("merchant-boost", "x"), false)
	require.Len(t, candidates, 3)
	assert.Equal(t, "boost-secret", candidates[0].Secret)
	assert.Equal(t, "tariff-secret", candidates[1].Secret)
	assert.Equal(t, "sandbox-secret", candidates[2].Secret)

	// The sandbox marker puts the sandbox secret first.
	candidates = creds.Candidates(basicAuth("merchant-boost", "x"), true)
	require.Len(t, candidates, 3)
	assert.Equal(t, "sandbox-secret", candidates[0].Secret)
	assert.True(t, candidates[0].Sandbox)
}

func TestCandidatesDeduplicates(t *testing.T) {
	creds := &Credentials{
		Tariff: Terminal{MerchantID: "m", Secret: "shared"},
		Boost:  Terminal{MerchantID: "m2", Secret: "shared"},
	}
	candidates := creds.Candidates("", false)
	assert.Len(t, candidates, 1)
}

func TestCredentialsValidate(t *testing.T) {
	assert.Error(t, (&Credentials{}).Validate())
	assert.Error(t, (&Credentials{Tariff: Terminal{MerchantID: "m"}}).Validate())
	assert.NoError(t, (&Credentials{Tariff: Terminal{MerchantID: "m", Secret: "s"}}).Validate())
	assert.NoError(t, (&Credentials{Boost: Terminal{MerchantID: "m", Secret: "s"}}).Validate())
}

func TestByKind(t *testing.T) {
	creds := testCredentials()
	assert.Equal(t, "merchant-tariff", creds.ByKind(models.KindTariffSubscription).MerchantID)
	assert.Equal(t, "merchant-boost", creds.ByKind(models.KindFeaturedService).MerchantID)
}

func TestDecodeBasic(t *testing.T) {
	user, pass, ok := DecodeBasic(basicAuth("alice", "s3cret:with:colons"))
	require.True(t, ok)
	assert.Equal(t, "alice", user)
	assert.Equal(t, "s3cret:with:colons", pass)

	_, _, ok = DecodeBasic("Basic not-base64!!")
	assert.False(t, ok)

	_, _, ok = DecodeBasic(basicAuth("nocolon", "")[:12])
	assert.False(t, ok)
}
