package payme

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/joyla/internal/models"
)

func md5sum(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestClickBuildPaymentURL(t *testing.T) {
	cp := NewClickProvider("11111", "22222", "click-secret", "https://my.click.uz/")
	p := &models.Payment{Amount: 270000}
	p.ID = uuid.New()

	raw, err := cp.BuildPaymentURL(p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, "https://my.click.uz/services/pay?"))

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "22222", q.Get("service_id"))
	assert.Equal(t, "11111", q.Get("merchant_id"))
	assert.Equal(t, "270000.00", q.Get("amount"))
	assert.Equal(t, p.ID.String(), q.Get("transaction_param"))
	assert.Equal(t, md5sum("11111"+"22222"+"click-secret"+p.ID.String()+"270000.00"), q.Get("sign"))
}

func TestClickBuildPaymentURLUnconfigured(t *testing.T) {
	cp := NewClickProvider("", "", "", "https://my.click.uz")
	_, err := cp.BuildPaymentURL(&models.Payment{})
	assert.Error(t, err)
}

func TestClickVerifySignature(t *testing.T) {
	cp := NewClickProvider("11111", "22222", "click-secret", "https://my.click.uz")
	w := ClickWebhook{
		ClickTransID:    "987654",
		ServiceID:       "22222",
		MerchantTransID: uuid.NewString(),
		Amount:          "270000.00",
		Action:          "1",
		Error:           "0",
		SignTime:        "2026-08-30 12:00:00",
	}
	w.SignString = md5sum(w.ClickTransID + w.ServiceID + "click-secret" + w.MerchantTransID + w.Amount + w.Action + w.SignTime)

	assert.True(t, cp.VerifySignature(w))

	tampered := w
	tampered.Amount = "1.00"
	assert.False(t, cp.VerifySignature(tampered))

	wrongSecret := NewClickProvider("11111", "22222", "other", "https://my.click.uz")
	assert.False(t, wrongSecret.VerifySignature(w))
}

func TestClickWebhookCompleted(t *testing.T) {
	assert.True(t, ClickWebhook{Action: "1", Error: "0"}.Completed())
	assert.False(t, ClickWebhook{Action: "0", Error: "0"}.Completed())
	assert.False(t, ClickWebhook{Action: "1", Error: "-5"}.Completed())
}
