package payme

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/example/joyla/internal/models"
)

// ClickProvider is the secondary processor. Its checkout URL carries an MD5
// signature over a fixed field order; its webhook signals completion with
// action = 1 and error = 0.
type ClickProvider struct {
	MerchantID string
	ServiceID  string
	Secret     string
	BaseURL    string
}

func NewClickProvider(merchantID, serviceID, secret, baseURL string) *ClickProvider {
	return &ClickProvider{
		MerchantID: merchantID,
		ServiceID:  serviceID,
		Secret:     secret,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (cp *ClickProvider) BuildPaymentURL(p *models.Payment) (string, error) {
	if cp.MerchantID == "" || cp.ServiceID == "" || cp.Secret == "" {
		return "", fmt.Errorf("click: provider not configured")
	}
	amount := fmt.Sprintf("%.2f", p.Amount)
	sign := md5hex(cp.MerchantID + cp.ServiceID + cp.Secret + p.ID.String() + amount)

	q := url.Values{}
	q.Set("service_id", cp.ServiceID)
	q.Set("merchant_id", cp.MerchantID)
	q.Set("amount", amount)
	q.Set("transaction_param", p.ID.String())
	q.Set("sign", sign)
	return cp.BaseURL + "/services/pay?" + q.Encode(), nil
}

// ClickWebhook mirrors the fields Click posts on prepare and complete.
// Click sends everything as strings.
type ClickWebhook struct {
	ClickTransID    string `json:"click_trans_id" form:"click_trans_id" query:"click_trans_id"`
	ServiceID       string `json:"service_id" form:"service_id" query:"service_id"`
	MerchantTransID string `json:"merchant_trans_id" form:"merchant_trans_id" query:"merchant_trans_id"`
	MerchantPrepID  string `json:"merchant_prepare_id" form:"merchant_prepare_id" query:"merchant_prepare_id"`
	Amount          string `json:"amount" form:"amount" query:"amount"`
	Action          string `json:"action" form:"action" query:"action"`
	Error           string `json:"error" form:"error" query:"error"`
	SignTime        string `json:"sign_time" form:"sign_time" query:"sign_time"`
	SignString      string `json:"sign_string" form:"sign_string" query:"sign_string"`
}

// Completed reports whether the webhook signals a successful payment.
func (w ClickWebhook) Completed() bool {
	return w.Action == "1" && w.Error == "0"
}

// VerifySignature checks the webhook signature:
// md5(click_trans_id + service_id + secret + merchant_trans_id + amount + action + sign_time).
func (cp *ClickProvider) VerifySignature(w ClickWebhook) bool {
	expected := md5hex(w.ClickTransID + w.ServiceID + cp.Secret + w.MerchantTransID + w.Amount + w.Action + w.SignTime)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(w.SignString)) == 1
}

func (cp *ClickProvider) VerifyWebhook(rawBody []byte, _ string) bool {
	var w ClickWebhook
	if err := json.Unmarshal(rawBody, &w); err != nil {
		return false
	}
	return cp.VerifySignature(w)
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
