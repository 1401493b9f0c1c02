package payme

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/example/joyla/internal/models"
)

// Provider builds outbound checkout URLs and verifies inbound webhooks. The
// set is closed: Payme and Click.
type Provider interface {
	BuildPaymentURL(p *models.Payment) (string, error)
	VerifyWebhook(rawBody []byte, authorization string) bool
}

// PaymeProvider selects a terminal by payment kind: tariff payments go
// through the tariff terminal, featured ones through the boost terminal.
type PaymeProvider struct {
	creds   *Credentials
	baseURL string
}

func NewPaymeProvider(creds *Credentials, checkoutBaseURL string) (*PaymeProvider, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &PaymeProvider{creds: creds, baseURL: strings.TrimRight(checkoutBaseURL, "/")}, nil
}

func (pp *PaymeProvider) BuildPaymentURL(p *models.Payment) (string, error) {
	terminal := pp.creds.ByKind(p.Kind)
	if !terminal.configured() {
		return "", fmt.Errorf("payme: no terminal configured for kind %q", p.Kind)
	}

	m := p.Metadata
	params := []string{"m=" + terminal.MerchantID}
	if m.PhoneNumber != "" {
		params = append(params, "ac.phone_number="+m.PhoneNumber)
	}
	switch p.Kind {
	case models.KindTariffSubscription:
		params = append(params,
			"ac.tariff_id="+m.TariffID,
			fmt.Sprintf("ac.month_count=%d", m.MonthCount))
	case models.KindFeaturedService:
		params = append(params,
			"ac.service_id="+m.ServiceID,
			fmt.Sprintf("ac.days_count=%d", m.DaysCount))
	}
	params = append(params, fmt.Sprintf("a=%d", p.AmountTiyins()))

	encoded := base64.StdEncoding.EncodeToString([]byte(strings.Join(params, ";")))
	return pp.baseURL + "/" + encoded, nil
}

func (pp *PaymeProvider) VerifyWebhook(rawBody []byte, authorization string) bool {
	_, ok := pp.creds.Verify(authorization, rawBody, false)
	return ok
}
