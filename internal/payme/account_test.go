package payme

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/joyla/internal/models"
)

func TestValidateAccountTariff(t *testing.T) {
	tariffID := uuid.New()
	raw := fmt.Sprintf(`{"phone_number":"+998901234567","tariff_id":%q,"month_count":"3"}`, tariffID)

	account, reason := ValidateAccount([]byte(raw))
	require.Empty(t, reason)
	assert.Equal(t, AccountTariff, account.Kind)
	assert.Equal(t, "901234567", account.Phone)
	assert.Equal(t, tariffID, account.TariffID)
	assert.Equal(t, 3, account.Months)
}

func TestValidateAccountBoost(t *testing.T) {
	raw := `{"phone_number":"998901234567","service_id":"123456789","days_count":14}`

	account, reason := ValidateAccount([]byte(raw))
	require.Empty(t, reason)
	assert.Equal(t, AccountBoost, account.Kind)
	assert.Equal(t, "901234567", account.Phone)
	assert.Equal(t, "123456789", account.ServiceID)
	assert.Equal(t, 14, account.Days)
}

func TestValidateAccountRejections(t *testing.T) {
	tariffID := uuid.New().String()
	cases := []struct {
		name   string
		raw    string
		reason string
	}{
		{
			"mixed formats",
			`{"phone_number":"901234567","tariff_id":"` + tariffID + `","days_count":5}`,
			ReasonMixedAccountFormat,
		},
		{
			"no distinguishing fields",
			`{"phone_number":"901234567"}`,
			ReasonMissingFields,
		},
		{
			"tariff without month count",
			`{"phone_number":"901234567","tariff_id":"` + tariffID + `"}`,
			ReasonMissingFields,
		},
		{
			"boost without service id",
			`{"phone_number":"901234567","days_count":5}`,
			ReasonMissingFields,
		},
		{
			"phone missing",
			`{"tariff_id":"` + tariffID + `","month_count":1}`,
			ReasonMissingFields,
		},
		{
			"phone too short",
			`{"phone_number":"12345","tariff_id":"` + tariffID + `","month_count":1}`,
			ReasonInvalidPhoneNumber,
		},
		{
			"tariff id not a uuid",
			`{"phone_number":"901234567","tariff_id":"nope","month_count":1}`,
			ReasonInvalidTariffID,
		},
		{
			"zero months",
			`{"phone_number":"901234567","tariff_id":"` + tariffID + `","month_count":0}`,
			ReasonInvalidMonthCount,
		},
		{
			"months not numeric",
			`{"phone_number":"901234567","tariff_id":"` + tariffID + `","month_count":"many"}`,
			ReasonInvalidMonthCount,
		},
		{
			"service id too short",
			`{"phone_number":"901234567","service_id":"12345678","days_count":10}`,
			ReasonInvalidServiceID,
		},
		{
			"service id not numeric",
			`{"phone_number":"901234567","service_id":"12345678x","days_count":10}`,
			ReasonInvalidServiceID,
		},
		{
			"zero days",
			`{"phone_number":"901234567","service_id":"123456789","days_count":0}`,
			ReasonInvalidDaysCount,
		},
		{
			"days over the yearly cap",
			`{"phone_number":"901234567","service_id":"123456789","days_count":366}`,
			ReasonInvalidDaysCount,
		},
		{
			"not an object",
			`[1,2,3]`,
			ReasonInvalidAccountFormat,
		},
		{
			"empty payload",
			``,
			ReasonInvalidAccountFormat,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			account, reason := ValidateAccount([]byte(tc.raw))
			assert.Nil(t, account)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"901234567", "901234567", true},
		{"+998901234567", "901234567", true},
		{"998901234567", "901234567", true},
		{" 901234567 ", "901234567", true},
		{"90123456", "", false},
		{"9012345678", "", false},
		{"90123456a", "", false},
		{"+7901234567", "", false},
	}
	for _, tc := range cases {
		got, ok := NormalizePhone(tc.in)
		assert.Equal(t, tc.ok, ok, "phone %q", tc.in)
		assert.Equal(t, tc.want, got, "phone %q", tc.in)
	}
}

func TestExpectedTiyinsTariff(t *testing.T) {
	plan := &models.TariffPlan{PricePerMonth: 100000}
	cases := []struct {
		months int
		want   int64
	}{
		{1, 10000000},
		{2, 20000000},
		{3, 27000000},  // 10% from 3 months
		{6, 48000000},  // 20% from 6 months
		{12, 84000000}, // 30% from 12 months
	}
	for _, tc := range cases {
		a := &Account{Kind: AccountTariff, Months: tc.months, Plan: plan}
		assert.Equal(t, tc.want, ExpectedTiyins(a), "months=%d", tc.months)
	}
}

func TestExpectedTiyinsBoost(t *testing.T) {
	cases := []struct {
		days int
		want int64
	}{
		{7, 1050000},
		{8, 1080000},  // 10% from 8 days
		{30, 4050000},
		{31, 3720000}, // 20% from 31 days
		{91, 9555000}, // 30% from 91 days
	}
	for _, tc := range cases {
		a := &Account{Kind: AccountBoost, Days: tc.days}
		assert.Equal(t, tc.want, ExpectedTiyins(a), "days=%d", tc.days)
	}
}
