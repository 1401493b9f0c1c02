package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataRoundTrip(t *testing.T) {
	reason := 5
	m := Metadata{
		CreateTime:   1700000000000,
		PerformTime:  1700000001000,
		CancelTime:   1700000002000,
		CancelReason: &reason,
		PhoneNumber:  "901234567",
		TariffID:     "2f9c5e44-9124-4f27-b7c7-0d3f1f2a6a01",
		MonthCount:   3,
	}

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var back Metadata
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, m.CreateTime, back.CreateTime)
	assert.Equal(t, m.PerformTime, back.PerformTime)
	assert.Equal(t, m.CancelTime, back.CancelTime)
	require.NotNil(t, back.CancelReason)
	assert.Equal(t, reason, *back.CancelReason)
	assert.Equal(t, m.PhoneNumber, back.PhoneNumber)
	assert.Equal(t, m.TariffID, back.TariffID)
	assert.Equal(t, m.MonthCount, back.MonthCount)
	assert.Nil(t, back.Extra)
}

func TestMetadataPreservesUnknownKeys(t *testing.T) {
	src := `{"payme_create_time":1700000000000,"phone_number":"901234567","customer_note":"call first","legacy":{"v":1}}`

	var m Metadata
	require.NoError(t, json.Unmarshal([]byte(src), &m))
	assert.Equal(t, int64(1700000000000), m.CreateTime)
	assert.Equal(t, "901234567", m.PhoneNumber)
	require.Contains(t, m.Extra, "customer_note")
	require.Contains(t, m.Extra, "legacy")

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.JSONEq(t, `"call first"`, string(out["customer_note"]))
	assert.JSONEq(t, `{"v":1}`, string(out["legacy"]))
	assert.JSONEq(t, `1700000000000`, string(out["payme_create_time"]))
}

func TestMetadataOmitsZeroFields(t *testing.T) {
	raw, err := json.Marshal(Metadata{PhoneNumber: "901234567"})
	require.NoError(t, err)

	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Len(t, out, 1)
	assert.Contains(t, out, "phone_number")
}

func TestMetadataScan(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan([]byte(`{"service_id":"123456789","days_count":10}`)))
	assert.Equal(t, "123456789", m.ServiceID)
	assert.Equal(t, 10, m.DaysCount)

	require.NoError(t, m.Scan(nil))
	assert.Equal(t, Metadata{}, m)

	require.NoError(t, m.Scan(`{"month_count":6}`))
	assert.Equal(t, 6, m.MonthCount)

	assert.Error(t, m.Scan(42))

	v, err := Metadata{MonthCount: 6}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"month_count":6}`, v.(string))
}

func TestPaymentAmountTiyins(t *testing.T) {
	p := &Payment{Amount: 270000}
	assert.Equal(t, int64(27000000), p.AmountTiyins())

	p.Amount = 0.01
	assert.Equal(t, int64(1), p.AmountTiyins())

	// 19.99 is not exactly representable; rounding keeps the wire amount right.
	p.Amount = 19.99
	assert.Equal(t, int64(1999), p.AmountTiyins())
}

func TestPaymentEverCompleted(t *testing.T) {
	p := &Payment{}
	assert.False(t, p.EverCompleted())

	p.Metadata.PerformTime = 100
	assert.True(t, p.EverCompleted())
}
