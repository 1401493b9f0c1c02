package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Metadata keys recognized by the payment gateway. Anything else a provider
// (or an older deployment) stored alongside them survives round-trips in Extra.
const (
	metaCreateTime   = "payme_create_time"
	metaPerformTime  = "payme_perform_time"
	metaCancelTime   = "payme_cancel_time"
	metaCancelReason = "payme_cancel_reason"
	metaPhoneNumber  = "phone_number"
	metaTariffID     = "tariff_id"
	metaMonthCount   = "month_count"
	metaServiceID    = "service_id"
	metaDaysCount    = "days_count"
)

// Metadata is the per-payment mapping the protocol layer treats as opaque.
// Timestamps are integer milliseconds since the Unix epoch, as supplied by
// the processor.
type Metadata struct {
	CreateTime   int64
	PerformTime  int64
	CancelTime   int64
	CancelReason *int
	PhoneNumber  string
	TariffID     string
	MonthCount   int
	ServiceID    string
	DaysCount    int
	Extra        map[string]json.RawMessage
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+9)
	for k, v := range m.Extra {
		out[k] = v
	}
	put := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return err
		}
		out[key] = raw
		return nil
	}
	if m.CreateTime != 0 {
		if err := put(metaCreateTime, m.CreateTime); err != nil {
			return nil, err
		}
	}
	if m.PerformTime != 0 {
		if err := put(metaPerformTime, m.PerformTime); err != nil {
			return nil, err
		}
	}
	if m.CancelTime != 0 {
		if err := put(metaCancelTime, m.CancelTime); err != nil {
			return nil, err
		}
	}
	if m.CancelReason != nil {
		if err := put(metaCancelReason, *m.CancelReason); err != nil {
			return nil, err
		}
	}
	if m.PhoneNumber != "" {
		if err := put(metaPhoneNumber, m.PhoneNumber); err != nil {
			return nil, err
		}
	}
	if m.TariffID != "" {
		if err := put(metaTariffID, m.TariffID); err != nil {
			return nil, err
		}
	}
	if m.MonthCount != 0 {
		if err := put(metaMonthCount, m.MonthCount); err != nil {
			return nil, err
		}
	}
	if m.ServiceID != "" {
		if err := put(metaServiceID, m.ServiceID); err != nil {
			return nil, err
		}
	}
	if m.DaysCount != 0 {
		if err := put(metaDaysCount, m.DaysCount); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{}
	take := func(key string, dst any) {
		v, ok := raw[key]
		if !ok {
			return
		}
		if err := json.Unmarshal(v, dst); err == nil {
			delete(raw, key)
		}
	}
	take(metaCreateTime, &m.CreateTime)
	take(metaPerformTime, &m.PerformTime)
	take(metaCancelTime, &m.CancelTime)
	if v, ok := raw[metaCancelReason]; ok {
		var reason int
		if err := json.Unmarshal(v, &reason); err == nil {
			m.CancelReason = &reason
			delete(raw, metaCancelReason)
		}
	}
	take(metaPhoneNumber, &m.PhoneNumber)
	take(metaTariffID, &m.TariffID)
	take(metaMonthCount, &m.MonthCount)
	take(metaServiceID, &m.ServiceID)
	take(metaDaysCount, &m.DaysCount)
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// Value serializes the metadata into a jsonb column.
func (m Metadata) Value() (driver.Value, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan reads the metadata back from a jsonb column.
func (m *Metadata) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return m.UnmarshalJSON(v)
	case string:
		return m.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("metadata: cannot scan %T", src)
	}
}
