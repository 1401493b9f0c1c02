package payme

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/example/joyla/internal/models"
)

// AccountKind discriminates the two accepted account requisite formats.
type AccountKind int

const (
	AccountTariff AccountKind = iota
	AccountBoost
)

// Account is a validated, normalized set of account requisites.
type Account struct {
	Kind      AccountKind
	Phone     string
	TariffID  uuid.UUID
	Months    int
	ServiceID string
	Days      int

	// Plan is filled once the tariff has been resolved; pricing needs it.
	Plan *models.TariffPlan
}

const boostPricePerDay = 1500

// ValidateAccount checks the account shape and normalizes its fields. The
// second return is a reason tag from the closed vocabulary, empty on success.
// Counts are accepted as numbers or numeric strings.
func ValidateAccount(raw json.RawMessage) (*Account, string) {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return nil, ReasonInvalidAccountFormat
	}

	_, hasTariff := fields["tariff_id"]
	_, hasMonths := fields["month_count"]
	_, hasService := fields["service_id"]
	_, hasDays := fields["days_count"]

	tariffish := hasTariff || hasMonths
	boostish := hasService || hasDays
	switch {
	case tariffish && boostish:
		return nil, ReasonMixedAccountFormat
	case !tariffish && !boostish:
		return nil, ReasonMissingFields
	}

	rawPhone, ok := stringField(fields, "phone_number")
	if !ok {
		return nil, ReasonMissingFields
	}
	phone, ok := NormalizePhone(rawPhone)
	if !ok {
		return nil, ReasonInvalidPhoneNumber
	}

	if tariffish {
		if !hasTariff || !hasMonths {
			return nil, ReasonMissingFields
		}
		tariffStr, ok := stringField(fields, "tariff_id")
		if !ok {
			return nil, ReasonInvalidTariffID
		}
		tariffID, err := uuid.Parse(tariffStr)
		if err != nil {
			return nil, ReasonInvalidTariffID
		}
		months, ok := intField(fields, "month_count")
		if !ok || months <= 0 {
			return nil, ReasonInvalidMonthCount
		}
		return &Account{Kind: AccountTariff, Phone: phone, TariffID: tariffID, Months: months}, ""
	}

	if !hasService || !hasDays {
		return nil, ReasonMissingFields
	}
	serviceID, ok := stringField(fields, "service_id")
	if !ok || !validServiceID(serviceID) {
		return nil, ReasonInvalidServiceID
	}
	days, ok := intField(fields, "days_count")
	if !ok || days < 1 || days > 365 {
		return nil, ReasonInvalidDaysCount
	}
	return &Account{Kind: AccountBoost, Phone: phone, ServiceID: serviceID, Days: days}, ""
}

// NormalizePhone strips a leading +998 or 998 country code and requires
// exactly 9 digits.
func NormalizePhone(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	if strings.HasPrefix(phone, "+998") {
		phone = phone[4:]
	} else if strings.HasPrefix(phone, "998") && len(phone) == 12 {
		phone = phone[3:]
	}
	if len(phone) != 9 {
		return "", false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return phone, true
}

func validServiceID(id string) bool {
	if len(id) != 9 {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExpectedTiyins recomputes the wire amount for the account using the tiered
// discount table. Tariff accounts require Plan to be resolved first.
func ExpectedTiyins(a *Account) int64 {
	var base float64
	var discount float64
	switch a.Kind {
	case AccountTariff:
		base = a.Plan.PricePerMonth * float64(a.Months)
		discount = tariffDiscount(a.Months)
	default:
		base = float64(boostPricePerDay * a.Days)
		discount = boostDiscount(a.Days)
	}
	return int64(math.Round(base * (1 - discount) * 100))
}

func tariffDiscount(months int) float64 {
	switch {
	case months >= 12:
		return 0.30
	case months >= 6:
		return 0.20
	case months >= 3:
		return 0.10
	default:
		return 0
	}
}

// boostDiscount uses the 31-day cutoff for the middle tier.
func boostDiscount(days int) float64 {
	switch {
	case days >= 91:
		return 0.30
	case days >= 31:
		return 0.20
	case days >= 8:
		return 0.10
	default:
		return 0
	}
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func intField(fields map[string]json.RawMessage, key string) (int, bool) {
	s, ok := stringField(fields, key)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}
