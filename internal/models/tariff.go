package models

import (
	"time"

	"github.com/google/uuid"
)

// TariffPlan is a paid merchant plan. The gateway only reads these.
type TariffPlan struct {
	BaseModel
	Name          string  `json:"name"`
	PricePerMonth float64 `gorm:"type:numeric(12,2)" json:"price_per_month"`
	MaxListings   int     `json:"max_listings"`
	MaxFeatured   int     `json:"max_featured"`
}

// SubscriptionStatus is the lifecycle state of a merchant subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// Subscription grants a merchant a tariff plan for a period of time.
// PaymentID links it to the payment that activated it, which makes
// activation idempotent across perform replays.
type Subscription struct {
	BaseModel
	UserID    uuid.UUID          `gorm:"type:uuid;index" json:"user_id"`
	TariffID  uuid.UUID          `gorm:"type:uuid" json:"tariff_id"`
	PaymentID *uuid.UUID         `gorm:"type:uuid;index" json:"payment_id"`
	Status    SubscriptionStatus `gorm:"size:16;index" json:"status"`
	StartsAt  time.Time          `json:"starts_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}
