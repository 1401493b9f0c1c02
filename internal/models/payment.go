package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// PaymentKind is what the merchant is paying for.
type PaymentKind string

const (
	KindTariffSubscription PaymentKind = "tariff_subscription"
	KindFeaturedService    PaymentKind = "featured_service"
)

// PaymentProvider is the processor handling the payment.
type PaymentProvider string

const (
	ProviderPayme PaymentProvider = "payme"
	ProviderClick PaymentProvider = "click"
)

// PaymentStatus is the lifecycle state of a payment. Transitions are monotone:
// pending -> completed -> cancelled, or pending -> cancelled/failed.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentFailed    PaymentStatus = "failed"
)

// Payment records an intent to charge a merchant. The processor drives its
// lifecycle through the JSON-RPC gateway; rows are never deleted.
type Payment struct {
	BaseModel
	UserID        uuid.UUID       `gorm:"type:uuid;index" json:"user_id"`
	Amount        float64         `gorm:"type:numeric(14,2)" json:"amount"`
	Kind          PaymentKind     `gorm:"size:32;index" json:"kind"`
	Provider      PaymentProvider `gorm:"size:16;index:idx_payments_provider_txn,unique" json:"provider"`
	Status        PaymentStatus   `gorm:"size:16;index" json:"status"`
	ProviderTxnID string          `gorm:"column:provider_txn_id;size:64;index:idx_payments_provider_txn,unique,where:provider_txn_id <> ''" json:"provider_txn_id"`
	CompletedAt   *time.Time      `json:"completed_at"`
	Metadata      Metadata        `gorm:"type:jsonb" json:"metadata"`
}

// AmountTiyins is the integer wire amount (1 UZS = 100 tiyin).
func (p *Payment) AmountTiyins() int64 {
	return int64(math.Round(p.Amount * 100))
}

// EverCompleted reports whether the payment reached completed at some point,
// even if it was cancelled afterwards.
func (p *Payment) EverCompleted() bool {
	return p.CompletedAt != nil || p.Metadata.PerformTime != 0
}

// CreateTimeMs is the processor-observed create time, falling back to the row
// creation time for payments that predate the metadata key.
func (p *Payment) CreateTimeMs() int64 {
	if p.Metadata.CreateTime != 0 {
		return p.Metadata.CreateTime
	}
	return p.CreatedAt.UnixMilli()
}

// PerformTimeMs is the processor-observed perform time, or 0 if the payment
// was never performed.
func (p *Payment) PerformTimeMs() int64 {
	if p.Metadata.PerformTime != 0 {
		return p.Metadata.PerformTime
	}
	if p.CompletedAt != nil {
		return p.CompletedAt.UnixMilli()
	}
	return 0
}
