package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is a merchant listing. PublicID is the 9-digit numeric identifier
// shown to buyers and used in payment account requisites.
type Service struct {
	BaseModel
	PublicID string    `gorm:"column:public_id;size:9;uniqueIndex" json:"public_id"`
	UserID   uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Title    string    `json:"title"`
	Active   bool      `json:"active"`
}

// FeatureType distinguishes how a listing got featured.
type FeatureType string

const FeaturePaid FeatureType = "paid"

// FeaturedService keeps a listing at the top of search results for a period.
// PaymentID makes activation idempotent across perform replays.
type FeaturedService struct {
	BaseModel
	ServiceID   uuid.UUID   `gorm:"type:uuid;index" json:"service_id"`
	PaymentID   *uuid.UUID  `gorm:"type:uuid;index" json:"payment_id"`
	FeatureType FeatureType `gorm:"size:16" json:"feature_type"`
	StartsAt    time.Time   `json:"starts_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}
