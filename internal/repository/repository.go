package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/joyla/internal/models"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("repository: record not found")

// PaymentStore is the gateway's order book. Account lookups match the echo
// fields stored in payment metadata and prefer pending rows over settled ones.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	ByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ByProviderTxnID(ctx context.Context, provider models.PaymentProvider, txnID string) (*models.Payment, error)
	ByTariffAccount(ctx context.Context, provider models.PaymentProvider, phone string, tariffID uuid.UUID, months int) (*models.Payment, error)
	ByBoostAccount(ctx context.Context, provider models.PaymentProvider, phone, serviceID string, days int) (*models.Payment, error)

	// Statement lists payments that carry a provider transaction id and whose
	// effective create time lies in [fromMs, toMs], ascending by that time.
	Statement(ctx context.Context, provider models.PaymentProvider, fromMs, toMs int64) ([]models.Payment, error)

	ListByUser(ctx context.Context, userID uuid.UUID, provider, status string, limit, offset int) ([]models.Payment, int64, error)

	// Locked re-reads the payment under a row lock and runs fn inside a single
	// transaction. Everything fn writes through tx commits atomically with the
	// payment, or not at all.
	Locked(ctx context.Context, id uuid.UUID, fn func(tx Tx, p *models.Payment) error) error

	TariffByID(ctx context.Context, id uuid.UUID) (*models.TariffPlan, error)
	ServiceByPublicID(ctx context.Context, publicID string) (*models.Service, error)
}

// Tx is the store surface available inside a Locked transaction.
type Tx interface {
	SavePayment(p *models.Payment) error
	TariffByID(id uuid.UUID) (*models.TariffPlan, error)
	ServiceByPublicID(publicID string) (*models.Service, error)
	SubscriptionByPaymentID(paymentID uuid.UUID) (*models.Subscription, error)
	ActiveSubscription(userID uuid.UUID) (*models.Subscription, error)
	SaveSubscription(s *models.Subscription) error
	FeaturedByPaymentID(paymentID uuid.UUID) (*models.FeaturedService, error)
	SaveFeatured(f *models.FeaturedService) error
}
