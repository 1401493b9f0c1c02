package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/joyla/internal/models"
)

// effectiveCreateTime is the processor-observed create time with a fallback
// to the row creation time for rows that predate the metadata key.
const effectiveCreateTime = "COALESCE(NULLIF(metadata->>'payme_create_time', '')::bigint, (EXTRACT(EPOCH FROM created_at) * 1000)::bigint)"

type paymentStore struct {
	db *gorm.DB
}

// NewPaymentStore returns the Postgres-backed PaymentStore.
func NewPaymentStore(db *gorm.DB) PaymentStore {
	return &paymentStore{db: db}
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *paymentStore) Create(ctx context.Context, p *models.Payment) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *paymentStore) ByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *paymentStore) ByProviderTxnID(ctx context.Context, provider models.PaymentProvider, txnID string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_txn_id = ?", provider, txnID).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// accountQuery prefers a pending payment; when only settled ones match it
// returns the most recent, so the caller can report already-paid or cancelled.
func (s *paymentStore) accountQuery(ctx context.Context, provider models.PaymentProvider, kind models.PaymentKind) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("provider = ? AND kind = ?", provider, kind).
		Order("CASE WHEN status = 'pending' THEN 0 ELSE 1 END, created_at DESC")
}

func (s *paymentStore) ByTariffAccount(ctx context.Context, provider models.PaymentProvider, phone string, tariffID uuid.UUID, months int) (*models.Payment, error) {
	var out []models.Payment
	err := s.accountQuery(ctx, provider, models.KindTariffSubscription).
		Where("metadata->>'phone_number' = ?", phone).
		Where("metadata->>'tariff_id' = ?", tariffID.String()).
		Where("(metadata->>'month_count')::int = ?", months).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *paymentStore) ByBoostAccount(ctx context.Context, provider models.PaymentProvider, phone, serviceID string, days int) (*models.Payment, error) {
	var out []models.Payment
	err := s.accountQuery(ctx, provider, models.KindFeaturedService).
		Where("metadata->>'phone_number' = ?", phone).
		Where("metadata->>'service_id' = ?", serviceID).
		Where("(metadata->>'days_count')::int = ?", days).
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return &out[0], nil
}

func (s *paymentStore) Statement(ctx context.Context, provider models.PaymentProvider, fromMs, toMs int64) ([]models.Payment, error) {
	var out []models.Payment
	err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_txn_id <> ''", provider).
		Where(effectiveCreateTime+" BETWEEN ? AND ?", fromMs, toMs).
		Order(effectiveCreateTime + " ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *paymentStore) ListByUser(ctx context.Context, userID uuid.UUID, provider, status string, limit, offset int) ([]models.Payment, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Payment{}).Where("user_id = ?", userID)
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []models.Payment
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *paymentStore) Locked(ctx context.Context, id uuid.UUID, fn func(tx Tx, p *models.Payment) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		return fn(&pgTx{tx: tx}, &p)
	})
}

func (s *paymentStore) TariffByID(ctx context.Context, id uuid.UUID) (*models.TariffPlan, error) {
	var t models.TariffPlan
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *paymentStore) ServiceByPublicID(ctx context.Context, publicID string) (*models.Service, error) {
	var svc models.Service
	if err := s.db.WithContext(ctx).First(&svc, "public_id = ?", publicID).Error; err != nil {
		return nil, translate(err)
	}
	return &svc, nil
}

type pgTx struct {
	tx *gorm.DB
}

func (t *pgTx) SavePayment(p *models.Payment) error {
	return t.tx.Save(p).Error
}

func (t *pgTx) TariffByID(id uuid.UUID) (*models.TariffPlan, error) {
	var plan models.TariffPlan
	if err := t.tx.First(&plan, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &plan, nil
}

func (t *pgTx) ServiceByPublicID(publicID string) (*models.Service, error) {
	var svc models.Service
	if err := t.tx.First(&svc, "public_id = ?", publicID).Error; err != nil {
		return nil, translate(err)
	}
	return &svc, nil
}

func (t *pgTx) SubscriptionByPaymentID(paymentID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := t.tx.First(&sub, "payment_id = ?", paymentID).Error; err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (t *pgTx) ActiveSubscription(userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := t.tx.Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		Order("expires_at desc").
		First(&sub).Error
	if err != nil {
		return nil, translate(err)
	}
	return &sub, nil
}

func (t *pgTx) SaveSubscription(s *models.Subscription) error {
	return t.tx.Save(s).Error
}

func (t *pgTx) FeaturedByPaymentID(paymentID uuid.UUID) (*models.FeaturedService, error) {
	var f models.FeaturedService
	if err := t.tx.First(&f, "payment_id = ?", paymentID).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (t *pgTx) SaveFeatured(f *models.FeaturedService) error {
	return t.tx.Save(f).Error
}
