package payme

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/joyla/internal/models"
	"github.com/example/joyla/internal/repository"
)

// Fulfillment applies the paid-for effect once a payment completes. It runs
// inside the perform transaction and is idempotent on payment id, so perform
// replays never produce a second subscription or featured listing.
type Fulfillment struct {
	log *zap.Logger
}

func NewFulfillment(log *zap.Logger) *Fulfillment {
	return &Fulfillment{log: log}
}

func (f *Fulfillment) Activate(tx repository.Tx, p *models.Payment, now time.Time) error {
	switch p.Kind {
	case models.KindTariffSubscription:
		return f.activateSubscription(tx, p, now)
	case models.KindFeaturedService:
		return f.activateFeatured(tx, p, now)
	default:
		return fmt.Errorf("fulfillment: unknown payment kind %q", p.Kind)
	}
}

func (f *Fulfillment) activateSubscription(tx repository.Tx, p *models.Payment, now time.Time) error {
	if _, err := tx.SubscriptionByPaymentID(p.ID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	tariffID, err := uuid.Parse(p.Metadata.TariffID)
	if err != nil {
		return fmt.Errorf("fulfillment: payment %s carries bad tariff_id %q: %w", p.ID, p.Metadata.TariffID, err)
	}
	plan, err := tx.TariffByID(tariffID)
	if err != nil {
		return fmt.Errorf("fulfillment: tariff %s: %w", tariffID, err)
	}
	months := p.Metadata.MonthCount
	if months <= 0 {
		return fmt.Errorf("fulfillment: payment %s has no month_count", p.ID)
	}

	if active, err := tx.ActiveSubscription(p.UserID); err == nil {
		active.Status = models.SubscriptionCancelled
		if err := tx.SaveSubscription(active); err != nil {
			return err
		}
		f.log.Info("expired previous subscription",
			zap.String("subscription_id", active.ID.String()),
			zap.String("user_id", p.UserID.String()))
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	paymentID := p.ID
	return tx.SaveSubscription(&models.Subscription{
		UserID:    p.UserID,
		TariffID:  plan.ID,
		PaymentID: &paymentID,
		Status:    models.SubscriptionActive,
		StartsAt:  now,
		ExpiresAt: now.AddDate(0, months, 0),
	})
}

func (f *Fulfillment) activateFeatured(tx repository.Tx, p *models.Payment, now time.Time) error {
	if _, err := tx.FeaturedByPaymentID(p.ID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	svc, err := tx.ServiceByPublicID(p.Metadata.ServiceID)
	if err != nil {
		return fmt.Errorf("fulfillment: service %q: %w", p.Metadata.ServiceID, err)
	}
	days := p.Metadata.DaysCount
	if days <= 0 {
		return fmt.Errorf("fulfillment: payment %s has no days_count", p.ID)
	}

	paymentID := p.ID
	return tx.SaveFeatured(&models.FeaturedService{
		ServiceID:   svc.ID,
		PaymentID:   &paymentID,
		FeatureType: models.FeaturePaid,
		StartsAt:    now,
		ExpiresAt:   now.AddDate(0, 0, days),
	})
}
