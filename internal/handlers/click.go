package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/joyla/internal/models"
	"github.com/example/joyla/internal/payme"
	"github.com/example/joyla/internal/repository"
)

// Click webhook error codes.
const (
	clickOK             = 0
	clickErrSign        = -1
	clickErrAction      = -3
	clickErrAlreadyPaid = -4
	clickErrNotFound    = -5
	clickErrRequest     = -8
	clickErrCancelled   = -9
)

// ClickHandler processes Click's prepare/complete callbacks. It is the legacy
// non-JSON-RPC path on the shared payment endpoint and also mounted directly.
type ClickHandler struct {
	provider *payme.ClickProvider
	store    repository.PaymentStore
	fulfill  *payme.Fulfillment
	log      *zap.Logger
}

func NewClickHandler(provider *payme.ClickProvider, store repository.PaymentStore, fulfill *payme.Fulfillment, log *zap.Logger) *ClickHandler {
	return &ClickHandler{provider: provider, store: store, fulfill: fulfill, log: log}
}

func (h *ClickHandler) Webhook(c *fiber.Ctx) error {
	var w payme.ClickWebhook
	if err := c.BodyParser(&w); err != nil {
		return clickReply(c, w, "", clickErrRequest, "error in request")
	}
	if !h.provider.VerifySignature(w) {
		h.log.Warn("click signature rejected",
			zap.String("click_trans_id", w.ClickTransID),
			zap.String("merchant_trans_id", w.MerchantTransID))
		return clickReply(c, w, "", clickErrSign, "sign check failed")
	}

	paymentID, err := uuid.Parse(w.MerchantTransID)
	if err != nil {
		return clickReply(c, w, "", clickErrNotFound, "order not found")
	}
	p, err := h.store.ByID(c.UserContext(), paymentID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && p.Provider != models.ProviderClick) {
		return clickReply(c, w, "", clickErrNotFound, "order not found")
	}
	if err != nil {
		return err
	}

	switch w.Action {
	case "0":
		return h.prepare(c, w, p)
	case "1":
		return h.complete(c, w, p)
	default:
		return clickReply(c, w, "", clickErrAction, "action not found")
	}
}

func (h *ClickHandler) prepare(c *fiber.Ctx, w payme.ClickWebhook, p *models.Payment) error {
	switch p.Status {
	case models.PaymentCompleted:
		return clickReply(c, w, p.ID.String(), clickErrAlreadyPaid, "already paid")
	case models.PaymentCancelled, models.PaymentFailed:
		return clickReply(c, w, p.ID.String(), clickErrCancelled, "transaction cancelled")
	}

	err := h.store.Locked(c.UserContext(), p.ID, func(tx repository.Tx, p *models.Payment) error {
		if p.ProviderTxnID == "" {
			p.ProviderTxnID = w.ClickTransID
			return tx.SavePayment(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return clickReply(c, w, p.ID.String(), clickOK, "success")
}

func (h *ClickHandler) complete(c *fiber.Ctx, w payme.ClickWebhook, p *models.Payment) error {
	if !w.Completed() {
		// Click reports its own failure; mark the order failed so the slot frees up.
		err := h.store.Locked(c.UserContext(), p.ID, func(tx repository.Tx, p *models.Payment) error {
			if p.Status != models.PaymentPending {
				return nil
			}
			p.Status = models.PaymentFailed
			p.Metadata.CancelTime = time.Now().UnixMilli()
			return tx.SavePayment(p)
		})
		if err != nil {
			return err
		}
		return clickReply(c, w, p.ID.String(), clickErrCancelled, "transaction cancelled")
	}

	err := h.store.Locked(c.UserContext(), p.ID, func(tx repository.Tx, p *models.Payment) error {
		// Replays of a completed payment are acknowledged as success.
		if p.Status != models.PaymentPending {
			return nil
		}
		now := time.Now()
		p.Status = models.PaymentCompleted
		p.CompletedAt = &now
		p.Metadata.PerformTime = now.UnixMilli()
		if err := tx.SavePayment(p); err != nil {
			return err
		}
		if err := h.fulfill.Activate(tx, p, now); err != nil {
			h.log.Error("fulfillment failed",
				zap.String("payment_id", p.ID.String()),
				zap.Error(err))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return clickReply(c, w, p.ID.String(), clickOK, "success")
}

func clickReply(c *fiber.Ctx, w payme.ClickWebhook, confirmID string, code int, note string) error {
	return c.JSON(fiber.Map{
		"click_trans_id":      w.ClickTransID,
		"merchant_trans_id":   w.MerchantTransID,
		"merchant_prepare_id": confirmID,
		"merchant_confirm_id": confirmID,
		"error":               code,
		"error_note":          note,
	})
}
