package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/joyla/internal/middleware"
	"github.com/example/joyla/internal/models"
	"github.com/example/joyla/internal/payme"
	"github.com/example/joyla/internal/repository"
	"github.com/example/joyla/internal/utils"
)

// CheckoutHandler is the product layer: it creates pending payments with the
// account-echo metadata the gateway matches on, and hands back the provider
// checkout URL.
type CheckoutHandler struct {
	store     repository.PaymentStore
	providers map[models.PaymentProvider]payme.Provider
	log       *zap.Logger
}

func NewCheckoutHandler(store repository.PaymentStore, providers map[models.PaymentProvider]payme.Provider, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{store: store, providers: providers, log: log}
}

type checkoutRequest struct {
	Provider    string `json:"provider"`
	PhoneNumber string `json:"phone_number"`
	TariffID    string `json:"tariff_id,omitempty"`
	MonthCount  int    `json:"month_count,omitempty"`
	ServiceID   string `json:"service_id,omitempty"`
	DaysCount   int    `json:"days_count,omitempty"`
}

// Create opens a pending payment and returns the checkout URL.
func (h *CheckoutHandler) Create(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	provider := models.ProviderPayme
	if req.Provider != "" {
		provider = models.PaymentProvider(req.Provider)
	}
	prov, ok := h.providers[provider]
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown provider")
	}

	// Reuse the gateway's own account validation so checkout and the
	// protocol agree on what a valid account is.
	rawAccount, err := json.Marshal(req)
	if err != nil {
		return err
	}
	account, reason := payme.ValidateAccount(rawAccount)
	if reason != "" {
		return fiber.NewError(fiber.StatusBadRequest, reason)
	}

	payment := &models.Payment{
		UserID:   userID,
		Provider: provider,
		Status:   models.PaymentPending,
	}
	switch account.Kind {
	case payme.AccountTariff:
		plan, err := h.store.TariffByID(c.UserContext(), account.TariffID)
		if errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, payme.ReasonTariffNotFound)
		}
		if err != nil {
			return err
		}
		account.Plan = plan
		payment.Kind = models.KindTariffSubscription
		payment.Metadata = models.Metadata{
			PhoneNumber: account.Phone,
			TariffID:    account.TariffID.String(),
			MonthCount:  account.Months,
		}
	case payme.AccountBoost:
		if _, err := h.store.ServiceByPublicID(c.UserContext(), account.ServiceID); errors.Is(err, repository.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, payme.ReasonServiceNotFound)
		} else if err != nil {
			return err
		}
		payment.Kind = models.KindFeaturedService
		payment.Metadata = models.Metadata{
			PhoneNumber: account.Phone,
			ServiceID:   account.ServiceID,
			DaysCount:   account.Days,
		}
	}
	payment.Amount = float64(payme.ExpectedTiyins(account)) / 100

	if err := h.store.Create(c.UserContext(), payment); err != nil {
		return err
	}

	checkoutURL, err := prov.BuildPaymentURL(payment)
	if err != nil {
		return err
	}

	h.log.Info("checkout created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("provider", string(provider)),
		zap.String("kind", string(payment.Kind)))

	return c.JSON(fiber.Map{
		"payment_id": payment.ID,
		"amount":     payment.Amount,
		"url":        checkoutURL,
	})
}

// List returns the caller's payments, newest first.
func (h *CheckoutHandler) List(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	payments, total, err := h.store.ListByUser(
		c.UserContext(), userID,
		c.Query("provider"), c.Query("status"),
		pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    payments,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
