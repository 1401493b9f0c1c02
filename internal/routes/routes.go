package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/joyla/internal/config"
	"github.com/example/joyla/internal/handlers"
	"github.com/example/joyla/internal/middleware"
	"github.com/example/joyla/internal/models"
	"github.com/example/joyla/internal/payme"
	"github.com/example/joyla/internal/repository"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	store := repository.NewPaymentStore(db)

	creds := &payme.Credentials{
		Tariff: payme.Terminal{
			MerchantID: cfg.PaymeTariffMerchantID,
			Secret:     cfg.PaymeTariffSecretKey,
		},
		Boost: payme.Terminal{
			MerchantID: cfg.PaymeBoostMerchantID,
			Secret:     cfg.PaymeBoostSecretKey,
		},
		SandboxSecret: cfg.PaymeSandboxSecretKey,
	}

	paymeProvider, err := payme.NewPaymeProvider(creds, cfg.PaymeCheckoutURL())
	if err != nil {
		return err
	}
	clickProvider := payme.NewClickProvider(cfg.ClickMerchantID, cfg.ClickServiceID, cfg.ClickSecretKey, cfg.ClickAPIURL)

	fulfillment := payme.NewFulfillment(log)
	paymeService := payme.NewService(store, fulfillment, log)

	authHandler := handlers.NewAuthHandler(db, cfg)
	clickHandler := handlers.NewClickHandler(clickProvider, store, fulfillment, log)
	paymeHandler := handlers.NewPaymeHandler(paymeService, clickHandler.Webhook, log)
	checkoutHandler := handlers.NewCheckoutHandler(store, map[models.PaymentProvider]payme.Provider{
		models.ProviderPayme: paymeProvider,
		models.ProviderClick: clickProvider,
	}, log)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// Processor-facing endpoints
	api.Post("/payme/pay", middleware.PaymeAuth(creds, log), paymeHandler.Pay)
	api.Post("/click/webhook", clickHandler.Webhook)

	// Merchant-facing endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg))
	protected.Post("/payments/checkout", checkoutHandler.Create)
	protected.Get("/payments", checkoutHandler.List)

	return nil
}
