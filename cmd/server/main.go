package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/joyla/internal/config"
	"github.com/example/joyla/internal/database"
	"github.com/example/joyla/internal/routes"
)

func main() {
	cfg := config.Load()

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	db := database.Connect(cfg.DatabaseURL)

	app := fiber.New(fiber.Config{
		AppName: "Joyla Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	if err := routes.Register(app, db, cfg, appLogger); err != nil {
		appLogger.Fatal("route registration failed", zap.Error(err))
	}

	appLogger.Info("starting server", zap.String("port", cfg.AppPort), zap.String("env", cfg.AppEnv))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		appLogger.Fatal("fiber.Listen error", zap.Error(err))
	}
}
