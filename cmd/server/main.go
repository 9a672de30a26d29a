package main

import (
	"context"
	"time"

	valid "github.com/go-playground/validator/v10"
	v1 "github.com/wellcare/billing/internal/api/v1"
	"github.com/wellcare/billing/internal/cache"
	"github.com/wellcare/billing/internal/config"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	"github.com/wellcare/billing/internal/repository"
	"github.com/wellcare/billing/internal/router"
	"github.com/wellcare/billing/internal/service"
	"github.com/wellcare/billing/internal/validator"
	"go.uber.org/fx"

	"github.com/gin-gonic/gin"
)

// @title WellCare Billing API
// @version 1.0
// @description Invoice and payment settlement service for the WellCare clinic
// @BasePath /v1
// @schemes http https
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Validator
			validator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.Initialize,
			func(c *cache.InMemoryCache) cache.Cache { return c },

			// Postgres
			postgres.NewDB,
			postgres.NewClient,
			func(c *postgres.Client) postgres.IClient { return c },

			// Repositories
			repository.NewInvoiceRepository,
			repository.NewPaymentRepository,
			repository.NewPatientRepository,
			repository.NewCatalogRepository,

			// Services
			service.NewServiceParams,
			service.NewInvoiceService,
			service.NewPaymentService,

			// API
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func provideHandlers(
	log *logger.Logger,
	_ *valid.Validate,
	invoiceService service.InvoiceService,
	paymentService service.PaymentService,
) router.Handlers {
	return router.Handlers{
		Health:  v1.NewHealthHandler(),
		Invoice: v1.NewInvoiceHandler(invoiceService, log),
		Payment: v1.NewPaymentHandler(paymentService, log),
	}
}

func provideRouter(handlers router.Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	return router.NewRouter(handlers, cfg, log)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
