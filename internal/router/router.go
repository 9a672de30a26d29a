package router

import (
	"github.com/gin-gonic/gin"
	v1 "github.com/wellcare/billing/internal/api/v1"
	"github.com/wellcare/billing/internal/config"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/rest/middleware"
	"github.com/wellcare/billing/internal/types"
)

// Handlers holds every HTTP handler the router mounts
type Handlers struct {
	Health  *v1.HealthHandler
	Invoice *v1.InvoiceHandler
	Payment *v1.PaymentHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	private := router.Group("/v1")
	private.Use(middleware.AuthenticateMiddleware(cfg, log))
	{
		invoices := private.Group("/invoices")
		{
			invoices.POST("", handlers.Invoice.CreateInvoice)
			invoices.GET("", handlers.Invoice.ListInvoices)
			invoices.GET("/:id", handlers.Invoice.GetInvoice)
			invoices.PUT("/:id", handlers.Invoice.UpdateInvoice)
			invoices.POST("/:id/items", handlers.Invoice.AddInvoiceItem)
			invoices.DELETE("/:id/items/:item_id", handlers.Invoice.RemoveInvoiceItem)
			invoices.GET("/:id/payments", handlers.Payment.ListPaymentsByInvoice)
			invoices.GET("/:id/receipt", handlers.Invoice.GetReceipt)
			invoices.POST("/:id/recalculate", handlers.Invoice.RecalculateInvoiceStatus)
		}

		patients := private.Group("/patients")
		{
			patients.GET("/:id/payments", handlers.Payment.ListPaymentsByPatient)
		}

		payments := private.Group("/payments")
		{
			payments.POST("", handlers.Payment.RecordPayment)
			payments.GET("", handlers.Payment.ListPayments)
			payments.GET("/:id", handlers.Payment.GetPayment)
		}

		admin := private.Group("/admin")
		{
			admin.POST("/invoices/overdue-sweep", handlers.Invoice.MarkOverdueInvoices)
			admin.GET("/payments/stats", handlers.Payment.GetPaymentStats)
		}
	}

	return router
}
