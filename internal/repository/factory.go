package repository

import (
	"github.com/wellcare/billing/internal/cache"
	"github.com/wellcare/billing/internal/domain/catalog"
	"github.com/wellcare/billing/internal/domain/invoice"
	"github.com/wellcare/billing/internal/domain/patient"
	"github.com/wellcare/billing/internal/domain/payment"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
	postgresRepo "github.com/wellcare/billing/internal/repository/postgres"
)

func NewInvoiceRepository(client postgres.IClient, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(client, logger)
}

func NewPaymentRepository(client postgres.IClient, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(client, logger)
}

func NewPatientRepository(client postgres.IClient, logger *logger.Logger) patient.Repository {
	return postgresRepo.NewPatientRepository(client, logger)
}

func NewCatalogRepository(client postgres.IClient, logger *logger.Logger, c cache.Cache) catalog.Repository {
	return postgresRepo.NewCatalogRepository(client, logger, c)
}
