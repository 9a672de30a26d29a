package service

import (
	"github.com/wellcare/billing/internal/config"
	"github.com/wellcare/billing/internal/domain/catalog"
	"github.com/wellcare/billing/internal/domain/invoice"
	"github.com/wellcare/billing/internal/domain/patient"
	"github.com/wellcare/billing/internal/domain/payment"
	"github.com/wellcare/billing/internal/logger"
	"github.com/wellcare/billing/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	// Repositories
	InvoiceRepo invoice.Repository
	PaymentRepo payment.Repository
	PatientRepo patient.Repository
	CatalogRepo catalog.Repository
}

// Common service params
func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	invoiceRepo invoice.Repository,
	paymentRepo payment.Repository,
	patientRepo patient.Repository,
	catalogRepo catalog.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:      logger,
		Config:      config,
		DB:          db,
		InvoiceRepo: invoiceRepo,
		PaymentRepo: paymentRepo,
		PatientRepo: patientRepo,
		CatalogRepo: catalogRepo,
	}
}
