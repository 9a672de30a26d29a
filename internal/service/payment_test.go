package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/suite"
	"github.com/wellcare/billing/internal/api/dto"
	"github.com/wellcare/billing/internal/domain/patient"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/testutil"
	"github.com/wellcare/billing/internal/types"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        PaymentService
	invoiceService InvoiceService
	testData       struct {
		patient *patient.Patient
		invoice *dto.InvoiceResponse
	}
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := ServiceParams{
		Logger:      s.GetLogger(),
		Config:      s.GetConfig(),
		DB:          s.GetDB(),
		InvoiceRepo: s.GetStores().InvoiceRepo,
		PaymentRepo: s.GetStores().PaymentRepo,
		PatientRepo: s.GetStores().PatientRepo,
		CatalogRepo: s.GetStores().CatalogRepo,
	}
	s.service = NewPaymentService(params)
	s.invoiceService = NewInvoiceService(params)

	s.setupTestData()
}

func (s *PaymentServiceSuite) setupTestData() {
	s.testData.patient = &patient.Patient{
		ID:        "pat_01",
		UserID:    "user_patient_01",
		FirstName: "Ayesha",
		LastName:  "Rahman",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PatientRepo.(*testutil.InMemoryPatientStore).Add(s.GetContext(), s.testData.patient))

	// 2 x 150.00 + 1 x 75.50 = 375.50
	created, err := s.invoiceService.CreateInvoice(s.GetContext(), dto.CreateInvoiceRequest{
		PatientID:     s.testData.patient.ID,
		InvoiceType:   types.InvoiceTypeOPD,
		PaymentMethod: types.PaymentMethodCash,
		Items: []*dto.CreateInvoiceItemRequest{
			{Description: "Consultation", Quantity: 2, UnitPrice: decimal.RequireFromString("150.00")},
			{Description: "Lab panel", Quantity: 1, UnitPrice: decimal.RequireFromString("75.50")},
		},
	})
	s.Require().NoError(err)
	s.testData.invoice = created
}

func (s *PaymentServiceSuite) record(amount string) (*dto.RecordPaymentResponse, error) {
	return s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: types.PaymentMethodCash,
	})
}

func (s *PaymentServiceSuite) TestRecordPaymentPartialThenFull() {
	first, err := s.record("200.00")
	s.NoError(err)
	s.Equal(types.InvoiceStatusPartiallyPaid, first.InvoiceStatus)
	s.True(first.Balance.Remaining.Equal(decimal.RequireFromString("175.50")))
	s.NotEmpty(first.ReceiptNumber)

	second, err := s.record("175.50")
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, second.InvoiceStatus)
	s.True(second.Balance.Remaining.IsZero())

	// The settled invoice accepts nothing further, not even a cent.
	_, err = s.record("0.01")
	s.Error(err)
	s.True(ierr.IsOverpayment(err))
}

func (s *PaymentServiceSuite) TestRecordPaymentOverpaymentRejected() {
	_, err := s.record("400.00")
	s.Error(err)
	s.True(ierr.IsOverpayment(err))

	// Nothing was written and the invoice is untouched.
	got, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPending, got.InvoiceStatus)
	s.True(got.Balance.Paid.IsZero())
}

func (s *PaymentServiceSuite) TestRecordPaymentCardRequiresTransactionID() {
	_, err := s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCard,
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	txID := "txn_8842"
	resp, err := s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCard,
		TransactionID: &txID,
	})
	s.NoError(err)
	s.Equal(txID, *resp.TransactionID)
}

func (s *PaymentServiceSuite) TestRecordPaymentDuplicateTransactionRejected() {
	txID := "txn_1001"
	_, err := s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCard,
		TransactionID: &txID,
	})
	s.NoError(err)

	_, err = s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: types.PaymentMethodCard,
		TransactionID: &txID,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PaymentServiceSuite) TestPendingPaymentReservesBalance() {
	pending := types.PaymentStatusPending
	resp, err := s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("200.00"),
		PaymentMethod: types.PaymentMethodInsurance,
		PaymentStatus: &pending,
	})
	s.NoError(err)
	// A pending payment reserves balance without counting as paid.
	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)
	s.True(resp.Balance.Pending.Equal(decimal.RequireFromString("200.00")))
	s.True(resp.Balance.Available.Equal(decimal.RequireFromString("175.50")))

	// A completed payment may only consume what the reservation left over.
	_, err = s.record("200.00")
	s.Error(err)
	s.True(ierr.IsOverpayment(err))

	last, err := s.record("175.50")
	s.NoError(err)
	s.True(last.Balance.Available.IsZero())
}

func (s *PaymentServiceSuite) TestOverpaymentErrorDetails() {
	_, err := s.record("200.00")
	s.NoError(err)

	_, err = s.record("200.00")
	s.Error(err)
	s.True(ierr.IsOverpayment(err))
}

func (s *PaymentServiceSuite) TestConcurrentPaymentsNeverOverdraw() {
	// Two clerks race to collect 200.00 each against a 375.50 invoice.
	// The row lock serializes them: the first succeeds, the second sees
	// only 175.50 available and is refused.
	var succeeded, overpaid atomic.Int32

	var wg conc.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Go(func() {
			_, err := s.record("200.00")
			switch {
			case err == nil:
				succeeded.Add(1)
			case ierr.IsOverpayment(err):
				overpaid.Add(1)
			default:
				s.T().Errorf("unexpected error: %v", err)
			}
		})
	}
	wg.Wait()

	s.Equal(int32(1), succeeded.Load())
	s.Equal(int32(1), overpaid.Load())

	got, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(got.Balance.Paid.Equal(decimal.RequireFromString("200.00")))
	s.True(got.Balance.Paid.LessThanOrEqual(got.TotalAmount))
	s.Equal(types.InvoiceStatusPartiallyPaid, got.InvoiceStatus)
}

func (s *PaymentServiceSuite) TestConcurrentExactSettlement() {
	// Many small racing payments can never push the collected sum past
	// the invoice total.
	var wg conc.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Go(func() {
			_, _ = s.record("100.00")
		})
	}
	wg.Wait()

	got, err := s.invoiceService.GetInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.True(got.Balance.Paid.LessThanOrEqual(got.TotalAmount))
}

func (s *PaymentServiceSuite) TestPatientCannotRecordPayment() {
	patientCtx := types.SetUserID(s.GetContext(), s.testData.patient.UserID)
	patientCtx = types.SetUserRole(patientCtx, types.UserRolePatient)

	_, err := s.service.RecordPayment(patientCtx, dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *PaymentServiceSuite) TestStaffPermissions() {
	staffCtx := types.SetUserID(s.GetContext(), "user_staff_01")
	staffCtx = types.SetUserRole(staffCtx, types.UserRoleStaff)

	_, err := s.service.RecordPayment(staffCtx, dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	grantedCtx := types.SetPermissions(staffCtx, []string{types.PermissionProcessPayments})
	resp, err := s.service.RecordPayment(grantedCtx, dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)
	s.Equal("user_staff_01", *resp.RecordedBy)
}

func (s *PaymentServiceSuite) TestListPaymentsByInvoiceOrdered() {
	older := time.Now().UTC().Add(-3 * time.Hour)
	newer := time.Now().UTC().Add(-1 * time.Hour)

	_, err := s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("50.00"),
		PaymentMethod: types.PaymentMethodCash,
		PaidAt:        &newer,
	})
	s.NoError(err)
	_, err = s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("25.00"),
		PaymentMethod: types.PaymentMethodCash,
		PaidAt:        &older,
	})
	s.NoError(err)

	resp, err := s.service.ListPaymentsByInvoice(s.GetContext(), s.testData.invoice.ID)
	s.NoError(err)
	s.Len(resp.Items, 2)
	s.True(resp.Items[0].Amount.Equal(decimal.RequireFromString("25.00")))
	s.True(resp.Items[1].Amount.Equal(decimal.RequireFromString("50.00")))
}

func (s *PaymentServiceSuite) TestGetPaymentStats() {
	_, err := s.record("200.00")
	s.NoError(err)

	pending := types.PaymentStatusPending
	_, err = s.service.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     s.testData.invoice.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodInsurance,
		PaymentStatus: &pending,
	})
	s.NoError(err)

	stats, err := s.service.GetPaymentStats(s.GetContext())
	s.NoError(err)
	s.True(stats.TotalCollected.Equal(decimal.RequireFromString("200.00")))
	s.True(stats.TotalPending.Equal(decimal.RequireFromString("100.00")))
	s.Equal(1, stats.CompletedCount)
	s.Equal(1, stats.PendingCount)
	s.True(stats.ByMethod[types.PaymentMethodCash].Equal(decimal.RequireFromString("200.00")))

	staffCtx := types.SetUserRole(s.GetContext(), types.UserRoleStaff)
	staffCtx = types.SetPermissions(staffCtx, []string{types.PermissionProcessPayments})
	_, err = s.service.GetPaymentStats(staffCtx)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *PaymentServiceSuite) TestGetPaymentAccess() {
	resp, err := s.record("100.00")
	s.NoError(err)

	got, err := s.service.GetPayment(s.GetContext(), resp.ID)
	s.NoError(err)
	s.Equal(resp.ID, got.ID)

	ownerCtx := types.SetUserID(s.GetContext(), s.testData.patient.UserID)
	ownerCtx = types.SetUserRole(ownerCtx, types.UserRolePatient)
	_, err = s.service.GetPayment(ownerCtx, resp.ID)
	s.NoError(err)

	// Staff read payments only with the payment processing permission.
	staffCtx := types.SetUserID(s.GetContext(), "user_staff_01")
	staffCtx = types.SetUserRole(staffCtx, types.UserRoleStaff)
	_, err = s.service.GetPayment(staffCtx, resp.ID)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	grantedCtx := types.SetPermissions(staffCtx, []string{types.PermissionProcessPayments})
	_, err = s.service.GetPayment(grantedCtx, resp.ID)
	s.NoError(err)
}

func (s *PaymentServiceSuite) TestListPaymentsByPatient() {
	store := s.GetStores().PaymentRepo.(*testutil.InMemoryPaymentStore)
	store.LinkInvoicePatient(s.testData.invoice.ID, s.testData.patient.ID)

	_, err := s.record("50.00")
	s.NoError(err)
	_, err = s.record("25.00")
	s.NoError(err)

	resp, err := s.service.ListPaymentsByPatient(s.GetContext(), s.testData.patient.ID, nil)
	s.NoError(err)
	s.Len(resp.Items, 2)

	// Patients may only list their own payments.
	ownerCtx := types.SetUserID(s.GetContext(), s.testData.patient.UserID)
	ownerCtx = types.SetUserRole(ownerCtx, types.UserRolePatient)
	resp, err = s.service.ListPaymentsByPatient(ownerCtx, s.testData.patient.ID, nil)
	s.NoError(err)
	s.Len(resp.Items, 2)

	other := &patient.Patient{
		ID:        "pat_02",
		UserID:    "user_patient_02",
		FirstName: "Imran",
		LastName:  "Hossain",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PatientRepo.(*testutil.InMemoryPatientStore).Add(s.GetContext(), other))

	_, err = s.service.ListPaymentsByPatient(ownerCtx, other.ID, nil)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	_, err = s.service.ListPaymentsByPatient(s.GetContext(), "pat_missing", nil)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
