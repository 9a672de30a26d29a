package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/wellcare/billing/internal/api/dto"
	"github.com/wellcare/billing/internal/domain/catalog"
	"github.com/wellcare/billing/internal/domain/invoice"
	"github.com/wellcare/billing/internal/domain/patient"
	ierr "github.com/wellcare/billing/internal/errors"
	"github.com/wellcare/billing/internal/testutil"
	"github.com/wellcare/billing/internal/types"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service        InvoiceService
	paymentService PaymentService
	testData       struct {
		patient *patient.Patient
		consult *catalog.Service
	}
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
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
	s.service = NewInvoiceService(params)
	s.paymentService = NewPaymentService(params)

	s.setupTestData()
}

func (s *InvoiceServiceSuite) setupTestData() {
	s.testData.patient = &patient.Patient{
		ID:        "pat_01",
		UserID:    "user_patient_01",
		FirstName: "Ayesha",
		LastName:  "Rahman",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PatientRepo.(*testutil.InMemoryPatientStore).Add(s.GetContext(), s.testData.patient))

	s.testData.consult = &catalog.Service{
		ID:        "svc_consult",
		Code:      "CONSULT-GP",
		Name:      "General Consultation",
		Price:     decimal.RequireFromString("150.00"),
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().CatalogRepo.(*testutil.InMemoryCatalogStore).Add(s.GetContext(), s.testData.consult))
}

func invoiceNumber(year int, seq int64) string {
	return invoice.FormatInvoiceNumber(year, seq)
}

func (s *InvoiceServiceSuite) newInvoiceRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		PatientID:     s.testData.patient.ID,
		InvoiceType:   types.InvoiceTypeOPD,
		PaymentMethod: types.PaymentMethodCash,
		Items: []*dto.CreateInvoiceItemRequest{
			{Description: "Consultation", Quantity: 2, UnitPrice: decimal.RequireFromString("150.00")},
			{Description: "Lab panel", Quantity: 1, UnitPrice: decimal.RequireFromString("75.50")},
		},
	}
}

func (s *InvoiceServiceSuite) TestCreateInvoice() {
	resp, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)
	s.NotNil(resp)

	s.True(resp.TotalAmount.Equal(decimal.RequireFromString("375.50")))
	s.Equal(types.InvoiceStatusPending, resp.InvoiceStatus)
	s.Len(resp.Items, 2)
	s.NotNil(resp.Balance)
	s.True(resp.Balance.Remaining.Equal(decimal.RequireFromString("375.50")))
	s.True(resp.Balance.Paid.IsZero())
}

func (s *InvoiceServiceSuite) TestCreateInvoiceNumbering() {
	year := time.Now().UTC().Year()

	first, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)
	second, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	s.Equal(invoiceNumber(year, 1), first.InvoiceNumber)
	s.Equal(invoiceNumber(year, 2), second.InvoiceNumber)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceFromCatalog() {
	req := dto.CreateInvoiceRequest{
		PatientID:     s.testData.patient.ID,
		InvoiceType:   types.InvoiceTypeOPD,
		PaymentMethod: types.PaymentMethodCash,
		Items: []*dto.CreateInvoiceItemRequest{
			{ServiceID: &s.testData.consult.ID, Quantity: 2},
		},
	}

	resp, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)
	s.Equal("General Consultation", resp.Items[0].Description)
	s.True(resp.Items[0].UnitPrice.Equal(decimal.RequireFromString("150.00")))
	s.True(resp.TotalAmount.Equal(decimal.RequireFromString("300.00")))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceInsuranceCreditRequiresDueDate() {
	req := s.newInvoiceRequest()
	req.PaymentMethod = types.PaymentMethodInsuranceCredit

	_, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	due := time.Now().UTC().Add(30 * 24 * time.Hour)
	req.DueDate = &due
	resp, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)
	s.NotNil(resp.DueDate)
}

func (s *InvoiceServiceSuite) TestCreateInvoiceUnknownPatient() {
	req := s.newInvoiceRequest()
	req.PatientID = "pat_missing"

	_, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *InvoiceServiceSuite) TestCreateInvoiceWithoutItems() {
	req := s.newInvoiceRequest()
	req.Items = nil

	_, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestAddInvoiceItem() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	resp, err := s.service.AddInvoiceItem(s.GetContext(), created.ID, dto.AddInvoiceItemRequest{
		CreateInvoiceItemRequest: dto.CreateInvoiceItemRequest{
			Description: "Dressing change",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("24.50"),
		},
	})
	s.NoError(err)
	s.Len(resp.Items, 3)
	s.True(resp.TotalAmount.Equal(decimal.RequireFromString("400.00")))
}

func (s *InvoiceServiceSuite) TestAddItemToPaidInvoiceRejected() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     created.ID,
		Amount:        created.TotalAmount,
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	_, err = s.service.AddInvoiceItem(s.GetContext(), created.ID, dto.AddInvoiceItemRequest{
		CreateInvoiceItemRequest: dto.CreateInvoiceItemRequest{
			Description: "Extra item",
			Quantity:    1,
			UnitPrice:   decimal.RequireFromString("10.00"),
		},
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestRemoveInvoiceItem() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	var labItemID string
	for _, item := range created.Items {
		if item.Description == "Lab panel" {
			labItemID = item.ID
		}
	}
	s.NotEmpty(labItemID)

	resp, err := s.service.RemoveInvoiceItem(s.GetContext(), created.ID, labItemID)
	s.NoError(err)
	s.Len(resp.Items, 1)
	s.True(resp.TotalAmount.Equal(decimal.RequireFromString("300.00")))
}

func (s *InvoiceServiceSuite) TestRemoveLastItemRejected() {
	req := s.newInvoiceRequest()
	req.Items = req.Items[:1]
	created, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)

	_, err = s.service.RemoveInvoiceItem(s.GetContext(), created.ID, created.Items[0].ID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestRemoveItemBelowPaidRejected() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	// Pay 300.00, then try to drop the 300.00 consultation line, which
	// would leave a 75.50 total against 300.00 already collected.
	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     created.ID,
		Amount:        decimal.RequireFromString("300.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	var consultItemID string
	for _, item := range created.Items {
		if item.Description == "Consultation" {
			consultItemID = item.ID
		}
	}

	_, err = s.service.RemoveInvoiceItem(s.GetContext(), created.ID, consultItemID)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *InvoiceServiceSuite) TestRecalculateInvoiceStatusIdempotent() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     created.ID,
		Amount:        decimal.RequireFromString("100.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	first, err := s.service.RecalculateInvoiceStatus(s.GetContext(), created.ID)
	s.NoError(err)
	second, err := s.service.RecalculateInvoiceStatus(s.GetContext(), created.ID)
	s.NoError(err)

	s.Equal(types.InvoiceStatusPartiallyPaid, first.InvoiceStatus)
	s.Equal(first.InvoiceStatus, second.InvoiceStatus)
}

func (s *InvoiceServiceSuite) TestMarkOverdueInvoices() {
	future := time.Now().UTC().Add(24 * time.Hour)
	past := time.Now().UTC().Add(-48 * time.Hour)

	// Invoices cannot be created already past due, so backdate through
	// the administrative override once they exist.
	req := s.newInvoiceRequest()
	req.PaymentMethod = types.PaymentMethodInsuranceCredit
	req.DueDate = &future
	overdueInv, err := s.service.CreateInvoice(s.GetContext(), req)
	s.NoError(err)
	_, err = s.service.UpdateInvoice(s.GetContext(), overdueInv.ID, dto.UpdateInvoiceRequest{DueDate: &past})
	s.NoError(err)

	// A second past-due invoice that gets fully paid must not be flagged.
	paidReq := s.newInvoiceRequest()
	paidReq.PaymentMethod = types.PaymentMethodInsuranceCredit
	paidReq.DueDate = &future
	paidInv, err := s.service.CreateInvoice(s.GetContext(), paidReq)
	s.NoError(err)
	_, err = s.service.UpdateInvoice(s.GetContext(), paidInv.ID, dto.UpdateInvoiceRequest{DueDate: &past})
	s.NoError(err)
	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     paidInv.ID,
		Amount:        paidInv.TotalAmount,
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	count, err := s.service.MarkOverdueInvoices(s.GetContext())
	s.NoError(err)
	s.Equal(1, count)

	got, err := s.service.GetInvoice(s.GetContext(), overdueInv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusOverdue, got.InvoiceStatus)

	stillPaid, err := s.service.GetInvoice(s.GetContext(), paidInv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, stillPaid.InvoiceStatus)

	// Second sweep finds nothing left to transition.
	count, err = s.service.MarkOverdueInvoices(s.GetContext())
	s.NoError(err)
	s.Equal(0, count)
}

func (s *InvoiceServiceSuite) TestGetReceipt() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	earlier := time.Now().UTC().Add(-2 * time.Hour)
	later := time.Now().UTC().Add(-1 * time.Hour)
	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     created.ID,
		Amount:        decimal.RequireFromString("200.00"),
		PaymentMethod: types.PaymentMethodCash,
		PaidAt:        &earlier,
	})
	s.NoError(err)
	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     created.ID,
		Amount:        decimal.RequireFromString("175.50"),
		PaymentMethod: types.PaymentMethodCash,
		PaidAt:        &later,
	})
	s.NoError(err)

	receipt, err := s.service.GetReceipt(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("Ayesha Rahman", receipt.PatientName)
	s.Equal(created.InvoiceNumber, receipt.InvoiceNumber)
	s.Len(receipt.Lines, 2)
	s.Len(receipt.Payments, 2)
	s.Equal("200.00", receipt.Payments[0].Amount)
	s.Equal("175.50", receipt.Payments[1].Amount)
	s.Equal("375.50", receipt.TotalAmount)
	s.Equal("375.50", receipt.AmountPaid)
	s.Equal("0.00", receipt.Balance)
	s.NotEmpty(receipt.Payments[0].ReceiptNumber)
}

func (s *InvoiceServiceSuite) TestPatientAccessControl() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	ownerCtx := types.SetUserID(s.GetContext(), s.testData.patient.UserID)
	ownerCtx = types.SetUserRole(ownerCtx, types.UserRolePatient)
	got, err := s.service.GetInvoice(ownerCtx, created.ID)
	s.NoError(err)
	s.Equal(created.ID, got.ID)

	other := &patient.Patient{
		ID:        "pat_02",
		UserID:    "user_patient_02",
		FirstName: "Imran",
		LastName:  "Hossain",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PatientRepo.(*testutil.InMemoryPatientStore).Add(s.GetContext(), other))

	strangerCtx := types.SetUserID(s.GetContext(), other.UserID)
	strangerCtx = types.SetUserRole(strangerCtx, types.UserRolePatient)
	_, err = s.service.GetInvoice(strangerCtx, created.ID)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *InvoiceServiceSuite) TestListInvoicesScopedToPatient() {
	_, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	other := &patient.Patient{
		ID:        "pat_02",
		UserID:    "user_patient_02",
		FirstName: "Imran",
		LastName:  "Hossain",
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PatientRepo.(*testutil.InMemoryPatientStore).Add(s.GetContext(), other))

	otherReq := s.newInvoiceRequest()
	otherReq.PatientID = other.ID
	_, err = s.service.CreateInvoice(s.GetContext(), otherReq)
	s.NoError(err)

	adminList, err := s.service.ListInvoices(s.GetContext(), types.NewInvoiceFilter())
	s.NoError(err)
	s.Equal(2, adminList.Pagination.Total)

	patientCtx := types.SetUserID(s.GetContext(), s.testData.patient.UserID)
	patientCtx = types.SetUserRole(patientCtx, types.UserRolePatient)
	patientList, err := s.service.ListInvoices(patientCtx, types.NewInvoiceFilter())
	s.NoError(err)
	s.Equal(1, patientList.Pagination.Total)
	s.Equal(s.testData.patient.ID, patientList.Items[0].PatientID)
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceRequiresAdmin() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	due := time.Now().UTC().Add(7 * 24 * time.Hour)
	staffCtx := types.SetUserRole(s.GetContext(), types.UserRoleStaff)
	_, err = s.service.UpdateInvoice(staffCtx, created.ID, dto.UpdateInvoiceRequest{DueDate: &due})
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{DueDate: &due})
	s.NoError(err)
	s.NotNil(resp.DueDate)
	s.True(resp.DueDate.Equal(due))
}

func (s *InvoiceServiceSuite) TestCreateInvoicePastDueDateRejected() {
	past := time.Now().UTC().Add(-72 * time.Hour)

	req := s.newInvoiceRequest()
	req.PaymentMethod = types.PaymentMethodInsuranceCredit
	req.DueDate = &past
	_, err := s.service.CreateInvoice(s.GetContext(), req)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	// The rule is not specific to insurance credit.
	cashReq := s.newInvoiceRequest()
	cashReq.DueDate = &past
	_, err = s.service.CreateInvoice(s.GetContext(), cashReq)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestUpdateInvoiceTotalOverride() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	_, err = s.paymentService.RecordPayment(s.GetContext(), dto.RecordPaymentRequest{
		InvoiceID:     created.ID,
		Amount:        decimal.RequireFromString("200.00"),
		PaymentMethod: types.PaymentMethodCash,
	})
	s.NoError(err)

	// The override is taken as-is, not recomputed from the line items,
	// and the settlement status follows the new total.
	newTotal := decimal.RequireFromString("200.00")
	resp, err := s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{TotalAmount: &newTotal})
	s.NoError(err)
	s.True(resp.TotalAmount.Equal(newTotal))
	s.Equal(types.InvoiceStatusPaid, resp.InvoiceStatus)
	s.True(resp.Balance.Remaining.IsZero())

	belowPaid := decimal.RequireFromString("150.00")
	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{TotalAmount: &belowPaid})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	fractional := decimal.RequireFromString("250.005")
	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{TotalAmount: &fractional})
	s.Error(err)
	s.True(ierr.IsValidation(err))

	negative := decimal.RequireFromString("-10.00")
	_, err = s.service.UpdateInvoice(s.GetContext(), created.ID, dto.UpdateInvoiceRequest{TotalAmount: &negative})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *InvoiceServiceSuite) TestStaffInvoiceReadRequiresPermission() {
	created, err := s.service.CreateInvoice(s.GetContext(), s.newInvoiceRequest())
	s.NoError(err)

	staffCtx := types.SetUserID(s.GetContext(), "user_staff_01")
	staffCtx = types.SetUserRole(staffCtx, types.UserRoleStaff)

	_, err = s.service.GetInvoice(staffCtx, created.ID)
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	_, err = s.service.ListInvoices(staffCtx, types.NewInvoiceFilter())
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	grantedCtx := types.SetPermissions(staffCtx, []string{types.PermissionProcessPayments})
	got, err := s.service.GetInvoice(grantedCtx, created.ID)
	s.NoError(err)
	s.Equal(created.ID, got.ID)

	list, err := s.service.ListInvoices(grantedCtx, types.NewInvoiceFilter())
	s.NoError(err)
	s.Equal(1, list.Pagination.Total)
}
