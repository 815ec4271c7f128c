package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bbqsrc/collectiva/internal/gateway"
	"github.com/bbqsrc/collectiva/internal/model"
	"github.com/bbqsrc/collectiva/internal/repository"
)

type stubCharger struct {
	chargeID string
	err      error
	calls    int
	amounts  []float64
}

func (c *stubCharger) ChargeCard(ctx context.Context, token string, amount float64) (string, error) {
	c.calls++
	c.amounts = append(c.amounts, amount)
	if c.err != nil {
		return "", c.err
	}
	return c.chargeID, nil
}

func TestDeriveReference(t *testing.T) {
	tests := []struct {
		membershipType model.MembershipType
		invoiceID      int64
		want           string
	}{
		{model.MembershipFull, 1, "FUL1"},
		{model.MembershipFull, 42, "FUL42"},
		{model.MembershipSupporter, 12, "SUP12"},
		{model.MembershipPermanentResident, 7, "PER7"},
		{model.MembershipInternationalSupporter, 3, "INT3"},
	}

	for _, tt := range tests {
		if got := deriveReference(tt.membershipType, tt.invoiceID); got != tt.want {
			t.Fatalf("deriveReference(%q, %d) = %q, want %q", tt.membershipType, tt.invoiceID, got, tt.want)
		}
	}
}

func TestCreateEmptyInvoice_UnknownMembershipType(t *testing.T) {
	svc := NewService(&stubRepo{}, nil, nil, "http://localhost", nil)

	_, err := svc.CreateEmptyInvoice(context.Background(), "sherlock@holmes.co.uk", model.MembershipType("lifetime"))
	if !errors.Is(err, ErrInvoiceCreation) {
		t.Fatalf("expected ErrInvoiceCreation, got %v", err)
	}
}

func TestCreateEmptyInvoice_OpaqueOnRepositoryFailure(t *testing.T) {
	repo := &stubRepo{
		createInvoiceErr: errors.New("connection refused"),
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	_, err := svc.CreateEmptyInvoice(context.Background(), "sherlock@holmes.co.uk", model.MembershipFull)
	if !errors.Is(err, ErrInvoiceCreation) {
		t.Fatalf("expected ErrInvoiceCreation, got %v", err)
	}
}

func TestPayForInvoice_ValidationBeforeCharge(t *testing.T) {
	charger := &stubCharger{chargeID: "ch_1"}
	svc := NewService(&stubRepo{}, charger, nil, "http://localhost", nil)

	_, err := svc.PayForInvoice(context.Background(), model.Payment{
		InvoiceID:   1,
		TotalAmount: -10,
		PaymentType: model.PaymentTypeStripe,
		StripeToken: "tok_visa",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if charger.calls != 0 {
		t.Fatalf("card must not be charged on invalid input, got %d calls", charger.calls)
	}
}

func TestPayForInvoice_StripeSuccess(t *testing.T) {
	txn := "ch_123"
	repo := &stubRepo{
		invoice: &model.Invoice{
			ID:                 1,
			TotalAmountInCents: 8888,
			PaymentType:        model.PaymentTypeStripe,
			PaymentStatus:      model.PaymentStatusEmpty,
		},
	}
	charger := &stubCharger{chargeID: txn}
	svc := NewService(repo, charger, nil, "http://localhost", nil)

	_, err := svc.PayForInvoice(context.Background(), model.Payment{
		InvoiceID:   1,
		TotalAmount: 88.88,
		PaymentType: model.PaymentTypeStripe,
		StripeToken: "tok_visa",
	})
	if err != nil {
		t.Fatalf("PayForInvoice error: %v", err)
	}

	if charger.calls != 1 {
		t.Fatalf("charger calls = %d, want 1", charger.calls)
	}
	if charger.amounts[0] != 88.88 {
		t.Fatalf("charged amount = %v, want 88.88", charger.amounts[0])
	}
	if repo.updatePayment == nil {
		t.Fatalf("invoice payment must be updated")
	}
	if repo.updatePayment.amountCents != 8888 {
		t.Fatalf("amountCents = %d, want 8888", repo.updatePayment.amountCents)
	}
	if repo.updatePayment.status != model.PaymentStatusPaid {
		t.Fatalf("status = %q, want %q", repo.updatePayment.status, model.PaymentStatusPaid)
	}
	if repo.updatePayment.transactionID == nil || *repo.updatePayment.transactionID != txn {
		t.Fatalf("transactionID = %v, want %q", repo.updatePayment.transactionID, txn)
	}
}

func TestPayForInvoice_CardDeclined(t *testing.T) {
	repo := &stubRepo{
		invoice: &model.Invoice{ID: 1, PaymentStatus: model.PaymentStatusEmpty},
	}
	charger := &stubCharger{err: &gateway.ChargeCardError{Message: "Your card was declined."}}
	svc := NewService(repo, charger, nil, "http://localhost", nil)

	_, err := svc.PayForInvoice(context.Background(), model.Payment{
		InvoiceID:   1,
		TotalAmount: 88.88,
		PaymentType: model.PaymentTypeStripe,
		StripeToken: "tok_chargeDeclined",
	})

	var cerr *gateway.ChargeCardError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ChargeCardError, got %v", err)
	}
	if cerr.Message != "Your card was declined." {
		t.Fatalf("message = %q, want gateway message", cerr.Message)
	}
	if repo.updatePayment != nil {
		t.Fatalf("declined charge must not update the invoice")
	}
}

func TestPayForInvoice_AlreadyPaid(t *testing.T) {
	repo := &stubRepo{
		invoice: &model.Invoice{ID: 1, PaymentStatus: model.PaymentStatusPaid},
	}
	charger := &stubCharger{chargeID: "ch_1"}
	svc := NewService(repo, charger, nil, "http://localhost", nil)

	_, err := svc.PayForInvoice(context.Background(), model.Payment{
		InvoiceID:   1,
		TotalAmount: 88.88,
		PaymentType: model.PaymentTypeStripe,
		StripeToken: "tok_visa",
	})
	if !errors.Is(err, ErrInvoiceAlreadyPaid) {
		t.Fatalf("expected ErrInvoiceAlreadyPaid, got %v", err)
	}
	if charger.calls != 0 {
		t.Fatalf("card must not be charged for a paid invoice, got %d calls", charger.calls)
	}
}

func TestPayForInvoice_DepositStaysPending(t *testing.T) {
	repo := &stubRepo{
		invoice: &model.Invoice{
			ID:                 1,
			TotalAmountInCents: 8888,
			PaymentType:        model.PaymentTypeDeposit,
			PaymentStatus:      model.PaymentStatusPending,
		},
	}
	charger := &stubCharger{}
	svc := NewService(repo, charger, nil, "http://localhost", nil)

	invoice, err := svc.PayForInvoice(context.Background(), model.Payment{
		InvoiceID:   1,
		TotalAmount: 88.88,
		PaymentType: model.PaymentTypeDeposit,
	})
	if err != nil {
		t.Fatalf("PayForInvoice error: %v", err)
	}

	if charger.calls != 0 {
		t.Fatalf("manual payment must not touch the card gateway, got %d calls", charger.calls)
	}
	if repo.updatePayment.amountCents != 8888 {
		t.Fatalf("amountCents = %d, want 8888", repo.updatePayment.amountCents)
	}
	if repo.updatePayment.status != model.PaymentStatusPending {
		t.Fatalf("status = %q, want %q", repo.updatePayment.status, model.PaymentStatusPending)
	}
	if repo.updatePayment.transactionID != nil {
		t.Fatalf("manual payment must not set a transaction id")
	}
	if invoice.PaymentStatus != model.PaymentStatusPending {
		t.Fatalf("returned status = %q, want %q", invoice.PaymentStatus, model.PaymentStatusPending)
	}
}

func TestPayForInvoice_NoContribute(t *testing.T) {
	repo := &stubRepo{
		invoice: &model.Invoice{
			ID:            1,
			PaymentType:   model.PaymentTypeNoContribute,
			PaymentStatus: model.PaymentStatusPaid,
		},
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	_, err := svc.PayForInvoice(context.Background(), model.Payment{
		InvoiceID:   1,
		TotalAmount: 0,
		PaymentType: model.PaymentTypeNoContribute,
	})
	if err != nil {
		t.Fatalf("PayForInvoice error: %v", err)
	}

	if repo.updatePayment.amountCents != 0 {
		t.Fatalf("amountCents = %d, want 0", repo.updatePayment.amountCents)
	}
	if repo.updatePayment.status != model.PaymentStatusPaid {
		t.Fatalf("status = %q, want %q", repo.updatePayment.status, model.PaymentStatusPaid)
	}
}

func TestPayPalChargeSuccess_Settles(t *testing.T) {
	repo := &stubRepo{settleRows: 1}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	if err := svc.PayPalChargeSuccess(context.Background(), 1, "TXN1"); err != nil {
		t.Fatalf("PayPalChargeSuccess error: %v", err)
	}
}

func TestPayPalChargeSuccess_DuplicateNotification(t *testing.T) {
	txn := "TXN1"
	repo := &stubRepo{
		settleRows: 0,
		invoice: &model.Invoice{
			ID:            1,
			PaymentStatus: model.PaymentStatusPaid,
			TransactionID: &txn,
		},
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	if err := svc.PayPalChargeSuccess(context.Background(), 1, txn); err != nil {
		t.Fatalf("duplicate notification must be ignored, got %v", err)
	}
}

func TestPayPalChargeSuccess_UnknownInvoice(t *testing.T) {
	repo := &stubRepo{
		settleRows: 0,
		invoiceErr: repository.ErrInvoiceNotFound,
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	err := svc.PayPalChargeSuccess(context.Background(), 1, "TXN1")

	var rerr *ReconcileError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReconcileError, got %v", err)
	}
	if rerr.InvoiceID != 1 || rerr.TransactionID != "TXN1" {
		t.Fatalf("unexpected reconcile details: %+v", rerr)
	}
}

func TestPayPalChargeSuccess_ConflictingTransaction(t *testing.T) {
	other := "TXN-OTHER"
	repo := &stubRepo{
		settleRows: 0,
		invoice: &model.Invoice{
			ID:            1,
			PaymentStatus: model.PaymentStatusPaid,
			TransactionID: &other,
		},
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	err := svc.PayPalChargeSuccess(context.Background(), 1, "TXN1")

	var rerr *ReconcileError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ReconcileError, got %v", err)
	}
}

func TestAcceptPayment_NoRows(t *testing.T) {
	repo := &stubRepo{acceptRows: 0}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	err := svc.AcceptPayment(context.Background(), "FUL42")
	if !errors.Is(err, ErrPaymentNotAccepted) {
		t.Fatalf("expected ErrPaymentNotAccepted, got %v", err)
	}
}

func TestAcceptPayment_Success(t *testing.T) {
	repo := &stubRepo{acceptRows: 1}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	if err := svc.AcceptPayment(context.Background(), "FUL42"); err != nil {
		t.Fatalf("AcceptPayment error: %v", err)
	}
	if repo.acceptReference != "FUL42" {
		t.Fatalf("reference = %q, want FUL42", repo.acceptReference)
	}
}

func TestUnconfirmedPayments_PassThrough(t *testing.T) {
	repo := &stubRepo{
		unconfirmed: []model.UnconfirmedPayment{
			{GivenNames: "Sherlock", Surname: "Holmes", Reference: "FUL1", PaymentType: model.PaymentTypeDeposit, TotalAmountInCents: 8888},
		},
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	payments, err := svc.UnconfirmedPayments(context.Background())
	if err != nil {
		t.Fatalf("UnconfirmedPayments error: %v", err)
	}
	if len(payments) != 1 || payments[0].Reference != "FUL1" {
		t.Fatalf("unexpected payments: %+v", payments)
	}
}

func TestUnconfirmedPayments_OpaqueOnFailure(t *testing.T) {
	repo := &stubRepo{
		unconfirmedErr: errors.New("connection refused"),
	}
	svc := NewService(repo, nil, nil, "http://localhost", nil)

	_, err := svc.UnconfirmedPayments(context.Background())
	if !errors.Is(err, ErrListing) {
		t.Fatalf("expected ErrListing, got %v", err)
	}
}
