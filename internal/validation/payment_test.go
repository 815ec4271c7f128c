package validation

import (
	"testing"

	"github.com/bbqsrc/collectiva/internal/model"
)

func TestValidatePayment(t *testing.T) {
	tests := []struct {
		name    string
		payment model.Payment
		want    []string
	}{
		{
			name:    "valid cheque payment",
			payment: model.Payment{InvoiceID: 1, TotalAmount: 100, PaymentType: model.PaymentTypeCheque},
			want:    nil,
		},
		{
			name:    "valid fractional amount",
			payment: model.Payment{InvoiceID: 7, TotalAmount: 123.2, PaymentType: model.PaymentTypeDeposit},
			want:    nil,
		},
		{
			name:    "zero amount",
			payment: model.Payment{InvoiceID: 1, TotalAmount: 0, PaymentType: model.PaymentTypeDeposit},
			want:    []string{"totalAmount"},
		},
		{
			name:    "negative amount",
			payment: model.Payment{InvoiceID: 1, TotalAmount: -1, PaymentType: model.PaymentTypeStripe},
			want:    []string{"totalAmount"},
		},
		{
			name:    "unknown payment type",
			payment: model.Payment{InvoiceID: 1, TotalAmount: 10, PaymentType: "barter"},
			want:    []string{"paymentType"},
		},
		{
			name:    "noContribute rejected on regular path",
			payment: model.Payment{InvoiceID: 1, TotalAmount: 10, PaymentType: model.PaymentTypeNoContribute},
			want:    []string{"paymentType"},
		},
		{
			name:    "missing invoice id",
			payment: model.Payment{TotalAmount: 10, PaymentType: model.PaymentTypeCheque},
			want:    []string{"invoiceId"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePayment(tt.payment)
			if len(got) != len(tt.want) {
				t.Fatalf("ValidatePayment() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("ValidatePayment() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestValidateNoContribute(t *testing.T) {
	valid := model.Payment{InvoiceID: 1, TotalAmount: 0, PaymentType: model.PaymentTypeNoContribute}
	if errs := ValidateNoContribute(valid); len(errs) != 0 {
		t.Fatalf("ValidateNoContribute() = %v, want no errors", errs)
	}

	nonZero := model.Payment{InvoiceID: 1, TotalAmount: 5, PaymentType: model.PaymentTypeNoContribute}
	errs := ValidateNoContribute(nonZero)
	if len(errs) != 1 || errs[0] != "totalAmount" {
		t.Fatalf("ValidateNoContribute() = %v, want [totalAmount]", errs)
	}

	wrongType := model.Payment{InvoiceID: 1, TotalAmount: 0, PaymentType: model.PaymentTypeCheque}
	errs = ValidateNoContribute(wrongType)
	if len(errs) != 1 || errs[0] != "paymentType" {
		t.Fatalf("ValidateNoContribute() = %v, want [paymentType]", errs)
	}
}
