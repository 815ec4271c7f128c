package validation

import "github.com/bbqsrc/collectiva/internal/model"

// ValidatePayment проверяет запрос на оплату счёта и возвращает теги
// некорректных полей.
func ValidatePayment(p model.Payment) []string {
	var errs []string

	if p.InvoiceID <= 0 {
		errs = append(errs, "invoiceId")
	}
	if p.TotalAmount <= 0 {
		errs = append(errs, "totalAmount")
	}
	if !isValidPaymentType(p.PaymentType) {
		errs = append(errs, "paymentType")
	}

	return errs
}

// ValidateNoContribute проверяет запрос по пути "без взноса": сумма обязана
// быть равной нулю.
func ValidateNoContribute(p model.Payment) []string {
	var errs []string

	if p.InvoiceID <= 0 {
		errs = append(errs, "invoiceId")
	}
	if p.TotalAmount != 0 {
		errs = append(errs, "totalAmount")
	}
	if p.PaymentType != model.PaymentTypeNoContribute {
		errs = append(errs, "paymentType")
	}

	return errs
}

func isValidPaymentType(t model.PaymentType) bool {
	switch t {
	case model.PaymentTypeStripe, model.PaymentTypePayPal, model.PaymentTypeDeposit, model.PaymentTypeCheque:
		return true
	}
	return false
}
