package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bbqsrc/collectiva/internal/model"
	"github.com/bbqsrc/collectiva/internal/repository"
	"github.com/bbqsrc/collectiva/internal/validation"
)

// CreateEmptyInvoice создаёт пустой счёт для участника и присваивает ему
// референс, выведенный из категории членства и идентификатора счёта.
// Идентификатор известен только после вставки, поэтому референс записывается
// вторым запросом. Любой сбой возвращается как непрозрачная
// ErrInvoiceCreation: причина логируется и не раскрывается вызывающей
// стороне.
func (s *Service) CreateEmptyInvoice(ctx context.Context, memberEmail string, membershipType model.MembershipType) (int64, error) {
	if !membershipType.IsValid() {
		s.logger.Error("refusing to create invoice for unknown membership type",
			zap.String("email", memberEmail), zap.String("membershipType", string(membershipType)))
		return 0, ErrInvoiceCreation
	}

	invoiceID, err := s.repo.CreateInvoice(ctx, memberEmail, time.Now())
	if err != nil {
		s.logger.Error("failed to create invoice", zap.Error(err), zap.String("email", memberEmail))
		return 0, ErrInvoiceCreation
	}

	reference := deriveReference(membershipType, invoiceID)
	if err := s.repo.UpdateInvoiceReference(ctx, invoiceID, reference); err != nil {
		s.logger.Error("failed to assign invoice reference",
			zap.Error(err), zap.Int64("invoiceID", invoiceID), zap.String("reference", reference))
		return 0, ErrInvoiceCreation
	}

	s.logger.Debug("invoice created",
		zap.Int64("invoiceID", invoiceID), zap.String("email", memberEmail), zap.String("reference", reference))

	return invoiceID, nil
}

// deriveReference выводит референс счёта: первые три буквы категории
// членства в верхнем регистре плюс числовой идентификатор.
func deriveReference(membershipType model.MembershipType, invoiceID int64) string {
	return strings.ToUpper(string(membershipType)[:3]) + strconv.FormatInt(invoiceID, 10)
}

// PayForInvoice проводит оплату счёта выбранным способом. Валидация всегда
// выполняется до обращения к платёжному шлюзу: карта не может быть списана
// по некорректному запросу. Для ручных способов оплаты счёт остаётся в
// статусе Pending до подтверждения администратором.
func (s *Service) PayForInvoice(ctx context.Context, payment model.Payment) (*model.Invoice, error) {
	var fields []string
	if payment.PaymentType == model.PaymentTypeNoContribute {
		fields = validation.ValidateNoContribute(payment)
	} else {
		fields = validation.ValidatePayment(payment)
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	amountCents := int64(math.Round(payment.TotalAmount * 100))
	status := model.PaymentStatusPending
	var transactionID *string

	switch payment.PaymentType {
	case model.PaymentTypeStripe:
		invoice, err := s.repo.GetInvoice(ctx, payment.InvoiceID)
		if err != nil {
			return nil, err
		}
		if invoice.PaymentStatus == model.PaymentStatusPaid {
			return nil, fmt.Errorf("%w: id %d", ErrInvoiceAlreadyPaid, payment.InvoiceID)
		}

		chargeID, err := s.charger.ChargeCard(ctx, payment.StripeToken, payment.TotalAmount)
		if err != nil {
			s.logger.Warn("card charge failed", zap.Error(err), zap.Int64("invoiceID", payment.InvoiceID))
			return nil, err
		}
		status = model.PaymentStatusPaid
		transactionID = &chargeID

	case model.PaymentTypeNoContribute:
		amountCents = 0
		status = model.PaymentStatusPaid
	}

	err := s.repo.UpdateInvoicePayment(ctx, payment.InvoiceID, amountCents, time.Now(), payment.PaymentType, status, transactionID)
	if err != nil {
		if transactionID != nil {
			// Деньги списаны, но счёт не обновлён. Оператору нужны обе стороны.
			s.logger.Error("charge succeeded but invoice update failed",
				zap.Error(err), zap.Int64("invoiceID", payment.InvoiceID), zap.Stringp("transactionID", transactionID))
		}
		return nil, err
	}

	return s.repo.GetInvoice(ctx, payment.InvoiceID)
}

// PayPalChargeSuccess применяет асинхронное подтверждение платежа от PayPal.
// Операция безопасна к повторной доставке: уведомление о уже оплаченном тем
// же внешним идентификатором счёте считается дубликатом и игнорируется.
func (s *Service) PayPalChargeSuccess(ctx context.Context, invoiceID int64, transactionID string) error {
	rows, err := s.repo.SettleInvoice(ctx, invoiceID, transactionID)
	if err != nil {
		s.logger.Error("failed to settle invoice",
			zap.Error(err), zap.Int64("invoiceID", invoiceID), zap.String("transactionID", transactionID))
		return fmt.Errorf("settle invoice: %w", err)
	}

	if rows == 1 {
		s.logger.Debug("invoice settled",
			zap.Int64("invoiceID", invoiceID), zap.String("transactionID", transactionID))
		return nil
	}

	invoice, err := s.repo.GetInvoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			return &ReconcileError{InvoiceID: invoiceID, TransactionID: transactionID}
		}
		return fmt.Errorf("get invoice: %w", err)
	}

	if invoice.PaymentStatus == model.PaymentStatusPaid &&
		invoice.TransactionID != nil && *invoice.TransactionID == transactionID {
		s.logger.Info("duplicate payment notification ignored",
			zap.Int64("invoiceID", invoiceID), zap.String("transactionID", transactionID))
		return nil
	}

	return &ReconcileError{InvoiceID: invoiceID, TransactionID: transactionID}
}

// AcceptPayment подтверждает получение платежа по референсу. Ноль изменённых
// строк — ошибка: референс не найден либо счёт уже оплачен, и администратор
// должен об этом узнать.
func (s *Service) AcceptPayment(ctx context.Context, reference string) error {
	rows, err := s.repo.AcceptPayment(ctx, reference)
	if err != nil {
		s.logger.Error("failed to accept payment", zap.Error(err), zap.String("reference", reference))
		return fmt.Errorf("accept payment: %w", err)
	}

	if rows != 1 {
		s.logger.Error("payment acceptance changed no rows", zap.String("reference", reference))
		return fmt.Errorf("%w: %q", ErrPaymentNotAccepted, reference)
	}

	s.logger.Info("payment accepted", zap.String("reference", reference))
	return nil
}

// UnconfirmedPayments возвращает платежи, ожидающие ручного подтверждения.
// Причина сбоя выборки логируется и не раскрывается вызывающей стороне.
func (s *Service) UnconfirmedPayments(ctx context.Context) ([]model.UnconfirmedPayment, error) {
	payments, err := s.repo.UnconfirmedPayments(ctx)
	if err != nil {
		s.logger.Error("failed to fetch unconfirmed payments", zap.Error(err))
		return nil, ErrListing
	}
	return payments, nil
}
