package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bbqsrc/collectiva/internal/model"
)

// CreateInvoice создаёт пустой счёт с нулевой суммой без способа оплаты и
// возвращает присвоенный идентификатор.
func (r *PostgresRepository) CreateInvoice(ctx context.Context, memberEmail string, paymentDate time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO invoices (member_email, total_amount_in_cents, payment_date, payment_type, reference, payment_status)
		 VALUES ($1, 0, $2, '', '', '')
		 RETURNING id`,
		memberEmail, paymentDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert invoice: %w", err)
	}
	return id, nil
}

// UpdateInvoiceReference присваивает счёту код-референс. Идентификатор счёта
// известен только после вставки, поэтому референс записывается отдельно.
func (r *PostgresRepository) UpdateInvoiceReference(ctx context.Context, invoiceID int64, reference string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET reference = $2 WHERE id = $1`,
		invoiceID, reference,
	)
	if err != nil {
		return fmt.Errorf("update invoice reference: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrInvoiceNotFound, invoiceID)
	}
	return nil
}

// UpdateInvoicePayment записывает параметры оплаты счёта. Оплаченный счёт не
// изменяется: обновление обусловлено текущим статусом.
func (r *PostgresRepository) UpdateInvoicePayment(ctx context.Context, invoiceID, amountCents int64, paymentDate time.Time, paymentType model.PaymentType, status model.PaymentStatus, transactionID *string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET
			total_amount_in_cents = $2,
			payment_date = $3,
			payment_type = $4,
			payment_status = $5,
			transaction_id = COALESCE($6, transaction_id)
		 WHERE id = $1 AND payment_status <> $7`,
		invoiceID, amountCents, paymentDate, string(paymentType), string(status),
		transactionID, string(model.PaymentStatusPaid),
	)
	if err != nil {
		return fmt.Errorf("update invoice payment: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", ErrInvoiceNotFound, invoiceID)
	}
	return nil
}

// SettleInvoice помечает счёт оплаченным по внешнему подтверждению и
// возвращает число изменённых строк. Ноль означает, что счёт не найден либо
// уже оплачен — решение остаётся за вызывающей стороной.
func (r *PostgresRepository) SettleInvoice(ctx context.Context, invoiceID int64, transactionID string) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET transaction_id = $2, payment_status = $3
		 WHERE id = $1 AND payment_status <> $3`,
		invoiceID, transactionID, string(model.PaymentStatusPaid),
	)
	if err != nil {
		return 0, fmt.Errorf("settle invoice: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// AcceptPayment помечает счёт оплаченным по референсу и возвращает число
// изменённых строк. Оплаченный счёт повторно не изменяется.
func (r *PostgresRepository) AcceptPayment(ctx context.Context, reference string) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE invoices SET payment_status = $2
		 WHERE reference = $1 AND payment_status <> $2`,
		reference, string(model.PaymentStatusPaid),
	)
	if err != nil {
		return 0, fmt.Errorf("accept payment: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// GetInvoice возвращает счёт по идентификатору.
func (r *PostgresRepository) GetInvoice(ctx context.Context, invoiceID int64) (*model.Invoice, error) {
	var inv model.Invoice

	err := r.withRetry(ctx, func(ctx context.Context) error {
		var (
			paymentType string
			status      string
		)
		err := r.pool.QueryRow(ctx,
			`SELECT id, member_email, total_amount_in_cents, payment_date, payment_type, reference, payment_status, transaction_id
			 FROM invoices
			 WHERE id = $1`,
			invoiceID,
		).Scan(&inv.ID, &inv.MemberEmail, &inv.TotalAmountInCents, &inv.PaymentDate,
			&paymentType, &inv.Reference, &status, &inv.TransactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: id %d", ErrInvoiceNotFound, invoiceID)
			}
			return fmt.Errorf("get invoice: %w", err)
		}

		inv.PaymentType = model.PaymentType(paymentType)
		inv.PaymentStatus = model.PaymentStatus(status)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

// UnconfirmedPayments возвращает счета, ожидающие ручного подтверждения
// (чек или прямой перевод), вместе с именами участников.
func (r *PostgresRepository) UnconfirmedPayments(ctx context.Context) ([]model.UnconfirmedPayment, error) {
	var payments []model.UnconfirmedPayment

	err := r.withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx,
			`SELECT m.given_names, m.surname, i.reference, i.payment_type, i.total_amount_in_cents, i.payment_status
			 FROM invoices i
			 JOIN members m ON m.email = i.member_email
			 WHERE i.payment_status = $1 AND i.payment_type IN ($2, $3)
			 ORDER BY i.id`,
			string(model.PaymentStatusPending),
			string(model.PaymentTypeCheque), string(model.PaymentTypeDeposit),
		)
		if err != nil {
			return fmt.Errorf("select unconfirmed payments: %w", err)
		}
		defer rows.Close()

		payments = payments[:0]
		for rows.Next() {
			var (
				p           model.UnconfirmedPayment
				paymentType string
				status      string
			)
			if err := rows.Scan(&p.GivenNames, &p.Surname, &p.Reference, &paymentType, &p.TotalAmountInCents, &status); err != nil {
				return fmt.Errorf("scan unconfirmed payment: %w", err)
			}
			p.PaymentType = model.PaymentType(paymentType)
			p.PaymentStatus = model.PaymentStatus(status)
			payments = append(payments, p)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return payments, nil
}
