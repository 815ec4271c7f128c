package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bbqsrc/collectiva/internal/model"
)

// FindOrCreateAddress возвращает идентификатор адреса, совпадающего по всем
// полям, создавая строку при отсутствии. Конкурентные одинаковые вставки
// схлопываются в существующую строку за счёт уникального ограничения.
func (r *PostgresRepository) FindOrCreateAddress(ctx context.Context, a model.AddressInput) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO addresses (street, suburb, state, country, postcode)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT addresses_exact_match DO NOTHING`,
		a.Street, a.Suburb, a.State, a.Country, a.Postcode,
	)
	if err != nil {
		return 0, fmt.Errorf("insert address: %w", err)
	}

	var id int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM addresses
		 WHERE street = $1 AND suburb = $2 AND state = $3 AND country = $4 AND postcode = $5`,
		a.Street, a.Suburb, a.State, a.Country, a.Postcode,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select address: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

// CreateMember сохраняет нового участника. Участник должен быть полностью
// подготовлен вызывающей стороной: идентификатор, хеш верификации и сроки
// присваиваются до записи.
func (r *PostgresRepository) CreateMember(ctx context.Context, m *model.Member) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (
			id, email, given_names, surname, gender, date_of_birth,
			primary_phone_number, secondary_phone_number, membership_type, status,
			residential_address_id, postal_address_id,
			verified, verification_hash, renewal_hash,
			member_since, expires_on, last_renewal_reminder
		 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		m.ID, m.Email, m.GivenNames, m.Surname, m.Gender, m.DateOfBirth,
		m.PrimaryPhoneNumber, m.SecondaryPhoneNumber, string(m.MembershipType), string(m.Status),
		m.ResidentialAddressID, m.PostalAddressID,
		m.Verified, m.VerificationHash, m.RenewalHash,
		m.MemberSince, m.ExpiresOn, m.LastRenewalReminder,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrMemberExists, m.Email)
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// UpdateMember обновляет данные существующего участника по email.
func (r *PostgresRepository) UpdateMember(ctx context.Context, m *model.Member) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members SET
			given_names = $2, surname = $3, gender = $4, date_of_birth = $5,
			primary_phone_number = $6, secondary_phone_number = $7, membership_type = $8,
			residential_address_id = $9, postal_address_id = $10
		 WHERE email = $1`,
		m.Email, m.GivenNames, m.Surname, m.Gender, m.DateOfBirth,
		m.PrimaryPhoneNumber, m.SecondaryPhoneNumber, string(m.MembershipType),
		m.ResidentialAddressID, m.PostalAddressID,
	)
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, m.Email)
	}
	return nil
}

const memberColumns = `id, email, given_names, surname, gender, date_of_birth,
	primary_phone_number, secondary_phone_number, membership_type, status,
	residential_address_id, postal_address_id,
	verified, verification_hash, renewal_hash,
	member_since, expires_on, last_renewal_reminder`

func scanMember(row pgx.Row) (*model.Member, error) {
	var (
		m              model.Member
		membershipType string
		status         string
	)

	err := row.Scan(
		&m.ID, &m.Email, &m.GivenNames, &m.Surname, &m.Gender, &m.DateOfBirth,
		&m.PrimaryPhoneNumber, &m.SecondaryPhoneNumber, &membershipType, &status,
		&m.ResidentialAddressID, &m.PostalAddressID,
		&m.Verified, &m.VerificationHash, &m.RenewalHash,
		&m.MemberSince, &m.ExpiresOn, &m.LastRenewalReminder,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}

	m.MembershipType = model.MembershipType(membershipType)
	m.Status = model.MemberStatus(status)

	return &m, nil
}

// GetMemberByEmail возвращает участника по email.
func (r *PostgresRepository) GetMemberByEmail(ctx context.Context, email string) (*model.Member, error) {
	var m *model.Member
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var scanErr error
		m, scanErr = scanMember(r.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM members WHERE email = $1`, email))
		return scanErr
	})
	return m, err
}

// GetMemberByVerificationHash возвращает участника по хешу верификации.
func (r *PostgresRepository) GetMemberByVerificationHash(ctx context.Context, hash string) (*model.Member, error) {
	var m *model.Member
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var scanErr error
		m, scanErr = scanMember(r.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM members WHERE verification_hash = $1`, hash))
		return scanErr
	})
	return m, err
}

// GetMemberByRenewalHash возвращает участника по хешу продления.
func (r *PostgresRepository) GetMemberByRenewalHash(ctx context.Context, hash string) (*model.Member, error) {
	var m *model.Member
	err := r.withRetry(ctx, func(ctx context.Context) error {
		var scanErr error
		m, scanErr = scanMember(r.pool.QueryRow(ctx,
			`SELECT `+memberColumns+` FROM members WHERE renewal_hash = $1`, hash))
		return scanErr
	})
	return m, err
}

// MarkVerified отмечает участника верифицированным. Возвращает true, если
// запись была изменена этим вызовом; false означает, что участник уже был
// верифицирован ранее — повторный вызов безопасен.
func (r *PostgresRepository) MarkVerified(ctx context.Context, memberID string) (bool, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members SET verified = now() WHERE id = $1 AND verified IS NULL`,
		memberID,
	)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// AssignRenewalHash присваивает участнику хеш продления и фиксирует время
// отправки напоминания.
func (r *PostgresRepository) AssignRenewalHash(ctx context.Context, memberID, hash string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members SET renewal_hash = $2, last_renewal_reminder = now() WHERE id = $1`,
		memberID, hash,
	)
	if err != nil {
		return fmt.Errorf("assign renewal hash: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	return nil
}

// RenewMembership продлевает членство до указанной даты и гасит хеш продления.
func (r *PostgresRepository) RenewMembership(ctx context.Context, memberID string, expiresOn time.Time) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE members SET expires_on = $2, renewal_hash = NULL WHERE id = $1`,
		memberID, expiresOn,
	)
	if err != nil {
		return fmt.Errorf("renew membership: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	return nil
}

// ListExpiring возвращает активных участников, чьё членство истекает до
// указанной даты и которым напоминание не отправлялось после reminderBefore.
func (r *PostgresRepository) ListExpiring(ctx context.Context, before, reminderBefore time.Time, limit int) ([]model.Member, error) {
	var members []model.Member

	err := r.withRetry(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+memberColumns+`
			 FROM members
			 WHERE expires_on <= $1
			   AND status NOT IN ($3, $4, $5)
			   AND (last_renewal_reminder IS NULL OR last_renewal_reminder < $2)
			 ORDER BY expires_on
			 LIMIT $6`,
			before, reminderBefore,
			string(model.MemberStatusResigned), string(model.MemberStatusSuspended), string(model.MemberStatusExpelled),
			limit,
		)
		if err != nil {
			return fmt.Errorf("select expiring members: %w", err)
		}
		defer rows.Close()

		members = members[:0]
		for rows.Next() {
			m, err := scanMember(rows)
			if err != nil {
				return err
			}
			members = append(members, *m)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("rows error: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return members, nil
}
