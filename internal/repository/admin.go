package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bbqsrc/collectiva/internal/model"
)

// CreateAdminUser создаёт администратора и возвращает его идентификатор.
func (r *PostgresRepository) CreateAdminUser(ctx context.Context, username string, passwordHash []byte) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO admin_users (username, password_hash) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: %s", ErrAdminExists, username)
		}
		return 0, fmt.Errorf("create admin user: %w", err)
	}
	return id, nil
}

// GetAdminByUsername возвращает администратора по имени.
func (r *PostgresRepository) GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM admin_users WHERE username = $1`,
		username,
	)

	var u model.AdminUser
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}

	return &u, nil
}
