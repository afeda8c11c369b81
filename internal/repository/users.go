package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kumagoya/kumagoya/internal/db"
	"github.com/kumagoya/kumagoya/internal/model"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

type DBUserRepository struct { // implements UserRepository
	db db.DB
}

func NewDBUserRepository(d db.DB) *DBUserRepository {
	return &DBUserRepository{db: d}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}

// CreateUser inserts user, assigning an id when it has none. Emails are stored lower case.
func (r *DBUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = model.UserID(uuid.NewString())
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, user.IsAdmin, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *DBUserRepository) getUser(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_admin, created_at FROM users WHERE `+where+` = ?`, arg,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading user: %w", err)
	}
	return &u, nil
}

func (r *DBUserRepository) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	return r.getUser(ctx, "id", id)
}

func (r *DBUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUser(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// IsAdmin reads users.is_admin. Unknown users are not admins.
func (r *DBUserRepository) IsAdmin(ctx context.Context, id model.UserID) (bool, error) {
	var admin bool
	err := r.db.QueryRowContext(ctx, `SELECT is_admin FROM users WHERE id = ?`, id).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error reading admin flag: %w", err)
	}
	return admin, nil
}

func (r *DBUserRepository) SetAdmin(ctx context.Context, id model.UserID, admin bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_admin = ? WHERE id = ?`, admin, id)
	if err != nil {
		return fmt.Errorf("error updating admin flag: %w", err)
	}
	return expectAffected(res)
}
