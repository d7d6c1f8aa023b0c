package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AmanYize/ev-charge/backend/services/auth-service/internal/models"
)

var (
	// ErrUserNotFound represents missing user rows.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicatePhone is returned when the phone number is already taken.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

const uniqueViolation = "23505"

// UserRepository handles CRUD for users table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository returns repository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and fills its id and creation time.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (phone_number, full_name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, user.PhoneNumber, user.FullName, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicatePhone
	}
	return err
}

// GetByPhone fetches a user by normalized phone number.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	const query = `
		SELECT id, phone_number, full_name, password_hash, role, created_at
		FROM users
		WHERE phone_number = $1
		LIMIT 1
	`
	return scanUser(r.db.QueryRowContext(ctx, query, phone))
}

// GetByID fetches a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	const query = `
		SELECT id, phone_number, full_name, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	if err := row.Scan(&user.ID, &user.PhoneNumber, &user.FullName, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
