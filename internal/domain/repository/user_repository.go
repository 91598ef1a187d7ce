package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/domain/model"
)

type UserRepository interface {
	Create(ctx context.Context, q DBTX, user *model.User) error
	FindByEmail(ctx context.Context, q DBTX, email string) (*model.User, error)
	FindByUsername(ctx context.Context, q DBTX, username string) (*model.User, error)
	Exists(ctx context.Context, q DBTX, id int64, username string) (bool, error)
}

type sqlUserRepository struct {
	dialect Dialect
}

func NewSQLUserRepository(dialect Dialect) UserRepository {
	return &sqlUserRepository{dialect: dialect}
}

const userColumns = `id, name, username, email, hashed_password, created_at`

// Create inserts user and fills in its generated ID and creation time.
func (r *sqlUserRepository) Create(ctx context.Context, q DBTX, user *model.User) error {
	user.CreatedAt = time.Now().UTC()
	query := r.dialect.Rebind(`INSERT INTO users (name, username, email, hashed_password, created_at)
	          VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := q.QueryRowContext(ctx, query, user.Name, user.Username, user.Email, user.HashedPassword, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		if translated := r.dialect.TranslateError(err); translated != err {
			return translated
		}
		return fmt.Errorf("sqlUserRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlUserRepository) FindByEmail(ctx context.Context, q DBTX, email string) (*model.User, error) {
	user, err := r.findOne(ctx, q, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("sqlUserRepository.FindByEmail: %w", err)
	}
	return user, err
}

func (r *sqlUserRepository) FindByUsername(ctx context.Context, q DBTX, username string) (*model.User, error) {
	user, err := r.findOne(ctx, q, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("sqlUserRepository.FindByUsername: %w", err)
	}
	return user, err
}

// Exists reports whether the account with this id still carries username.
func (r *sqlUserRepository) Exists(ctx context.Context, q DBTX, id int64, username string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM users WHERE id = ? AND username = ?`), id, username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlUserRepository.Exists: %w", err)
	}
	return true, nil
}

func (r *sqlUserRepository) findOne(ctx context.Context, q DBTX, query string, arg interface{}) (*model.User, error) {
	user := &model.User{}
	err := q.QueryRowContext(ctx, r.dialect.Rebind(query), arg).Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &user.HashedPassword, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}
