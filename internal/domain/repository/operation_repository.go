package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/common"
	"fintrack/internal/domain/model"
)

// OperationFilter selects one user's operations. From/To bound the date as [From, To).
type OperationFilter struct {
	UserID int64
	From   *time.Time
	To     *time.Time
	Offset int
	Limit  int
}

// OperationRepository persists ledger operations. Every read and write is
// scoped by owner; rows belonging to other users behave as missing.
type OperationRepository interface {
	Create(ctx context.Context, q DBTX, op *model.Operation) error
	FindByIDForUser(ctx context.Context, q DBTX, id, userID int64) (*model.Operation, error)
	ListByUser(ctx context.Context, q DBTX, filter OperationFilter) ([]model.Operation, error)
	Update(ctx context.Context, q DBTX, op *model.Operation) error
	DeleteForUser(ctx context.Context, q DBTX, id, userID int64) error
}

type sqlOperationRepository struct {
	dialect Dialect
}

func NewSQLOperationRepository(dialect Dialect) OperationRepository {
	return &sqlOperationRepository{dialect: dialect}
}

const operationColumns = `id, description, value_cents, type, date, user_id, updated_at`

func (r *sqlOperationRepository) Create(ctx context.Context, q DBTX, op *model.Operation) error {
	query := r.dialect.Rebind(`INSERT INTO operations (description, value_cents, type, date, user_id)
	          VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := q.QueryRowContext(ctx, query, op.Description, op.Value.Cents, string(op.Type), op.Date.UTC(), op.UserID).Scan(&op.ID)
	if err != nil {
		if translated := r.dialect.TranslateError(err); translated != err {
			return translated
		}
		return fmt.Errorf("sqlOperationRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlOperationRepository) FindByIDForUser(ctx context.Context, q DBTX, id, userID int64) (*model.Operation, error) {
	query := r.dialect.Rebind(`SELECT ` + operationColumns + ` FROM operations WHERE id = ? AND user_id = ?`)
	op, err := scanOperation(q.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlOperationRepository.FindByIDForUser: %w", err)
	}
	return op, nil
}

func (r *sqlOperationRepository) ListByUser(ctx context.Context, q DBTX, f OperationFilter) ([]model.Operation, error) {
	var query strings.Builder
	query.WriteString(`SELECT ` + operationColumns + ` FROM operations WHERE user_id = ?`)
	args := []interface{}{f.UserID}
	if f.From != nil {
		query.WriteString(` AND date >= ?`)
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		query.WriteString(` AND date < ?`)
		args = append(args, f.To.UTC())
	}
	query.WriteString(` ORDER BY date ASC, id ASC LIMIT ? OFFSET ?`)
	args = append(args, f.Limit, f.Offset)

	rows, err := q.QueryContext(ctx, r.dialect.Rebind(query.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("sqlOperationRepository.ListByUser: %w", err)
	}
	defer rows.Close()

	ops := make([]model.Operation, 0)
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlOperationRepository.ListByUser scan: %w", err)
		}
		ops = append(ops, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlOperationRepository.ListByUser rows: %w", err)
	}
	return ops, nil
}

// Update overwrites the mutable columns of op and stamps updated_at.
func (r *sqlOperationRepository) Update(ctx context.Context, q DBTX, op *model.Operation) error {
	now := time.Now().UTC()
	query := r.dialect.Rebind(`UPDATE operations SET
                description = ?, value_cents = ?, type = ?, date = ?, updated_at = ?
              WHERE id = ? AND user_id = ?`)
	res, err := q.ExecContext(ctx, query, op.Description, op.Value.Cents, string(op.Type), op.Date.UTC(), now, op.ID, op.UserID)
	if err != nil {
		if translated := r.dialect.TranslateError(err); translated != err {
			return translated
		}
		return fmt.Errorf("sqlOperationRepository.Update: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	op.UpdatedAt = &now
	return nil
}

func (r *sqlOperationRepository) DeleteForUser(ctx context.Context, q DBTX, id, userID int64) error {
	res, err := q.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM operations WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("sqlOperationRepository.DeleteForUser: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOperation(row rowScanner) (*model.Operation, error) {
	op := &model.Operation{}
	var opType string
	var updatedAt sql.NullTime
	if err := row.Scan(&op.ID, &op.Description, &op.Value.Cents, &opType, &op.Date, &op.UserID, &updatedAt); err != nil {
		return nil, err
	}
	op.Type = model.OperationType(opType)
	op.Date = op.Date.UTC()
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		op.UpdatedAt = &t
	}
	return op, nil
}
