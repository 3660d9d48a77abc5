package expenses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spendkeeper/spendkeeper/internal/common"
	"github.com/spendkeeper/spendkeeper/internal/dbx"
	"github.com/spendkeeper/spendkeeper/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const expenseColumns = `id, user_id, amount, category, description, spent_at, receipt_key, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, expense *models.Expense) (*models.Expense, error) {

	query :=
		`INSERT INTO expenses (user_id, amount, category, description, spent_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		expense.UserID, expense.Amount, expense.Category, expense.Description, expense.SpentAt).
		Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return expense, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	query :=
		`SELECT ` + expenseColumns + `
		 FROM expenses
		 WHERE user_id = $1
		 ORDER BY spent_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Expense
	for rows.Next() {
		e := &models.Expense{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description,
			&e.SpentAt, &e.ReceiptKey, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Update applies a partial update: NULL parameters keep the stored value
// via COALESCE, so the statement stays a single round trip.
func (r *PostgresRepository) Update(ctx context.Context, id, userID string, upd *models.ExpenseUpdate) (*models.Expense, error) {
	query :=
		`UPDATE expenses
		 SET amount = COALESCE($3, amount),
		     category = COALESCE($4, category),
		     description = COALESCE($5, description),
		     spent_at = COALESCE($6, spent_at),
		     receipt_key = COALESCE($7, receipt_key),
		     updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING ` + expenseColumns + `
		 `

	e := &models.Expense{}
	err := r.db.QueryRowContext(ctx, query,
		id, userID, upd.Amount, upd.Category, upd.Description, upd.SpentAt, upd.ReceiptKey).
		Scan(&e.ID, &e.UserID, &e.Amount, &e.Category, &e.Description,
			&e.SpentAt, &e.ReceiptKey, &e.CreatedAt, &e.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	query :=
		`DELETE FROM expenses
		 WHERE id = $1 AND user_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
