package expenses

import (
	"context"

	"github.com/spendkeeper/spendkeeper/internal/server/models"
)

// Repository stores expense records. Every call is scoped by the owning
// user id; rows belonging to other users are invisible.
type Repository interface {
	Create(ctx context.Context, expense *models.Expense) (*models.Expense, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Expense, error)
	Update(ctx context.Context, id, userID string, upd *models.ExpenseUpdate) (*models.Expense, error)
	Delete(ctx context.Context, id, userID string) error
}
