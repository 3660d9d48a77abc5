package models

import (
	"database/sql"
	"time"
)

// Expense is a single spending record owned by a user.
type Expense struct {
	ID          string
	UserID      string
	Amount      float64
	Category    string
	Description string
	SpentAt     time.Time
	ReceiptKey  sql.NullString
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ExpenseView is the JSON representation returned to clients.
type ExpenseView struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	SpentAt     time.Time `json:"spent_at"`
	ReceiptKey  string    `json:"receipt_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// View converts the row for the HTTP layer. A NULL receipt key becomes an
// absent field.
func (e *Expense) View() *ExpenseView {
	v := &ExpenseView{
		ID:          e.ID,
		Amount:      e.Amount,
		Category:    e.Category,
		Description: e.Description,
		SpentAt:     e.SpentAt,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if e.ReceiptKey.Valid {
		v.ReceiptKey = e.ReceiptKey.String
	}
	return v
}

// ExpenseUpdate carries the optional fields of a partial update.
// Nil pointers mean "leave unchanged".
type ExpenseUpdate struct {
	Amount      *float64
	Category    *string
	Description *string
	SpentAt     *time.Time
	ReceiptKey  *string
}
