package httpapi

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/spendkeeper/spendkeeper/internal/common"
	"github.com/spendkeeper/spendkeeper/internal/server/models"
)

// ExpenseCreatePayload is the body of POST /expenses.
type ExpenseCreatePayload struct {
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	SpentAt     *time.Time `json:"spent_at"`
}

// Validate will validate the payload
func (r ExpenseCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Required, validation.Min(0.01)),
		validation.Field(&r.Category, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

// ExpenseUpdatePayload is the body of PATCH /expenses/:id. Absent fields
// stay unchanged.
type ExpenseUpdatePayload struct {
	Amount      *float64   `json:"amount"`
	Category    *string    `json:"category"`
	Description *string    `json:"description"`
	SpentAt     *time.Time `json:"spent_at"`
	ReceiptKey  *string    `json:"receipt_key"`
}

// Validate will validate the payload
func (r ExpenseUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Amount, validation.Min(0.01)),
		validation.Field(&r.Category, validation.Length(1, 100)),
		validation.Field(&r.Description, validation.Length(0, 1000)),
	)
}

func (s *Server) handleExpenseList(c *fiber.Ctx) error {
	id, err := identityFromCtx(c)
	if err != nil {
		return err
	}

	list, err := s.expenses.List(c.Context(), id.UserID)
	if err != nil {
		return err
	}

	views := make([]*models.ExpenseView, 0, len(list))
	for _, e := range list {
		views = append(views, e.View())
	}
	return c.JSON(views)
}

func (s *Server) handleExpenseCreate(c *fiber.Ctx) error {
	id, err := identityFromCtx(c)
	if err != nil {
		return err
	}

	payload := new(ExpenseCreatePayload)
	if err := c.BodyParser(payload); err != nil {
		return common.ErrorValidation
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	expense := &models.Expense{
		Amount:      payload.Amount,
		Category:    payload.Category,
		Description: payload.Description,
	}
	if payload.SpentAt != nil {
		expense.SpentAt = *payload.SpentAt
	}

	e, err := s.expenses.Create(c.Context(), id.UserID, expense)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"expense": e.View()})
}

func (s *Server) handleExpenseUpdate(c *fiber.Ctx) error {
	id, err := identityFromCtx(c)
	if err != nil {
		return err
	}

	payload := new(ExpenseUpdatePayload)
	if err := c.BodyParser(payload); err != nil {
		return common.ErrorValidation
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	upd := &models.ExpenseUpdate{
		Amount:      payload.Amount,
		Category:    payload.Category,
		Description: payload.Description,
		SpentAt:     payload.SpentAt,
		ReceiptKey:  payload.ReceiptKey,
	}

	e, err := s.expenses.Update(c.Context(), id.UserID, c.Params("id"), upd)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"expense": e.View()})
}

func (s *Server) handleExpenseDelete(c *fiber.Ctx) error {
	id, err := identityFromCtx(c)
	if err != nil {
		return err
	}

	if err := s.expenses.Delete(c.Context(), id.UserID, c.Params("id")); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"deleted": true})
}

func (s *Server) handleReceiptURL(c *fiber.Ctx) error {
	if _, err := identityFromCtx(c); err != nil {
		return err
	}

	key, url, err := s.expenses.ReceiptUploadURL(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"key": key, "url": url})
}
