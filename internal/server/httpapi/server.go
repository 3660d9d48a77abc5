// Package httpapi exposes the REST surface of the server: authentication
// endpoints, expense CRUD, and receipt uploads. Handlers translate between
// HTTP and the service layer; all business rules live in services.
package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spendkeeper/spendkeeper/internal/common"
	"github.com/spendkeeper/spendkeeper/internal/logging"
	"github.com/spendkeeper/spendkeeper/internal/server/auth"
	"github.com/spendkeeper/spendkeeper/internal/server/models"
	"github.com/spendkeeper/spendkeeper/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

// AuthProvider is the slice of the session manager the HTTP layer needs.
type AuthProvider interface {
	Register(ctx context.Context, email string, password string) (*models.User, error)
	ValidateCredentials(ctx context.Context, email string, password string) (*models.User, error)
	Login(ctx context.Context, user *models.User) (*services.TokenPair, error)
	RefreshTokens(ctx context.Context, presented string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// ExpenseProvider is the slice of the expense service the HTTP layer needs.
type ExpenseProvider interface {
	Create(ctx context.Context, userID string, expense *models.Expense) (*models.Expense, error)
	List(ctx context.Context, userID string) ([]*models.Expense, error)
	Update(ctx context.Context, userID string, id string, upd *models.ExpenseUpdate) (*models.Expense, error)
	Delete(ctx context.Context, userID string, id string) error
	ReceiptUploadURL(ctx context.Context) (string, string, error)
}

type Server struct {
	address  string
	logger   logging.Logger
	auth     AuthProvider
	expenses ExpenseProvider
	app      *fiber.App
}

func NewServer(address string, l logging.Logger, as AuthProvider, es ExpenseProvider) *Server {
	s := &Server{
		address:  address,
		logger:   l.With("module", "http_server"),
		auth:     as,
		expenses: es,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	ag := s.app.Group("/auth")
	ag.Post("/register", s.handleRegister)
	ag.Post("/login", s.handleLogin)
	ag.Post("/refresh", s.handleRefresh)
	ag.Post("/profile", s.requireAuth, s.handleProfile)
	ag.Post("/logout", s.requireAuth, s.handleLogout)

	exp := s.app.Group("/expenses", s.requireAuth)
	exp.Get("/", s.handleExpenseList)
	exp.Post("/", s.handleExpenseCreate)
	exp.Post("/receipt-url", s.handleReceiptURL)
	exp.Patch("/:id", s.handleExpenseUpdate)
	exp.Delete("/:id", s.handleExpenseDelete)
}

// Run starts the listener and blocks until ctx is cancelled, then drains
// in-flight requests before returning.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			s.logger.Error(ctx, err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := s.app.Listen(s.address); err != nil {
		return err
	}

	return nil
}

// errorHandler is the single translation point from service errors to HTTP
// statuses. Handlers just return errors.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, common.ErrorValidation):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		status, message = fiber.StatusConflict, "already exists"
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		status, message = fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrorNotFound):
		status, message = fiber.StatusNotFound, "not found"
	default:
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status, message = fe.Code, fe.Message
		} else {
			s.logger.Error(c.Context(), err.Error())
		}
	}

	return c.Status(status).JSON(fiber.Map{"error": message})
}
