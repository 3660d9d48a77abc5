package httpapi

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

// RegisterPayload is the body of POST /auth/register.
type RegisterPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	)
}

// LoginPayload is the body of POST /auth/login.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshPayload is the body of POST /auth/refresh.
type RefreshPayload struct {
	RefreshToken string `json:"refresh_token"`
}

// Validate will validate the payload
func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	payload := new(RegisterPayload)
	if err := c.BodyParser(payload); err != nil {
		return common.ErrorValidation
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	user, err := s.auth.Register(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	s.logger.Info(c.Context(), "Registered", "email", user.Email)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user.View()})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return common.ErrorValidation
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	user, err := s.auth.ValidateCredentials(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	pair, err := s.auth.Login(c.Context(), user)
	if err != nil {
		return err
	}

	s.logger.Info(c.Context(), "Logged in", "email", user.Email)
	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          user.View(),
	})
}

func (s *Server) handleProfile(c *fiber.Ctx) error {
	id, err := identityFromCtx(c)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"id": id.UserID, "email": id.Email})
}

func (s *Server) handleRefresh(c *fiber.Ctx) error {
	payload := new(RefreshPayload)
	if err := c.BodyParser(payload); err != nil {
		return common.ErrorValidation
	}
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	pair, err := s.auth.RefreshTokens(c.Context(), payload.RefreshToken)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (s *Server) handleLogout(c *fiber.Ctx) error {
	id, err := identityFromCtx(c)
	if err != nil {
		return err
	}

	if err := s.auth.Logout(c.Context(), id.UserID); err != nil {
		return err
	}

	s.logger.Info(c.Context(), "Logged out", "user_id", id.UserID)
	return c.JSON(fiber.Map{"message": "logged out"})
}
