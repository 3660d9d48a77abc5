package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

const identityKey = "identity"

// Identity is what a validated access token proves about the caller.
type Identity struct {
	UserID       string
	Email        string
	TokenVersion int64
}

// requireAuth gates protected routes. It extracts the bearer token,
// validates signature, expiry and token version, and stores the caller's
// Identity in locals. Every failure is the same uniform 401.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	header := c.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(header, common.BearerSchema) {
		return common.ErrorUnauthorized
	}
	token := strings.TrimPrefix(header, common.BearerSchema)

	claims, err := s.auth.ValidateAccessToken(c.Context(), token)
	if err != nil {
		return common.ErrorUnauthorized
	}

	c.Locals(identityKey, &Identity{
		UserID:       claims.Subject,
		Email:        claims.Email,
		TokenVersion: claims.TokenVersion,
	})

	return c.Next()
}

func identityFromCtx(c *fiber.Ctx) (*Identity, error) {
	id, ok := c.Locals(identityKey).(*Identity)
	if !ok || id == nil {
		return nil, common.ErrorUnauthorized
	}
	return id, nil
}
