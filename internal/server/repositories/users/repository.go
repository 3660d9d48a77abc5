package users

import (
	"context"

	"github.com/spendkeeper/spendkeeper/internal/server/models"
)

// Repository is the credential store. Mutating calls that touch
// token_version are written so the increment happens inside the database,
// never as a read-modify-write in Go; see the postgres implementation.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	// IncrementTokenVersion atomically bumps the user's generation counter
	// and returns the new value.
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)

	// RotateTokenVersion bumps the counter only while the stored refresh
	// hash still equals currentHash. Exactly one of several concurrent
	// rotations can succeed; the rest get common.ErrorNotFound.
	RotateTokenVersion(ctx context.Context, id string, currentHash string) (int64, error)

	// SaveRefreshTokenHash stores the digest of a freshly issued refresh
	// token, guarded by the token version the caller just obtained.
	SaveRefreshTokenHash(ctx context.Context, id string, hash string, version int64) error

	// ClearRefreshToken drops the stored hash and bumps the counter in a
	// single statement (logout).
	ClearRefreshToken(ctx context.Context, id string) error
}
