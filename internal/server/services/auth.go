// Package services contains server-side business logic. This file implements
// AuthService, which handles registration, credential checks, and the JWT
// lifecycle: issuing, rotating, and invalidating token pairs through the
// per-user token version counter.
package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spendkeeper/spendkeeper/internal/common"
	"github.com/spendkeeper/spendkeeper/internal/dbx"
	"github.com/spendkeeper/spendkeeper/internal/server/auth"
	"github.com/spendkeeper/spendkeeper/internal/server/config"
	"github.com/spendkeeper/spendkeeper/internal/server/models"
	"github.com/spendkeeper/spendkeeper/internal/server/password"
	"github.com/spendkeeper/spendkeeper/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService provides authentication-related operations:
// - Register: create users
// - ValidateCredentials + Login: verify a password and mint a token pair
// - RefreshTokens: one-time-use rotation of the refresh token
// - Logout: invalidate every outstanding token for the user
// - ValidateAccessToken: check a presented access token against the stored version
type AuthService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewAuthService constructs an AuthService using repositories and server config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *AuthService {
	return &AuthService{
		db:                           db,
		repomanager:                  m,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Register creates a new user with the given email and password. The
// username is derived from the email local part. No tokens are issued;
// the caller logs in separately.
func (s *AuthService) Register(ctx context.Context, email string, pass string) (*models.User, error) {
	if email == "" || pass == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, common.ErrorAlreadyExists
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrorInternal
	}

	hash, err := password.Hash(pass)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Username:     usernameFromEmail(email),
		PasswordHash: hash,
	}

	// The unique index still backs the lookup above, so a racing duplicate
	// insert comes back as ErrorAlreadyExists from the repository.
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// ValidateCredentials verifies an email/password pair and returns the user
// row on success. Unknown email and wrong password both collapse into
// ErrorUnauthorized so the response does not leak account existence.
func (s *AuthService) ValidateCredentials(ctx context.Context, email string, pass string) (*models.User, error) {
	if email == "" || pass == "" {
		return nil, common.ErrorValidation
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if err := password.Compare(pass, user.PasswordHash); err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	return user, nil
}

// Login mints a fresh token pair for an already-authenticated user.
// Inside one transaction the user's token version is bumped atomically and
// the digest of the new refresh token is stored guarded by that version, so
// tokens from any previous session stop validating the moment the commit
// lands.
func (s *AuthService) Login(ctx context.Context, user *models.User) (*TokenPair, error) {
	var pair *TokenPair

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)

		version, err := repoTx.IncrementTokenVersion(ctx, user.ID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error incrementing token version: %w", err)
		}

		pair, err = s.getTokenPair(user.ID, user.Email, version)
		if err != nil {
			return common.ErrorInternal
		}

		if err := repoTx.SaveRefreshTokenHash(ctx, user.ID, refreshDigest(pair.RefreshToken), version); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error saving refresh token hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// RefreshTokens validates a presented refresh token, rotates it
// transactionally, and returns a fresh pair. The stored digest is the
// single source of truth: only the most recently issued refresh token
// matches it, and the compare-and-swap rotation lets exactly one of
// several concurrent refreshes win. Expired tokens yield
// ErrRefreshTokenExpired; every other failure is ErrorUnauthorized.
func (s *AuthService) RefreshTokens(ctx context.Context, presented string) (*TokenPair, error) {
	claims, err := auth.ParseToken(presented, s.refreshSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.ErrRefreshTokenExpired
		}
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !user.RefreshTokenHash.Valid {
		// Logged out: no live refresh token on record.
		return nil, common.ErrorUnauthorized
	}

	digest := refreshDigest(presented)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(user.RefreshTokenHash.String)) != 1 {
		return nil, common.ErrorUnauthorized
	}

	var pair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Users(tx)

		// The bump only lands while the stored digest is still the one we
		// matched above; a concurrent rotation that got there first leaves
		// zero rows and this request fails closed.
		version, err := repoTx.RotateTokenVersion(ctx, user.ID, digest)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error rotating token version: %w", err)
		}

		pair, err = s.getTokenPair(user.ID, user.Email, version)
		if err != nil {
			return common.ErrorInternal
		}

		if err := repoTx.SaveRefreshTokenHash(ctx, user.ID, refreshDigest(pair.RefreshToken), version); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error saving refresh token hash: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout invalidates every outstanding token for the user: the stored
// refresh digest is cleared and the token version bumped in one statement,
// so both halves of the pair die together.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error clearing refresh token: %w", err)
	}
	return nil
}

// ValidateAccessToken verifies the signature and expiry of an access token
// and checks its embedded version against the user's current one. A stale
// version means a later login, refresh or logout has revoked the token.
func (s *AuthService) ValidateAccessToken(ctx context.Context, tokenString string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(tokenString, s.accessSecret)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if claims.TokenVersion != user.TokenVersion {
		return nil, common.ErrorUnauthorized
	}

	return claims, nil
}

// --- helpers below ---

// getTokenPair signs both tokens with identical claims but independent
// secrets and lifetimes.
func (s *AuthService) getTokenPair(userID string, email string, version int64) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, email, version, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateToken(userID, email, version, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// refreshDigest is the at-rest form of a refresh token. A plain SHA-256
// hex digest: the input is a high-entropy signed token, not a password,
// and bcrypt would silently truncate it at 72 bytes.
func refreshDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
