// Package password wraps the one-way password hash used by the credential
// store. The hash is treated as a black box by the rest of the server:
// hash on the way in, verify on the way out.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

const bcryptCost = 10

// Hash generates a bcrypt hash for the given cleartext password.
func Hash(password string) (string, error) {
	if password == "" {
		return "", common.ErrorValidation
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(h), err
}

// Compare validates the given cleartext password against a stored hash.
// A mismatch yields common.ErrorUnauthorized; the comparison itself is
// constant-time inside bcrypt.
func Compare(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return common.ErrorUnauthorized
		}
		return err
	}
	return nil
}
