package password

import (
	"errors"
	"strings"
	"testing"

	"github.com/spendkeeper/spendkeeper/internal/common"
)

func TestHashAndCompare_Success(t *testing.T) {
	t.Parallel()

	h, err := Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(h, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", h)
	}

	if err := Compare("Secret123", h); err != nil {
		t.Fatalf("Compare error: %v", err)
	}
}

func TestCompare_Mismatch(t *testing.T) {
	t.Parallel()

	h, err := Hash("Secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	err = Compare("wrong-password", h)
	if !errors.Is(err, common.ErrorUnauthorized) {
		t.Fatalf("expected common.ErrorUnauthorized, got %v", err)
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	t.Parallel()

	_, err := Hash("")
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("expected common.ErrorValidation, got %v", err)
	}
}

func TestHash_Salted(t *testing.T) {
	t.Parallel()

	a, err := Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct hashes for the same input")
	}
}
