package cryptox

import (
	"errors"
	"testing"

	"github.com/DawPastrator/server/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	key1, err := DeriveKey("secret-password", "alice", DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey error: %v", err)
	}
	key2, err := DeriveKey("secret-password", "alice", DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey error: %v", err)
	}

	assert.Equal(t, key1, key2)
	assert.Len(t, key1, KeyLength)
}

func TestDeriveKey_DifferentInputs(t *testing.T) {
	key1, err := DeriveKey("secret-password", "alice", DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey error: %v", err)
	}
	key2, err := DeriveKey("secret-password", "bob", DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey error: %v", err)
	}
	key3, err := DeriveKey("other-password", "alice", DefaultIterations)
	if err != nil {
		t.Fatalf("DeriveKey error: %v", err)
	}

	assert.NotEqual(t, key1, key2)
	assert.NotEqual(t, key1, key3)
}

func TestDeriveKey_EmptyInput(t *testing.T) {
	if _, err := DeriveKey("", "alice", DefaultIterations); !errors.Is(err, common.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := DeriveKey("pw", "", DefaultIterations); !errors.Is(err, common.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestHashPassword_Deterministic(t *testing.T) {
	v1, err := HashPassword("secret", "alice")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	v2, err := HashPassword("secret", "alice")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	assert.Equal(t, v1, v2)
	assert.NotEmpty(t, v1)
}

func TestHashPassword_SaltMatters(t *testing.T) {
	v1, err := HashPassword("secret", "alice")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	v2, err := HashPassword("secret", "bob")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	assert.NotEqual(t, v1, v2)
}
