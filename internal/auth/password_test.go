package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
	}{
		{name: "simple password", password: "admin123"},
		{name: "symbols", password: "P@ssw0rd!#$%^&*()"},
		{name: "unicode", password: "كلمة-سر-123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.True(t, hasher.Verify(tt.password, hash))
			assert.False(t, hasher.Verify(tt.password+"x", hash))
		})
	}
}

func TestPasswordHasher_SaltedHashesDiffer(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	h1, err := hasher.Hash("same")
	require.NoError(t, err)
	h2, err := hasher.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestPasswordHasher_BadHashNeverMatches(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	assert.False(t, hasher.Verify("", ""))
	assert.False(t, hasher.Verify("admin123", ""))
	assert.False(t, hasher.Verify("admin123", "not-a-bcrypt-hash"))
}

func TestNewPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewPasswordHasher(99).cost)
}

func TestGeneratePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw, err := GeneratePassword(DefaultPasswordLength)
		require.NoError(t, err)
		assert.Len(t, pw, DefaultPasswordLength)
		for _, r := range pw {
			assert.Contains(t, passwordAlphabet, string(r))
		}
		assert.False(t, seen[pw], "duplicate password generated")
		seen[pw] = true
	}

	_, err := GeneratePassword(4)
	assert.Error(t, err)
}
