package security

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(4)

	hash, err := h.Hash("Passw0rd1")
	require.NoError(t, err)

	assert.NotEqual(t, "Passw0rd1", hash)
	assert.True(t, strings.HasPrefix(hash, "$2a$04$"))
	assert.True(t, h.Verify("Passw0rd1", hash))
	assert.False(t, h.Verify("passw0rd1", hash))
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	h := NewBcryptHasher(4)

	assert.False(t, h.Verify("Passw0rd1", "not-a-bcrypt-hash"))
	assert.False(t, h.Verify("Passw0rd1", ""))
}

func TestNewBcryptHasher_OutOfRangeCostUsesDefault(t *testing.T) {
	h := NewBcryptHasher(99)

	assert.Equal(t, 10, h.cost)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name      string
		password  string
		wantRules []string
	}{
		{name: "accepted", password: "Passw0rd1"},
		{name: "unicode letters count", password: "Ünïcödé9x"},
		{
			name:      "short and no uppercase",
			password:  "short1",
			wantRules: []string{"be at least 8 characters long", "contain an uppercase letter"},
		},
		{
			name:      "no digit",
			password:  "Password",
			wantRules: []string{"contain a number"},
		},
		{
			name:      "no lowercase",
			password:  "PASSW0RD1",
			wantRules: []string{"contain a lowercase letter"},
		},
		{
			name:      "too long for bcrypt",
			password:  "Aa1" + strings.Repeat("x", 70),
			wantRules: []string{"be at most 72 bytes long"},
		},
		{
			name:     "empty",
			password: "",
			wantRules: []string{
				"be at least 8 characters long",
				"contain a number",
				"contain a lowercase letter",
				"contain an uppercase letter",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.wantRules == nil {
				require.NoError(t, err)
				return
			}

			var violation *PolicyViolation
			require.True(t, errors.As(err, &violation))
			assert.Equal(t, tt.wantRules, violation.Rules)
		})
	}
}
