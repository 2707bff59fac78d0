package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "umid/pkg/domain-errors"
)

func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUMIDID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUMIDID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUMIDID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		got, err := ParseUMIDID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, UMIDID(validUUID), got)
	})
}

// A patient acting on their own record converts a UserID explicitly.
func TestAsPatient(t *testing.T) {
	u := UserID(uuid.New())
	assert.Equal(t, uuid.UUID(u), uuid.UUID(u.AsPatient()))
}

func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE umids;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400\u200B-e29b-41d4-a716-446655440000", true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePatientID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errUser := ParseUserID(validUUID)
		_, errPatient := ParsePatientID(validUUID)
		_, errUMID := ParseUMIDID(validUUID)
		_, errLog := ParseAccessLogID(validUUID)

		require.NoError(t, errUser)
		require.NoError(t, errPatient)
		require.NoError(t, errUMID)
		require.NoError(t, errLog)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errUser := ParseUserID(input)
			_, errPatient := ParsePatientID(input)
			_, errUMID := ParseUMIDID(input)
			_, errLog := ParseAccessLogID(input)

			require.Error(t, errUser)
			require.Error(t, errPatient)
			require.Error(t, errUMID)
			require.Error(t, errLog)
		})
	}
}

func TestParseRole(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		r, err := ParseRole("  Doctor ")
		require.NoError(t, err)
		assert.Equal(t, RoleDoctor, r)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := ParseRole("janitor")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("clinical roles", func(t *testing.T) {
		assert.True(t, RoleNurse.IsClinical())
		assert.True(t, RoleLabTech.IsClinical())
		assert.False(t, RolePatient.IsClinical())
		assert.False(t, RoleAdmin.IsClinical())
	})
}
