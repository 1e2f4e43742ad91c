package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name     string
		username string
		want     bool
	}{
		{"letters", "alice", true},
		{"mixed with underscore", "Alice_99", true},
		{"too short", "ab", false},
		{"too long", "a_very_long_username_that_never_ends", false},
		{"dash", "alice-b", false},
		{"space", "alice b", false},
		{"dot", "alice.b", false},
		{"unicode", "alicé", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidUsername(tt.username))
		})
	}
}

func TestRegister_UsernameTagUsesJSONNames(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))
	require.NoError(t, Register(v))

	type req struct {
		Username string `json:"username" validate:"required,username"`
	}

	err := v.Struct(req{Username: "bad name!"})
	require.Error(t, err)

	fields := FieldErrors(err)
	assert.Equal(t, "username may only contain letters, numbers and underscores", fields["username"])

	assert.NoError(t, v.Struct(req{Username: "good_name"}))
}

func TestFieldErrors_NonValidatorError(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
}
