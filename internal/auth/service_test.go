package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	plain := "messi10"

	hash, err := HashPassword(plain)
	require.NoError(t, err)

	require.True(t, ComparePasswords(hash, plain))
	require.False(t, ComparePasswords(hash, "wrong-password"))
}

func TestValidateUserFields(t *testing.T) {
	tests := []struct {
		name        string
		input       NewUser
		expectedMsg string
	}{
		{
			name:        "Fail - Empty Username",
			input:       NewUser{UserName: "", PasswordPlain: "123", Email: "john@gmail.com"},
			expectedMsg: "Username cannot be empty!",
		},
		{
			name:        "Fail - Bad Username",
			input:       NewUser{UserName: "John Doe", PasswordPlain: "123", Email: "john@gmail.com"},
			expectedMsg: "Username contains wrong characters, example username: john_doe",
		},
		{
			name:        "Fail - Empty Email",
			input:       NewUser{UserName: "john_doe", PasswordPlain: "123", Email: ""},
			expectedMsg: "Email cannot be empty!",
		},
		{
			name:        "Fail - Invalid Email",
			input:       NewUser{UserName: "john_doe", PasswordPlain: "123", Email: "not-an-email"},
			expectedMsg: "Invalid email format, example valid email: john.doe@gmail.com",
		},
		{
			name:        "Fail - Empty Password",
			input:       NewUser{UserName: "john_doe", PasswordPlain: "", Email: "john@gmail.com"},
			expectedMsg: "Password cannot be empty!",
		},
		{
			name:  "Success - Valid Fields",
			input: NewUser{UserName: "john_doe", FullName: "John Doe", PasswordPlain: "secure123", Email: "john@gmail.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.ValidateUserFields()
			if tt.expectedMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.expectedMsg)
		})
	}
}
