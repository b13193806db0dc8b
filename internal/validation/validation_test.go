package validation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			wantErr: false,
		},
		{
			name:    "valid email with subdomain",
			email:   "user@mail.example.com",
			wantErr: false,
		},
		{
			name:    "valid email with plus",
			email:   "user+tag@example.com",
			wantErr: false,
		},
		{
			name:    "missing @",
			email:   "testexample.com",
			wantErr: true,
		},
		{
			name:    "missing domain",
			email:   "test@",
			wantErr: true,
		},
		{
			name:    "empty string",
			email:   "",
			wantErr: true,
		},
		{
			name:    "spaces in email",
			email:   "test @example.com",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
		})
	}
}

func TestPasswordProblem(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"strong", "Secret#123", ""},
		{"too short", "Ab1!", "Password must be at least 8 characters long."},
		{"no uppercase", "secret#123", "Password must contain at least one uppercase letter."},
		{"no digit", "Secret#abc", "Password must contain at least one digit."},
		{"no special", "Secret1234", "Password must contain at least one special character."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PasswordProblem(tt.password); got != tt.want {
				t.Errorf("PasswordProblem(%q) = %q, want %q", tt.password, got, tt.want)
			}
		})
	}
}

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone   string
		wantErr bool
	}{
		{"", false},
		{"9876543210", false},
		{"6123456789", false},
		{"5123456789", true},
		{"98765", true},
		{"98765432100", true},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if err := ValidatePhone(tt.phone); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePhone(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
			}
		})
	}
}

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpassword"`
	Phone    string `json:"phone_number" validate:"phone"`
	Kind     string `json:"type" validate:"required,oneof=GIVE TAKE"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Email: "nope", Password: "weakpass", Phone: "123", Kind: "LEND"})
	require.Error(t, err)

	fields, ok := AsErrors(err)
	require.True(t, ok)
	require.Equal(t, []string{"Enter a valid email address."}, fields["email"])
	require.Equal(t, []string{"Password must contain at least one uppercase letter."}, fields["password"])
	require.Contains(t, fields, "phone_number")
	require.Equal(t, []string{`"LEND" is not a valid choice.`}, fields["type"])

	require.NoError(t, Struct(signup{Email: "a@b.co", Password: "Secret#123", Kind: "GIVE"}))
}

func TestErrorsErr(t *testing.T) {
	e := Errors{}
	require.NoError(t, e.Err())

	e.Add("amount", "This field is required.")
	require.EqualError(t, e.Err(), "amount: This field is required.")
}
