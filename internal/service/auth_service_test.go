package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"selfmanager/internal/repository"
	"selfmanager/internal/security"
)

const strongPassword = "Secret#123"

func newAuthService(env *testEnv, mailer OTPMailer, google GoogleProfileFetcher) *AuthService {
	tokens := security.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	return NewAuthService(env.users, repository.NewOTPRepository(env.db), tokens, mailer, google)
}

func TestRegistrationAndLogin(t *testing.T) {
	env := newTestEnv(t)
	mailer := &fakeMailer{}
	auth := newAuthService(env, mailer, fakeGoogle{})
	users := NewUserService(env.users, env.families, 30*24*time.Hour)
	ctx := context.Background()

	email := "asha@example.com"
	require.NoError(t, auth.SendOTP(ctx, email, false))
	otp := mailer.last(email)
	require.Len(t, otp, 7)

	input := RegisterInput{
		Username:  "asha",
		Email:     email,
		Password:  strongPassword,
		FirstName: "Asha",
		OTP:       otp,
	}

	t.Run("unverified otp is refused", func(t *testing.T) {
		_, _, err := auth.Register(input)
		requireFieldError(t, err, "otp")
	})

	t.Run("wrong otp does not verify", func(t *testing.T) {
		requireFieldError(t, auth.VerifyOTP(email, "0000000"), "otp")
	})

	require.NoError(t, auth.VerifyOTP(email, otp))

	t.Run("field rules", func(t *testing.T) {
		weak := input
		weak.Password = "password"
		_, _, err := auth.Register(weak)
		requireFieldError(t, err, "password")

		short := input
		short.FirstName = "Al"
		_, _, err = auth.Register(short)
		requireFieldError(t, err, "first_name")
	})

	user, pair, err := auth.Register(input)
	require.NoError(t, err)
	require.Equal(t, "asha", user.Username)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	t.Run("access token authenticates", func(t *testing.T) {
		got, err := auth.Authenticate(pair.Access)
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)

		_, err = auth.Authenticate(pair.Refresh)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh issues a new access token", func(t *testing.T) {
		access, err := auth.Refresh(pair.Refresh)
		require.NoError(t, err)
		_, err = auth.Authenticate(access)
		require.NoError(t, err)

		_, err = auth.Refresh(pair.Access)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("registered email cannot register again", func(t *testing.T) {
		requireFieldError(t, auth.SendOTP(ctx, email, false), "email")
	})

	t.Run("forgot password needs a known email", func(t *testing.T) {
		require.ErrorIs(t, auth.SendOTP(ctx, "nobody@example.com", true), ErrUserNotFound)
	})

	t.Run("login", func(t *testing.T) {
		_, _, err := auth.Login("asha", "Wrong#123")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		got, recovered, err := auth.Login("asha", strongPassword)
		require.NoError(t, err)
		require.False(t, recovered)
		require.NotEmpty(t, got.Access)
	})

	t.Run("login restores a deleted account", func(t *testing.T) {
		require.NoError(t, users.DeleteAccount(user.ID))
		_, recovered, err := auth.Login("asha", strongPassword)
		require.NoError(t, err)
		require.True(t, recovered)

		got, err := env.users.GetUserByID(user.ID)
		require.NoError(t, err)
		require.False(t, got.Profile.IsDeleted)
	})

	t.Run("password reset consumes the otp", func(t *testing.T) {
		require.NoError(t, auth.SendOTP(ctx, email, true))
		resetOTP := mailer.last(email)
		require.NoError(t, auth.VerifyOTP(email, resetOTP))

		newPassword := "Newer#456"
		require.NoError(t, auth.ResetPassword(ResetPasswordInput{Email: email, OTP: resetOTP, NewPassword: newPassword}))

		_, _, err := auth.Login("asha", newPassword)
		require.NoError(t, err)

		err = auth.ResetPassword(ResetPasswordInput{Email: email, OTP: resetOTP, NewPassword: "Again#789"})
		requireFieldError(t, err, "otp")
	})
}

func TestOTPExpiry(t *testing.T) {
	env := newTestEnv(t)
	mailer := &fakeMailer{}
	auth := newAuthService(env, mailer, fakeGoogle{})

	email := "late@example.com"
	require.NoError(t, auth.SendOTP(context.Background(), email, false))

	auth.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	requireFieldError(t, auth.VerifyOTP(email, mailer.last(email)), "otp")

	removed, err := auth.CleanupExpiredOTPs()
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)
}

func TestGoogleLogin(t *testing.T) {
	env := newTestEnv(t)
	google := fakeGoogle{emails: map[string]string{
		"tok-asha":   "asha@example.com",
		"tok-bala":   "bala@example.com",
		"tok-nobody": "nobody@example.com",
	}}
	auth := newAuthService(env, &fakeMailer{}, google)
	ctx := context.Background()

	_, _, err := auth.Register(RegisterInput{
		Username:  "asha",
		Email:     "asha@example.com",
		Password:  strongPassword,
		FirstName: "Asha",
		OTP:       googleRegistrationOTP,
	})
	require.NoError(t, err, "google sign-up skips the otp check")

	env.createUser(t, "bala", "Bala")

	tests := []struct {
		name  string
		token string
		code  string
	}{
		{name: "invalid token", token: "garbage"},
		{name: "unknown account", token: "tok-nobody"},
		{name: "account without password", token: "tok-bala", code: "password_not_set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := auth.GoogleLogin(ctx, tt.token)
			re, ok := AsRequestError(err)
			require.True(t, ok, "expected request error, got %v", err)
			require.Equal(t, tt.code, re.Code)
		})
	}

	t.Run("registered account", func(t *testing.T) {
		user, pair, recovered, err := auth.GoogleLogin(ctx, "tok-asha")
		require.NoError(t, err)
		require.Equal(t, "asha", user.Username)
		require.NotEmpty(t, pair.Access)
		require.False(t, recovered)
	})
}

func TestUserService(t *testing.T) {
	env := newTestEnv(t)
	users := NewUserService(env.users, env.families, 30*24*time.Hour)
	asha := env.createUser(t, "asha", "Asha")
	bala := env.createUser(t, "bala", "Bala")
	env.familyOf(t, "Home", asha)

	t.Run("profile update", func(t *testing.T) {
		phone := "9876543210"
		last := "Rao"
		got, err := users.UpdateProfile(bala.ID, ProfilePatch{PhoneNumber: &phone, LastName: &last})
		require.NoError(t, err)
		require.Equal(t, "Rao", got.LastName)
		require.Equal(t, phone, *got.Profile.PhoneNumber)

		bad := "12345"
		_, err = users.UpdateProfile(bala.ID, ProfilePatch{PhoneNumber: &bad})
		requireFieldError(t, err, "phone_number")

		taken := "asha"
		_, err = users.UpdateProfile(bala.ID, ProfilePatch{Username: &taken})
		requireFieldError(t, err, "username")
	})

	t.Run("fcm token required", func(t *testing.T) {
		_, ok := AsRequestError(users.UpdateFCMToken(bala.ID, " "))
		require.True(t, ok)

		require.NoError(t, users.UpdateFCMToken(bala.ID, "tok-b"))
		token, err := env.users.GetFCMToken(bala.ID)
		require.NoError(t, err)
		require.Equal(t, "tok-b", token)
	})

	t.Run("owners cannot delete their account", func(t *testing.T) {
		_, ok := AsRequestError(users.DeleteAccount(asha.ID))
		require.True(t, ok)
	})

	t.Run("deleted accounts are purged after the grace period", func(t *testing.T) {
		require.NoError(t, users.DeleteAccount(bala.ID))

		n, err := users.PurgeDeletedAccounts()
		require.NoError(t, err)
		require.Zero(t, n)

		users.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
		n, err = users.PurgeDeletedAccounts()
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		_, err = users.GetUser(bala.ID)
		require.ErrorIs(t, err, ErrUserNotFound)
	})
}
