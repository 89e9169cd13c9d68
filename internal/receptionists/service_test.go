package receptionists

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolfman30/frontdesk/internal/http/middleware"
)

const testSecret = "test-session-secret"

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MemoryRepository) {
	t.Helper()
	adminHash, err := bcrypt.GenerateFromPassword([]byte("s3cret-admin"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := NewMemoryRepository()
	svc := NewService(repo, AuthConfig{
		JWTSecret:         testSecret,
		SessionTTL:        time.Hour,
		AdminUsername:     "admin",
		AdminPasswordHash: string(adminHash),
		BcryptCost:        bcrypt.MinCost,
	}, nil)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func validInput() RegisterInput {
	return RegisterInput{Username: "frank.desk", Password: "correct-horse", ConfirmPassword: "correct-horse"}
}

func TestRegisterCreatesUnapprovedAccount(t *testing.T) {
	svc, repo := newTestService(t)

	account, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)
	assert.False(t, account.Approved)
	assert.NotEqual(t, "correct-horse", account.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("correct-horse")))

	stored, err := repo.Get(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "frank.desk", stored.Username)
}

func TestRegisterValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
		msg    string
	}{
		{"passwords differ", func(in *RegisterInput) { in.ConfirmPassword = "other-password" }, "passwords do not match"},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "short", "short" }, "password must be at least 8"},
		{"missing username", func(in *RegisterInput) { in.Username = "  " }, "username is required"},
		{"spaces in username", func(in *RegisterInput) { in.Username = "frank desk" }, "username may contain only"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrUsernameTaken)

	in := validInput()
	in.Username = "Admin"
	_, err = svc.Register(context.Background(), in)
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLoginRequiresApproval(t *testing.T) {
	svc, _ := newTestService(t)
	account, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "frank.desk", "correct-horse")
	assert.ErrorIs(t, err, ErrNotApproved)

	_, err = svc.Login(context.Background(), "frank.desk", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	approved, err := svc.Approve(context.Background(), account.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	require.NotNil(t, approved.ApprovedAt)

	session, err := svc.Login(context.Background(), "frank.desk", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleReceptionist, session.Role)
	assert.Equal(t, testNow.Add(time.Hour), session.ExpiresAt)

	claims := middleware.SessionClaims{}
	_, err = jwt.ParseWithClaims(session.Token, &claims, func(*jwt.Token) (any, error) { return []byte(testSecret), nil },
		jwt.WithTimeFunc(func() time.Time { return testNow }))
	require.NoError(t, err)
	assert.Equal(t, "frank.desk", claims.Subject)
	assert.Equal(t, middleware.RoleReceptionist, claims.Role)
}

func TestRejectRemovesAccount(t *testing.T) {
	svc, _ := newTestService(t)
	account, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Reject(context.Background(), account.ID))
	_, err = svc.Login(context.Background(), "frank.desk", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.ErrorIs(t, svc.Reject(context.Background(), account.ID), ErrNotFound)
}

func TestAdminLogin(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.AdminLogin("admin", "s3cret-admin")
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, session.Role)

	_, err = svc.AdminLogin("admin", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.AdminLogin("root", "s3cret-admin")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	disabled := NewService(NewMemoryRepository(), AuthConfig{JWTSecret: testSecret}, nil)
	_, err = disabled.AdminLogin("admin", "s3cret-admin")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}
