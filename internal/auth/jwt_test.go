package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService("test-signing-key", "RPCA70-Admin", "correct horse", time.Hour)
	require.NoError(t, err)
	return svc
}

func TestLogin_Success(t *testing.T) {
	svc := newTestService(t)

	token, err := svc.Login("RPCA70-Admin", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "RPCA70-Admin", claims.Username)
	assert.Equal(t, "RPCA70-Admin", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := newTestService(t)

	cases := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "RPCA70-Admin", "wrong"},
		{"wrong username", "someone-else", "correct horse"},
		{"both wrong", "someone-else", "wrong"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(tc.username, tc.password)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.Contains(t, err.Error(), "invalid username or password")
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.Login("RPCA70-Admin", "correct horse")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "session expired")
}

func TestValidateToken_WrongKey(t *testing.T) {
	svc := newTestService(t)
	other, err := NewService("a-different-key", "RPCA70-Admin", "correct horse", time.Hour)
	require.NoError(t, err)

	token, err := other.Login("RPCA70-Admin", "correct horse")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := newTestService(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := svc.ValidateToken(token)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}
}
