package crypto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewJWTManager("secret")
	require.NoError(t, err)

	tok, err := m.CreateToken("alice", 0)
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.UserID)
	require.Equal(t, "alice", claims.Subject)
}

func TestTokenFromOtherSecretIsRejected(t *testing.T) {
	a, err := NewJWTManager("secret-a")
	require.NoError(t, err)
	b, err := NewJWTManager("secret-b")
	require.NoError(t, err)

	tok, err := a.CreateToken("alice", 0)
	require.NoError(t, err)

	_, err = b.VerifyToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.VerifyToken("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	m, err := NewJWTManager("secret")
	require.NoError(t, err)

	now := time.Now()
	m.now = func() time.Time { return now }
	tok, err := m.CreateToken("alice", time.Minute)
	require.NoError(t, err)

	_, err = m.VerifyToken(tok)
	require.NoError(t, err)

	m.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = m.VerifyToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	_, err := NewJWTManager(" ")
	require.Error(t, err)
}
