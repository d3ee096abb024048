package jobs_test

import (
	"testing"
	"time"

	jobs "github.com/goliatone/go-jobs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner() *jobs.HMACTokenSigner {
	return jobs.NewTokenSigner([]byte("test-signing-key"), "test-issuer", testLogger{})
}

func TestTokenSigner_RoundTrip(t *testing.T) {
	signer := newTestSigner()
	subject := uuid.NewString()

	claims := &jobs.TokenClaims{
		ClientID:        "user@example.com",
		Scope:           "access admin",
		TokenType:       jobs.GrantTypeClientCredentials,
		Role:            jobs.RoleAdmin,
		Admin:           true,
		ClientSignature: "sig-abc",
	}

	token, err := signer.Sign(claims, subject, 2)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := signer.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, subject, decoded.Subject)
	assert.Equal(t, "user@example.com", decoded.ClientID)
	assert.Equal(t, "access admin", decoded.Scope)
	assert.Equal(t, "sig-abc", decoded.ClientSignature)
	assert.True(t, decoded.Admin)
	assert.True(t, decoded.HasScope("access"))
	assert.True(t, decoded.HasScope("admin"))
	assert.False(t, decoded.HasScope("remember"))
	assert.NotEmpty(t, decoded.ID)
}

func TestTokenSigner_Verify(t *testing.T) {
	signer := newTestSigner()

	t.Run("rejects expired tokens", func(t *testing.T) {
		token, err := signer.Sign(&jobs.TokenClaims{ClientID: "user@example.com"}, "sub", -1)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		assert.ErrorIs(t, err, jobs.ErrTokenExpired)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := signer.Verify("not-a-token")
		require.Error(t, err)
		assert.NotErrorIs(t, err, jobs.ErrTokenExpired)
	})

	t.Run("rejects tokens signed with a different key", func(t *testing.T) {
		other := jobs.NewTokenSigner([]byte("other-key"), "test-issuer", testLogger{})
		token, err := other.Sign(&jobs.TokenClaims{ClientID: "user@example.com"}, "sub", 1)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		require.Error(t, err)
	})

	t.Run("rejects tokens from a different issuer", func(t *testing.T) {
		other := jobs.NewTokenSigner([]byte("test-signing-key"), "someone-else", testLogger{})
		token, err := other.Sign(&jobs.TokenClaims{ClientID: "user@example.com"}, "sub", 1)
		require.NoError(t, err)

		_, err = signer.Verify(token)
		require.Error(t, err)
	})
}

func TestTokenSigner_ExtractClaims(t *testing.T) {
	signer := newTestSigner()

	t.Run("tolerates expiry when asked", func(t *testing.T) {
		token, err := signer.Sign(&jobs.TokenClaims{
			ClientID:        "user@example.com",
			ClientSignature: "sig-abc",
		}, "sub", -1)
		require.NoError(t, err)

		claims, err := signer.ExtractClaims(token, true)
		require.NoError(t, err)
		assert.Equal(t, "user@example.com", claims.ClientID)
		assert.Equal(t, "sig-abc", claims.ClientSignature)
	})

	t.Run("still rejects expiry without tolerance", func(t *testing.T) {
		token, err := signer.Sign(&jobs.TokenClaims{ClientID: "user@example.com"}, "sub", -1)
		require.NoError(t, err)

		_, err = signer.ExtractClaims(token, false)
		assert.ErrorIs(t, err, jobs.ErrTokenExpired)
	})

	t.Run("never tolerates a bad signature", func(t *testing.T) {
		other := jobs.NewTokenSigner([]byte("other-key"), "test-issuer", testLogger{})
		token, err := other.Sign(&jobs.TokenClaims{ClientID: "user@example.com"}, "sub", 1)
		require.NoError(t, err)

		_, err = signer.ExtractClaims(token, true)
		require.Error(t, err)
	})
}

func TestTokenSigner_Expiry(t *testing.T) {
	signer := newTestSigner()

	token, err := signer.Sign(&jobs.TokenClaims{ClientID: "user@example.com"}, "sub", 2)
	require.NoError(t, err)

	expiry, err := signer.Expiry(token)
	require.NoError(t, err)

	assert.WithinDuration(t, time.Now().Add(2*time.Hour), expiry, time.Minute)
}
