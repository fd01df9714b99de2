package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	token, err := svc.CreateForUser("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.ResolveUserID(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokenWrongSecretRejected(t *testing.T) {
	issuer := NewTokenService("secret-a", time.Hour)
	verifier := NewTokenService("secret-b", time.Hour)

	token, err := issuer.CreateForUser("user-1")
	require.NoError(t, err)

	_, err = verifier.ResolveUserID(context.Background(), token)
	assert.Error(t, err)
}

func TestTokenExpiredRejected(t *testing.T) {
	svc := NewTokenService("test-secret", -time.Minute)

	token, err := svc.CreateForUser("user-1")
	require.NoError(t, err)

	_, err = svc.ResolveUserID(context.Background(), token)
	assert.Error(t, err)
}

func TestTokenGarbageRejected(t *testing.T) {
	svc := NewTokenService("test-secret", time.Hour)

	_, err := svc.ResolveUserID(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	assert.NoError(t, hasher.Verify("s3cret", hash))
	assert.Error(t, hasher.Verify("wrong", hash))
}
