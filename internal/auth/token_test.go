package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	tok, err := Sign("secret", "alice", time.Hour, time.Now())
	require.NoError(t, err)

	sub, err := Verify("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestVerifyRejects(t *testing.T) {
	good, err := Sign("secret", "alice", time.Hour, time.Now())
	require.NoError(t, err)
	expired, err := Sign("secret", "alice", time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "mallory"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = Verify("other", good)
	assert.Error(t, err, "wrong secret")
	_, err = Verify("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	_, err = Verify("secret", none)
	assert.Error(t, err, "alg none")
	_, err = Verify("secret", "not-a-token")
	assert.Error(t, err)
}

func TestEmptySecret(t *testing.T) {
	_, err := Sign("", "alice", time.Hour, time.Now())
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = Verify("", "x")
	assert.ErrorIs(t, err, ErrNoSecret)
}
