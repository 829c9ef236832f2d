package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Hour)

	token, expires, err := issuer.Issue("user-1")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 2*time.Second)

	sub, err := issuer.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer(testSecret, time.Minute)
	now := time.Now()
	issuer.now = func() time.Time { return now }

	token, _, err := issuer.Issue("user-1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, err = issuer.Subject(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenRejectsForeignSignature(t *testing.T) {
	token, _, err := NewTokenIssuer("another-secret-another-secret-xx", time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Hour).Subject(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Hour).Subject(raw)
	assert.Error(t, err)
}
