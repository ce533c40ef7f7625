package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "oilmill"))

	token, exp, err := svc.GenerateAccessToken("op-1", "op@mill.local", []string{"admin"})
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", user.UserID)
	assert.Equal(t, "op@mill.local", user.Email)
	assert.Equal(t, []string{"admin"}, user.Roles)
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("secret", "oilmill"))

	other := NewJWTService(DefaultJWTConfig("other-secret", "oilmill"))
	forged, _, err := other.GenerateAccessToken("op-1", "", nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(forged)
	assert.Error(t, err, "wrong secret")

	wrongIssuer := NewJWTService(DefaultJWTConfig("secret", "someone-else"))
	tok, _, err := wrongIssuer.GenerateAccessToken("op-1", "", nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(tok)
	assert.Error(t, err, "wrong issuer")

	expired := NewJWTService(JWTConfig{Secret: "secret", Issuer: "oilmill", AccessTokenTTL: -time.Hour})
	tok, _, err = expired.GenerateAccessToken("op-1", "", nil)
	require.NoError(t, err)
	_, err = svc.ValidateToken(tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject: "op-1", Issuer: "oilmill", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	tok, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(tok)
	assert.Error(t, err, "alg none")
}
