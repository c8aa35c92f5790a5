package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewJWTManager("secret", "https://auth.example.com", time.Hour)
	tok, err := m.GenerateToken("profile-1", "firm-1", "client", "contact-1")
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "profile-1", claims.Subject)
	assert.Equal(t, "firm-1", claims.LawFirmID)
	assert.Equal(t, "client", claims.UserType)
	assert.Equal(t, "contact-1", claims.ContactID)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	m := NewJWTManager("secret", "issuer-a", time.Hour)

	other, err := NewJWTManager("other-secret", "issuer-a", time.Hour).GenerateToken("p", "f", "admin", "")
	require.NoError(t, err)
	_, err = m.VerifyToken(other)
	assert.Error(t, err, "wrong signature")

	wrongIssuer, err := NewJWTManager("secret", "issuer-b", time.Hour).GenerateToken("p", "f", "admin", "")
	require.NoError(t, err)
	_, err = m.VerifyToken(wrongIssuer)
	assert.Error(t, err, "wrong issuer")

	noSub, err := m.GenerateToken("", "f", "admin", "")
	require.NoError(t, err)
	_, err = m.VerifyToken(noSub)
	assert.Error(t, err, "missing subject")

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "p",
		Issuer:    "issuer-a",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	s, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = m.VerifyToken(s)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "p",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	s, err = none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.VerifyToken(s)
	assert.Error(t, err, "alg none")
}
