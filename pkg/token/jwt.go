// Package token 提供了用于生成和验证 JSON Web Tokens (JWT) 的功能。
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager 负责验证托管认证服务签发的 access token。
type JWTManager struct {
	secretKey      []byte
	issuer         string
	accessTokenDur time.Duration
}

// Claims are the access token claims of the hosted auth. The subject is the
// profile id; the tenant in the token is only a hint, the profile row is
// authoritative.
type Claims struct {
	LawFirmID string `json:"law_firm_id,omitempty"`
	UserType  string `json:"user_type,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。An empty issuer disables the
// issuer check.
func NewJWTManager(secret, issuer string, accessTokenDur time.Duration) *JWTManager {
	if accessTokenDur <= 0 {
		accessTokenDur = time.Hour
	}
	return &JWTManager{secretKey: []byte(secret), issuer: issuer, accessTokenDur: accessTokenDur}
}

// GenerateToken issues an HS256 token in the hosted auth format. It is used by
// the dev CLI and by tests.
func (m *JWTManager) GenerateToken(profileID, lawFirmID, userType, contactID string) (string, error) {
	now := time.Now()
	claims := Claims{
		LawFirmID: lawFirmID,
		UserType:  userType,
		ContactID: contactID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenDur)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
}

// VerifyToken 验证给定的 token 字符串。
func (m *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
