package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by a gate session token. Subject is
// the session row ID.
type SessionClaims struct {
	TokenType string `json:"token_type"`
	ClientKey string `json:"client_key"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{issuer: issuer, audience: audience, secret: []byte(secret)}
}

// SignSessionToken mints a signed token for a granted session. The random jti
// makes every minted token, and therefore every stored token hash, distinct.
func (m *JWTManager) SignSessionToken(sessionID, clientKey string, ttl time.Duration) (string, error) {
	jti, err := NewRandomString(16)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	claims := SessionClaims{
		TokenType: "pin_session",
		ClientKey: clientKey,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			Subject:   sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseSessionToken verifies signature, issuer, audience, expiry, and token
// type.
func (m *JWTManager) ParseSessionToken(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithAudience(m.audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	if claims.TokenType != "pin_session" {
		return nil, fmt.Errorf("unexpected token type %q", claims.TokenType)
	}
	return claims, nil
}
