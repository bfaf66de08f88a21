// Package auth issues the bearer credential for outbound backend calls and
// resolves the tenant of inbound admin requests.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Tenant string `json:"tenant"`
	jwt.RegisteredClaims
}

// JWTAuthenticator signs a short-lived HS256 token per tenant.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTAuthenticator(secret, issuer string, ttl time.Duration) *JWTAuthenticator {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (a *JWTAuthenticator) Token(_ context.Context, tenant string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := a.now()
	claims := &Claims{
		Tenant: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   tenant,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// StaticToken is a pre-issued credential shared by all tenants.
type StaticToken string

func (t StaticToken) Token(context.Context, string) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", errors.New("remote token not configured")
	}
	return string(t), nil
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Tenant == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
