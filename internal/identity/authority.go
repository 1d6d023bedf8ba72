// Package identity issues and verifies the bearer tokens that name a display
// owner.
package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultTokenExpiration is the default lifetime of an issued token.
	DefaultTokenExpiration = 30 * 24 * time.Hour

	// verifiedTTL bounds how long a verified token is trusted from cache.
	verifiedTTL = 5 * time.Minute
)

var (
	// ErrAuthRequired is returned when no identity was presented.
	ErrAuthRequired = errors.New("authentication required")

	// ErrInvalidToken is returned when a token is malformed, forged or expired.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the JWT claims of an owner token.
type Claims struct {
	Owner string `json:"owner"`
	jwt.RegisteredClaims
}

type verified struct {
	owner   string
	expires time.Time
}

// Authority signs and checks owner tokens with a shared HMAC secret.
type Authority struct {
	secret          []byte
	tokenExpiration time.Duration
	clock           clockwork.Clock
	cache           *expirable.LRU[string, verified]
}

// NewAuthority creates an authority. cacheSize bounds the verified-token cache.
func NewAuthority(secret string, tokenExpiration time.Duration, cacheSize int, clock clockwork.Clock) (*Authority, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if tokenExpiration == 0 {
		tokenExpiration = DefaultTokenExpiration
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Authority{
		secret:          []byte(secret),
		tokenExpiration: tokenExpiration,
		clock:           clock,
		cache:           expirable.NewLRU[string, verified](cacheSize, nil, verifiedTTL),
	}, nil
}

// Issue signs a token naming owner.
func (a *Authority) Issue(owner string) (string, error) {
	if owner == "" {
		return "", fmt.Errorf("owner is required")
	}

	now := a.clock.Now()
	claims := &Claims{
		Owner: owner,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner,
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenExpiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the owner named by token.
func (a *Authority) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrAuthRequired
	}

	now := a.clock.Now()
	if v, ok := a.cache.Get(tokenString); ok {
		if now.Before(v.expires) {
			return v.owner, nil
		}
		a.cache.Remove(tokenString)
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.clock.Now))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Owner == "" || claims.ExpiresAt == nil {
		return "", ErrInvalidToken
	}

	a.cache.Add(tokenString, verified{owner: claims.Owner, expires: claims.ExpiresAt.Time})
	return claims.Owner, nil
}
