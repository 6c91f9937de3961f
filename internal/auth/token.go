// Package auth issues and verifies the signed session tokens that carry the
// acting user, their organization and their role.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JonMunkholm/assettrack/internal/core"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload.
type Claims struct {
	UserID         int64  `json:"user_id"`
	OrganizationID int64  `json:"organization_id"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies tokens with one HMAC secret.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer. An empty issuer skips the iss check.
func NewIssuer(secret, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a signed token for actor.
func (i *Issuer) Issue(actor core.Actor) (string, error) {
	now := i.now()
	claims := Claims{
		UserID:         actor.UserID,
		OrganizationID: actor.OrganizationID,
		Role:           string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   fmt.Sprint(actor.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Verify parses a token and returns the actor it names.
func (i *Issuer) Verify(tokenStr string) (core.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return core.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	role := core.Role(claims.Role)
	if claims.UserID <= 0 || claims.OrganizationID <= 0 || (role != core.RoleAdmin && role != core.RoleUser) {
		return core.Actor{}, fmt.Errorf("%w: incomplete claims", ErrInvalidToken)
	}
	return core.Actor{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		Role:           role,
	}, nil
}
