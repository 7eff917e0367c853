// Package identity adapts the external identity provider: it verifies the
// provider's access tokens and asks it to send magic sign-in links.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/diewo77/portfolio-pilot/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrTokenExpired = errors.New("access token expired")
)

// Claims are the access-token claims the provider issues. Subject is the
// user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// JWTVerifier checks HS256 access tokens signed with the provider's secret.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTVerifier returns a verifier; empty issuer or audience are not checked.
func NewJWTVerifier(secret []byte, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: secret, issuer: issuer, audience: audience}
}

// Verify implements auth.TokenVerifier.
func (v *JWTVerifier) Verify(tokenString string) (auth.Identity, error) {
	if len(v.secret) == 0 {
		return auth.Identity{}, ErrInvalidToken
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.Identity{}, ErrTokenExpired
		}
		return auth.Identity{}, ErrInvalidToken
	}
	if !token.Valid {
		return auth.Identity{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return auth.Identity{}, ErrInvalidToken
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return auth.Identity{}, ErrInvalidToken
	}
	return auth.Identity{ID: id, Email: email}, nil
}

// IssueToken signs an access token the way the provider does. It backs the
// development seed and tests.
func IssueToken(id auth.Identity, secret []byte, issuer, audience string, validity time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		Email: id.Email,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
