package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 digests for stored and revoked tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // jti values
)

// ErrTokenInvalid is returned for any token that fails to parse, verify or
// carry the expected claims.
var ErrTokenInvalid = errors.New("token invalid")

// AccessClaims are carried by access tokens: the account id, its email and
// its role name.
type AccessClaims struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims are carried by refresh tokens.  Only the account id is
// embedded; everything else is looked up on use.
type RefreshClaims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// SignedToken is a serialized JWT along with its expiry.
type SignedToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 access token.  A random jti keeps
// two tokens minted in the same second distinct.
func NewAccessToken(secret, accountID, email, role string, ttl time.Duration, now time.Time) (SignedToken, error) {
	exp := now.UTC().Add(ttl)
	claims := AccessClaims{
		ID:    accountID,
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	return sign(secret, claims, exp)
}

// NewRefreshToken builds and signs an HS256 refresh token with its own
// secret.
func NewRefreshToken(secret, accountID string, ttl time.Duration, now time.Time) (SignedToken, error) {
	exp := now.UTC().Add(ttl)
	claims := RefreshClaims{
		ID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now.UTC()),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	return sign(secret, claims, exp)
}

func sign(secret string, claims jwt.Claims, exp time.Time) (SignedToken, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SignedToken{}, fmt.Errorf("signing token: %w", err)
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken verifies signature and expiry (as of now) and returns the
// claims.
func ParseAccessToken(secret, raw string, now time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, raw, claims,
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}
	return claims, nil
}

// DecodeAccessToken verifies the signature but ignores expiry, so a token
// that already lapsed can still be explicitly revoked.
func DecodeAccessToken(secret, raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(secret, raw, claims, jwt.WithoutClaimsValidation()); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}
	return claims, nil
}

// ParseRefreshToken verifies a refresh token against the refresh secret.
func ParseRefreshToken(secret, raw string, now time.Time) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := parse(secret, raw, claims,
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	); err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrTokenInvalid)
	}
	return claims, nil
}

func parse(secret, raw string, claims jwt.Claims, opts ...jwt.ParserOption) error {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	tok, err := jwt.ParseWithClaims(raw, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !tok.Valid {
		return ErrTokenInvalid
	}
	return nil
}

// HashToken returns the SHA-256 hex digest of a raw token.  Refresh tokens
// are stored and revoked access tokens are keyed by this digest only.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
