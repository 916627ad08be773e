package authz

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "llantera-erp"

// ErrInvalidToken indicates a bearer token failed validation.
var ErrInvalidToken = errors.New("authz: invalid token")

// TokenClaims are the JWT claims carried by API tokens. Roles and
// permission names are embedded at issuance so the claims strategy can
// answer checks without a database round trip.
type TokenClaims struct {
	Name        string   `json:"name,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permisos,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 JWT for the user with its roles and
// permission names embedded.
func IssueToken(secret []byte, userID int64, name string, roles, permissions []string, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", errors.New("authz: user id required")
	}
	if ttl <= 0 {
		return "", errors.New("authz: token ttl must be positive")
	}
	now := time.Now().UTC()
	claims := TokenClaims{
		Name:        name,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies the signature and registered claims of a token.
func ParseToken(secret []byte, token string) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*TokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ClaimsStrategy resolves permissions from the claims embedded in the
// principal's bearer token. No backing store is consulted; the token's
// TTL bounds staleness the same way the snapshot TTL does for the
// store strategy.
type ClaimsStrategy struct {
	secret     []byte
	adminRoles []string
}

// NewClaimsStrategy constructs the token-backed strategy.
func NewClaimsStrategy(secret []byte, adminRoles []string) *ClaimsStrategy {
	if len(adminRoles) == 0 {
		adminRoles = []string{defaultAdminRole}
	}
	return &ClaimsStrategy{secret: secret, adminRoles: adminRoles}
}

// Fetch decodes the principal's token into a snapshot.
func (s *ClaimsStrategy) Fetch(ctx context.Context, principal Principal) (Snapshot, error) {
	claims, err := ParseToken(s.secret, principal.Token)
	if err != nil {
		return Snapshot{}, err
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Snapshot{}, ErrInvalidToken
	}
	if principal.UserID != 0 && principal.UserID != userID {
		return Snapshot{}, ErrInvalidToken
	}
	return NewSnapshot(userID, claims.Name, claims.Roles, claims.Permissions, s.adminRoles), nil
}

var _ Strategy = (*ClaimsStrategy)(nil)
