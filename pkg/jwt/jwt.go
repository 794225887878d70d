package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess TokenType = "access"
	TokenTypeShare  TokenType = "share"
)

// ScopeShare marks a credential minted from a share-link claim so downstream
// authorization never confuses it with a full user session.
const ScopeShare = "share"

// Claims extends jwt.RegisteredClaims with custom fields. Internal access
// tokens carry tenant and permission claims for the authenticated user; share
// credentials additionally carry the share/resource binding and the share
// scope discriminator.
type Claims struct {
	jwt.RegisteredClaims
	TokenType   TokenType `json:"token_type"`
	TenantID    string    `json:"tenant_id,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	ShareID     string    `json:"share_id,omitempty"`
	ResourceID  string    `json:"resource_id,omitempty"`
	Scope       string    `json:"scope,omitempty"`
}

type Manager struct {
	signingKey    []byte
	issuer        string
	accessTTL     time.Duration
	credentialTTL time.Duration
}

func NewManager(signingKey string, issuer string, accessTTL, credentialTTL time.Duration) *Manager {
	return &Manager{
		signingKey:    []byte(signingKey),
		issuer:        issuer,
		accessTTL:     accessTTL,
		credentialTTL: credentialTTL,
	}
}

// CredentialTTL reports the lifetime applied to share credentials.
func (m *Manager) CredentialTTL() time.Duration {
	return m.credentialTTL
}

// GenerateAccessToken creates a signed JWT access token for an internal user.
func (m *Manager) GenerateAccessToken(userID uuid.UUID, tenantID string, permissions []string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
			ID:        uuid.New().String(),
		},
		TokenType:   TokenTypeAccess,
		TenantID:    tenantID,
		Permissions: permissions,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// GenerateShareCredential creates the short-lived bearer credential returned
// by a successful share-link claim. The subject is synthetic ("share:<id>")
// so it never collides with a real user id.
func (m *Manager) GenerateShareCredential(shareID uuid.UUID, tenantID, resourceID string, permissions []string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   "share:" + shareID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.credentialTTL)),
			ID:        uuid.New().String(),
		},
		TokenType:   TokenTypeShare,
		TenantID:    tenantID,
		Permissions: permissions,
		ShareID:     shareID.String(),
		ResourceID:  resourceID,
		Scope:       ScopeShare,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.signingKey)
}

// Validate parses and validates a token string, returning claims.
func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.signingKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.Issuer != m.issuer {
		return nil, errors.New("invalid issuer")
	}

	return claims, nil
}
