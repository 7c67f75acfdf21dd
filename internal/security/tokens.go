package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authplane/internal/clock"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails verification.
	ErrInvalidToken = errors.New("invalid token")
)

// AdminClaims holds JWT claims for an admin-scoped access token. No tenant claims.
type AdminClaims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// TenantClaims holds JWT claims for a tenant-scoped access token. Authorization
// on subsequent requests is derived from these claims alone, never re-read from storage.
type TenantClaims struct {
	jwt.RegisteredClaims
	Email           string   `json:"email"`
	Name            string   `json:"name"`
	UserType        string   `json:"user_type"`
	ApplicationID   string   `json:"application_id"`
	ApplicationCode string   `json:"application_code"`
	ApplicationRole string   `json:"application_role"`
	Permissions     []string `json:"permissions,omitempty"`
}

// TokenProvider issues and verifies HS256-signed access tokens. The clock is
// injected so expiry behavior is testable.
type TokenProvider struct {
	secret    []byte
	issuer    string
	audience  string
	accessTTL time.Duration
	clk       clock.Clock
}

// NewTokenProvider returns a TokenProvider signing with the given symmetric secret.
// issuer and audience are set on claims and validated on verification.
func NewTokenProvider(secret []byte, issuer, audience string, accessTTL time.Duration, clk clock.Clock) *TokenProvider {
	return &TokenProvider{
		secret:    secret,
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
		clk:       clk,
	}
}

// IssueAdmin issues an admin-scoped access token carrying the user's system role names.
// Returns the token string, its jti, and expiration time.
func (p *TokenProvider) IssueAdmin(userID, email, name string, roles []string) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := p.clk.Now()
	expiresAt = now.Add(p.accessTTL)
	claims := AdminClaims{
		RegisteredClaims: p.registered(jti, userID, now, expiresAt),
		Email:            email,
		Name:             name,
		Roles:            roles,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, jti, expiresAt, err
}

// IssueTenant issues a tenant-scoped access token binding the user, application,
// role, and granted permission names into one verifiable credential.
func (p *TokenProvider) IssueTenant(userID, email, name, userType, appID, appCode, appRole string, permissions []string) (token, jti string, expiresAt time.Time, err error) {
	jti, err = generateJTI()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := p.clk.Now()
	expiresAt = now.Add(p.accessTTL)
	claims := TenantClaims{
		RegisteredClaims: p.registered(jti, userID, now, expiresAt),
		Email:            email,
		Name:             name,
		UserType:         userType,
		ApplicationID:    appID,
		ApplicationCode:  appCode,
		ApplicationRole:  appRole,
		Permissions:      permissions,
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	return token, jti, expiresAt, err
}

// VerifyAdmin parses and verifies an admin-scoped token (signature, exp, iss, aud).
func (p *TokenProvider) VerifyAdmin(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyTenant parses and verifies a tenant-scoped token (signature, exp, iss, aud).
// A verified token yields back the exact (user, application, role, permission set)
// bound at issuance.
func (p *TokenProvider) VerifyTenant(tokenString string) (*TenantClaims, error) {
	claims := &TenantClaims{}
	if err := p.parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.ApplicationID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (p *TokenProvider) registered(jti, subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    p.issuer,
		Audience:  jwt.ClaimStrings{p.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (p *TokenProvider) parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithTimeFunc(p.clk.Now),
	)
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
