package entra

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the claims carried by an Entra ID access token.
// Registered claims are validated by the parser; the provider-specific
// fields below are copied into VerifiedClaims after validation succeeds.
type Claims struct {
	jwt.RegisteredClaims
	ObjectID          string `json:"oid,omitempty"`
	Name              string `json:"name,omitempty"`
	UPN               string `json:"upn,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	TenantID          string `json:"tid,omitempty"`
	AppID             string `json:"appid,omitempty"`
	Scope             string `json:"scp,omitempty"`
	Version           string `json:"ver,omitempty"`
}

// VerifiedClaims is the claim set returned only after full signature and
// claims validation. It is attached to the request context for the duration
// of a single request and discarded with it.
type VerifiedClaims struct {
	Issuer        string    `json:"iss"`
	Subject       string    `json:"sub"`
	Audience      string    `json:"aud"`
	ObjectID      string    `json:"oid,omitempty"`
	Name          string    `json:"name,omitempty"`
	PrincipalName string    `json:"upn,omitempty"`
	TenantID      string    `json:"tid,omitempty"`
	Scope         string    `json:"scp,omitempty"`
	Version       string    `json:"ver,omitempty"`
	IssuedAt      time.Time `json:"iat"`
	ExpiresAt     time.Time `json:"exp"`
}

// newVerifiedClaims builds the verified claim set from a validated payload.
// v2.0 tokens carry preferred_username instead of upn; both are accepted as
// the principal name.
func newVerifiedClaims(claims *Claims) *VerifiedClaims {
	principal := claims.UPN
	if principal == "" {
		principal = claims.PreferredUsername
	}

	audience := ""
	if len(claims.Audience) > 0 {
		audience = claims.Audience[0]
	}

	verified := &VerifiedClaims{
		Issuer:        claims.Issuer,
		Subject:       claims.Subject,
		Audience:      audience,
		ObjectID:      claims.ObjectID,
		Name:          claims.Name,
		PrincipalName: principal,
		TenantID:      claims.TenantID,
		Scope:         claims.Scope,
		Version:       claims.Version,
	}
	if claims.IssuedAt != nil {
		verified.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		verified.ExpiresAt = claims.ExpiresAt.Time
	}
	return verified
}

// tokenPreviewLen bounds how much of a raw token may appear in logs.
const tokenPreviewLen = 50

// TokenPreview returns a bounded prefix of a raw token safe for logging.
// The full credential must never be written to logs.
func TokenPreview(raw string) string {
	if len(raw) <= tokenPreviewLen {
		return raw
	}
	return raw[:tokenPreviewLen] + "..."
}
