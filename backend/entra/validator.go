package entra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for any rejection without a more specific kind
	ErrInvalidToken = errors.New("invalid token")

	// ErrMalformedToken is returned when the token is not structurally a JWT
	ErrMalformedToken = errors.New("malformed token")

	// ErrBadSignature is returned when signature verification fails or the
	// token declares a signing algorithm other than RS256
	ErrBadSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotYetValid is returned when the token's not-before is in the future
	ErrTokenNotYetValid = errors.New("token not yet valid")

	// ErrInvalidIssuer is returned when the token issuer is not the expected one
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when the token audience is not accepted
	ErrInvalidAudience = errors.New("invalid audience")
)

// Config holds the trust parameters for a Validator
type Config struct {
	// IssuerV1 is the legacy sts.windows.net issuer; IssuerV2 the current
	// login.microsoftonline.com one. A token is matched against exactly one
	// of the two, selected from its own issuer claim.
	IssuerV1 string
	IssuerV2 string

	// Audiences is the accepted audience set. A token is accepted when its
	// audience matches any entry exactly.
	Audiences []string

	JWKSURL      string
	JWKSTimeout  time.Duration
	JWKSCacheTTL time.Duration

	// ClockSkew is the leeway applied to exp, nbf and iat checks
	ClockSkew time.Duration
}

// Validator verifies Entra ID access tokens: signature via the tenant's
// published keys, then issuer, audience and time claims against the
// configured trust parameters.
type Validator struct {
	resolver  *KeyResolver
	issuerV1  string
	issuerV2  string
	audiences []string
	clockSkew time.Duration
}

// NewValidator creates a Validator with its own key resolver
func NewValidator(cfg Config) *Validator {
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Validator{
		resolver:  NewKeyResolver(cfg.JWKSURL, cfg.JWKSTimeout, cfg.JWKSCacheTTL),
		issuerV1:  cfg.IssuerV1,
		issuerV2:  cfg.IssuerV2,
		audiences: cfg.Audiences,
		clockSkew: cfg.ClockSkew,
	}
}

// Resolver exposes the underlying key resolver (cache invalidation, tests)
func (v *Validator) Resolver() *KeyResolver { return v.resolver }

// ValidateToken verifies the raw token and returns its claims. Every
// rejection maps to one of the package's sentinel errors; the wrapped detail
// is for server logs, never for response bodies.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*VerifiedClaims, error) {
	// Read the unverified issuer claim to select which of the two issuer
	// forms this token must match. This is a lookup only: the selected value
	// is enforced against the verified claims below.
	expectedIssuer, err := v.selectIssuer(tokenString)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// The provider signs with RS256 only. Anything else, including a
		// symmetric algorithm naming the public key as its secret, is
		// rejected before any key material is used.
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrBadSignature, token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: kid header not found", ErrKeyResolution)
		}

		return v.resolver.ResolveKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(v.clockSkew),
	)

	if err != nil {
		switch {
		case errors.Is(err, ErrKeyResolution):
			return nil, err
		case errors.Is(err, ErrBadSignature):
			return nil, err
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	// Issuer and audience checks run on the verified claims
	if claims.Issuer != expectedIssuer {
		return nil, fmt.Errorf("%w: expected %s", ErrInvalidIssuer, expectedIssuer)
	}
	if !containsAudience(claims.Audience, v.audiences) {
		return nil, fmt.Errorf("%w: expected one of %v", ErrInvalidAudience, v.audiences)
	}

	return newVerifiedClaims(claims), nil
}

// selectIssuer picks which configured issuer the token must match: exactly
// the v1 form selects v1, everything else is validated against v2.
func (v *Validator) selectIssuer(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	unverified := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, unverified); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if unverified.Issuer == v.issuerV1 {
		return v.issuerV1, nil
	}
	return v.issuerV2, nil
}

// containsAudience checks if any token audience matches an accepted one
func containsAudience(audiences jwt.ClaimStrings, accepted []string) bool {
	for _, aud := range audiences {
		for _, want := range accepted {
			if aud == want {
				return true
			}
		}
	}
	return false
}
