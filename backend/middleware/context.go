package middleware

import (
	"context"

	"github.com/entraops/jwt-gateway/backend/entra"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for verified token claims
	ClaimsKey contextKey = "claims"
	// ObjectIDKey is the context key for the parsed oid claim
	ObjectIDKey contextKey = "object_id"
)

// GetClaimsFromContext retrieves verified claims from context. Returns nil
// when the request did not pass through RequireAuth.
func GetClaimsFromContext(ctx context.Context) *entra.VerifiedClaims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*entra.VerifiedClaims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds verified claims to the context
func WithClaims(ctx context.Context, claims *entra.VerifiedClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetObjectIDFromContext retrieves the parsed object ID from context. Returns
// nil when the token carried no well-formed oid claim.
func GetObjectIDFromContext(ctx context.Context) *uuid.UUID {
	if val := ctx.Value(ObjectIDKey); val != nil {
		if objectID, ok := val.(*uuid.UUID); ok {
			return objectID
		}
	}
	return nil
}

// WithObjectID adds a parsed object ID to the context
func WithObjectID(ctx context.Context, objectID *uuid.UUID) context.Context {
	return context.WithValue(ctx, ObjectIDKey, objectID)
}

// GetRequestIDFromContext retrieves the request ID assigned by the router
func GetRequestIDFromContext(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
