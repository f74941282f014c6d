package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/entraops/jwt-gateway/backend/entra"
	"github.com/entraops/jwt-gateway/backend/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	// ValidateToken validates a raw token and returns verified claims
	ValidateToken(ctx context.Context, token string) (*entra.VerifiedClaims, error)
}

// AuthMiddleware provides bearer-token authentication for protected routes
type AuthMiddleware struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(validator TokenValidator, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		validator: validator,
		logger:    logger,
	}
}

// RequireAuth is a middleware that requires a valid Entra ID bearer token.
// On success the verified claims are attached to the request context; on any
// failure the downstream handler is skipped and a 401 with a short message
// is written. Internal detail stays in the server log.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.logger.Warn("no authorization header",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "No authorization header")
			return
		}

		token, ok := parseBearerToken(authHeader)
		if !ok {
			m.logger.Warn("invalid authorization header format",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, "Invalid authorization header format")
			return
		}

		m.logger.Info("received bearer token",
			zap.String("request_id", requestID),
			zap.String("token_preview", entra.TokenPreview(token)),
			zap.Int("token_length", len(token)))

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, rejectionMessage(err))
			return
		}

		ctx = WithClaims(ctx, claims)

		// The oid claim is a GUID for user and app tokens; tolerate its
		// absence but surface malformed values in the log.
		if claims.ObjectID != "" {
			objectID, err := uuid.Parse(claims.ObjectID)
			if err != nil {
				m.logger.Warn("malformed oid claim",
					zap.String("request_id", requestID),
					zap.Error(err))
			} else {
				ctx = WithObjectID(ctx, &objectID)
			}
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("sub", claims.Subject),
			zap.String("upn", claims.PrincipalName),
			zap.String("oid", claims.ObjectID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rejectionMessage maps a validation error to the short client-facing
// message. Every kind maps to 401; none of the wrapped detail reaches the
// response body.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, entra.ErrTokenExpired):
		return "Token has expired"
	case errors.Is(err, entra.ErrInvalidAudience):
		return "Invalid token audience"
	case errors.Is(err, entra.ErrInvalidIssuer):
		return "Invalid token issuer"
	default:
		return "Invalid token"
	}
}

// parseBearerToken requires the exact two-field "Bearer <token>" form.
// Anything else, including extra fields or a different scheme, is rejected.
func parseBearerToken(authHeader string) (string, bool) {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
