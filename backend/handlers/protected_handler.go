package handlers

import (
	"net/http"
	"time"

	"github.com/entraops/jwt-gateway/backend/entra"
	"github.com/entraops/jwt-gateway/backend/middleware"
	"github.com/entraops/jwt-gateway/backend/utils"
	"go.uber.org/zap"
)

// UserInfo carries the identity fields of the verified caller
type UserInfo struct {
	UPN  string `json:"upn"`
	Name string `json:"name"`
	OID  string `json:"oid"`
}

// TokenInfo carries the trust and timing fields of the verified token
type TokenInfo struct {
	Issuer    string `json:"issuer"`
	Audience  string `json:"audience"`
	IssuedAt  string `json:"issued_at"`
	ExpiresAt string `json:"expires_at"`
}

// ProtectedResponse is the body returned by the protected resource endpoint
type ProtectedResponse struct {
	Message   string    `json:"message"`
	Timestamp string    `json:"timestamp"`
	User      UserInfo  `json:"user"`
	TokenInfo TokenInfo `json:"token_info"`
}

// TokenInfoResponse is the body returned by the token-info endpoint
type TokenInfoResponse struct {
	Message string                `json:"message"`
	Claims  *entra.VerifiedClaims `json:"claims"`
}

// ProtectedHandler handles endpoints behind the authentication guard
type ProtectedHandler struct {
	logger *zap.Logger
}

// NewProtectedHandler creates a new ProtectedHandler
func NewProtectedHandler(logger *zap.Logger) *ProtectedHandler {
	return &ProtectedHandler{logger: logger}
}

// HandleProtected handles GET|POST /api/protected
func (h *ProtectedHandler) HandleProtected(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		// The guard attaches claims before this handler runs; reaching here
		// without them means the route was wired without RequireAuth.
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	response := ProtectedResponse{
		Message:   "Successfully accessed protected resource",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		User: UserInfo{
			UPN:  orNA(claims.PrincipalName),
			Name: orNA(claims.Name),
			OID:  orNA(claims.ObjectID),
		},
		TokenInfo: TokenInfo{
			Issuer:    claims.Issuer,
			Audience:  claims.Audience,
			IssuedAt:  claims.IssuedAt.UTC().Format(time.RFC3339),
			ExpiresAt: claims.ExpiresAt.UTC().Format(time.RFC3339),
		},
	}

	h.logger.Info("protected endpoint accessed",
		zap.String("upn", orNA(claims.PrincipalName)),
		zap.String("oid", claims.ObjectID))

	_ = utils.WriteOK(w, response)
}

// HandleTokenInfo handles POST /api/token-info
func (h *ProtectedHandler) HandleTokenInfo(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return
	}

	h.logger.Info("token info requested",
		zap.String("upn", orNA(claims.PrincipalName)))

	_ = utils.WriteOK(w, TokenInfoResponse{
		Message: "Token decoded successfully",
		Claims:  claims,
	})
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}
