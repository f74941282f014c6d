package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/entraops/jwt-gateway/backend/entra"
	"github.com/entraops/jwt-gateway/backend/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func verifiedClaims() *entra.VerifiedClaims {
	return &entra.VerifiedClaims{
		Issuer:        "https://login.microsoftonline.com/tenant-123/v2.0",
		Subject:       "subject-123",
		Audience:      "api://client-456",
		ObjectID:      "oid-789",
		Name:          "Test User",
		PrincipalName: "test.user@example.com",
		IssuedAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		ExpiresAt:     time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
	}
}

func TestHandleProtected(t *testing.T) {
	handler := NewProtectedHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), verifiedClaims()))
	w := httptest.NewRecorder()

	handler.HandleProtected(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body ProtectedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Successfully accessed protected resource", body.Message)
	assert.Equal(t, "test.user@example.com", body.User.UPN)
	assert.Equal(t, "Test User", body.User.Name)
	assert.Equal(t, "oid-789", body.User.OID)
	assert.Equal(t, "https://login.microsoftonline.com/tenant-123/v2.0", body.TokenInfo.Issuer)
	assert.Equal(t, "api://client-456", body.TokenInfo.Audience)
	assert.Equal(t, "2024-05-01T10:00:00Z", body.TokenInfo.IssuedAt)
	assert.Equal(t, "2024-05-01T11:00:00Z", body.TokenInfo.ExpiresAt)
	assert.True(t, strings.HasSuffix(body.Timestamp, "Z"))
}

func TestHandleProtected_MissingIdentityFields(t *testing.T) {
	handler := NewProtectedHandler(zap.NewNop())

	claims := verifiedClaims()
	claims.PrincipalName = ""
	claims.Name = ""
	claims.ObjectID = ""

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	w := httptest.NewRecorder()

	handler.HandleProtected(w, req)

	var body ProtectedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "N/A", body.User.UPN)
	assert.Equal(t, "N/A", body.User.Name)
	assert.Equal(t, "N/A", body.User.OID)
}

func TestHandleProtected_NoClaims(t *testing.T) {
	handler := NewProtectedHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	w := httptest.NewRecorder()

	handler.HandleProtected(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleTokenInfo(t *testing.T) {
	handler := NewProtectedHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/token-info", nil)
	req = req.WithContext(middleware.WithClaims(req.Context(), verifiedClaims()))
	w := httptest.NewRecorder()

	handler.HandleTokenInfo(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body TokenInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Token decoded successfully", body.Message)
	require.NotNil(t, body.Claims)
	assert.Equal(t, "subject-123", body.Claims.Subject)
	assert.Equal(t, "api://client-456", body.Claims.Audience)
}
