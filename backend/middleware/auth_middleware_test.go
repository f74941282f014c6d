package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/entraops/jwt-gateway/backend/entra"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockTokenValidator is a mock implementation of TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (*entra.VerifiedClaims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entra.VerifiedClaims), args.Error(1)
}

func testClaims() *entra.VerifiedClaims {
	now := time.Now()
	return &entra.VerifiedClaims{
		Issuer:        "https://login.microsoftonline.com/tenant/v2.0",
		Subject:       "subject-123",
		Audience:      "api://client-123",
		ObjectID:      "oid-123",
		Name:          "Test User",
		PrincipalName: "test.user@example.com",
		IssuedAt:      now,
		ExpiresAt:     now.Add(1 * time.Hour),
	}
}

func TestRequireAuth(t *testing.T) {
	logger := zap.NewNop()

	t.Run("valid bearer token allows request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		claims := testClaims()
		mockValidator.On("ValidateToken", mock.Anything, "valid-token").Return(claims, nil)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			extracted := GetClaimsFromContext(r.Context())
			assert.NotNil(t, extracted)
			assert.Equal(t, claims.Subject, extracted.Subject)
			assert.Equal(t, claims.PrincipalName, extracted.PrincipalName)

			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockValidator.AssertExpectations(t)
	})

	t.Run("well-formed oid is parsed into context", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		claims := testClaims()
		claims.ObjectID = "5f8b2c1e-8f3a-4b9d-9c6e-2a7d4e1f0b3c"
		mockValidator.On("ValidateToken", mock.Anything, "valid-token").Return(claims, nil)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			objectID := GetObjectIDFromContext(r.Context())
			assert.NotNil(t, objectID)
			assert.Equal(t, uuid.MustParse(claims.ObjectID), *objectID)

			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed oid does not block the request", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		claims := testClaims()
		claims.ObjectID = "not-a-guid"
		mockValidator.On("ValidateToken", mock.Anything, "valid-token").Return(claims, nil)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Nil(t, GetObjectIDFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing header is rejected before validation", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("downstream handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error": "No authorization header"}`, w.Body.String())
		mockValidator.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
	})

	t.Run("non-bearer scheme is rejected before validation", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("downstream handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Basic abc123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error": "Invalid authorization header format"}`, w.Body.String())
		mockValidator.AssertNotCalled(t, "ValidateToken", mock.Anything, mock.Anything)
	})

	t.Run("bearer with extra fields is rejected", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("downstream handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer token extra")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error": "Invalid authorization header format"}`, w.Body.String())
	})

	t.Run("expired token maps to its message", func(t *testing.T) {
		mockValidator := new(MockTokenValidator)
		authMiddleware := NewAuthMiddleware(mockValidator, logger)

		mockValidator.On("ValidateToken", mock.Anything, "expired-token").
			Return(nil, entra.ErrTokenExpired)

		handler := authMiddleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("downstream handler must not run")
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer expired-token")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error": "Token has expired"}`, w.Body.String())
	})
}

func TestRejectionMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"expired", entra.ErrTokenExpired, "Token has expired"},
		{"audience", entra.ErrInvalidAudience, "Invalid token audience"},
		{"issuer", entra.ErrInvalidIssuer, "Invalid token issuer"},
		{"bad signature", entra.ErrBadSignature, "Invalid token"},
		{"malformed", entra.ErrMalformedToken, "Invalid token"},
		{"key resolution", entra.ErrKeyResolution, "Invalid token"},
		{"not yet valid", entra.ErrTokenNotYetValid, "Invalid token"},
		{"catch-all", entra.ErrInvalidToken, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rejectionMessage(tt.err))
		})
	}
}

func TestParseBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{"plain bearer", "Bearer abc.def.ghi", "abc.def.ghi", true},
		{"case-insensitive scheme", "bearer abc", "abc", true},
		{"basic scheme", "Basic abc123", "", false},
		{"scheme only", "Bearer", "", false},
		{"three fields", "Bearer one two", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := parseBearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestGetClaimsFromContext_Empty(t *testing.T) {
	assert.Nil(t, GetClaimsFromContext(context.Background()))
}
