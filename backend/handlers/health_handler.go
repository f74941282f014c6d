package handlers

import (
	"net/http"
	"time"

	"github.com/entraops/jwt-gateway/backend/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
	TenantID  string `json:"tenant_id"`
	ClientID  string `json:"client_id"`
}

// HealthHandler handles the unauthenticated health endpoint
type HealthHandler struct {
	tenantID string
	clientID string
	logger   *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(tenantID, clientID string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		tenantID: tenantID,
		clientID: clientID,
		logger:   logger,
	}
}

// HandleHealth handles GET /
// Basic health check - always returns 200 if the service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Service:   "jwt-backend",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TenantID:  h.tenantID,
		ClientID:  h.clientID,
	}

	_ = utils.WriteOK(w, response)
}
