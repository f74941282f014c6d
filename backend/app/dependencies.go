package app

import (
	"github.com/entraops/jwt-gateway/backend/config"
	"github.com/entraops/jwt-gateway/backend/entra"
	"github.com/entraops/jwt-gateway/backend/handlers"
	"github.com/entraops/jwt-gateway/backend/middleware"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Auth
	Validator      *entra.Validator
	AuthMiddleware *middleware.AuthMiddleware

	// Handlers
	HealthHandler    *handlers.HealthHandler
	ProtectedHandler *handlers.ProtectedHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(cfg *config.Config, logger *zap.Logger) *Dependencies {
	validator := entra.NewValidator(entra.Config{
		IssuerV1:     cfg.Entra.IssuerV1(),
		IssuerV2:     cfg.Entra.IssuerV2(),
		Audiences:    cfg.Entra.Audiences(),
		JWKSURL:      cfg.Entra.JWKSURL(),
		JWKSTimeout:  cfg.Entra.JWKSTimeout,
		JWKSCacheTTL: cfg.Entra.JWKSCacheTTL,
		ClockSkew:    cfg.Entra.ClockSkew,
	})

	deps := &Dependencies{
		Config:           cfg,
		Logger:           logger,
		Validator:        validator,
		AuthMiddleware:   middleware.NewAuthMiddleware(validator, logger),
		HealthHandler:    handlers.NewHealthHandler(cfg.Entra.TenantID, cfg.Entra.ClientID, logger),
		ProtectedHandler: handlers.NewProtectedHandler(logger),
	}

	logger.Info("all dependencies initialized successfully")
	return deps
}
