package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/waifubot/backend/internal/infrastructure/auth"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Gateway auth context keys
const (
	GatewayClaimsKey = "gateway_claims"
	GatewayKey       = "gateway"
	AuthHeaderKey    = "Authorization"
	BearerPrefix     = "Bearer "
)

// GatewayAuthConfig holds configuration for the gateway auth middleware
type GatewayAuthConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// Revocations is optional; when set revoked tokens are rejected
	Revocations auth.RevocationList
	// SkipPaths are exact paths served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultGatewayAuthConfig skips only the health checks
func DefaultGatewayAuthConfig(jwtService *auth.JWTService) GatewayAuthConfig {
	return GatewayAuthConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/api/v1/health"},
		Logger:     zap.NewNop(),
	}
}

// GatewayAuth requires a valid gateway bearer token
func GatewayAuth(cfg GatewayAuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		if header == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Missing authorization header")
			return
		}
		tokenString, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || tokenString == "" {
			abortAuth(c, cfg, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		claims, err := cfg.JWTService.ValidateToken(tokenString)
		if err != nil {
			abortAuth(c, cfg, err, "Token validation failed")
			return
		}

		if cfg.Revocations != nil && isRevoked(c, cfg, claims) {
			abortAuth(c, cfg, auth.ErrTokenRevoked, "Token has been revoked")
			return
		}

		c.Set(GatewayClaimsKey, claims)
		c.Set(GatewayKey, claims.Gateway)
		c.Next()
	}
}

// isRevoked fails open: a revocation store outage is logged, not enforced
func isRevoked(c *gin.Context, cfg GatewayAuthConfig, claims *auth.Claims) bool {
	ctx := c.Request.Context()

	if claims.ID != "" {
		revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			cfg.Logger.Error("Failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
		} else if revoked {
			return true
		}
	}

	if claims.IssuedAt != nil {
		revoked, err := cfg.Revocations.IsGatewayRevoked(ctx, claims.Gateway, claims.IssuedAt.Time)
		if err != nil {
			cfg.Logger.Error("Failed to check gateway revocation", zap.String("gateway", claims.Gateway), zap.Error(err))
		} else if revoked {
			return true
		}
	}
	return false
}

func abortAuth(c *gin.Context, cfg GatewayAuthConfig, err error, message string) {
	cfg.Logger.Warn("Gateway authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, text := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		code, text = dto.ErrCodeTokenRevoked, "Token has been revoked"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingGateway), errors.Is(err, auth.ErrTokenNotYetValid):
		code, text = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, text, GetRequestID(c)))
}

// GetGatewayClaims returns the claims stored by GatewayAuth
func GetGatewayClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(GatewayClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetGateway returns the authenticated gateway name
func GetGateway(c *gin.Context) string {
	return c.GetString(GatewayKey)
}
