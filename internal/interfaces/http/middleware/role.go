package middleware

import (
	"net/http"

	"github.com/chatforge/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleConfig holds configuration for role middleware
type RoleConfig struct {
	// Logger for middleware logging
	Logger *zap.Logger
	// OnDenied is called when access is denied (optional)
	OnDenied func(c *gin.Context, requiredRole identity.UserRole)
}

// roleRank orders workspace roles. A request passes when the caller's
// role ranks at or above the required one.
var roleRank = map[identity.UserRole]int{
	identity.UserRoleMember: 1,
	identity.UserRoleAdmin:  2,
	identity.UserRoleOwner:  3,
}

// RequireRole creates middleware that requires the caller's workspace
// role to be at least the given role
func RequireRole(role identity.UserRole) gin.HandlerFunc {
	return RequireRoleWithConfig(role, RoleConfig{})
}

// RequireRoleWithConfig creates role middleware with custom config
func RequireRoleWithConfig(role identity.UserRole, cfg RoleConfig) gin.HandlerFunc {
	required, ok := roleRank[role]
	if !ok {
		// Unknown required role denies everything rather than failing open
		required = roleRank[identity.UserRoleOwner] + 1
	}

	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			handleRoleDenied(c, cfg, role, "No authentication claims found")
			return
		}

		actual, ok := roleRank[identity.UserRole(claims.Role)]
		if !ok || actual < required {
			handleRoleDenied(c, cfg, role, "User role is insufficient")
			return
		}

		if cfg.Logger != nil {
			cfg.Logger.Debug("Role check passed",
				zap.String("user_id", claims.UserID),
				zap.String("required_role", string(role)),
				zap.String("user_role", claims.Role),
			)
		}

		c.Next()
	}
}

// HasRole is a helper function to check the caller's role in handlers.
// Returns true when the caller's role ranks at or above the given role.
func HasRole(c *gin.Context, role identity.UserRole) bool {
	claims := GetJWTClaims(c)
	if claims == nil {
		return false
	}

	required, ok := roleRank[role]
	if !ok {
		return false
	}
	actual, ok := roleRank[identity.UserRole(claims.Role)]
	return ok && actual >= required
}

// handleRoleDenied handles role denied scenarios
func handleRoleDenied(c *gin.Context, cfg RoleConfig, role identity.UserRole, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, role)
		return
	}

	if cfg.Logger != nil {
		claims := GetJWTClaims(c)
		userID := ""
		userRole := ""
		if claims != nil {
			userID = claims.UserID
			userRole = claims.Role
		}

		cfg.Logger.Warn("Role denied",
			zap.String("reason", reason),
			zap.String("user_id", userID),
			zap.String("required_role", string(role)),
			zap.String("user_role", userRole),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "ERR_FORBIDDEN",
			"message": "Access denied: insufficient role",
		},
	})
}
