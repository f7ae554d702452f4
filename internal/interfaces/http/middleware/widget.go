package middleware

import (
	"net/http"
	"strings"

	"github.com/chatforge/backend/internal/infrastructure/auth"
	"github.com/chatforge/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// Widget session context keys
const (
	WidgetClaimsKey = "widget_claims"
)

// WidgetAuthMiddleware authenticates widget session tokens. Unlike the
// dashboard JWT middleware there is no user behind the token, only a
// visitor scoped to one bot of one tenant.
func WidgetAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortWidgetUnauthorized(c)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			abortWidgetUnauthorized(c)
			return
		}

		claims, err := jwtService.ValidateWidgetToken(tokenString)
		if err != nil {
			abortWidgetUnauthorized(c)
			return
		}

		c.Set(WidgetClaimsKey, claims)

		// Tenant scoping for repositories downstream
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithTenantID(ctx, log, claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetWidgetClaims retrieves widget session claims from gin.Context
func GetWidgetClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(WidgetClaimsKey); exists {
		if widgetClaims, ok := claims.(*auth.Claims); ok {
			return widgetClaims
		}
	}
	return nil
}

func abortWidgetUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INVALID_SESSION",
			"message": "Widget session is missing or expired",
		},
	})
}
