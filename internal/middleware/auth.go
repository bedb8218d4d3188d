package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"scormhub/internal/pkg/jwt"
	"scormhub/internal/pkg/response"
	"scormhub/internal/pkg/session"
)

// JWTAuth validates the bearer token and places the caller in both the gin
// context ("user_id", "role") and the request context for
// session.ContextProvider.
func JWTAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.CustomError(c, http.StatusUnauthorized, "AUTH_HEADER_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_AUTH_FORMAT", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}

		user := session.User{ID: claims.UserID, Role: claims.Role, OrgIDs: claims.OrgIDs}
		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
		c.Request = c.Request.WithContext(session.WithUser(c.Request.Context(), user))
		c.Next()
	}
}
