package rbac

import (
	"net/http"

	"contract-sender/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole gates a route group on the caller's role. It must run
// after auth.RequireAccessToken.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		switch {
		case err != nil || role == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
		case !Allows(role, allowed...):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "role": role})
		default:
			c.Next()
		}
	}
}

func RequireAdmin() gin.HandlerFunc { return RequireAnyRole() }
