package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"contract-sender/internal/auth"

	"github.com/gin-gonic/gin"
)

func serve(role string, guard gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if role != "" {
			ctx := auth.WithIdentity(c.Request.Context(), auth.Identity{UserID: "u", Role: role})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}, guard, func(c *gin.Context) {
		c.Status(200)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serve(RoleAdmin, RequireAnyRole(RoleSales)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_SalesAllowed(t *testing.T) {
	if code := serve("Sales", RequireAnyRole(RoleSales)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAdmin_SalesForbidden(t *testing.T) {
	if code := serve(RoleSales, RequireAdmin()); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_NoIdentity(t *testing.T) {
	if code := serve("", RequireAnyRole(RoleSales)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
