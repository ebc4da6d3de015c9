package middleware

import (
	"net/http"

	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"github.com/gin-gonic/gin"
)

const tenantHeader = "X-Tenant-ID"

// TenantResolver binds the request to a tenant database handle. The tenant
// key comes from the token when authenticated, otherwise from the header; a
// header that contradicts the token is rejected.
func TenantResolver(manager *database.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ""
		if claims := GetClaims(c); claims != nil {
			key = claims.TenantKey
		}

		header := c.GetHeader(tenantHeader)
		if key == "" {
			key = header
		} else if header != "" && header != key {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "cannot access another tenant's resources",
			})
			return
		}

		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": "missing tenant identifier",
			})
			return
		}

		handle, err := manager.Tenant(c.Request.Context(), key)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "failed to resolve tenant",
			})
			return
		}

		c.Set("tenant", handle)
		c.Next()
	}
}

// GetTenant extracts the tenant handle from context
func GetTenant(c *gin.Context) repositories.Tenant {
	if v, exists := c.Get("tenant"); exists {
		if t, ok := v.(repositories.Tenant); ok {
			return t
		}
	}
	return nil
}
