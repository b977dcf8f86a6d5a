package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var allPermissions = []string{
	"ingest.run",
	"document.view",
	"document.delete",
	"kg.read",
	"kg.write",
	"kg.maintain",
	"summary.view",
	"summary.write",
}

// AuthMiddleware resolves the caller from the Authorization header: either
// the master API key or a JWT validated against the JWKS. Tokens must carry
// a tenant_id claim; master-key callers send X-Tenant-ID instead.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		token := strings.Split(authHeader, " ")[1]
		app := c.(*AppContext).App

		if app.MasterAPIKey != "" && token == app.MasterAPIKey {
			c.(*AppContext).User = &AppUser{
				Subject:     "master",
				TenantID:    c.Request().Header.Get("X-Tenant-ID"),
				Role:        "admin",
				Permissions: allPermissions,
			}
			return next(c)
		}

		k := *app.Key
		parsed, err := jwt.Parse(token, k.Keyfunc)
		if err != nil || !parsed.Valid {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		claims, ok := parsed.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		}

		tenantID, _ := claims["tenant_id"].(string)
		if tenantID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Token missing tenant"})
		}

		subject, _ := claims["sub"].(string)

		role := "user"
		if roleClaim, ok := claims["role"].(string); ok {
			role = roleClaim
		}

		var permissions []string
		if permsClaim, ok := claims["permissions"].([]any); ok {
			for _, p := range permsClaim {
				if pStr, ok := p.(string); ok {
					permissions = append(permissions, pStr)
				}
			}
		}
		if role == "admin" && len(permissions) == 0 {
			permissions = allPermissions
		}

		c.(*AppContext).User = &AppUser{
			Subject:     subject,
			TenantID:    tenantID,
			Role:        role,
			Permissions: permissions,
		}

		return next(c)
	}
}
