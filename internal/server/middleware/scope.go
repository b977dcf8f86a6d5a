package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/lattice-kb/lattice/pkg/common"
	"github.com/lattice-kb/lattice/pkg/store"
)

// ScopeFrom resolves the request's graph scope: the tenant from the
// authenticated user, the client partition from the X-Client-ID header.
// An absent header selects the tenant-wide partition.
func ScopeFrom(c echo.Context) (common.Scope, error) {
	user := c.(*AppContext).User
	if user == nil {
		return common.Scope{}, fmt.Errorf("%w: no authenticated user", store.ErrValidation)
	}
	if user.TenantID == "" {
		return common.Scope{}, fmt.Errorf("%w: no tenant selected", store.ErrValidation)
	}

	return common.Scope{
		TenantID: user.TenantID,
		ClientID: c.Request().Header.Get("X-Client-ID"),
	}, nil
}
