package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/rpg-librarium/liberation/internal/core/domain"
)

// IdentityKey is the echo context key the authentication middleware stores
// the caller's identity under.
const IdentityKey = "identity"

// SetIdentity attaches the authenticated caller to the request context.
func SetIdentity(c echo.Context, id *domain.Identity) {
	c.Set(IdentityKey, id)
}

// CurrentIdentity returns the authenticated caller, or nil for anonymous
// requests.
func CurrentIdentity(c echo.Context) *domain.Identity {
	id, _ := c.Get(IdentityKey).(*domain.Identity)
	return id
}

func currentUsername(c echo.Context) string {
	if id := CurrentIdentity(c); id != nil {
		return id.Username
	}
	return ""
}
