package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rpg-librarium/liberation/internal/api/handler"
	"github.com/rpg-librarium/liberation/internal/api/metrics"
	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

// RequireRoles enforces role-based access control through the gateway. The
// caller must hold any one of roles; admins pass every check. It must run
// after Authenticate.
func RequireRoles(gateway ports.AuthService, audit ports.AuditRecorder, roles ...domain.Role) echo.MiddlewareFunc {
	if audit == nil {
		audit = ports.NopAuditRecorder{}
	}
	required := strings.Join(domain.RoleNames(roles), ",")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := handler.CurrentIdentity(c)
			if identity == nil {
				return domain.ErrAuthenticationFailed
			}

			if err := gateway.Authorize(identity, roles...); err != nil {
				metrics.AuthzDeniedTotal.WithLabelValues(c.Path()).Inc()
				audit.Record(domain.AuditEvent{
					Username:   identity.Username,
					Action:     domain.AuditAuthorize,
					Outcome:    domain.OutcomeDenied,
					Resource:   c.Request().Method + " " + c.Path() + " requires " + required,
					RemoteIP:   c.RealIP(),
					OccurredAt: time.Now().UTC(),
				})
				return domain.ErrAuthorizationDenied
			}
			return next(c)
		}
	}
}
