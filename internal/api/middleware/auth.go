package middleware

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rpg-librarium/liberation/internal/api/handler"
	"github.com/rpg-librarium/liberation/internal/api/metrics"
	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

// AuthOptions tunes Authenticate per route group.
type AuthOptions struct {
	// AllowAnonymous lets requests without an Authorization header through
	// with no identity attached. A present but invalid header is still
	// rejected.
	AllowAnonymous bool
	Audit          ports.AuditRecorder
}

// Authenticate resolves the caller from an Authorization header carrying
// either HTTP Basic credentials or a bearer token, and stores the identity
// in the echo context.
func Authenticate(gateway ports.AuthService, opts AuthOptions) echo.MiddlewareFunc {
	audit := opts.Audit
	if audit == nil {
		audit = ports.NopAuditRecorder{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				if opts.AllowAnonymous {
					return next(c)
				}
				return domain.ErrAuthenticationFailed
			}

			scheme, credentials, _ := strings.Cut(authHeader, " ")
			credentials = strings.TrimSpace(credentials)

			var (
				identity *domain.Identity
				username string
				method   string
				err      error
			)
			switch {
			case strings.EqualFold(scheme, "basic"):
				method = "basic"
				var password string
				username, password, err = decodeBasic(credentials)
				if err == nil {
					identity, err = gateway.Authenticate(c.Request().Context(), username, password)
				}
			case strings.EqualFold(scheme, "bearer"):
				method = "bearer"
				identity, err = gateway.ParseToken(credentials)
			default:
				method = "unknown"
				err = domain.ErrAuthenticationFailed
			}

			if err != nil {
				if !errors.Is(err, domain.ErrAuthenticationFailed) {
					return err
				}
				metrics.AuthAttemptsTotal.WithLabelValues(method, "failure").Inc()
				audit.Record(domain.AuditEvent{
					Username:   username,
					Action:     domain.AuditAuthenticate,
					Outcome:    domain.OutcomeFailed,
					Resource:   c.Request().Method + " " + c.Path(),
					RemoteIP:   c.RealIP(),
					OccurredAt: time.Now().UTC(),
				})
				return domain.ErrAuthenticationFailed
			}

			metrics.AuthAttemptsTotal.WithLabelValues(method, "success").Inc()
			handler.SetIdentity(c, identity)
			return next(c)
		}
	}
}

// decodeBasic splits base64 "username:password" at the first colon.
func decodeBasic(credentials string) (string, string, error) {
	raw, err := base64.StdEncoding.DecodeString(credentials)
	if err != nil {
		return "", "", domain.ErrAuthenticationFailed
	}
	username, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", domain.ErrAuthenticationFailed
	}
	return username, password, nil
}
