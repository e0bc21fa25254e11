package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rpg-librarium/liberation/internal/api/metrics"
	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	audit       ports.AuditRecorder
}

func NewAuthHandler(authService ports.AuthService, audit ports.AuditRecorder) *AuthHandler {
	if audit == nil {
		audit = ports.NopAuditRecorder{}
	}
	return &AuthHandler{authService: authService, audit: audit}
}

// Login authenticates a credential pair and returns a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	token, identity, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAuthenticationFailed) {
			metrics.AuthAttemptsTotal.WithLabelValues("login", "failure").Inc()
			h.record(c, req.Username, domain.AuditLogin, domain.OutcomeFailed, "")
		}
		return err
	}

	metrics.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	h.record(c, identity.Username, domain.AuditLogin, domain.OutcomeSuccess, "")

	return c.JSON(http.StatusOK, loginResponse{
		Token:     token,
		TokenType: "Bearer",
		User:      identityResponse(identity),
	})
}

// CreateUser provisions a new account. Admin only.
//
// @Summary      Create a user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BasicAuth
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "Account details"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/users [post]
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.RegisterUser(c.Request().Context(), req.Username, req.Password, req.Roles)
	if err != nil {
		return err
	}

	h.record(c, currentUsername(c), domain.AuditUserCreate, domain.OutcomeSuccess, "user:"+user.Username)
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

func (h *AuthHandler) record(c echo.Context, username string, action domain.AuditAction, outcome domain.AuditOutcome, resource string) {
	h.audit.Record(domain.AuditEvent{
		Username:   username,
		Action:     action,
		Outcome:    outcome,
		Resource:   resource,
		RemoteIP:   c.RealIP(),
		OccurredAt: time.Now().UTC(),
	})
}
