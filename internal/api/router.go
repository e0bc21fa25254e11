package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/rpg-librarium/liberation/docs"
	"github.com/rpg-librarium/liberation/internal/api/handler"
	"github.com/rpg-librarium/liberation/internal/api/middleware"
	"github.com/rpg-librarium/liberation/internal/core/domain"
	"github.com/rpg-librarium/liberation/internal/core/ports"
)

const (
	defaultLoginRatePerMin = 10
	bodyLimit              = "1M"
)

// Deps carries everything the router wires into handlers and middleware.
type Deps struct {
	Auth        ports.AuthService
	Books       ports.BookService
	Audit       ports.AuditRecorder
	Idempotency ports.IdempotencyStore // optional
	Health      map[string]handler.Pinger
	Logger      zerolog.Logger

	// PublicRead serves GET /book and GET /book/:id without authentication.
	PublicRead      bool
	LoginRatePerMin int

	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)
	e.Validator = handler.NewValidator()

	audit := d.Audit
	if audit == nil {
		audit = ports.NopAuditRecorder{}
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(prometheusMiddleware(d.Registry))
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, audit)
	bookHandler := handler.NewBookHandler(d.Books, audit)
	healthHandler := handler.NewHealthHandler(d.Health)

	authenticated := middleware.Authenticate(d.Auth, middleware.AuthOptions{Audit: audit})
	readers := middleware.Authenticate(d.Auth, middleware.AuthOptions{Audit: audit, AllowAnonymous: d.PublicRead})
	librarians := middleware.RequireRoles(d.Auth, audit, domain.RoleLibrarian)
	admins := middleware.RequireRoles(d.Auth, audit, domain.RoleAdmin)
	idempotent := middleware.Idempotency(d.Idempotency, d.Logger)

	// --- Health probes, metrics and docs (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", metricsHandler(d.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Auth routes ---
	e.POST("/auth/login", authHandler.Login, loginRateLimiter(d.LoginRatePerMin))

	admin := e.Group("/admin", authenticated, admins)
	admin.POST("/users", authHandler.CreateUser)

	// --- Catalog routes ---
	book := e.Group("/book")
	book.GET("", bookHandler.List, readers)
	book.GET("/:id", bookHandler.Get, readers)
	book.POST("", bookHandler.Create, authenticated, librarians, idempotent)
	book.POST("/", bookHandler.Create, authenticated, librarians, idempotent)
	book.PUT("/:id", bookHandler.Update, authenticated, librarians)

	return e
}

// loginRateLimiter allows perMin attempts per client IP per minute.
func loginRateLimiter(perMin int) echo.MiddlewareFunc {
	if perMin <= 0 {
		perMin = defaultLoginRatePerMin
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMin) / 60),
		Burst:     perMin,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "access denied")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
		},
	})
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
