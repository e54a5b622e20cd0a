package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/fitlog/fitness-api/docs"
	"github.com/fitlog/fitness-api/internal/api/handler"
	"github.com/fitlog/fitness-api/internal/api/middleware"
)

// Dependencies carries everything NewRouter wires into routes.
type Dependencies struct {
	Auth      handler.AuthDeps
	OAuth     handler.OAuthDeps
	Readiness map[string]handler.DependencyCheck
	Logger    zerolog.Logger

	// LoginPagePath is where page routes send anonymous visitors.
	LoginPagePath  string
	MetricsEnabled bool
	SwaggerEnabled bool
}

// infraPaths never carry a session and are never gated.
var infraPaths = []string{"/health", "/metrics", "/swagger"}

func skipInfra(c echo.Context) bool {
	path := c.Request().URL.Path
	for _, p := range infraPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	if deps.MetricsEnabled {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem: "fitness",
			Skipper:   skipInfra,
		}))
	}
	e.Use(middleware.LoadSession(middleware.SessionConfig{
		Skipper:  skipInfra,
		Sessions: deps.Auth.Sessions,
		Jar:      deps.Auth.Jar,
		Logger:   deps.Logger,
	}))

	authHandler := handler.NewAuthHandler(deps.Auth)
	oauthHandler := handler.NewOAuthHandler(deps.OAuth)

	// --- Public auth routes ---
	e.POST("/signup", authHandler.Signup)
	e.GET("/login", authHandler.LoginPage)
	e.POST("/login", authHandler.Login)
	e.GET("/logout", authHandler.Logout)
	e.GET("/auth/:provider", oauthHandler.Begin)
	e.GET("/auth/:provider/callback", oauthHandler.Callback)

	// --- Protected API routes: anonymous requests get 401 ---
	apiGroup := e.Group("/api", middleware.RequireIdentity(middleware.Reject()))
	apiGroup.GET("/me", authHandler.Me)
	apiGroup.DELETE("/me", authHandler.DeleteMe)

	// --- Protected pages: anonymous requests go to the login page ---
	e.GET("/dashboard", authHandler.Dashboard, middleware.RequireIdentity(middleware.RedirectTo(deps.LoginPagePath)))

	// --- Health checks (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Readiness)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	if deps.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}
	if deps.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// requestLogger emits one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error()
			}
			if v.Error != nil {
				ev = ev.Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
