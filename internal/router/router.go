package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // Echo web framework for routing
    "github.com/redis/go-redis/v9"

    "github.com/kateri/camp-registration/internal/config"     // rate limit configuration
    "github.com/kateri/camp-registration/internal/handler"    // HTTP handlers implementing the endpoints
    "github.com/kateri/camp-registration/internal/middleware" // JWT auth, role enforcement and rate limiting
    "github.com/kateri/camp-registration/internal/model"      // role constants
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check
// used by load balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints and the protected
// /v1/me route.  Unauthenticated operations live under /v1/auth;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated session browsing
// endpoint.  No JWT or role middleware applies here; availability
// numbers are already sanitized by the handler.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler) {
    e.GET("/v1/sessions", p.ListSessions)
}

// RegisterRegistration registers the parent-facing registration flow.
// Every route requires a valid access token with the PARENT or ADMIN
// role, and the whole group sits behind the Redis token bucket so one
// client cannot monopolize the hold endpoint on registration morning.
func RegisterRegistration(e *echo.Echo, h *handler.RegistrationHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleParent, model.RoleAdmin))
    g.Use(middleware.NewTokenBucket(rl, rdb))

    g.POST("/registrations/hold", h.StartHold)
    g.POST("/registrations", h.Create)
    g.POST("/registrations/confirm", h.Confirm)
    g.POST("/registrations/deposit", h.InitiateDeposit)
    g.GET("/registrations/payments", h.ListPayments)
    g.GET("/my-registrations", h.ListMine)
    g.GET("/campers", h.ListCampers)
}

// RegisterAdmin registers the admin-only session management routes.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
    g := e.Group("/v1/admin")
    g.Use(middleware.JWTAuth(jwtSecret))
    g.Use(middleware.RequireRole(model.RoleAdmin))

    g.POST("/sessions", a.UpsertSession)
    g.GET("/sessions/holds-summary", a.HoldsSummary)
    g.POST("/sessions/release-expired", a.ReleaseExpired)
    g.POST("/jobs/ensure-counters", a.EnsureCounters)
}
