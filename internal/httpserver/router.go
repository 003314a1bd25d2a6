package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/learnhub/internal/models"
	middleware "github.com/Skotchmaster/learnhub/pkg/middleware/auth"
	"github.com/Skotchmaster/learnhub/pkg/ratelimit"
)

type Deps struct {
	Auth       *AuthHTTP
	Catalog    *CatalogHTTP
	Enrollment *EnrollmentHTTP
	Health     *HealthHTTP

	Authenticator *middleware.Authenticator
	AuthLimiter   *ratelimit.Limiter
	APILimiter    *ratelimit.Limiter
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", d.Health.Live)
	e.GET("/health/live", d.Health.Live)
	e.GET("/health/ready", d.Health.Ready)

	requireAuth := d.Authenticator.RequireAuth
	authLimit := ratelimit.Middleware(d.AuthLimiter, ratelimit.RouteIPKey)
	staff := middleware.RequireRole(models.RoleInstructor, models.RoleAdmin)

	api := e.Group("/api", ratelimit.Middleware(d.APILimiter, ratelimit.RouteIPKey))

	auth := api.Group("/auth")
	auth.POST("/signup", d.Auth.Signup, authLimit)
	auth.POST("/login", d.Auth.Login, authLimit)
	auth.POST("/refresh", d.Auth.Refresh, authLimit)
	auth.POST("/forgot-password", d.Auth.ForgotPassword, authLimit)
	auth.POST("/reset-password", d.Auth.ResetPassword, authLimit)
	auth.GET("/me", d.Auth.Me, requireAuth)
	auth.POST("/logout", d.Auth.Logout, requireAuth)

	courseOwner := middleware.RequireOwnershipOrAdmin(d.Catalog.OwnerFromParam("id"))
	courses := api.Group("/courses")
	courses.GET("", d.Catalog.List)
	courses.GET("/:id", d.Catalog.Get)
	courses.POST("", d.Catalog.Create, requireAuth, staff)
	courses.PUT("/:id", d.Catalog.Update, requireAuth, staff, courseOwner)
	courses.DELETE("/:id", d.Catalog.Delete, requireAuth, staff, courseOwner)

	enrollments := api.Group("/enrollments", requireAuth)
	enrollments.GET("/all", d.Enrollment.All, middleware.RequireRole(models.RoleAdmin))
	enrollments.GET("/course/:courseId", d.Enrollment.ForCourse, staff,
		middleware.RequireOwnershipOrAdmin(d.Catalog.OwnerFromParam("courseId")))
	enrollments.POST("", d.Enrollment.Enroll, middleware.RequireRole(models.Roles...))
	enrollments.GET("/me", d.Enrollment.Mine)
	enrollments.GET("/:id", d.Enrollment.Get)
	enrollments.PUT("/:id/progress", d.Enrollment.UpdateProgress)
}
