package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/farmhub/farmhub-api/internal/middleware"
	"github.com/farmhub/farmhub-api/internal/models"
	"github.com/farmhub/farmhub-api/internal/service"
)

// API bundles the core service handlers for route registration.
type API struct {
	Auth        *AuthHandler
	Users       *UserHandler
	Farms       *FarmHandler
	Cows        *CowHandler
	Milk        *MilkHandler
	Activities  *ActivityHandler
	Enrollments *EnrollmentHandler

	AuthService *service.AuthService
}

// Register mounts the core API routes under the given prefix. Route-level
// role gates are coarse; row-level decisions happen in the access policy.
func (a *API) Register(r *gin.Engine, prefix string) {
	root := r.Group(prefix)

	auth := root.Group("/auth")
	auth.POST("/register", middleware.OptionalJWT(a.AuthService), a.Auth.Register)
	auth.POST("/login", a.Auth.Login)
	auth.POST("/refresh", a.Auth.Refresh)
	auth.POST("/logout", middleware.JWT(a.AuthService), a.Auth.Logout)
	auth.GET("/me", middleware.JWT(a.AuthService), a.Auth.Me)

	adminAgent := middleware.RequireRoles(models.RoleAdmin, models.RoleAgent)

	protected := root.Group("")
	protected.Use(middleware.JWT(a.AuthService))

	users := protected.Group("/users")
	users.GET("", a.Users.List)
	users.GET("/:id", a.Users.Get)
	users.POST("/farmers", adminAgent, a.Users.CreateFarmer)
	users.POST("/agents", middleware.RequireRoles(models.RoleAdmin), a.Users.CreateAgent)

	farms := protected.Group("/farms")
	farms.GET("", a.Farms.List)
	farms.GET("/:id", a.Farms.Get)
	farms.POST("", adminAgent, a.Farms.Create)
	farms.PUT("/:id", adminAgent, a.Farms.Update)
	farms.DELETE("/:id", adminAgent, a.Farms.Delete)

	cows := protected.Group("/cows")
	cows.GET("", a.Cows.List)
	cows.GET("/:id", a.Cows.Get)
	cows.POST("", a.Cows.Create)
	cows.PUT("/:id", a.Cows.Update)
	cows.DELETE("/:id", a.Cows.Delete)

	milk := protected.Group("/milk-production")
	milk.GET("", a.Milk.List)
	milk.GET("/:id", a.Milk.Get)
	milk.POST("", a.Milk.Create)
	milk.PUT("/:id", a.Milk.Update)
	milk.DELETE("/:id", a.Milk.Delete)

	activities := protected.Group("/activities")
	activities.GET("", a.Activities.List)
	activities.GET("/:id", a.Activities.Get)
	activities.POST("", a.Activities.Create)
	activities.PUT("/:id", a.Activities.Update)
	activities.DELETE("/:id", a.Activities.Delete)

	enrollments := protected.Group("/enrollments")
	enrollments.GET("", a.Enrollments.List)
	enrollments.GET("/:id", a.Enrollments.Get)
	enrollments.POST("", adminAgent, a.Enrollments.Create)
	enrollments.PUT("/:id", adminAgent, a.Enrollments.Update)
	enrollments.DELETE("/:id", adminAgent, a.Enrollments.Delete)
}

// Reporting bundles the reporting service handlers.
type Reporting struct {
	Reports     *ReportHandler
	AuthService *service.AuthService
}

// Register mounts the reporting routes. Every report is token-gated but
// not row-scoped.
func (r *Reporting) Register(engine *gin.Engine) {
	reports := engine.Group("/reports")
	reports.Use(middleware.JWT(r.AuthService))
	reports.GET("/farm-summary", r.Reports.FarmSummary)
	reports.GET("/milk-production", r.Reports.MilkProduction)
	reports.GET("/milk-production/export.csv", r.Reports.MilkProductionCSV)
	reports.GET("/milk-production/export.pdf", r.Reports.MilkProductionPDF)
	reports.GET("/recent-activities", r.Reports.RecentActivities)
}
