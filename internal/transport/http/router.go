package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/handlers"
	"github.com/vitabid/marketplace/internal/middleware"
	"github.com/vitabid/marketplace/internal/service"
)

type Deps struct {
	DB             *gorm.DB
	Auth           *service.AuthService
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
	ProductHandler *handlers.ProductHandler
	SearchHandler  *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error {
		sqlDB, err := d.DB.DB()
		if err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
			return c.NoContent(503)
		}
		return c.NoContent(200)
	})

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/email/code", d.AuthHandler.SendEmailCode)
	auth.POST("/email/verify", d.AuthHandler.VerifyEmailCode)
	auth.POST("/phone/code", d.AuthHandler.SendPhoneCode)
	auth.POST("/phone/verify", d.AuthHandler.VerifyPhoneCode)
	auth.GET("/nickname", d.AuthHandler.CheckNickname)

	v1.GET("/search", d.SearchHandler.Search)
	v1.GET("/products", d.ProductHandler.GetProducts)
	v1.GET("/products/:id", d.ProductHandler.GetProduct)

	protected := v1.Group("", middleware.RequireAuth(d.Auth))

	protected.GET("/users/me", d.UserHandler.Me)
	protected.PATCH("/users/me", d.UserHandler.UpdateInfo)
	protected.DELETE("/users/me", d.UserHandler.DeleteMe)

	protected.POST("/products", d.ProductHandler.CreateProduct)
	protected.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	protected.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	admin := protected.Group("/admin", middleware.AdminOnly)
	admin.POST("/blacklist/purge", d.AuthHandler.PurgeBlacklist)
}
