package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"codstore.dev/storefront/pkg/global"
)

func InitEngine(cfg global.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Total-Count", "X-Request-ID", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(RequestID(), Timeout(cfg.RequestTimeout))
	return router
}

func InitializeRoutes(router *gin.Engine, h *Handler) {
	limiter := NewRateLimiter(h.cfg.AuthRateRPS, h.cfg.AuthRateBurst)

	api := router.Group("/api")
	api.Use(Authenticate(h.Auth, h.cfg.AuthCookieName))
	{
		api.GET("/health", h.HealthCheck)
		api.GET("/settings", h.GetPublicSettings)
		api.GET("/media/:hash/url", h.GetMediaURL)
		api.POST("/cart/quote", h.QuoteCart)

		authRoutes := api.Group("/auth")
		authRoutes.Use(limiter.Middleware())
		{
			authRoutes.POST("/register", h.Register)
			authRoutes.POST("/login", h.Login)
			authRoutes.POST("/logout", h.Logout)
			authRoutes.POST("/verify", h.VerifyEmail)
			authRoutes.POST("/resend", h.ResendVerification)
			authRoutes.POST("/forgot", h.ForgotPassword)
			authRoutes.POST("/reset", h.ResetPassword)
		}

		catalog := api.Group("/catalog")
		{
			catalog.GET("/products", h.GetProducts)
			catalog.GET("/products/:slug", h.GetProductBySlug)
			catalog.GET("/categories", h.GetCategories)

			manage := catalog.Group("", RequireAuth(), RequireAdmin())
			manage.POST("/products", h.CreateProduct)
			manage.PUT("/products/:slug", h.UpdateProduct)
			manage.DELETE("/products/:slug", h.DeleteProduct)
			manage.POST("/categories", h.CreateCategory)
			manage.DELETE("/categories/:slug", h.DeleteCategory)
		}

		profile := api.Group("/profile", RequireAuth())
		{
			profile.GET("", h.GetProfile)
			profile.PUT("", h.UpdateProfile)
			profile.POST("/change-password", h.ChangePassword)
			profile.GET("/orders", h.GetMyOrders)
		}

		orders := api.Group("/orders", RequireAuth())
		{
			orders.POST("", h.CreateOrder)
			orders.GET("/:id", h.GetOrder)
		}

		api.POST("/admin/bootstrap", limiter.Middleware(), h.BootstrapAdmin)

		admin := api.Group("/admin", RequireAuth(), RequireAdmin())
		{
			admin.GET("/orders", h.GetAllOrders)
			admin.GET("/orders/:id", h.GetOrder)
			admin.PUT("/orders/:id/status", h.UpdateOrderStatus)

			admin.GET("/settings", h.GetAllSettings)
			admin.GET("/settings/:key", h.GetSetting)
			admin.PUT("/settings/:key", h.UpdateSetting)

			admin.POST("/account", h.UpdateAdminAccount)
			admin.POST("/media", h.UploadMedia)

			analytics := admin.Group("/analytics")
			{
				analytics.GET("/orders", h.GetOrderAnalytics)
				analytics.GET("/ai/sales-report", h.GenerateAISalesReport)
			}
		}
	}
}
