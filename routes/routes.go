package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pg-backend/controllers"
	"pg-backend/middleware"
)

type Controllers struct {
	Onboarding   *controllers.OnboardingController
	Properties   *controllers.PropertyController
	Tenants      *controllers.TenantController
	Transactions *controllers.TransactionController
	Outbox       *controllers.OutboxController
}

func SetupRouter(h Controllers, origins []string, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger))

	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "Idempotency-Key", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		properties := api.Group("/properties")
		{
			properties.GET("", h.Properties.List)
			properties.POST("", h.Properties.Create)
			properties.GET("/:id", h.Properties.Get)
			properties.GET("/:id/availability", h.Properties.Availability)
		}

		onboarding := api.Group("/onboarding")
		{
			onboarding.GET("/start", h.Onboarding.Start)
			onboarding.GET("/edit/:id", h.Onboarding.StartEdit)
			onboarding.POST("/next", h.Onboarding.Next)
			onboarding.POST("/prev", h.Onboarding.Prev)
			onboarding.POST("/select", h.Onboarding.Select)
			onboarding.POST("/submit", h.Onboarding.Submit)
		}

		tenants := api.Group("/tenants")
		{
			tenants.GET("", h.Tenants.List)
			tenants.GET("/:id", h.Tenants.Get)
			tenants.PUT("/:id", h.Tenants.Update)
		}

		api.GET("/transactions", h.Transactions.List)

		outbox := api.Group("/outbox")
		{
			outbox.GET("", h.Outbox.List)
			outbox.POST("/:id/retry", h.Outbox.Retry)
			outbox.POST("/:id/abandon", h.Outbox.Abandon)
		}
	}

	return r
}
