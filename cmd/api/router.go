package api

import (
	"net/http"

	"nexcrm-backend/internal/auth/delivery"
	authUsecase "nexcrm-backend/internal/auth/usecase"
	contactDelivery "nexcrm-backend/internal/contact/delivery"
	statsDelivery "nexcrm-backend/internal/stats/delivery"
	syncDelivery "nexcrm-backend/internal/sync/delivery"
	"nexcrm-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, authUsecase authUsecase.AuthUsecase, cfg *config.Config, syncHandler *syncDelivery.SyncHandler, contactHandler *contactDelivery.ContactHandler, statsHandler *statsDelivery.StatsHandler) {
	authHandler := delivery.NewAuthHandler(authUsecase)

	// The scheduled-sync endpoint serves two callers: a signed-in user
	// re-syncing their own account (userId query) and the external cron
	// hitting the all-users path with the shared secret.
	scheduledSyncAuth := func(c *gin.Context) {
		if c.Query("userId") != "" {
			delivery.AuthMiddleware(authUsecase)(c)
			return
		}
		delivery.CronAuthMiddleware(cfg.CronSecret)(c)
	}

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/google", authHandler.GoogleSignIn)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", delivery.AuthMiddleware(authUsecase), authHandler.Me)
			auth.POST("/logout", authHandler.Logout)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUsecase))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Contact routes (protected)
		contacts := api.Group("/contacts")
		contacts.Use(delivery.AuthMiddleware(authUsecase))
		{
			contacts.GET("", contactHandler.List)
			contacts.POST("", contactHandler.Create)
			contacts.GET("/search", contactHandler.Search)
			contacts.GET("/export", contactHandler.Export)
			contacts.POST("/import", contactHandler.Import)
			contacts.POST("/aggregate-all", contactHandler.AggregateAll)
			contacts.GET("/:id", contactHandler.Get)
			contacts.PUT("/:id", contactHandler.Update)
			contacts.DELETE("/:id", contactHandler.Delete)
			contacts.POST("/:id/aggregate", contactHandler.Aggregate)
		}

		// Gmail sync routes
		gmail := api.Group("/gmail")
		{
			gmail.GET("/sync", delivery.AuthMiddleware(authUsecase), syncHandler.Sync)
			gmail.POST("/sync-scheduled", scheduledSyncAuth, syncHandler.SyncScheduled)
			gmail.POST("/link", delivery.AuthMiddleware(authUsecase), syncHandler.LinkAccount)
			gmail.DELETE("/link", delivery.AuthMiddleware(authUsecase), syncHandler.UnlinkAccount)
		}

		// Sync job history (protected)
		jobs := api.Group("/sync-jobs")
		jobs.Use(delivery.AuthMiddleware(authUsecase))
		{
			jobs.GET("", syncHandler.ListJobs)
			jobs.DELETE("/clear", syncHandler.ClearHistory)
		}

		// Sync settings (protected)
		settings := api.Group("/sync-settings")
		settings.Use(delivery.AuthMiddleware(authUsecase))
		{
			settings.GET("", syncHandler.GetSettings)
			settings.PUT("", syncHandler.UpdateSettings)
		}

		// Dashboard stats (protected)
		stats := api.Group("/stats")
		stats.Use(delivery.AuthMiddleware(authUsecase))
		{
			stats.GET("/dashboard", statsHandler.Dashboard)
		}
	}
}
