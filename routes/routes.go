package routes

import (
	"agenda-backend/config"
	"agenda-backend/controllers"
	"agenda-backend/middleware"
	"agenda-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the controllers the router mounts.
type Handlers struct {
	Availability *controllers.AvailabilityController
	Appointments *controllers.AppointmentController
	Services     *controllers.ServiceController
	Reminders    *controllers.ReminderController
	Profile      *controllers.ProfileController
	WhatsApp     *controllers.WhatsAppController
}

func SetupRouter(cfg config.Config, h Handlers, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(utils.ErrorHandler())

	origins := cfg.AllowedOrigins()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger(logger))

	r.GET("/health", controllers.Health)

	limiter := middleware.NewRateLimiter(cfg.WebhookRatePerMinute)
	whatsapp := r.Group("/api/whatsapp")
	{
		whatsapp.POST("/webhook", limiter.Middleware(h.WhatsApp.SenderKey), h.WhatsApp.Webhook)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(cfg.JWTSecret))
	{
		availability := api.Group("/availability")
		{
			availability.GET("/services", h.Availability.Services)
			availability.GET("/slots", h.Availability.Slots)
			availability.GET("/calendar", h.Availability.Calendar)
		}

		appointments := api.Group("/appointments")
		{
			appointments.POST("", h.Appointments.Create)
			appointments.GET("/:id", h.Appointments.Get)
			appointments.GET("/:id/invoice", h.Appointments.Invoice)
			appointments.POST("/:id/confirm", h.Appointments.Confirm)
			appointments.POST("/:id/cancel", h.Appointments.Cancel)
			appointments.POST("/:id/complete", h.Appointments.Complete)
			appointments.POST("/:id/reschedule", h.Appointments.Reschedule)
		}

		services := api.Group("/services")
		{
			services.POST("", h.Services.CreateService)
			services.GET("", h.Services.GetServices)
			services.PUT("/:id", h.Services.UpdateService)
			services.DELETE("/:id", h.Services.DeleteService)
		}

		templates := api.Group("/reminder-templates")
		{
			templates.GET("", h.Reminders.GetReminderTemplates)
			templates.PUT("/:type", h.Reminders.SaveReminderTemplate)
		}

		profile := api.Group("/profile")
		{
			profile.GET("", h.Profile.GetProfile)
			profile.PUT("/settings", h.Profile.UpdateSettings)
		}
	}

	return r
}
