package routes

import (
	"github.com/gin-gonic/gin"

	"medical-booking-server/internal/cache"
	"medical-booking-server/internal/config"
	"medical-booking-server/internal/handlers"
	"medical-booking-server/internal/middleware"
	"medical-booking-server/internal/models"
	"medical-booking-server/internal/repository"
	"medical-booking-server/internal/services"
)

// Dependencies are the collaborators the handlers are built from.
type Dependencies struct {
	Config       *config.Config
	Store        *repository.Store
	KV           cache.KV
	Hasher       services.Hasher
	Applications *services.ApplicationService
	Availability *services.AvailabilityService
	Booking      *services.BookingService
	Resets       *services.PasswordResetService
	Stats        *services.StatsService
	// UploadsDir is set when documents are stored on local disk.
	UploadsDir   string
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	cfg := deps.Config
	store := deps.Store

	authHandler := handlers.NewAuthHandler(store, store, deps.Applications, deps.Resets, deps.Hasher, cfg)
	userHandler := handlers.NewUserHandler(store)
	doctorHandler := handlers.NewDoctorHandler(store, deps.Availability)
	specialtyHandler := handlers.NewSpecialtyHandler(store)
	scheduleHandler := handlers.NewScheduleHandler(store)
	appointmentHandler := handlers.NewAppointmentHandler(deps.Booking, store, store)
	recordHandler := handlers.NewRecordHandler(store, store, store)
	notificationHandler := handlers.NewNotificationHandler(store)
	applicationHandler := handlers.NewApplicationHandler(store, deps.Applications)
	statsHandler := handlers.NewStatsHandler(deps.Stats)
	healthHandler := handlers.NewHealthHandler(map[string]handlers.Pinger{
		"database": store,
		"cache":    deps.KV,
	})

	auth := middleware.AuthMiddleware(cfg)
	patientOnly := middleware.RoleAuthMiddleware(models.RolePatient)
	doctorOnly := middleware.RoleAuthMiddleware(models.RoleDoctor)
	adminOnly := middleware.RoleAuthMiddleware(models.RoleAdmin)
	approvedDoctor := middleware.ApprovedDoctorMiddleware(store)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/apply-doctor", authHandler.ApplyDoctor)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
		}

		public.GET("/specialties", specialtyHandler.ListSpecialties)

		doctorRoutes := public.Group("/doctors")
		{
			doctorRoutes.GET("", doctorHandler.ListDoctors)
			doctorRoutes.GET("/:id", doctorHandler.GetDoctor)
			doctorRoutes.GET("/:id/availability", doctorHandler.GetAvailability)
			doctorRoutes.GET("/:id/available-days", doctorHandler.GetAvailableDays)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(auth)
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.ListNotifications)
			notificationRoutes.PATCH("/read-all", notificationHandler.MarkAllRead)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkRead)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", patientOnly, appointmentHandler.BookAppointment)
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointment)
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.PATCH("/:id/reschedule",
				middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin), appointmentHandler.RescheduleAppointment)

			staff := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)
			appointmentRoutes.PATCH("/:id/confirm", staff, appointmentHandler.ConfirmAppointment)
			appointmentRoutes.PATCH("/:id/complete", staff, appointmentHandler.CompleteAppointment)
			appointmentRoutes.PATCH("/:id/no-show", staff, appointmentHandler.MarkNoShow)
		}

		if deps.UploadsDir != "" {
			documentHandler := handlers.NewDocumentFileHandler(store, store, deps.UploadsDir)
			private.GET("/uploads/:name", documentHandler.ServeDocument)
		}

		recordRoutes := private.Group("/records")
		{
			recordRoutes.GET("", recordHandler.ListRecords)
			recordRoutes.GET("/:id", recordHandler.GetRecord)
			recordRoutes.GET("/:id/pdf", recordHandler.DownloadRecordPDF)
			recordRoutes.POST("", doctorOnly, approvedDoctor, recordHandler.CreateRecord)
			recordRoutes.PUT("/:id", doctorOnly, approvedDoctor, recordHandler.UpdateRecord)
		}

		// Any doctor, approved or not, can see and resubmit their application.
		doctorSelf := private.Group("/doctor")
		doctorSelf.Use(doctorOnly)
		{
			doctorSelf.GET("/application", applicationHandler.MyApplication)
			doctorSelf.POST("/application/resubmit", applicationHandler.Resubmit)

			scheduleRoutes := doctorSelf.Group("/schedules")
			scheduleRoutes.Use(approvedDoctor)
			{
				scheduleRoutes.GET("", scheduleHandler.ListSchedules)
				scheduleRoutes.POST("", scheduleHandler.CreateSchedule)
				scheduleRoutes.PUT("/:id", scheduleHandler.UpdateSchedule)
				scheduleRoutes.DELETE("/:id", scheduleHandler.DeleteSchedule)
			}
		}

		adminRoutes := private.Group("/admin")
		adminRoutes.Use(adminOnly)
		{
			adminRoutes.GET("/applications", applicationHandler.ListApplications)
			adminRoutes.GET("/applications/:id", applicationHandler.GetApplication)
			adminRoutes.POST("/applications/:id/approve", applicationHandler.Approve)
			adminRoutes.POST("/applications/:id/reject", applicationHandler.Reject)
			adminRoutes.PATCH("/documents/:id", applicationHandler.ReviewDocument)

			adminRoutes.GET("/specialties", specialtyHandler.ListAllSpecialties)
			adminRoutes.POST("/specialties", specialtyHandler.CreateSpecialty)
			adminRoutes.PUT("/specialties/:id", specialtyHandler.UpdateSpecialty)
			adminRoutes.DELETE("/specialties/:id", specialtyHandler.DeleteSpecialty)

			adminRoutes.POST("/users", userHandler.CreateAdmin)
			adminRoutes.GET("/users", userHandler.GetUsers)
			adminRoutes.GET("/users/:id", userHandler.GetUserByID)
			adminRoutes.PUT("/users/:id", userHandler.UpdateUser)
			adminRoutes.DELETE("/users/:id", userHandler.DeleteUser)

			adminRoutes.GET("/stats", statsHandler.GetStats)
			adminRoutes.GET("/stats/export", statsHandler.ExportStats)
		}
	}

	router.GET("/health", healthHandler.Health)
}
