package routes

import (
	"medify-server/internal/booking"
	"medify-server/internal/config"
	"medify-server/internal/handlers"
	"medify-server/internal/middleware"
	"medify-server/internal/models"
	"medify-server/internal/notify"
	"medify-server/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, engine *booking.Engine, files storage.FileStore, mailer notify.Mailer, log zerolog.Logger) {
	authHandler := handlers.NewAuthHandler(db, cfg, mailer, log)
	doctorHandler := handlers.NewDoctorHandler(db, engine)
	patientHandler := handlers.NewPatientHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, engine)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(db, files)
	messageHandler := handlers.NewMessageHandler(db, files)
	reviewHandler := handlers.NewReviewHandler(db)
	searchHandler := handlers.NewSearchHandler(db)
	adminHandler := handlers.NewAdminHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
		}

		// Public doctor directory for browsing before booking
		public.GET("/doctors", doctorHandler.GetDoctors)
		public.GET("/doctors/public-profile/:doctorId", doctorHandler.GetPublicProfile)
		public.GET("/doctors/availability/:doctorId/slots/:date", appointmentHandler.GetOpenSlots)
		public.GET("/reviews/doctor/:doctorId", reviewHandler.GetDoctorReviews)
		public.GET("/search/doctors", searchHandler.SearchDoctors)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
		}

		doctorRoutes := private.Group("/doctors")
		doctorRoutes.Use(middleware.RoleAuthMiddleware(models.RoleDoctor))
		{
			doctorRoutes.PUT("/profile", doctorHandler.UpdateProfile)
			doctorRoutes.GET("/availability", doctorHandler.GetAvailability)
			doctorRoutes.PUT("/availability", doctorHandler.UpdateAvailability)
			doctorRoutes.GET("/patients", doctorHandler.GetPatients)
		}

		patientRoutes := private.Group("/patients")
		patientRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			patientRoutes.PUT("/profile", patientHandler.UpdateProfile)
			patientRoutes.POST("/medical-history", patientHandler.AddMedicalHistory)
			patientRoutes.GET("/medical-history", patientHandler.GetMedicalHistory)
			patientRoutes.POST("/favorites/:doctorId", patientHandler.AddFavorite)
			patientRoutes.GET("/favorites", patientHandler.GetFavorites)
			patientRoutes.DELETE("/favorites/:doctorId", patientHandler.RemoveFavorite)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			// Status changes, reschedules and notes; authorization in the engine
			appointmentRoutes.PATCH("/:id", appointmentHandler.UpdateAppointment)
		}

		medicalRecordRoutes := private.Group("/medical-records")
		{
			medicalRecordRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalRecordHandler.CreateReport)
			medicalRecordRoutes.GET("", medicalRecordHandler.GetReports)
			medicalRecordRoutes.GET("/patient/:patientId", medicalRecordHandler.GetPatientReports)
			medicalRecordRoutes.GET("/attachments/:attachmentId", medicalRecordHandler.GetAttachment)

			prescriptionRoutes := medicalRecordRoutes.Group("/prescriptions")
			{
				prescriptionRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalRecordHandler.CreatePrescription)
				prescriptionRoutes.GET("", medicalRecordHandler.GetPrescriptions)
				prescriptionRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), medicalRecordHandler.UpdatePrescription)
			}
		}

		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.GET("/unread-count", messageHandler.GetUnreadCount)
			messageRoutes.GET("/conversation/:userId", messageHandler.GetConversation)
		}

		reviewRoutes := private.Group("/reviews")
		reviewRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			reviewRoutes.POST("/:doctorId", reviewHandler.CreateReview)
			reviewRoutes.PUT("/:reviewId", reviewHandler.UpdateReview)
			reviewRoutes.DELETE("/:reviewId", reviewHandler.DeleteReview)
		}

		searchRoutes := private.Group("/search")
		{
			searchRoutes.GET("/appointments", searchHandler.SearchAppointments)
			searchRoutes.GET("/medical-records", searchHandler.SearchMedicalReports)
		}

		adminRoutes := private.Group("/admin")
		adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.GET("/counts", adminHandler.GetCounts)
			adminRoutes.GET("/accounts/:type", adminHandler.GetAccounts)
			adminRoutes.GET("/profile/:type/:id", adminHandler.GetProfile)
			adminRoutes.DELETE("/account/:type/:id", adminHandler.DeleteAccount)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
