package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/asclep-health/asclep/internal/config"
	"github.com/asclep-health/asclep/internal/schedule"
	"github.com/asclep-health/asclep/pkg/auth"
	"github.com/asclep-health/asclep/pkg/metrics"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	Metrics   *metrics.Collector
	JWT       *auth.JWTManager
	DB        *gorm.DB
	Scheduler *schedule.Scheduler

	Auth          *AuthHandler
	Medications   *MedicationHandler
	Notifications *NotificationHandler
	Prescriptions *PrescriptionHandler
	Dashboard     *DashboardHandler
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		RequestID(),
		Recovery(d.Log),
		RequestLogger(d.Log, d.Metrics),
		CORS(d.Config.CORS),
		RateLimit(d.Config.RateLimit),
	)

	r.GET("/healthz", healthz(d))
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(AuthRateLimit(d.Config.RateLimit))
	{
		authGroup.POST("/register", d.Auth.Register)
		authGroup.POST("/login", d.Auth.Login)
		authGroup.POST("/refresh", d.Auth.Refresh)
		authGroup.POST("/logout", d.Auth.Logout)
	}

	protected := api.Group("")
	protected.Use(Auth(d.JWT))
	{
		protected.GET("/auth/me", d.Auth.Me)

		protected.GET("/profile", d.Auth.GetProfile)
		protected.PUT("/profile", d.Auth.UpdateProfile)
		protected.POST("/profile/password", d.Auth.ChangePassword)

		meds := protected.Group("/medications")
		{
			meds.POST("", d.Medications.Create)
			meds.GET("", d.Medications.List)
			meds.GET("/upcoming", d.Medications.Upcoming)
			meds.GET("/:id", d.Medications.Get)
			meds.PUT("/:id", d.Medications.Update)
			meds.DELETE("/:id", d.Medications.Delete)
			meds.POST("/:id/taken", d.Medications.MarkTaken)
			meds.POST("/:id/skip", d.Medications.MarkSkipped)
			meds.POST("/:id/snooze", d.Medications.Snooze)
			meds.POST("/:id/doses", d.Medications.LogDose)
			meds.GET("/:id/history", d.Medications.History)
		}

		protected.GET("/schedule", d.Medications.Schedule)

		notifications := protected.Group("/notifications")
		{
			notifications.POST("/subscribe", d.Notifications.Subscribe)
			notifications.DELETE("/subscribe", d.Notifications.Unsubscribe)
			notifications.GET("/status", d.Notifications.Status)
			notifications.POST("/test", d.Notifications.Test)
		}

		prescriptions := protected.Group("/prescriptions")
		{
			prescriptions.POST("", d.Prescriptions.Upload)
			prescriptions.GET("", d.Prescriptions.List)
			prescriptions.GET("/:id", d.Prescriptions.Get)
			prescriptions.GET("/:id/download", d.Prescriptions.Download)
			prescriptions.DELETE("/:id", d.Prescriptions.Delete)
		}

		protected.GET("/dashboard/stats", d.Dashboard.Stats)
		protected.GET("/activities", d.Dashboard.Activities)

		appointments := protected.Group("/appointments")
		{
			appointments.POST("", d.Dashboard.CreateAppointment)
			appointments.GET("", d.Dashboard.ListAppointments)
		}
	}

	return r
}

// healthz reports liveness plus the two dependencies worth knowing about
// at a glance: the database and the reminder loop.
func healthz(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbState := "up"

		sqlDB, err := d.DB.DB()
		if err != nil {
			dbState, status = "down", http.StatusServiceUnavailable
		} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			dbState, status = "down", http.StatusServiceUnavailable
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}

		c.JSON(status, gin.H{
			"status":              overall,
			"version":             d.Config.App.Version,
			"database":            dbState,
			"tracked_medications": d.Scheduler.TrackedCount(),
			"time":                time.Now().UTC(),
		})
	}
}
