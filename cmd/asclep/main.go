package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/asclep-health/asclep/internal/config"
	v1 "github.com/asclep-health/asclep/internal/handler/v1"
	"github.com/asclep-health/asclep/internal/notify"
	"github.com/asclep-health/asclep/internal/schedule"
	"github.com/asclep-health/asclep/internal/service"
	"github.com/asclep-health/asclep/internal/storage"
	"github.com/asclep-health/asclep/pkg/auth"
	"github.com/asclep-health/asclep/pkg/blob"
	"github.com/asclep-health/asclep/pkg/database"
	"github.com/asclep-health/asclep/pkg/logger"
	"github.com/asclep-health/asclep/pkg/metrics"
	"github.com/asclep-health/asclep/pkg/tracer"
)

func main() {
	// Missing .env is fine outside development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("logger: " + err.Error())
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("exiting", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("asclep")

	userRepo := storage.NewUserRepo(db)
	medicationRepo := storage.NewMedicationRepo(db)
	doseLogRepo := storage.NewDoseLogRepo(db)
	prescriptionRepo := storage.NewPrescriptionRepo(db)
	appointmentRepo := storage.NewAppointmentRepo(db)
	activityRepo := storage.NewActivityRepo(db)

	jwtManager := auth.NewJWTManager(cfg.JWT)

	blobStore, err := blob.NewGCSStore(ctx, cfg.Blob.Bucket)
	if err != nil {
		return err
	}
	defer blobStore.Close() //nolint:errcheck

	gateway := notify.NewHTTPGateway(cfg.Push)
	notifier := notify.NewPushNotifier(gateway, userRepo, log)
	subscriptions := notify.NewSubscriptionManager(notify.ClientPlatform{}, userRepo, cfg.Push, log)

	scheduler := schedule.New(medicationRepo, doseLogRepo, notifier, collector, log, schedule.Options{
		PollInterval:   cfg.Reminder.PollInterval,
		Tolerance:      cfg.Reminder.Tolerance,
		UpcomingWindow: cfg.Reminder.UpcomingWindow,
		GracePeriod:    cfg.Reminder.GracePeriod,
		SnoozeDelay:    cfg.Reminder.SnoozeDelay,
	})
	go scheduler.Start(ctx)

	activityService := service.NewActivityService(activityRepo, collector, log)
	defer activityService.Shutdown()

	authService := service.NewAuthService(userRepo, jwtManager, log)
	medicationService := service.NewMedicationService(
		medicationRepo, doseLogRepo, scheduler, activityService, collector, log,
		cfg.Reminder.UpcomingWindow)
	dashboardService := service.NewDashboardService(medicationRepo, doseLogRepo, appointmentRepo, log)
	prescriptionService := service.NewPrescriptionService(
		prescriptionRepo, blobStore, activityService, collector, log, cfg.Blob.SignedURLTTL)

	cookieSecure := cfg.App.Environment == "production"
	router := v1.NewRouter(v1.Deps{
		Config:    cfg,
		Log:       log,
		Metrics:   collector,
		JWT:       jwtManager,
		DB:        db,
		Scheduler: scheduler,

		Auth:          v1.NewAuthHandler(authService, cookieSecure, cfg.JWT.AccessTokenTTL),
		Medications:   v1.NewMedicationHandler(medicationService),
		Notifications: v1.NewNotificationHandler(subscriptions, notifier),
		Prescriptions: v1.NewPrescriptionHandler(prescriptionService),
		Dashboard:     v1.NewDashboardHandler(dashboardService, activityService, appointmentRepo),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("shutdown complete")
	return nil
}
