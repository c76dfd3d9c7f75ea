package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/ai"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/auth"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/calendar"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/config"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/database"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/email"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/health"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/meetings"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/middleware"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/models"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/pipeline"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/storage"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/tasks"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/transcription"
	"github.com/Akaash-S/dynamicMeetAssistBackend/internal/worker"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err)
		}
	}

	if err := models.InitEncryption(cfg.TokenEncryptionKey); err != nil {
		logger.Error("Failed to initialize token encryption", "error", err)
		os.Exit(1)
	}

	auth.InitProviders(cfg)

	// Capability clients
	store := storage.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.StorageBucket)
	transcriber := transcription.NewClient(cfg.RapidAPIKey)
	extractor, err := ai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize AI client", "error", err)
		os.Exit(1)
	}
	cal := calendar.NewService(db, logger)
	mailer := email.NewService(db, cfg.SMTPServer, cfg.SMTPPort, cfg.EmailAddress, cfg.EmailPassword, cfg.FromName, logger)

	var notifier pipeline.Notifier
	if mailer.Enabled() {
		notifier = mailer
	} else {
		logger.Warn("Email credentials not set, summary emails disabled")
	}

	orchestrator := pipeline.NewOrchestrator(db, transcriber, extractor, cal, notifier, logger)
	statusService := pipeline.NewStatusService(db)

	// Reminder worker, embedded alongside the HTTP server
	if err := worker.InitClient(cfg.RedisURL); err != nil {
		logger.Error("Failed to initialize worker client", "error", err)
		os.Exit(1)
	}
	defer worker.CloseClient()

	stopWorker, err := worker.Start(cfg, db, mailer)
	if err != nil {
		logger.Error("Failed to start worker", "error", err)
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer stopScheduler()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.MaxMultipartMemory = 32 << 20

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.Env != "development",
	})
	router.Use(sessions.Sessions("meetassist_session", sessionStore))

	limiter, err := middleware.NewRateLimiter(cfg.RedisURL, 100, time.Minute, logger)
	if err != nil {
		logger.Error("Failed to initialize rate limiter", "error", err)
		os.Exit(1)
	}
	defer limiter.Close()

	router.GET("/health", health.LivenessHandler)
	router.GET("/ready", health.ReadinessHandler(db))

	authGroup := router.Group("/auth")
	{
		authGroup.GET("/:provider", auth.HandleLogin)
		authGroup.GET("/:provider/callback", auth.HandleCallback(db))
		authGroup.POST("/logout", auth.HandleLogout)
	}

	api := router.Group("/api")
	api.Use(limiter.Middleware(), auth.RequireAuth())
	{
		api.GET("/profile", auth.GetProfileHandler(db))
		api.PATCH("/profile", auth.UpdateProfileHandler(db))

		api.POST("/upload/audio", meetings.UploadAudioHandler(db, store, orchestrator))
		api.GET("/upload/status/:id", meetings.GetStatusHandler(db, statusService))

		api.GET("/meetings", meetings.ListMeetingsHandler(db))
		api.GET("/meetings/:id", meetings.GetMeetingHandler(db))
		api.DELETE("/meetings/:id", meetings.DeleteMeetingHandler(db, store))

		api.POST("/tasks/reminders", tasks.TriggerRemindersHandler(db))
		api.GET("/tasks", tasks.ListTasksHandler(db))
		api.GET("/tasks/stats", tasks.TaskStatsHandler(db))
		api.GET("/tasks/upcoming", tasks.UpcomingTasksHandler(db))
		api.GET("/tasks/:id", tasks.GetTaskHandler(db))
		api.PATCH("/tasks/:id", tasks.UpdateTaskHandler(db))
		api.PATCH("/tasks/:id/status", tasks.UpdateTaskStatusHandler(db, cal))
		api.DELETE("/tasks/:id", tasks.DeleteTaskHandler(db, cal))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
