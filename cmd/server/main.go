package main

import (
	"context"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"qrtrace-backend/internal/archive"
	"qrtrace-backend/internal/auth"
	"qrtrace-backend/internal/cache"
	"qrtrace-backend/internal/config"
	"qrtrace-backend/internal/database"
	"qrtrace-backend/internal/db"
	"qrtrace-backend/internal/handlers"
	"qrtrace-backend/internal/health"
	"qrtrace-backend/internal/http"
	"qrtrace-backend/internal/middleware"
	"qrtrace-backend/internal/monitoring"
	"qrtrace-backend/internal/repositories"
	"qrtrace-backend/internal/services"
	"qrtrace-backend/internal/worker"
	"qrtrace-backend/migrations"
)

func main() {
	cfg := config.Load()

	pool := db.Connect(cfg)
	defer pool.Close()
	log.Println("[Startup] database connected")

	if err := cache.Init(); err != nil {
		log.Printf("[Startup] redis unavailable, running without cache: %v", err)
	} else {
		log.Println("[Startup] redis connected")
	}

	migrator := database.NewMigrator(pool, migrations.Files)
	if err := migrator.Run(context.Background()); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}
	log.Println("[Startup] migrations up to date")

	// Repositories
	userRepo := repositories.NewUserRepository(pool)
	batchRepo := repositories.NewBatchRepository(pool)
	codeRepo := repositories.NewCodeRepository(pool)
	jobRepo := repositories.NewJobRepository(pool)

	// Services
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpirationHours, cfg.JWT.Issuer)
	authService := services.NewAuthService(userRepo, jwtManager)
	batchService := services.NewBatchService(batchRepo, codeRepo)

	var notifier services.WorkerNotifier
	if cfg.Worker.URL != "" {
		notifier = worker.NewClient(cfg.Worker.URL)
	} else {
		log.Println("[Startup] WORKER_URL not set, jobs wait for the worker's schedule")
	}
	reconcileService := services.NewReconcileService(codeRepo, jobRepo, notifier)

	// Handlers and router
	router := http.NewRouter(http.RouterDeps{
		JWTManager:       jwtManager,
		AuthHandler:      handlers.NewAuthHandler(authService),
		ReconcileHandler: handlers.NewReconcileHandler(reconcileService),
		JobHandler:       handlers.NewJobHandler(jobRepo),
		BatchHandler:     handlers.NewBatchHandler(batchService, batchRepo, codeRepo),
		HealthChecker:    health.NewChecker(pool),
	})

	corsHandler := middleware.NewCors(cfg)
	handler := middleware.PanicRecovery(corsHandler.Handler(router))

	// Ops endpoint on its own port
	monitor := monitoring.NewServer(pool, cfg.Server.MonitoringPort)
	go func() {
		if err := monitor.Start(); err != nil {
			log.Printf("[Monitor] stopped: %v", err)
		}
	}()

	// Completed-job archive (optional, needs S3 credentials)
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		var err error
		archiver, err = archive.NewArchiver(cfg, jobRepo)
		if err != nil {
			log.Printf("[Startup] archive disabled: %v", err)
		} else {
			archiver.Start()
			log.Println("[Startup] job archiver running")
		}
	}

	server := &nethttp.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Startup] listening on :%d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[Shutdown] signal received, draining")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[Shutdown] forced: %v", err)
	}
	if archiver != nil {
		archiver.Stop()
	}
	log.Println("[Shutdown] done")
}
