package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"orpheus/cache"
	"orpheus/config"
	"orpheus/core/musicgen"
	"orpheus/core/pipeline"
	"orpheus/db"
	"orpheus/logger"
	"orpheus/repository"
	"orpheus/storage"
)

// Start initializes all backing services and runs the HTTP server until an
// interrupt arrives.
func Start() {
	cfg := config.Load()

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // downloads can be large
		IdleTimeout:  120 * time.Second,
	}

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := cache.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer cache.CloseRedis()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database schema", logger.ErrorField(err))
	}

	ensureDirExists(cfg.OutputDir)
	ensureDirExists(cfg.WorkDir)

	generator := musicgen.NewClient(&musicgen.Config{
		APIBaseURL: cfg.ModelAPIURL,
		APIKey:     cfg.ModelAPIKey,
		Model:      cfg.ModelName,
		SampleRate: cfg.SampleRate,
		Timeout:    time.Duration(cfg.ModelTimeoutSec) * time.Second,
	})
	pl, err := pipeline.New(generator, cfg.SampleRate)
	if err != nil {
		logger.Fatal("Failed to build pipeline", logger.ErrorField(err))
	}

	jobRepo := repository.NewMySQLJobRepository()
	userRepo := repository.NewGormUserRepository(db.GormDB)
	apiHandler := NewAPIHandler(jobRepo, userRepo, pl, cfg)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Generation endpoints
	router.HandleFunc("/api/generate", apiHandler.AuthMiddleware(apiHandler.GenerateHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/generate/ws/{job_id}", apiHandler.WebSocketProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/status/{job_id}", apiHandler.AuthMiddleware(apiHandler.StatusHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/download/{job_id}", apiHandler.AuthMiddleware(apiHandler.DownloadHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs", apiHandler.AuthMiddleware(apiHandler.JobsHandler)).Methods(http.MethodGet)

	// Dry-run endpoints, no audio produced
	router.HandleFunc("/api/plan", apiHandler.PlanHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/lyrics", apiHandler.LyricsHandler).Methods(http.MethodPost)

	// Auth endpoints
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}
	logger.Info("Server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			logger.Fatal("Failed to create directory",
				logger.String("path", path),
				logger.ErrorField(err))
		}
	} else if err != nil {
		logger.Fatal("Failed to check directory",
			logger.String("path", path),
			logger.ErrorField(err))
	}
}
