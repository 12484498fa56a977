package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkau/shelftrack/internal/auth"
	"github.com/avolkau/shelftrack/internal/config"
	"github.com/avolkau/shelftrack/internal/database"
	"github.com/avolkau/shelftrack/internal/database/books"
	"github.com/avolkau/shelftrack/internal/database/userbooks"
	"github.com/avolkau/shelftrack/internal/database/users"
	http_controllers "github.com/avolkau/shelftrack/internal/http"
	"github.com/avolkau/shelftrack/internal/library"
	"github.com/avolkau/shelftrack/internal/metadata"
	"github.com/avolkau/shelftrack/internal/scheduler"
	"github.com/avolkau/shelftrack/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop the task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run builds the full object graph from configuration and serves HTTP.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting ShelfTrack v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	userRepo := users.NewRepository(db.DB)
	bookRepo := books.NewRepository(db.DB)
	userBookRepo := userbooks.NewRepository(db.DB)

	provider := metadata.NewOpenLibraryClient(cfg.Provider.RequestTimeout)
	libraryService := library.NewService(userBookRepo, bookRepo, provider)

	authService := auth.NewService(userRepo, cfg.Auth)
	tokenManager, err := auth.NewTokenManager(cfg.Auth)
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v (set AUTH_JWT_SECRET)", err)
	}
	authController := auth.NewController(authService, tokenManager)

	// Background metadata refresh queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var metadataSync *scheduler.MetadataSyncScheduler
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(
			tasks.NewRefreshBookQueue(libraryService),
			tasks.NewRefreshStaleBooksQueue(bookRepo, libraryService),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		metadataSync = scheduler.NewMetadataSyncScheduler(taskClient, cfg.MetadataSync)
		if err := metadataSync.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start metadata sync scheduler: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		LibraryService: libraryService,
		CatalogStore:   bookRepo,
		Provider:       provider,
		Searcher:       provider,
		AuthController: authController,
		TokenManager:   tokenManager,
		Version:        version,
	}
	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if metadataSync != nil {
			metadataSync.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
