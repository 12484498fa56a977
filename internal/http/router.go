package http

import (
	"github.com/gin-gonic/gin"

	"github.com/avolkau/shelftrack/internal/auth"
	"github.com/avolkau/shelftrack/internal/database"
	"github.com/avolkau/shelftrack/internal/metadata"
)

// RouterConfig carries all controller dependencies into NewRouter,
// improving testability and reducing parameter count.
type RouterConfig struct {
	Database *database.Database

	LibraryService LibraryService
	CatalogStore   CatalogStore
	Provider       metadata.Provider
	Searcher       metadata.Searcher

	AuthController *auth.Controller
	TokenManager   *auth.TokenManager

	Version string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", healthController.Status)
	router.GET("/ping", healthController.Ping)

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	// Everything below requires an authenticated user.
	api := router.Group("/api")
	api.Use(auth.Middleware(cfg.TokenManager))

	libraryController := NewLibraryController(cfg.LibraryService)
	api.GET("/library", libraryController.List)
	api.POST("/library", libraryController.Add)
	api.GET("/library/:id", libraryController.Get)
	api.PUT("/library/:id", libraryController.Update)
	api.DELETE("/library/:id", libraryController.Delete)

	importController := NewImportController(cfg.LibraryService, cfg.CatalogStore)
	api.POST("/library/import", importController.ImportCSV)

	catalogController := NewCatalogController(cfg.CatalogStore, cfg.Provider, cfg.Searcher)
	api.GET("/catalog", catalogController.List)
	api.POST("/catalog", catalogController.Create)
	api.GET("/catalog/search", catalogController.Search)
	api.GET("/catalog/:id", catalogController.Get)

	return router
}
