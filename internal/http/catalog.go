package http

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkau/shelftrack/internal/entities"
	"github.com/avolkau/shelftrack/internal/metadata"
)

// CatalogStore defines database operations for the shared book catalog.
type CatalogStore interface {
	Create(book *entities.Book) error
	GetByID(id uint) (*entities.Book, error)
	GetByQuickLink(quickLink string) (*entities.Book, error)
	List() ([]entities.Book, error)
}

// CatalogController manages the canonical book catalog: creating entries
// from provider quick links and searching the provider for candidates.
type CatalogController struct {
	store    CatalogStore
	provider metadata.Provider
	searcher metadata.Searcher
}

// NewCatalogController creates a new catalog controller.
func NewCatalogController(store CatalogStore, provider metadata.Provider, searcher metadata.Searcher) *CatalogController {
	return &CatalogController{store: store, provider: provider, searcher: searcher}
}

type createBookRequest struct {
	QuickLink string `json:"quick_link" binding:"required"`
}

// Create adds a book to the catalog by quick link, fetching its metadata
// immediately. Creating a book that already exists returns the existing
// row. A provider failure is not fatal: the book is created with empty
// details and picked up by the next lazy refresh.
// POST /api/catalog
func (cc *CatalogController) Create(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "quick_link is required")
		return
	}

	quickLink := strings.TrimSpace(req.QuickLink)
	if quickLink == "" {
		respondBadRequest(c, "quick_link is required")
		return
	}

	if existing, err := cc.store.GetByQuickLink(quickLink); err == nil {
		c.JSON(http.StatusOK, existing)
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondInternalError(c, err, "check existing book")
		return
	}

	details, err := cc.provider.FetchByLink(c.Request.Context(), quickLink)
	if err != nil {
		log.Printf("Catalog: metadata fetch for %s failed, deferring to lazy refresh: %v", quickLink, err)
		details = nil
	}

	book := &entities.Book{QuickLink: quickLink, Details: details}
	if err := cc.store.Create(book); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, lookupErr := cc.store.GetByQuickLink(quickLink); lookupErr == nil {
				c.JSON(http.StatusOK, existing)
				return
			}
		}
		respondInternalError(c, err, "create book")
		return
	}

	respondCreated(c, book)
}

// Get returns a catalog entry by ID.
// GET /api/catalog/:id
func (cc *CatalogController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.store.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, book)
}

// List returns all catalog entries.
// GET /api/catalog
func (cc *CatalogController) List(c *gin.Context) {
	books, err := cc.store.List()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": books, "total": len(books)})
}

// Search proxies a free-text query to the metadata provider and returns
// candidate books with their quick links.
// GET /api/catalog/search?q=
func (cc *CatalogController) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		respondBadRequest(c, "q is required")
		return
	}

	results, err := cc.searcher.Search(c.Request.Context(), query)
	if err != nil {
		respondInternalError(c, err, "search provider")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}
