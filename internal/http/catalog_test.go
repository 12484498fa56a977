package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/avolkau/shelftrack/internal/entities"
	"github.com/avolkau/shelftrack/internal/metadata"
)

// stubCatalogStore is an in-memory CatalogStore keyed by quick link.
type stubCatalogStore struct {
	books  map[string]*entities.Book
	nextID uint
}

func newStubCatalogStore() *stubCatalogStore {
	return &stubCatalogStore{books: make(map[string]*entities.Book), nextID: 1}
}

func (s *stubCatalogStore) Create(book *entities.Book) error {
	if _, exists := s.books[book.QuickLink]; exists {
		return gorm.ErrDuplicatedKey
	}
	book.ID = s.nextID
	s.nextID++
	s.books[book.QuickLink] = book
	return nil
}

func (s *stubCatalogStore) GetByID(id uint) (*entities.Book, error) {
	for _, book := range s.books {
		if book.ID == id {
			return book, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogStore) GetByQuickLink(quickLink string) (*entities.Book, error) {
	if book, ok := s.books[quickLink]; ok {
		return book, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCatalogStore) List() ([]entities.Book, error) {
	books := make([]entities.Book, 0, len(s.books))
	for _, book := range s.books {
		books = append(books, *book)
	}
	return books, nil
}

type stubMetadataProvider struct {
	details *entities.BookDetails
	results []metadata.SearchResult
	err     error
}

func (p *stubMetadataProvider) FetchByLink(ctx context.Context, quickLink string) (*entities.BookDetails, error) {
	return p.details, p.err
}

func (p *stubMetadataProvider) Search(ctx context.Context, query string) ([]metadata.SearchResult, error) {
	return p.results, p.err
}

func setupCatalogRouter(store CatalogStore, provider *stubMetadataProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	controller := NewCatalogController(store, provider, provider)
	router.GET("/api/catalog", controller.List)
	router.GET("/api/catalog/search", controller.Search)
	router.GET("/api/catalog/:id", controller.Get)
	router.POST("/api/catalog", controller.Create)

	return router
}

func TestCatalogController_Create(t *testing.T) {
	store := newStubCatalogStore()
	provider := &stubMetadataProvider{
		details: &entities.BookDetails{Title: "Dune"},
	}
	router := setupCatalogRouter(store, provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/catalog", bytes.NewBufferString(`{"quick_link": "/works/OL45883W"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"Dune"`)

	created, err := store.GetByQuickLink("/works/OL45883W")
	require.NoError(t, err)
	require.NotNil(t, created.Details)
	assert.Equal(t, "Dune", created.Details.Title)
}

func TestCatalogController_Create_ExistingReturnsSameRow(t *testing.T) {
	store := newStubCatalogStore()
	require.NoError(t, store.Create(&entities.Book{QuickLink: "/works/OL45883W"}))

	provider := &stubMetadataProvider{}
	router := setupCatalogRouter(store, provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/catalog", bytes.NewBufferString(`{"quick_link": "/works/OL45883W"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.books, 1)
}

func TestCatalogController_Create_ProviderFailureDefersToLazyRefresh(t *testing.T) {
	store := newStubCatalogStore()
	provider := &stubMetadataProvider{err: errors.New("provider down")}
	router := setupCatalogRouter(store, provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/catalog", bytes.NewBufferString(`{"quick_link": "/works/OL45883W"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// The book is still created, with empty details awaiting refresh.
	require.Equal(t, http.StatusCreated, w.Code)

	created, err := store.GetByQuickLink("/works/OL45883W")
	require.NoError(t, err)
	assert.False(t, created.Details.Valid())
}

func TestCatalogController_Create_MissingQuickLink(t *testing.T) {
	router := setupCatalogRouter(newStubCatalogStore(), &stubMetadataProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/catalog", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogController_Get(t *testing.T) {
	store := newStubCatalogStore()
	book := &entities.Book{QuickLink: "/works/OL45883W"}
	require.NoError(t, store.Create(book))

	router := setupCatalogRouter(store, &stubMetadataProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/catalog/1", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/works/OL45883W")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/catalog/999", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCatalogController_Search(t *testing.T) {
	provider := &stubMetadataProvider{
		results: []metadata.SearchResult{
			{QuickLink: "/works/OL45883W", Details: &entities.BookDetails{Title: "Dune"}},
		},
	}
	router := setupCatalogRouter(newStubCatalogStore(), provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/catalog/search?q=dune", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/works/OL45883W")
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestCatalogController_Search_RequiresQuery(t *testing.T) {
	router := setupCatalogRouter(newStubCatalogStore(), &stubMetadataProvider{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/catalog/search", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
