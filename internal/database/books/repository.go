// Package books provides database operations for the shared book catalog.
//
// This package implements the BookStore interface used by the library
// service and the CatalogStore interface used by the HTTP layer.
package books

import (
	"gorm.io/gorm"

	"github.com/avolkau/shelftrack/internal/entities"
)

// Repository handles all book catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(book *entities.Book) error {
	return r.db.Create(book).Error
}

func (r *Repository) GetByID(id uint) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *Repository) GetByQuickLink(quickLink string) (*entities.Book, error) {
	var book entities.Book
	if err := r.db.Where("quick_link = ?", quickLink).First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

// UpdateDetails persists a freshly fetched metadata blob onto the book row.
func (r *Repository) UpdateDetails(id uint, details *entities.BookDetails) error {
	return r.db.Model(&entities.Book{}).
		Where("id = ?", id).
		Update("details", details).Error
}

func (r *Repository) List() ([]entities.Book, error) {
	books := make([]entities.Book, 0)
	err := r.db.Order("id ASC").Find(&books).Error
	return books, err
}

// ListStale returns books whose cached metadata is missing or unusable.
// Staleness is decided in Go rather than SQL so malformed blobs count too.
func (r *Repository) ListStale() ([]entities.Book, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	stale := make([]entities.Book, 0)
	for _, book := range all {
		if !book.Details.Valid() {
			stale = append(stale, book)
		}
	}
	return stale, nil
}

// Delete removes a book. Associations cascade at the database level.
func (r *Repository) Delete(id uint) error {
	return r.db.Delete(&entities.Book{}, id).Error
}
