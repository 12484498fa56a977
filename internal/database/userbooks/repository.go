// Package userbooks provides database operations for per-user book
// tracking records.
//
// This package implements the UserBookStore interface defined in
// internal/library/service.go.
package userbooks

import (
	"gorm.io/gorm"

	"github.com/avolkau/shelftrack/internal/entities"
)

// Repository handles all user-book association database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new user-books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(userBook *entities.UserBook) error {
	return r.db.Create(userBook).Error
}

// GetByID retrieves an association scoped to its owner, with the book row
// attached. A row owned by a different user is a record-not-found.
func (r *Repository) GetByID(userID, id uint) (*entities.UserBook, error) {
	var userBook entities.UserBook
	err := r.db.Preload("Book").
		Where("id = ? AND user_id = ?", id, userID).
		First(&userBook).Error
	if err != nil {
		return nil, err
	}
	return &userBook, nil
}

func (r *Repository) GetByUserAndBook(userID, bookID uint) (*entities.UserBook, error) {
	var userBook entities.UserBook
	err := r.db.Preload("Book").
		Where("user_id = ? AND book_id = ?", userID, bookID).
		First(&userBook).Error
	if err != nil {
		return nil, err
	}
	return &userBook, nil
}

// ListForUser returns all associations for a user with books attached.
// An unknown user simply yields an empty slice.
func (r *Repository) ListForUser(userID uint) ([]entities.UserBook, error) {
	userBooks := make([]entities.UserBook, 0)
	err := r.db.Preload("Book").
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&userBooks).Error
	return userBooks, err
}

// Update overwrites the four mutable tracking fields with the values on
// userBook, including nil values. This is a full replace, not a patch.
func (r *Repository) Update(userBook *entities.UserBook) error {
	return r.db.Model(&entities.UserBook{}).
		Where("id = ?", userBook.ID).
		Updates(map[string]any{
			"rating":        userBook.Rating,
			"date_started":  userBook.DateStarted,
			"date_finished": userBook.DateFinished,
			"notes":         userBook.Notes,
		}).Error
}

// Delete removes an association scoped to its owner and reports how many
// rows were affected, so callers can distinguish a miss from success.
func (r *Repository) Delete(userID, id uint) (int64, error) {
	result := r.db.Where("id = ? AND user_id = ?", id, userID).
		Delete(&entities.UserBook{})
	return result.RowsAffected, result.Error
}
