package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkau/shelftrack/internal/entities"
	"github.com/avolkau/shelftrack/internal/library"
)

// LibraryService defines the association-service operations the
// controller depends on.
type LibraryService interface {
	ListUserBooks(ctx context.Context, userID uint) ([]entities.UserBook, error)
	GetUserBook(ctx context.Context, userID, id uint) (*entities.UserBook, error)
	AddBookToUser(ctx context.Context, userID, bookID uint, input library.UserBookInput) (*entities.UserBook, error)
	UpdateUserBook(ctx context.Context, userID, id uint, input library.UserBookInput) (*entities.UserBook, error)
	DeleteBookFromUser(ctx context.Context, userID, id uint) error
}

// LibraryController exposes the user's book-tracking entries over HTTP.
type LibraryController struct {
	service LibraryService
}

// NewLibraryController creates a new library controller.
func NewLibraryController(service LibraryService) *LibraryController {
	return &LibraryController{service: service}
}

type addUserBookRequest struct {
	BookID       uint       `json:"book_id" binding:"required"`
	Rating       *int       `json:"rating"`
	DateStarted  *time.Time `json:"date_started"`
	DateFinished *time.Time `json:"date_finished"`
	Notes        *string    `json:"notes"`
	Import       bool       `json:"import"`
}

type updateUserBookRequest struct {
	Rating       *int       `json:"rating"`
	DateStarted  *time.Time `json:"date_started"`
	DateFinished *time.Time `json:"date_finished"`
	Notes        *string    `json:"notes"`
}

// List returns all of the user's books with fresh metadata.
// GET /api/library
func (lc *LibraryController) List(c *gin.Context) {
	userBooks, err := lc.service.ListUserBooks(c.Request.Context(), GetUserID(c))
	if err != nil {
		lc.respondServiceError(c, err, "list user books")
		return
	}

	c.JSON(http.StatusOK, gin.H{"books": userBooks, "total": len(userBooks)})
}

// Get returns a single tracked book, metadata always re-fetched.
// GET /api/library/:id
func (lc *LibraryController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userBook, err := lc.service.GetUserBook(c.Request.Context(), GetUserID(c), id)
	if err != nil {
		lc.respondServiceError(c, err, "get user book")
		return
	}

	c.JSON(http.StatusOK, userBook)
}

// Add creates a tracking record. Adding an already-tracked book returns
// the existing record unchanged.
// POST /api/library
func (lc *LibraryController) Add(c *gin.Context) {
	var req addUserBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "book_id is required")
		return
	}

	userBook, err := lc.service.AddBookToUser(c.Request.Context(), GetUserID(c), req.BookID, library.UserBookInput{
		Rating:       req.Rating,
		DateStarted:  req.DateStarted,
		DateFinished: req.DateFinished,
		Notes:        req.Notes,
		Import:       req.Import,
	})
	if err != nil {
		lc.respondServiceError(c, err, "add user book")
		return
	}

	respondCreated(c, userBook)
}

// Update replaces all mutable tracking fields.
// PUT /api/library/:id
func (lc *LibraryController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateUserBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userBook, err := lc.service.UpdateUserBook(c.Request.Context(), GetUserID(c), id, library.UserBookInput{
		Rating:       req.Rating,
		DateStarted:  req.DateStarted,
		DateFinished: req.DateFinished,
		Notes:        req.Notes,
	})
	if err != nil {
		lc.respondServiceError(c, err, "update user book")
		return
	}

	c.JSON(http.StatusOK, userBook)
}

// Delete removes a tracking record.
// DELETE /api/library/:id
func (lc *LibraryController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := lc.service.DeleteBookFromUser(c.Request.Context(), GetUserID(c), id); err != nil {
		lc.respondServiceError(c, err, "delete user book")
		return
	}

	respondSuccess(c, "book removed from library")
}

// respondServiceError maps the service error taxonomy onto HTTP statuses:
// validation rejections become 400 with their reason, misses become 404,
// and everything else is a message-normalized 500.
func (lc *LibraryController) respondServiceError(c *gin.Context, err error, context string) {
	var validationErr *library.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondBadRequest(c, validationErr.Reason)
	case errors.Is(err, library.ErrNotFound):
		respondNotFound(c, "book")
	default:
		respondInternalError(c, err, context)
	}
}
