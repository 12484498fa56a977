// Package library implements the user-book association service: the
// single authority for reading, creating, updating, and deleting a
// user's book-tracking entries, and for ensuring every returned book
// carries fresh, valid metadata.
package library

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/avolkau/shelftrack/internal/entities"
	"github.com/avolkau/shelftrack/internal/metadata"
)

// MaxNotesLength is the upper bound on user notes.
const MaxNotesLength = 1000

// maxRating is the upper bound of the 1-10 rating scale.
const maxRating = 10

// UserBookStore defines the persistence operations for associations.
type UserBookStore interface {
	Create(userBook *entities.UserBook) error
	GetByID(userID, id uint) (*entities.UserBook, error)
	GetByUserAndBook(userID, bookID uint) (*entities.UserBook, error)
	ListForUser(userID uint) ([]entities.UserBook, error)
	Update(userBook *entities.UserBook) error
	Delete(userID, id uint) (int64, error)
}

// BookStore defines the catalog operations the service needs.
type BookStore interface {
	GetByID(id uint) (*entities.Book, error)
	UpdateDetails(id uint, details *entities.BookDetails) error
}

// UserBookInput carries the mutable tracking fields supplied by callers.
// Nil means the caller did not supply the field.
type UserBookInput struct {
	Rating       *int
	DateStarted  *time.Time
	DateFinished *time.Time
	Notes        *string
	Import       bool
}

// Service orchestrates reads and writes across the association and book
// stores, lazily refreshing stale metadata from the provider.
type Service struct {
	userBooks UserBookStore
	books     BookStore
	provider  metadata.Provider

	now func() time.Time
}

// NewService creates a new library service.
func NewService(userBooks UserBookStore, books BookStore, provider metadata.Provider) *Service {
	return &Service{
		userBooks: userBooks,
		books:     books,
		provider:  provider,
		now:       time.Now,
	}
}

// ListUserBooks returns all of a user's associations with their books
// attached. Books whose cached metadata is missing or unusable are
// refreshed from the provider concurrently, each refresh committed to
// the catalog before its entry is returned. Any refresh failure aborts
// the whole batch; refreshes already committed are not rolled back. An
// unknown user yields an empty slice.
func (s *Service) ListUserBooks(ctx context.Context, userID uint) ([]entities.UserBook, error) {
	userBooks, err := s.userBooks.ListForUser(userID)
	if err != nil {
		return nil, upstreamErr("list user books", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := range userBooks {
		if userBooks[i].Book.Details.Valid() {
			continue
		}
		book := &userBooks[i].Book
		g.Go(func() error {
			return s.refreshBook(ctx, book)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return userBooks, nil
}

// GetUserBook returns a single association scoped to the user, with the
// book's metadata unconditionally re-fetched from the provider. Unlike
// ListUserBooks this path does not consult the cache first: single-item
// reads are always fresh. The refetched blob is overlaid on the response
// without being written back.
func (s *Service) GetUserBook(ctx context.Context, userID, id uint) (*entities.UserBook, error) {
	userBook, err := s.userBooks.GetByID(userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamErr("get user book", err)
	}

	details, err := s.provider.FetchByLink(ctx, userBook.Book.QuickLink)
	if err != nil {
		return nil, upstreamErr("fetch book metadata", err)
	}
	userBook.Book.Details = details

	return userBook, nil
}

// AddBookToUser creates a tracking record for (userID, bookID). Adding a
// book that is already tracked returns the existing association
// unchanged, ignoring any supplied field values. Validation runs before
// any persistence access; the first failing check wins.
//
// Note the rating check is upper-bound only. The update path checks both
// bounds; the mismatch is kept deliberately for compatibility with
// existing clients.
func (s *Service) AddBookToUser(ctx context.Context, userID, bookID uint, input UserBookInput) (*entities.UserBook, error) {
	if input.Rating != nil && *input.Rating > maxRating {
		return nil, validationErr("rating must be between 1 and 10")
	}
	if err := validateDates(input.DateStarted, input.DateFinished, s.now()); err != nil {
		return nil, err
	}
	notes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	if _, err := s.books.GetByID(bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErr("book does not exist")
		}
		return nil, upstreamErr("check book exists", err)
	}

	existing, err := s.userBooks.GetByUserAndBook(userID, bookID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, upstreamErr("check existing user book", err)
	}

	userBook := &entities.UserBook{
		UserID:       userID,
		BookID:       bookID,
		Rating:       input.Rating,
		DateStarted:  input.DateStarted,
		DateFinished: input.DateFinished,
		Notes:        notes,
		Import:       input.Import,
	}
	if err := s.userBooks.Create(userBook); err != nil {
		// A concurrent add can slip past the existence check; the unique
		// index on (user_id, book_id) turns that race into the idempotent
		// return case.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, lookupErr := s.userBooks.GetByUserAndBook(userID, bookID)
			if lookupErr != nil {
				return nil, upstreamErr("resolve duplicate user book", lookupErr)
			}
			return existing, nil
		}
		return nil, upstreamErr("create user book", err)
	}

	created, err := s.userBooks.GetByID(userID, userBook.ID)
	if err != nil {
		return nil, upstreamErr("reload user book", err)
	}
	return created, nil
}

// UpdateUserBook overwrites all four mutable fields with the supplied
// values, including overwriting with nil when a field is omitted. This
// is a full replace, not a partial patch.
func (s *Service) UpdateUserBook(ctx context.Context, userID, id uint, input UserBookInput) (*entities.UserBook, error) {
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > maxRating) {
		return nil, validationErr("rating must be between 1 and 10")
	}
	if err := validateDates(input.DateStarted, input.DateFinished, s.now()); err != nil {
		return nil, err
	}
	notes, err := normalizeNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	userBook, err := s.userBooks.GetByID(userID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamErr("get user book", err)
	}

	userBook.Rating = input.Rating
	userBook.DateStarted = input.DateStarted
	userBook.DateFinished = input.DateFinished
	userBook.Notes = notes
	if err := s.userBooks.Update(userBook); err != nil {
		return nil, upstreamErr("update user book", err)
	}

	updated, err := s.userBooks.GetByID(userID, id)
	if err != nil {
		return nil, upstreamErr("reload user book", err)
	}
	return updated, nil
}

// DeleteBookFromUser removes an association scoped to the user. Deleting
// an association that exists but belongs to someone else is a not-found.
func (s *Service) DeleteBookFromUser(ctx context.Context, userID, id uint) error {
	rows, err := s.userBooks.Delete(userID, id)
	if err != nil {
		return upstreamErr("delete user book", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshBook re-fetches a single book's metadata and persists it,
// regardless of cache state. Used by the background queue and catalog.
func (s *Service) RefreshBook(ctx context.Context, bookID uint) (*entities.Book, error) {
	book, err := s.books.GetByID(bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamErr("get book", err)
	}
	if err := s.refreshBook(ctx, book); err != nil {
		return nil, err
	}
	return book, nil
}

// refreshBook fetches fresh metadata for book and writes it through to
// the catalog before updating the in-memory copy.
func (s *Service) refreshBook(ctx context.Context, book *entities.Book) error {
	details, err := s.provider.FetchByLink(ctx, book.QuickLink)
	if err != nil {
		return upstreamErr("fetch book metadata", err)
	}
	if err := s.books.UpdateDetails(book.ID, details); err != nil {
		return upstreamErr("persist book metadata", err)
	}
	book.Details = details
	return nil
}

func validateDates(started, finished *time.Time, now time.Time) error {
	if started != nil && finished != nil && started.After(*finished) {
		return validationErr("date started cannot be after date finished")
	}
	if started != nil && started.After(now) {
		return validationErr("date started cannot be in the future")
	}
	return nil
}

// normalizeNotes treats empty notes as unset and bounds their length.
func normalizeNotes(notes *string) (*string, error) {
	if notes == nil || *notes == "" {
		return nil, nil
	}
	if len(*notes) > MaxNotesLength {
		return nil, validationErr("notes must be at most 1000 characters")
	}
	return notes, nil
}
