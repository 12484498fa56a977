package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/avolkau/shelftrack/internal/entities"
	"github.com/avolkau/shelftrack/internal/importers"
	"github.com/avolkau/shelftrack/internal/library"
)

// ImportController handles bulk CSV imports of a user's library.
// Associations created here carry the import flag.
type ImportController struct {
	service LibraryService
	catalog CatalogStore
}

// NewImportController creates a new import controller.
func NewImportController(service LibraryService, catalog CatalogStore) *ImportController {
	return &ImportController{service: service, catalog: catalog}
}

// ImportResult summarizes a bulk import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportCSV imports a Goodreads-style CSV export uploaded as multipart
// field "file". Rows are processed independently: a bad row is reported
// and skipped, not fatal to the batch.
// POST /api/library/import
func (ic *ImportController) ImportCSV(c *gin.Context) {
	userID := GetUserID(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondBadRequest(c, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondInternalError(c, err, "open uploaded file")
		return
	}
	defer file.Close()

	rows, parseErrs := importers.ParseGoodreadsCSV(file)
	if len(rows) == 0 && len(parseErrs) > 0 {
		respondBadRequest(c, "could not parse CSV: "+parseErrs[0].Error())
		return
	}

	result := ImportResult{}
	for _, parseErr := range parseErrs {
		result.Errors = append(result.Errors, parseErr.Error())
		result.Skipped++
	}

	for _, row := range rows {
		book, err := ic.findOrCreateBook(row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %v", row.Title, err))
			result.Skipped++
			continue
		}

		_, err = ic.service.AddBookToUser(c.Request.Context(), userID, book.ID, library.UserBookInput{
			Rating:       row.Rating,
			DateStarted:  row.DateStarted,
			DateFinished: row.DateFinished,
			Notes:        row.Notes,
			Import:       true,
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%q: %v", row.Title, err))
			result.Skipped++
			continue
		}
		result.Imported++
	}

	c.JSON(http.StatusOK, result)
}

// findOrCreateBook resolves an import row to a catalog entry. Metadata
// is left for the lazy refresh: imports should not hammer the provider.
func (ic *ImportController) findOrCreateBook(row importers.Row) (*entities.Book, error) {
	book, err := ic.catalog.GetByQuickLink(row.QuickLink)
	if err == nil {
		return book, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	book = &entities.Book{QuickLink: row.QuickLink}
	if err := ic.catalog.Create(book); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ic.catalog.GetByQuickLink(row.QuickLink)
		}
		return nil, err
	}
	return book, nil
}
