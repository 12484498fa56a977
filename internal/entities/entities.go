package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BookDetails is the structured metadata blob cached on a Book. It is
// populated from the external provider and stored as a JSON text column.
type BookDetails struct {
	Title           string   `json:"title"`
	Authors         []string `json:"authors,omitempty"`
	Publisher       string   `json:"publisher,omitempty"`
	Description     string   `json:"description,omitempty"`
	CoverURL        string   `json:"cover_url,omitempty"`
	PublicationYear int      `json:"publication_year,omitempty"`
	Subjects        []string `json:"subjects,omitempty"`
	PageCount       int      `json:"page_count,omitempty"`
}

// Valid reports whether the cached blob is usable. Anything without a
// title (including a nil blob) is treated as stale and triggers a
// provider refresh.
func (d *BookDetails) Valid() bool {
	return d != nil && d.Title != ""
}

// Value serializes the details to JSON for storage.
func (d BookDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan deserializes the details from a JSON column. A malformed blob is
// not an error: it scans to an empty (and therefore stale) value so the
// next read refreshes it from the provider.
func (d *BookDetails) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported details column type %T", src)
	}

	if err := json.Unmarshal(data, d); err != nil {
		*d = BookDetails{}
	}
	return nil
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string    `gorm:"size:100" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book is a canonical catalog entry shared by all users. QuickLink is the
// opaque identifier used to query the metadata provider.
type Book struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	QuickLink string       `gorm:"uniqueIndex;size:512" json:"quick_link"`
	Details   *BookDetails `gorm:"type:text" json:"details,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// UserBook is a single user's tracking record for one book. At most one
// row exists per (user, book) pair, enforced by idx_user_book.
type UserBook struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"uniqueIndex:idx_user_book" json:"user_id"`
	BookID       uint       `gorm:"uniqueIndex:idx_user_book" json:"book_id"`
	Rating       *int       `json:"rating,omitempty"`
	DateStarted  *time.Time `json:"date_started,omitempty"`
	DateFinished *time.Time `json:"date_finished,omitempty"`
	Notes        *string    `gorm:"size:1000" json:"notes,omitempty"`
	Import       bool       `gorm:"default:false" json:"import"`
	User         User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Book         Book       `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (Book) TableName() string {
	return "books"
}

func (UserBook) TableName() string {
	return "user_books"
}
