// Package importers parses bulk library exports into tracking rows.
package importers

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Row is one book from a Goodreads-style CSV export, mapped onto the
// tracking model. QuickLink is derived from the ISBN.
type Row struct {
	Title        string
	Author       string
	QuickLink    string
	Rating       *int
	DateStarted  *time.Time
	DateFinished *time.Time
	Notes        *string
}

// maxImportNotes mirrors the notes bound enforced by the library service
// so imported reviews never fail validation.
const maxImportNotes = 1000

// ParseGoodreadsCSV parses a Goodreads library export. Rows that cannot
// be imported (missing title or ISBN, unreadable record) are reported as
// errors and skipped; the rest parse independently.
func ParseGoodreadsCSV(r io.Reader) ([]Row, []error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read header: %w", err)}
	}

	headerIndex := make(map[string]int)
	for i, h := range header {
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := headerIndex["title"]; !ok {
		return nil, []error{fmt.Errorf("missing required header: Title")}
	}

	var rows []Row
	var errs []error
	lineNum := 1 // header already read

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		title := getCSVValue(record, headerIndex, "title")
		if title == "" {
			errs = append(errs, fmt.Errorf("line %d: missing title", lineNum))
			continue
		}

		isbn := normalizeISBN(getCSVValue(record, headerIndex, "isbn13"))
		if isbn == "" {
			isbn = normalizeISBN(getCSVValue(record, headerIndex, "isbn"))
		}
		if isbn == "" {
			errs = append(errs, fmt.Errorf("line %d: %q has no ISBN", lineNum, title))
			continue
		}

		row := Row{
			Title:     title,
			Author:    getCSVValue(record, headerIndex, "author"),
			QuickLink: "/isbn/" + isbn,
		}

		// Goodreads rates 0-5; 0 means unrated. Double to our 1-10 scale.
		if rating, err := strconv.Atoi(getCSVValue(record, headerIndex, "my rating")); err == nil && rating > 0 {
			scaled := rating * 2
			if scaled > 10 {
				scaled = 10
			}
			row.Rating = &scaled
		}

		row.DateFinished = parseGoodreadsDate(getCSVValue(record, headerIndex, "date read"))
		row.DateStarted = parseGoodreadsDate(getCSVValue(record, headerIndex, "date added"))
		if row.DateStarted != nil && row.DateFinished != nil && row.DateStarted.After(*row.DateFinished) {
			// "Date Added" frequently postdates "Date Read" in real
			// exports; drop the start date rather than fail validation.
			row.DateStarted = nil
		}

		if review := getCSVValue(record, headerIndex, "my review"); review != "" {
			review = truncateAtRune(review, maxImportNotes)
			row.Notes = &review
		}

		rows = append(rows, row)
	}

	return rows, errs
}

// truncateAtRune cuts s to at most max bytes without splitting a rune.
func truncateAtRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// getCSVValue safely extracts a named column from a record.
func getCSVValue(record []string, headerIndex map[string]int, key string) string {
	idx, ok := headerIndex[key]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// normalizeISBN strips hyphens, spaces, and the ="..." wrapper Goodreads
// puts around ISBN columns.
func normalizeISBN(isbn string) string {
	isbn = strings.TrimPrefix(isbn, "=")
	isbn = strings.Trim(isbn, `"`)
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	if isbn == "" {
		return ""
	}
	for _, r := range isbn {
		if (r < '0' || r > '9') && r != 'X' && r != 'x' {
			return ""
		}
	}
	return isbn
}

func parseGoodreadsDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006/01/02", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
