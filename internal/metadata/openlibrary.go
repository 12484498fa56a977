package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/avolkau/shelftrack/internal/entities"
)

const defaultBaseURL = "https://openlibrary.org"

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
// A quick link is an OpenLibrary resource path such as "/isbn/0451524934"
// or "/works/OL27448W"; appending ".json" yields the record URL.
type OpenLibraryClient struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewOpenLibraryClient creates a new OpenLibrary API client rate-limited
// to one request per second, per the API usage policy. A non-positive
// timeout falls back to 10 seconds.
func NewOpenLibraryClient(timeout time.Duration) *OpenLibraryClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type openLibraryAuthorRef struct {
	Key    string `json:"key"`
	Author struct {
		Key string `json:"key"`
	} `json:"author"`
}

// openLibraryRecord covers both edition and work response shapes.
type openLibraryRecord struct {
	Title         string                 `json:"title"`
	Publishers    []string               `json:"publishers"`
	PublishDate   string                 `json:"publish_date"`
	Description   any                    `json:"description"`
	NumberOfPages int                    `json:"number_of_pages"`
	Subjects      []string               `json:"subjects"`
	Covers        []int                  `json:"covers"`
	Authors       []openLibraryAuthorRef `json:"authors"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	Publisher        []string `json:"publisher"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverI           int      `json:"cover_i"`
	Subject          []string `json:"subject"`
}

type openLibrarySearchResult struct {
	Docs []openLibrarySearchDoc `json:"docs"`
}

// FetchByLink retrieves the record behind a quick link and maps it to
// BookDetails. Implements the Provider interface.
func (c *OpenLibraryClient) FetchByLink(ctx context.Context, quickLink string) (*entities.BookDetails, error) {
	if quickLink == "" {
		return nil, fmt.Errorf("empty quick link")
	}
	if !strings.HasPrefix(quickLink, "/") {
		quickLink = "/" + quickLink
	}

	var record openLibraryRecord
	if err := c.getJSON(ctx, quickLink+".json", &record); err != nil {
		return nil, err
	}

	details := &entities.BookDetails{
		Title:     record.Title,
		PageCount: record.NumberOfPages,
	}

	if len(record.Publishers) > 0 {
		details.Publisher = record.Publishers[0]
	}
	if record.PublishDate != "" {
		details.PublicationYear = extractYear(record.PublishDate)
	}
	if len(record.Covers) > 0 && record.Covers[0] > 0 {
		details.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", record.Covers[0])
	}
	if len(record.Subjects) > 0 {
		details.Subjects = record.Subjects
		if len(details.Subjects) > 10 {
			details.Subjects = details.Subjects[:10]
		}
	}

	// Descriptions come back as either a string or {"value": "..."}.
	switch v := record.Description.(type) {
	case string:
		details.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			details.Description = val
		}
	}

	for _, ref := range record.Authors {
		key := ref.Key
		if key == "" {
			key = ref.Author.Key
		}
		if key == "" {
			continue
		}
		name, err := c.fetchAuthorName(ctx, key)
		if err != nil {
			continue
		}
		details.Authors = append(details.Authors, name)
	}

	return details, nil
}

// Search queries the OpenLibrary search index and returns candidate books
// with their quick links. Implements the Searcher interface.
func (c *OpenLibraryClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	path := fmt.Sprintf("/search.json?q=%s&limit=10", url.QueryEscape(query))

	var searchResult openLibrarySearchResult
	if err := c.getJSON(ctx, path, &searchResult); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(searchResult.Docs))
	for _, doc := range searchResult.Docs {
		if doc.Key == "" || doc.Title == "" {
			continue
		}

		details := &entities.BookDetails{
			Title:           doc.Title,
			Authors:         doc.AuthorName,
			PublicationYear: doc.FirstPublishYear,
		}
		if len(doc.Publisher) > 0 {
			details.Publisher = doc.Publisher[0]
		}
		if doc.CoverI != 0 {
			details.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", doc.CoverI)
		}
		if len(doc.Subject) > 0 {
			details.Subjects = doc.Subject
			if len(details.Subjects) > 10 {
				details.Subjects = details.Subjects[:10]
			}
		}

		results = append(results, SearchResult{QuickLink: doc.Key, Details: details})
	}

	return results, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	var authorData struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, authorKey+".json", &authorData); err != nil {
		return "", err
	}
	if authorData.Name == "" {
		return "", fmt.Errorf("author %s has no name", authorKey)
	}
	return authorData.Name, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "ShelfTrack/1.0 (https://github.com/avolkau/shelftrack)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("record not found: %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractYear pulls a four-digit year out of free-form publish dates like
// "Oct 01, 1988" or "1988".
func extractYear(date string) int {
	for i := 0; i+4 <= len(date); i++ {
		if year, err := strconv.Atoi(date[i : i+4]); err == nil && year >= 1000 && year <= 2999 {
			return year
		}
	}
	return 0
}
