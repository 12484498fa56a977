// Package metadata fetches book information from external providers.
package metadata

import (
	"context"

	"github.com/avolkau/shelftrack/internal/entities"
)

// Provider fetches structured book metadata by quick link. It is modeled
// as a capability so tests can substitute a double.
type Provider interface {
	FetchByLink(ctx context.Context, quickLink string) (*entities.BookDetails, error)
}

// SearchResult pairs a provider quick link with the metadata it resolves
// to, so callers can turn a search hit into a catalog entry.
type SearchResult struct {
	QuickLink string                `json:"quick_link"`
	Details   *entities.BookDetails `json:"details"`
}

// Searcher finds candidate books by free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}
