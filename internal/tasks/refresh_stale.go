package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/avolkau/shelftrack/internal/entities"
	"github.com/avolkau/shelftrack/internal/library"
)

// StaleBookLister finds catalog rows whose cached metadata needs a refresh.
type StaleBookLister interface {
	ListStale() ([]entities.Book, error)
}

// RefreshStaleBooksTask sweeps the catalog and refreshes every book with
// missing or unusable cached metadata. Books are refreshed one at a time;
// a failed book is logged and skipped so one bad quick link cannot stall
// the whole sweep.
type RefreshStaleBooksTask struct{}

// Config returns the queue configuration for stale sweep tasks. The sweep
// keeps its own attempt and timeout values since it walks the whole catalog,
// but retention follows the client configuration.
func (t RefreshStaleBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_stale_books",
		MaxAttempts: 2,
		Backoff:     5 * time.Minute,
		Timeout:     30 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   queueDefaults.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshStaleBooksProcessor creates a processor function for the sweep.
func RefreshStaleBooksProcessor(books StaleBookLister, service *library.Service) backlite.QueueProcessor[RefreshStaleBooksTask] {
	return func(ctx context.Context, _ RefreshStaleBooksTask) error {
		if books == nil || service == nil {
			return fmt.Errorf("stale sweep not configured")
		}

		stale, err := books.ListStale()
		if err != nil {
			return fmt.Errorf("list stale books: %w", err)
		}
		if len(stale) == 0 {
			log.Printf("[TASK] Stale sweep: nothing to refresh")
			return nil
		}

		var refreshed, failed int
		for _, book := range stale {
			if _, err := service.RefreshBook(ctx, book.ID); err != nil {
				log.Printf("[TASK] Stale sweep: book %d (%s) failed: %v", book.ID, book.QuickLink, err)
				failed++
				continue
			}
			refreshed++
		}

		log.Printf("[TASK] Stale sweep: refreshed %d of %d books (%d failed)",
			refreshed, len(stale), failed)
		return nil
	}
}

// NewRefreshStaleBooksQueue creates a backlite queue for stale sweeps.
func NewRefreshStaleBooksQueue(books StaleBookLister, service *library.Service) backlite.Queue {
	return backlite.NewQueue(RefreshStaleBooksProcessor(books, service))
}
