package tasks

import (
	"context"
	"fmt"
	"log"

	"github.com/mikestefanello/backlite"

	"github.com/avolkau/shelftrack/internal/library"
)

// RefreshBookTask re-fetches one book's metadata from the provider and
// persists it onto the catalog row.
type RefreshBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for book refresh tasks. Retry,
// timeout, and retention values come from the client configuration.
func (t RefreshBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "refresh_book",
		MaxAttempts: queueDefaults.MaxRetries,
		Backoff:     queueDefaults.RetryDelay,
		Timeout:     queueDefaults.TaskTimeout,
		Retention: &backlite.Retention{
			Duration:   queueDefaults.RetentionDuration,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RefreshBookProcessor creates a processor function for RefreshBookTask.
func RefreshBookProcessor(service *library.Service) backlite.QueueProcessor[RefreshBookTask] {
	return func(ctx context.Context, task RefreshBookTask) error {
		if service == nil {
			return fmt.Errorf("library service not configured")
		}

		book, err := service.RefreshBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("refresh book %d: %w", task.BookID, err)
		}

		log.Printf("[TASK] Refreshed metadata for book %d (%s)", book.ID, book.QuickLink)
		return nil
	}
}

// NewRefreshBookQueue creates a backlite queue for book refresh tasks.
func NewRefreshBookQueue(service *library.Service) backlite.Queue {
	return backlite.NewQueue(RefreshBookProcessor(service))
}
