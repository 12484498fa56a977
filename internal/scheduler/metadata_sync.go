// Package scheduler runs periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/avolkau/shelftrack/internal/config"
	"github.com/avolkau/shelftrack/internal/tasks"
)

// MetadataSyncScheduler periodically enqueues a stale-metadata sweep so
// catalog rows whose provider fetch failed (or never happened) converge
// without waiting for a user read.
type MetadataSyncScheduler struct {
	taskClient *tasks.Client
	config     config.MetadataSync

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewMetadataSyncScheduler creates a new scheduler instance.
func NewMetadataSyncScheduler(taskClient *tasks.Client, cfg config.MetadataSync) *MetadataSyncScheduler {
	return &MetadataSyncScheduler{
		taskClient: taskClient,
		config:     cfg,
		cron:       cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if sync is enabled.
func (s *MetadataSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled {
		log.Printf("Metadata sync scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.config.Schedule, s.enqueueSweep)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Metadata sync scheduler: started with schedule %q", s.config.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *MetadataSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	// Release the context monitor started in Start; without this a direct
	// Stop leaves that goroutine blocked forever.
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}

	log.Printf("Metadata sync scheduler: stopped")
}

// RunNow enqueues an immediate sweep.
func (s *MetadataSyncScheduler) RunNow() {
	s.enqueueSweep()
}

// IsRunning returns whether the scheduler is active.
func (s *MetadataSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will be enqueued.
func (s *MetadataSyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *MetadataSyncScheduler) enqueueSweep() {
	if s.taskClient == nil {
		log.Printf("Metadata sync: task queue not configured, skipping sweep")
		return
	}
	if _, err := s.taskClient.Add(tasks.RefreshStaleBooksTask{}).Save(); err != nil {
		log.Printf("Metadata sync: failed to enqueue stale sweep: %v", err)
		return
	}
	log.Printf("Metadata sync: stale sweep enqueued")
}
