// Package syncer uploads queued invoices whenever connectivity allows.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-invoice-capture/internal/connectivity"
	apperrors "go-invoice-capture/internal/errors"
	"go-invoice-capture/internal/logger"
	"go-invoice-capture/internal/observer"
	"go-invoice-capture/internal/queue"
	"go-invoice-capture/pkg/models"
)

// Options tunes a Coordinator
type Options struct {
	// Concurrency is the number of uploads in flight during a pass
	Concurrency int
	// FallbackInterval triggers a pass periodically while online; 0 disables it
	FallbackInterval time.Duration
}

// PassResult summarises one sync pass
type PassResult struct {
	Attempted int           `json:"attempted"`
	Synced    int           `json:"synced"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Coordinator drains the offline queue through an Uploader.
// Passes never overlap and a record is marked synced only after a
// successful upload.
type Coordinator struct {
	store    queue.Store
	uploader Uploader
	conn     connectivity.Source
	events   observer.Subject
	opts     Options

	trigger chan struct{}
	passMu  sync.Mutex
}

// NewCoordinator creates a coordinator. events may be nil.
func NewCoordinator(store queue.Store, uploader Uploader, conn connectivity.Source, events observer.Subject, opts Options) *Coordinator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.FallbackInterval < 0 {
		opts.FallbackInterval = 0
	}
	return &Coordinator{
		store:    store,
		uploader: uploader,
		conn:     conn,
		events:   events,
		opts:     opts,
		trigger:  make(chan struct{}, 1),
	}
}

// RecordAppended tells the coordinator a record was queued. Signals
// arriving while one is pending are merged.
func (c *Coordinator) RecordAppended() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// Run reacts to connectivity transitions, append signals and the optional
// fallback tick until ctx ends. A pass starts on the transition to online,
// on an append while online, and on each tick while online.
func (c *Coordinator) Run(ctx context.Context) error {
	transitions, unsubscribe := c.conn.Subscribe()
	defer unsubscribe()

	var tick <-chan time.Time
	if c.opts.FallbackInterval > 0 {
		ticker := time.NewTicker(c.opts.FallbackInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	logger.WithFields(logrus.Fields{
		"concurrency":       c.opts.Concurrency,
		"fallback_interval": c.opts.FallbackInterval.String(),
	}).Info("Sync coordinator started")

	// records left over from an earlier session
	if c.conn.Online() {
		c.runPass(ctx, "startup")
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync coordinator stopped")
			return ctx.Err()
		case online := <-transitions:
			if online {
				c.runPass(ctx, "online")
			}
		case <-c.trigger:
			if c.conn.Online() {
				c.runPass(ctx, "append")
			}
		case <-tick:
			if c.conn.Online() {
				c.runPass(ctx, "fallback")
			}
		}
	}
}

func (c *Coordinator) runPass(ctx context.Context, reason string) {
	result, err := c.SyncNow(ctx)
	entry := logger.WithFields(logrus.Fields{
		"reason":    reason,
		"attempted": result.Attempted,
		"synced":    result.Synced,
		"failed":    result.Failed,
	})
	if err != nil {
		entry.WithError(err).Warn("Sync pass ended early")
		return
	}
	if result.Attempted > 0 {
		entry.Info("Sync pass finished")
	}
}

// SyncNow runs one pass over the unsynced records. A failed upload leaves
// its record unsynced for a later pass and does not stop the others.
func (c *Coordinator) SyncNow(ctx context.Context) (PassResult, error) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	start := time.Now()
	var result PassResult

	records, err := c.store.ListUnsynced(ctx)
	if err != nil {
		return result, apperrors.NewStorageError("failed to list unsynced records", err)
	}
	if len(records) == 0 {
		return result, nil
	}

	pool := NewWorkerPool(c.opts.Concurrency)
	pool.Start()
	defer pool.Close()

	var mu sync.Mutex
	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		rec := rec
		submitted := pool.Submit(ctx, func() {
			ok := c.syncRecord(ctx, rec)
			mu.Lock()
			defer mu.Unlock()
			if ok {
				result.Synced++
			} else {
				result.Failed++
			}
		})
		if !submitted {
			break
		}
		result.Attempted++
	}
	pool.Wait()

	result.Duration = time.Since(start)

	if result.Synced > 0 {
		c.publish(ctx, observer.PipelineEvent{
			EventType: observer.SyncCompleted,
			Message:   fmt.Sprintf("%d invoices synced successfully", result.Synced),
			Success:   true,
			Metadata: map[string]interface{}{
				"synced": result.Synced,
				"failed": result.Failed,
			},
		})
	}

	if err := ctx.Err(); err != nil {
		return result, apperrors.NewCancelledError("sync pass cancelled", err)
	}
	return result, nil
}

func (c *Coordinator) syncRecord(ctx context.Context, rec *models.QueuedInvoiceRecord) bool {
	log := logger.WithField("record_id", rec.ID)

	if err := c.uploader.Upload(ctx, rec); err != nil {
		log.WithError(err).Warn("Upload failed, record stays queued")
		c.publish(ctx, observer.PipelineEvent{
			EventType:    observer.UploadFailed,
			RecordID:     rec.ID,
			Message:      "upload failed",
			ErrorMessage: err.Error(),
		})
		return false
	}

	// the endpoint already has it, so record that even if ctx just ended
	if err := c.store.MarkSynced(context.WithoutCancel(ctx), rec.ID); err != nil {
		// uploaded but not marked; the endpoint dedupes the re-delivery
		log.WithError(err).Error("Failed to mark record synced")
		return false
	}
	return true
}

func (c *Coordinator) publish(ctx context.Context, event observer.PipelineEvent) {
	if c.events == nil {
		return
	}
	event.Timestamp = time.Now()
	c.events.NotifyObservers(ctx, event)
}
