// Package worker mirrors events into the spreadsheet. It reacts to sync
// messages and sweeps rows the messages missed.
package worker

import (
	"context"
	"errors"
	"fmt"

	"caribook/internal/amqp"
	"caribook/internal/core"
	"caribook/internal/log"
	"caribook/internal/sheets"
	"caribook/internal/store"
)

// Source is the part of the store the worker reads.
type Source interface {
	GetEvent(ctx context.Context, id string) (core.Event, error)
	store.SyncStore
}

// SyncWorker copies events from the store to the mirror.
type SyncWorker struct {
	source    Source
	mirror    sheets.EventMirror
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(source Source, mirror sheets.EventMirror, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &SyncWorker{
		source:    source,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage dispatches a sync message by operation.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.EventSyncMessage) error {
	switch msg.Operation {
	case amqp.OperationDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return w.HandleSyncMessage(ctx, msg)
	}
}

// HandleSyncMessage mirrors the current state of the event. The message
// version is informational, the row always gets the latest data.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EventSyncMessage) error {
	w.logger.InfoContext(ctx, "Processing sync message",
		log.FieldEventID, msg.ID,
		"version", msg.Version)

	err := w.syncEvent(ctx, msg.ID)
	if errors.Is(err, store.ErrNotFound) {
		w.logger.InfoContext(ctx, "Event gone before sync, skipping", log.FieldEventID, msg.ID)
		return nil
	}
	return err
}

// HandleDeleteMessage clears the mirror row of a deleted event.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.EventSyncMessage) error {
	if err := w.mirror.RemoveEvent(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove event %s from mirror: %w", msg.ID, err)
	}
	w.logger.InfoContext(ctx, "Removed event from mirror", log.FieldEventID, msg.ID)
	return nil
}

// ProcessPendingEvents syncs up to one batch of unsynced events. It is the
// backstop for lost messages.
func (w *SyncWorker) ProcessPendingEvents(ctx context.Context) error {
	_, _, err := w.processPending(ctx, w.batchSize)
	return err
}

// StartupSyncCheck syncs a larger batch of unsynced events at start.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.source.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending events: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending events", "count", len(pending))
	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return synced, failed, err
		}
		if err := w.syncEvent(ctx, p.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync event", log.FieldEventID, p.ID, log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

// syncEvent writes the event to the mirror and records the synced version.
// A write that lost a race with a newer edit leaves the row pending.
func (w *SyncWorker) syncEvent(ctx context.Context, id string) error {
	version, err := w.source.EventVersion(ctx, id)
	if err != nil {
		return fmt.Errorf("get version of %s: %w", id, err)
	}
	e, err := w.source.GetEvent(ctx, id)
	if err != nil {
		return fmt.Errorf("get event %s: %w", id, err)
	}

	ref, err := w.mirror.UpsertEvent(ctx, e)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", log.FieldEventID, id, log.FieldError, markErr)
		}
		return fmt.Errorf("upsert event %s: %w", id, err)
	}

	if err := w.source.MarkSynced(ctx, id, version); err != nil {
		w.logger.ErrorContext(ctx, "Failed to mark as synced", log.FieldEventID, id, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Synced event",
		log.FieldEventID, id,
		"version", version,
		log.FieldSheetsRef, ref)
	return nil
}
