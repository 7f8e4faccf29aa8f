package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"brownies/internal/amqp"
	"brownies/internal/core"
	"brownies/internal/sheets"
	"brownies/internal/storage"
)

// SyncWorker mirrors order mutations from SQLite into the spreadsheet.
// Queue messages drive the common path; the pending-sync backlog covers
// messages lost while the broker or worker was down.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	mirror    sheets.OrderMirror
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, mirror sheets.OrderMirror, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		mirror:    mirror,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single order sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.OrderSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "id", msg.ID)

	order, err := w.storage.GetOrder(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted locally after the message was queued; make sure the
		// spreadsheet row is gone too.
		slog.InfoContext(ctx, "Order no longer exists, removing mirror row", "id", msg.ID)
		return w.mirror.RemoveOrder(ctx, msg.ID)
	}
	if err != nil {
		return fmt.Errorf("get order from storage: %w", err)
	}

	if err := w.mirrorOrder(ctx, order); err != nil {
		return fmt.Errorf("mirror order: %w", err)
	}

	return nil
}

// HandleDeleteMessage processes a single order delete message from AMQP.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.OrderDeleteMessage) error {
	slog.InfoContext(ctx, "Processing delete message", "id", msg.ID)

	if err := w.mirror.RemoveOrder(ctx, msg.ID); err != nil {
		return fmt.Errorf("remove order from mirror: %w", err)
	}

	slog.InfoContext(ctx, "Removed order from mirror", "id", msg.ID)
	return nil
}

// ProcessPendingOrders mirrors any orders that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingOrders(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck drains the backlog at worker startup with a larger
// batch, recovering from missed messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.processPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingSyncOrders(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending orders: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending orders", "count", len(pending))

	successCount := 0
	errorCount := 0
	for _, p := range pending {
		order, err := w.storage.GetOrder(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get order", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.mirrorOrder(ctx, order); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror order", "id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Pending sync pass completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) mirrorOrder(ctx context.Context, order core.Order) error {
	ref, err := w.mirror.AppendOrder(ctx, order)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, order.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", order.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, order.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", order.ID, "error", err)
		// The mirror write succeeded; the backlog pass will retry the flag.
	}

	slog.InfoContext(ctx, "Mirrored order",
		"id", order.ID,
		"mirror_ref", ref,
		"delivery_date", order.DeliveryDate.Format("2006-01-02"))

	return nil
}
