package services

import (
	"context"
	"fmt"
	"log/slog"

	"brownies/internal/amqp"
	"brownies/internal/core"
	"brownies/internal/storage"
)

// OrderService orchestrates order mutations across SQLite and AMQP.
// Writes land in SQLite first; the sync message is best effort, the
// pending-sync backlog covers anything the broker drops.
type OrderService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewOrderService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *OrderService {
	return &OrderService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateOrder saves an order locally and publishes a sync message.
func (s *OrderService) CreateOrder(ctx context.Context, o core.Order) (int64, error) {
	id, err := s.storage.CreateOrder(ctx, o)
	if err != nil {
		return 0, fmt.Errorf("save order: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - order is saved locally
	}

	return id, nil
}

// UpdateOrder updates an order locally and publishes a sync message.
func (s *OrderService) UpdateOrder(ctx context.Context, o core.Order) error {
	if err := s.storage.UpdateOrder(ctx, o); err != nil {
		return fmt.Errorf("update order: %w", err)
	}

	if err := s.publishSyncMessage(ctx, o.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", o.ID, "error", err)
	}

	return nil
}

// DeleteOrder removes an order locally and publishes a delete message.
func (s *OrderService) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.storage.DeleteOrder(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	if err := s.publishDeleteMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
	}

	return nil
}

// MarkOrderPaid settles an order at its line total and publishes a sync
// message.
func (s *OrderService) MarkOrderPaid(ctx context.Context, id int64) error {
	if err := s.storage.MarkOrderPaid(ctx, id); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	if err := s.publishSyncMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
	}

	return nil
}

// MarkShopOrdersPaid settles every outstanding order of a shop. The updated
// rows are requeued as pending, so the worker's backlog pass mirrors them.
func (s *OrderService) MarkShopOrdersPaid(ctx context.Context, shopID int64) (int, error) {
	n, err := s.storage.MarkShopOrdersPaid(ctx, shopID)
	if err != nil {
		return 0, fmt.Errorf("mark shop orders paid: %w", err)
	}
	return n, nil
}

func (s *OrderService) publishSyncMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishOrderSync(ctx, id)
}

func (s *OrderService) publishDeleteMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}
	return s.amqpClient.PublishOrderDelete(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *OrderService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close order service: %v", errs)
	}

	return nil
}
