package events

import (
	"context"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
	"github.com/foodtrack/foodtrack-backend/pkg/messaging"
	"github.com/shopspring/decimal"
)

// InventoryEventPublisher publishes inventory domain events. A nil
// publisher is valid and drops everything, so the service layer never has
// to branch on whether messaging is configured.
type InventoryEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a new inventory event publisher
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &InventoryEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockAdjusted publishes a stock adjusted event
func (p *InventoryEventPublisher) PublishStockAdjusted(ctx context.Context, item *repository.InventoryItem, delta decimal.Decimal, reason, performedBy string) {
	if p == nil {
		return
	}

	data := messaging.StockAdjustedEvent{
		ItemID:      item.ID,
		SectionID:   item.SectionID,
		ItemCode:    item.ItemCode,
		Delta:       delta.String(),
		NewQuantity: item.Quantity.String(),
		Reason:      reason,
		PerformedBy: performedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockAdjusted, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish stock adjusted event")
	}
}

// PublishAlertChanged publishes an alert changed event
func (p *InventoryEventPublisher) PublishAlertChanged(ctx context.Context, item *repository.InventoryItem, prevStock, prevExpiry string) {
	if p == nil {
		return
	}

	data := messaging.AlertChangedEvent{
		ItemID:          item.ID,
		SectionID:       item.SectionID,
		ItemCode:        item.ItemCode,
		ItemName:        item.Name,
		PrevStockAlert:  prevStock,
		StockAlert:      item.StockAlert,
		PrevExpiryAlert: prevExpiry,
		ExpiryAlert:     item.ExpiryAlert,
		Quantity:        item.Quantity.String(),
	}

	if err := p.publisher.Publish(ctx, messaging.EventAlertChanged, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish alert changed event")
	}
}

// PublishTransferRequested publishes a transfer requested event
func (p *InventoryEventPublisher) PublishTransferRequested(ctx context.Context, t *repository.Transfer) {
	if p == nil {
		return
	}

	data := messaging.TransferRequestedEvent{
		TransferID:     t.ID,
		TransferNumber: t.TransferNumber,
		ItemCode:       t.ItemCode,
		FromSectionID:  t.FromSectionID,
		ToSectionID:    t.ToSectionID,
		Quantity:       t.Quantity.String(),
		RequestedBy:    t.RequestedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTransferRequested, data); err != nil {
		p.logger.Error().Err(err).Str("transfer_id", t.ID).Msg("failed to publish transfer requested event")
	}
}

// PublishTransferDecided publishes an approved or rejected event depending
// on the transfer's status.
func (p *InventoryEventPublisher) PublishTransferDecided(ctx context.Context, t *repository.Transfer, decidedBy string) {
	if p == nil {
		return
	}

	eventType := messaging.EventTransferApproved
	reason := ""
	if t.Status == repository.TransferStatusRejected {
		eventType = messaging.EventTransferRejected
		if t.RejectReason != nil {
			reason = *t.RejectReason
		}
	}

	data := messaging.TransferDecidedEvent{
		TransferID:     t.ID,
		TransferNumber: t.TransferNumber,
		Status:         t.Status,
		DecidedBy:      decidedBy,
		Reason:         reason,
	}

	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("transfer_id", t.ID).Msg("failed to publish transfer decided event")
	}
}

// PublishTransferCompleted publishes a transfer completed event
func (p *InventoryEventPublisher) PublishTransferCompleted(ctx context.Context, t *repository.Transfer, transferredBy string) {
	if p == nil {
		return
	}

	data := messaging.TransferCompletedEvent{
		TransferID:     t.ID,
		TransferNumber: t.TransferNumber,
		ItemCode:       t.ItemCode,
		FromSectionID:  t.FromSectionID,
		ToSectionID:    t.ToSectionID,
		Quantity:       t.Quantity.String(),
		TransferredBy:  transferredBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventTransferCompleted, data); err != nil {
		p.logger.Error().Err(err).Str("transfer_id", t.ID).Msg("failed to publish transfer completed event")
	}
}

// PublishItemExpired publishes an item expired event
func (p *InventoryEventPublisher) PublishItemExpired(ctx context.Context, item *repository.InventoryItem) {
	if p == nil {
		return
	}

	data := messaging.ItemExpiredEvent{
		ItemID:     item.ID,
		SectionID:  item.SectionID,
		ItemCode:   item.ItemCode,
		ItemName:   item.Name,
		ExpiryDate: item.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemExpired, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish item expired event")
	}
}

// PublishItemDisposed publishes an item disposed event
func (p *InventoryEventPublisher) PublishItemDisposed(ctx context.Context, item *repository.InventoryItem, disposed decimal.Decimal, reason, performedBy string) {
	if p == nil {
		return
	}

	data := messaging.ItemDisposedEvent{
		ItemID:           item.ID,
		SectionID:        item.SectionID,
		ItemCode:         item.ItemCode,
		DisposedQuantity: disposed.String(),
		Reason:           reason,
		FullyDisposed:    item.Status == repository.ItemStatusDisposed,
		PerformedBy:      performedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventItemDisposed, data); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("failed to publish item disposed event")
	}
}
