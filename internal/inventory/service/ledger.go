package service

import (
	"context"
	"time"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/alert"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	apperrors "github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// AdjustStockRequest applies a signed delta to an item's quantity.
type AdjustStockRequest struct {
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason" validate:"required,min=3,max=255"`
}

// SetStockRequest replaces an item's quantity with an absolute value. The
// engine records it as the equivalent delta so the audit trail stays
// replayable.
type SetStockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Reason   string          `json:"reason" validate:"omitempty,min=3,max=255"`
}

// AdjustStock applies a delta-based mutation to one item.
func (s *InventoryService) AdjustStock(ctx context.Context, itemID string, req *AdjustStockRequest) (*repository.InventoryItem, error) {
	if req.Delta.IsZero() {
		return nil, s.fail(apperrors.ValidationMsg("delta must be non-zero"))
	}

	act := actorFrom(ctx)

	var m *mutation
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Status == repository.ItemStatusDisposed {
			return apperrors.Conflict("item is disposed")
		}

		m, err = s.mutateQuantity(ctx, tx, item, req.Delta, req.Reason, act)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.emitMutation(ctx, m, act)

	s.logger.Info().
		Str("item_id", itemID).
		Str("delta", req.Delta.String()).
		Str("reason", req.Reason).
		Str("actor_id", act.ID).
		Msg("stock adjusted")

	return m.item, nil
}

// SetStock moves an item's quantity to an absolute value by computing the
// delta against the locked current quantity. Setting the current value is
// a no-op and leaves no audit entry.
func (s *InventoryService) SetStock(ctx context.Context, itemID string, req *SetStockRequest) (*repository.InventoryItem, error) {
	if req.Quantity.IsNegative() {
		return nil, s.fail(apperrors.ValidationMsg("quantity must not be negative"))
	}

	reason := req.Reason
	if reason == "" {
		reason = repository.ReasonManualSet
	}

	act := actorFrom(ctx)

	var m *mutation
	var unchanged *repository.InventoryItem
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Status == repository.ItemStatusDisposed {
			return apperrors.Conflict("item is disposed")
		}

		delta := req.Quantity.Sub(item.Quantity)
		if delta.IsZero() {
			unchanged = item
			return nil
		}

		m, err = s.mutateQuantity(ctx, tx, item, delta, reason, act)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	if unchanged != nil {
		return unchanged, nil
	}

	s.emitMutation(ctx, m, act)
	return m.item, nil
}

// AcknowledgeAlert records that somebody has seen the item's current alert
// state. The acknowledgement is cleared automatically when a later
// mutation changes the classification.
func (s *InventoryService) AcknowledgeAlert(ctx context.Context, itemID string) (*repository.InventoryItem, error) {
	act := actorFrom(ctx)

	var acked *repository.InventoryItem
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}

		eval := alert.Evaluation{
			Stock:  alert.StockLevel(item.StockAlert),
			Expiry: alert.ExpiryStatus(item.ExpiryAlert),
		}
		if !eval.IsAlerting() {
			return apperrors.Conflict("item has no active alert")
		}

		now := time.Now().UTC()
		item.AlertAcked = true
		item.AckedBy = &act.ID
		item.AckedAt = &now

		if err := s.items.SaveStockState(ctx, tx, item); err != nil {
			return err
		}

		acked = item
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	return acked, nil
}

// GetAuditTrail returns the mutation history of one item, newest first.
func (s *InventoryService) GetAuditTrail(ctx context.Context, itemID string, page, perPage int) ([]*repository.AuditEntry, int64, error) {
	if _, err := s.items.GetByID(ctx, itemID); err != nil {
		return nil, 0, s.fail(err)
	}

	entries, total, err := s.audit.ListByItem(ctx, itemID, page, perPage)
	if err != nil {
		return nil, 0, s.fail(err)
	}
	return entries, total, nil
}
