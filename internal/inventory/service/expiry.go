package service

import (
	"context"
	"time"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/alert"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/pkg/actor"
	apperrors "github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ExtendExpiryRequest moves an item's expiry date, typically after a
// re-inspection.
type ExtendExpiryRequest struct {
	NewExpiryDate time.Time `json:"new_expiry_date" validate:"required"`
	Reason        string    `json:"reason" validate:"required,min=3,max=255"`
}

// DisposeRequest writes off part or all of an item's stock.
type DisposeRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Reason   string           `json:"reason" validate:"required,min=3,max=255"`
}

// ScanReport summarizes one expiry scan pass.
type ScanReport struct {
	MarkedExpired int `json:"marked_expired"`
	Reclassified  int `json:"reclassified"`
}

// MarkExpired transitions an item to expired and records a zero-delta
// ledger entry so the trail shows when the state flipped. Marking an item
// that is already expired is a no-op.
func (s *InventoryService) MarkExpired(ctx context.Context, itemID string) (*repository.InventoryItem, error) {
	act := actorFrom(ctx)

	var m *mutation
	var already *repository.InventoryItem
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		switch item.Status {
		case repository.ItemStatusDisposed:
			return apperrors.Conflict("item is disposed")
		case repository.ItemStatusExpired:
			already = item
			return nil
		}

		item.Status = repository.ItemStatusExpired
		m, err = s.mutateQuantity(ctx, tx, item, decimal.Zero, repository.ReasonMarkedExpired, act)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	if already != nil {
		return already, nil
	}

	s.publisher.PublishItemExpired(ctx, m.item)
	if m.alertChanged() {
		s.publisher.PublishAlertChanged(ctx, m.item, m.prevStock, m.prevExpiry)
	}

	s.logger.Info().
		Str("item_id", m.item.ID).
		Str("item_code", m.item.ItemCode).
		Msg("item marked expired")

	return m.item, nil
}

// ExtendExpiry moves the expiry date forward. An expired item whose new
// date lies in the future returns to active; the stock was re-inspected
// and cleared.
func (s *InventoryService) ExtendExpiry(ctx context.Context, itemID string, req *ExtendExpiryRequest) (*repository.InventoryItem, error) {
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
		if item.ManufactureDate != nil && !req.NewExpiryDate.After(*item.ManufactureDate) {
			return apperrors.InvalidDateRange("new_expiry_date must be after manufacture_date")
		}

		newDate := req.NewExpiryDate
		item.ExpiryDate = &newDate
		if item.Status == repository.ItemStatusExpired && alert.DaysToExpiry(newDate, time.Now()) >= 0 {
			item.Status = repository.ItemStatusActive
		}

		m, err = s.mutateQuantity(ctx, tx, item, decimal.Zero, repository.ReasonExpiryExtended, act)
		return err
	})
	if err != nil {
		return nil, s.fail(err)
	}

	if m.alertChanged() {
		s.publisher.PublishAlertChanged(ctx, m.item, m.prevStock, m.prevExpiry)
	}

	s.logger.Info().
		Str("item_id", m.item.ID).
		Time("new_expiry_date", req.NewExpiryDate).
		Str("reason", req.Reason).
		Msg("expiry extended")

	return m.item, nil
}

// Dispose writes off stock. Omitting the quantity disposes everything on
// hand. An item whose quantity reaches zero through disposal becomes
// terminally disposed and accepts no further mutations.
func (s *InventoryService) Dispose(ctx context.Context, itemID string, req *DisposeRequest) (*repository.InventoryItem, error) {
	act := actorFrom(ctx)

	var m *mutation
	var disposed decimal.Decimal
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Status == repository.ItemStatusDisposed {
			return apperrors.Conflict("item is already disposed")
		}

		disposed = item.Quantity
		if req.Quantity != nil {
			disposed = *req.Quantity
		}
		if !disposed.IsPositive() {
			return apperrors.ValidationMsg("disposal quantity must be positive")
		}
		if disposed.GreaterThan(item.Quantity) {
			return apperrors.InsufficientStock(
				"cannot dispose " + disposed.String() + ", only " + item.Quantity.String() + " on hand")
		}

		m, err = s.mutateQuantity(ctx, tx, item, disposed.Neg(), repository.ReasonDisposal+": "+req.Reason, act)
		if err != nil {
			return err
		}

		if m.item.Quantity.IsZero() {
			m.item.Status = repository.ItemStatusDisposed
			return s.items.SaveStockState(ctx, tx, m.item)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.emitMutation(ctx, m, act)
	s.publisher.PublishItemDisposed(ctx, m.item, disposed, req.Reason, act.ID)

	s.logger.Info().
		Str("item_id", m.item.ID).
		Str("disposed", disposed.String()).
		Str("reason", req.Reason).
		Bool("fully_disposed", m.item.Status == repository.ItemStatusDisposed).
		Msg("stock disposed")

	return m.item, nil
}

// RunExpiryScan walks the catalog once: items past their expiry date are
// marked expired, and expiry alert caches that drifted with the calendar
// are recomputed. Runs as the system actor.
func (s *InventoryService) RunExpiryScan(ctx context.Context) (*ScanReport, error) {
	ctx = actor.WithActor(ctx, actor.SystemActor())
	report := &ScanReport{}

	expired, err := s.items.ListExpiredActive(ctx, time.Now())
	if err != nil {
		return nil, s.fail(err)
	}
	for _, id := range expired {
		if _, err := s.MarkExpired(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("item_id", id).Msg("expiry scan failed to mark item")
			continue
		}
		report.MarkedExpired++
	}

	withExpiry, err := s.items.ListWithExpiry(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	for _, id := range withExpiry {
		changed, err := s.refreshExpiryAlert(ctx, id)
		if err != nil {
			s.logger.Error().Err(err).Str("item_id", id).Msg("expiry scan failed to refresh alert")
			continue
		}
		if changed {
			report.Reclassified++
		}
	}

	s.logger.Info().
		Int("marked_expired", report.MarkedExpired).
		Int("reclassified", report.Reclassified).
		Msg("expiry scan finished")

	return report, nil
}

// refreshExpiryAlert recomputes one item's alert cache against today's
// date without touching the quantity.
func (s *InventoryService) refreshExpiryAlert(ctx context.Context, itemID string) (bool, error) {
	var changed *mutation
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item.Status == repository.ItemStatusDisposed {
			return nil
		}

		eval := item.Evaluate(time.Now())
		if string(eval.Stock) == item.StockAlert && string(eval.Expiry) == item.ExpiryAlert {
			return nil
		}

		m := &mutation{prevStock: item.StockAlert, prevExpiry: item.ExpiryAlert}
		prevEval := alert.Evaluation{
			Stock:  alert.StockLevel(item.StockAlert),
			Expiry: alert.ExpiryStatus(item.ExpiryAlert),
		}

		item.StockAlert = string(eval.Stock)
		item.ExpiryAlert = string(eval.Expiry)
		if item.AlertAcked && alert.ShouldResetAcknowledgement(prevEval, eval) {
			item.AlertAcked = false
			item.AckedBy = nil
			item.AckedAt = nil
		}

		if err := s.items.SaveStockState(ctx, tx, item); err != nil {
			return err
		}

		m.item = item
		changed = m
		return nil
	})
	if err != nil || changed == nil {
		return false, err
	}

	s.publisher.PublishAlertChanged(ctx, changed.item, changed.prevStock, changed.prevExpiry)
	if s.metrics != nil {
		s.metrics.AlertTransitions.WithLabelValues(changed.item.StockAlert).Inc()
	}

	return true, nil
}
