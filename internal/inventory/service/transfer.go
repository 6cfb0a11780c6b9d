package service

import (
	"context"
	"time"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/pkg/actor"
	apperrors "github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// CreateTransferRequest asks to move stock of an item to another section.
type CreateTransferRequest struct {
	ItemID      string          `json:"item_id" validate:"required,uuid"`
	ToSectionID string          `json:"to_section_id" validate:"required,uuid"`
	Quantity    decimal.Decimal `json:"quantity"`
	Reason      string          `json:"reason" validate:"required,min=3,max=255"`
}

// RejectTransferRequest carries the mandatory rejection reason.
type RejectTransferRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

// CreateTransfer opens a pending transfer. Stock does not move; the
// sufficiency check here only catches obvious mistakes early, the binding
// check happens at completion under lock.
func (s *InventoryService) CreateTransfer(ctx context.Context, req *CreateTransferRequest) (*repository.Transfer, error) {
	if !req.Quantity.IsPositive() {
		return nil, s.fail(apperrors.ValidationMsg("quantity must be positive"))
	}

	item, err := s.items.GetByID(ctx, req.ItemID)
	if err != nil {
		return nil, s.fail(err)
	}
	if item.SectionID == req.ToSectionID {
		return nil, s.fail(apperrors.ValidationMsg("source and destination section must differ"))
	}
	if req.Quantity.GreaterThan(item.Quantity) {
		return nil, s.fail(apperrors.InsufficientStock(
			"requested " + req.Quantity.String() + " but only " + item.Quantity.String() + " available"))
	}

	if _, err := s.sections.GetByID(ctx, req.ToSectionID); err != nil {
		return nil, s.fail(err)
	}

	act := actorFrom(ctx)

	transfer := &repository.Transfer{
		ItemCode:      item.ItemCode,
		FromSectionID: item.SectionID,
		ToSectionID:   req.ToSectionID,
		Quantity:      req.Quantity,
		Unit:          item.Unit,
		Reason:        req.Reason,
		RequestedBy:   act.ID,
	}

	// The day-scoped sequence can collide under concurrent creation; one
	// retry with a fresh number covers it.
	for attempt := 0; attempt < 2; attempt++ {
		number, err := s.transfers.NextTransferNumber(ctx, time.Now())
		if err != nil {
			return nil, s.fail(err)
		}
		transfer.TransferNumber = number

		err = s.transfers.Create(ctx, transfer)
		if err == nil {
			break
		}
		if attempt == 1 || !apperrors.Is(err, apperrors.ErrConflict) {
			return nil, s.fail(err)
		}
	}

	s.publisher.PublishTransferRequested(ctx, transfer)
	if s.metrics != nil {
		s.metrics.TransferOutcomes.WithLabelValues(repository.TransferStatusPending).Inc()
	}

	s.logger.Info().
		Str("transfer_id", transfer.ID).
		Str("transfer_number", transfer.TransferNumber).
		Str("item_code", transfer.ItemCode).
		Str("quantity", transfer.Quantity.String()).
		Msg("transfer requested")

	return transfer, nil
}

// GetTransfer gets a transfer by ID
func (s *InventoryService) GetTransfer(ctx context.Context, id string) (*repository.Transfer, error) {
	transfer, err := s.transfers.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	return transfer, nil
}

// ListTransfers lists transfers filtered by status and section
func (s *InventoryService) ListTransfers(ctx context.Context, status, sectionID string, page, perPage int) ([]*repository.Transfer, int64, error) {
	transfers, total, err := s.transfers.List(ctx, status, sectionID, page, perPage)
	if err != nil {
		return nil, 0, s.fail(err)
	}
	return transfers, total, nil
}

// ApproveTransfer authorizes a pending transfer. Only pending transfers
// can be approved; stock still does not move.
func (s *InventoryService) ApproveTransfer(ctx context.Context, id string) (*repository.Transfer, error) {
	act := actorFrom(ctx)

	transfer, err := s.decideTransfer(ctx, id, repository.TransferStatusApproved, act, "")
	if err != nil {
		return nil, s.fail(err)
	}

	s.publisher.PublishTransferDecided(ctx, transfer, act.ID)
	if s.metrics != nil {
		s.metrics.TransferOutcomes.WithLabelValues(repository.TransferStatusApproved).Inc()
	}

	return transfer, nil
}

// RejectTransfer declines a pending transfer with a reason. Rejection is
// terminal.
func (s *InventoryService) RejectTransfer(ctx context.Context, id string, req *RejectTransferRequest) (*repository.Transfer, error) {
	act := actorFrom(ctx)

	transfer, err := s.decideTransfer(ctx, id, repository.TransferStatusRejected, act, req.Reason)
	if err != nil {
		return nil, s.fail(err)
	}

	s.publisher.PublishTransferDecided(ctx, transfer, act.ID)
	if s.metrics != nil {
		s.metrics.TransferOutcomes.WithLabelValues(repository.TransferStatusRejected).Inc()
	}

	return transfer, nil
}

func (s *InventoryService) decideTransfer(ctx context.Context, id, toStatus string, act *actor.Actor, rejectReason string) (*repository.Transfer, error) {
	var decided *repository.Transfer
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		transfer, err := s.transfers.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if transfer.Status != repository.TransferStatusPending {
			return apperrors.InvalidTransferState(transfer.Status, verbFor(toStatus))
		}

		if toStatus == repository.TransferStatusRejected {
			if err := s.transfers.MarkRejected(ctx, tx, id, act.ID, rejectReason); err != nil {
				return err
			}
			transfer.RejectReason = &rejectReason
		} else {
			if err := s.transfers.MarkApproved(ctx, tx, id, act.ID); err != nil {
				return err
			}
		}

		transfer.Status = toStatus
		transfer.ApprovedBy = &act.ID
		decided = transfer
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transfer_id", decided.ID).
		Str("status", decided.Status).
		Str("actor_id", act.ID).
		Msg("transfer decided")

	return decided, nil
}

// CompleteTransfer executes an approved transfer: debits the source,
// credits the destination (creating the destination row if needed) and
// marks the transfer completed, all in one transaction. Source
// sufficiency is re-checked under lock; approval is no guarantee the
// stock is still there.
func (s *InventoryService) CompleteTransfer(ctx context.Context, id string) (*repository.Transfer, error) {
	act := actorFrom(ctx)

	var completed *repository.Transfer
	var out, in *mutation
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		transfer, err := s.transfers.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if transfer.Status != repository.TransferStatusApproved {
			return apperrors.InvalidTransferState(transfer.Status, "complete")
		}

		source, destination, err := s.lockTransferItems(ctx, tx, transfer)
		if err != nil {
			return err
		}

		if transfer.Quantity.GreaterThan(source.Quantity) {
			return apperrors.InsufficientStock(
				"transfer needs " + transfer.Quantity.String() + " but only " + source.Quantity.String() + " remains in source")
		}

		// The credit reopens a fully disposed destination row: the
		// arriving stock is new stock, not the written-off batch.
		if destination.Status == repository.ItemStatusDisposed {
			destination.Status = repository.ItemStatusActive
		}

		out, err = s.mutateQuantity(ctx, tx, source, transfer.Quantity.Neg(), repository.ReasonTransferOut, act)
		if err != nil {
			return err
		}
		in, err = s.mutateQuantity(ctx, tx, destination, transfer.Quantity, repository.ReasonTransferIn, act)
		if err != nil {
			return err
		}

		if err := s.transfers.MarkCompleted(ctx, tx, id, act.ID); err != nil {
			return err
		}

		transfer.Status = repository.TransferStatusCompleted
		transfer.TransferredBy = &act.ID
		completed = transfer
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	s.emitMutation(ctx, out, act)
	s.emitMutation(ctx, in, act)
	s.publisher.PublishTransferCompleted(ctx, completed, act.ID)
	if s.metrics != nil {
		s.metrics.TransferOutcomes.WithLabelValues(repository.TransferStatusCompleted).Inc()
	}

	s.logger.Info().
		Str("transfer_id", completed.ID).
		Str("transfer_number", completed.TransferNumber).
		Msg("transfer completed")

	return completed, nil
}

// lockTransferItems locks the source and destination rows in ascending
// section-ID order so two opposing transfers between the same sections
// cannot deadlock. The destination row is created empty first if the item
// has never been stocked there.
func (s *InventoryService) lockTransferItems(ctx context.Context, tx *sqlx.Tx, transfer *repository.Transfer) (source, destination *repository.InventoryItem, err error) {
	probe, err := s.items.GetBySectionCode(ctx, tx, transfer.FromSectionID, transfer.ItemCode)
	if err != nil {
		return nil, nil, err
	}
	if err := s.items.EnsureDestination(ctx, tx, probe, transfer.ToSectionID); err != nil {
		return nil, nil, err
	}

	first, second := transfer.FromSectionID, transfer.ToSectionID
	if second < first {
		first, second = second, first
	}

	a, err := s.items.GetBySectionCodeForUpdate(ctx, tx, first, transfer.ItemCode)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.items.GetBySectionCodeForUpdate(ctx, tx, second, transfer.ItemCode)
	if err != nil {
		return nil, nil, err
	}

	if a.SectionID == transfer.FromSectionID {
		return a, b, nil
	}
	return b, a, nil
}

func verbFor(status string) string {
	switch status {
	case repository.TransferStatusApproved:
		return "approve"
	case repository.TransferStatusRejected:
		return "reject"
	case repository.TransferStatusCompleted:
		return "complete"
	default:
		return status
	}
}
