package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/foodtrack/foodtrack-backend/pkg/database"
	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Transfer workflow states. Transitions are monotonic:
// pending -> approved | rejected, approved -> completed.
const (
	TransferStatusPending   = "pending"
	TransferStatusApproved  = "approved"
	TransferStatusRejected  = "rejected"
	TransferStatusCompleted = "completed"
)

// Transfer is a request to move stock of one item code between two
// sections. No stock moves until completion; approval only authorizes the
// move.
type Transfer struct {
	ID             string          `db:"id" json:"id"`
	TransferNumber string          `db:"transfer_number" json:"transfer_number"`
	ItemCode       string          `db:"item_code" json:"item_code"`
	FromSectionID  string          `db:"from_section_id" json:"from_section_id"`
	ToSectionID    string          `db:"to_section_id" json:"to_section_id"`
	Quantity       decimal.Decimal `db:"quantity" json:"quantity"`
	Unit           string          `db:"unit" json:"unit"`
	Reason         string          `db:"reason" json:"reason"`
	Status         string          `db:"status" json:"status"`
	RequestedBy    string          `db:"requested_by" json:"requested_by"`
	ApprovedBy     *string         `db:"approved_by" json:"approved_by,omitempty"`
	RejectReason   *string         `db:"reject_reason" json:"reject_reason,omitempty"`
	TransferredBy  *string         `db:"transferred_by" json:"transferred_by,omitempty"`
	RequestedAt    time.Time       `db:"requested_at" json:"requested_at"`
	ApprovedAt     *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt     *time.Time      `db:"rejected_at" json:"rejected_at,omitempty"`
	CompletedAt    *time.Time      `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

const transferColumns = `
	id, transfer_number, item_code, from_section_id, to_section_id, quantity,
	unit, reason, status, requested_by, approved_by, reject_reason,
	transferred_by, requested_at, approved_at, rejected_at, completed_at,
	created_at, updated_at`

// TransferRepository handles transfer persistence
type TransferRepository struct {
	db *database.DB
}

// NewTransferRepository creates a new transfer repository
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a new pending transfer
func (r *TransferRepository) Create(ctx context.Context, transfer *Transfer) error {
	if transfer.ID == "" {
		transfer.ID = uuid.New().String()
	}
	transfer.Status = TransferStatusPending

	query := `
		INSERT INTO transfers (
			id, transfer_number, item_code, from_section_id, to_section_id,
			quantity, unit, reason, status, requested_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING requested_at, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		transfer.ID, transfer.TransferNumber, transfer.ItemCode,
		transfer.FromSectionID, transfer.ToSectionID, transfer.Quantity,
		transfer.Unit, transfer.Reason, transfer.Status, transfer.RequestedBy,
	).Scan(&transfer.RequestedAt, &transfer.CreatedAt, &transfer.UpdatedAt)
	if isUniqueViolation(err) {
		return errors.Conflict("transfer number already in use")
	}
	return err
}

// GetByID gets a transfer by ID
func (r *TransferRepository) GetByID(ctx context.Context, id string) (*Transfer, error) {
	var transfer Transfer
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1`
	if err := r.db.GetContext(ctx, &transfer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("transfer")
		}
		return nil, err
	}
	return &transfer, nil
}

// GetForUpdate reads a transfer under a row lock so a state transition
// cannot race another transition of the same transfer.
func (r *TransferRepository) GetForUpdate(ctx context.Context, q database.Queryer, id string) (*Transfer, error) {
	var transfer Transfer
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q, &transfer, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("transfer")
		}
		return nil, err
	}
	return &transfer, nil
}

// MarkApproved moves a pending transfer to approved. The WHERE guard keeps
// the transition monotonic even if the lock was lost between read and
// write.
func (r *TransferRepository) MarkApproved(ctx context.Context, q database.Queryer, id, approvedBy string) error {
	query := `
		UPDATE transfers SET
			status = $2, approved_by = $3, approved_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	return r.guardedTransition(ctx, q, query, id, TransferStatusApproved, approvedBy, TransferStatusPending)
}

// MarkRejected moves a pending transfer to rejected with a reason.
func (r *TransferRepository) MarkRejected(ctx context.Context, q database.Queryer, id, rejectedBy, reason string) error {
	query := `
		UPDATE transfers SET
			status = $2, approved_by = $3, reject_reason = $5, rejected_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	result, err := q.ExecContext(ctx, query, id, TransferStatusRejected, rejectedBy, TransferStatusPending, reason)
	if err != nil {
		return err
	}
	return requireTransition(result)
}

// MarkCompleted moves an approved transfer to completed. Runs on the same
// transaction as the two ledger legs.
func (r *TransferRepository) MarkCompleted(ctx context.Context, q database.Queryer, id, transferredBy string) error {
	query := `
		UPDATE transfers SET
			status = $2, transferred_by = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`
	return r.guardedTransition(ctx, q, query, id, TransferStatusCompleted, transferredBy, TransferStatusApproved)
}

func (r *TransferRepository) guardedTransition(ctx context.Context, q database.Queryer, query, id, toStatus, actorID, fromStatus string) error {
	result, err := q.ExecContext(ctx, query, id, toStatus, actorID, fromStatus)
	if err != nil {
		return err
	}
	return requireTransition(result)
}

// requireTransition turns a zero-row guarded update into a conflict. The
// caller already verified the status under lock, so zero rows means the
// row changed underneath us.
func requireTransition(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return errors.ConcurrencyConflict("transfer state changed concurrently")
	}
	return nil
}

// List lists transfers with optional status and section filters, newest
// first. The section filter matches either end of the transfer.
func (r *TransferRepository) List(ctx context.Context, status, sectionID string, page, perPage int) ([]*Transfer, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if sectionID != "" {
		args = append(args, sectionID)
		where += fmt.Sprintf(` AND (from_section_id = $%d OR to_section_id = $%d)`, len(args), len(args))
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transfers`+where, args...); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transferColumns + ` FROM transfers` + where +
		` ORDER BY requested_at DESC, id DESC` + limitOffsetClause(len(args))
	args = append(args, perPage, (page-1)*perPage)

	var transfers []*Transfer
	if err := r.db.SelectContext(ctx, &transfers, query, args...); err != nil {
		return nil, 0, err
	}

	return transfers, total, nil
}

// NextTransferNumber produces a human-readable sequential number of the
// form TRF-YYYYMMDD-NNNN, scoped to the current day.
func (r *TransferRepository) NextTransferNumber(ctx context.Context, now time.Time) (string, error) {
	day := now.UTC().Format("20060102")

	var count int
	query := `SELECT COUNT(*) FROM transfers WHERE transfer_number LIKE $1`
	if err := r.db.GetContext(ctx, &count, query, "TRF-"+day+"-%"); err != nil {
		return "", err
	}

	return fmt.Sprintf("TRF-%s-%04d", day, count+1), nil
}
