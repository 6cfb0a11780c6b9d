package repository

import (
	"context"
	"time"

	"github.com/foodtrack/foodtrack-backend/pkg/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Mutation reasons recorded on audit entries. Free-form reasons are
// allowed for adjustments; these are the ones the engine writes itself.
const (
	ReasonInitialStock   = "initial_stock"
	ReasonManualSet      = "manual_set"
	ReasonTransferOut    = "transfer_out"
	ReasonTransferIn     = "transfer_in"
	ReasonMarkedExpired  = "marked_expired"
	ReasonExpiryExtended = "expiry_extended"
	ReasonDisposal       = "disposal"
)

// AuditEntry is one row of the append-only stock ledger. Entries are never
// updated or deleted; replaying deltas in order reconstructs any historical
// quantity.
type AuditEntry struct {
	ID              string          `db:"id" json:"id"`
	ItemID          string          `db:"item_id" json:"item_id"`
	Delta           decimal.Decimal `db:"delta" json:"delta"`
	BeforeQty       decimal.Decimal `db:"before_quantity" json:"before_quantity"`
	AfterQty        decimal.Decimal `db:"after_quantity" json:"after_quantity"`
	Reason          string          `db:"reason" json:"reason"`
	PerformedBy     string          `db:"performed_by" json:"performed_by"`
	PerformedByName string          `db:"performed_by_name" json:"performed_by_name"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// AuditRepository handles the append-only stock audit trail
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends one entry. Always runs on the transaction of the mutation
// it records, so the ledger and the cached quantity commit or roll back
// together.
func (r *AuditRepository) Insert(ctx context.Context, q database.Queryer, entry *AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_audit (
			id, item_id, delta, before_quantity, after_quantity, reason,
			performed_by, performed_by_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return sqlx.GetContext(ctx, q, &entry.CreatedAt, query,
		entry.ID, entry.ItemID, entry.Delta, entry.BeforeQty, entry.AfterQty,
		entry.Reason, entry.PerformedBy, entry.PerformedByName,
	)
}

// ListByItem returns the audit trail for one item, newest first.
func (r *AuditRepository) ListByItem(ctx context.Context, itemID string, page, perPage int) ([]*AuditEntry, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM stock_audit WHERE item_id = $1`, itemID); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, item_id, delta, before_quantity, after_quantity, reason,
		       performed_by, performed_by_name, created_at
		FROM stock_audit
		WHERE item_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	var entries []*AuditEntry
	offset := (page - 1) * perPage
	if err := r.db.SelectContext(ctx, &entries, query, itemID, perPage, offset); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
