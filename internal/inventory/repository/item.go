package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/alert"
	"github.com/foodtrack/foodtrack-backend/pkg/database"
	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Item lifecycle states. Items are never hard-deleted; they only move
// through soft states.
const (
	ItemStatusActive   = "active"
	ItemStatusInactive = "inactive"
	ItemStatusExpired  = "expired"
	ItemStatusDisposed = "disposed"
)

// InventoryItem is the canonical record for one item in one section.
// (section_id, item_code) is unique. Quantity is only ever changed through
// delta-based ledger mutations; the alert columns are caches recomputed by
// the alert evaluator inside the mutating transaction.
type InventoryItem struct {
	ID              string              `db:"id" json:"id"`
	SectionID       string              `db:"section_id" json:"section_id"`
	ItemCode        string              `db:"item_code" json:"item_code"`
	Name            string              `db:"name" json:"name"`
	Category        string              `db:"category" json:"category"`
	Unit            string              `db:"unit" json:"unit"`
	Quantity        decimal.Decimal     `db:"quantity" json:"quantity"`
	UnitCost        decimal.NullDecimal `db:"unit_cost" json:"unit_cost,omitempty"`
	MinThreshold    decimal.NullDecimal `db:"min_threshold" json:"min_threshold,omitempty"`
	MaxThreshold    decimal.NullDecimal `db:"max_threshold" json:"max_threshold,omitempty"`
	ReorderLevel    decimal.Decimal     `db:"reorder_level" json:"reorder_level"`
	CriticalLevel   decimal.Decimal     `db:"critical_level" json:"critical_level"`
	ManufactureDate *time.Time          `db:"manufacture_date" json:"manufacture_date,omitempty"`
	ExpiryDate      *time.Time          `db:"expiry_date" json:"expiry_date,omitempty"`
	Status          string              `db:"status" json:"status"`
	StockAlert      string              `db:"stock_alert" json:"stock_alert"`
	ExpiryAlert     string              `db:"expiry_alert" json:"expiry_alert"`
	AlertAcked      bool                `db:"alert_acknowledged" json:"alert_acknowledged"`
	AckedBy         *string             `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	AckedAt         *time.Time          `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// EffectiveReorderLevel returns the threshold that separates low_stock
// from normal. reorder_level wins; min_threshold is the fallback for
// records migrated from systems that only carried min/max.
func (i *InventoryItem) EffectiveReorderLevel() decimal.Decimal {
	if i.ReorderLevel.IsPositive() {
		return i.ReorderLevel
	}
	if i.MinThreshold.Valid {
		return i.MinThreshold.Decimal
	}
	return i.ReorderLevel
}

// Evaluate classifies the item with the alert evaluator as of today.
func (i *InventoryItem) Evaluate(today time.Time) alert.Evaluation {
	return alert.Evaluate(i.Quantity, i.CriticalLevel, i.EffectiveReorderLevel(), i.ExpiryDate, today)
}

const itemColumns = `
	id, section_id, item_code, name, category, unit, quantity, unit_cost,
	min_threshold, max_threshold, reorder_level, critical_level,
	manufacture_date, expiry_date, status, stock_alert, expiry_alert,
	alert_acknowledged, acknowledged_by, acknowledged_at, created_at, updated_at`

// ItemRepository handles inventory item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Create inserts a new item. Runs on the given Queryer so catalog creation
// can share a transaction with its initial-stock audit entry.
func (r *ItemRepository) Create(ctx context.Context, q database.Queryer, item *InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Status == "" {
		item.Status = ItemStatusActive
	}

	query := `
		INSERT INTO inventory_items (
			id, section_id, item_code, name, category, unit, quantity, unit_cost,
			min_threshold, max_threshold, reorder_level, critical_level,
			manufacture_date, expiry_date, status, stock_alert, expiry_alert,
			alert_acknowledged
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`

	err := q.QueryRowxContext(ctx, query,
		item.ID, item.SectionID, item.ItemCode, item.Name, item.Category, item.Unit,
		item.Quantity, item.UnitCost, item.MinThreshold, item.MaxThreshold,
		item.ReorderLevel, item.CriticalLevel, item.ManufactureDate, item.ExpiryDate,
		item.Status, item.StockAlert, item.ExpiryAlert, item.AlertAcked,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if isUniqueViolation(err) {
		return errors.Conflict("item already exists in section")
	}
	return err
}

// GetByID gets an item by ID
func (r *ItemRepository) GetByID(ctx context.Context, id string) (*InventoryItem, error) {
	var item InventoryItem
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1`
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// GetBySectionCode resolves an item by its (section, item_code) identity.
func (r *ItemRepository) GetBySectionCode(ctx context.Context, q database.Queryer, sectionID, itemCode string) (*InventoryItem, error) {
	var item InventoryItem
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE section_id = $1 AND item_code = $2`
	if err := sqlx.GetContext(ctx, q, &item, query, sectionID, itemCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// GetForUpdate reads an item under a row-level lock. Quantity precondition
// checks must go through this so two concurrent operations cannot both
// pass on a stale read.
func (r *ItemRepository) GetForUpdate(ctx context.Context, q database.Queryer, id string) (*InventoryItem, error) {
	var item InventoryItem
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q, &item, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// GetBySectionCodeForUpdate reads an item by identity under a row lock.
func (r *ItemRepository) GetBySectionCodeForUpdate(ctx context.Context, q database.Queryer, sectionID, itemCode string) (*InventoryItem, error) {
	var item InventoryItem
	query := `SELECT ` + itemColumns + ` FROM inventory_items WHERE section_id = $1 AND item_code = $2 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q, &item, query, sectionID, itemCode); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("item")
		}
		return nil, err
	}
	return &item, nil
}

// EnsureDestination creates the destination row for a transfer if it does
// not exist yet: same item_code, descriptive attributes copied from the
// source, quantity zero. ON CONFLICT DO NOTHING makes concurrent
// completions into the same empty section converge on a single row; the
// caller re-reads the row under lock afterwards.
func (r *ItemRepository) EnsureDestination(ctx context.Context, q database.Queryer, src *InventoryItem, toSectionID string) error {
	query := `
		INSERT INTO inventory_items (
			id, section_id, item_code, name, category, unit, quantity, unit_cost,
			min_threshold, max_threshold, reorder_level, critical_level,
			manufacture_date, expiry_date, status, stock_alert, expiry_alert,
			alert_acknowledged
		) VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, FALSE)
		ON CONFLICT (section_id, item_code) DO NOTHING
	`

	eval := alert.Evaluate(decimal.Zero, src.CriticalLevel, src.EffectiveReorderLevel(), src.ExpiryDate, time.Now())

	_, err := q.ExecContext(ctx, query,
		uuid.New().String(), toSectionID, src.ItemCode, src.Name, src.Category, src.Unit,
		src.UnitCost, src.MinThreshold, src.MaxThreshold, src.ReorderLevel, src.CriticalLevel,
		src.ManufactureDate, src.ExpiryDate, ItemStatusActive, string(eval.Stock), string(eval.Expiry),
	)
	return err
}

// SaveStockState writes the mutable stock state of an item: quantity,
// expiry date, lifecycle status, alert caches and acknowledgement. Always
// called on the transaction that holds the row lock.
func (r *ItemRepository) SaveStockState(ctx context.Context, q database.Queryer, item *InventoryItem) error {
	query := `
		UPDATE inventory_items SET
			quantity = $2, expiry_date = $3, status = $4, stock_alert = $5,
			expiry_alert = $6, alert_acknowledged = $7, acknowledged_by = $8,
			acknowledged_at = $9, updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.ExecContext(ctx, query,
		item.ID, item.Quantity, item.ExpiryDate, item.Status, item.StockAlert,
		item.ExpiryAlert, item.AlertAcked, item.AckedBy, item.AckedAt,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// UpdateDetails writes the descriptive attributes and thresholds. Alert
// caches are written too because a threshold change can reclassify the
// item; the caller recomputes them first.
func (r *ItemRepository) UpdateDetails(ctx context.Context, q database.Queryer, item *InventoryItem) error {
	query := `
		UPDATE inventory_items SET
			name = $2, category = $3, unit = $4, unit_cost = $5,
			min_threshold = $6, max_threshold = $7, reorder_level = $8,
			critical_level = $9, manufacture_date = $10, status = $11,
			stock_alert = $12, expiry_alert = $13, alert_acknowledged = $14,
			acknowledged_by = $15, acknowledged_at = $16, updated_at = NOW()
		WHERE id = $1
	`

	result, err := q.ExecContext(ctx, query,
		item.ID, item.Name, item.Category, item.Unit, item.UnitCost,
		item.MinThreshold, item.MaxThreshold, item.ReorderLevel, item.CriticalLevel,
		item.ManufactureDate, item.Status, item.StockAlert, item.ExpiryAlert,
		item.AlertAcked, item.AckedBy, item.AckedAt,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("item")
	}

	return nil
}

// List lists items with pagination, optionally filtered by section and
// category.
func (r *ItemRepository) List(ctx context.Context, sectionID, category string, page, perPage int) ([]*InventoryItem, int64, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if sectionID != "" {
		args = append(args, sectionID)
		where += ` AND section_id = $1`
	}
	if category != "" {
		args = append(args, category)
		if sectionID != "" {
			where += ` AND category = $2`
		} else {
			where += ` AND category = $1`
		}
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM inventory_items`+where, args...); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := `SELECT ` + itemColumns + ` FROM inventory_items` + where +
		` ORDER BY item_code` + limitOffsetClause(len(args))
	args = append(args, perPage, offset)

	var items []*InventoryItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// ListAlerting lists items whose cached classification warrants attention.
func (r *ItemRepository) ListAlerting(ctx context.Context) ([]*InventoryItem, error) {
	var items []*InventoryItem
	query := `
		SELECT ` + itemColumns + ` FROM inventory_items
		WHERE status <> 'disposed'
		  AND (stock_alert <> 'normal' OR expiry_alert IN ('expiring_warning', 'expiring_critical', 'expired'))
		ORDER BY section_id, item_code
	`
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, err
	}
	return items, nil
}

// ListExpiredActive returns ids of items whose expiry date has passed but
// whose status has not caught up yet. Consumed by the expiry scanner.
func (r *ItemRepository) ListExpiredActive(ctx context.Context, today time.Time) ([]string, error) {
	var ids []string
	query := `
		SELECT id FROM inventory_items
		WHERE expiry_date IS NOT NULL AND expiry_date < $1
		  AND status IN ('active', 'inactive')
		ORDER BY expiry_date
	`
	if err := r.db.SelectContext(ctx, &ids, query, today); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListWithExpiry returns ids of non-disposed items that carry an expiry
// date, for periodic re-evaluation of the expiry alert cache.
func (r *ItemRepository) ListWithExpiry(ctx context.Context) ([]string, error) {
	var ids []string
	query := `
		SELECT id FROM inventory_items
		WHERE expiry_date IS NOT NULL AND status <> 'disposed'
		ORDER BY expiry_date
	`
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}
