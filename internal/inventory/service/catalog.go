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

// CreateSectionRequest creates a stock-holding location.
type CreateSectionRequest struct {
	Code string `json:"code" validate:"required,min=2,max=50"`
	Name string `json:"name" validate:"required,min=2,max=255"`
}

// CreateItemRequest registers an item in a section. Initial quantity is
// recorded through the ledger like any other mutation.
type CreateItemRequest struct {
	SectionID       string              `json:"section_id" validate:"required,uuid"`
	ItemCode        string              `json:"item_code" validate:"required,min=2,max=100"`
	Name            string              `json:"name" validate:"required,min=2,max=255"`
	Category        string              `json:"category" validate:"required,min=2,max=100"`
	Unit            string              `json:"unit" validate:"required,min=1,max=50"`
	InitialQuantity decimal.Decimal     `json:"initial_quantity"`
	UnitCost        decimal.NullDecimal `json:"unit_cost"`
	MinThreshold    decimal.NullDecimal `json:"min_threshold"`
	MaxThreshold    decimal.NullDecimal `json:"max_threshold"`
	ReorderLevel    decimal.Decimal     `json:"reorder_level"`
	CriticalLevel   decimal.Decimal     `json:"critical_level"`
	ManufactureDate *time.Time          `json:"manufacture_date"`
	ExpiryDate      *time.Time          `json:"expiry_date"`
}

// UpdateItemRequest changes descriptive attributes and thresholds.
// Quantity is deliberately absent; it only moves through the ledger.
type UpdateItemRequest struct {
	Name            string              `json:"name" validate:"required,min=2,max=255"`
	Category        string              `json:"category" validate:"required,min=2,max=100"`
	Unit            string              `json:"unit" validate:"required,min=1,max=50"`
	UnitCost        decimal.NullDecimal `json:"unit_cost"`
	MinThreshold    decimal.NullDecimal `json:"min_threshold"`
	MaxThreshold    decimal.NullDecimal `json:"max_threshold"`
	ReorderLevel    decimal.Decimal     `json:"reorder_level"`
	CriticalLevel   decimal.Decimal     `json:"critical_level"`
	ManufactureDate *time.Time          `json:"manufacture_date"`
	Active          *bool               `json:"active"`
}

// AlertView is an alerting item enriched with the display-level stock
// classification. out_of_stock is a presentation refinement of critical
// for exhausted items; the stored classification stays critical.
type AlertView struct {
	*repository.InventoryItem
	DisplayStockAlert string `json:"display_stock_alert"`
	DaysToExpiry      *int   `json:"days_to_expiry,omitempty"`
}

// Section operations

// CreateSection creates a new section
func (s *InventoryService) CreateSection(ctx context.Context, req *CreateSectionRequest) (*repository.Section, error) {
	section := &repository.Section{
		Code: req.Code,
		Name: req.Name,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, s.fail(err)
	}
	return section, nil
}

// GetSection gets a section by ID
func (s *InventoryService) GetSection(ctx context.Context, id string) (*repository.Section, error) {
	section, err := s.sections.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	return section, nil
}

// ListSections returns all sections
func (s *InventoryService) ListSections(ctx context.Context) ([]*repository.Section, error) {
	sections, err := s.sections.List(ctx)
	if err != nil {
		return nil, s.fail(err)
	}
	return sections, nil
}

// Item operations

// CreateItem registers a new item. A positive initial quantity produces
// the first ledger entry in the same transaction.
func (s *InventoryService) CreateItem(ctx context.Context, req *CreateItemRequest) (*repository.InventoryItem, error) {
	if err := validateThresholds(req.CriticalLevel, req.ReorderLevel, req.MinThreshold, req.MaxThreshold); err != nil {
		return nil, s.fail(err)
	}
	if req.InitialQuantity.IsNegative() {
		return nil, s.fail(apperrors.ValidationMsg("initial_quantity must not be negative"))
	}
	if err := validateDates(req.ManufactureDate, req.ExpiryDate); err != nil {
		return nil, s.fail(err)
	}

	if _, err := s.sections.GetByID(ctx, req.SectionID); err != nil {
		return nil, s.fail(err)
	}

	act := actorFrom(ctx)

	item := &repository.InventoryItem{
		SectionID:       req.SectionID,
		ItemCode:        req.ItemCode,
		Name:            req.Name,
		Category:        req.Category,
		Unit:            req.Unit,
		Quantity:        req.InitialQuantity,
		UnitCost:        req.UnitCost,
		MinThreshold:    req.MinThreshold,
		MaxThreshold:    req.MaxThreshold,
		ReorderLevel:    req.ReorderLevel,
		CriticalLevel:   req.CriticalLevel,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
		Status:          repository.ItemStatusActive,
	}

	eval := item.Evaluate(time.Now())
	item.StockAlert = string(eval.Stock)
	item.ExpiryAlert = string(eval.Expiry)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.items.Create(ctx, tx, item); err != nil {
			return err
		}

		if req.InitialQuantity.IsPositive() {
			entry := &repository.AuditEntry{
				ItemID:          item.ID,
				Delta:           req.InitialQuantity,
				BeforeQty:       decimal.Zero,
				AfterQty:        req.InitialQuantity,
				Reason:          repository.ReasonInitialStock,
				PerformedBy:     act.ID,
				PerformedByName: act.Name,
			}
			return s.audit.Insert(ctx, tx, entry)
		}

		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	if req.InitialQuantity.IsPositive() {
		s.publisher.PublishStockAdjusted(ctx, item, req.InitialQuantity, repository.ReasonInitialStock, act.ID)
		if s.metrics != nil {
			s.metrics.StockMutations.WithLabelValues(repository.ReasonInitialStock).Inc()
		}
	}

	s.logger.Info().
		Str("item_id", item.ID).
		Str("section_id", item.SectionID).
		Str("item_code", item.ItemCode).
		Msg("item created")

	return item, nil
}

// GetItem gets an item by ID
func (s *InventoryService) GetItem(ctx context.Context, id string) (*repository.InventoryItem, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(err)
	}
	return item, nil
}

// ListItems lists items filtered by section and category
func (s *InventoryService) ListItems(ctx context.Context, sectionID, category string, page, perPage int) ([]*repository.InventoryItem, int64, error) {
	items, total, err := s.items.List(ctx, sectionID, category, page, perPage)
	if err != nil {
		return nil, 0, s.fail(err)
	}
	return items, total, nil
}

// UpdateItem changes descriptive attributes and thresholds under a row
// lock; a threshold change reclassifies the item immediately.
func (s *InventoryService) UpdateItem(ctx context.Context, id string, req *UpdateItemRequest) (*repository.InventoryItem, error) {
	if err := validateThresholds(req.CriticalLevel, req.ReorderLevel, req.MinThreshold, req.MaxThreshold); err != nil {
		return nil, s.fail(err)
	}

	var updated *repository.InventoryItem
	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		item, err := s.items.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if item.Status == repository.ItemStatusDisposed {
			return apperrors.Conflict("item is disposed")
		}
		if err := validateDates(req.ManufactureDate, item.ExpiryDate); err != nil {
			return err
		}

		item.Name = req.Name
		item.Category = req.Category
		item.Unit = req.Unit
		item.UnitCost = req.UnitCost
		item.MinThreshold = req.MinThreshold
		item.MaxThreshold = req.MaxThreshold
		item.ReorderLevel = req.ReorderLevel
		item.CriticalLevel = req.CriticalLevel
		item.ManufactureDate = req.ManufactureDate

		if req.Active != nil && item.Status != repository.ItemStatusExpired {
			if *req.Active {
				item.Status = repository.ItemStatusActive
			} else {
				item.Status = repository.ItemStatusInactive
			}
		}

		prevEval := alert.Evaluation{
			Stock:  alert.StockLevel(item.StockAlert),
			Expiry: alert.ExpiryStatus(item.ExpiryAlert),
		}
		eval := item.Evaluate(time.Now())
		item.StockAlert = string(eval.Stock)
		item.ExpiryAlert = string(eval.Expiry)

		if item.AlertAcked && alert.ShouldResetAcknowledgement(prevEval, eval) {
			item.AlertAcked = false
			item.AckedBy = nil
			item.AckedAt = nil
		}

		if err := s.items.UpdateDetails(ctx, tx, item); err != nil {
			return err
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, s.fail(err)
	}

	return updated, nil
}

// ListAlerts returns all items whose classification warrants attention.
func (s *InventoryService) ListAlerts(ctx context.Context) ([]*AlertView, error) {
	items, err := s.items.ListAlerting(ctx)
	if err != nil {
		return nil, s.fail(err)
	}

	today := time.Now()
	views := make([]*AlertView, len(items))
	for i, item := range items {
		views[i] = newAlertView(item, today)
	}

	return views, nil
}

func newAlertView(item *repository.InventoryItem, today time.Time) *AlertView {
	view := &AlertView{
		InventoryItem:     item,
		DisplayStockAlert: item.StockAlert,
	}

	if item.StockAlert == string(alert.StockCritical) && !item.Quantity.IsPositive() {
		view.DisplayStockAlert = "out_of_stock"
	}
	if item.ExpiryDate != nil {
		days := alert.DaysToExpiry(*item.ExpiryDate, today)
		view.DaysToExpiry = &days
	}

	return view
}

func validateThresholds(criticalLevel, reorderLevel decimal.Decimal, minThreshold, maxThreshold decimal.NullDecimal) error {
	if criticalLevel.IsNegative() || reorderLevel.IsNegative() {
		return apperrors.ValidationMsg("threshold levels must not be negative")
	}
	if reorderLevel.IsPositive() && criticalLevel.GreaterThan(reorderLevel) {
		return apperrors.ValidationMsg("critical_level must not exceed reorder_level")
	}
	if minThreshold.Valid && maxThreshold.Valid && !minThreshold.Decimal.LessThan(maxThreshold.Decimal) {
		return apperrors.ValidationMsg("min_threshold must be less than max_threshold")
	}
	return nil
}

func validateDates(manufactureDate, expiryDate *time.Time) error {
	if manufactureDate != nil && expiryDate != nil && !expiryDate.After(*manufactureDate) {
		return apperrors.InvalidDateRange("expiry_date must be after manufacture_date")
	}
	return nil
}
