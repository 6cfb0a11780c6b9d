package service

import (
	"context"
	"strings"
	"time"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/alert"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/events"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/pkg/actor"
	"github.com/foodtrack/foodtrack-backend/pkg/database"
	apperrors "github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
	"github.com/foodtrack/foodtrack-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// InventoryService handles the inventory core: catalog, stock ledger,
// transfers, expiry lifecycle. All quantity changes funnel through
// mutateQuantity so the non-negativity check, the alert re-evaluation and
// the audit entry can never diverge.
type InventoryService struct {
	db        *database.DB
	sections  *repository.SectionRepository
	items     *repository.ItemRepository
	audit     *repository.AuditRepository
	transfers *repository.TransferRepository
	publisher *events.InventoryEventPublisher
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

// NewInventoryService creates a new inventory service. publisher and m may
// be nil when messaging or metrics are disabled.
func NewInventoryService(
	db *database.DB,
	sections *repository.SectionRepository,
	items *repository.ItemRepository,
	audit *repository.AuditRepository,
	transfers *repository.TransferRepository,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *InventoryService {
	return &InventoryService{
		db:        db,
		sections:  sections,
		items:     items,
		audit:     audit,
		transfers: transfers,
		publisher: publisher,
		metrics:   m,
		logger:    log,
	}
}

// mutation carries the outcome of one committed quantity change so events
// and metrics can be emitted after the transaction.
type mutation struct {
	item       *repository.InventoryItem
	delta      decimal.Decimal
	reason     string
	prevStock  string
	prevExpiry string
}

func (m *mutation) alertChanged() bool {
	return m.prevStock != m.item.StockAlert || m.prevExpiry != m.item.ExpiryAlert
}

// mutateQuantity applies a delta to a row-locked item: rejects a negative
// result, re-evaluates the alert classification, resets a stale
// acknowledgement, persists the state and appends the audit entry. Runs
// entirely inside the caller's transaction.
func (s *InventoryService) mutateQuantity(ctx context.Context, q database.Queryer, item *repository.InventoryItem, delta decimal.Decimal, reason string, act *actor.Actor) (*mutation, error) {
	newQty := item.Quantity.Add(delta)
	if newQty.IsNegative() {
		return nil, apperrors.NegativeStock(
			"stock of " + item.ItemCode + " cannot go below zero: " +
				item.Quantity.String() + " + (" + delta.String() + ")")
	}

	m := &mutation{
		delta:      delta,
		reason:     reason,
		prevStock:  item.StockAlert,
		prevExpiry: item.ExpiryAlert,
	}
	prevEval := alert.Evaluation{
		Stock:  alert.StockLevel(item.StockAlert),
		Expiry: alert.ExpiryStatus(item.ExpiryAlert),
	}

	before := item.Quantity
	item.Quantity = newQty

	eval := item.Evaluate(time.Now())
	item.StockAlert = string(eval.Stock)
	item.ExpiryAlert = string(eval.Expiry)

	if item.AlertAcked && alert.ShouldResetAcknowledgement(prevEval, eval) {
		item.AlertAcked = false
		item.AckedBy = nil
		item.AckedAt = nil
	}

	if err := s.items.SaveStockState(ctx, q, item); err != nil {
		return nil, err
	}

	entry := &repository.AuditEntry{
		ItemID:          item.ID,
		Delta:           delta,
		BeforeQty:       before,
		AfterQty:        newQty,
		Reason:          reason,
		PerformedBy:     act.ID,
		PerformedByName: act.Name,
	}
	if err := s.audit.Insert(ctx, q, entry); err != nil {
		return nil, err
	}

	m.item = item
	return m, nil
}

// emitMutation publishes events and counts metrics for a committed
// mutation. Never called before the transaction commits.
func (s *InventoryService) emitMutation(ctx context.Context, m *mutation, act *actor.Actor) {
	s.publisher.PublishStockAdjusted(ctx, m.item, m.delta, m.reason, act.ID)
	if m.alertChanged() {
		s.publisher.PublishAlertChanged(ctx, m.item, m.prevStock, m.prevExpiry)
	}

	if s.metrics != nil {
		s.metrics.StockMutations.WithLabelValues(metricReason(m.reason)).Inc()
		if m.alertChanged() {
			s.metrics.AlertTransitions.WithLabelValues(m.item.StockAlert).Inc()
		}
	}
}

// metricReason collapses free-form reasons to a bounded label set.
func metricReason(reason string) string {
	switch reason {
	case repository.ReasonInitialStock, repository.ReasonManualSet,
		repository.ReasonTransferOut, repository.ReasonTransferIn,
		repository.ReasonMarkedExpired, repository.ReasonExpiryExtended:
		return reason
	}
	if strings.HasPrefix(reason, repository.ReasonDisposal) {
		return repository.ReasonDisposal
	}
	return "adjustment"
}

// actorFrom resolves the acting user, falling back to the system actor
// for paths with no forwarded identity.
func actorFrom(ctx context.Context) *actor.Actor {
	if a := actor.FromContext(ctx); a != nil {
		return a
	}
	return actor.SystemActor()
}

// fail counts the error by code and passes it through unchanged.
func (s *InventoryService) fail(err error) error {
	if err == nil {
		return nil
	}
	if s.metrics != nil {
		var appErr *apperrors.AppError
		if apperrors.As(err, &appErr) {
			s.metrics.OperationErrors.WithLabelValues(appErr.Code).Inc()
		}
	}
	return err
}
