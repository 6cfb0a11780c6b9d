// Package alert classifies an item's stock urgency and expiry urgency from
// raw facts. The cached alert columns on inventory_items are always the
// output of Evaluate, recomputed inside the same transaction as the
// mutation that changed the inputs; no other code path decides alert
// status.
package alert

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevel classifies stock urgency. An exhausted item (quantity zero)
// is critical; presentation layers may refine that to "out of stock" for
// display, but the engine never stores a separate state for it.
type StockLevel string

const (
	StockNormal   StockLevel = "normal"
	StockLow      StockLevel = "low_stock"
	StockCritical StockLevel = "critical"
)

// ExpiryStatus classifies expiry urgency. It is orthogonal to StockLevel:
// both facts are kept and surfaced independently so consumers never lose
// information by collapsing them.
type ExpiryStatus string

const (
	ExpiryNone     ExpiryStatus = "none"
	ExpiryOK       ExpiryStatus = "ok"
	ExpiryWarning  ExpiryStatus = "expiring_warning"
	ExpiryCritical ExpiryStatus = "expiring_critical"
	ExpiryExpired  ExpiryStatus = "expired"
)

// Window boundaries for the expiry dimension, in days.
const (
	expiryCriticalDays = 7
	expiryWarningDays  = 30
)

// Evaluation is the result of classifying one item.
type Evaluation struct {
	Stock  StockLevel
	Expiry ExpiryStatus
}

// IsAlerting reports whether either dimension warrants attention.
func (e Evaluation) IsAlerting() bool {
	if e.Stock != StockNormal {
		return true
	}
	return e.Expiry == ExpiryWarning || e.Expiry == ExpiryCritical || e.Expiry == ExpiryExpired
}

// Evaluate classifies stock and expiry urgency. First match wins on the
// stock dimension:
//
//	quantity <= 0            -> critical
//	quantity <= critical     -> critical
//	quantity <= reorder      -> low_stock
//	otherwise                -> normal
//
// The expiry dimension only looks at the calendar distance between today
// and the expiry date.
func Evaluate(quantity, criticalLevel, reorderLevel decimal.Decimal, expiryDate *time.Time, today time.Time) Evaluation {
	return Evaluation{
		Stock:  evaluateStock(quantity, criticalLevel, reorderLevel),
		Expiry: evaluateExpiry(expiryDate, today),
	}
}

func evaluateStock(quantity, criticalLevel, reorderLevel decimal.Decimal) StockLevel {
	if !quantity.IsPositive() {
		return StockCritical
	}
	if quantity.LessThanOrEqual(criticalLevel) {
		return StockCritical
	}
	if quantity.LessThanOrEqual(reorderLevel) {
		return StockLow
	}
	return StockNormal
}

func evaluateExpiry(expiryDate *time.Time, today time.Time) ExpiryStatus {
	if expiryDate == nil {
		return ExpiryNone
	}

	days := DaysToExpiry(*expiryDate, today)
	switch {
	case days < 0:
		return ExpiryExpired
	case days <= expiryCriticalDays:
		return ExpiryCritical
	case days <= expiryWarningDays:
		return ExpiryWarning
	default:
		return ExpiryOK
	}
}

// DaysToExpiry returns the whole calendar days from today until the expiry
// date. Negative means the date has passed. Both arguments are truncated
// to their date part so time-of-day never shifts the classification.
func DaysToExpiry(expiryDate, today time.Time) int {
	e := truncateToDate(expiryDate)
	t := truncateToDate(today)
	return int(e.Sub(t).Hours() / 24)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ShouldResetAcknowledgement decides whether a prior acknowledgement is
// stale. Any change in classification that still leaves the item alerting
// clears the acknowledgement, so an old sign-off can never mask a newly
// degraded state.
func ShouldResetAcknowledgement(prev, next Evaluation) bool {
	if prev == next {
		return false
	}
	return next.IsAlerting()
}
