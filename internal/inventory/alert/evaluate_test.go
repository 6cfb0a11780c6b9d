package alert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluateStock(t *testing.T) {
	critical := d("10")
	reorder := d("50")

	tests := []struct {
		name     string
		quantity string
		want     StockLevel
	}{
		{"zero quantity is critical", "0", StockCritical},
		{"negative quantity is critical", "-1", StockCritical},
		{"at critical level", "10", StockCritical},
		{"just below critical level", "9.999", StockCritical},
		{"just above critical level", "10.001", StockLow},
		{"at reorder level", "50", StockLow},
		{"just above reorder level", "50.001", StockNormal},
		{"well stocked", "200", StockNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(d(tt.quantity), critical, reorder, nil, time.Now())
			assert.Equal(t, tt.want, got.Stock)
			assert.Equal(t, ExpiryNone, got.Expiry)
		})
	}
}

func TestEvaluateStockZeroThresholds(t *testing.T) {
	// With both thresholds at zero only exhaustion alerts.
	got := Evaluate(d("1"), decimal.Zero, decimal.Zero, nil, time.Now())
	assert.Equal(t, StockNormal, got.Stock)

	got = Evaluate(decimal.Zero, decimal.Zero, decimal.Zero, nil, time.Now())
	assert.Equal(t, StockCritical, got.Stock)
}

func TestEvaluateExpiry(t *testing.T) {
	today := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   ExpiryStatus
	}{
		{"yesterday is expired", today.AddDate(0, 0, -1), ExpiryExpired},
		{"today is expiring critical", today, ExpiryCritical},
		{"seven days out is critical", today.AddDate(0, 0, 7), ExpiryCritical},
		{"eight days out is warning", today.AddDate(0, 0, 8), ExpiryWarning},
		{"thirty days out is warning", today.AddDate(0, 0, 30), ExpiryWarning},
		{"thirty one days out is ok", today.AddDate(0, 0, 31), ExpiryOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expiry := tt.expiry
			got := Evaluate(d("100"), decimal.Zero, decimal.Zero, &expiry, today)
			assert.Equal(t, tt.want, got.Expiry)
		})
	}
}

func TestEvaluateExpiryIgnoresTimeOfDay(t *testing.T) {
	// An expiry date at midnight is still "today" even late in the
	// evening, so it must not flip to expired.
	expiry := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	today := time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC)

	got := Evaluate(d("100"), decimal.Zero, decimal.Zero, &expiry, today)
	assert.Equal(t, ExpiryCritical, got.Expiry)
	assert.Equal(t, 0, DaysToExpiry(expiry, today))
}

func TestDimensionsAreOrthogonal(t *testing.T) {
	expiry := time.Now().AddDate(0, 0, 3)

	got := Evaluate(d("5"), d("10"), d("50"), &expiry, time.Now())
	assert.Equal(t, StockCritical, got.Stock)
	assert.Equal(t, ExpiryCritical, got.Expiry)
	assert.True(t, got.IsAlerting())
}

func TestIsAlerting(t *testing.T) {
	assert.False(t, Evaluation{Stock: StockNormal, Expiry: ExpiryNone}.IsAlerting())
	assert.False(t, Evaluation{Stock: StockNormal, Expiry: ExpiryOK}.IsAlerting())
	assert.True(t, Evaluation{Stock: StockLow, Expiry: ExpiryNone}.IsAlerting())
	assert.True(t, Evaluation{Stock: StockNormal, Expiry: ExpiryWarning}.IsAlerting())
	assert.True(t, Evaluation{Stock: StockNormal, Expiry: ExpiryExpired}.IsAlerting())
}

func TestShouldResetAcknowledgement(t *testing.T) {
	low := Evaluation{Stock: StockLow, Expiry: ExpiryNone}
	critical := Evaluation{Stock: StockCritical, Expiry: ExpiryNone}
	normal := Evaluation{Stock: StockNormal, Expiry: ExpiryNone}

	assert.False(t, ShouldResetAcknowledgement(low, low), "unchanged classification keeps the acknowledgement")
	assert.True(t, ShouldResetAcknowledgement(low, critical), "degrading clears the acknowledgement")
	assert.True(t, ShouldResetAcknowledgement(critical, low), "improving but still alerting clears it too")
	assert.False(t, ShouldResetAcknowledgement(low, normal), "returning to normal needs no fresh sign-off")
}
