package service

import (
	"testing"

	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/foodtrack/foodtrack-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nullDec(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestValidateThresholds(t *testing.T) {
	cases := []struct {
		name     string
		critical int64
		reorder  int64
		min      decimal.NullDecimal
		max      decimal.NullDecimal
		wantErr  bool
	}{
		{name: "ordered levels pass", critical: 10, reorder: 50, min: nullDec(20), max: nullDec(200)},
		{name: "unset min and max pass", critical: 10, reorder: 50},
		{name: "only min set passes", critical: 10, reorder: 50, min: nullDec(20)},
		{name: "negative critical fails", critical: -1, reorder: 50, wantErr: true},
		{name: "critical above reorder fails", critical: 60, reorder: 50, wantErr: true},
		{name: "min above max fails", critical: 10, reorder: 50, min: nullDec(50), max: nullDec(10), wantErr: true},
		{name: "min equal to max fails", critical: 10, reorder: 50, min: nullDec(30), max: nullDec(30), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateThresholds(
				decimal.NewFromInt(tc.critical), decimal.NewFromInt(tc.reorder), tc.min, tc.max)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateItemRejectsInvertedThresholds(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	// Validation fails before any query runs.
	_, err := svc.CreateItem(ctx, &CreateItemRequest{
		SectionID:     testSectionID,
		ItemCode:      "OIL-001",
		Name:          "Olive Oil",
		Category:      "oils",
		Unit:          "l",
		MinThreshold:  nullDec(50),
		MaxThreshold:  nullDec(10),
		ReorderLevel:  decimal.NewFromInt(50),
		CriticalLevel: decimal.NewFromInt(10),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	mockDB.ExpectationsWereMet(t)
}
