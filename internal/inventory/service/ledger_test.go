package service

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/foodtrack/foodtrack-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testItemID    = "0b54a9ea-6b2f-4c3d-8e1f-2a3b4c5d6e7f"
	testSectionID = "1c65b0fb-7c30-4d4e-9f20-3b4c5d6e7f80"
)

func TestAdjustStockHappyPath(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "100", reorder: "50", critical: "10",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM inventory_items WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(fixture.rows())
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))
	mockDB.ExpectCommit()

	item, err := svc.AdjustStock(ctx, testItemID, &AdjustStockRequest{
		Delta:  decimal.NewFromInt(-40),
		Reason: "used in dinner service",
	})
	require.NoError(t, err)

	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "normal", item.StockAlert)
	mockDB.ExpectationsWereMet(t)
}

func TestAdjustStockCrossesIntoLowStock(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "60", reorder: "50", critical: "10",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))
	mockDB.ExpectCommit()

	item, err := svc.AdjustStock(ctx, testItemID, &AdjustStockRequest{
		Delta:  decimal.NewFromInt(-15),
		Reason: "spillage during prep",
	})
	require.NoError(t, err)

	assert.Equal(t, "low_stock", item.StockAlert)
	mockDB.ExpectationsWereMet(t)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "30", reorder: "50", critical: "10",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectRollback()

	_, err := svc.AdjustStock(ctx, testItemID, &AdjustStockRequest{
		Delta:  decimal.NewFromInt(-31),
		Reason: "bad count correction",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNegativeStock))
	mockDB.ExpectationsWereMet(t)
}

func TestAdjustStockRejectsZeroDelta(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.ContextWithActor()

	_, err := svc.AdjustStock(ctx, testItemID, &AdjustStockRequest{
		Delta:  decimal.Zero,
		Reason: "nothing happened",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAdjustStockRejectsDisposedItem(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "0", reorder: "50", critical: "10",
		status: repository.ItemStatusDisposed, stockAlert: "critical",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectRollback()

	_, err := svc.AdjustStock(ctx, testItemID, &AdjustStockRequest{
		Delta:  decimal.NewFromInt(10),
		Reason: "attempted restock",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	mockDB.ExpectationsWereMet(t)
}

func TestSetStockComputesDelta(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "100", reorder: "50", critical: "10",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))
	mockDB.ExpectCommit()

	item, err := svc.SetStock(ctx, testItemID, &SetStockRequest{
		Quantity: decimal.NewFromInt(85),
		Reason:   "monthly recount",
	})
	require.NoError(t, err)

	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(85)))
	mockDB.ExpectationsWereMet(t)
}

func TestSetStockSameValueIsNoOp(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "100", reorder: "50", critical: "10",
	}

	// No UPDATE and no audit entry: nothing changed.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectCommit()

	item, err := svc.SetStock(ctx, testItemID, &SetStockRequest{
		Quantity: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	assert.True(t, item.Quantity.Equal(decimal.NewFromInt(100)))
	mockDB.ExpectationsWereMet(t)
}

func TestSetStockRejectsNegativeTarget(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.ContextWithActor()

	_, err := svc.SetStock(ctx, testItemID, &SetStockRequest{
		Quantity: decimal.NewFromInt(-5),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestAcknowledgeAlertRequiresActiveAlert(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "100", reorder: "50", critical: "10",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectRollback()

	_, err := svc.AcknowledgeAlert(ctx, testItemID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))
	mockDB.ExpectationsWereMet(t)
}

func TestAcknowledgeAlert(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: "OIL-001",
		quantity: "5", reorder: "50", critical: "10", stockAlert: "critical",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(fixture.rows())
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	item, err := svc.AcknowledgeAlert(ctx, testItemID)
	require.NoError(t, err)

	assert.True(t, item.AlertAcked)
	require.NotNil(t, item.AckedBy)
	assert.Equal(t, testutil.TestActor.ID, *item.AckedBy)
	mockDB.ExpectationsWereMet(t)
}
