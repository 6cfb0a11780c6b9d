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
	testTransferID    = "2d76c1fc-8d41-4e5f-a031-4c5d6e7f8091"
	testToSectionID   = "3e87d20d-9e52-4f60-b142-5d6e7f8091a2"
	testTransferNum   = "TRF-20250315-0007"
	testTransferQty   = "30"
	testTransferItems = "OIL-001"
)

func TestCreateTransferRejectsSameSection(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: testTransferItems,
		quantity: "100", reorder: "50", critical: "10",
	}

	mockDB.ExpectQuery(`FROM inventory_items WHERE id = \$1`).
		WillReturnRows(fixture.rows())

	_, err := svc.CreateTransfer(ctx, &CreateTransferRequest{
		ItemID:      testItemID,
		ToSectionID: testSectionID,
		Quantity:    decimal.NewFromInt(10),
		Reason:      "rebalance stock",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	mockDB.ExpectationsWereMet(t)
}

func TestCreateTransferRejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testutil.ContextWithActor()

	_, err := svc.CreateTransfer(ctx, &CreateTransferRequest{
		ItemID:      testItemID,
		ToSectionID: testToSectionID,
		Quantity:    decimal.Zero,
		Reason:      "rebalance stock",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestCreateTransferRejectsObviouslyInsufficientStock(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	fixture := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: testTransferItems,
		quantity: "20", reorder: "50", critical: "10",
	}

	mockDB.ExpectQuery(`FROM inventory_items WHERE id = \$1`).
		WillReturnRows(fixture.rows())

	_, err := svc.CreateTransfer(ctx, &CreateTransferRequest{
		ItemID:      testItemID,
		ToSectionID: testToSectionID,
		Quantity:    decimal.NewFromInt(50),
		Reason:      "rebalance stock",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	mockDB.ExpectationsWereMet(t)
}

func TestApproveTransferRequiresPendingState(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusCompleted))
	mockDB.ExpectRollback()

	_, err := svc.ApproveTransfer(ctx, testTransferID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransferState))
	mockDB.ExpectationsWereMet(t)
}

func TestRejectTransferRequiresPendingState(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusRejected))
	mockDB.ExpectRollback()

	_, err := svc.RejectTransfer(ctx, testTransferID, &RejectTransferRequest{Reason: "not needed"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransferState))
	mockDB.ExpectationsWereMet(t)
}

func TestApproveTransfer(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusPending))
	mockDB.ExpectExec(`UPDATE transfers SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	transfer, err := svc.ApproveTransfer(ctx, testTransferID)
	require.NoError(t, err)

	assert.Equal(t, repository.TransferStatusApproved, transfer.Status)
	require.NotNil(t, transfer.ApprovedBy)
	assert.Equal(t, testutil.TestActor.ID, *transfer.ApprovedBy)
	mockDB.ExpectationsWereMet(t)
}

func TestCompleteTransferRequiresApprovedState(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusPending))
	mockDB.ExpectRollback()

	_, err := svc.CompleteTransfer(ctx, testTransferID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransferState))
	mockDB.ExpectationsWereMet(t)
}

func TestCompleteTransferRechecksSourceStock(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	source := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: testTransferItems,
		quantity: "20", reorder: "50", critical: "10",
	}
	destination := itemFixture{
		id: "4f98e31e-af63-4071-c253-6e7f8091a2b3", sectionID: testToSectionID,
		itemCode: testTransferItems, quantity: "0", reorder: "50", critical: "10",
	}

	// Approval was given when stock sufficed; by completion time only 20
	// of the 30 remain, so the completion must fail.
	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusApproved))
	mockDB.ExpectQuery(`FROM inventory_items WHERE section_id = \$1 AND item_code = \$2`).
		WillReturnRows(source.rows())
	mockDB.ExpectExec(`INSERT INTO inventory_items`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(lockOrderRows(source, destination, true))
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(lockOrderRows(source, destination, false))
	mockDB.ExpectRollback()

	_, err := svc.CompleteTransfer(ctx, testTransferID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInsufficientStock))
	mockDB.ExpectationsWereMet(t)
}

func TestCompleteTransferMovesStock(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	source := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: testTransferItems,
		quantity: "100", reorder: "50", critical: "10",
	}
	destination := itemFixture{
		id: "4f98e31e-af63-4071-c253-6e7f8091a2b3", sectionID: testToSectionID,
		itemCode: testTransferItems, quantity: "0", reorder: "50", critical: "10",
		stockAlert: "critical",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusApproved))
	mockDB.ExpectQuery(`FROM inventory_items WHERE section_id = \$1 AND item_code = \$2`).
		WillReturnRows(source.rows())
	mockDB.ExpectExec(`INSERT INTO inventory_items`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(lockOrderRows(source, destination, true))
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(lockOrderRows(source, destination, false))

	// Source leg: 100 - 30 = 70.
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))
	// Destination leg: 0 + 30 = 30.
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))

	mockDB.ExpectExec(`UPDATE transfers SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	transfer, err := svc.CompleteTransfer(ctx, testTransferID)
	require.NoError(t, err)

	assert.Equal(t, repository.TransferStatusCompleted, transfer.Status)
	require.NotNil(t, transfer.TransferredBy)
	assert.Equal(t, testutil.TestActor.ID, *transfer.TransferredBy)
	mockDB.ExpectationsWereMet(t)
}

func TestCompleteTransferReopensDisposedDestination(t *testing.T) {
	svc, mockDB := newTestService(t)
	ctx := testutil.ContextWithActor()

	destinationID := "4f98e31e-af63-4071-c253-6e7f8091a2b3"
	source := itemFixture{
		id: testItemID, sectionID: testSectionID, itemCode: testTransferItems,
		quantity: "100", reorder: "50", critical: "10",
	}
	// The destination row was fully disposed earlier; the credit must not
	// leave stock on a disposed row.
	destination := itemFixture{
		id: destinationID, sectionID: testToSectionID,
		itemCode: testTransferItems, quantity: "0", reorder: "50", critical: "10",
		status: repository.ItemStatusDisposed, stockAlert: "critical",
	}

	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM transfers WHERE id = \$1 FOR UPDATE`).
		WillReturnRows(transferRows(testTransferID, testTransferNum, testTransferItems,
			testSectionID, testToSectionID, testTransferQty, repository.TransferStatusApproved))
	mockDB.ExpectQuery(`FROM inventory_items WHERE section_id = \$1 AND item_code = \$2`).
		WillReturnRows(source.rows())
	mockDB.ExpectExec(`INSERT INTO inventory_items`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(lockOrderRows(source, destination, true))
	mockDB.ExpectQuery(`FOR UPDATE`).WillReturnRows(lockOrderRows(source, destination, false))

	// Source leg.
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))
	// Destination leg: the persisted status must be active again.
	mockDB.ExpectExec(`UPDATE inventory_items SET`).
		WithArgs(destinationID, sqlmock.AnyArg(), sqlmock.AnyArg(), repository.ItemStatusActive,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery(`INSERT INTO stock_audit`).
		WillReturnRows(testutil.MockRows("created_at").AddRow(nowRow()))

	mockDB.ExpectExec(`UPDATE transfers SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	transfer, err := svc.CompleteTransfer(ctx, testTransferID)
	require.NoError(t, err)
	assert.Equal(t, repository.TransferStatusCompleted, transfer.Status)
	mockDB.ExpectationsWereMet(t)
}

// lockOrderRows returns the fixture that the ascending-section lock order
// reads first (wantFirst) or second.
func lockOrderRows(source, destination itemFixture, wantFirst bool) *sqlmock.Rows {
	first, second := source, destination
	if destination.sectionID < source.sectionID {
		first, second = destination, source
	}
	if wantFirst {
		return first.rows()
	}
	return second.rows()
}
