package service

import (
	"context"
	"testing"
	"time"

	"github.com/foodtrack/foodtrack-backend/internal/inventory/repository"
	"github.com/foodtrack/foodtrack-backend/pkg/database"
	"github.com/foodtrack/foodtrack-backend/pkg/errors"
	"github.com/foodtrack/foodtrack-backend/pkg/logger"
	"github.com/foodtrack/foodtrack-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInventoryFlowIntegration runs the whole stock lifecycle against a
// real PostgreSQL instance: catalog, ledger, transfer workflow, disposal
// and audit replay.
func TestInventoryFlowIntegration(t *testing.T) {
	testutil.SkipUnlessIntegration(t)

	ctx := context.Background()
	container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	conn, err := container.Connect(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, container.Migrate(conn, "../../../migrations"))

	log := logger.New("integration-test", "development")
	db := database.NewFromConn(conn, log)
	svc := NewInventoryService(
		db,
		repository.NewSectionRepository(db),
		repository.NewItemRepository(db),
		repository.NewAuditRepository(db),
		repository.NewTransferRepository(db),
		nil,
		nil,
		log,
	)

	actx := testutil.ContextWithActor()

	kitchen, err := svc.CreateSection(actx, &CreateSectionRequest{Code: "KITCHEN", Name: "Main Kitchen"})
	require.NoError(t, err)
	storage, err := svc.CreateSection(actx, &CreateSectionRequest{Code: "STORAGE", Name: "Dry Storage"})
	require.NoError(t, err)

	expiry := time.Now().AddDate(0, 1, 0)
	item, err := svc.CreateItem(actx, &CreateItemRequest{
		SectionID:       storage.ID,
		ItemCode:        "FLOUR-001",
		Name:            "Wheat Flour",
		Category:        "dry_goods",
		Unit:            "kg",
		InitialQuantity: decimal.NewFromInt(100),
		ReorderLevel:    decimal.NewFromInt(40),
		CriticalLevel:   decimal.NewFromInt(10),
		ExpiryDate:      &expiry,
	})
	require.NoError(t, err)
	assert.Equal(t, "normal", item.StockAlert)
	assert.Equal(t, "expiring_warning", item.ExpiryAlert)

	t.Run("duplicate item code in section is rejected", func(t *testing.T) {
		_, err := svc.CreateItem(actx, &CreateItemRequest{
			SectionID:     storage.ID,
			ItemCode:      "FLOUR-001",
			Name:          "Wheat Flour",
			Category:      "dry_goods",
			Unit:          "kg",
			ReorderLevel:  decimal.NewFromInt(40),
			CriticalLevel: decimal.NewFromInt(10),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})

	t.Run("adjustments move quantity and classification together", func(t *testing.T) {
		got, err := svc.AdjustStock(actx, item.ID, &AdjustStockRequest{
			Delta:  decimal.NewFromInt(-70),
			Reason: "weekly baking",
		})
		require.NoError(t, err)
		assert.True(t, got.Quantity.Equal(decimal.NewFromInt(30)))
		assert.Equal(t, "low_stock", got.StockAlert)

		_, err = svc.AdjustStock(actx, item.ID, &AdjustStockRequest{
			Delta:  decimal.NewFromInt(-31),
			Reason: "impossible draw",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNegativeStock))

		got, err = svc.AdjustStock(actx, item.ID, &AdjustStockRequest{
			Delta:  decimal.NewFromInt(70),
			Reason: "delivery received",
		})
		require.NoError(t, err)
		assert.True(t, got.Quantity.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, "normal", got.StockAlert)
	})

	t.Run("transfer lifecycle conserves stock", func(t *testing.T) {
		transfer, err := svc.CreateTransfer(actx, &CreateTransferRequest{
			ItemID:      item.ID,
			ToSectionID: kitchen.ID,
			Quantity:    decimal.NewFromInt(25),
			Reason:      "kitchen restock",
		})
		require.NoError(t, err)
		assert.Equal(t, repository.TransferStatusPending, transfer.Status)
		assert.Regexp(t, `^TRF-\d{8}-\d{4}$`, transfer.TransferNumber)

		// Completing before approval is illegal.
		_, err = svc.CompleteTransfer(actx, transfer.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransferState))

		approved, err := svc.ApproveTransfer(actx, transfer.ID)
		require.NoError(t, err)
		assert.Equal(t, repository.TransferStatusApproved, approved.Status)

		// Approving twice is illegal.
		_, err = svc.ApproveTransfer(actx, transfer.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransferState))

		completed, err := svc.CompleteTransfer(actx, transfer.ID)
		require.NoError(t, err)
		assert.Equal(t, repository.TransferStatusCompleted, completed.Status)

		source, err := svc.GetItem(actx, item.ID)
		require.NoError(t, err)
		assert.True(t, source.Quantity.Equal(decimal.NewFromInt(75)))

		items, _, err := svc.ListItems(actx, kitchen.ID, "", 1, 20)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "FLOUR-001", items[0].ItemCode)
		assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(25)),
			"destination received exactly what the source gave up")
	})

	t.Run("rejected transfer is terminal", func(t *testing.T) {
		transfer, err := svc.CreateTransfer(actx, &CreateTransferRequest{
			ItemID:      item.ID,
			ToSectionID: kitchen.ID,
			Quantity:    decimal.NewFromInt(5),
			Reason:      "extra restock",
		})
		require.NoError(t, err)

		rejected, err := svc.RejectTransfer(actx, transfer.ID, &RejectTransferRequest{Reason: "not needed this week"})
		require.NoError(t, err)
		assert.Equal(t, repository.TransferStatusRejected, rejected.Status)
		require.NotNil(t, rejected.RejectReason)

		got, err := svc.GetTransfer(actx, transfer.ID)
		require.NoError(t, err)
		require.NotNil(t, got.RejectedAt, "rejection records its own transition timestamp")

		_, err = svc.ApproveTransfer(actx, transfer.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidTransferState))
	})

	t.Run("repeat transfers converge on one destination row", func(t *testing.T) {
		transfer, err := svc.CreateTransfer(actx, &CreateTransferRequest{
			ItemID:      item.ID,
			ToSectionID: kitchen.ID,
			Quantity:    decimal.NewFromInt(10),
			Reason:      "second restock",
		})
		require.NoError(t, err)

		_, err = svc.ApproveTransfer(actx, transfer.ID)
		require.NoError(t, err)
		_, err = svc.CompleteTransfer(actx, transfer.ID)
		require.NoError(t, err)

		items, total, err := svc.ListItems(actx, kitchen.ID, "", 1, 20)
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.True(t, items[0].Quantity.Equal(decimal.NewFromInt(35)),
			"both credits land on the same destination row")
	})

	t.Run("audit trail replays to current quantity", func(t *testing.T) {
		entries, total, err := svc.GetAuditTrail(actx, item.ID, 1, 100)
		require.NoError(t, err)
		require.Equal(t, int64(len(entries)), total)

		replayed := decimal.Zero
		for _, entry := range entries {
			replayed = replayed.Add(entry.Delta)
		}

		current, err := svc.GetItem(actx, item.ID)
		require.NoError(t, err)
		assert.True(t, replayed.Equal(current.Quantity),
			"sum of deltas %s must equal current quantity %s", replayed, current.Quantity)
	})

	t.Run("disposal drains and terminates the item", func(t *testing.T) {
		qty := decimal.NewFromInt(5)
		got, err := svc.Dispose(actx, item.ID, &DisposeRequest{Quantity: &qty, Reason: "weevils"})
		require.NoError(t, err)
		assert.True(t, got.Quantity.Equal(decimal.NewFromInt(60)))
		assert.Equal(t, repository.ItemStatusActive, got.Status)

		got, err = svc.Dispose(actx, item.ID, &DisposeRequest{Reason: "contaminated batch"})
		require.NoError(t, err)
		assert.True(t, got.Quantity.IsZero())
		assert.Equal(t, repository.ItemStatusDisposed, got.Status)

		_, err = svc.AdjustStock(actx, item.ID, &AdjustStockRequest{
			Delta:  decimal.NewFromInt(10),
			Reason: "restock attempt",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrConflict))
	})

	t.Run("expiry scan marks overdue items", func(t *testing.T) {
		yesterday := time.Now().AddDate(0, 0, -1)
		milk, err := svc.CreateItem(actx, &CreateItemRequest{
			SectionID:       kitchen.ID,
			ItemCode:        "MILK-001",
			Name:            "Whole Milk",
			Category:        "dairy",
			Unit:            "l",
			InitialQuantity: decimal.NewFromInt(12),
			ReorderLevel:    decimal.NewFromInt(6),
			CriticalLevel:   decimal.NewFromInt(2),
			ExpiryDate:      &yesterday,
		})
		require.NoError(t, err)
		assert.Equal(t, "expired", milk.ExpiryAlert)

		report, err := svc.RunExpiryScan(actx)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, report.MarkedExpired, 1)

		got, err := svc.GetItem(actx, milk.ID)
		require.NoError(t, err)
		assert.Equal(t, repository.ItemStatusExpired, got.Status)
		assert.True(t, got.Quantity.Equal(decimal.NewFromInt(12)),
			"expiry never changes quantity")
	})
}
