package storage_test

import (
	"context"
	"testing"

	"github.com/mdwhitten/tabulate/internal/common"
	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/mdwhitten/tabulate/internal/service"
	"github.com/mdwhitten/tabulate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetReceipt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	total := 25.48
	id, err := db.Storage.CreateReceipt(ctx, &model.Receipt{
		StoreName:           "Costco",
		ReceiptDate:         "2025-06-15",
		Tax:                 1.50,
		Total:               &total,
		TotalVerified:       true,
		VerificationMessage: "Items $23.98 + Tax $1.50 = $25.48",
		Items: []model.LineItem{
			{RawName: "ORG BANANAS", CleanName: "Organic Bananas", Price: 1.99, Quantity: 2, Category: "Produce", AIConfidence: 0.92},
		},
	})
	require.NoError(t, err)
	require.Positive(t, id)

	receipt, err := db.Storage.GetReceipt(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "Costco", receipt.StoreName)
	assert.Equal(t, "2025-06-15", receipt.ReceiptDate)
	assert.Equal(t, model.StatusPending, receipt.Status, "status defaults to pending")
	require.NotNil(t, receipt.Total)
	assert.InDelta(t, 25.48, *receipt.Total, 0.0001)
	assert.True(t, receipt.TotalVerified)
	assert.Equal(t, "Items $23.98 + Tax $1.50 = $25.48", receipt.VerificationMessage)

	require.Len(t, receipt.Items, 1)
	item := receipt.Items[0]
	assert.Positive(t, item.ID)
	assert.Equal(t, id, item.ReceiptID)
	assert.Equal(t, "ORG BANANAS", item.RawName)
	assert.Equal(t, "Organic Bananas", item.CleanName)
	assert.InDelta(t, 2.0, item.Quantity, 0.0001)
	assert.Equal(t, model.SourceAI, item.CategorySource, "category source defaults to ai")
	assert.InDelta(t, 0.92, item.AIConfidence, 0.0001)
}

func TestCreateReceipt_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := db.Storage.CreateReceipt(ctx, &model.Receipt{
		StoreName: "Target",
		Items: []model.LineItem{
			{RawName: "THING", Category: "Other"},
		},
	})
	require.NoError(t, err)

	receipt, err := db.Storage.GetReceipt(ctx, id)
	require.NoError(t, err)

	assert.Empty(t, receipt.ReceiptDate, "a missing scan date reads back as empty")
	assert.Nil(t, receipt.Total)
	require.Len(t, receipt.Items, 1)
	assert.InDelta(t, 1.0, receipt.Items[0].Quantity, 0.0001, "quantity defaults to 1")
}

func TestGetReceipt_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := db.Storage.GetReceipt(context.Background(), 9999)
	require.ErrorIs(t, err, common.ErrReceiptNotFound)
}

func TestListReceipts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	older := db.SeedReceipt(&model.Receipt{StoreName: "Costco", ReceiptDate: "2025-06-01", Items: []model.LineItem{{RawName: "A"}, {RawName: "B"}}})
	newer := db.SeedReceipt(&model.Receipt{StoreName: "Target", ReceiptDate: "2025-06-20"})
	verified := db.SeedReceipt(&model.Receipt{StoreName: "Kroger", ReceiptDate: "2025-06-10", Status: model.StatusVerified})

	summaries, err := db.Storage.ListReceipts(ctx, service.ReceiptFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, newer.ID, summaries[0].ID, "newest receipt date first")
	assert.Equal(t, verified.ID, summaries[1].ID)
	assert.Equal(t, older.ID, summaries[2].ID)
	assert.Equal(t, 2, summaries[2].ItemCount)
	assert.Equal(t, 0, summaries[0].ItemCount)

	byStatus, err := db.Storage.ListReceipts(ctx, service.ReceiptFilter{Status: model.StatusVerified})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, verified.ID, byStatus[0].ID)
}

func TestListReceipts_Pagination(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	db.SeedReceipt(&model.Receipt{StoreName: "A", ReceiptDate: "2025-06-03"})
	db.SeedReceipt(&model.Receipt{StoreName: "B", ReceiptDate: "2025-06-02"})
	db.SeedReceipt(&model.Receipt{StoreName: "C", ReceiptDate: "2025-06-01"})

	page, err := db.Storage.ListReceipts(ctx, service.ReceiptFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "A", page[0].StoreName)

	rest, err := db.Storage.ListReceipts(ctx, service.ReceiptFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "C", rest[0].StoreName)
}

func TestListReceipts_InvalidFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := db.Storage.ListReceipts(context.Background(), service.ReceiptFilter{Limit: -1})
	assert.Error(t, err)
}

func TestDeleteReceipt(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	receipt := db.SeedReceipt(&model.Receipt{
		StoreName:   "Costco",
		ReceiptDate: "2025-06-15",
		Items:       []model.LineItem{{RawName: "A"}},
	})

	require.NoError(t, db.Storage.DeleteReceipt(ctx, receipt.ID))

	_, err := db.Storage.GetReceipt(ctx, receipt.ID)
	require.ErrorIs(t, err, common.ErrReceiptNotFound)

	err = db.Storage.DeleteReceipt(ctx, receipt.ID)
	require.ErrorIs(t, err, common.ErrReceiptNotFound)
}
