package service

import (
	"context"
	"testing"

	"go-pos-ledger/internal/events"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_CreateProductLogsInitialStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	p, err := f.catalog.CreateProduct(ctx, model.KindLaptop, &ProductRequest{
		Name: "ThinkPad X1", Brand: "Lenovo", Category: "Business", Price: decimal.NewFromInt(1500), Stock: 7,
	}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 7, p.Stock)
	assert.Equal(t, "Business", p.Category)

	added := f.logsOf(t, model.KindLaptop, p.ID, model.ChangeAdd)
	require.Len(t, added, 1)
	assert.Equal(t, 7, added[0].Quantity)
	assert.Equal(t, "Initial stock", added[0].Description)

	empty, err := f.catalog.CreateProduct(ctx, model.KindAccessory, &ProductRequest{
		Name: "Sleeve", Category: "Bags", Price: decimal.NewFromInt(20),
	}, f.admin)
	require.NoError(t, err)
	assert.Zero(t, empty.Stock)
	assert.Empty(t, f.logsOf(t, model.KindAccessory, empty.ID, model.ChangeAdd))
}

func TestCatalog_CreateProductValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.catalog.CreateProduct(ctx, model.KindLaptop, &ProductRequest{Name: "Free", Price: decimal.Zero}, f.admin)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = f.catalog.CreateProduct(ctx, model.KindAccessory, &ProductRequest{Name: "Cable", Price: decimal.RequireFromString("9.999")}, f.admin)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "money", verr.Fields[0].Tag)

	_, err = f.catalog.CreateProduct(ctx, "phone", &ProductRequest{Name: "X", Price: decimal.NewFromInt(1)}, f.admin)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestCatalog_UpdateProductKeepsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.product(t, model.KindAccessory, "Mouse", 50, 4)

	name := "Wireless Mouse"
	price := decimal.NewFromInt(65)
	p, err := f.catalog.UpdateProduct(ctx, model.KindAccessory, id, &UpdateProductRequest{Name: &name, Price: &price}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, name, p.Name)
	assert.True(t, p.Price.Equal(price))
	assert.Equal(t, 4, p.Stock)

	_, err = f.catalog.UpdateProduct(ctx, model.KindAccessory, 999, &UpdateProductRequest{Name: &name}, f.admin)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestCatalog_AdjustStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.product(t, model.KindLaptop, "ThinkPad", 100, 3)

	res, err := f.catalog.AdjustStock(ctx, model.KindLaptop, id, &StockAdjustRequest{Delta: 5, Note: "Supplier delivery"}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 8, res.NewStock)
	assert.Equal(t, "Supplier delivery (by admin)", res.Log.Description)

	res, err = f.catalog.AdjustStock(ctx, model.KindLaptop, id, &StockAdjustRequest{Delta: -2}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 6, res.NewStock)
	assert.Equal(t, model.ChangeRemove, res.Log.ChangeType)
	assert.Equal(t, "Manual adjustment (by admin)", res.Log.Description)

	_, err = f.catalog.AdjustStock(ctx, model.KindLaptop, id, &StockAdjustRequest{Delta: -10}, f.admin)
	var insufficient *repository.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, 6, insufficient.Available)
	assert.Equal(t, 6, f.stockOf(t, model.KindLaptop, id))

	_, err = f.catalog.AdjustStock(ctx, model.KindLaptop, id, &StockAdjustRequest{Delta: 0}, f.admin)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	assert.Equal(t, []string{events.StockAdjusted, events.StockAdjusted}, f.publisher.types())
}

func TestCatalog_LowStockAndDetails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	low := f.product(t, model.KindLaptop, "Old Model", 100, 3)
	f.product(t, model.KindLaptop, "Bestseller", 100, 50)
	cable := f.product(t, model.KindAccessory, "Cable", 5, 2)

	list, err := f.catalog.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []uint{low, cable}, []uint{list[0].ID, list[1].ID})

	laptops, err := f.catalog.ListProducts(ctx, model.KindLaptop, false)
	require.NoError(t, err)
	assert.Len(t, laptops, 2)

	details, err := f.catalog.Details(ctx, model.KindLaptop, []uint{low, 404})
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Old Model", details[low].Name)
}

func TestCatalog_StockLogsRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.StockLogs(context.Background(), repository.StockLogFilter{Kind: "phone"})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
}
