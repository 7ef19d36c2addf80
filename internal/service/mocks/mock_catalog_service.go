package mocks

import (
	"context"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetProduct(ctx context.Context, kind model.ProductKind, id uint) (*model.ProductSnapshot, error) {
	args := m.Called(ctx, kind, id)
	if p := args.Get(0); p != nil {
		return p.(*model.ProductSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, kind model.ProductKind, lowStockOnly bool) ([]model.ProductSnapshot, error) {
	args := m.Called(ctx, kind, lowStockOnly)
	if list := args.Get(0); list != nil {
		return list.([]model.ProductSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) LowStock(ctx context.Context) ([]model.ProductSnapshot, error) {
	args := m.Called(ctx)
	if list := args.Get(0); list != nil {
		return list.([]model.ProductSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, kind model.ProductKind, req *service.ProductRequest, actor model.Actor) (*model.ProductSnapshot, error) {
	args := m.Called(ctx, kind, req, actor)
	if p := args.Get(0); p != nil {
		return p.(*model.ProductSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) UpdateProduct(ctx context.Context, kind model.ProductKind, id uint, req *service.UpdateProductRequest, actor model.Actor) (*model.ProductSnapshot, error) {
	args := m.Called(ctx, kind, id, req, actor)
	if p := args.Get(0); p != nil {
		return p.(*model.ProductSnapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) AdjustStock(ctx context.Context, kind model.ProductKind, id uint, req *service.StockAdjustRequest, actor model.Actor) (*repository.AdjustResult, error) {
	args := m.Called(ctx, kind, id, req, actor)
	if r := args.Get(0); r != nil {
		return r.(*repository.AdjustResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) StockLogs(ctx context.Context, filter repository.StockLogFilter) ([]model.StockLog, error) {
	args := m.Called(ctx, filter)
	if list := args.Get(0); list != nil {
		return list.([]model.StockLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalogService) Details(ctx context.Context, kind model.ProductKind, ids []uint) (map[uint]model.ProductDetails, error) {
	args := m.Called(ctx, kind, ids)
	if d := args.Get(0); d != nil {
		return d.(map[uint]model.ProductDetails), args.Error(1)
	}
	return nil, args.Error(1)
}
