package mocks

import (
	"context"

	"go-pos-ledger/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	args := m.Called(ctx, days)
	if d := args.Get(0); d != nil {
		return d.([]repository.StockMovementData), args.Error(1)
	}
	return nil, args.Error(1)
}
