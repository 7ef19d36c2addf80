package service

import (
	"context"
	"time"

	"go-pos-ledger/internal/repository"
)

const maxMovementDays = 90

type DashboardService interface {
	GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error)
}

type dashboardService struct {
	stockRepo repository.StockRepository
}

func NewDashboardService(stockRepo repository.StockRepository) DashboardService {
	return &dashboardService{stockRepo: stockRepo}
}

func (s *dashboardService) GetStockMovement(ctx context.Context, days int) ([]repository.StockMovementData, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxMovementDays {
		days = maxMovementDays
	}
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	return s.stockRepo.GetStockMovement(ctx, startDate, endDate)
}
