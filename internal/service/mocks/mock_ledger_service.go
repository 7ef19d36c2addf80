package mocks

import (
	"context"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) CreateTransaction(ctx context.Context, req *service.CreateTransactionRequest, actor model.Actor) (*model.Transaction, error) {
	args := m.Called(ctx, req, actor)
	if t := args.Get(0); t != nil {
		return t.(*model.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) VoidTransaction(ctx context.Context, id uuid.UUID, reason string, actor model.Actor) (*service.VoidResult, error) {
	args := m.Called(ctx, id, reason, actor)
	if r := args.Get(0); r != nil {
		return r.(*service.VoidResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) GetTransaction(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Transaction, error) {
	args := m.Called(ctx, id, actor)
	if t := args.Get(0); t != nil {
		return t.(*model.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, actor model.Actor) ([]model.Transaction, error) {
	args := m.Called(ctx, filter, actor)
	if list := args.Get(0); list != nil {
		return list.([]model.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLedgerService) TodayStats(ctx context.Context) (*model.TodayStats, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*model.TodayStats), args.Error(1)
	}
	return nil, args.Error(1)
}
