package service

import (
	"context"
	"strconv"
	"time"

	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/pkg/logger"
	"go-pos-ledger/pkg/metrics"

	"github.com/rs/zerolog"
)

// Drift is a product whose stock counter disagrees with its replayed log.
type Drift struct {
	Kind       model.ProductKind `json:"product_type"`
	ProductID  uint              `json:"product_id"`
	Name       string            `json:"name"`
	Stock      int               `json:"stock"`
	LogBalance int               `json:"log_balance"`
}

func (d Drift) Diff() int { return d.Stock - d.LogBalance }

type ReconcileReport struct {
	OrphansRemoved int     `json:"orphans_removed"`
	Drifts         []Drift `json:"drifts"`
}

// ReconcileService is the safety net behind the transactional create path:
// it removes headers that somehow lost their items and reports stock drift.
type ReconcileService interface {
	SweepOrphans(ctx context.Context) (int, error)
	CheckDrift(ctx context.Context) ([]Drift, error)
	Run(ctx context.Context) (*ReconcileReport, error)
}

type reconcileService struct {
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	stock        repository.StockRepository
	grace        time.Duration
	log          zerolog.Logger
	now          func() time.Time
}

func NewReconcileService(transactions repository.TransactionRepository, products repository.ProductRepository,
	stock repository.StockRepository, orphanGrace time.Duration) ReconcileService {
	return &reconcileService{
		transactions: transactions,
		products:     products,
		stock:        stock,
		grace:        orphanGrace,
		log:          logger.Component("reconcile"),
		now:          time.Now,
	}
}

func (s *reconcileService) SweepOrphans(ctx context.Context) (int, error) {
	orphans, err := s.transactions.FindOrphans(ctx, s.now().Add(-s.grace))
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, o := range orphans {
		ok, err := s.transactions.DeleteOrphan(ctx, o.ID)
		if err != nil {
			s.log.Error().Err(err).Str("transaction_id", o.ID.String()).Msg("orphan header not removed")
			continue
		}
		if ok {
			removed++
			metrics.OrphansSwept.Inc()
			s.log.Warn().Str("transaction_id", o.ID.String()).Time("created_at", o.CreatedAt).
				Str("cashier_id", o.CashierID.String()).Msg("orphan transaction header removed")
		}
	}
	return removed, nil
}

func (s *reconcileService) CheckDrift(ctx context.Context) ([]Drift, error) {
	balances, err := s.stock.Balances(ctx)
	if err != nil {
		return nil, err
	}
	replayed := make(map[productKey]int, len(balances))
	for _, b := range balances {
		replayed[productKey{b.ProductType, b.ProductID}] = b.Balance
	}

	var drifts []Drift
	for _, kind := range model.ProductKinds {
		products, err := s.products.List(ctx, kind, nil)
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			balance := replayed[productKey{kind, p.ID}]
			diff := p.Stock - balance
			metrics.StockDrift.WithLabelValues(string(kind), strconv.FormatUint(uint64(p.ID), 10)).Set(float64(diff))
			if diff == 0 {
				continue
			}
			d := Drift{Kind: kind, ProductID: p.ID, Name: p.Name, Stock: p.Stock, LogBalance: balance}
			drifts = append(drifts, d)
			s.log.Error().Str("kind", string(kind)).Uint("product_id", p.ID).Int("stock", p.Stock).
				Int("log_balance", balance).Int("diff", diff).Msg("stock drift detected")
		}
	}
	return drifts, nil
}

func (s *reconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	removed, err := s.SweepOrphans(ctx)
	if err != nil {
		return nil, err
	}
	drifts, err := s.CheckDrift(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int("orphans_removed", removed).Int("drifts", len(drifts)).Msg("reconcile run finished")
	return &ReconcileReport{OrphansRemoved: removed, Drifts: drifts}, nil
}
