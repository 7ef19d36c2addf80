package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-pos-ledger/internal/events"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/logger"
	"go-pos-ledger/pkg/metrics"
	"go-pos-ledger/pkg/validator"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const DefaultVoidReason = "Voided by admin"

type TransactionItemRequest struct {
	ProductType model.ProductKind `json:"product_type" validate:"required,oneof=laptop accessory"`
	ProductID   uint              `json:"product_id" validate:"required,gt=0"`
	Qty         int               `json:"qty" validate:"required,gt=0"`
	Price       decimal.Decimal   `json:"price" validate:"required,gt=0,money"`
}

// Subtotal is qty × unit price.
func (r TransactionItemRequest) Subtotal() decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(int64(r.Qty)))
}

type CreateTransactionRequest struct {
	CustomerName  *string                  `json:"customer_name" validate:"omitempty,max=255"`
	PaymentMethod model.PaymentMethod      `json:"payment_method" validate:"required,oneof=cash qris transfer"`
	Items         []TransactionItemRequest `json:"items" validate:"required,min=1,dive"`
	TotalPrice    decimal.Decimal          `json:"total_price" validate:"required,gt=0,money"`
}

type VoidResult struct {
	Voided        bool      `json:"voided"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Reason        string    `json:"reason"`
	RestockedQty  int       `json:"restocked_qty"`
}

// LedgerService coordinates sales against the inventory store. Create and
// void each run in a single database transaction, so a failure at any step
// leaves no header, no item and no stock change behind.
type LedgerService interface {
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest, actor model.Actor) (*model.Transaction, error)
	VoidTransaction(ctx context.Context, id uuid.UUID, reason string, actor model.Actor) (*VoidResult, error)
	GetTransaction(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Transaction, error)
	ListTransactions(ctx context.Context, filter repository.TransactionFilter, actor model.Actor) ([]model.Transaction, error)
	TodayStats(ctx context.Context) (*model.TodayStats, error)
}

type ledgerService struct {
	db           *gorm.DB
	transactions repository.TransactionRepository
	products     repository.ProductRepository
	stock        repository.StockRepository
	catalog      CatalogService
	hub          ws.Broadcaster
	publisher    events.Publisher
	tracer       trace.Tracer
	log          zerolog.Logger
	now          func() time.Time
}

func NewLedgerService(db *gorm.DB, transactions repository.TransactionRepository, products repository.ProductRepository,
	stock repository.StockRepository, catalog CatalogService, hub ws.Broadcaster, publisher events.Publisher) LedgerService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &ledgerService{
		db:           db,
		transactions: transactions,
		products:     products,
		stock:        stock,
		catalog:      catalog,
		hub:          hub,
		publisher:    publisher,
		tracer:       otel.Tracer("go-pos-ledger/ledger"),
		log:          logger.Component("ledger"),
		now:          time.Now,
	}
}

type productKey struct {
	kind model.ProductKind
	id   uint
}

func saleReference(txID, itemID uuid.UUID) string {
	return fmt.Sprintf("sale:%s:%s", txID, itemID)
}

func voidReference(txID, itemID uuid.UUID) string {
	return fmt.Sprintf("void:%s:%s", txID, itemID)
}

func (s *ledgerService) CreateTransaction(ctx context.Context, req *CreateTransactionRequest, actor model.Actor) (*model.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.CreateTransaction",
		trace.WithAttributes(attribute.Int("ledger.items", len(req.Items))))
	defer span.End()

	if err := s.validateCreate(req, actor); err != nil {
		metrics.Transactions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	if err := s.precheck(ctx, req.Items); err != nil {
		metrics.Transactions.WithLabelValues("rejected").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := s.now()
	transaction := &model.Transaction{
		BaseModel:     model.BaseModel{ID: uuid.New(), CreatedAt: now},
		CashierID:     actor.ID,
		CustomerName:  req.CustomerName,
		PaymentMethod: req.PaymentMethod,
		TotalPrice:    req.TotalPrice,
	}
	span.SetAttributes(attribute.String("ledger.transaction_id", transaction.ID.String()))

	items := make([]model.TransactionItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = model.TransactionItem{
			// spaced creation times keep input order on reads
			BaseModel:     model.BaseModel{ID: uuid.New(), CreatedAt: now.Add(time.Duration(i) * time.Microsecond)},
			TransactionID: transaction.ID,
			ProductType:   it.ProductType,
			ProductID:     it.ProductID,
			Qty:           it.Qty,
			Price:         it.Price,
		}
	}

	var failed *model.TransactionItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.transactions.CreateHeader(tx, transaction); err != nil {
			return err
		}
		for i := range items {
			if err := s.transactions.CreateItem(tx, &items[i]); err != nil {
				failed = &items[i]
				return err
			}
		}
		for _, i := range decrementOrder(items) {
			item := &items[i]
			_, err := s.stock.Adjust(ctx, tx, repository.StockAdjustment{
				Kind:        item.ProductType,
				ProductID:   item.ProductID,
				Quantity:    item.Qty,
				Direction:   repository.Decrease,
				ChangeType:  model.ChangeSold,
				Description: fmt.Sprintf("Sold in transaction %s", transaction.ID),
				Reference:   saleReference(transaction.ID, item.ID),
			})
			if err != nil {
				failed = item
				return err
			}
		}
		return nil
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, repository.ErrInsufficientStock) || errors.Is(err, repository.ErrProductNotFound) {
			result = "rejected"
		}
		metrics.Transactions.WithLabelValues(result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		ev := s.log.Warn().Err(err).Str("transaction_id", transaction.ID.String()).Str("direction", string(repository.Decrease))
		if failed != nil {
			ev = ev.Str("item_id", failed.ID.String()).Str("kind", string(failed.ProductType)).Uint("product_id", failed.ProductID)
		}
		ev.Msg("transaction rolled back")
		return nil, err
	}

	transaction.Items = items
	metrics.Transactions.WithLabelValues("created").Inc()
	for _, item := range items {
		metrics.StockAdjustments.WithLabelValues(string(item.ProductType), string(model.ChangeSold)).Inc()
	}
	s.log.Info().Str("transaction_id", transaction.ID.String()).Str("cashier", actor.Email).
		Int("items", len(items)).Str("total", transaction.TotalPrice.String()).Msg("transaction created")

	s.enrich(ctx, []*model.Transaction{transaction})
	s.announce(ctx, events.TransactionCreated, "transaction_created", transaction, actor,
		fmt.Sprintf("%s recorded a sale of %d item(s)", actor.Name, len(items)))
	return transaction, nil
}

func (s *ledgerService) validateCreate(req *CreateTransactionRequest, actor model.Actor) error {
	if err := validate(req); err != nil {
		return err
	}
	if actor.ID == uuid.Nil {
		return validationFailed("Validation failed", &validator.ErrorResponse{FailedField: "cashier_id", Tag: "required"})
	}

	sum := decimal.Zero
	for _, it := range req.Items {
		sum = sum.Add(it.Subtotal())
	}
	if !sum.Equal(req.TotalPrice) {
		return validationFailed(
			fmt.Sprintf("total_price %s does not match sum of items %s", req.TotalPrice.StringFixed(2), sum.StringFixed(2)),
			&validator.ErrorResponse{FailedField: "total_price", Tag: "eq_items", Value: sum.StringFixed(2)},
		)
	}
	return nil
}

// precheck rejects the request before any write when the current stock cannot
// cover it. It is advisory: the conditional decrement stays authoritative.
func (s *ledgerService) precheck(ctx context.Context, items []TransactionItemRequest) error {
	requested := make(map[productKey]int)
	var order []productKey
	idsByKind := make(map[model.ProductKind][]uint)
	for _, it := range items {
		key := productKey{it.ProductType, it.ProductID}
		if _, seen := requested[key]; !seen {
			order = append(order, key)
			idsByKind[key.kind] = append(idsByKind[key.kind], key.id)
		}
		requested[key] += it.Qty
	}

	found := make(map[productKey]model.ProductSnapshot, len(order))
	for kind, ids := range idsByKind {
		snapshots, err := s.products.FindSnapshots(ctx, kind, ids)
		if err != nil {
			return err
		}
		for id, snap := range snapshots {
			found[productKey{kind, id}] = snap
		}
	}

	for _, key := range order {
		snap, ok := found[key]
		if !ok {
			return errors.Wrapf(repository.ErrProductNotFound, "%s %d", key.kind, key.id)
		}
		if snap.Stock < requested[key] {
			return &repository.InsufficientStockError{
				Kind:      key.kind,
				ProductID: key.id,
				Name:      snap.Name,
				Requested: requested[key],
				Available: snap.Stock,
			}
		}
	}
	return nil
}

// decrementOrder returns item indexes sorted by product so concurrent sales
// lock rows in the same order. Items of the same product keep input order.
func decrementOrder(items []model.TransactionItem) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := items[idx[a]], items[idx[b]]
		if ia.ProductType != ib.ProductType {
			return ia.ProductType < ib.ProductType
		}
		return ia.ProductID < ib.ProductID
	})
	return idx
}

func (s *ledgerService) VoidTransaction(ctx context.Context, id uuid.UUID, reason string, actor model.Actor) (*VoidResult, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.VoidTransaction",
		trace.WithAttributes(attribute.String("ledger.transaction_id", id.String())))
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultVoidReason
	}

	var voided *model.Transaction
	var failed *model.TransactionItem
	restocked := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.transactions.LockForVoid(tx, id)
		if err != nil {
			return err
		}
		// Deleting first makes a concurrent second void see zero rows and fail.
		if err := s.transactions.DeleteWithItems(tx, id); err != nil {
			return err
		}

		for _, i := range decrementOrder(t.Items) {
			item := &t.Items[i]
			_, err := s.stock.Adjust(ctx, tx, repository.StockAdjustment{
				Kind:        item.ProductType,
				ProductID:   item.ProductID,
				Quantity:    item.Qty,
				Direction:   repository.Increase,
				ChangeType:  model.ChangeAdd,
				Description: fmt.Sprintf("Voided from transaction %s: %s", id, reason),
				Reference:   voidReference(id, item.ID),
			})
			if err != nil {
				failed = item
				return err
			}
			restocked += item.Qty
		}

		snapshot, err := json.Marshal(t)
		if err != nil {
			return errors.Wrap(err, "snapshot voided transaction")
		}
		if err := s.transactions.Archive(tx, &model.VoidedTransaction{
			TransactionID: t.ID,
			CashierID:     t.CashierID,
			VoidedBy:      actor.ID,
			Reason:        reason,
			TotalPrice:    t.TotalPrice,
			Snapshot:      string(snapshot),
			SoldAt:        t.CreatedAt,
			VoidedAt:      s.now(),
		}); err != nil {
			return err
		}
		voided = t
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, repository.ErrTransactionNotFound) {
			metrics.Voids.WithLabelValues("not_found").Inc()
			return nil, err
		}
		metrics.Voids.WithLabelValues("failed").Inc()

		ev := s.log.Error().Err(err).Str("transaction_id", id.String()).Str("direction", string(repository.Increase))
		if failed != nil {
			ev = ev.Str("item_id", failed.ID.String()).Str("kind", string(failed.ProductType)).
				Uint("product_id", failed.ProductID).Int("qty", failed.Qty)
		}
		ev.Msg("void rolled back, stock unchanged")

		if errors.Is(err, repository.ErrPersistence) || errors.Is(err, repository.ErrConcurrentModification) {
			return nil, err
		}
		return nil, &repository.PersistenceError{Op: "void transaction", Err: err}
	}

	metrics.Voids.WithLabelValues("voided").Inc()
	for _, item := range voided.Items {
		metrics.StockAdjustments.WithLabelValues(string(item.ProductType), string(model.ChangeAdd)).Inc()
	}
	s.log.Info().Str("transaction_id", id.String()).Str("voided_by", actor.Email).Str("reason", reason).
		Int("restocked_qty", restocked).Msg("transaction voided")

	s.announce(ctx, events.TransactionVoided, "transaction_voided", map[string]interface{}{
		"transaction": voided,
		"reason":      reason,
	}, actor, fmt.Sprintf("%s voided transaction %s", actor.Name, id))

	return &VoidResult{Voided: true, TransactionID: id, Reason: reason, RestockedQty: restocked}, nil
}

func (s *ledgerService) GetTransaction(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.GetTransaction",
		trace.WithAttributes(attribute.String("ledger.transaction_id", id.String())))
	defer span.End()

	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Is(model.RoleKasir) && t.CashierID != actor.ID {
		return nil, ErrForbidden
	}
	s.enrich(ctx, []*model.Transaction{t})
	return t, nil
}

func (s *ledgerService) ListTransactions(ctx context.Context, filter repository.TransactionFilter, actor model.Actor) ([]model.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.ListTransactions")
	defer span.End()

	if actor.Is(model.RoleKasir) {
		own := actor.ID
		filter.CashierID = &own
	}
	if filter.PaymentMethod != "" {
		switch filter.PaymentMethod {
		case model.PaymentCash, model.PaymentQRIS, model.PaymentTransfer:
		default:
			return nil, validationFailed("Validation failed",
				&validator.ErrorResponse{FailedField: "payment_method", Tag: "oneof", Value: "cash qris transfer"})
		}
	}

	list, err := s.transactions.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*model.Transaction, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	s.enrich(ctx, ptrs)
	span.SetAttributes(attribute.Int("ledger.results", len(list)))
	return list, nil
}

func (s *ledgerService) TodayStats(ctx context.Context) (*model.TodayStats, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.transactions.TodayStats(ctx, start)
}

// enrich attaches current catalog details to every item. It is best effort:
// a catalog failure leaves items without details rather than failing the read.
func (s *ledgerService) enrich(ctx context.Context, list []*model.Transaction) {
	if s.catalog == nil {
		return
	}
	ids := make(map[model.ProductKind][]uint)
	seen := make(map[productKey]bool)
	for _, t := range list {
		for _, item := range t.Items {
			key := productKey{item.ProductType, item.ProductID}
			if !seen[key] {
				seen[key] = true
				ids[key.kind] = append(ids[key.kind], key.id)
			}
		}
	}
	if len(ids) == 0 {
		return
	}

	var mu sync.Mutex
	details := make(map[productKey]model.ProductDetails)
	g, gctx := errgroup.WithContext(ctx)
	for kind, kindIDs := range ids {
		kind, kindIDs := kind, kindIDs
		g.Go(func() error {
			found, err := s.catalog.Details(gctx, kind, kindIDs)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for id, d := range found {
				details[productKey{kind, id}] = d
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn().Err(err).Msg("item enrichment skipped")
		return
	}

	for _, t := range list {
		for i := range t.Items {
			if d, ok := details[productKey{t.Items[i].ProductType, t.Items[i].ProductID}]; ok {
				d := d
				t.Items[i].Product = &d
			}
		}
	}
}

// announce pushes the committed change to websocket clients and the audit topic.
func (s *ledgerService) announce(ctx context.Context, eventType, action string, data interface{}, actor model.Actor, message string) {
	if s.hub != nil {
		s.hub.Send(map[string]interface{}{
			"type":    "stock_update",
			"action":  action,
			"data":    data,
			"user":    actor,
			"message": message,
		})
	}

	key := ""
	switch v := data.(type) {
	case *model.Transaction:
		key = v.ID.String()
	case map[string]interface{}:
		if t, ok := v["transaction"].(*model.Transaction); ok {
			key = t.ID.String()
		}
	}
	if err := s.publisher.Publish(ctx, events.Event{Type: eventType, Key: key, Actor: &actor, Data: data}); err != nil {
		s.log.Error().Err(err).Str("event", eventType).Str("key", key).Msg("audit event not published")
	}
}
