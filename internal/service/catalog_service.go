package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/events"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/repository"
	"go-pos-ledger/internal/ws"
	"go-pos-ledger/pkg/cache"
	"go-pos-ledger/pkg/logger"
	"go-pos-ledger/pkg/metrics"
	"go-pos-ledger/pkg/validator"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productCacheTTL = 5 * time.Minute

type ProductRequest struct {
	Name     string          `json:"name" validate:"required,max=255"`
	Brand    string          `json:"brand" validate:"max=100"`
	Category string          `json:"category" validate:"max=100"`
	Price    decimal.Decimal `json:"price" validate:"required,gt=0,money"`
	Stock    int             `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest changes catalog details only. Stock is not accepted here.
type UpdateProductRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Brand    *string          `json:"brand" validate:"omitempty,max=100"`
	Category *string          `json:"category" validate:"omitempty,max=100"`
	Price    *decimal.Decimal `json:"price" validate:"omitempty,gt=0,money"`
}

type StockAdjustRequest struct {
	Delta int    `json:"delta" validate:"required,ne=0"`
	Note  string `json:"note" validate:"max=255"`
}

type CatalogService interface {
	GetProduct(ctx context.Context, kind model.ProductKind, id uint) (*model.ProductSnapshot, error)
	ListProducts(ctx context.Context, kind model.ProductKind, lowStockOnly bool) ([]model.ProductSnapshot, error)
	LowStock(ctx context.Context) ([]model.ProductSnapshot, error)
	CreateProduct(ctx context.Context, kind model.ProductKind, req *ProductRequest, actor model.Actor) (*model.ProductSnapshot, error)
	UpdateProduct(ctx context.Context, kind model.ProductKind, id uint, req *UpdateProductRequest, actor model.Actor) (*model.ProductSnapshot, error)
	AdjustStock(ctx context.Context, kind model.ProductKind, id uint, req *StockAdjustRequest, actor model.Actor) (*repository.AdjustResult, error)
	StockLogs(ctx context.Context, filter repository.StockLogFilter) ([]model.StockLog, error)
	Details(ctx context.Context, kind model.ProductKind, ids []uint) (map[uint]model.ProductDetails, error)
}

type catalogService struct {
	db        *gorm.DB
	products  repository.ProductRepository
	stock     repository.StockRepository
	cache     *cache.Cache
	hub       ws.Broadcaster
	publisher events.Publisher
	threshold int
	log       zerolog.Logger
}

func NewCatalogService(db *gorm.DB, products repository.ProductRepository, stock repository.StockRepository,
	c *cache.Cache, hub ws.Broadcaster, publisher events.Publisher, lowStockThreshold int) CatalogService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &catalogService{
		db:        db,
		products:  products,
		stock:     stock,
		cache:     c,
		hub:       hub,
		publisher: publisher,
		threshold: lowStockThreshold,
		log:       logger.Component("catalog"),
	}
}

func productCacheKey(kind model.ProductKind, id uint) string {
	return fmt.Sprintf("pos-ledger:product:%s:%d", kind, id)
}

func (s *catalogService) GetProduct(ctx context.Context, kind model.ProductKind, id uint) (*model.ProductSnapshot, error) {
	if !kind.Valid() {
		return nil, repository.ErrProductNotFound
	}
	return s.products.FindSnapshot(ctx, kind, id)
}

func (s *catalogService) ListProducts(ctx context.Context, kind model.ProductKind, lowStockOnly bool) ([]model.ProductSnapshot, error) {
	if !kind.Valid() {
		return nil, repository.ErrProductNotFound
	}
	var maxStock *int
	if lowStockOnly {
		maxStock = &s.threshold
	}
	return s.products.List(ctx, kind, maxStock)
}

func (s *catalogService) LowStock(ctx context.Context) ([]model.ProductSnapshot, error) {
	var result []model.ProductSnapshot
	for _, kind := range model.ProductKinds {
		items, err := s.products.List(ctx, kind, &s.threshold)
		if err != nil {
			return nil, err
		}
		result = append(result, items...)
	}
	return result, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, kind model.ProductKind, req *ProductRequest, actor model.Actor) (*model.ProductSnapshot, error) {
	if !kind.Valid() {
		return nil, repository.ErrProductNotFound
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var categoryID *uint
	if kind == model.KindLaptop && strings.TrimSpace(req.Category) != "" {
		category, err := s.products.EnsureCategory(ctx, strings.TrimSpace(req.Category))
		if err != nil {
			return nil, err
		}
		categoryID = &category.ID
	}

	var id uint
	var applied *repository.AdjustResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch kind {
		case model.KindLaptop:
			laptop := &model.Laptop{Name: req.Name, Brand: req.Brand, CategoryID: categoryID, Price: req.Price}
			if err := s.products.CreateLaptop(tx, laptop); err != nil {
				return err
			}
			id = laptop.ID
		case model.KindAccessory:
			accessory := &model.Accessory{Name: req.Name, Category: req.Category, Price: req.Price}
			if err := s.products.CreateAccessory(tx, accessory); err != nil {
				return err
			}
			id = accessory.ID
		}

		// Initial stock goes through the mutator so the log replay matches the counter.
		if req.Stock > 0 {
			res, err := s.stock.Adjust(ctx, tx, repository.StockAdjustment{
				Kind:        kind,
				ProductID:   id,
				Quantity:    req.Stock,
				Direction:   repository.Increase,
				ChangeType:  model.ChangeAdd,
				Description: "Initial stock",
			})
			if err != nil {
				return err
			}
			applied = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if applied != nil {
		metrics.StockAdjustments.WithLabelValues(string(kind), string(model.ChangeAdd)).Inc()
	}
	product, err := s.products.FindSnapshot(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("kind", string(kind)).Uint("product_id", id).Int("stock", product.Stock).
		Str("user", actor.Email).Msg("product created")
	s.notify("product_created", product, actor, fmt.Sprintf("%s created product '%s'", actor.Name, product.Name))
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, kind model.ProductKind, id uint, req *UpdateProductRequest, actor model.Actor) (*model.ProductSnapshot, error) {
	if !kind.Valid() {
		return nil, repository.ErrProductNotFound
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_at": time.Now()}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Price != nil {
		fields["price"] = *req.Price
	}
	switch kind {
	case model.KindLaptop:
		if req.Brand != nil {
			fields["brand"] = *req.Brand
		}
		if req.Category != nil {
			if name := strings.TrimSpace(*req.Category); name == "" {
				fields["category_id"] = nil
			} else {
				category, err := s.products.EnsureCategory(ctx, name)
				if err != nil {
					return nil, err
				}
				fields["category_id"] = category.ID
			}
		}
	case model.KindAccessory:
		if req.Category != nil {
			fields["category"] = *req.Category
		}
	}

	if err := s.products.UpdateDetails(ctx, kind, id, fields); err != nil {
		return nil, err
	}
	if err := s.cache.Delete(ctx, productCacheKey(kind, id)); err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Uint("product_id", id).Msg("product cache invalidation failed")
	}

	product, err := s.products.FindSnapshot(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.notify("product_updated", product, actor, fmt.Sprintf("%s updated product '%s'", actor.Name, product.Name))
	return product, nil
}

// AdjustStock applies a manual restock (positive delta) or write-off (negative
// delta) in its own transaction.
func (s *catalogService) AdjustStock(ctx context.Context, kind model.ProductKind, id uint, req *StockAdjustRequest, actor model.Actor) (*repository.AdjustResult, error) {
	if !kind.Valid() {
		return nil, repository.ErrProductNotFound
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	adj := repository.StockAdjustment{
		Kind:        kind,
		ProductID:   id,
		Quantity:    req.Delta,
		Direction:   repository.Increase,
		ChangeType:  model.ChangeAdd,
		Description: req.Note,
	}
	if req.Delta < 0 {
		adj.Quantity = -req.Delta
		adj.Direction = repository.Decrease
		adj.ChangeType = model.ChangeRemove
	}
	if adj.Description == "" {
		if adj.Direction == repository.Increase {
			adj.Description = "Manual restock"
		} else {
			adj.Description = "Manual adjustment"
		}
	}
	adj.Description = fmt.Sprintf("%s (by %s)", adj.Description, actor.Name)

	res, err := s.stock.Adjust(ctx, nil, adj)
	if err != nil {
		return nil, err
	}
	metrics.StockAdjustments.WithLabelValues(string(kind), string(adj.ChangeType)).Inc()

	s.log.Info().Str("kind", string(kind)).Uint("product_id", id).Str("direction", string(adj.Direction)).
		Int("quantity", adj.Quantity).Int("new_stock", res.NewStock).Str("user", actor.Email).Msg("stock adjusted")

	if s.hub != nil {
		s.hub.Send(map[string]interface{}{
			"type":   "stock_update",
			"action": "stock_adjusted",
			"product": map[string]interface{}{
				"id":           id,
				"product_type": kind,
				"new_stock":    res.NewStock,
			},
			"user":    actor,
			"message": fmt.Sprintf("%s adjusted stock by %d", actor.Name, req.Delta),
		})
	}
	if err := s.publisher.Publish(ctx, events.Event{
		Type:  events.StockAdjusted,
		Key:   fmt.Sprintf("%s:%d", kind, id),
		Actor: &actor,
		Data:  res.Log,
	}); err != nil {
		s.log.Error().Err(err).Uint("product_id", id).Msg("stock adjusted event not published")
	}
	return res, nil
}

func (s *catalogService) StockLogs(ctx context.Context, filter repository.StockLogFilter) ([]model.StockLog, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, validationFailed("Validation failed", &validator.ErrorResponse{FailedField: "product_type", Tag: "oneof", Value: "laptop accessory"})
	}
	return s.stock.ListLogs(ctx, filter)
}

// Details returns the current catalog details for the given ids, served from
// Redis when possible. Ids that no longer exist are absent from the result.
func (s *catalogService) Details(ctx context.Context, kind model.ProductKind, ids []uint) (map[uint]model.ProductDetails, error) {
	result := make(map[uint]model.ProductDetails, len(ids))
	var misses []uint
	for _, id := range ids {
		var d model.ProductDetails
		if s.cache.Get(ctx, productCacheKey(kind, id), &d) {
			result[id] = d
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	snapshots, err := s.products.FindSnapshots(ctx, kind, misses)
	if err != nil {
		return nil, err
	}
	for id, snap := range snapshots {
		d := snap.Details()
		result[id] = d
		if err := s.cache.Set(ctx, productCacheKey(kind, id), d, productCacheTTL); err != nil {
			s.log.Debug().Err(err).Msg("product cache write failed")
		}
	}
	return result, nil
}

func (s *catalogService) notify(action string, product *model.ProductSnapshot, actor model.Actor, message string) {
	if s.hub == nil {
		return
	}
	s.hub.Send(map[string]interface{}{
		"type":    "stock_update",
		"action":  action,
		"product": product,
		"user":    actor,
		"message": message,
	})
}
