package repository

import (
	"context"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Direction string

const (
	Decrease Direction = "decrease"
	Increase Direction = "increase"
)

// StockAdjustment is one request to the stock mutator.
type StockAdjustment struct {
	Kind        model.ProductKind
	ProductID   uint
	Quantity    int
	Direction   Direction
	ChangeType  model.ChangeType
	Description string
	// Reference, when set, makes the adjustment idempotent: a second call
	// with the same reference is a no-op.
	Reference string
}

type AdjustResult struct {
	Applied  bool
	NewStock int
	Log      *model.StockLog
}

type StockLogFilter struct {
	Kind      model.ProductKind
	ProductID uint
	Limit     int
}

// StockBalance is the stock derived by replaying the audit trail.
type StockBalance struct {
	ProductType model.ProductKind
	ProductID   uint
	Balance     int
}

// StockMovementData untuk chart data
type StockMovementData struct {
	Date     string `json:"date"`
	Inbound  int    `json:"inbound"`
	Outbound int    `json:"outbound"`
}

type StockRepository interface {
	Adjust(ctx context.Context, tx *gorm.DB, adj StockAdjustment) (*AdjustResult, error)
	CurrentStock(ctx context.Context, tx *gorm.DB, kind model.ProductKind, id uint) (int, error)
	ListLogs(ctx context.Context, filter StockLogFilter) ([]model.StockLog, error)
	Balances(ctx context.Context) ([]StockBalance, error)
	GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error)
}

type stockRepo struct {
	db *gorm.DB
}

func NewStockRepo(db *gorm.DB) StockRepository {
	return &stockRepo{db}
}

type stockRow struct {
	Name  string
	Stock int
}

// Adjust applies one conditional stock change together with its log entry.
// Called with a nil tx it runs in its own transaction; otherwise it joins the
// caller's transaction so the change commits or rolls back with it.
func (r *stockRepo) Adjust(ctx context.Context, tx *gorm.DB, adj StockAdjustment) (*AdjustResult, error) {
	if !adj.Kind.Valid() {
		return nil, errors.Wrapf(ErrProductNotFound, "unknown product kind %q", adj.Kind)
	}
	if adj.Quantity <= 0 {
		return nil, errors.Errorf("stock adjustment quantity must be positive, got %d", adj.Quantity)
	}
	if adj.Direction != Decrease && adj.Direction != Increase {
		return nil, errors.Errorf("unknown stock direction %q", adj.Direction)
	}

	if tx == nil {
		var result *AdjustResult
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = r.adjust(tx, adj)
			return err
		})
		return result, err
	}
	return r.adjust(tx.WithContext(ctx), adj)
}

func (r *stockRepo) adjust(tx *gorm.DB, adj StockAdjustment) (*AdjustResult, error) {
	entry := &model.StockLog{
		ProductType: adj.Kind,
		ProductID:   adj.ProductID,
		ChangeType:  adj.ChangeType,
		Quantity:    adj.Quantity,
		Description: adj.Description,
	}

	// Claim the reference first; a conflict means this change already happened.
	if adj.Reference != "" {
		ref := adj.Reference
		entry.Reference = &ref
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if res.Error != nil {
			return nil, classify("insert stock log", res.Error)
		}
		if res.RowsAffected == 0 {
			row, err := r.readRow(tx, adj.Kind, adj.ProductID)
			if err != nil {
				return nil, err
			}
			return &AdjustResult{Applied: false, NewStock: row.Stock}, nil
		}
	}

	table := adj.Kind.Table()
	var res *gorm.DB
	if adj.Direction == Decrease {
		// The guard is evaluated by the database, so two sales of the last unit
		// cannot both succeed.
		res = tx.Table(table).
			Where("id = ? AND stock >= ?", adj.ProductID, adj.Quantity).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("stock - ?", adj.Quantity),
				"updated_at": time.Now(),
			})
	} else {
		res = tx.Table(table).
			Where("id = ?", adj.ProductID).
			Updates(map[string]interface{}{
				"stock":      gorm.Expr("stock + ?", adj.Quantity),
				"updated_at": time.Now(),
			})
	}
	if res.Error != nil {
		err := classify("update stock", res.Error)
		if errors.Is(err, ErrInsufficientStock) {
			// the transaction is aborted at this point, so no follow-up read
			return nil, &InsufficientStockError{Kind: adj.Kind, ProductID: adj.ProductID, Requested: adj.Quantity}
		}
		return nil, err
	}
	if res.RowsAffected == 0 {
		if adj.Direction == Increase {
			return nil, ErrProductNotFound
		}
		return nil, r.insufficient(tx, adj)
	}

	if adj.Reference == "" {
		if err := tx.Create(entry).Error; err != nil {
			return nil, classify("insert stock log", err)
		}
	}

	row, err := r.readRow(tx, adj.Kind, adj.ProductID)
	if err != nil {
		return nil, err
	}
	return &AdjustResult{Applied: true, NewStock: row.Stock, Log: entry}, nil
}

// insufficient builds the refusal error, or ErrProductNotFound when the row is missing.
func (r *stockRepo) insufficient(tx *gorm.DB, adj StockAdjustment) error {
	row, err := r.readRow(tx, adj.Kind, adj.ProductID)
	if err != nil {
		return err
	}
	return &InsufficientStockError{
		Kind:      adj.Kind,
		ProductID: adj.ProductID,
		Name:      row.Name,
		Requested: adj.Quantity,
		Available: row.Stock,
	}
}

func (r *stockRepo) readRow(tx *gorm.DB, kind model.ProductKind, id uint) (*stockRow, error) {
	var row stockRow
	err := tx.Table(kind.Table()).Select("name, stock").Where("id = ?", id).Take(&row).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProductNotFound
		}
		return nil, classify("read stock", err)
	}
	return &row, nil
}

func (r *stockRepo) CurrentStock(ctx context.Context, tx *gorm.DB, kind model.ProductKind, id uint) (int, error) {
	if !kind.Valid() {
		return 0, ErrProductNotFound
	}
	if tx == nil {
		tx = r.db
	}
	row, err := r.readRow(tx.WithContext(ctx), kind, id)
	if err != nil {
		return 0, err
	}
	return row.Stock, nil
}

func (r *stockRepo) ListLogs(ctx context.Context, filter StockLogFilter) ([]model.StockLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := r.db.WithContext(ctx).Model(&model.StockLog{})
	if filter.Kind != "" {
		query = query.Where("product_type = ?", filter.Kind)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}

	var logs []model.StockLog
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&logs).Error
	return logs, classify("list stock logs", err)
}

func (r *stockRepo) Balances(ctx context.Context) ([]StockBalance, error) {
	var balances []StockBalance
	err := r.db.WithContext(ctx).Model(&model.StockLog{}).
		Select(`product_type, product_id,
			COALESCE(SUM(CASE WHEN change_type = ? THEN quantity ELSE -quantity END), 0) AS balance`, model.ChangeAdd).
		Group("product_type, product_id").
		Scan(&balances).Error
	return balances, classify("replay stock logs", err)
}

func (r *stockRepo) GetStockMovement(ctx context.Context, startDate, endDate time.Time) ([]StockMovementData, error) {
	var results []StockMovementData

	// Query untuk aggregate stock logs per hari
	rows, err := r.db.WithContext(ctx).Model(&model.StockLog{}).
		Select(`
			DATE(created_at) as date,
			COALESCE(SUM(CASE WHEN change_type = 'add' THEN quantity ELSE 0 END), 0) as inbound,
			COALESCE(SUM(CASE WHEN change_type IN ('sold', 'remove') THEN quantity ELSE 0 END), 0) as outbound
		`).
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("DATE(created_at)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, classify("stock movement", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data StockMovementData
		if err := rows.Scan(&data.Date, &data.Inbound, &data.Outbound); err != nil {
			return nil, classify("scan stock movement", err)
		}
		results = append(results, data)
	}

	return results, rows.Err()
}
