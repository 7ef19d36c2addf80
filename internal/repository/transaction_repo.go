package repository

import (
	"context"
	"time"

	"go-pos-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type TransactionFilter struct {
	CashierID     *uuid.UUID
	PaymentMethod model.PaymentMethod
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	Limit         int
}

// Normalize applies the paging defaults.
func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageLimit
	}
	if f.Limit > maxPageLimit {
		f.Limit = maxPageLimit
	}
}

type TransactionRepository interface {
	CreateHeader(tx *gorm.DB, t *model.Transaction) error
	CreateItem(tx *gorm.DB, item *model.TransactionItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	LockForVoid(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error)
	DeleteWithItems(tx *gorm.DB, id uuid.UUID) error
	Archive(tx *gorm.DB, voided *model.VoidedTransaction) error
	FindAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error)
	TodayStats(ctx context.Context, since time.Time) (*model.TodayStats, error)
	FindOrphans(ctx context.Context, createdBefore time.Time) ([]model.Transaction, error)
	DeleteOrphan(ctx context.Context, id uuid.UUID) (bool, error)
}

type transactionRepo struct {
	db *gorm.DB
}

func NewTransactionRepo(db *gorm.DB) TransactionRepository {
	return &transactionRepo{db}
}

func (r *transactionRepo) CreateHeader(tx *gorm.DB, t *model.Transaction) error {
	return classify("insert transaction", tx.Omit(clause.Associations).Create(t).Error)
}

func (r *transactionRepo) CreateItem(tx *gorm.DB, item *model.TransactionItem) error {
	return classify("insert transaction item", tx.Create(item).Error)
}

func (r *transactionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := r.db.WithContext(ctx).
		Preload("Cashier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&transaction, "id = ?", id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, classify("find transaction", err)
	}
	return &transaction, nil
}

// LockForVoid loads the header with FOR UPDATE so concurrent voids of the same
// transaction serialize on the row.
func (r *transactionRepo) LockForVoid(tx *gorm.DB, id uuid.UUID) (*model.Transaction, error) {
	var transaction model.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&transaction, "id = ?", id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTransactionNotFound
		}
		return nil, classify("lock transaction", err)
	}
	if err := tx.Where("transaction_id = ?", id).Order("created_at ASC, id ASC").Find(&transaction.Items).Error; err != nil {
		return nil, classify("load transaction items", err)
	}
	return &transaction, nil
}

// DeleteWithItems removes the header and its items. Losing the race to
// another delete surfaces as ErrTransactionNotFound.
func (r *transactionRepo) DeleteWithItems(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("transaction_id = ?", id).Delete(&model.TransactionItem{}).Error; err != nil {
		return classify("delete transaction items", err)
	}
	res := tx.Where("id = ?", id).Delete(&model.Transaction{})
	if res.Error != nil {
		return classify("delete transaction", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *transactionRepo) Archive(tx *gorm.DB, voided *model.VoidedTransaction) error {
	return classify("archive voided transaction", tx.Create(voided).Error)
}

func (r *transactionRepo) FindAll(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	filter.Normalize()

	query := r.db.WithContext(ctx).Model(&model.Transaction{})
	if filter.CashierID != nil {
		query = query.Where("cashier_id = ?", *filter.CashierID)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}

	var transactions []model.Transaction
	err := query.
		Preload("Cashier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&transactions).Error
	return transactions, classify("list transactions", err)
}

func (r *transactionRepo) TodayStats(ctx context.Context, since time.Time) (*model.TodayStats, error) {
	var row struct {
		Total decimal.Decimal
		Count int64
	}
	err := r.db.WithContext(ctx).Model(&model.Transaction{}).
		Select("COALESCE(SUM(total_price), 0) AS total, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Scan(&row).Error
	if err != nil {
		return nil, classify("today stats", err)
	}

	stats := &model.TodayStats{TotalSales: row.Total, TotalTransactions: row.Count, AverageTransaction: decimal.Zero}
	if row.Count > 0 {
		stats.AverageTransaction = row.Total.Div(decimal.NewFromInt(row.Count)).Round(2)
	}
	return stats, nil
}

// FindOrphans returns headers that have no items and are older than the cutoff.
func (r *transactionRepo) FindOrphans(ctx context.Context, createdBefore time.Time) ([]model.Transaction, error) {
	var orphans []model.Transaction
	err := r.db.WithContext(ctx).
		Where("created_at < ?", createdBefore).
		Where("NOT EXISTS (SELECT 1 FROM transaction_items ti WHERE ti.transaction_id = transactions.id)").
		Find(&orphans).Error
	return orphans, classify("find orphan transactions", err)
}

// DeleteOrphan deletes the header only if it still has no items.
func (r *transactionRepo) DeleteOrphan(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Where("NOT EXISTS (SELECT 1 FROM transaction_items ti WHERE ti.transaction_id = transactions.id)").
		Delete(&model.Transaction{})
	if res.Error != nil {
		return false, classify("delete orphan transaction", res.Error)
	}
	return res.RowsAffected > 0, nil
}
