package repository

import (
	"context"

	"go-pos-ledger/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ProductRepository is the catalog side of the inventory store. Stock is
// never written here; every stock change goes through StockRepository.Adjust.
type ProductRepository interface {
	FindSnapshot(ctx context.Context, kind model.ProductKind, id uint) (*model.ProductSnapshot, error)
	FindSnapshots(ctx context.Context, kind model.ProductKind, ids []uint) (map[uint]model.ProductSnapshot, error)
	List(ctx context.Context, kind model.ProductKind, maxStock *int) ([]model.ProductSnapshot, error)
	CreateLaptop(tx *gorm.DB, laptop *model.Laptop) error
	CreateAccessory(tx *gorm.DB, accessory *model.Accessory) error
	UpdateDetails(ctx context.Context, kind model.ProductKind, id uint, fields map[string]interface{}) error
	EnsureCategory(ctx context.Context, name string) (*model.LaptopCategory, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) FindSnapshot(ctx context.Context, kind model.ProductKind, id uint) (*model.ProductSnapshot, error) {
	snapshots, err := r.FindSnapshots(ctx, kind, []uint{id})
	if err != nil {
		return nil, err
	}
	s, ok := snapshots[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &s, nil
}

func (r *productRepo) FindSnapshots(ctx context.Context, kind model.ProductKind, ids []uint) (map[uint]model.ProductSnapshot, error) {
	result := make(map[uint]model.ProductSnapshot, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	db := r.db.WithContext(ctx)
	switch kind {
	case model.KindLaptop:
		var laptops []model.Laptop
		if err := db.Preload("Category").Where("id IN ?", ids).Find(&laptops).Error; err != nil {
			return nil, classify("find laptops", err)
		}
		for i := range laptops {
			result[laptops[i].ID] = laptops[i].Snapshot()
		}
	case model.KindAccessory:
		var accessories []model.Accessory
		if err := db.Where("id IN ?", ids).Find(&accessories).Error; err != nil {
			return nil, classify("find accessories", err)
		}
		for i := range accessories {
			result[accessories[i].ID] = accessories[i].Snapshot()
		}
	default:
		return nil, errors.Wrapf(ErrProductNotFound, "unknown product kind %q", kind)
	}
	return result, nil
}

func (r *productRepo) List(ctx context.Context, kind model.ProductKind, maxStock *int) ([]model.ProductSnapshot, error) {
	db := r.db.WithContext(ctx)
	if maxStock != nil {
		db = db.Where("stock <= ?", *maxStock).Order("stock ASC")
	}
	db = db.Order("id ASC")

	var snapshots []model.ProductSnapshot
	switch kind {
	case model.KindLaptop:
		var laptops []model.Laptop
		if err := db.Preload("Category").Find(&laptops).Error; err != nil {
			return nil, classify("list laptops", err)
		}
		for i := range laptops {
			snapshots = append(snapshots, laptops[i].Snapshot())
		}
	case model.KindAccessory:
		var accessories []model.Accessory
		if err := db.Find(&accessories).Error; err != nil {
			return nil, classify("list accessories", err)
		}
		for i := range accessories {
			snapshots = append(snapshots, accessories[i].Snapshot())
		}
	default:
		return nil, errors.Wrapf(ErrProductNotFound, "unknown product kind %q", kind)
	}
	return snapshots, nil
}

// CreateLaptop menerima *gorm.DB (tx) agar bisa berjalan dalam transaksi
func (r *productRepo) CreateLaptop(tx *gorm.DB, laptop *model.Laptop) error {
	return classify("create laptop", tx.Omit("Category").Create(laptop).Error)
}

func (r *productRepo) CreateAccessory(tx *gorm.DB, accessory *model.Accessory) error {
	return classify("create accessory", tx.Create(accessory).Error)
}

func (r *productRepo) UpdateDetails(ctx context.Context, kind model.ProductKind, id uint, fields map[string]interface{}) error {
	if !kind.Valid() {
		return ErrProductNotFound
	}
	delete(fields, "stock")
	if len(fields) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Table(kind.Table()).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return classify("update product", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepo) EnsureCategory(ctx context.Context, name string) (*model.LaptopCategory, error) {
	var category model.LaptopCategory
	err := r.db.WithContext(ctx).Where(model.LaptopCategory{Name: name}).FirstOrCreate(&category).Error
	if err != nil {
		return nil, classify("ensure category", err)
	}
	return &category, nil
}
