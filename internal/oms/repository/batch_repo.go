package repository

import (
	"errors"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock 条件扣减未命中：提交时批次库存已不足
var ErrInsufficientStock = errors.New("batch quantity depleted concurrently")

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(batch *entity.InventoryBatch) error {
	return r.db.Create(batch).Error
}

func (r *BatchRepository) GetByID(id string) (*entity.InventoryBatch, error) {
	var batch entity.InventoryBatch
	err := r.db.Where("id = ? AND deleted_at IS NULL", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListAvailable 指定分销商+产品集合下有余量的批次（咨询性快照，提交时会重新核对）
func (r *BatchRepository) ListAvailable(distributorID string, products []string) ([]entity.InventoryBatch, error) {
	query := r.db.Where("distributor_id = ? AND qty_on_hand > 0 AND deleted_at IS NULL", distributorID)
	if len(products) > 0 {
		query = query.Where("product_name IN ?", products)
	}
	var batches []entity.InventoryBatch
	err := query.Order("product_name ASC, expiry_date ASC NULLS LAST, batch_no ASC").Find(&batches).Error
	return batches, err
}

// GetByIDsForUpdate 在事务内加行锁读取批次，作为提交校验的权威数量
func (r *BatchRepository) GetByIDsForUpdate(tx *gorm.DB, ids []string) ([]entity.InventoryBatch, error) {
	var batches []entity.InventoryBatch
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ? AND deleted_at IS NULL", ids).
		Order("id ASC").
		Find(&batches).Error
	return batches, err
}

// DecrementQty 条件扣减：qty_on_hand >= qty 才生效，防止并发提交超卖
func (r *BatchRepository) DecrementQty(tx *gorm.DB, batchID string, qty int) error {
	res := tx.Model(&entity.InventoryBatch{}).
		Where("id = ? AND qty_on_hand >= ?", batchID, qty).
		Update("qty_on_hand", gorm.Expr("qty_on_hand - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// DB 返回底层db用于事务
func (r *BatchRepository) DB() *gorm.DB {
	return r.db
}
