package repository

import (
	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"gorm.io/gorm"
)

type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// CreateAll 批量写入配货记录（与批次扣减同事务）
func (r *AllocationRepository) CreateAll(tx *gorm.DB, records []entity.AllocationRecord) error {
	if len(records) == 0 {
		return nil
	}
	return tx.Create(&records).Error
}

func (r *AllocationRepository) ListByOrder(orderID string) ([]entity.AllocationRecord, error) {
	var records []entity.AllocationRecord
	err := r.db.Where("order_id = ?", orderID).
		Order("product_name ASC, batch_no ASC").
		Find(&records).Error
	return records, err
}
