package entity

import (
	"time"
)

// InventoryBatch 库存批次。QtyOnHand 是全局共享的可变资源，
// 扣减必须通过条件更新完成（见 repository.BatchRepository.DecrementQty）。
type InventoryBatch struct {
	ID            string     `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	DistributorID string     `json:"distributor_id" gorm:"type:uuid;not null;index"`
	ProductName   string     `json:"product_name" gorm:"size:128;not null;index"`
	BatchNo       string     `json:"batch_no" gorm:"size:50;not null"`
	MfgDate       *time.Time `json:"mfg_date"`
	ExpiryDate    *time.Time `json:"expiry_date"` // 空=无保质期，排序时放最后
	QtyOnHand     int        `json:"qty_on_hand" gorm:"not null;default:0"`
	UnitCost      float64    `json:"unit_cost" gorm:"type:decimal(12,4);default:0"`
	CreatedBy     string     `json:"created_by" gorm:"size:64"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at" gorm:"index"`
}

func (InventoryBatch) TableName() string {
	return "oms_inventory_batches"
}
