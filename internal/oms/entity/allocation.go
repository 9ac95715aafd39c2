package entity

import (
	"time"
)

// AllocationRecord 已提交的配货记录。提交后不再变更，
// 与批次扣减在同一事务内写入。
type AllocationRecord struct {
	ID          string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID     string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductName string    `json:"product_name" gorm:"size:128;not null"`
	BatchID     string    `json:"batch_id" gorm:"type:uuid;not null;index"`
	BatchNo     string    `json:"batch_no" gorm:"size:50"`
	AllocQty    int       `json:"alloc_qty" gorm:"not null"`
	Rate        float64   `json:"rate" gorm:"type:decimal(12,4);default:0"`
	CreatedBy   string    `json:"created_by" gorm:"size:64"`
	CreatedAt   time.Time `json:"created_at"`
}

func (AllocationRecord) TableName() string {
	return "oms_allocation_records"
}
