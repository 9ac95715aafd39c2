package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有OMS表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 订单
		&InboundOrder{},
		&OrderLine{},

		// 库存
		&InventoryBatch{},

		// 配货
		&AllocationRecord{},
	)
}
