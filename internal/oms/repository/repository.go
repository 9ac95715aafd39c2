package repository

import "gorm.io/gorm"

// Repositories OMS 仓库集合
type Repositories struct {
	Order      *OrderRepository
	Batch      *BatchRepository
	Allocation *AllocationRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Order:      NewOrderRepository(db),
		Batch:      NewBatchRepository(db),
		Allocation: NewAllocationRepository(db),
	}
}
