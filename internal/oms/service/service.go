package service

import (
	"github.com/bitfantasy/nimo-oms/internal/oms/events"
	"github.com/bitfantasy/nimo-oms/internal/oms/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services OMS 服务集合
type Services struct {
	Order       *OrderService
	Catalog     *CatalogService
	Fulfillment *FulfillmentService
}

func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client, publisher *events.Publisher) *Services {
	catalog := NewCatalogService(repos.Batch, rdb)
	return &Services{
		Order:       NewOrderService(repos.Order, repos.Allocation),
		Catalog:     catalog,
		Fulfillment: NewFulfillmentService(repos.Order, repos.Batch, repos.Allocation, catalog, publisher, db),
	}
}
