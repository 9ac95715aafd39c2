package repository

import (
	"errors"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleStatus 状态CAS更新未命中：订单状态已被并发请求推进
var ErrStaleStatus = errors.New("order status changed concurrently")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(order *entity.InboundOrder) error {
	return r.db.Create(order).Error
}

// GetByID 获取订单及明细行
func (r *OrderRepository) GetByID(id string) (*entity.InboundOrder, error) {
	var order entity.InboundOrder
	err := r.db.Preload("Lines").
		Where("id = ? AND deleted_at IS NULL", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByIDForUpdate 在事务内加行锁读取订单
func (r *OrderRepository) GetByIDForUpdate(tx *gorm.DB, id string) (*entity.InboundOrder, error) {
	var order entity.InboundOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Where("order_id = ?", id).Order("created_at ASC").Find(&order.Lines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusCAS 带状态前置条件的更新：WHERE status = from，
// 未命中说明并发请求已推进状态，返回 ErrStaleStatus。
func (r *OrderRepository) UpdateStatusCAS(tx *gorm.DB, id string, from, to entity.OrderStatus, updates map[string]interface{}) error {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to
	res := tx.Model(&entity.InboundOrder{}).
		Where("id = ? AND status = ? AND deleted_at IS NULL", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// UpdateFields 按ID更新指定字段（不涉及状态迁移）
func (r *OrderRepository) UpdateFields(id string, updates map[string]interface{}) error {
	return r.db.Model(&entity.InboundOrder{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(updates).Error
}

type OrderListParams struct {
	DistributorID string
	Status        string
	Keyword       string
	Page          int
	Size          int
}

func (r *OrderRepository) List(params OrderListParams) ([]entity.InboundOrder, int64, error) {
	query := r.db.Model(&entity.InboundOrder{}).Where("deleted_at IS NULL")
	if params.DistributorID != "" {
		query = query.Where("distributor_id = ?", params.DistributorID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("order_no ILIKE ? OR utr_no ILIKE ?", kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var orders []entity.InboundOrder
	err := query.Preload("Lines").Order("created_at DESC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&orders).Error
	return orders, total, err
}

// DB 返回底层db用于事务
func (r *OrderRepository) DB() *gorm.DB {
	return r.db
}
