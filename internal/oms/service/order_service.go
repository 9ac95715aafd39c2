package service

import (
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"github.com/bitfantasy/nimo-oms/internal/oms/repository"
	"github.com/google/uuid"
)

// OrderService 订单的创建与读取。状态迁移一律走 FulfillmentService。
type OrderService struct {
	orderRepo *repository.OrderRepository
	allocRepo *repository.AllocationRepository
}

func NewOrderService(orderRepo *repository.OrderRepository, allocRepo *repository.AllocationRepository) *OrderService {
	return &OrderService{orderRepo: orderRepo, allocRepo: allocRepo}
}

type CreateOrderRequest struct {
	DistributorID string            `json:"distributor_id" binding:"required"`
	Notes         string            `json:"notes"`
	Lines         []CreateOrderLine `json:"lines" binding:"required,min=1,dive"`
}

type CreateOrderLine struct {
	ProductName   string  `json:"product_name" binding:"required"`
	OrderedQtyPcs int     `json:"ordered_qty_pcs" binding:"required,gte=1"`
	Rate          float64 `json:"rate" binding:"gte=0"`
}

func (s *OrderService) Create(req CreateOrderRequest, userID string) (*entity.InboundOrder, error) {
	orderNo := fmt.Sprintf("ORD-%s%04d", time.Now().Format("20060102"), time.Now().UnixNano()%10000)

	order := &entity.InboundOrder{
		ID:            uuid.New().String(),
		OrderNo:       orderNo,
		DistributorID: req.DistributorID,
		Status:        entity.StatusCreated,
		PaymentStatus: entity.PaymentStatusUnpaid,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}

	var lines []entity.OrderLine
	for _, line := range req.Lines {
		lines = append(lines, entity.OrderLine{
			ID:            uuid.New().String(),
			OrderID:       order.ID,
			ProductName:   line.ProductName,
			OrderedQtyPcs: line.OrderedQtyPcs,
			Rate:          line.Rate,
		})
	}
	order.Lines = lines

	if err := s.orderRepo.Create(order); err != nil {
		return nil, fmt.Errorf("创建订单失败: %w", err)
	}
	return order, nil
}

// Get 订单详情；到达PACKED后附带已提交的配货记录
func (s *OrderService) Get(id string) (*entity.InboundOrder, []entity.AllocationRecord, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, nil, fmt.Errorf("订单不存在: %w", err)
	}
	var allocations []entity.AllocationRecord
	if order.Status.ReachedStage(entity.StatusPacked) {
		allocations, err = s.allocRepo.ListByOrder(id)
		if err != nil {
			return nil, nil, fmt.Errorf("读取配货记录失败: %w", err)
		}
	}
	return order, allocations, nil
}

func (s *OrderService) List(params repository.OrderListParams) ([]entity.InboundOrder, int64, error) {
	return s.orderRepo.List(params)
}

type PaymentRequest struct {
	PaidAmount float64 `json:"paid_amount" binding:"required,gt=0"`
	UTRNo      string  `json:"utr_no" binding:"required"`
}

// RecordPayment 登记付款凭证（金额+UTR），等待操作员核验
func (s *OrderService) RecordPayment(id string, req PaymentRequest) error {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return fmt.Errorf("订单不存在: %w", err)
	}
	if order.PaymentVerified {
		return &GuardViolation{Condition: "payment already verified"}
	}
	if order.Status.ReachedStage(entity.StatusPacked) || order.Status.IsTerminal() {
		return &GuardViolation{Condition: fmt.Sprintf("cannot record payment in status %s", order.Status)}
	}
	return s.orderRepo.UpdateFields(id, map[string]interface{}{
		"payment_status": entity.PaymentStatusPaid,
		"paid_amount":    req.PaidAmount,
		"utr_no":         req.UTRNo,
	})
}
