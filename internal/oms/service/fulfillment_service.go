package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"github.com/bitfantasy/nimo-oms/internal/oms/events"
	"github.com/bitfantasy/nimo-oms/internal/oms/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FulfillmentService 履约编排：串联 规划 -> 校验 -> 状态机 -> 提交。
// 三个操作员动作（核验付款、提交配货、登记发货）各自是一个事务单元，
// 任何校验失败都发生在写入之前，不留部分提交。
type FulfillmentService struct {
	orderRepo *repository.OrderRepository
	batchRepo *repository.BatchRepository
	allocRepo *repository.AllocationRepository
	catalog   *CatalogService
	publisher *events.Publisher
	db        *gorm.DB
}

func NewFulfillmentService(
	orderRepo *repository.OrderRepository,
	batchRepo *repository.BatchRepository,
	allocRepo *repository.AllocationRepository,
	catalog *CatalogService,
	publisher *events.Publisher,
	db *gorm.DB,
) *FulfillmentService {
	return &FulfillmentService{
		orderRepo: orderRepo,
		batchRepo: batchRepo,
		allocRepo: allocRepo,
		catalog:   catalog,
		publisher: publisher,
		db:        db,
	}
}

// ProposePlan 生成配货建议。只读：基于批次目录快照，提交时会重新核对。
func (s *FulfillmentService) ProposePlan(ctx context.Context, orderID string) ([]AllocationLine, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("订单不存在: %w", err)
	}
	if order.Status.ReachedStage(entity.StatusPacked) {
		return nil, &GuardViolation{Condition: "order already packed or later"}
	}
	products := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		products = append(products, line.ProductName)
	}
	batches, err := s.catalog.ListAvailable(ctx, order.DistributorID, products)
	if err != nil {
		return nil, err
	}
	return PlanAllocation(order.Lines, batches), nil
}

// ReassignLine 无状态的方案编辑：用当前目录快照把某行改绑到指定批次，
// 返回编辑后的方案。是否超用留给提交时的权威校验。
func (s *FulfillmentService) ReassignLine(ctx context.Context, orderID string, plan []AllocationLine, lineIndex int, batchID string) ([]AllocationLine, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("订单不存在: %w", err)
	}
	batches, err := s.catalog.ListAvailable(ctx, order.DistributorID, nil)
	if err != nil {
		return nil, err
	}
	if err := ReassignBatch(plan, lineIndex, batchID, batches); err != nil {
		return nil, err
	}
	return plan, nil
}

// VerifyPayment 核验付款凭证并进入 PAYMENT_VERIFIED。
// 前置条件：已付款、未核验过、未到PACKED阶段、操作员显式确认。
func (s *FulfillmentService) VerifyPayment(ctx context.Context, orderID string, confirm bool, userID string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("订单不存在: %w", err)
	}
	if !confirm {
		return &GuardViolation{Condition: "operator confirmation required"}
	}
	if order.Status.ReachedStage(entity.StatusPacked) {
		return &GuardViolation{Condition: "order already packed or later"}
	}
	if order.PaymentStatus != entity.PaymentStatusPaid {
		return &GuardViolation{Condition: "payment status is UNPAID"}
	}
	if order.PaymentVerified {
		return &GuardViolation{Condition: "payment already verified"}
	}
	if !order.Status.CanTransition(entity.StatusPaymentVerified) {
		return &GuardViolation{Condition: fmt.Sprintf("cannot verify payment in status %s", order.Status)}
	}

	now := time.Now()
	err = s.orderRepo.UpdateStatusCAS(s.db.WithContext(ctx), orderID, order.Status, entity.StatusPaymentVerified, map[string]interface{}{
		"payment_verified":    true,
		"payment_verified_by": userID,
		"payment_verified_at": now,
	})
	if errors.Is(err, repository.ErrStaleStatus) {
		return &ConcurrentConflict{Reason: "order status already advanced"}
	}
	return err
}

// CommitAllocation 提交配货方案：在一个事务内锁定订单与批次、
// 用权威数量重新校验、条件扣减批次、写配货记录、状态进入 PACKED。
// 校验失败时不写任何数据，错误整体返回。
func (s *FulfillmentService) CommitAllocation(ctx context.Context, orderID string, lines []AllocationLine, confirm bool, userID string) error {
	if !confirm {
		return &GuardViolation{Condition: "operator confirmation required"}
	}

	var order *entity.InboundOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(tx, orderID)
		if err != nil {
			return fmt.Errorf("订单不存在: %w", err)
		}
		if order.Status != entity.StatusPaymentVerified {
			if order.Status.ReachedStage(entity.StatusPacked) {
				return &ConcurrentConflict{Reason: "order already packed"}
			}
			return &GuardViolation{Condition: fmt.Sprintf("order status is %s, expected PAYMENT_VERIFIED", order.Status)}
		}

		// 固定顺序加锁，避免并发提交互相死锁
		batchIDs := boundBatchIDs(lines)
		var authoritative []entity.InventoryBatch
		if len(batchIDs) > 0 {
			locked, err := s.batchRepo.GetByIDsForUpdate(tx, batchIDs)
			if err != nil {
				return fmt.Errorf("读取批次失败: %w", err)
			}
			// 其他分销商的批次一律视为未知
			for _, b := range locked {
				if b.DistributorID == order.DistributorID {
					authoritative = append(authoritative, b)
				}
			}
		}

		result := ValidateAllocation(order.Lines, lines, authoritative)
		if !result.OK {
			return &AllocationIncomplete{Errors: result.Errors, Missing: result.Missing}
		}

		used := make(map[string]int)
		for _, line := range lines {
			if line.BatchID != "" {
				used[line.BatchID] += line.AllocQty
			}
		}
		for _, id := range batchIDs {
			if used[id] <= 0 {
				continue
			}
			if err := s.batchRepo.DecrementQty(tx, id, used[id]); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return &ConcurrentConflict{Reason: "batch stock depleted by concurrent commit"}
				}
				return fmt.Errorf("扣减批次失败: %w", err)
			}
		}

		now := time.Now()
		var records []entity.AllocationRecord
		for _, line := range lines {
			if line.BatchID == "" || line.AllocQty == 0 {
				continue
			}
			records = append(records, entity.AllocationRecord{
				ID:          uuid.New().String(),
				OrderID:     orderID,
				ProductName: line.ProductName,
				BatchID:     line.BatchID,
				BatchNo:     line.BatchNo,
				AllocQty:    line.AllocQty,
				Rate:        line.Rate,
				CreatedBy:   userID,
				CreatedAt:   now,
			})
		}
		if err := s.allocRepo.CreateAll(tx, records); err != nil {
			return fmt.Errorf("写入配货记录失败: %w", err)
		}

		if err := s.orderRepo.UpdateStatusCAS(tx, orderID, entity.StatusPaymentVerified, entity.StatusPacked, nil); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return &ConcurrentConflict{Reason: "order status already advanced"}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.catalog.Invalidate(ctx, order.DistributorID)
	s.publisher.Publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderPacked,
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		DistributorID: order.DistributorID,
		Status:        string(entity.StatusPacked),
	})
	return nil
}

// RecordDispatch 登记发货：按发货方式校验表单，字段写入与
// PACKED -> DISPATCHED 状态迁移在同一事务内完成。
func (s *FulfillmentService) RecordDispatch(ctx context.Context, orderID string, payload DispatchPayload, userID string) error {
	if err := ValidateDispatch(payload); err != nil {
		return err
	}
	dispatchDate := time.Now()
	if payload.DispatchDate != "" {
		t, err := time.Parse("2006-01-02", payload.DispatchDate)
		if err != nil {
			return fmt.Errorf("发货日期格式错误: %w", err)
		}
		dispatchDate = t
	}

	var order *entity.InboundOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.orderRepo.GetByIDForUpdate(tx, orderID)
		if err != nil {
			return fmt.Errorf("订单不存在: %w", err)
		}
		if order.Status != entity.StatusPacked {
			if order.Status.ReachedStage(entity.StatusDispatched) {
				return &ConcurrentConflict{Reason: "order already dispatched"}
			}
			return &GuardViolation{Condition: fmt.Sprintf("order status is %s, expected PACKED", order.Status)}
		}

		updates := map[string]interface{}{
			"shipping_mode":    payload.ShippingMode,
			"courier_name":     payload.CourierName,
			"transport_name":   payload.TransportName,
			"lr_no":            payload.LRNo,
			"tracking_no":      payload.TrackingNo,
			"tracking_carrier": payload.TrackingCarrier,
			"dispatch_date":    dispatchDate,
			"dispatched_by":    userID,
		}
		if payload.Notes != "" {
			updates["notes"] = payload.Notes
		}
		if err := s.orderRepo.UpdateStatusCAS(tx, orderID, entity.StatusPacked, entity.StatusDispatched, updates); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return &ConcurrentConflict{Reason: "order status already advanced"}
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.OrderEvent{
		Type:          events.TypeOrderDispatched,
		OrderID:       order.ID,
		OrderNo:       order.OrderNo,
		DistributorID: order.DistributorID,
		Status:        string(entity.StatusDispatched),
	})
	return nil
}

// Confirm 确认订单 CREATED -> CONFIRMED
func (s *FulfillmentService) Confirm(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, entity.StatusCreated, entity.StatusConfirmed)
}

// MarkInTransit 物流更新：DISPATCHED -> IN_TRANSIT
func (s *FulfillmentService) MarkInTransit(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, entity.StatusDispatched, entity.StatusInTransit)
}

// MarkDelivered 物流更新：IN_TRANSIT -> DELIVERED
func (s *FulfillmentService) MarkDelivered(ctx context.Context, orderID string) error {
	return s.advance(ctx, orderID, entity.StatusInTransit, entity.StatusDelivered)
}

// Cancel 取消订单。只允许 DISPATCHED 之前；已提交的批次扣减不自动回补
// （退货/冲正属于独立流程）。
func (s *FulfillmentService) Cancel(ctx context.Context, orderID string) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("订单不存在: %w", err)
	}
	if !order.Status.CanTransition(entity.StatusCancelled) {
		return &GuardViolation{Condition: fmt.Sprintf("cannot cancel order in status %s", order.Status)}
	}
	err = s.orderRepo.UpdateStatusCAS(s.db.WithContext(ctx), orderID, order.Status, entity.StatusCancelled, nil)
	if errors.Is(err, repository.ErrStaleStatus) {
		return &ConcurrentConflict{Reason: "order status already advanced"}
	}
	return err
}

func (s *FulfillmentService) advance(ctx context.Context, orderID string, from, to entity.OrderStatus) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return fmt.Errorf("订单不存在: %w", err)
	}
	if order.Status != from {
		return &GuardViolation{Condition: fmt.Sprintf("order status is %s, expected %s", order.Status, from)}
	}
	err = s.orderRepo.UpdateStatusCAS(s.db.WithContext(ctx), orderID, from, to, nil)
	if errors.Is(err, repository.ErrStaleStatus) {
		return &ConcurrentConflict{Reason: "order status already advanced"}
	}
	return err
}

// boundBatchIDs 去重并排序已绑定批次ID
func boundBatchIDs(lines []AllocationLine) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, line := range lines {
		if line.BatchID != "" && !seen[line.BatchID] {
			seen[line.BatchID] = true
			ids = append(ids, line.BatchID)
		}
	}
	sort.Strings(ids)
	return ids
}
