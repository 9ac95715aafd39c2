package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"github.com/bitfantasy/nimo-oms/internal/oms/repository"
	"github.com/bitfantasy/nimo-oms/internal/oms/testutil"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const testDistributorID = "7f1c3a2e-0000-4000-8000-000000000001"

func setupServices(t *testing.T) (*Services, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewServices(repos, db, nil, nil), db
}

func seedOrder(t *testing.T, db *gorm.DB, status entity.OrderStatus, lines []entity.OrderLine) *entity.InboundOrder {
	t.Helper()
	order := &entity.InboundOrder{
		ID:            uuid.New().String(),
		OrderNo:       fmt.Sprintf("ORD-TEST-%d", time.Now().UnixNano()%100000000),
		DistributorID: testDistributorID,
		Status:        status,
		PaymentStatus: entity.PaymentStatusUnpaid,
		CreatedBy:     "test-user-001",
	}
	if status.ReachedStage(entity.StatusPaymentVerified) {
		order.PaymentStatus = entity.PaymentStatusPaid
		order.PaymentVerified = true
	}
	for i := range lines {
		lines[i].ID = uuid.New().String()
		lines[i].OrderID = order.ID
	}
	order.Lines = lines
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}
	return order
}

func seedBatch(t *testing.T, db *gorm.DB, product, batchNo, expiry string, qty int) *entity.InventoryBatch {
	t.Helper()
	batch := &entity.InventoryBatch{
		ID:            uuid.New().String(),
		DistributorID: testDistributorID,
		ProductName:   product,
		BatchNo:       batchNo,
		QtyOnHand:     qty,
	}
	if expiry != "" {
		d, _ := time.Parse("2006-01-02", expiry)
		batch.ExpiryDate = &d
	}
	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("Failed to seed batch: %v", err)
	}
	return batch
}

func TestVerifyPaymentGuards(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusConfirmed, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})

	var guard *GuardViolation

	// 未显式确认
	err := svc.Fulfillment.VerifyPayment(ctx, order.ID, false, "op-01")
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation without confirmation, got %v", err)
	}

	// 未付款
	err = svc.Fulfillment.VerifyPayment(ctx, order.ID, true, "op-01")
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation for UNPAID order, got %v", err)
	}

	// 登记付款后核验成功
	if err := svc.Order.RecordPayment(order.ID, PaymentRequest{PaidAmount: 4200, UTRNo: "UTR123456"}); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if err := svc.Fulfillment.VerifyPayment(ctx, order.ID, true, "op-01"); err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}
}

func TestVerifyPaymentFlow(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusConfirmed, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})
	if err := svc.Order.RecordPayment(order.ID, PaymentRequest{PaidAmount: 4200, UTRNo: "UTR123456"}); err != nil {
		t.Fatalf("RecordPayment failed: %v", err)
	}
	if err := svc.Fulfillment.VerifyPayment(ctx, order.ID, true, "op-01"); err != nil {
		t.Fatalf("VerifyPayment failed: %v", err)
	}

	updated, _, err := svc.Order.Get(order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.Status != entity.StatusPaymentVerified {
		t.Fatalf("Expected PAYMENT_VERIFIED, got %s", updated.Status)
	}
	if !updated.PaymentVerified || updated.PaymentVerifiedBy != "op-01" || updated.PaymentVerifiedAt == nil {
		t.Fatal("Verification audit fields not recorded")
	}

	// 重复核验被拒绝
	var guard *GuardViolation
	err = svc.Fulfillment.VerifyPayment(ctx, order.ID, true, "op-02")
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation on double verification, got %v", err)
	}

	// 核验后不允许再改付款凭证
	err = svc.Order.RecordPayment(order.ID, PaymentRequest{PaidAmount: 1, UTRNo: "UTR-XX"})
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation recording payment after verification, got %v", err)
	}
}

func TestCommitAllocationHappyPath(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusPaymentVerified, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 120, Rate: 3.5},
	})
	seedBatch(t, db, "Amoxy-500", "B1", "2025-01-01", 40)
	seedBatch(t, db, "Amoxy-500", "B2", "2025-02-01", 50)
	b3 := seedBatch(t, db, "Amoxy-500", "B3", "2025-03-01", 60)

	plan, err := svc.Fulfillment.ProposePlan(ctx, order.ID)
	if err != nil {
		t.Fatalf("ProposePlan failed: %v", err)
	}
	if len(plan) != 3 {
		t.Fatalf("Expected 3 plan lines, got %d", len(plan))
	}

	if err := svc.Fulfillment.CommitAllocation(ctx, order.ID, plan, true, "op-01"); err != nil {
		t.Fatalf("CommitAllocation failed: %v", err)
	}

	updated, allocations, err := svc.Order.Get(order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.Status != entity.StatusPacked {
		t.Fatalf("Expected PACKED, got %s", updated.Status)
	}
	if len(allocations) != 3 {
		t.Fatalf("Expected 3 allocation records, got %d", len(allocations))
	}
	total := 0
	for _, a := range allocations {
		total += a.AllocQty
		if a.CreatedBy != "op-01" {
			t.Fatalf("Expected created_by op-01, got %s", a.CreatedBy)
		}
	}
	if total != 120 {
		t.Fatalf("Expected 120 pcs allocated, got %d", total)
	}

	// 批次余量已按方案扣减：40->0, 50->0, 60->30
	var remaining entity.InventoryBatch
	if err := db.Where("id = ?", b3.ID).First(&remaining).Error; err != nil {
		t.Fatalf("Failed to reload batch: %v", err)
	}
	if remaining.QtyOnHand != 30 {
		t.Fatalf("Expected B3 qty 30 after commit, got %d", remaining.QtyOnHand)
	}

	// 重复提交：状态已是PACKED，报并发冲突
	var conflict *ConcurrentConflict
	err = svc.Fulfillment.CommitAllocation(ctx, order.ID, plan, true, "op-01")
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConcurrentConflict on double commit, got %v", err)
	}
}

func TestCommitAllocationShortfallRejected(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusPaymentVerified, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 120},
	})
	b1 := seedBatch(t, db, "Amoxy-500", "B1", "2025-01-01", 100)

	plan, err := svc.Fulfillment.ProposePlan(ctx, order.ID)
	if err != nil {
		t.Fatalf("ProposePlan failed: %v", err)
	}

	var incomplete *AllocationIncomplete
	err = svc.Fulfillment.CommitAllocation(ctx, order.ID, plan, true, "op-01")
	if !errors.As(err, &incomplete) {
		t.Fatalf("Expected AllocationIncomplete, got %v", err)
	}
	if len(incomplete.Errors) != 1 || incomplete.Errors[0] != "Amoxy-500: short by 20" {
		t.Fatalf("Unexpected errors: %v", incomplete.Errors)
	}
	if len(incomplete.Missing) != 1 || incomplete.Missing[0] != "Amoxy-500" {
		t.Fatalf("Unexpected missing list: %v", incomplete.Missing)
	}

	// 校验失败不留任何写入
	updated, _, err := svc.Order.Get(order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.Status != entity.StatusPaymentVerified {
		t.Fatalf("Status must be unchanged, got %s", updated.Status)
	}
	var batch entity.InventoryBatch
	db.Where("id = ?", b1.ID).First(&batch)
	if batch.QtyOnHand != 100 {
		t.Fatalf("Batch qty must be unchanged, got %d", batch.QtyOnHand)
	}
	var count int64
	db.Model(&entity.AllocationRecord{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 0 {
		t.Fatalf("No allocation records must be written, found %d", count)
	}
}

func TestCommitAllocationStaleSnapshot(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusPaymentVerified, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 50},
	})
	b1 := seedBatch(t, db, "Amoxy-500", "B1", "2025-01-01", 50)

	plan, err := svc.Fulfillment.ProposePlan(ctx, order.ID)
	if err != nil {
		t.Fatalf("ProposePlan failed: %v", err)
	}

	// 提交前库存被并发扣走，快照失效
	if err := db.Model(&entity.InventoryBatch{}).Where("id = ?", b1.ID).
		Update("qty_on_hand", gorm.Expr("qty_on_hand - ?", 30)).Error; err != nil {
		t.Fatalf("Failed to simulate concurrent decrement: %v", err)
	}

	var incomplete *AllocationIncomplete
	err = svc.Fulfillment.CommitAllocation(ctx, order.ID, plan, true, "op-01")
	if !errors.As(err, &incomplete) {
		t.Fatalf("Expected AllocationIncomplete on stale snapshot, got %v", err)
	}
	found := false
	for _, e := range incomplete.Errors {
		if e == "B1 overused: 50 > 20" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Expected overuse error against authoritative qty, got %v", incomplete.Errors)
	}
}

func TestCommitAllocationWrongStatus(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusConfirmed, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})
	seedBatch(t, db, "Amoxy-500", "B1", "2025-01-01", 10)

	plan := []AllocationLine{}
	var guard *GuardViolation
	err := svc.Fulfillment.CommitAllocation(ctx, order.ID, plan, true, "op-01")
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation before PAYMENT_VERIFIED, got %v", err)
	}

	// 未确认直接拒绝
	err = svc.Fulfillment.CommitAllocation(ctx, order.ID, plan, false, "op-01")
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation without confirmation, got %v", err)
	}
}

func TestRecordDispatchFlow(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusPacked, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})

	// 必填缺失
	var missing *DispatchFieldMissing
	err := svc.Fulfillment.RecordDispatch(ctx, order.ID, DispatchPayload{
		ShippingMode: entity.ShippingModeCourier,
	}, "op-01")
	if !errors.As(err, &missing) {
		t.Fatalf("Expected DispatchFieldMissing, got %v", err)
	}

	err = svc.Fulfillment.RecordDispatch(ctx, order.ID, DispatchPayload{
		ShippingMode: entity.ShippingModeCourier,
		CourierName:  "BlueDart",
		TrackingNo:   "BD-90817",
		DispatchDate: "2026-08-28",
	}, "op-01")
	if err != nil {
		t.Fatalf("RecordDispatch failed: %v", err)
	}

	updated, _, err := svc.Order.Get(order.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.Status != entity.StatusDispatched {
		t.Fatalf("Expected DISPATCHED, got %s", updated.Status)
	}
	if updated.CourierName != "BlueDart" || updated.TrackingNo != "BD-90817" {
		t.Fatal("Dispatch fields not recorded")
	}
	if updated.DispatchDate == nil || updated.DispatchDate.Format("2006-01-02") != "2026-08-28" {
		t.Fatalf("Dispatch date not recorded, got %v", updated.DispatchDate)
	}
	if updated.DispatchedBy != "op-01" {
		t.Fatalf("Expected dispatched_by op-01, got %s", updated.DispatchedBy)
	}

	// 重复发货：状态已推进
	var conflict *ConcurrentConflict
	err = svc.Fulfillment.RecordDispatch(ctx, order.ID, DispatchPayload{
		ShippingMode: entity.ShippingModeSelf,
	}, "op-01")
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected ConcurrentConflict on double dispatch, got %v", err)
	}
}

func TestRecordDispatchRequiresPacked(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusPaymentVerified, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})

	var guard *GuardViolation
	err := svc.Fulfillment.RecordDispatch(ctx, order.ID, DispatchPayload{
		ShippingMode: entity.ShippingModeSelf,
	}, "op-01")
	if !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation before PACKED, got %v", err)
	}
}

func TestLogisticsProgression(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusDispatched, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})

	// 顺序必须是 DISPATCHED -> IN_TRANSIT -> DELIVERED
	var guard *GuardViolation
	if err := svc.Fulfillment.MarkDelivered(ctx, order.ID); !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation skipping IN_TRANSIT, got %v", err)
	}
	if err := svc.Fulfillment.MarkInTransit(ctx, order.ID); err != nil {
		t.Fatalf("MarkInTransit failed: %v", err)
	}
	if err := svc.Fulfillment.MarkDelivered(ctx, order.ID); err != nil {
		t.Fatalf("MarkDelivered failed: %v", err)
	}

	updated, _, _ := svc.Order.Get(order.ID)
	if updated.Status != entity.StatusDelivered {
		t.Fatalf("Expected DELIVERED, got %s", updated.Status)
	}
}

func TestCancel(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusConfirmed, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})
	if err := svc.Fulfillment.Cancel(ctx, order.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	updated, _, _ := svc.Order.Get(order.ID)
	if updated.Status != entity.StatusCancelled {
		t.Fatalf("Expected CANCELLED, got %s", updated.Status)
	}

	// 已发货不可取消
	dispatched := seedOrder(t, db, entity.StatusDispatched, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 10},
	})
	var guard *GuardViolation
	if err := svc.Fulfillment.Cancel(ctx, dispatched.ID); !errors.As(err, &guard) {
		t.Fatalf("Expected GuardViolation cancelling dispatched order, got %v", err)
	}
}

func TestReassignLine(t *testing.T) {
	svc, db := setupServices(t)
	ctx := context.Background()

	order := seedOrder(t, db, entity.StatusPaymentVerified, []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 40},
	})
	seedBatch(t, db, "Amoxy-500", "B1", "2025-01-01", 40)
	b2 := seedBatch(t, db, "Amoxy-500", "B2", "2025-06-01", 25)

	plan, err := svc.Fulfillment.ProposePlan(ctx, order.ID)
	if err != nil {
		t.Fatalf("ProposePlan failed: %v", err)
	}
	if plan[0].BatchNo != "B1" {
		t.Fatalf("Expected FEFO pick B1, got %s", plan[0].BatchNo)
	}

	edited, err := svc.Fulfillment.ReassignLine(ctx, order.ID, plan, 0, b2.ID)
	if err != nil {
		t.Fatalf("ReassignLine failed: %v", err)
	}
	if edited[0].BatchNo != "B2" || edited[0].AllocQty != 25 {
		t.Fatalf("Expected rebind to B2 with clamp to 25, got %s/%d", edited[0].BatchNo, edited[0].AllocQty)
	}
}
