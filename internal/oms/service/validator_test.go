package service

import (
	"testing"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
)

func TestValidateAllocationPass(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "Amoxy-500", OrderedQtyPcs: 120},
	}
	alloc := []AllocationLine{
		{ProductName: "Amoxy-500", BatchID: "b1", BatchNo: "B1", AllocQty: 40},
		{ProductName: "Amoxy-500", BatchID: "b2", BatchNo: "B2", AllocQty: 80},
	}
	authoritative := []entity.InventoryBatch{
		testBatch("b1", "Amoxy-500", "B1", nil, 40),
		testBatch("b2", "Amoxy-500", "B2", nil, 100),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if !result.OK {
		t.Fatalf("Expected valid allocation, got errors: %v", result.Errors)
	}
	if len(result.Missing) != 0 {
		t.Fatalf("Expected no missing products, got %v", result.Missing)
	}
}

func TestValidateAllocationShortfall(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 120},
	}
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "b1", BatchNo: "B1", AllocQty: 100},
		{ProductName: "A", BatchID: "", AllocQty: 20},
	}
	authoritative := []entity.InventoryBatch{
		testBatch("b1", "A", "B1", nil, 100),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if result.OK {
		t.Fatal("Expected validation failure")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "A: short by 20" {
		t.Fatalf("Expected single [A: short by 20], got %v", result.Errors)
	}
	if len(result.Missing) != 1 || result.Missing[0] != "A" {
		t.Fatalf("Expected missing=[A], got %v", result.Missing)
	}
}

func TestValidateAllocationQuantityMismatch(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 100},
	}
	// 无缺口行，但绑定合计对不上需求
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "b1", BatchNo: "B1", AllocQty: 70},
	}
	authoritative := []entity.InventoryBatch{
		testBatch("b1", "A", "B1", nil, 200),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if result.OK {
		t.Fatal("Expected validation failure")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "A: allocated 70 but required 100" {
		t.Fatalf("Unexpected errors: %v", result.Errors)
	}
}

func TestValidateAllocationBatchOveruse(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 120},
	}
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "b1", BatchNo: "B1", AllocQty: 70},
		{ProductName: "A", BatchID: "b1", BatchNo: "B1", AllocQty: 50},
	}
	// 提交时权威数量只剩100，两行合计120超用
	authoritative := []entity.InventoryBatch{
		testBatch("b1", "A", "B1", nil, 100),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if result.OK {
		t.Fatal("Expected validation failure")
	}
	if len(result.Errors) != 1 || result.Errors[0] != "B1 overused: 120 > 100" {
		t.Fatalf("Unexpected errors: %v", result.Errors)
	}
}

func TestValidateAllocationUnknownBatch(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 50},
	}
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "ghost", BatchNo: "GH", AllocQty: 50},
	}

	result := ValidateAllocation(lines, alloc, nil)
	if result.OK {
		t.Fatal("Expected validation failure")
	}
	found := false
	for _, e := range result.Errors {
		if e == "A: unknown batch ghost" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Expected unknown batch error, got %v", result.Errors)
	}
}

func TestValidateAllocationCrossProductBatch(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 50},
	}
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "c1", BatchNo: "C1", AllocQty: 50},
	}
	authoritative := []entity.InventoryBatch{
		testBatch("c1", "C", "C1", nil, 100),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if result.OK {
		t.Fatal("Expected validation failure")
	}
	found := false
	for _, e := range result.Errors {
		if e == "A: batch C1 holds a different product" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Expected cross-product batch error, got %v", result.Errors)
	}
}

func TestValidateAllocationAccumulatesAllErrors(t *testing.T) {
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 120},
		{ProductName: "B", OrderedQtyPcs: 60},
	}
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "a1", BatchNo: "A1", AllocQty: 100},
		{ProductName: "A", BatchID: "", AllocQty: 20},
		{ProductName: "B", BatchID: "b1", BatchNo: "B1", AllocQty: 90},
	}
	authoritative := []entity.InventoryBatch{
		testBatch("a1", "A", "A1", nil, 100),
		testBatch("b1", "B", "B1", nil, 70),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if result.OK {
		t.Fatal("Expected validation failure")
	}
	// A缺口 + B数量不符 + B1超用，一次性全部报告
	expected := map[string]bool{
		"A: short by 20":                  false,
		"B: allocated 90 but required 60": false,
		"B1 overused: 90 > 70":            false,
	}
	for _, e := range result.Errors {
		if _, ok := expected[e]; ok {
			expected[e] = true
		}
	}
	for msg, seen := range expected {
		if !seen {
			t.Errorf("Expected error %q not reported; got %v", msg, result.Errors)
		}
	}
	if len(result.Errors) != 3 {
		t.Fatalf("Expected exactly 3 errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestValidateAllocationMultiLineSameProduct(t *testing.T) {
	// 同一产品多个订单行：需求合并后校验
	lines := []entity.OrderLine{
		{ProductName: "A", OrderedQtyPcs: 30},
		{ProductName: "A", OrderedQtyPcs: 20},
	}
	alloc := []AllocationLine{
		{ProductName: "A", BatchID: "a1", BatchNo: "A1", AllocQty: 50},
	}
	authoritative := []entity.InventoryBatch{
		testBatch("a1", "A", "A1", nil, 60),
	}

	result := ValidateAllocation(lines, alloc, authoritative)
	if !result.OK {
		t.Fatalf("Expected valid allocation, got %v", result.Errors)
	}
}
