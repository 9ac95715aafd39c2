package service

import (
	"fmt"
	"sort"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
)

// ValidationResult 配货校验结果。Errors 为全部问题的累积，Missing 单列缺口产品。
type ValidationResult struct {
	OK      bool     `json:"ok"`
	Errors  []string `json:"errors"`
	Missing []string `json:"missing"`
}

// ValidateAllocation 校验配货方案的完整性与批次不超用。
// authoritative 必须是提交时刻重新读取的权威批次数量，不能用UI快照。
// 所有问题一次性累积报告，不在第一个错误处停止。
func ValidateAllocation(orderLines []entity.OrderLine, alloc []AllocationLine, authoritative []entity.InventoryBatch) ValidationResult {
	result := ValidationResult{}

	// 订单需求：同一产品多行需求合并
	required := make(map[string]int)
	var products []string
	for _, line := range orderLines {
		if _, ok := required[line.ProductName]; !ok {
			products = append(products, line.ProductName)
		}
		required[line.ProductName] += line.OrderedQtyPcs
	}

	batchQty := make(map[string]int)
	batchNo := make(map[string]string)
	batchProduct := make(map[string]string)
	for _, b := range authoritative {
		batchQty[b.ID] = b.QtyOnHand
		batchNo[b.ID] = b.BatchNo
		batchProduct[b.ID] = b.ProductName
	}

	bound := make(map[string]int)   // 产品 -> 已绑定批次的数量合计
	short := make(map[string]int)   // 产品 -> 未绑定缺口合计
	batchUsed := make(map[string]int)
	var unknownBatches []string
	for _, line := range alloc {
		if _, ok := required[line.ProductName]; !ok {
			products = append(products, line.ProductName)
			required[line.ProductName] = 0
		}
		if line.BatchID == "" {
			if line.AllocQty > 0 {
				short[line.ProductName] += line.AllocQty
			}
			continue
		}
		if _, ok := batchQty[line.BatchID]; !ok {
			unknownBatches = append(unknownBatches, fmt.Sprintf("%s: unknown batch %s", line.ProductName, line.BatchID))
			continue
		}
		if batchProduct[line.BatchID] != line.ProductName {
			unknownBatches = append(unknownBatches,
				fmt.Sprintf("%s: batch %s holds a different product", line.ProductName, batchNo[line.BatchID]))
			continue
		}
		bound[line.ProductName] += line.AllocQty
		batchUsed[line.BatchID] += line.AllocQty
	}

	for _, product := range products {
		if n := short[product]; n > 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: short by %d", product, n))
			result.Missing = append(result.Missing, product)
		}
		// 缺口行已单独报告，绑定合计只需补足剩余需求
		if bound[product] != required[product]-short[product] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s: allocated %d but required %d", product, bound[product], required[product]))
		}
	}
	result.Errors = append(result.Errors, unknownBatches...)

	var usedIDs []string
	for id := range batchUsed {
		usedIDs = append(usedIDs, id)
	}
	sort.Slice(usedIDs, func(i, j int) bool { return batchNo[usedIDs[i]] < batchNo[usedIDs[j]] })
	for _, id := range usedIDs {
		if batchUsed[id] > batchQty[id] {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s overused: %d > %d", batchNo[id], batchUsed[id], batchQty[id]))
		}
	}

	result.OK = len(result.Errors) == 0
	return result
}
