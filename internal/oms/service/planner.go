package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
)

// AllocationLine 配货行。BatchID 为空表示缺口行（短缺标记），不占用库存。
// 提交前仅存在于内存，提交成功后转为 entity.AllocationRecord。
type AllocationLine struct {
	ProductName     string     `json:"product_name"`
	OrderQty        int        `json:"order_qty"`
	Rate            float64    `json:"rate"`
	BatchID         string     `json:"batch_id"`
	BatchNo         string     `json:"batch_no"`
	MfgDate         *time.Time `json:"mfg_date"`
	ExpiryDate      *time.Time `json:"expiry_date"`
	AllocQty        int        `json:"alloc_qty"`
	AvailableAtPick int        `json:"available_at_pick"`
}

// lessBatchFEFO 批次排序：近效期优先（无效期排最后），
// 同效期按批次号升序，再同按余量降序（优先吃大批次，减少拆批）。
func lessBatchFEFO(a, b *entity.InventoryBatch) bool {
	switch {
	case a.ExpiryDate == nil && b.ExpiryDate == nil:
		// 都无效期，落到下面的次级排序
	case a.ExpiryDate == nil:
		return false
	case b.ExpiryDate == nil:
		return true
	case a.ExpiryDate.Before(*b.ExpiryDate):
		return true
	case b.ExpiryDate.Before(*a.ExpiryDate):
		return false
	}
	if a.BatchNo != b.BatchNo {
		return a.BatchNo < b.BatchNo
	}
	return a.QtyOnHand > b.QtyOnHand
}

// PlanAllocation 按近效期优先贪心生成配货建议。纯函数：
// 相同输入必产生相同输出，不修改入参。
func PlanAllocation(orderLines []entity.OrderLine, batches []entity.InventoryBatch) []AllocationLine {
	byProduct := make(map[string][]entity.InventoryBatch)
	remaining := make(map[string]int)
	for _, b := range batches {
		if b.QtyOnHand <= 0 {
			continue
		}
		byProduct[b.ProductName] = append(byProduct[b.ProductName], b)
		remaining[b.ID] = b.QtyOnHand
	}
	for name := range byProduct {
		group := byProduct[name]
		sort.SliceStable(group, func(i, j int) bool {
			return lessBatchFEFO(&group[i], &group[j])
		})
	}

	var plan []AllocationLine
	for _, line := range orderLines {
		need := line.OrderedQtyPcs
		for i := range byProduct[line.ProductName] {
			if need <= 0 {
				break
			}
			b := &byProduct[line.ProductName][i]
			avail := remaining[b.ID]
			if avail <= 0 {
				continue
			}
			take := need
			if take > avail {
				take = avail
			}
			plan = append(plan, AllocationLine{
				ProductName:     line.ProductName,
				OrderQty:        line.OrderedQtyPcs,
				Rate:            line.Rate,
				BatchID:         b.ID,
				BatchNo:         b.BatchNo,
				MfgDate:         b.MfgDate,
				ExpiryDate:      b.ExpiryDate,
				AllocQty:        take,
				AvailableAtPick: b.QtyOnHand,
			})
			remaining[b.ID] -= take
			need -= take
		}
		if need > 0 {
			// 库存吃完仍有缺口，生成未绑定的短缺行
			plan = append(plan, AllocationLine{
				ProductName: line.ProductName,
				OrderQty:    line.OrderedQtyPcs,
				Rate:        line.Rate,
				BatchID:     "",
				AllocQty:    need,
			})
		}
	}
	return plan
}

// ReassignBatch 操作员把配货行改绑到另一批次。目标批次必须属于同一产品，
// 找不到时该行重置为未绑定（缺口）状态。
func ReassignBatch(plan []AllocationLine, lineIndex int, batchID string, catalog []entity.InventoryBatch) error {
	if lineIndex < 0 || lineIndex >= len(plan) {
		return fmt.Errorf("配货行下标越界: %d", lineIndex)
	}
	line := &plan[lineIndex]
	for i := range catalog {
		b := &catalog[i]
		if b.ID == batchID && b.ProductName == line.ProductName {
			line.BatchID = b.ID
			line.BatchNo = b.BatchNo
			line.MfgDate = b.MfgDate
			line.ExpiryDate = b.ExpiryDate
			if line.AllocQty > b.QtyOnHand {
				line.AllocQty = b.QtyOnHand
			}
			line.AvailableAtPick = b.QtyOnHand
			return nil
		}
	}
	line.BatchID = ""
	line.BatchNo = ""
	line.MfgDate = nil
	line.ExpiryDate = nil
	line.AvailableAtPick = 0
	return nil
}

// SetQuantity 操作员修改配货数量：向下取整到非负整数；
// 已绑定批次的行钳制到提案时的可用量，未绑定行按缺口量原样接受。
func SetQuantity(plan []AllocationLine, lineIndex int, qty float64) error {
	if lineIndex < 0 || lineIndex >= len(plan) {
		return fmt.Errorf("配货行下标越界: %d", lineIndex)
	}
	line := &plan[lineIndex]
	q := int(math.Floor(qty))
	if q < 0 {
		q = 0
	}
	if line.BatchID != "" && q > line.AvailableAtPick {
		q = line.AvailableAtPick
	}
	line.AllocQty = q
	return nil
}
