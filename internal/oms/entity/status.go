package entity

import "fmt"

// OrderStatus 订单履约状态（单一状态机字段，禁止从多个布尔字段推断状态）
type OrderStatus string

const (
	StatusCreated         OrderStatus = "CREATED"
	StatusConfirmed       OrderStatus = "CONFIRMED"
	StatusPaymentVerified OrderStatus = "PAYMENT_VERIFIED"
	StatusPacked          OrderStatus = "PACKED"
	StatusDispatched      OrderStatus = "DISPATCHED"
	StatusInTransit       OrderStatus = "IN_TRANSIT"
	StatusDelivered       OrderStatus = "DELIVERED"
	StatusCancelled       OrderStatus = "CANCELLED"
)

// statusRank 正向流程的阶段顺序，用于"已到达/未到达某阶段"判断
var statusRank = map[OrderStatus]int{
	StatusCreated:         0,
	StatusConfirmed:       1,
	StatusPaymentVerified: 2,
	StatusPacked:          3,
	StatusDispatched:      4,
	StatusInTransit:       5,
	StatusDelivered:       6,
}

// transitions 状态迁移表：每个状态只能进入下一个阶段，DISPATCHED 之前可取消
var transitions = map[OrderStatus][]OrderStatus{
	StatusCreated:         {StatusConfirmed, StatusPaymentVerified, StatusCancelled},
	StatusConfirmed:       {StatusPaymentVerified, StatusCancelled},
	StatusPaymentVerified: {StatusPacked, StatusCancelled},
	StatusPacked:          {StatusDispatched, StatusCancelled},
	StatusDispatched:      {StatusInTransit},
	StatusInTransit:       {StatusDelivered},
	StatusDelivered:       {},
	StatusCancelled:       {},
}

// ParseStatus 解析状态字符串。未知状态视为同步错误，不做静默回退。
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := transitions[st]; !ok {
		return "", fmt.Errorf("unknown order status: %q", s)
	}
	return st, nil
}

// CanTransition 判断 from -> to 是否为合法迁移
func (from OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ReachedStage 当前状态是否已到达（或越过）指定阶段
func (s OrderStatus) ReachedStage(stage OrderStatus) bool {
	r, ok := statusRank[s]
	if !ok {
		// CANCELLED 不在正向序列内
		return false
	}
	return r >= statusRank[stage]
}

// IsTerminal 终态不再接受任何迁移
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}
