package entity

import (
	"time"
)

// PaymentStatus 付款状态
const (
	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"
)

// ShippingMode 发货方式
const (
	ShippingModeCourier   = "COURIER"   // 快递
	ShippingModeTransport = "TRANSPORT" // 物流专线
	ShippingModeSelf      = "SELF"      // 自提
)

// InboundOrder 分销商进货订单
type InboundOrder struct {
	ID            string      `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderNo       string      `json:"order_no" gorm:"size:50;not null;uniqueIndex"`
	DistributorID string      `json:"distributor_id" gorm:"type:uuid;not null;index"`
	Status        OrderStatus `json:"status" gorm:"size:20;not null;default:CREATED"`

	// 付款凭证
	PaymentStatus     string     `json:"payment_status" gorm:"size:10;not null;default:UNPAID"`
	PaymentVerified   bool       `json:"payment_verified" gorm:"not null;default:false"`
	PaidAmount        float64    `json:"paid_amount" gorm:"type:decimal(12,2);default:0"`
	UTRNo             string     `json:"utr_no" gorm:"size:64"`
	PaymentVerifiedBy string     `json:"payment_verified_by" gorm:"size:64"`
	PaymentVerifiedAt *time.Time `json:"payment_verified_at"`

	// 发货信息
	ShippingMode    string     `json:"shipping_mode" gorm:"size:10"`
	CourierName     string     `json:"courier_name" gorm:"size:128"`
	TransportName   string     `json:"transport_name" gorm:"size:128"`
	LRNo            string     `json:"lr_no" gorm:"size:64"`
	TrackingNo      string     `json:"tracking_no" gorm:"size:100"`
	TrackingCarrier string     `json:"tracking_carrier" gorm:"size:64"`
	DispatchDate    *time.Time `json:"dispatch_date"`
	DispatchedBy    string     `json:"dispatched_by" gorm:"size:64"`

	Notes     string     `json:"notes" gorm:"type:text"`
	CreatedBy string     `json:"created_by" gorm:"size:64;not null"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at" gorm:"index"`

	Lines []OrderLine `json:"lines,omitempty" gorm:"foreignKey:OrderID"`
}

func (InboundOrder) TableName() string {
	return "oms_inbound_orders"
}

// OrderLine 订单明细行，订单创建后不可变更
type OrderLine struct {
	ID            string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	OrderID       string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductName   string    `json:"product_name" gorm:"size:128;not null"`
	OrderedQtyPcs int       `json:"ordered_qty_pcs" gorm:"not null"`
	Rate          float64   `json:"rate" gorm:"type:decimal(12,4);not null"`
	CreatedAt     time.Time `json:"created_at"`

	Order *InboundOrder `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

func (OrderLine) TableName() string {
	return "oms_order_lines"
}
