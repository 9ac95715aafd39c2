package service

import (
	"fmt"
	"strings"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
)

// DispatchPayload 发货登记表单
type DispatchPayload struct {
	ShippingMode    string `json:"shipping_mode" binding:"required"`
	CourierName     string `json:"courier_name"`
	TransportName   string `json:"transport_name"`
	LRNo            string `json:"lr_no"`
	TrackingNo      string `json:"tracking_no"`
	TrackingCarrier string `json:"tracking_carrier"`
	DispatchDate    string `json:"dispatch_date"` // YYYY-MM-DD，空=服务器当前时间
	Notes           string `json:"notes"`
}

// ValidateDispatch 按发货方式校验必填字段。
// 快递必须有快递公司，专线必须有承运商和LR单号，自提无额外要求；
// 运单号/承运方字段任何方式下都可选。
func ValidateDispatch(p DispatchPayload) error {
	var missing []string
	switch p.ShippingMode {
	case entity.ShippingModeCourier:
		if strings.TrimSpace(p.CourierName) == "" {
			missing = append(missing, "courierName")
		}
	case entity.ShippingModeTransport:
		if strings.TrimSpace(p.TransportName) == "" {
			missing = append(missing, "transportName")
		}
		if strings.TrimSpace(p.LRNo) == "" {
			missing = append(missing, "lrNo")
		}
	case entity.ShippingModeSelf:
		// 自提无额外必填
	default:
		return fmt.Errorf("未知发货方式: %q", p.ShippingMode)
	}
	if len(missing) > 0 {
		return &DispatchFieldMissing{Fields: missing}
	}
	return nil
}
