package handler

import (
	"errors"
	"net/http"

	"github.com/bitfantasy/nimo-oms/internal/oms/service"
	"github.com/gin-gonic/gin"
)

// Handlers OMS HTTP处理器集合
type Handlers struct {
	Order       *OrderHandler
	Batch       *BatchHandler
	Fulfillment *FulfillmentHandler
}

func NewHandlers(services *service.Services) *Handlers {
	return &Handlers{
		Order:       NewOrderHandler(services.Order, services.Fulfillment),
		Batch:       NewBatchHandler(services.Catalog),
		Fulfillment: NewFulfillmentHandler(services.Fulfillment),
	}
}

// respondError 把服务层错误分类映射到HTTP响应。
// 校验类错误带完整的问题清单，冲突类错误提示客户端重载后重试。
func respondError(c *gin.Context, err error) {
	var incomplete *service.AllocationIncomplete
	var missing *service.DispatchFieldMissing
	var guard *service.GuardViolation
	var conflict *service.ConcurrentConflict
	switch {
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    42201,
			"message": err.Error(),
			"data":    gin.H{"ok": false, "errors": incomplete.Errors, "missing": incomplete.Missing},
		})
	case errors.As(err, &missing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    42202,
			"message": err.Error(),
			"data":    gin.H{"ok": false, "errors": missing.Fields},
		})
	case errors.As(err, &guard):
		c.JSON(http.StatusConflict, gin.H{"code": 40901, "message": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{
			"code":    40902,
			"message": err.Error(),
			"data":    gin.H{"retryable": true},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"code": 50001, "message": err.Error()})
	}
}

func currentUserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return ""
}
