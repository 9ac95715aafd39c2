package handler

import (
	"net/http"

	"github.com/bitfantasy/nimo-oms/internal/oms/service"
	"github.com/gin-gonic/gin"
)

type FulfillmentHandler struct {
	svc *service.FulfillmentService
}

func NewFulfillmentHandler(svc *service.FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{svc: svc}
}

type VerifyPaymentRequest struct {
	Confirm bool `json:"confirm"`
}

func (h *FulfillmentHandler) VerifyPayment(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	if err := h.svc.VerifyPayment(c.Request.Context(), c.Param("id"), req.Confirm, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"ok": true}})
}

func (h *FulfillmentHandler) GetPlan(c *gin.Context) {
	plan, err := h.svc.ProposePlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"lines": plan}})
}

type ReassignRequest struct {
	Plan      []service.AllocationLine `json:"plan" binding:"required"`
	LineIndex int                      `json:"line_index"`
	BatchID   string                   `json:"batch_id" binding:"required"`
}

// ReassignLine 把方案中某行改绑到另一批次，返回编辑后的方案
func (h *FulfillmentHandler) ReassignLine(c *gin.Context) {
	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	plan, err := h.svc.ReassignLine(c.Request.Context(), c.Param("id"), req.Plan, req.LineIndex, req.BatchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"lines": plan}})
}

type SetQuantityRequest struct {
	Plan      []service.AllocationLine `json:"plan" binding:"required"`
	LineIndex int                      `json:"line_index"`
	Qty       float64                  `json:"qty"`
}

// SetLineQuantity 修改方案中某行的配货数量，返回编辑后的方案
func (h *FulfillmentHandler) SetLineQuantity(c *gin.Context) {
	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	if err := service.SetQuantity(req.Plan, req.LineIndex, req.Qty); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"lines": req.Plan}})
}

type CommitAllocationRequest struct {
	Lines   []service.AllocationLine `json:"lines" binding:"required,min=1"`
	Confirm bool                     `json:"confirm"`
}

func (h *FulfillmentHandler) CommitAllocation(c *gin.Context) {
	var req CommitAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	if err := h.svc.CommitAllocation(c.Request.Context(), c.Param("id"), req.Lines, req.Confirm, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"ok": true}})
}

func (h *FulfillmentHandler) RecordDispatch(c *gin.Context) {
	var payload service.DispatchPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	if err := h.svc.RecordDispatch(c.Request.Context(), c.Param("id"), payload, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"ok": true}})
}
