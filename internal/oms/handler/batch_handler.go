package handler

import (
	"net/http"
	"strings"

	"github.com/bitfantasy/nimo-oms/internal/oms/service"
	"github.com/gin-gonic/gin"
)

type BatchHandler struct {
	svc *service.CatalogService
}

func NewBatchHandler(svc *service.CatalogService) *BatchHandler {
	return &BatchHandler{svc: svc}
}

// List 批次目录快照：?distributor_id=xxx&products=A,B
func (h *BatchHandler) List(c *gin.Context) {
	distributorID := c.Query("distributor_id")
	if distributorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": "distributor_id is required"})
		return
	}
	var products []string
	if raw := c.Query("products"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				products = append(products, p)
			}
		}
	}
	batches, err := h.svc.ListAvailable(c.Request.Context(), distributorID, products)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": batches})
}

func (h *BatchHandler) Inbound(c *gin.Context) {
	var req service.InboundBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 10001, "message": err.Error()})
		return
	}
	batch, err := h.svc.Inbound(c.Request.Context(), req, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"code": 0, "message": "success", "data": batch})
}
