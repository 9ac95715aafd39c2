package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-oms/internal/oms/entity"
	"github.com/bitfantasy/nimo-oms/internal/oms/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const catalogCacheTTL = 30 * time.Second

// CatalogService 批次目录读模型。对外提供咨询性的可用批次快照，
// 权威数量以提交事务内重新读取的为准。
type CatalogService struct {
	batchRepo *repository.BatchRepository
	rdb       *redis.Client // 可为nil（测试/无缓存部署）
}

func NewCatalogService(batchRepo *repository.BatchRepository, rdb *redis.Client) *CatalogService {
	return &CatalogService{batchRepo: batchRepo, rdb: rdb}
}

func catalogCacheKey(distributorID string) string {
	return "oms:catalog:" + distributorID
}

// ListAvailable 指定分销商下有余量的批次快照，可按产品集合过滤。
// 快照整体按分销商缓存，短TTL，入库/提交时失效。
func (s *CatalogService) ListAvailable(ctx context.Context, distributorID string, products []string) ([]entity.InventoryBatch, error) {
	if s.rdb != nil {
		if raw, err := s.rdb.Get(ctx, catalogCacheKey(distributorID)).Result(); err == nil {
			var cached []entity.InventoryBatch
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return filterByProducts(cached, products), nil
			}
		}
	}

	batches, err := s.batchRepo.ListAvailable(distributorID, nil)
	if err != nil {
		return nil, fmt.Errorf("读取批次目录失败: %w", err)
	}

	if s.rdb != nil {
		if raw, err := json.Marshal(batches); err == nil {
			s.rdb.Set(ctx, catalogCacheKey(distributorID), raw, catalogCacheTTL)
		}
	}
	return filterByProducts(batches, products), nil
}

// Invalidate 批次数量变动后使快照失效
func (s *CatalogService) Invalidate(ctx context.Context, distributorID string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, catalogCacheKey(distributorID))
	}
}

func filterByProducts(batches []entity.InventoryBatch, products []string) []entity.InventoryBatch {
	if len(products) == 0 {
		return batches
	}
	want := make(map[string]bool, len(products))
	for _, p := range products {
		want[p] = true
	}
	var out []entity.InventoryBatch
	for _, b := range batches {
		if want[b.ProductName] {
			out = append(out, b)
		}
	}
	return out
}

type InboundBatchRequest struct {
	DistributorID string  `json:"distributor_id" binding:"required"`
	ProductName   string  `json:"product_name" binding:"required"`
	BatchNo       string  `json:"batch_no"`
	MfgDate       string  `json:"mfg_date"`    // YYYY-MM-DD
	ExpiryDate    string  `json:"expiry_date"` // YYYY-MM-DD
	Qty           int     `json:"qty" binding:"required,gt=0"`
	UnitCost      float64 `json:"unit_cost"`
}

// Inbound 批次入库
func (s *CatalogService) Inbound(ctx context.Context, req InboundBatchRequest, userID string) (*entity.InventoryBatch, error) {
	now := time.Now()
	batchNo := req.BatchNo
	if batchNo == "" {
		batchNo = fmt.Sprintf("%s%03d", now.Format("20060102"), now.UnixNano()%1000)
	}

	batch := &entity.InventoryBatch{
		ID:            uuid.New().String(),
		DistributorID: req.DistributorID,
		ProductName:   req.ProductName,
		BatchNo:       batchNo,
		QtyOnHand:     req.Qty,
		UnitCost:      req.UnitCost,
		CreatedBy:     userID,
	}
	if req.MfgDate != "" {
		t, err := time.Parse("2006-01-02", req.MfgDate)
		if err == nil {
			batch.MfgDate = &t
		}
	}
	if req.ExpiryDate != "" {
		t, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err == nil {
			batch.ExpiryDate = &t
		}
	}

	if err := s.batchRepo.Create(batch); err != nil {
		return nil, fmt.Errorf("批次入库失败: %w", err)
	}
	s.Invalidate(ctx, req.DistributorID)
	return batch, nil
}
