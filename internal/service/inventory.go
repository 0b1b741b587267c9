package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"prstocks-api/internal/model"
	"prstocks-api/internal/repository"
	"prstocks-api/pkg/logger"
)

// InventoryService handles inventory business logic.
type InventoryService struct {
	repo repository.InventoryRepository
	log  *zap.Logger
	now  func() time.Time
}

// NewInventoryService creates a new inventory service.
func NewInventoryService(repo repository.InventoryRepository, log *zap.Logger) *InventoryService {
	return &InventoryService{
		repo: repo,
		log:  log.Named("[inventory]"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// List returns every item.
func (s *InventoryService) List(ctx context.Context) ([]model.InventoryItem, error) {
	return s.repo.List(ctx, model.InventoryFilter{})
}

// Search returns items whose part number, description or vendor contain
// filter.Query, optionally narrowed by exact category and subteam.
func (s *InventoryService) Search(ctx context.Context, filter model.InventoryFilter) ([]model.InventoryItem, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a single item.
func (s *InventoryService) Get(ctx context.Context, id int64) (*model.InventoryItem, error) {
	return s.repo.GetByID(ctx, id)
}

// Create merges in into the first item with the same part number, or
// inserts a new one.
func (s *InventoryService) Create(ctx context.Context, in model.InventoryItemCreate) (*model.UpsertResult, error) {
	now := s.now()

	var msg string
	item, created, err := s.repo.UpsertByPartNumber(ctx, in.PartNumber, func(existing *model.InventoryItem) *model.InventoryItem {
		var merged *model.InventoryItem
		merged, msg = MergeInventory(existing, in, now)
		return merged
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inventory upsert",
		logger.String("part_number", in.PartNumber),
		logger.Int64("item_id", item.ID),
		logger.Bool("created", created),
		logger.Int("quantity", item.Quantity))

	return &model.UpsertResult{ItemID: item.ID, Message: msg, Created: created}, nil
}

// Update writes only the supplied fields.
func (s *InventoryService) Update(ctx context.Context, id int64, upd model.InventoryItemUpdate) (*model.InventoryItem, error) {
	if len(upd.Columns()) == 0 {
		return nil, model.ErrEmptyInventoryUpdate
	}
	return s.repo.Update(ctx, id, upd, s.now())
}

// Delete removes an item.
func (s *InventoryService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("inventory item deleted", logger.Int64("item_id", id))
	return nil
}

// Statistics aggregates over every item.
func (s *InventoryService) Statistics(ctx context.Context) (*model.InventoryStatistics, error) {
	items, err := s.repo.List(ctx, model.InventoryFilter{})
	if err != nil {
		return nil, err
	}
	stats := model.ComputeStatistics(items)
	return &stats, nil
}
