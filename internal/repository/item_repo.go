package repository

import (
	"context"
	"errors"
	"time"

	"github.com/reelforge/reelforge/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemStatusSummary struct {
	Status domain.ItemStatus `gorm:"column:status"`
	Count  int               `gorm:"column:count"`
}

type CampaignItemRepository interface {
	CreateBatch(ctx context.Context, items []*domain.CampaignItem) error
	GetByID(ctx context.Context, id string) (*domain.CampaignItem, error)
	GetByCampaignAndIndex(ctx context.Context, campaignID string, index int) (*domain.CampaignItem, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]domain.CampaignItem, error)
	LockForGeneration(ctx context.Context, id string) (*domain.CampaignItem, error)
	MarkCompleted(ctx context.Context, id string, assetURL string, projectID *string) error
	MarkFailed(ctx context.Context, id string, itemErr string) error
	ScheduleRetry(ctx context.Context, id string, nextRetryAt time.Time) error
	ResetForRetry(ctx context.Context, campaignID string, index int) error
	GetDueForRetry(ctx context.Context, limit int) ([]domain.CampaignItem, error)
	ClearNextRetryAt(ctx context.Context, id string) error
	GetDueForPublish(ctx context.Context, now time.Time, limit int) ([]domain.CampaignItem, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	UpdateScheduledDates(ctx context.Context, campaignID string, dates map[int]time.Time) error
	GetStatusSummary(ctx context.Context, campaignID string) ([]ItemStatusSummary, error)
}

type GormCampaignItemRepo struct {
	db *gorm.DB
}

func NewGormCampaignItemRepo(db *gorm.DB) *GormCampaignItemRepo {
	return &GormCampaignItemRepo{db: db}
}

func (r *GormCampaignItemRepo) CreateBatch(ctx context.Context, items []*domain.CampaignItem) error {
	models := make([]CampaignItemModel, 0, len(items))
	modelIndexes := make([]int, 0, len(items))
	for i, item := range items {
		model := itemModelFromDomain(item)
		if model != nil {
			models = append(models, *model)
			modelIndexes = append(modelIndexes, i)
		}
	}

	if len(models) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, 100).Error; err != nil {
		return err
	}

	for i := range models {
		idx := modelIndexes[i]
		if idx < len(items) && items[idx] != nil {
			*items[idx] = *itemModelToDomain(&models[i])
		}
	}

	return nil
}

func (r *GormCampaignItemRepo) GetByID(ctx context.Context, id string) (*domain.CampaignItem, error) {
	var model CampaignItemModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return itemModelToDomain(&model), nil
}

func (r *GormCampaignItemRepo) GetByCampaignAndIndex(ctx context.Context, campaignID string, index int) (*domain.CampaignItem, error) {
	var model CampaignItemModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND item_index = ?", campaignID, index).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return itemModelToDomain(&model), nil
}

func (r *GormCampaignItemRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.CampaignItem, error) {
	var models []CampaignItemModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("item_index ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.CampaignItem, 0, len(models))
	for i := range models {
		items = append(items, *itemModelToDomain(&models[i]))
	}

	return items, nil
}

func (r *GormCampaignItemRepo) LockForGeneration(ctx context.Context, id string) (*domain.CampaignItem, error) {
	var model CampaignItemModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// Skip anything not waiting to be generated.
	if model.Status != domain.ItemStatusPending {
		return nil, nil
	}

	model.Status = domain.ItemStatusGenerating
	if err := r.db.WithContext(ctx).
		Model(&model).
		Update("status", domain.ItemStatusGenerating).Error; err != nil {
		return nil, err
	}

	return itemModelToDomain(&model), nil
}

func (r *GormCampaignItemRepo) MarkCompleted(ctx context.Context, id string, assetURL string, projectID *string) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.ItemStatusCompleted,
			"asset_url":     assetURL,
			"project_id":    projectID,
			"error":         nil,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormCampaignItemRepo) MarkFailed(ctx context.Context, id string, itemErr string) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.ItemStatusFailed,
			"error":         itemErr,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormCampaignItemRepo) ScheduleRetry(ctx context.Context, id string, nextRetryAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.ItemStatusPending,
			"next_retry_at": nextRetryAt,
			"attempt_count": gorm.Expr("attempt_count + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetForRetry flips one failed item back to pending and clears its error,
// leaving every other row and the schedule untouched.
func (r *GormCampaignItemRepo) ResetForRetry(ctx context.Context, campaignID string, index int) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Where("campaign_id = ? AND item_index = ? AND status = ?", campaignID, index, domain.ItemStatusFailed).
		Updates(map[string]any{
			"status":        domain.ItemStatusPending,
			"error":         nil,
			"attempt_count": 0,
			"next_retry_at": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormCampaignItemRepo) GetDueForRetry(ctx context.Context, limit int) ([]domain.CampaignItem, error) {
	var models []CampaignItemModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", domain.ItemStatusPending, time.Now()).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.CampaignItem, 0, len(models))
	for i := range models {
		items = append(items, *itemModelToDomain(&models[i]))
	}

	return items, nil
}

func (r *GormCampaignItemRepo) ClearNextRetryAt(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Where("id = ?", id).
		Update("next_retry_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormCampaignItemRepo) GetDueForPublish(ctx context.Context, now time.Time, limit int) ([]domain.CampaignItem, error) {
	var models []CampaignItemModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND published_at IS NULL AND scheduled_date <= ?", domain.ItemStatusCompleted, now).
		Order("scheduled_date ASC, item_index ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	items := make([]domain.CampaignItem, 0, len(models))
	for i := range models {
		items = append(items, *itemModelToDomain(&models[i]))
	}

	return items, nil
}

func (r *GormCampaignItemRepo) MarkPublished(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Where("id = ? AND published_at IS NULL", id).
		Update("published_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

// UpdateScheduledDates rewrites every item's slot in one transaction so a
// reschedule is all-or-nothing.
func (r *GormCampaignItemRepo) UpdateScheduledDates(ctx context.Context, campaignID string, dates map[int]time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index, scheduledDate := range dates {
			result := tx.
				Model(&CampaignItemModel{}).
				Where("campaign_id = ? AND item_index = ?", campaignID, index).
				Update("scheduled_date", scheduledDate)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domain.ErrNotFound
			}
		}
		return nil
	})
}

func (r *GormCampaignItemRepo) GetStatusSummary(ctx context.Context, campaignID string) ([]ItemStatusSummary, error) {
	var summaries []ItemStatusSummary
	err := r.db.WithContext(ctx).
		Model(&CampaignItemModel{}).
		Select("status, COUNT(*) as count").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}
