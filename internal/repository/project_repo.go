package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reelforge/reelforge/internal/domain"
	"gorm.io/gorm"
)

type ListProjectsParams struct {
	Mode     *domain.Mode
	Page     int
	PageSize int
}

// ProgressionFields are the wizard columns written on every accepted
// transition. SaveProgression writes them in a single statement so a save
// can never land the cursor without its completion set.
type ProgressionFields struct {
	CurrentStep    string
	CompletedSteps []string
	DirtySteps     []string
	StepPayloads   map[string]json.RawMessage
}

type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	SaveProgression(ctx context.Context, id string, fields ProgressionFields) error
	SetAssetURL(ctx context.Context, id string, assetURL string) error
	List(ctx context.Context, params ListProjectsParams) ([]domain.Project, int64, error)
	Delete(ctx context.Context, id string) error
}

type GormProjectRepo struct {
	db *gorm.DB
}

func NewGormProjectRepo(db *gorm.DB) *GormProjectRepo {
	return &GormProjectRepo{db: db}
}

func (r *GormProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	model, err := projectModelFromDomain(p)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if p != nil {
		restored, err := projectModelToDomain(model)
		if err != nil {
			return err
		}
		*p = *restored
	}
	return nil
}

func (r *GormProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var model ProjectModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return projectModelToDomain(&model)
}

func (r *GormProjectRepo) SaveProgression(ctx context.Context, id string, fields ProgressionFields) error {
	completed, err := marshalStepList(fields.CompletedSteps)
	if err != nil {
		return fmt.Errorf("failed to encode completed steps: %w", err)
	}
	dirty, err := marshalStepList(fields.DirtySteps)
	if err != nil {
		return fmt.Errorf("failed to encode dirty steps: %w", err)
	}
	payloads, err := marshalStepPayloads(fields.StepPayloads)
	if err != nil {
		return fmt.Errorf("failed to encode step payloads: %w", err)
	}

	// One statement so current_step and completed_steps can never diverge.
	result := r.db.WithContext(ctx).
		Model(&ProjectModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_step":    fields.CurrentStep,
			"completed_steps": completed,
			"dirty_steps":     dirty,
			"step_payloads":   payloads,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormProjectRepo) SetAssetURL(ctx context.Context, id string, assetURL string) error {
	result := r.db.WithContext(ctx).
		Model(&ProjectModel{}).
		Where("id = ?", id).
		Update("asset_url", assetURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormProjectRepo) List(ctx context.Context, params ListProjectsParams) ([]domain.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&ProjectModel{})

	if params.Mode != nil {
		query = query.Where("mode = ?", *params.Mode)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []ProjectModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	projects := make([]domain.Project, 0, len(models))
	for i := range models {
		p, err := projectModelToDomain(&models[i])
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, *p)
	}

	return projects, total, nil
}

func (r *GormProjectRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ProjectModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
