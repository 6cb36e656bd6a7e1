package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/reelforge/reelforge/internal/domain"
)

// ProjectModel is the persistence model for the projects table. The
// progression columns (current_step, completed_steps, dirty_steps,
// step_payloads) are always written together in one statement.
type ProjectModel struct {
	ID               string      `gorm:"type:uuid;primaryKey"`
	Title            string      `gorm:"type:varchar(200);not null"`
	Mode             domain.Mode `gorm:"type:varchar(20);not null"`
	VoiceoverEnabled bool        `gorm:"not null;default:false"`
	CaptionsEnabled  bool        `gorm:"not null;default:false"`
	CurrentStep      string      `gorm:"type:varchar(30);not null"`
	CompletedSteps   []byte      `gorm:"type:jsonb;not null;default:'[]'"`
	DirtySteps       []byte      `gorm:"type:jsonb;not null;default:'[]'"`
	StepPayloads     []byte      `gorm:"type:jsonb;not null;default:'{}'"`
	CampaignItemID   *string     `gorm:"type:uuid"`
	AssetURL         *string     `gorm:"type:text"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ProjectModel) TableName() string {
	return "projects"
}

// CampaignModel is the persistence model for campaigns.
type CampaignModel struct {
	ID         string                `gorm:"type:uuid;primaryKey"`
	Name       string                `gorm:"type:varchar(200);not null"`
	Mode       domain.Mode           `gorm:"type:varchar(20);not null"`
	Priority   domain.Priority       `gorm:"type:varchar(10);not null"`
	StartDate  time.Time             `gorm:"type:date;not null"`
	EndDate    time.Time             `gorm:"type:date;not null"`
	MaxPerDay  int                   `gorm:"not null"`
	TotalCount int                   `gorm:"not null"`
	Status     domain.CampaignStatus `gorm:"type:varchar(20);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (CampaignModel) TableName() string {
	return "campaigns"
}

// CampaignItemModel is the persistence model for campaign_items.
type CampaignItemModel struct {
	ID            string            `gorm:"type:uuid;primaryKey"`
	CampaignID    string            `gorm:"type:uuid;not null"`
	ItemIndex     int               `gorm:"not null"`
	SourceIdea    string            `gorm:"type:text;not null"`
	Status        domain.ItemStatus `gorm:"type:varchar(20);not null"`
	ProjectID     *string           `gorm:"type:uuid"`
	AssetURL      *string           `gorm:"type:text"`
	Error         *string           `gorm:"type:text"`
	AttemptCount  int               `gorm:"not null;default:0"`
	MaxAttempts   int               `gorm:"not null;default:3"`
	ScheduledDate time.Time         `gorm:"type:date;not null"`
	PublishedAt   *time.Time        `gorm:"type:timestamptz"`
	NextRetryAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (CampaignItemModel) TableName() string {
	return "campaign_items"
}

// GenerationAttemptModel is the persistence model for generation_attempts.
type GenerationAttemptModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	ItemID        string  `gorm:"type:uuid;not null"`
	AttemptNumber int     `gorm:"not null"`
	StatusCode    *int    `gorm:"type:int"`
	ResponseBody  *string `gorm:"type:text"`
	Error         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (GenerationAttemptModel) TableName() string {
	return "generation_attempts"
}

func projectModelFromDomain(p *domain.Project) (*ProjectModel, error) {
	if p == nil {
		return nil, nil
	}

	completed, err := marshalStepList(p.CompletedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completed steps: %w", err)
	}
	dirty, err := marshalStepList(p.DirtySteps)
	if err != nil {
		return nil, fmt.Errorf("failed to encode dirty steps: %w", err)
	}
	payloads, err := marshalStepPayloads(p.StepPayloads)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step payloads: %w", err)
	}

	return &ProjectModel{
		ID:               p.ID,
		Title:            p.Title,
		Mode:             p.Mode,
		VoiceoverEnabled: p.VoiceoverEnabled,
		CaptionsEnabled:  p.CaptionsEnabled,
		CurrentStep:      p.CurrentStep,
		CompletedSteps:   completed,
		DirtySteps:       dirty,
		StepPayloads:     payloads,
		CampaignItemID:   p.CampaignItemID,
		AssetURL:         p.AssetURL,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}, nil
}

func projectModelToDomain(m *ProjectModel) (*domain.Project, error) {
	if m == nil {
		return nil, nil
	}

	completed, err := unmarshalStepList(m.CompletedSteps)
	if err != nil {
		return nil, fmt.Errorf("failed to decode completed steps for project %s: %w", m.ID, err)
	}
	dirty, err := unmarshalStepList(m.DirtySteps)
	if err != nil {
		return nil, fmt.Errorf("failed to decode dirty steps for project %s: %w", m.ID, err)
	}
	payloads, err := unmarshalStepPayloads(m.StepPayloads)
	if err != nil {
		return nil, fmt.Errorf("failed to decode step payloads for project %s: %w", m.ID, err)
	}

	return &domain.Project{
		ID:               m.ID,
		Title:            m.Title,
		Mode:             m.Mode,
		VoiceoverEnabled: m.VoiceoverEnabled,
		CaptionsEnabled:  m.CaptionsEnabled,
		CurrentStep:      m.CurrentStep,
		CompletedSteps:   completed,
		DirtySteps:       dirty,
		StepPayloads:     payloads,
		CampaignItemID:   m.CampaignItemID,
		AssetURL:         m.AssetURL,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}, nil
}

func marshalStepList(steps []string) ([]byte, error) {
	if steps == nil {
		steps = []string{}
	}
	return json.Marshal(steps)
}

func unmarshalStepList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var steps []string
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}

func marshalStepPayloads(payloads map[string]json.RawMessage) ([]byte, error) {
	if payloads == nil {
		payloads = map[string]json.RawMessage{}
	}
	return json.Marshal(payloads)
}

func unmarshalStepPayloads(raw []byte) (map[string]json.RawMessage, error) {
	if len(raw) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var payloads map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return nil, err
	}
	return payloads, nil
}

func campaignModelFromDomain(c *domain.Campaign) *CampaignModel {
	if c == nil {
		return nil
	}

	return &CampaignModel{
		ID:         c.ID,
		Name:       c.Name,
		Mode:       c.Mode,
		Priority:   c.Priority,
		StartDate:  c.StartDate,
		EndDate:    c.EndDate,
		MaxPerDay:  c.MaxPerDay,
		TotalCount: c.TotalCount,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func campaignModelToDomain(m *CampaignModel) *domain.Campaign {
	if m == nil {
		return nil
	}

	return &domain.Campaign{
		ID:         m.ID,
		Name:       m.Name,
		Mode:       m.Mode,
		Priority:   m.Priority,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		MaxPerDay:  m.MaxPerDay,
		TotalCount: m.TotalCount,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func itemModelFromDomain(i *domain.CampaignItem) *CampaignItemModel {
	if i == nil {
		return nil
	}

	return &CampaignItemModel{
		ID:            i.ID,
		CampaignID:    i.CampaignID,
		ItemIndex:     i.ItemIndex,
		SourceIdea:    i.SourceIdea,
		Status:        i.Status,
		ProjectID:     i.ProjectID,
		AssetURL:      i.AssetURL,
		Error:         i.Error,
		AttemptCount:  i.AttemptCount,
		MaxAttempts:   i.MaxAttempts,
		ScheduledDate: i.ScheduledDate,
		PublishedAt:   i.PublishedAt,
		NextRetryAt:   i.NextRetryAt,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
	}
}

func itemModelToDomain(m *CampaignItemModel) *domain.CampaignItem {
	if m == nil {
		return nil
	}

	return &domain.CampaignItem{
		ID:            m.ID,
		CampaignID:    m.CampaignID,
		ItemIndex:     m.ItemIndex,
		SourceIdea:    m.SourceIdea,
		Status:        m.Status,
		ProjectID:     m.ProjectID,
		AssetURL:      m.AssetURL,
		Error:         m.Error,
		AttemptCount:  m.AttemptCount,
		MaxAttempts:   m.MaxAttempts,
		ScheduledDate: m.ScheduledDate,
		PublishedAt:   m.PublishedAt,
		NextRetryAt:   m.NextRetryAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func attemptModelFromDomain(a *domain.GenerationAttempt) *GenerationAttemptModel {
	if a == nil {
		return nil
	}

	return &GenerationAttemptModel{
		ID:            a.ID,
		ItemID:        a.ItemID,
		AttemptNumber: a.AttemptNumber,
		StatusCode:    a.StatusCode,
		ResponseBody:  a.ResponseBody,
		Error:         a.Error,
		CreatedAt:     a.CreatedAt,
	}
}

func attemptModelToDomain(m *GenerationAttemptModel) *domain.GenerationAttempt {
	if m == nil {
		return nil
	}

	return &domain.GenerationAttempt{
		ID:            m.ID,
		ItemID:        m.ItemID,
		AttemptNumber: m.AttemptNumber,
		StatusCode:    m.StatusCode,
		ResponseBody:  m.ResponseBody,
		Error:         m.Error,
		CreatedAt:     m.CreatedAt,
	}
}
